/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/govsdm/govsdm/InputParameters"
	"github.com/govsdm/govsdm/projection"
)

// ProjectCmd represents the project command
var ProjectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project the run's velocity distribution or form factor onto its basis",
	Long: `
Projects the standard halo model (--space v) or the Gaussian form factor
(--space q) described in the run file and writes the coefficients.

govsdm project -I run.yaml --space v -o gX.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		icFile, _ := cmd.Flags().GetString("inputConditionsFile")
		space, _ := cmd.Flags().GetString("space")
		out, _ := cmd.Flags().GetString("output")
		rp := processInput(icFile)
		if len(out) == 0 {
			out = space + "_coeffs.txt"
		}
		pf, err := RunProject(context.Background(), rp, space)
		exitOnError(tolerate(err))
		exitOnError(projection.WriteFile(out, pf))
		fmt.Printf("wrote %s non-zero coefficients of %s to %s\n", humanize.Comma(int64(pf.NonZero())), pf, out)
	},
}

func init() {
	rootCmd.AddCommand(ProjectCmd)
	ProjectCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run file")
	ProjectCmd.Flags().StringP("space", "s", "v", "v = velocity distribution, q = momentum form factor")
	ProjectCmd.Flags().StringP("output", "o", "", "coefficient file to write (default <space>_coeffs.txt)")
}

// RunProject projects the field the run file describes for space "v" or
// "q". A ConvergenceWarning comes back with a usable result.
func RunProject(ctx context.Context, rp *InputParameters.RunParameters, space string) (pf *projection.ProjectedF, err error) {
	var (
		field  projection.Field
		breaks projection.RadialBreaks
		start  = time.Now()
	)
	vB, qB, err := rp.Bases()
	if err != nil {
		return
	}
	b := vB
	switch space {
	case "v":
		shm, err := rp.VelocityField()
		if err != nil {
			return nil, err
		}
		field, breaks = shm.Field(), shm.RadialBreaks
	case "q":
		g, err := rp.MomentumField()
		if err != nil {
			return nil, err
		}
		field, b = g.Field(), qB
	default:
		return nil, fmt.Errorf("unknown space %q, want v or q", space)
	}
	p, err := projection.NewProjector(b, rp.LMax, rp.ProjectionOptions())
	if err != nil {
		return
	}
	logf("projecting %s space on %s, lMax=%d, %s angular nodes per radius\n",
		space, b, rp.LMax, humanize.Comma(int64(p.AngularNodes())))
	pf, err = p.ProjectFBreaks(ctx, field, breaks)
	stageDone("projection", start)
	return
}
