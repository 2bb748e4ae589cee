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
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/num/quat"

	"github.com/govsdm/govsdm/InputParameters"
	"github.com/govsdm/govsdm/kinematics"
	"github.com/govsdm/govsdm/projection"
	"github.com/govsdm/govsdm/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RateArgs struct {
	GXFile, FS2File string // projected coefficients, projected on the fly when empty
	RotationsFile   string // overrides the run file's Rotations
	JSON            bool
}

// RateCmd represents the rate command
var RateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Scattering rate for each detector orientation",
	Long: `
Contracts the velocity and momentum projections with the kinematic scattering
matrix. One rate is printed per rotation, in input order; with no rotations
the unrotated rate is printed.

govsdm rate -I run.yaml --gX gX.txt --fs2 fs2.txt --rotations rot.yaml --json`,
	Run: func(cmd *cobra.Command, args []string) {
		var ra RateArgs
		icFile, _ := cmd.Flags().GetString("inputConditionsFile")
		cacheDir, _ := cmd.Flags().GetString("cacheDir")
		ra.GXFile, _ = cmd.Flags().GetString("gX")
		ra.FS2File, _ = cmd.Flags().GetString("fs2")
		ra.RotationsFile, _ = cmd.Flags().GetString("rotations")
		ra.JSON, _ = cmd.Flags().GetBool("json")
		rp := processInput(icFile)
		cache, closeCache, err := openCache(rp, cacheDir)
		exitOnError(err)
		err = RunRate(context.Background(), rp, ra, cache, os.Stdout)
		closeCache()
		exitOnError(err)
	},
}

func init() {
	rootCmd.AddCommand(RateCmd)
	RateCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run file")
	RateCmd.Flags().String("gX", "", "velocity distribution coefficients (projected from the run file when empty)")
	RateCmd.Flags().String("fs2", "", "form factor coefficients (projected from the run file when empty)")
	RateCmd.Flags().String("rotations", "", "YAML file with a Rotations list of (w, x, y, z)")
	RateCmd.Flags().String("cacheDir", "", "directory of the on-disk kinematic matrix cache")
	RateCmd.Flags().Bool("json", false, "write the rates as JSON")
}

type rateRecord struct {
	Rotation [4]float64 `json:"rotation"`
	Rate     float64    `json:"rate"`
}

type rateReport struct {
	Title     string       `json:"title"`
	Model     string       `json:"model"`
	Texp      float64      `json:"texp"`
	Converged bool         `json:"converged"`
	Rates     []rateRecord `json:"rates"`
}

// RunRate loads or projects gX and fs2, obtains the kinematic matrix from
// cache and writes one rate per rotation to w.
func RunRate(ctx context.Context, rp *InputParameters.RunParameters, ra RateArgs,
	cache *kinematics.Cache, w io.Writer) (err error) {
	var (
		start     = time.Now()
		converged = true
		gX, fs2   *projection.ProjectedF
		qs        []quat.Number
		mi        *kinematics.McalI
		a         *rate.Assembler
		rates     []float64
	)
	model, err := rp.Model()
	if err != nil {
		return
	}
	load := func(fileName, space string) (pf *projection.ProjectedF, err error) {
		if len(fileName) != 0 {
			return projection.ReadFile(fileName)
		}
		pf, err = RunProject(ctx, rp, space)
		return pf, tolerate(err)
	}
	if gX, err = load(ra.GXFile, "v"); err != nil {
		return
	}
	if fs2, err = load(ra.FS2File, "q"); err != nil {
		return
	}
	converged = gX.Converged && fs2.Converged
	if qs, err = readRotations(rp, ra.RotationsFile); err != nil {
		return
	}
	mi, err = cache.Get(ctx, gX.Basis, fs2.Basis, gX.LMax, model)
	if err = tolerate(err); err != nil {
		return
	}
	converged = converged && mi.Converged
	opts := rp.RateOptions()
	if step := int64(len(qs) / 10); step >= 100 {
		var finished atomic.Int64
		opts.Progress = func(int) {
			if n := finished.Add(1); n%step == 0 {
				logf("%s of %s rotations\n", humanize.Comma(n), humanize.Comma(int64(len(qs))))
			}
		}
	}
	if a, err = rate.NewAssembler(model, gX, fs2, mi, opts); err != nil {
		return
	}
	if len(qs) == 0 {
		qs = []quat.Number{{Real: 1}}
		rates = []float64{a.RateNoRotation()}
	} else if rates, _, err = a.Rates(ctx, qs); err != nil {
		return
	}
	logf("%s rates in %v\n", humanize.Comma(int64(len(rates))), time.Since(start).Round(time.Millisecond))

	report := rateReport{
		Title:     rp.Title,
		Model:     model.String(),
		Texp:      a.Opts.Texp,
		Converged: converged,
		Rates:     make([]rateRecord, len(rates)),
	}
	for i, q := range qs {
		report.Rates[i] = rateRecord{
			Rotation: [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
			Rate:     rates[i],
		}
	}
	if ra.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(w, "# %s\n# %s, Texp=%g, converged=%t\n", report.Title, report.Model, report.Texp, report.Converged)
	for i, r := range report.Rates {
		fmt.Fprintf(w, "%4d  [% .8f % .8f % .8f % .8f]  %.12e\n", i,
			r.Rotation[0], r.Rotation[1], r.Rotation[2], r.Rotation[3], r.Rate)
	}
	return
}

func readRotations(rp *InputParameters.RunParameters, fileName string) (qs []quat.Number, err error) {
	if len(fileName) == 0 {
		return rp.Quaternions()
	}
	var (
		data []byte
		rf   InputParameters.RotationFile
	)
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	if err = rf.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	if len(rf.Rotations) == 0 {
		return nil, errors.New(fileName + ": no Rotations listed")
	}
	return InputParameters.ToQuaternions(rf.Rotations)
}
