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
	"github.com/govsdm/govsdm/kinematics"
)

// McalICmd represents the mcalI command
var McalICmd = &cobra.Command{
	Use:   "mcalI",
	Short: "Compute the kinematic scattering matrix of the run's bases and model",
	Long: `
Computes I^l_{nn'} for every l <= LMax and reports its size and sparsity.
With --cacheDir the matrix is stored in (or read from) an on-disk cache so
later "rate" runs with the same bases and model skip the computation.

govsdm mcalI -I run.yaml --cacheDir ~/.govsdm/cache`,
	Run: func(cmd *cobra.Command, args []string) {
		icFile, _ := cmd.Flags().GetString("inputConditionsFile")
		cacheDir, _ := cmd.Flags().GetString("cacheDir")
		rp := processInput(icFile)
		cache, closeCache, err := openCache(rp, cacheDir)
		exitOnError(err)
		mi, err := RunMcalI(context.Background(), rp, cache)
		closeCache()
		exitOnError(tolerate(err))
		fmt.Printf("%s: %s non-zero of %s entries, fingerprint %016x\n", mi,
			humanize.Comma(int64(mi.NonZero())),
			humanize.Comma(int64((mi.LMax+1)*mi.NV()*mi.NQ())), mi.Fingerprint())
	},
}

func init() {
	rootCmd.AddCommand(McalICmd)
	McalICmd.Flags().StringP("inputConditionsFile", "I", "", "YAML run file")
	McalICmd.Flags().String("cacheDir", "", "directory of the on-disk kinematic matrix cache")
}

// openCache builds the kinematic matrix cache for the run, backed by a
// pebble store when dir is set.
func openCache(rp *InputParameters.RunParameters, dir string) (cache *kinematics.Cache, closeFn func(), err error) {
	closeFn = func() {}
	var store kinematics.Store
	if len(dir) != 0 {
		var ps *kinematics.PebbleStore
		if ps, err = kinematics.OpenPebbleStore(dir); err != nil {
			return
		}
		store = ps
		closeFn = func() {
			if err := ps.Close(); err != nil {
				fmt.Printf("error: closing cache: %s\n", err.Error())
			}
		}
	}
	cache = kinematics.NewCache(rp.KinematicsOptions(), store)
	return
}

func RunMcalI(ctx context.Context, rp *InputParameters.RunParameters, cache *kinematics.Cache) (mi *kinematics.McalI, err error) {
	start := time.Now()
	vB, qB, err := rp.Bases()
	if err != nil {
		return
	}
	model, err := rp.Model()
	if err != nil {
		return
	}
	logf("kinematic matrix for %s, v: %s, q: %s, lMax=%d\n", model, vB, qB, rp.LMax)
	mi, err = cache.Get(ctx, vB, qB, rp.LMax, model)
	stageDone("kinematic matrix", start)
	return
}
