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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/govsdm/govsdm/InputParameters"
	"github.com/govsdm/govsdm/types"
	"github.com/govsdm/govsdm/utils"
)

func verbose() bool { return viper.GetBool("verbose") }

func logf(format string, args ...any) {
	if verbose() {
		fmt.Printf(format, args...)
	}
}

func stageDone(name string, start time.Time) {
	logf("%s done in %v, %s\n", name, time.Since(start).Round(time.Millisecond), utils.GetMemUsage())
}

// processInput reads and validates the run file, printing an example and
// exiting when none was given.
func processInput(fileName string) (rp *InputParameters.RunParameters) {
	var (
		err error
	)
	if len(fileName) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		fmt.Printf("Example File:%s\n", InputParameters.ExampleFile)
		os.Exit(1)
	}
	if rp, err = readRunParameters(fileName); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if pl := viper.GetInt("procLimit"); pl > 0 {
		rp.ProcLimit = pl
	}
	if verbose() {
		rp.Print()
	}
	return
}

func readRunParameters(fileName string) (rp *InputParameters.RunParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	rp = InputParameters.NewRunParameters()
	if err = rp.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	if err = rp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return
}

// tolerate prints a ConvergenceWarning and clears it; any other error is
// returned unchanged.
func tolerate(err error) error {
	var cw *types.ConvergenceWarning
	if errors.As(err, &cw) {
		fmt.Printf("warning: %s\n", cw.Error())
		return nil
	}
	return err
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
}
