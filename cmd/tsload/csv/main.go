// Copyright 2016 Qubit Digital Ltd.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package tsload is a collection of tools for loading flat binary
// time-series streams into databases and wire formats.

package csv

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
	csvsink "github.com/QubitProducts/tsload/sinks/csv"
)

func init() {
	root.RootCmd.AddCommand(csvCmd)
}

var csvCmd = &cobra.Command{
	Use:   "csv <tsdir> <vsdir> <mergemap> <prefix>",
	Short: "write each group to a CSV file with a DataSeries schema",
	Long: `The n'th group is written to <prefix>-<n>.csv, one line per row holding
the timestamp and then each member's value. <prefix>-<n>.xml describes the
columns as a DataSeries ExtentType.`,
	Example: `tsload csv data/ts data/vs data/ts/fmerge.sorted.txt out/csv`,
	Args:    root.ExactArgs("tsdir", "vsdir", "mergemap", "prefix"),
	RunE:    run,
}

func run(cmd *cobra.Command, args []string) error {
	s := root.Settings()
	_, err := root.Run(context.Background(), root.Job{
		Name:   "csv",
		Sink:   csvsink.New(args[3], csvsink.WithWidths(s.TimestampWidth, s.ValueWidth)),
		Source: root.OpenSource(args[0], args[1], args[2]),
		Policy: csvsink.DefaultPolicy,
	})
	return err
}
