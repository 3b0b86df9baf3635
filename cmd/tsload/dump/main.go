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

package dump

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
	"github.com/QubitProducts/tsload/sinks"
	"github.com/QubitProducts/tsload/sinks/awk"
	"github.com/QubitProducts/tsload/sinks/stdout"
)

// Flags
var (
	format  string
	header  bool
	awkProg string
)

func init() {
	root.RootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&format, "fmt", "", "Go template to use to format each output line")
	dumpCmd.Flags().StringVar(&awkProg, "awk", "", "awk program to run over each group's rows, the variables group and members are set")
	dumpCmd.Flags().BoolVar(&header, "header", false, "Print the member names at the start of each group")
}

var dumpCmd = &cobra.Command{
	Use:   "dump <tsdir> <vsdir> <mergemap> [group...]",
	Short: "print the aligned rows of some or all groups",
	Long: `Prints every row as "<group> <time> <v1> <v2> ...". The template given
with --fmt is passed .Group, .Members, .Time and .Values. With --awk each
group's rows are instead piped through an awk program.`,
	Example: `tsload dump data/ts data/vs data/ts/fmerge.sorted.txt g1 --fmt '{{.Time}} {{index .Values 0}}'`,
	Args:    cobra.MinimumNArgs(3),
	RunE:    run,
}

func run(cmd *cobra.Command, args []string) error {
	var snk sinks.Sinker
	switch {
	case awkProg != "":
		as, err := awk.New(awkProg, nil)
		if err != nil {
			return err
		}
		snk = as
	default:
		ss := &stdout.Stdout{Header: header}
		if format != "" {
			tmpl, err := stdout.NewTemplate(format)
			if err != nil {
				return err
			}
			ss.Template = tmpl
		}
		snk = ss
	}

	_, err := root.Run(context.Background(), root.Job{
		Name:   "dump",
		Sink:   snk,
		Source: root.OpenSource(args[0], args[1], args[2]),
		Policy: sinks.ZeroFill,
		Groups: args[3:],
	})
	return err
}
