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

package opentsdb

import (
	"context"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
	"github.com/QubitProducts/tsload/sinks/opentsdb"
	"github.com/QubitProducts/tsload/sources/filesystem"
)

// Flags
var (
	single  bool
	outFile string
)

func init() {
	root.RootCmd.AddCommand(opentsdbCmd)

	opentsdbCmd.Flags().BoolVar(&single, "single", false, "Treat every timestamp file as a group of one, no merge map is needed")
	opentsdbCmd.Flags().StringVar(&outFile, "out", "", "File to write import lines to, default is stdout")
}

var opentsdbCmd = &cobra.Command{
	Use:   "opentsdb <tsdir> <vsdir> [mergemap] <metrics-file>",
	Short: "write OpenTSDB batch import lines",
	Long: `Writes one import line per value, naming the metric of the n'th group
m<n>. The list of metrics is written to metrics-file, ready to be passed to
"tsdb mkmetric". With --single no merge map is given, every timestamp file is
paired with the value file of the same name.`,
	Example: `tsload opentsdb data/ts data/vs data/ts/fmerge.sorted.txt metrics.txt > import.txt
tsload opentsdb --single data/ts data/vs metrics.txt --out import.txt`,
	Args: func(cmd *cobra.Command, args []string) error {
		if single {
			return root.ExactArgs("tsdir", "vsdir", "metrics-file")(cmd, args)
		}
		return root.ExactArgs("tsdir", "vsdir", "mergemap", "metrics-file")(cmd, args)
	},
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var src *filesystem.Source
	if single {
		var err error
		if src, err = root.OpenSingleSource(args[0], args[1]); err != nil {
			return err
		}
	} else {
		src = root.OpenSource(args[0], args[1], args[2])
	}
	metricsFile := args[len(args)-1]

	var out io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return errors.Wrap(err, "creating output")
		}
		defer f.Close()
		out = f
	}

	snk := opentsdb.New(out, opentsdb.WithSingle(single))
	_, runErr := root.Run(ctx, root.Job{
		Name:   "opentsdb",
		Sink:   snk,
		Source: src,
		Policy: opentsdb.DefaultPolicy,
	})

	mf, err := os.Create(metricsFile)
	if err != nil {
		return errors.Wrap(err, "creating metrics file")
	}
	defer mf.Close()

	if err := opentsdb.WriteMetrics(mf, snk.Metrics()); err != nil {
		return errors.Wrap(err, "writing metrics file")
	}
	if glog.V(1) {
		glog.Infof("wrote %d metrics to %s", snk.Metrics(), metricsFile)
	}
	return runErr
}
