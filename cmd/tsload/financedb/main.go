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

package financedb

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
	"github.com/QubitProducts/tsload/sinks"
	"github.com/QubitProducts/tsload/sinks/financedb"
)

func init() {
	root.RootCmd.AddCommand(financedbCmd)
}

var financedbCmd = &cobra.Command{
	Use:    "financedb <tsdir> <vsdir> <mergemap>",
	Short:  "load groups into financedb (unimplemented)",
	Args:   root.ExactArgs("tsdir", "vsdir", "mergemap"),
	Hidden: true,
	RunE:   run,
}

func run(cmd *cobra.Command, args []string) error {
	_, err := root.Run(context.Background(), root.Job{
		Name:   "financedb",
		Sink:   financedb.Sink{},
		Source: root.OpenSource(args[0], args[1], args[2]),
		Policy: sinks.ZeroFill,
	})
	return err
}
