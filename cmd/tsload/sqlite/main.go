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

package sqlite

import (
	"context"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
	sqlitesink "github.com/QubitProducts/tsload/sinks/sqlite"
)

func init() {
	root.RootCmd.AddCommand(sqliteCmd)
}

var sqliteCmd = &cobra.Command{
	Use:   "sqlite <tsdir> <vsdir> <mergemap> <db>",
	Short: "load groups into a SQLite database, one table per group",
	Long: `Each group is written to its own table, named by the table template
(t<group> by default), with a time column and one column per member.
Rows whose time is already present in a table are ignored, so a load
can be safely repeated.`,
	Example: `tsload sqlite data/ts data/vs data/ts/fmerge.sorted.txt out.db`,
	Args:    root.ExactArgs("tsdir", "vsdir", "mergemap", "db"),
	RunE:    run,
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := root.Settings()

	snk, err := sqlitesink.Open(args[3], sqlitesink.WithTableTemplate(cfg.Table))
	if err != nil {
		return err
	}
	defer func() {
		if err := snk.Close(); err != nil {
			glog.Errorf("closing %s, %v", args[3], err)
		}
	}()

	_, err = root.Run(ctx, root.Job{
		Name:   "sqlite",
		Sink:   snk,
		Source: root.OpenSource(args[0], args[1], args[2]),
		Policy: sqlitesink.DefaultPolicy,
	})
	return err
}
