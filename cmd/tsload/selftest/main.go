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

// Package selftest writes a small set of streams to a scratch directory,
// loads them with each sink and checks what comes out.
package selftest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
	"github.com/QubitProducts/tsload/record"
	"github.com/QubitProducts/tsload/sinks"
	"github.com/QubitProducts/tsload/sinks/csv"
	"github.com/QubitProducts/tsload/sinks/opentsdb"
	"github.com/QubitProducts/tsload/sinks/sqlite"
)

var keep bool

func init() {
	root.RootCmd.AddCommand(selftestCmd)

	selftestCmd.Flags().BoolVar(&keep, "keep", false, "Don't remove the scratch directory")
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "load a generated data set with every sink and check the results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.MkdirTemp("", "tsload-selftest")
		if err != nil {
			return err
		}
		if keep {
			glog.Infof("selftest data in %s", dir)
		} else {
			defer os.RemoveAll(dir)
		}
		if err := Run(context.Background(), dir); err != nil {
			return err
		}
		glog.Info("selftest passed")
		return nil
	},
}

var (
	fixtureTS = map[string][]int64{
		"g1":     {5, 15},
		"single": {100, 200, 300},
	}
	fixtureVS = map[string][]int64{
		"v1":     {7, 9},
		"v2":     {8, 10},
		"single": {1, 2, 3},
	}
	fixtureMerge = "g1 v1.vs\ng1 v2.vs\nsingle single.vs\n"

	expectCSV = []string{
		"5,7,8\n15,9,10\n",
		"100,1\n200,2\n300,3\n",
	}
	expectOpenTSDB = "m1 5 7 t=1\nm1 5 8 t=2\nm1 15 9 t=1\nm1 15 10 t=2\n" +
		"m2 100 1 t=1\nm2 200 2 t=1\nm2 300 3 t=1\n"
	expectSQLite = map[string][][]int64{
		"tg1":     {{5, 7, 8}, {15, 9, 10}},
		"tsingle": {{100, 1}, {200, 2}, {300, 3}},
	}
)

// Fixture writes the test streams and merge map under dir, returning the
// timestamp directory, value directory and merge map file.
func Fixture(dir string) (string, string, string, error) {
	cfg := root.Settings()
	tsDir := filepath.Join(dir, "ts")
	vsDir := filepath.Join(dir, "vs")
	for _, d := range []string{tsDir, vsDir} {
		if err := os.MkdirAll(d, 0777); err != nil {
			return "", "", "", err
		}
	}
	for n, vs := range fixtureTS {
		if err := record.WriteFile(filepath.Join(tsDir, n+".ts"), cfg.TimestampWidth, vs...); err != nil {
			return "", "", "", err
		}
	}
	for n, vs := range fixtureVS {
		if err := record.WriteFile(filepath.Join(vsDir, n+".vs"), cfg.ValueWidth, vs...); err != nil {
			return "", "", "", err
		}
	}
	mm := filepath.Join(tsDir, "fmerge.sorted.txt")
	if err := os.WriteFile(mm, []byte(fixtureMerge), 0644); err != nil {
		return "", "", "", err
	}
	return tsDir, vsDir, mm, nil
}

// Run generates the fixture in dir and checks every sink against it.
func Run(ctx context.Context, dir string) error {
	tsDir, vsDir, mm, err := Fixture(dir)
	if err != nil {
		return errors.Wrap(err, "writing fixture")
	}

	checks := []struct {
		name string
		fn   func(context.Context, string, string, string, string) error
	}{
		{"csv", checkCSV},
		{"opentsdb", checkOpenTSDB},
		{"sqlite", checkSQLite},
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range checks {
		c := c
		out := filepath.Join(dir, c.name)
		if err := os.MkdirAll(out, 0777); err != nil {
			return err
		}
		g.Go(func() error {
			if err := c.fn(ctx, tsDir, vsDir, mm, out); err != nil {
				return errors.Wrapf(err, "%s selftest", c.name)
			}
			glog.Infof("%s ok", c.name)
			return nil
		})
	}
	return g.Wait()
}

func load(ctx context.Context, name string, snk sinks.Sinker, p sinks.Policy, tsDir, vsDir, mm string) error {
	sum, err := root.Run(ctx, root.Job{
		Name:   name,
		Sink:   snk,
		Source: root.OpenSource(tsDir, vsDir, mm),
		Policy: p,
	})
	if err != nil {
		return err
	}
	if sum.Groups != len(fixtureTS) {
		return errors.Errorf("loaded %d groups, expected %d", sum.Groups, len(fixtureTS))
	}
	return nil
}

func checkCSV(ctx context.Context, tsDir, vsDir, mm, out string) error {
	prefix := filepath.Join(out, "out")
	// twice, the second run must replace the first
	for i := 0; i < 2; i++ {
		if err := load(ctx, "csv", csv.New(prefix), csv.DefaultPolicy, tsDir, vsDir, mm); err != nil {
			return err
		}
	}

	s := csv.New(prefix)
	for i, expect := range expectCSV {
		data, _ := s.Files(i + 1)
		bs, err := os.ReadFile(data)
		if err != nil {
			return err
		}
		if string(bs) != expect {
			return errors.Errorf("%s, expected = %q ; got = %q", data, expect, bs)
		}
	}
	return nil
}

func checkOpenTSDB(ctx context.Context, tsDir, vsDir, mm, out string) error {
	buf := &bytes.Buffer{}
	snk := opentsdb.New(buf)
	if err := load(ctx, "opentsdb", snk, opentsdb.DefaultPolicy, tsDir, vsDir, mm); err != nil {
		return err
	}
	if buf.String() != expectOpenTSDB {
		return errors.Errorf("expected = %q ; got = %q", expectOpenTSDB, buf.String())
	}

	mbuf := &bytes.Buffer{}
	if err := opentsdb.WriteMetrics(mbuf, snk.Metrics()); err != nil {
		return err
	}
	if mbuf.String() != "m1 m2 \n" {
		return errors.Errorf("bad metrics listing %q", mbuf.String())
	}
	return os.WriteFile(filepath.Join(out, "import.txt"), buf.Bytes(), 0644)
}

func checkSQLite(ctx context.Context, tsDir, vsDir, mm, out string) error {
	snk, err := sqlite.Open(filepath.Join(out, "test.db"))
	if err != nil {
		return err
	}
	defer snk.Close()

	for i := 0; i < 2; i++ {
		if err := load(ctx, "sqlite", snk, sqlite.DefaultPolicy, tsDir, vsDir, mm); err != nil {
			return err
		}
	}

	for table, expect := range expectSQLite {
		got, err := dumpTable(snk, table, len(expect[0]))
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(got, expect) {
			return errors.Errorf("table %s, expected = %v ; got = %v", table, expect, got)
		}
	}
	return nil
}

func dumpTable(snk *sqlite.Sink, table string, ncols int) ([][]int64, error) {
	rs, err := snk.DB().Query(`SELECT * FROM "` + table + `" ORDER BY time`)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var res [][]int64
	for rs.Next() {
		row := make([]int64, ncols)
		ptrs := make([]interface{}, ncols)
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rs.Err()
}
