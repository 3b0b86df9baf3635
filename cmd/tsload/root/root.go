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

// Package root holds the tsload root command, the flags shared by every
// subcommand, and the plumbing that runs a sink over a source.
package root

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/config"
	"github.com/QubitProducts/tsload/mergemap"
	"github.com/QubitProducts/tsload/sinks"
	"github.com/QubitProducts/tsload/sinks/devnull"
	"github.com/QubitProducts/tsload/sinks/instrumented"
	"github.com/QubitProducts/tsload/sinks/throttle"
	"github.com/QubitProducts/tsload/sources"
	"github.com/QubitProducts/tsload/sources/filesystem"
	"github.com/QubitProducts/tsload/timer"
)

// Flags
var (
	cfgFile   string
	tsWidth   int
	vsWidth   int
	strict    bool
	statsAddr string
	retries   int
	rowRate   float64
	policy    sinks.Policy
	todevnull bool

	settings = config.Default()
)

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML file with run settings")
	pf.IntVar(&tsWidth, "ts.width", settings.TimestampWidth, "Width in bytes of each timestamp record")
	pf.IntVar(&vsWidth, "vs.width", settings.ValueWidth, "Width in bytes of each value record")
	pf.BoolVar(&strict, "strict", false, "Abort the run if a group has no timestamp file")
	pf.StringVar(&statsAddr, "stats.addr", "", "Address to listen for stats on, set to \"\" to disable")
	pf.IntVar(&retries, "retries", 0, "Number of times to retry starting a group on the sink")
	pf.Float64Var(&rowRate, "rate", 0, "Maximum rows written per second, 0 for no limit")
	pf.Var(&policy, "policy", "What to do when a value stream runs short: zero-fill, omit-row, truncate or skip-value (default from the sink)")
	pf.BoolVar(&todevnull, "devnull", false, "Drop all rows, but do the stats")

	pf.AddGoFlagSet(flag.CommandLine)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tsload",
	Short: "tsload loads flat binary time series into databases",
	Long: `tsload reads directories of fixed width binary timestamp (.ts) and
value (.vs) streams, groups them according to a merge map, and loads the
aligned rows into SQLite, OpenTSDB import files, or CSV files.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	flag.Set("logtostderr", "true")
	// glog complains if the go flags were never parsed, cobra has
	// already handled them.
	flag.CommandLine.Parse([]string{})

	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("ts.width") {
		c.TimestampWidth = tsWidth
	}
	if fs.Changed("vs.width") {
		c.ValueWidth = vsWidth
	}
	if fs.Changed("strict") {
		c.Strict = strict
	}
	if fs.Changed("stats.addr") {
		c.StatsAddr = statsAddr
	}
	if fs.Changed("retries") {
		c.Retries = retries
	}
	if fs.Changed("rate") {
		c.Rate = rowRate
	}
	if fs.Changed("policy") {
		c.Policy = policy
	}
	if err := c.Validate(); err != nil {
		return err
	}
	settings = c

	if settings.StatsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			glog.Infof("stats at: %s", settings.StatsAddr)
			if err := http.ListenAndServe(settings.StatsAddr, nil); err != nil {
				glog.Errorf("stats listener exited, %v", err)
			}
		}()
	}
	return nil
}

// Settings returns the configuration for this run, with any flags applied.
func Settings() config.Config {
	return settings
}

func sourceOpts() []filesystem.Opt {
	opts := []filesystem.Opt{filesystem.WithReserved(settings.Reserved...)}
	if settings.NameRegexp != nil {
		opts = append(opts, filesystem.WithNameRegexp(settings.NameRegexp.Regexp))
	}
	return opts
}

// OpenSource builds a grouped source. A merge map that can't be read is
// logged and treated as empty. Timestamp files the merge map doesn't
// mention are reported.
func OpenSource(tsDir, vsDir, mergeFile string) *filesystem.Source {
	m, err := mergemap.Load(mergeFile)
	if err != nil {
		glog.Errorf("%v", err)
	}
	if glog.V(1) {
		glog.Infof("merge map %s has %d groups", mergeFile, m.Len())
	}

	src := filesystem.New(tsDir, vsDir, m, sourceOpts()...)
	if _, err := src.Check(); err != nil {
		glog.Errorf("%v", err)
	}
	return src
}

// OpenSingleSource builds a source with one group per timestamp file.
func OpenSingleSource(tsDir, vsDir string) (*filesystem.Source, error) {
	return filesystem.NewSingle(tsDir, vsDir, sourceOpts()...)
}

// Job describes a single run of a sink over a source.
type Job struct {
	// Name identifies the sink in logs and metrics.
	Name   string
	Sink   sinks.Sinker
	Source *filesystem.Source
	// Policy is the sink's default short stream policy.
	Policy sinks.Policy
	// Groups restricts the run to the named groups.
	Groups []string
}

// Run loads every selected group of j.Source into j.Sink.
func Run(ctx context.Context, j Job) (sources.Summary, error) {
	runID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano())))

	p := j.Policy
	if settings.Policy != sinks.PolicyUnset {
		p = settings.Policy
	}

	var snk sinks.Sinker = j.Sink
	if todevnull {
		snk = &devnull.DevNull{}
	}
	if settings.Rate > 0 {
		snk = throttle.New(snk, settings.Rate, int(settings.Rate/10)+1)
	}
	snk = instrumented.New(j.Name, snk)

	groups := j.Groups
	if len(groups) == 0 {
		groups = j.Source.Groups()
	} else {
		for _, g := range groups {
			if len(j.Source.Members(g)) == 0 {
				glog.Warningf("group %s is not in the merge map", g)
			}
		}
	}
	groups = settings.Groups.Select(groups, j.Source.Members)
	if len(groups) == 0 {
		glog.Warningf("run %s: no groups to load from %s", runID, j.Source)
		return sources.Summary{}, nil
	}

	glog.Infof("run %s: loading %d groups from %s into %s (policy %s)", runID, len(groups), j.Source, j.Name, p)

	sum, err := sources.ReadAllGroups(ctx, snk, j.Source, sources.ReadOptions{
		AlignOptions: sources.AlignOptions{
			TimestampWidth: settings.TimestampWidth,
			ValueWidth:     settings.ValueWidth,
			Policy:         p,
		},
		Name:         j.Name,
		Strict:       settings.Strict,
		BeginRetries: settings.Retries,
		Timer:        timer.New(nil),
		Groups:       groups,
	})

	glog.Infof("run %s: groups=%d skipped=%d failed=%d %s", runID, sum.Groups, sum.Skipped, sum.Failed, sum.Progress)
	if err != nil {
		return sum, errors.Wrapf(err, "run %s", runID)
	}
	return sum, nil
}

// ExactArgs is cobra.ExactArgs, naming the arguments in the error.
func ExactArgs(names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != len(names) {
			return errors.Errorf("%s takes %d arguments, %v, got %d", cmd.Name(), len(names), names, len(args))
		}
		return nil
	}
}

