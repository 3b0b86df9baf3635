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

package sources

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/golang/glog"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/QubitProducts/tsload/sinks"
	"github.com/QubitProducts/tsload/timer"
)

var (
	rowsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_reader_rows_emitted_total",
		Help: "Counter of rows written to sinks since process start.",
	}, []string{"tsload_sink"})
	rowsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_reader_rows_dropped_total",
		Help: "Counter of rows dropped for non-increasing timestamps.",
	}, []string{"tsload_sink"})
	rowsOmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_reader_rows_omitted_total",
		Help: "Counter of rows omitted because a value stream was short.",
	}, []string{"tsload_sink"})
	valueFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_reader_value_failures_total",
		Help: "Counter of value reads from exhausted or missing value streams.",
	}, []string{"tsload_sink"})
	groupsRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_reader_groups_total",
		Help: "Counter of groups processed since process start.",
	}, []string{"tsload_sink", "result"})
)

func init() {
	prometheus.MustRegister(rowsEmitted)
	prometheus.MustRegister(rowsDropped)
	prometheus.MustRegister(rowsOmitted)
	prometheus.MustRegister(valueFailures)
	prometheus.MustRegister(groupsRead)
}

// ReadOptions control a full run over every group of a source.
type ReadOptions struct {
	AlignOptions

	// Name labels the metrics for this run, usually the sink name.
	Name string
	// Strict aborts the whole run when a group has no timestamp stream,
	// rather than skipping that group.
	Strict bool
	// BeginRetries is the number of times BeginGroup is retried.
	BeginRetries int
	// Timer brackets every group. A new timer is used if nil.
	Timer *timer.Timer
	// Groups restricts the run to these groups, all groups if empty.
	Groups []string
}

// Summary describes a complete run.
type Summary struct {
	Progress
	Groups  int // groups whose rows were all read
	Skipped int // groups that could not be started, or had no timestamps
	Failed  int // groups cut short by a sink error
}

// ReadAllGroups drains every group of src into snk, one group at a time.
// Errors for individual groups are logged and the run carries on with the
// next group. A missing timestamp stream with opts.Strict set, a sink
// returning sinks.ErrUnsupported, or cancellation of ctx stop the run early.
func ReadAllGroups(ctx context.Context, snk sinks.Sinker, src GroupSourcer, opts ReadOptions) (Summary, error) {
	var sum Summary

	if err := opts.validate(); err != nil {
		return sum, err
	}
	if opts.Timer == nil {
		opts.Timer = timer.New(nil)
	}
	if opts.Name == "" {
		opts.Name = "default"
	}

	rs := &groupReader{
		opts:    opts,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	groups := opts.Groups
	if len(groups) == 0 {
		groups = src.Groups()
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		p, err := rs.readGroup(ctx, snk, src, g)
		sum.Progress.Add(p)
		rs.count(p)

		switch {
		case err == nil:
			sum.Groups++
			groupsRead.WithLabelValues(opts.Name, "ok").Inc()
		case errors.Is(err, ErrMissingTimestamps):
			sum.Skipped++
			groupsRead.WithLabelValues(opts.Name, "skipped").Inc()
			glog.Errorf("%v", err)
			if opts.Strict {
				return sum, err
			}
		case errors.Is(err, ErrSink):
			sum.Failed++
			groupsRead.WithLabelValues(opts.Name, "failed").Inc()
			glog.Errorf("insert failed, moving to next group: %v", err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return sum, err
		case errors.Is(err, sinks.ErrUnsupported):
			sum.Skipped++
			groupsRead.WithLabelValues(opts.Name, "skipped").Inc()
			return sum, err
		default:
			sum.Skipped++
			groupsRead.WithLabelValues(opts.Name, "skipped").Inc()
			glog.Errorf("skipping group %s, %v", g, err)
		}
	}

	return sum, nil
}

type groupReader struct {
	opts    ReadOptions
	entropy io.Reader
}

func (gr *groupReader) count(p Progress) {
	n := gr.opts.Name
	rowsEmitted.WithLabelValues(n).Add(float64(p.Emitted))
	rowsDropped.WithLabelValues(n).Add(float64(p.Dropped))
	rowsOmitted.WithLabelValues(n).Add(float64(p.Omitted))
	valueFailures.WithLabelValues(n).Add(float64(p.ValueFailures))
}

func (gr *groupReader) beginGroup(ctx context.Context, snk sinks.Sinker, g string, members []string) (sinks.RowWriter, error) {
	b := backoff.New(10*time.Second, 100*time.Millisecond)
	for attempt := 0; ; attempt++ {
		w, err := snk.BeginGroup(ctx, g, members)
		if err == nil {
			return w, nil
		}
		if errors.Is(err, sinks.ErrUnsupported) || attempt >= gr.opts.BeginRetries {
			return nil, err
		}
		if glog.V(2) {
			glog.Errorf("begin group %s error: %v", g, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func (gr *groupReader) readGroup(ctx context.Context, snk sinks.Sinker, src GroupSourcer, g string) (p Progress, err error) {
	streamID := ulid.MustNew(ulid.Timestamp(time.Now()), gr.entropy)
	members := src.Members(g)

	if glog.V(1) {
		glog.Infof("inserting %s (stream %s, %d members)", g, streamID, len(members))
	}

	if err := gr.opts.Timer.Start(); err != nil {
		glog.Warningf("%v", err)
	}
	defer func() {
		r, terr := gr.opts.Timer.Stop(p.Emitted)
		if terr != nil {
			glog.Warningf("%v", terr)
		}
		glog.Infof("group=%s stream=%s %s; %s", g, streamID, p, r)
		if p.Dropped != 0 {
			glog.Warningf("got timestamps older than stream tail in %s, count: %d", g, p.Dropped)
		}
		if p.ValueFailures != 0 {
			glog.Warningf("some value streams were incomplete or missing in %s, count: %d", g, p.ValueFailures)
		}
	}()

	w, err := gr.beginGroup(ctx, snk, g, members)
	if err != nil {
		return p, errors.Wrapf(err, "could not begin group %s", g)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			glog.Errorf("closing group %s, %v", g, cerr)
			if err == nil {
				err = errors.Wrapf(ErrSink, "closing group %s, %v", g, cerr)
			}
		}
	}()

	return AlignGroup(ctx, src, g, w, gr.opts.AlignOptions)
}
