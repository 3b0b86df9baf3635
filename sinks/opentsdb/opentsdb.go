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

// Package opentsdb implements a sink writing OpenTSDB batch import lines.
//
// Every group becomes a metric named m<n>, numbered from 1 in the order the
// groups are begun. Each value is written on its own line:
//
//	<metric> <timestamp> <value> <tag>
//
// The tag is t=<k> for the k'th member of a group, or t=v in single stream
// mode.
package opentsdb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/QubitProducts/tsload/sinks"
)

// DefaultPolicy writes every value that was read, leaving out the members
// whose streams have run out.
const DefaultPolicy = sinks.SkipValue

// MetricName returns the metric used for the n'th group.
func MetricName(n int) string {
	return "m" + strconv.Itoa(n)
}

// WriteMetrics writes the listing of the metrics used for n groups, in the
// form expected by "tsdb mkmetric".
func WriteMetrics(w io.Writer, n int) error {
	sb := &strings.Builder{}
	for i := 1; i <= n; i++ {
		sb.WriteString(MetricName(i))
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// Sink is a sinks.Sinker writing import lines to an io.Writer.
type Sink struct {
	w      *bufio.Writer
	single bool
	n      int
}

// Opt configures a Sink.
type Opt func(*Sink)

// WithSingle selects single stream mode, tagging every value t=v.
func WithSingle(single bool) Opt {
	return func(s *Sink) {
		s.single = single
	}
}

// New creates a sink writing to w.
func New(w io.Writer, opts ...Opt) *Sink {
	s := &Sink{w: bufio.NewWriter(w)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Metrics is the number of metrics assigned so far.
func (s *Sink) Metrics() int {
	return s.n
}

// BeginGroup implements sinks.Sinker.
func (s *Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	s.n++
	m := MetricName(s.n)
	if glog.V(1) {
		glog.Infof("group %s is metric %s", group, m)
	}

	tags := make([]string, len(members))
	for i := range members {
		if s.single {
			tags[i] = "t=v"
			continue
		}
		tags[i] = "t=" + strconv.Itoa(i+1)
	}
	return &RowWriter{s: s, metric: m, tags: tags}, nil
}

// RowWriter writes the lines for one metric.
type RowWriter struct {
	s      *Sink
	metric string
	tags   []string
}

// WriteRow implements sinks.RowWriter.
func (w *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	if len(r.Values) != len(w.tags) {
		return errors.Errorf("row for %s has %d values, expected %d", w.metric, len(r.Values), len(w.tags))
	}
	for i, v := range r.Values {
		if !r.Has(i) {
			continue
		}
		if _, err := fmt.Fprintf(w.s.w, "%s %d %d %s\n", w.metric, r.Time, v, w.tags[i]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the lines written for the group.
func (w *RowWriter) Close() error {
	return w.s.w.Flush()
}
