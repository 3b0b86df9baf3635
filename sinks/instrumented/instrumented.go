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

// Package instrumented wraps a sink, recording how long it takes to accept
// rows.
package instrumented

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/QubitProducts/tsload/sinks"
)

var (
	writeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tsload_sink_write_duration_seconds",
		Help:    "Histogram of time spent writing single rows to a sink.",
		Buckets: prometheus.ExponentialBuckets(0.000001, 10, 7),
	}, []string{"tsload_sink"})
	rowsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_sink_rows_written_total",
		Help: "Counter of rows accepted by a sink.",
	}, []string{"tsload_sink"})
	writeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_sink_write_errors_total",
		Help: "Counter of rows a sink failed to write.",
	}, []string{"tsload_sink"})
	groupsBegun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsload_sink_groups_begun_total",
		Help: "Counter of groups started on a sink, by result.",
	}, []string{"tsload_sink", "result"})
)

func init() {
	prometheus.MustRegister(writeDuration)
	prometheus.MustRegister(rowsWritten)
	prometheus.MustRegister(writeErrors)
	prometheus.MustRegister(groupsBegun)
}

// Sink passes everything on to the next sink, recording metrics labelled
// with its name.
type Sink struct {
	name     string
	nextSink sinks.Sinker
}

// New creates a new instrumented sink.
func New(name string, nextSink sinks.Sinker) *Sink {
	return &Sink{name, nextSink}
}

// BeginGroup implements sinks.Sinker.
func (o *Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	rw, err := o.nextSink.BeginGroup(ctx, group, members)
	if err != nil {
		groupsBegun.WithLabelValues(o.name, "error").Inc()
		return rw, err
	}
	groupsBegun.WithLabelValues(o.name, "ok").Inc()

	return &RowWriter{
		rw:       rw,
		duration: writeDuration.WithLabelValues(o.name),
		written:  rowsWritten.WithLabelValues(o.name),
		errors:   writeErrors.WithLabelValues(o.name),
	}, nil
}

// RowWriter times every row passed to the wrapped writer.
type RowWriter struct {
	rw       sinks.RowWriter
	duration prometheus.Observer
	written  prometheus.Counter
	errors   prometheus.Counter
}

// WriteRow implements sinks.RowWriter.
func (o *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	t := prometheus.NewTimer(o.duration)
	err := o.rw.WriteRow(ctx, r)
	t.ObserveDuration()
	if err != nil {
		o.errors.Inc()
		return err
	}
	o.written.Inc()
	return nil
}

// Close implements sinks.RowWriter.
func (o *RowWriter) Close() error {
	return o.rw.Close()
}
