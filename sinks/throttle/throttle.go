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

// Package throttle wraps a sink, limiting the rate rows are written to it.
package throttle

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/QubitProducts/tsload/sinks"
)

// Sink limits all groups written through it to a shared row rate.
type Sink struct {
	nextSink sinks.Sinker
	limiter  *rate.Limiter
}

// New creates a sink passing at most rowsPerSec rows per second, with
// bursts of up to burst rows, to nextSink.
func New(nextSink sinks.Sinker, rowsPerSec float64, burst int) *Sink {
	if burst < 1 {
		burst = 1
	}
	return &Sink{
		nextSink: nextSink,
		limiter:  rate.NewLimiter(rate.Limit(rowsPerSec), burst),
	}
}

// BeginGroup implements sinks.Sinker.
func (o *Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	rw, err := o.nextSink.BeginGroup(ctx, group, members)
	if err != nil {
		return rw, err
	}
	return &RowWriter{rw: rw, limiter: o.limiter}, nil
}

// RowWriter waits for the limiter before each row.
type RowWriter struct {
	rw      sinks.RowWriter
	limiter *rate.Limiter
}

// WriteRow implements sinks.RowWriter.
func (o *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	return o.rw.WriteRow(ctx, r)
}

// Close implements sinks.RowWriter.
func (o *RowWriter) Close() error {
	return o.rw.Close()
}
