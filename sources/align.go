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
	"bytes"
	"context"

	"github.com/go-logfmt/logfmt"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/QubitProducts/tsload/record"
	"github.com/QubitProducts/tsload/sinks"
)

var (
	// ErrMissingTimestamps is returned when a group's timestamp stream
	// can't be opened.
	ErrMissingTimestamps = errors.New("could not find timestamp file")
	// ErrSink wraps errors returned by a sink while writing rows.
	ErrSink = errors.New("sink write failed")
	// ErrNoPolicy is returned if a group is aligned without picking a
	// short stream policy.
	ErrNoPolicy = errors.New("no short stream policy set")
)

// AlignOptions control how a group's streams are read.
type AlignOptions struct {
	TimestampWidth int
	ValueWidth     int
	Policy         sinks.Policy
}

func (o AlignOptions) validate() error {
	if !record.ValidWidth(o.TimestampWidth) {
		return errors.Wrapf(record.ErrBadWidth, "timestamp width %d", o.TimestampWidth)
	}
	if !record.ValidWidth(o.ValueWidth) {
		return errors.Wrapf(record.ErrBadWidth, "value width %d", o.ValueWidth)
	}
	switch o.Policy {
	case sinks.ZeroFill, sinks.OmitRow, sinks.Truncate, sinks.SkipValue:
		return nil
	}
	return ErrNoPolicy
}

// Progress counts what happened to the rows of a group.
type Progress struct {
	Emitted       int64 // rows written to the sink
	Dropped       int64 // rows whose timestamp was not after the last emitted one
	Omitted       int64 // rows skipped for missing values under OmitRow
	ValueFailures int64 // individual value reads that found the stream exhausted
}

// Add accumulates p2 into p.
func (p *Progress) Add(p2 Progress) {
	p.Emitted += p2.Emitted
	p.Dropped += p2.Dropped
	p.Omitted += p2.Omitted
	p.ValueFailures += p2.ValueFailures
}

func (p Progress) String() string {
	buf := &bytes.Buffer{}
	enc := logfmt.NewEncoder(buf)
	enc.EncodeKeyvals(
		"emitted", p.Emitted,
		"dropped", p.Dropped,
		"omitted", p.Omitted,
		"value_failures", p.ValueFailures,
	)
	return buf.String()
}

// AlignGroup reads the timestamp stream of group, and the value stream of
// every member, in lockstep and writes the resulting rows to w. Rows are
// only written with strictly increasing timestamps.
//
// A missing timestamp stream ends the group with ErrMissingTimestamps. A
// missing or short value stream is handled according to opts.Policy. The
// policy is applied before the timestamp order is checked, so under OmitRow
// a row that is both short and out of order counts as Omitted, not Dropped,
// and under Truncate it ends the group. If w fails to write a row the
// remaining rows are skipped and an error wrapping ErrSink is returned.
// AlignGroup does not close w.
func AlignGroup(ctx context.Context, src GroupSourcer, group string, w sinks.RowWriter, opts AlignOptions) (Progress, error) {
	var p Progress
	if err := opts.validate(); err != nil {
		return p, err
	}

	tsloc := src.Locate(group, Timestamps)
	ts, err := src.OpenStream(tsloc, opts.TimestampWidth)
	if err != nil {
		return p, errors.Wrapf(ErrMissingTimestamps, "%s (%v)", tsloc, err)
	}
	defer ts.Close()

	members := src.Members(group)
	vs := make([]StreamReader, len(members))
	for i, m := range members {
		vloc := src.Locate(m, Values)
		r, err := src.OpenStream(vloc, opts.ValueWidth)
		if err != nil {
			glog.Errorf("Missing value stream: %s (%v)", vloc, err)
			continue
		}
		vs[i] = r
	}
	defer func() {
		for _, r := range vs {
			if r != nil {
				r.Close()
			}
		}
	}()

	// exhausted value streams stay exhausted, even if a reader would
	// return more data after an error.
	done := make([]bool, len(vs))
	for i := range vs {
		done[i] = vs[i] == nil
	}

	var last int64
	hasLast := false

	for ts.Next() {
		if err := ctx.Err(); err != nil {
			return p, err
		}

		row := &sinks.Row{
			Time:   ts.Value(),
			Values: make([]int64, len(vs)),
		}

		short := false
		for i, r := range vs {
			if !done[i] && r.Next() {
				row.Values[i] = r.Value()
				continue
			}
			if !done[i] {
				done[i] = true
				if err := r.Err(); err != nil {
					glog.Errorf("reading %s, %v", src.Locate(members[i], Values), err)
				}
			}
			p.ValueFailures++
			short = true
			if opts.Policy == sinks.SkipValue {
				if row.Missing == nil {
					row.Missing = make([]bool, len(vs))
				}
				row.Missing[i] = true
			}
		}

		if short {
			switch opts.Policy {
			case sinks.Truncate:
				if glog.V(1) {
					glog.Infof("values were not the same length as timestamps in %s", group)
				}
				return p, nil
			case sinks.OmitRow:
				p.Omitted++
				continue
			}
		}

		if hasLast && row.Time <= last {
			p.Dropped++
			continue
		}

		if err := w.WriteRow(ctx, row); err != nil {
			return p, errors.Wrapf(ErrSink, "group %s at time %d, %v", group, row.Time, err)
		}
		p.Emitted++
		last = row.Time
		hasLast = true
	}

	if err := ts.Err(); err != nil {
		glog.Errorf("reading %s, %v", tsloc, err)
	}

	return p, nil
}
