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
	"errors"
	"os"
	"reflect"
	"sort"
	"testing"

	"github.com/QubitProducts/tsload/sinks"
)

// memStream is a StreamReader over a slice.
type memStream struct {
	vals   []int64
	pos    int
	closed *int
}

func (m *memStream) Next() bool {
	if m.pos >= len(m.vals) {
		return false
	}
	m.pos++
	return true
}

func (m *memStream) Value() int64 { return m.vals[m.pos-1] }
func (m *memStream) Err() error   { return nil }
func (m *memStream) Close() error {
	*m.closed++
	return nil
}

// memSource is a GroupSourcer holding its streams in memory. Streams
// missing from ts or vs fail to open.
type memSource struct {
	groups map[string][]string
	ts     map[string][]int64
	vs     map[string][]int64

	opened int
	closed int
}

func (s *memSource) Groups() []string {
	var res []string
	for g := range s.groups {
		res = append(res, g)
	}
	sort.Strings(res)
	return res
}

func (s *memSource) Members(g string) []string { return s.groups[g] }

func (s *memSource) Locate(name string, role Role) Location {
	return Location{Path: name + role.Ext(), Role: role}
}

func (s *memSource) OpenStream(loc Location, width int) (StreamReader, error) {
	src := s.vs
	if loc.Role == Timestamps {
		src = s.ts
	}
	name := loc.Path[:len(loc.Path)-3]
	vals, ok := src[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	s.opened++
	return &memStream{vals: vals, closed: &s.closed}, nil
}

// memWriter records the rows it is given.
type memWriter struct {
	rows    []sinks.Row
	failAt  int
	closed  int
	written int
}

func (w *memWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	w.written++
	if w.failAt > 0 && w.written == w.failAt {
		return errors.New("write refused")
	}
	vs := make([]int64, len(r.Values))
	copy(vs, r.Values)
	w.rows = append(w.rows, sinks.Row{Time: r.Time, Values: vs})
	return nil
}

func (w *memWriter) Close() error {
	w.closed++
	return nil
}

func alignOpts(p sinks.Policy) AlignOptions {
	return AlignOptions{TimestampWidth: 4, ValueWidth: 4, Policy: p}
}

func TestAlignGroup(t *testing.T) {
	tests := []struct {
		name   string
		src    *memSource
		policy sinks.Policy
		expect []sinks.Row
		prog   Progress
		err    error
	}{
		{
			name: "two members",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {5, 15}},
				vs:     map[string][]int64{"v1": {7, 9}, "v2": {8, 10}},
			},
			policy: sinks.ZeroFill,
			expect: []sinks.Row{{Time: 5, Values: []int64{7, 8}}, {Time: 15, Values: []int64{9, 10}}},
			prog:   Progress{Emitted: 2},
		},
		{
			name: "non monotonic timestamp dropped",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1"}},
				ts:     map[string][]int64{"g1": {10, 20, 15, 30}},
				vs:     map[string][]int64{"v1": {1, 2, 3, 4}},
			},
			policy: sinks.ZeroFill,
			expect: []sinks.Row{{Time: 10, Values: []int64{1}}, {Time: 20, Values: []int64{2}}, {Time: 30, Values: []int64{4}}},
			prog:   Progress{Emitted: 3, Dropped: 1},
		},
		{
			name: "equal timestamp dropped",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1"}},
				ts:     map[string][]int64{"g1": {10, 10, 11}},
				vs:     map[string][]int64{"v1": {1, 2, 3}},
			},
			policy: sinks.ZeroFill,
			expect: []sinks.Row{{Time: 10, Values: []int64{1}}, {Time: 11, Values: []int64{3}}},
			prog:   Progress{Emitted: 2, Dropped: 1},
		},
		{
			name: "negative and zero timestamps are emitted",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1"}},
				ts:     map[string][]int64{"g1": {-5, 0}},
				vs:     map[string][]int64{"v1": {1, 2}},
			},
			policy: sinks.OmitRow,
			expect: []sinks.Row{{Time: -5, Values: []int64{1}}, {Time: 0, Values: []int64{2}}},
			prog:   Progress{Emitted: 2},
		},
		{
			name: "short stream zero filled",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {1, 2, 3, 4}},
				vs:     map[string][]int64{"v1": {10, 20, 30, 40}, "v2": {5}},
			},
			policy: sinks.ZeroFill,
			expect: []sinks.Row{
				{Time: 1, Values: []int64{10, 5}},
				{Time: 2, Values: []int64{20, 0}},
				{Time: 3, Values: []int64{30, 0}},
				{Time: 4, Values: []int64{40, 0}},
			},
			prog: Progress{Emitted: 4, ValueFailures: 3},
		},
		{
			name: "short stream rows omitted",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {1, 2, 3, 4}},
				vs:     map[string][]int64{"v1": {10, 20, 30, 40}, "v2": {5}},
			},
			policy: sinks.OmitRow,
			expect: []sinks.Row{{Time: 1, Values: []int64{10, 5}}},
			prog:   Progress{Emitted: 1, Omitted: 3, ValueFailures: 3},
		},
		{
			name: "short row omitted before monotonic check",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {5, 3}},
				vs:     map[string][]int64{"v1": {1, 2}, "v2": {7}},
			},
			policy: sinks.OmitRow,
			expect: []sinks.Row{{Time: 5, Values: []int64{1, 7}}},
			prog:   Progress{Emitted: 1, Omitted: 1, ValueFailures: 1},
		},
		{
			name: "zero filled row still dropped when not monotonic",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {5, 3}},
				vs:     map[string][]int64{"v1": {1, 2}, "v2": {7}},
			},
			policy: sinks.ZeroFill,
			expect: []sinks.Row{{Time: 5, Values: []int64{1, 7}}},
			prog:   Progress{Emitted: 1, Dropped: 1, ValueFailures: 1},
		},
		{
			name: "short stream values skipped",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {1, 2, 3}},
				vs:     map[string][]int64{"v1": {10, 20}, "v2": {5, 6, 7}},
			},
			policy: sinks.SkipValue,
			expect: []sinks.Row{
				{Time: 1, Values: []int64{10, 5}},
				{Time: 2, Values: []int64{20, 6}},
				{Time: 3, Values: []int64{0, 7}, Missing: []bool{true, false}},
			},
			prog: Progress{Emitted: 3, ValueFailures: 1},
		},
		{
			name: "short stream truncates",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {1, 2, 3, 4}},
				vs:     map[string][]int64{"v1": {10, 20, 30, 40}, "v2": {5, 6}},
			},
			policy: sinks.Truncate,
			expect: []sinks.Row{{Time: 1, Values: []int64{10, 5}}, {Time: 2, Values: []int64{20, 6}}},
			prog:   Progress{Emitted: 2, ValueFailures: 1},
		},
		{
			name: "missing value stream zero filled",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1", "v2"}},
				ts:     map[string][]int64{"g1": {1, 2}},
				vs:     map[string][]int64{"v2": {3, 4}},
			},
			policy: sinks.ZeroFill,
			expect: []sinks.Row{{Time: 1, Values: []int64{0, 3}}, {Time: 2, Values: []int64{0, 4}}},
			prog:   Progress{Emitted: 2, ValueFailures: 2},
		},
		{
			name: "longer value streams ignored",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1"}},
				ts:     map[string][]int64{"g1": {1}},
				vs:     map[string][]int64{"v1": {3, 4, 5}},
			},
			policy: sinks.OmitRow,
			expect: []sinks.Row{{Time: 1, Values: []int64{3}}},
			prog:   Progress{Emitted: 1},
		},
		{
			name: "missing timestamps",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1"}},
				vs:     map[string][]int64{"v1": {3, 4, 5}},
			},
			policy: sinks.ZeroFill,
			err:    ErrMissingTimestamps,
		},
		{
			name: "no policy",
			src: &memSource{
				groups: map[string][]string{"g1": {"v1"}},
			},
			err: ErrNoPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &memWriter{}
			p, err := AlignGroup(context.Background(), tt.src, "g1", w, alignOpts(tt.policy))
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected err = %v ; got = %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(w.rows, tt.expect) {
				t.Fatalf("rows, expected = %v ; got = %v", tt.expect, w.rows)
			}
			if p != tt.prog {
				t.Fatalf("progress, expected = %+v ; got = %+v", tt.prog, p)
			}
			if tt.src.opened != tt.src.closed {
				t.Fatalf("opened %d streams but closed %d", tt.src.opened, tt.src.closed)
			}
			if w.closed != 0 {
				t.Fatal("AlignGroup must not close the writer")
			}
		})
	}
}

func TestAlignGroup_NRows(t *testing.T) {
	const n = 1000
	src := &memSource{
		groups: map[string][]string{"g": {"a", "b", "c"}},
		ts:     map[string][]int64{"g": nil},
		vs:     map[string][]int64{},
	}
	for i := 0; i < n; i++ {
		src.ts["g"] = append(src.ts["g"], int64(i*10))
	}
	for k, m := range src.groups["g"] {
		var vals []int64
		for i := 0; i < n+k; i++ {
			vals = append(vals, int64(i*100+k))
		}
		src.vs[m] = vals
	}

	w := &memWriter{}
	p, err := AlignGroup(context.Background(), src, "g", w, alignOpts(sinks.OmitRow))
	if err != nil {
		t.Fatal(err)
	}
	if p.Emitted != n || len(w.rows) != n {
		t.Fatalf("expected %d rows, got %d (%v)", n, len(w.rows), p)
	}
	for i, r := range w.rows {
		for k, v := range r.Values {
			if v != int64(i*100+k) {
				t.Fatalf("row %d col %d, expected = %d ; got = %d", i, k, i*100+k, v)
			}
		}
	}
}

func TestAlignGroup_SinkError(t *testing.T) {
	src := &memSource{
		groups: map[string][]string{"g1": {"v1"}},
		ts:     map[string][]int64{"g1": {1, 2, 3}},
		vs:     map[string][]int64{"v1": {1, 2, 3}},
	}
	w := &memWriter{failAt: 2}
	p, err := AlignGroup(context.Background(), src, "g1", w, alignOpts(sinks.ZeroFill))
	if !errors.Is(err, ErrSink) {
		t.Fatalf("expected ErrSink, got %v", err)
	}
	if p.Emitted != 1 || w.written != 2 {
		t.Fatalf("expected the rest of the group skipped, emitted %d, written %d", p.Emitted, w.written)
	}
	if src.opened != src.closed {
		t.Fatalf("opened %d streams but closed %d", src.opened, src.closed)
	}
}

func TestAlignGroup_BadWidth(t *testing.T) {
	src := &memSource{groups: map[string][]string{"g1": {"v1"}}}
	_, err := AlignGroup(context.Background(), src, "g1", &memWriter{}, AlignOptions{TimestampWidth: 3, ValueWidth: 4, Policy: sinks.ZeroFill})
	if err == nil {
		t.Fatal("expected an error for a bad width")
	}
}

func TestProgress_String(t *testing.T) {
	p := Progress{Emitted: 3, Dropped: 1}
	expect := "emitted=3 dropped=1 omitted=0 value_failures=0"
	if p.String() != expect {
		t.Fatalf("expected = %q ; got = %q", expect, p.String())
	}
}
