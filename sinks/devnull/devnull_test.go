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

package devnull

import (
	"context"
	"testing"

	"github.com/QubitProducts/tsload/sinks"
)

func TestDevNull(t *testing.T) {
	dn := &DevNull{}
	ctx := context.Background()
	for _, g := range []string{"a", "b"} {
		w, err := dn.BeginGroup(ctx, g, []string{"v"})
		if err != nil {
			t.Fatal(err)
		}
		w.WriteRow(ctx, &sinks.Row{Time: 1, Values: []int64{1}})
		w.WriteRow(ctx, &sinks.Row{Time: 2, Values: []int64{2}})
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if groups, rows := dn.Counts(); groups != 2 || rows != 4 {
		t.Fatalf("expected 2 groups and 4 rows, got %d and %d", groups, rows)
	}
}
