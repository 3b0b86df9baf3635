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

package mergemap

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestMemberName(t *testing.T) {
	tests := []struct {
		ref, expect string
	}{
		{"cpu", "cpu"},
		{"cpu.vs", "cpu"},
		{"/data/vs/cpu.vs", "cpu"},
		{"../vs/cpu.vs.bak", "cpu"},
		{"dir.d/cpu", "cpu"},
		{"rel/dir/", ""},
	}
	for _, tt := range tests {
		if got := MemberName(tt.ref); got != tt.expect {
			t.Errorf("MemberName(%q), expected = %q ; got = %q", tt.ref, tt.expect, got)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		expect map[string][]string
	}{
		{
			name:   "empty",
			in:     "",
			expect: map[string][]string{},
		},
		{
			name: "paths and extensions stripped",
			in:   "g1 /data/vs/v1.vs\ng1 v2.vs\ng2\t../x/v3",
			expect: map[string][]string{
				"g1": {"v1", "v2"},
				"g2": {"v3"},
			},
		},
		{
			name: "odd token count drops last key",
			in:   "g1 v1 g2",
			expect: map[string][]string{
				"g1": {"v1"},
			},
		},
		{
			name: "duplicate members collapse",
			in:   "g1 v1.vs g1 /a/v1.vs",
			expect: map[string][]string{
				"g1": {"v1"},
			},
		},
		{
			name: "member stays with its first group",
			in:   "g1 v1 g2 v1 g2 v2",
			expect: map[string][]string{
				"g1": {"v1"},
				"g2": {"v2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Parse(strings.NewReader(tt.in))
			got := map[string][]string{}
			for _, g := range m.Groups() {
				got[g] = m.Members(g)
			}
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected = %v ; got = %v", tt.expect, got)
			}
		})
	}
}

func TestParse_MemberBelongsToOneGroup(t *testing.T) {
	m := Parse(strings.NewReader("b x/a.vs a a.vs a b.vs c /q/b.vs c c.vs"))

	seen := map[string]string{}
	for _, g := range m.Groups() {
		for _, mem := range m.Members(g) {
			if strings.ContainsAny(mem, "/.") {
				t.Errorf("member %q retains a path or extension", mem)
			}
			if prev, ok := seen[mem]; ok {
				t.Errorf("member %q in both %q and %q", mem, prev, g)
			}
			seen[mem] = g
			if og, _ := m.GroupOf(mem); og != g {
				t.Errorf("GroupOf(%q), expected = %q ; got = %q", mem, g, og)
			}
		}
	}
}

func TestParse_GroupsSorted(t *testing.T) {
	m := Parse(strings.NewReader("z v1 a v2 m v3"))
	expect := []string{"a", "m", "z"}
	if got := m.Groups(); !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected = %v ; got = %v", expect, got)
	}
	if !m.Has("m") || !m.Has("v3") || m.Has("v4") {
		t.Fatalf("Has gave wrong answers")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "fmerge.txt")
	if err := os.WriteFile(fn, []byte("g1 v1\ng1 v2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(fn)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 group, got %d", m.Len())
	}
	if got := m.Members("g1"); !reflect.DeepEqual(got, []string{"v1", "v2"}) {
		t.Fatalf("wrong members %v", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nothere"))
	if err == nil {
		t.Fatal("expected an error for a missing merge map")
	}
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if m == nil || m.Len() != 0 || len(m.Groups()) != 0 {
		t.Fatalf("expected an empty map, got %#v", m)
	}
}

func TestFromNames(t *testing.T) {
	m := FromNames([]string{"b", "a"})
	if got := m.Groups(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("wrong groups %v", got)
	}
	if got := m.Members("b"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("wrong members %v", got)
	}
}
