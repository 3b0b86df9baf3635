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

// Package mergemap loads the text mapping that says which value streams
// share a timestamp stream.
//
// The file is a flat run of whitespace separated tokens, alternating
// between a group key (the timestamp stream) and a value stream reference:
//
//	g1 /data/vs/cpu.vs
//	g1 /data/vs/mem.vs
//	g2 disk.vs
//
// Value references are reduced to their member name: any directory prefix
// is removed, as is everything from the first '.' onwards.
package mergemap

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ErrMissingInput is returned by Load when the merge map file can't be
// read.
var ErrMissingInput = errors.New("merge map input missing")

// Map is a mapping from group key to the set of member names in that
// group. A Map is not modified after it has been built.
type Map struct {
	groups  map[string]map[string]struct{}
	owner   map[string]string
	ordered []string
}

func newMap() *Map {
	return &Map{
		groups: map[string]map[string]struct{}{},
		owner:  map[string]string{},
	}
}

// Load reads a merge map from the file at fn. If the file can't be opened
// an empty map is returned along with an error wrapping ErrMissingInput;
// callers should treat that as a run with zero groups.
func Load(fn string) (*Map, error) {
	f, err := os.Open(fn)
	if err != nil {
		return newMap(), errors.Wrapf(ErrMissingInput, "couldn't find map input file %s (%v)", fn, err)
	}
	defer f.Close()

	return Parse(f), nil
}

// Parse builds a Map from the token stream in r. A final group key with no
// following value reference is dropped.
func Parse(r io.Reader) *Map {
	m := newMap()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var key string
	for i := 0; sc.Scan(); i++ {
		if i%2 == 0 {
			key = sc.Text()
			continue
		}
		m.add(key, MemberName(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		glog.Errorf("stopped reading merge map early, %v", err)
	}

	m.finish()
	return m
}

// FromNames builds a Map in which every name is a group containing only
// itself. This is how a plain directory of one value stream per timestamp
// stream is represented.
func FromNames(names []string) *Map {
	m := newMap()
	for _, n := range names {
		m.add(n, n)
	}
	m.finish()
	return m
}

func (m *Map) add(key, member string) {
	if g, ok := m.owner[member]; ok {
		if g != key {
			glog.Warningf("member %s already belongs to group %s, ignoring it for group %s", member, g, key)
		}
		return
	}
	set, ok := m.groups[key]
	if !ok {
		set = map[string]struct{}{}
		m.groups[key] = set
	}
	set[member] = struct{}{}
	m.owner[member] = key
}

func (m *Map) finish() {
	m.ordered = make([]string, 0, len(m.groups))
	for k := range m.groups {
		m.ordered = append(m.ordered, k)
	}
	sort.Strings(m.ordered)
}

// MemberName normalises a value stream reference to a member name.
func MemberName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.Index(ref, "."); i >= 0 {
		ref = ref[:i]
	}
	return ref
}

// Len returns the number of groups.
func (m *Map) Len() int {
	return len(m.groups)
}

// Groups returns the group keys in iteration order.
func (m *Map) Groups() []string {
	res := make([]string, len(m.ordered))
	copy(res, m.ordered)
	return res
}

// Members returns the members of group key, in sorted order. Unknown keys
// give an empty list.
func (m *Map) Members(key string) []string {
	set := m.groups[key]
	res := make([]string, 0, len(set))
	for n := range set {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// GroupOf returns the group that member belongs to.
func (m *Map) GroupOf(member string) (string, bool) {
	g, ok := m.owner[member]
	return g, ok
}

// Has reports whether name is known to the map, either as a group key or
// as a member.
func (m *Map) Has(name string) bool {
	if _, ok := m.groups[name]; ok {
		return true
	}
	_, ok := m.owner[name]
	return ok
}
