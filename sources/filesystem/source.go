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

package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/QubitProducts/tsload/mergemap"
	"github.com/QubitProducts/tsload/sources"
)

// DefaultReserved are timestamp directory entries that are expected to be
// absent from a merge map.
var DefaultReserved = []string{"fmerge"}

// Source is a sources.GroupSourcer over a directory of timestamp streams
// (<TSDir>/<group>.ts) and a directory of value streams
// (<VSDir>/<member>.vs).
type Source struct {
	TSDir      string
	VSDir      string
	NameRegexp *regexp.Regexp

	merge    *mergemap.Map
	reserved map[string]struct{}
}

// Opt configures a Source.
type Opt func(*Source)

// WithReserved sets the names the consistency check will not warn about.
func WithReserved(names ...string) Opt {
	return func(s *Source) {
		s.reserved = map[string]struct{}{}
		for _, n := range names {
			s.reserved[n] = struct{}{}
		}
	}
}

// WithNameRegexp limits the consistency check to files matching re.
func WithNameRegexp(re *regexp.Regexp) Opt {
	return func(s *Source) {
		s.NameRegexp = re
	}
}

// New creates a grouped source. Group keys and members come from merge.
func New(tsDir, vsDir string, merge *mergemap.Map, opts ...Opt) *Source {
	if merge == nil {
		merge = mergemap.FromNames(nil)
	}
	s := &Source{
		TSDir: tsDir,
		VSDir: vsDir,
		merge: merge,
	}
	WithReserved(DefaultReserved...)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewSingle creates a source for directories holding exactly one value
// stream per timestamp stream, each sharing the timestamp stream's name.
// Every stem found in tsDir becomes a group of one.
func NewSingle(tsDir, vsDir string, opts ...Opt) (*Source, error) {
	s := New(tsDir, vsDir, nil, opts...)
	stems, err := s.stems()
	if err != nil {
		return s, err
	}
	var names []string
	for _, st := range stems {
		if _, ok := s.reserved[st]; ok {
			continue
		}
		names = append(names, st)
	}
	s.merge = mergemap.FromNames(names)
	return s, nil
}

func (s *Source) String() string {
	str := fmt.Sprintf("ts=%s vs=%s", s.TSDir, s.VSDir)
	if s.NameRegexp != nil {
		str += fmt.Sprintf("(%s)", s.NameRegexp)
	}
	return str
}

// Groups implements sources.GroupSourcer.
func (s *Source) Groups() []string {
	return s.merge.Groups()
}

// Members implements sources.GroupSourcer.
func (s *Source) Members(group string) []string {
	return s.merge.Members(group)
}

// Locate implements sources.GroupSourcer.
func (s *Source) Locate(name string, role sources.Role) sources.Location {
	dir := s.VSDir
	if role == sources.Timestamps {
		dir = s.TSDir
	}
	return sources.Location{
		Path: filepath.Join(dir, name+role.Ext()),
		Role: role,
	}
}

// stem returns the part of a file name before the first '.'.
func stem(name string) string {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// stems lists the distinct stems of the regular files in the timestamp
// directory, sorted. Dot files are ignored.
func (s *Source) stems() ([]string, error) {
	ents, err := os.ReadDir(s.TSDir)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open directory %s", s.TSDir)
	}

	seen := map[string]struct{}{}
	var res []string
	for _, e := range ents {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if s.NameRegexp != nil && !s.NameRegexp.MatchString(e.Name()) {
			continue
		}
		st := stem(e.Name())
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		res = append(res, st)
	}
	sort.Strings(res)
	return res, nil
}

// Check scans the timestamp directory for entries that the merge map does
// not account for. Each one is logged as a warning and returned. Check never
// changes the merge map; an error means the directory couldn't be read.
func (s *Source) Check() ([]string, error) {
	stems, err := s.stems()
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, st := range stems {
		if _, ok := s.reserved[st]; ok {
			continue
		}
		if s.merge.Has(st) {
			continue
		}
		glog.Warningf("could not find ts entry for %s", st)
		missing = append(missing, st)
	}
	return missing, nil
}
