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

import "fmt"

// Role distinguishes timestamp streams from value streams.
type Role int

// Stream roles.
const (
	Timestamps Role = iota
	Values
)

// Ext returns the file extension used for streams of this role.
func (r Role) Ext() string {
	if r == Timestamps {
		return ".ts"
	}
	return ".vs"
}

func (r Role) String() string {
	switch r {
	case Timestamps:
		return "timestamps"
	case Values:
		return "values"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Location is a resolved stream.
type Location struct {
	Path string
	Role Role
}

func (l Location) String() string {
	return l.Path
}

// GroupSourcer provides groups of streams that must be read in lockstep:
// one timestamp stream per group, and one value stream per member.
type GroupSourcer interface {
	// Groups lists the group keys in iteration order.
	Groups() []string
	// Members lists the members of a group, in the column order rows are
	// produced in.
	Members(group string) []string
	// Locate resolves a group (for Timestamps) or member (for Values) to
	// a stream location.
	Locate(name string, role Role) Location
	// OpenStream opens the stream at loc for reading records of width
	// bytes.
	OpenStream(loc Location, width int) (StreamReader, error)
}

// StreamReader reads records from one stream.
type StreamReader interface {
	Next() bool
	Value() int64
	Err() error
	Close() error
}
