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

package sinks

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by sinks that are not available in this build.
var ErrUnsupported = errors.New("unimplemented")

// A Sinker accepts the aligned rows of one group at a time.
type Sinker interface {
	// BeginGroup should return a RowWriter that the rows of group can then be
	// written to. members names the value columns, in the order they appear
	// in every Row written. Close must be called on the returned writer
	// exactly once.
	BeginGroup(ctx context.Context, group string, members []string) (RowWriter, error)
}

// A RowWriter persists the rows of a single group. Rows arrive in strictly
// increasing timestamp order.
type RowWriter interface {
	WriteRow(ctx context.Context, row *Row) error
	Close() error
}

// Row is one timestamp paired positionally with one value per member of
// its group.
type Row struct {
	Time   int64
	Values []int64
	// Missing marks the values of streams that had run out, and is only
	// set under SkipValue.
	Missing []bool
}

// Has reports whether the i'th value was read from its stream.
func (r *Row) Has(i int) bool {
	return r.Missing == nil || !r.Missing[i]
}

// Policy says what to do with a row when a value stream has run out.
type Policy int

// The short stream policies. The zero value is not a usable policy.
const (
	PolicyUnset Policy = iota
	// ZeroFill substitutes 0 for missing values, keeping rows rectangular.
	ZeroFill
	// OmitRow drops any row lacking a real value for every member.
	OmitRow
	// Truncate ends the group at the first short value stream.
	Truncate
	// SkipValue fills missing values with 0, as ZeroFill does, and marks
	// them in Row.Missing so a sink can leave them out.
	SkipValue
)

var policyNames = map[Policy]string{
	ZeroFill:  "zero-fill",
	OmitRow:   "omit-row",
	Truncate:  "truncate",
	SkipValue: "skip-value",
}

func (p Policy) String() string {
	if p == PolicyUnset {
		return ""
	}
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the String form of a Policy.
func ParsePolicy(s string) (Policy, error) {
	for p, n := range policyNames {
		if strings.EqualFold(n, s) {
			return p, nil
		}
	}
	return PolicyUnset, errors.Errorf("unknown short stream policy %q", s)
}

// Set implements pflag.Value.
func (p *Policy) Set(s string) error {
	np, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = np
	return nil
}

// Type implements pflag.Value.
func (p *Policy) Type() string {
	return "policy"
}

// UnmarshalYAML reads a policy name.
func (p *Policy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return p.Set(s)
}

// MarshalYAML writes a policy name.
func (p Policy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}
