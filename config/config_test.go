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

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/QubitProducts/tsload/sinks"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		check  func(Config) bool
		errStr string
	}{
		{
			name:  "empty gives defaults",
			in:    ``,
			check: func(c Config) bool { return reflect.DeepEqual(c, Default()) },
		},
		{
			name: "widths",
			in:   "timestamp_width: 8\nvalue_width: 2\n",
			check: func(c Config) bool {
				return c.TimestampWidth == 8 && c.ValueWidth == 2 && c.Table == "t{{.Group}}"
			},
		},
		{
			name:  "policy",
			in:    "policy: omit-row\nstrict: true\nretries: 3\nrate: 1000\n",
			check: func(c Config) bool { return c.Policy == sinks.OmitRow && c.Strict && c.Retries == 3 && c.Rate == 1000 },
		},
		{
			name: "reserved and regexp",
			in:   "reserved: [fmerge, index]\nname_regexp: '.*\\.ts'\n",
			check: func(c Config) bool {
				return len(c.Reserved) == 2 && c.NameRegexp.MatchString("a.ts") && !c.NameRegexp.MatchString("a.ts.old")
			},
		},
		{
			name: "group rules",
			in:   "groups:\n- action: drop\n  regex: 'g2'\n",
			check: func(c Config) bool {
				return len(c.Groups) == 1 && c.Groups.Keep("g1", nil) && !c.Groups.Keep("g2", nil)
			},
		},
		{name: "bad width", in: "timestamp_width: 3\n", errStr: "timestamp_width 3"},
		{name: "bad policy", in: "policy: sometimes\n", errStr: "unknown short stream policy"},
		{name: "negative rate", in: "rate: -5\n", errStr: "rate must not be negative"},
		{name: "negative retries", in: "retries: -1\n", errStr: "retries"},
		{name: "unknown field", in: "tables: foo\n", errStr: "Unknown config fields: tables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.in))
			if tt.errStr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errStr) {
					t.Fatalf("expected error containing %q, got %v", tt.errStr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tt.check(c) {
				t.Fatalf("unexpected config %+v", c)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, Default()) {
		t.Fatalf("expected defaults, got %+v", c)
	}

	fn := filepath.Join(t.TempDir(), "tsload.yaml")
	if err := os.WriteFile(fn, []byte("value_width: 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = Load(fn)
	if err != nil {
		t.Fatal(err)
	}
	if c.ValueWidth != 8 || c.TimestampWidth != 4 {
		t.Fatalf("unexpected config %+v", c)
	}

	if _, err := Load(fn + ".missing"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
