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
	"testing"

	"github.com/spf13/pflag"
	yaml "gopkg.in/yaml.v2"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in     string
		expect Policy
		err    bool
	}{
		{"zero-fill", ZeroFill, false},
		{"omit-row", OmitRow, false},
		{"truncate", Truncate, false},
		{"Truncate", Truncate, false},
		{"skip-value", SkipValue, false},
		{"", PolicyUnset, true},
		{"fill", PolicyUnset, true},
	}

	for _, tt := range tests {
		p, err := ParsePolicy(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParsePolicy(%q), err = %v", tt.in, err)
			continue
		}
		if p != tt.expect {
			t.Errorf("ParsePolicy(%q), expected = %v ; got = %v", tt.in, tt.expect, p)
		}
		if err == nil && p.String() != tt.expect.String() {
			t.Errorf("String() round trip failed for %q", tt.in)
		}
	}
}

func TestPolicy_String(t *testing.T) {
	if s := PolicyUnset.String(); s != "" {
		t.Fatalf("expected an empty name, got %q", s)
	}
	if s := Policy(7).String(); s != "Policy(7)" {
		t.Fatalf("expected = Policy(7) ; got = %s", s)
	}
}

func TestPolicy_Flag(t *testing.T) {
	p := ZeroFill
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&p, "policy", "short stream policy")

	if err := fs.Parse([]string{"--policy", "omit-row"}); err != nil {
		t.Fatal(err)
	}
	if p != OmitRow {
		t.Fatalf("expected = omit-row ; got = %v", p)
	}
	if err := fs.Parse([]string{"--policy", "bogus"}); err == nil {
		t.Fatal("expected an error for a bad policy")
	}
}

func TestPolicy_YAML(t *testing.T) {
	var cfg struct {
		Policy Policy `yaml:"policy"`
	}
	if err := yaml.Unmarshal([]byte("policy: truncate\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Policy != Truncate {
		t.Fatalf("expected = truncate ; got = %v", cfg.Policy)
	}
	if err := yaml.Unmarshal([]byte("policy: sometimes\n"), &cfg); err == nil {
		t.Fatal("expected an error for a bad policy")
	}

	bs, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != "policy: truncate\n" {
		t.Fatalf("got %q", bs)
	}
}
