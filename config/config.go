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

// Package config holds the settings shared by every tsload run, as read
// from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/QubitProducts/tsload/filter"
	"github.com/QubitProducts/tsload/record"
	"github.com/QubitProducts/tsload/sinks"
	"github.com/QubitProducts/tsload/sinks/sqlite"
	"github.com/QubitProducts/tsload/sources/filesystem"
)

// XXX catches unknown settings
type XXX map[string]interface{}

// Config is the configuration for a run. Command line flags override
// anything set here.
type Config struct {
	TimestampWidth int `yaml:"timestamp_width"`
	ValueWidth     int `yaml:"value_width"`

	// Policy overrides the short stream policy of the sink. Unset means
	// use the sink's default.
	Policy sinks.Policy `yaml:"policy,omitempty"`

	// Strict aborts a run when a group's timestamp file is missing.
	Strict bool `yaml:"strict"`
	// Retries is the number of times starting a group is retried.
	Retries int `yaml:"retries"`

	// Reserved names in the timestamp directory are never reported as
	// missing from the merge map.
	Reserved []string `yaml:"reserved"`
	// NameRegexp limits which timestamp directory entries are checked
	// against the merge map.
	NameRegexp *filter.Regexp `yaml:"name_regexp,omitempty"`

	// Table is the sqlite table name template.
	Table string `yaml:"table"`

	// Rate limits rows written per second, 0 for no limit.
	Rate float64 `yaml:"rate,omitempty"`

	// StatsAddr serves prometheus metrics if set.
	StatsAddr string `yaml:"stats_addr,omitempty"`

	// Groups selects which groups are loaded.
	Groups filter.Config `yaml:"groups,omitempty"`

	XXX `yaml:",omitempty,inline"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TimestampWidth: record.DefaultWidth,
		ValueWidth:     record.DefaultWidth,
		Reserved:       append([]string{}, filesystem.DefaultReserved...),
		Table:          sqlite.DefaultTable,
	}
}

type defdConfig Config

// UnmarshalYAML unmarshals yaml to a Config with appropriate defaults
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	cc := defdConfig(Default())
	if err := unmarshal(&cc); err != nil {
		return err
	}
	if len(cc.XXX) != 0 {
		unknowns := []string{}
		for k := range cc.XXX {
			unknowns = append(unknowns, k)
		}
		return fmt.Errorf("Unknown config fields: %s", strings.Join(unknowns, ", "))
	}
	*c = Config(cc)
	return c.Validate()
}

// Validate checks the settings are usable.
func (c *Config) Validate() error {
	if !record.ValidWidth(c.TimestampWidth) {
		return errors.Wrapf(record.ErrBadWidth, "timestamp_width %d", c.TimestampWidth)
	}
	if !record.ValidWidth(c.ValueWidth) {
		return errors.Wrapf(record.ErrBadWidth, "value_width %d", c.ValueWidth)
	}
	if c.Rate < 0 {
		return errors.Errorf("rate must not be negative, got %v", c.Rate)
	}
	if c.Retries < 0 {
		return errors.Errorf("retries must not be negative, got %d", c.Retries)
	}
	return nil
}

// Load reads a configuration file. An empty file name gives the default
// configuration.
func Load(fn string) (Config, error) {
	if fn == "" {
		return Default(), nil
	}
	bs, err := os.ReadFile(fn)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	return Parse(bs)
}

// Parse reads a configuration from yaml.
func Parse(bs []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	return c, nil
}
