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

// Package filter selects which groups of a merge map are loaded, using
// keep and drop rules matched against a group's labels.
//
// The labels of a group are:
//
//	group    the group key
//	members  the members, sorted and joined with ","
//	size     the number of members
package filter

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config is a list of rules, all of which must pass for a group to be kept.
type Config []*Rule

// Labels builds the labels rules are matched against.
func Labels(group string, members []string) map[string]string {
	return map[string]string{
		"group":   group,
		"members": strings.Join(members, ","),
		"size":    strconv.Itoa(len(members)),
	}
}

// Keep reports whether group passes every rule.
func (c Config) Keep(group string, members []string) bool {
	if len(c) == 0 {
		return true
	}
	ls := Labels(group, members)
	for _, r := range c {
		if !r.Match(ls) {
			return false
		}
	}
	return true
}

// Select returns the groups that pass every rule, preserving order.
func (c Config) Select(groups []string, members func(string) []string) []string {
	var res []string
	for _, g := range groups {
		if c.Keep(g, members(g)) {
			res = append(res, g)
		}
	}
	return res
}

type ruleFunc func(*Rule, map[string]string) bool

// XXX catches unknown Rule settings
type XXX map[string]interface{}

// Rule describes a single keep or drop test.
type Rule struct {
	Action    ruleFunc `yaml:"action"`
	SrcLabels []string `yaml:"source_labels"`
	Regex     *Regexp  `yaml:"regex"`
	Separator string   `yaml:"separator"`
	XXX       `yaml:",omitempty,inline"`
}

func defaultRule() Rule {
	return Rule{
		Action:    actions["keep"],
		Regex:     &Regexp{regexp.MustCompile("(.+)")},
		SrcLabels: []string{"group"},
		Separator: ";",
	}
}

type defdRule Rule

// UnmarshalYAML unmarshals yaml to a Rule with appropriate defaults
func (r *Rule) UnmarshalYAML(unmarshal func(interface{}) error) error {
	rr := defdRule(defaultRule())
	if err := unmarshal(&rr); err != nil {
		return err
	}
	if len(rr.XXX) != 0 {
		unknowns := []string{}
		for k := range rr.XXX {
			unknowns = append(unknowns, k)
		}
		return fmt.Errorf("Unknown rule fields: %s", strings.Join(unknowns, ", "))
	}
	*r = Rule(rr)
	return nil
}

func (r *Rule) buildKey(ls map[string]string) string {
	vs := make([]string, 0, len(r.SrcLabels))
	for _, k := range r.SrcLabels {
		if v, ok := ls[k]; ok {
			vs = append(vs, v)
		}
	}
	return strings.Join(vs, r.Separator)
}

// Match applies the rule to a set of labels.
func (r *Rule) Match(ls map[string]string) bool {
	return r.Action(r, ls)
}

var actions = map[string]ruleFunc{
	"keep": (*Rule).applyKeep,
	"drop": (*Rule).applyDrop,
}

func (r *Rule) applyDrop(ls map[string]string) bool {
	return !r.Regex.MatchString(r.buildKey(ls))
}

func (r *Rule) applyKeep(ls map[string]string) bool {
	return r.Regex.MatchString(r.buildKey(ls))
}

func getFuncName(i interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(i).Pointer()).Name()
}

func (r ruleFunc) MarshalYAML() (interface{}, error) {
	for a, f := range actions {
		if getFuncName(f) == getFuncName(r) {
			return a, nil
		}
	}

	return nil, errors.Errorf("no name known for filter function %s", getFuncName(r))
}

func (r *ruleFunc) UnmarshalYAML(unmarshal func(interface{}) error) error {
	str := ""
	if err := unmarshal(&str); err != nil {
		return err
	}
	return r.set(str)
}

func (r *ruleFunc) set(name string) error {
	rf, ok := actions[name]
	if !ok {
		return errors.Errorf("unknown filter action %q", name)
	}
	*r = rf
	return nil
}

// Regexp provides a means of directly unmarshaling a regexp. The
// expression is anchored at both ends.
type Regexp struct {
	*regexp.Regexp
}

// MarshalYAML implements the yaml Marshaler interface for Regexp
func (r *Regexp) MarshalYAML() (interface{}, error) {
	return r.original(), nil
}

func (r *Regexp) original() string {
	s := r.Regexp.String()
	if strings.HasPrefix(s, "^(?:") && strings.HasSuffix(s, ")$") {
		return s[4 : len(s)-2]
	}
	return s
}

// UnmarshalYAML implements the yaml Unmarshaler interface for Regexp
func (r *Regexp) UnmarshalYAML(unmarshal func(interface{}) error) error {
	str := ""
	if err := unmarshal(&str); err != nil {
		return err
	}
	return r.compile(str)
}

func (r *Regexp) compile(str string) error {
	re, err := regexp.Compile("^(?:" + str + ")$")
	if err != nil {
		return err
	}
	*r = Regexp{re}
	return nil
}
