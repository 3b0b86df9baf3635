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

// Package awk implements a sink that runs each group's rows through an awk
// program. Every row is one input record, "<time> <v1> <v2> ...", and the
// awk variables group and members are set for each group.
package awk

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/QubitProducts/tsload/sinks"
)

// Sink runs a compiled awk program once per group.
type Sink struct {
	prog *parser.Program
	out  io.Writer
}

// New compiles src. Output goes to out, or os.Stdout if out is nil.
func New(src string, out io.Writer) (*Sink, error) {
	prog, err := parser.ParseProgram([]byte(src), &parser.ParserConfig{})
	if err != nil {
		return nil, errors.Wrap(err, "parsing awk program")
	}
	if out == nil {
		out = os.Stdout
	}
	return &Sink{prog: prog, out: out}, nil
}

// BeginGroup implements sinks.Sinker, starting the program on a pipe the
// group's rows are written to.
func (s *Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	pr, pw := io.Pipe()
	cfg := &interp.Config{
		Stdin:        pr,
		Output:       s.out,
		NoExec:       true,
		NoFileWrites: true,
		Vars: []string{
			"group", group,
			"members", strings.Join(members, " "),
		},
	}

	done := make(chan error, 1)
	go func() {
		status, err := interp.ExecProgram(s.prog, cfg)
		if err == nil && status != 0 {
			err = errors.Errorf("awk exited with status %d", status)
		}
		// unblock any writer if the program stopped reading early
		pr.CloseWithError(io.ErrClosedPipe)
		done <- err
	}()

	return &RowWriter{group: group, pw: pw, done: done}, nil
}

// RowWriter feeds rows to a running program.
type RowWriter struct {
	group string
	pw    *io.PipeWriter
	done  chan error
	buf   []byte
}

// WriteRow implements sinks.RowWriter.
func (w *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	b := strconv.AppendInt(w.buf[:0], r.Time, 10)
	for _, v := range r.Values {
		b = append(b, ' ')
		b = strconv.AppendInt(b, v, 10)
	}
	b = append(b, '\n')
	w.buf = b
	_, err := w.pw.Write(b)
	return err
}

// Close ends the input and waits for the program to finish.
func (w *RowWriter) Close() error {
	w.pw.Close()
	err := <-w.done
	if err != nil {
		glog.Errorf("awk program failed for %s, %v", w.group, err)
	}
	return err
}
