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

package stdout

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/QubitProducts/tsload/sinks"
)

// Stdout is a sink.Sinker that writes rows as text, one per line:
//
//	<group> <time> <v1> <v2> ...
type Stdout struct {
	// Out defaults to os.Stdout
	Out io.Writer
	// Header prints the member names when a group begins.
	Header bool
	// Template formats each row if set, see NewTemplate.
	Template *template.Template
}

// RowData is passed to a row template.
type RowData struct {
	Group   string
	Members []string
	Time    int64
	Values  []int64
}

// NewTemplate parses a row template. Sprig functions are available. A
// newline is written after each row.
func NewTemplate(str string) (*template.Template, error) {
	t, err := template.New("row").Funcs(sprig.TxtFuncMap()).Parse(str)
	return t, errors.Wrap(err, "parsing row template")
}

// BeginGroup implements sink.Sinker
func (o *Stdout) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	w := &RowWriter{group: group, members: members, tmpl: o.Template, w: bufio.NewWriter(out)}
	if o.Header {
		w.w.WriteString("# " + group + " time " + strings.Join(members, " ") + "\n")
	}
	return w, nil
}

// RowWriter implements a row writer for the Stdout Sink
type RowWriter struct {
	group   string
	members []string
	tmpl    *template.Template
	w       *bufio.Writer
	buf     []byte
}

// WriteRow writes a row to the stdout sink.
func (o *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	if o.tmpl != nil {
		err := o.tmpl.Execute(o.w, RowData{Group: o.group, Members: o.members, Time: r.Time, Values: r.Values})
		if err != nil {
			return err
		}
		return o.w.WriteByte('\n')
	}
	b := append(o.buf[:0], o.group...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, r.Time, 10)
	for _, v := range r.Values {
		b = append(b, ' ')
		b = strconv.AppendInt(b, v, 10)
	}
	b = append(b, '\n')
	o.buf = b
	_, err := o.w.Write(b)
	return err
}

// Close flushes the group to the output
func (o *RowWriter) Close() error {
	return o.w.Flush()
}
