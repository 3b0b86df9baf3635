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

// Package csv implements a sink writing each group to a CSV file, along
// with a DataSeries ExtentType describing its columns.
package csv

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/QubitProducts/tsload/sinks"
)

const (
	// DefaultPolicy keeps every row at the full width of the group.
	DefaultPolicy = sinks.ZeroFill

	extentNamespace = "tss.mrcaps.com"
	extentVersion   = "1.0"
)

// ExtentType is a DataSeries extent type definition.
type ExtentType struct {
	XMLName   xml.Name `xml:"ExtentType"`
	Name      string   `xml:"name,attr"`
	Namespace string   `xml:"namespace,attr"`
	Version   string   `xml:"version,attr"`
	Fields    []Field  `xml:"field"`
}

// Field is a single column of an ExtentType.
type Field struct {
	Type         string `xml:"type,attr"`
	Name         string `xml:"name,attr"`
	PackRelative string `xml:"pack_relative,attr,omitempty"`
}

// FieldType is the DataSeries type able to hold records of width bytes.
func FieldType(width int) string {
	if width > 4 {
		return "int64"
	}
	return "int32"
}

// NewExtentType describes the n'th output file, with a timestamp column of
// tsType followed by cols value columns of vsType named "1" to cols.
func NewExtentType(n, cols int, tsType, vsType string) *ExtentType {
	et := &ExtentType{
		Name:      strconv.Itoa(n),
		Namespace: extentNamespace,
		Version:   extentVersion,
		Fields:    []Field{{Type: tsType, Name: "ts", PackRelative: "ts"}},
	}
	for i := 1; i <= cols; i++ {
		et.Fields = append(et.Fields, Field{Type: vsType, Name: strconv.Itoa(i)})
	}
	return et
}

// Sink is a sinks.Sinker writing <Prefix>-<n>.csv and <Prefix>-<n>.xml for
// the n'th group begun.
type Sink struct {
	Prefix string

	tsType string
	vsType string
	n      int
}

// Opt configures a Sink.
type Opt func(*Sink)

// WithWidths sets the schema column types from the record widths of the
// timestamp and value streams.
func WithWidths(ts, vs int) Opt {
	return func(s *Sink) {
		s.tsType = FieldType(ts)
		s.vsType = FieldType(vs)
	}
}

// New creates a sink writing files named after prefix. Columns are
// described as int32 unless WithWidths says otherwise.
func New(prefix string, opts ...Opt) *Sink {
	s := &Sink{
		Prefix: prefix,
		tsType: FieldType(4),
		vsType: FieldType(4),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Files returns the data and schema file names for the n'th group.
func (s *Sink) Files(n int) (string, string) {
	base := fmt.Sprintf("%s-%d", s.Prefix, n)
	return base + ".csv", base + ".xml"
}

func writeSchema(fn string, et *ExtentType) error {
	bs, err := xml.MarshalIndent(et, "", "\t")
	if err != nil {
		return err
	}
	bs = append(bs, '\n')
	return os.WriteFile(fn, bs, 0644)
}

// BeginGroup implements sinks.Sinker. Existing files are replaced.
func (s *Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	n := s.n + 1
	data, schema := s.Files(n)

	if err := writeSchema(schema, NewExtentType(n, len(members), s.tsType, s.vsType)); err != nil {
		return nil, errors.Wrapf(err, "writing schema for %s", group)
	}

	f, err := os.Create(data)
	if err != nil {
		return nil, errors.Wrapf(err, "creating data file for %s", group)
	}
	s.n = n

	if glog.V(1) {
		glog.Infof("writing %s to %s", group, data)
	}

	bw := bufio.NewWriter(f)
	return &RowWriter{
		f:   f,
		bw:  bw,
		w:   csv.NewWriter(bw),
		rec: make([]string, len(members)+1),
	}, nil
}

// RowWriter writes the rows of one group to its CSV file.
type RowWriter struct {
	f   *os.File
	bw  *bufio.Writer
	w   *csv.Writer
	rec []string
}

// WriteRow implements sinks.RowWriter.
func (w *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	if len(r.Values) != len(w.rec)-1 {
		return errors.Errorf("row has %d values, %s has %d columns", len(r.Values), w.f.Name(), len(w.rec)-1)
	}
	w.rec[0] = strconv.FormatInt(r.Time, 10)
	for i, v := range r.Values {
		if r.Has(i) {
			w.rec[i+1] = strconv.FormatInt(v, 10)
		} else {
			w.rec[i+1] = ""
		}
	}
	return w.w.Write(w.rec)
}

// Close flushes and closes the data file.
func (w *RowWriter) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if err == nil {
		err = w.bw.Flush()
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "closing %s", w.f.Name())
}
