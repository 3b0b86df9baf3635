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

// Package sqlite implements a sink that writes each group to its own table
// in a SQLite database.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/QubitProducts/tsload/sinks"
)

const (
	// DefaultTable is the table name template used when none is given.
	DefaultTable = "t{{.Group}}"
	// DefaultPolicy keeps every table rectangular.
	DefaultPolicy = sinks.ZeroFill
)

var pragmas = []string{
	"PRAGMA synchronous = OFF",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA temp_store = MEMORY",
}

// TableData is passed to the table name template.
type TableData struct {
	Group   string
	Index   int // 1-based count of groups begun
	Members []string
}

// Sink is a sinks.Sinker writing to a SQLite database.
type Sink struct {
	db    *sql.DB
	table *template.Template
	n     int
}

// Opt configures a Sink.
type Opt func(*Sink) error

// WithTableTemplate sets the template used to name each group's table.
// Sprig functions are available.
func WithTableTemplate(str string) Opt {
	return func(s *Sink) error {
		t, err := template.New("table").Funcs(sprig.TxtFuncMap()).Parse(str)
		if err != nil {
			return errors.Wrap(err, "parsing table template")
		}
		s.table = t
		return nil
	}
}

// Open opens, or creates, the database at path.
func Open(path string, opts ...Opt) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	s := &Sink{db: db}
	for _, o := range append([]Opt{WithTableTemplate(DefaultTable)}, opts...) {
		if err := o(s); err != nil {
			db.Close()
			return nil, err
		}
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "%s on %s", p, path)
		}
	}
	return s, nil
}

// DB gives access to the underlying database.
func (s *Sink) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

func quote(id string) string {
	return `"` + strings.Replace(id, `"`, `""`, -1) + `"`
}

func (s *Sink) tableName(group string, members []string) (string, error) {
	buf := &bytes.Buffer{}
	err := s.table.Execute(buf, TableData{Group: group, Index: s.n + 1, Members: members})
	if err != nil {
		return "", errors.Wrapf(err, "naming table for %s", group)
	}
	if buf.Len() == 0 {
		return "", errors.Errorf("empty table name for %s", group)
	}
	return buf.String(), nil
}

// BeginGroup implements sinks.Sinker. The table is created if needed and a
// transaction is held open until the returned writer is closed.
func (s *Sink) BeginGroup(ctx context.Context, group string, members []string) (sinks.RowWriter, error) {
	name, err := s.tableName(group, members)
	if err != nil {
		return nil, err
	}

	cols := []string{"time INTEGER PRIMARY KEY ON CONFLICT IGNORE"}
	inscols := []string{"time"}
	params := []string{"?"}
	for _, m := range members {
		cols = append(cols, quote(m)+" INTEGER")
		inscols = append(inscols, quote(m))
		params = append(params, "?")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}

	create := "CREATE TABLE IF NOT EXISTS " + quote(name) + " (" + strings.Join(cols, ", ") + ")"
	if glog.V(2) {
		glog.Info(create)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		tx.Rollback()
		return nil, errors.Wrapf(err, "creating table %s", name)
	}

	insert := "INSERT INTO " + quote(name) + " (" + strings.Join(inscols, ", ") + ") VALUES (" + strings.Join(params, ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return nil, errors.Wrapf(err, "preparing insert into %s", name)
	}

	s.n++
	return &RowWriter{
		table: name,
		tx:    tx,
		stmt:  stmt,
		args:  make([]interface{}, len(members)+1),
	}, nil
}

// RowWriter inserts the rows of one group inside a transaction.
type RowWriter struct {
	table  string
	tx     *sql.Tx
	stmt   *sql.Stmt
	args   []interface{}
	failed bool
}

// WriteRow implements sinks.RowWriter.
func (w *RowWriter) WriteRow(ctx context.Context, r *sinks.Row) error {
	if len(r.Values) != len(w.args)-1 {
		w.failed = true
		return errors.Errorf("row for %s has %d values, table has %d", w.table, len(r.Values), len(w.args)-1)
	}
	w.args[0] = r.Time
	for i, v := range r.Values {
		if r.Has(i) {
			w.args[i+1] = v
		} else {
			w.args[i+1] = nil
		}
	}
	if _, err := w.stmt.ExecContext(ctx, w.args...); err != nil {
		w.failed = true
		return errors.Wrapf(err, "inserting into %s", w.table)
	}
	return nil
}

// Close commits the group. Rows written before a failed write are kept.
func (w *RowWriter) Close() error {
	w.stmt.Close()
	if w.failed {
		glog.Errorf("committing partial group %s after a failed write", w.table)
	}
	return errors.Wrapf(w.tx.Commit(), "committing %s", w.table)
}
