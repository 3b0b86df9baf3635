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

// Package record reads streams of fixed width binary integers.
//
// A stream has no header, footer or framing; record i occupies bytes
// [i*W, (i+1)*W). Each record is a signed integer in the host's native
// byte order. Nothing is done to detect a reader using the wrong width,
// everything after a misread offset is garbage.
package record

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultWidth is the width of records written by the capture tools.
const DefaultWidth = 4

// ErrBadWidth is returned for widths that can't be decoded as an integer.
var ErrBadWidth = errors.New("record width must be 1, 2, 4 or 8 bytes")

// ValidWidth reports whether w is a usable record width.
func ValidWidth(w int) bool {
	switch w {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// Reader decodes successive fixed width records from an io.Reader.
type Reader struct {
	r     io.Reader
	width int
	buf   [8]byte
	val   int64
	n     int64
	err   error
	done  bool
}

// NewReader creates a reader of width byte records.
func NewReader(r io.Reader, width int) (*Reader, error) {
	if !ValidWidth(width) {
		return nil, errors.Wrapf(ErrBadWidth, "got %d", width)
	}
	return &Reader{r: r, width: width}, nil
}

// Next reads the next record. It returns false once the stream is
// exhausted, including when only part of a record remains.
func (rr *Reader) Next() bool {
	if rr.done {
		return false
	}

	b := rr.buf[:rr.width]
	_, err := io.ReadFull(rr.r, b)
	if err != nil {
		rr.done = true
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			rr.err = err
		}
		return false
	}

	switch rr.width {
	case 1:
		rr.val = int64(int8(b[0]))
	case 2:
		rr.val = int64(int16(binary.NativeEndian.Uint16(b)))
	case 4:
		rr.val = int64(int32(binary.NativeEndian.Uint32(b)))
	case 8:
		rr.val = int64(binary.NativeEndian.Uint64(b))
	}
	rr.n++
	return true
}

// Value returns the record decoded by the last successful call to Next.
func (rr *Reader) Value() int64 {
	return rr.val
}

// Count returns the number of records read so far.
func (rr *Reader) Count() int64 {
	return rr.n
}

// Err returns any read error, other than reaching the end of the stream,
// that stopped the reader.
func (rr *Reader) Err() error {
	return rr.err
}

// File is a Reader over a buffered file.
type File struct {
	*Reader
	f *os.File
}

// Open opens the stream file at fn.
func Open(fn string, width int) (*File, error) {
	if !ValidWidth(width) {
		return nil, errors.Wrapf(ErrBadWidth, "got %d", width)
	}
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	r, _ := NewReader(bufio.NewReaderSize(f, 64*1024), width)
	return &File{Reader: r, f: f}, nil
}

// Name returns the path of the underlying file.
func (f *File) Name() string {
	return f.f.Name()
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Append encodes v as a width byte record onto b, in native byte order.
// It is the inverse of Reader, used to produce stream files.
func Append(b []byte, v int64, width int) ([]byte, error) {
	var buf [8]byte
	switch width {
	case 1:
		buf[0] = byte(int8(v))
	case 2:
		binary.NativeEndian.PutUint16(buf[:2], uint16(int16(v)))
	case 4:
		binary.NativeEndian.PutUint32(buf[:4], uint32(int32(v)))
	case 8:
		binary.NativeEndian.PutUint64(buf[:8], uint64(v))
	default:
		return b, errors.Wrapf(ErrBadWidth, "got %d", width)
	}
	return append(b, buf[:width]...), nil
}

// WriteFile writes vals to fn as a stream of width byte records.
func WriteFile(fn string, width int, vals ...int64) error {
	bs := make([]byte, 0, len(vals)*width)
	var err error
	for _, v := range vals {
		bs, err = Append(bs, v, width)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(fn, bs, 0644)
}
