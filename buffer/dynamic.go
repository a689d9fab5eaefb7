// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"slices"
)

// Dynamic is a growable code sink.  The zero value is an empty buffer.
type Dynamic struct {
	buf []byte
}

// NewDynamic buffer which appends to b.  The slice must be empty.
func NewDynamic(b []byte) *Dynamic {
	if len(b) != 0 {
		panic("buffer: initial slice is not empty")
	}
	return &Dynamic{b}
}

// NewDynamicHint allocates sizeHint bytes up front.
func NewDynamicHint(sizeHint int) *Dynamic {
	return &Dynamic{make([]byte, 0, sizeHint)}
}

func (d *Dynamic) Len() int      { return len(d.buf) }
func (d *Dynamic) Bytes() []byte { return d.buf }

// Reset the length to zero, retaining the capacity.
func (d *Dynamic) Reset() {
	d.buf = d.buf[:0]
}

func (d *Dynamic) PutByte(x byte) {
	d.buf = append(d.buf, x)
}

// Extend the buffer by n bytes and return them.  Their contents are
// unspecified.
func (d *Dynamic) Extend(n int) []byte {
	offset := len(d.buf)
	d.buf = slices.Grow(d.buf, n)[:offset+n]
	return d.buf[offset:]
}
