// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"gate.computer/safepoint/internal/pan"
)

// Static is a fixed-capacity code sink, for assembling into a preallocated
// or memory-mapped region.  The zero value has no capacity.
type Static struct {
	buf []byte
}

// NewStatic buffer which appends to b up to its capacity.
func NewStatic(b []byte) *Static {
	return &Static{b}
}

func (s *Static) Cap() int      { return cap(s.buf) }
func (s *Static) Len() int      { return len(s.buf) }
func (s *Static) Bytes() []byte { return s.buf }

func (s *Static) PutByte(x byte) {
	s.Extend(1)[0] = x
}

// PutBytes copies b to the end of the buffer.
func (s *Static) PutBytes(b []byte) {
	copy(s.Extend(len(b)), b)
}

// Extend panics with ErrStaticSize if n bytes don't fit.
func (s *Static) Extend(n int) []byte {
	offset := len(s.buf)
	if n > cap(s.buf)-offset {
		pan.Panic(ErrStaticSize)
	}
	s.buf = s.buf[:offset+n]
	return s.buf[offset:]
}
