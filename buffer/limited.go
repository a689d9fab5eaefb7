// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"gate.computer/safepoint/internal/pan"
)

// Limited is a growable code sink with a maximum size.  Exceeding the limit
// panics with ErrSizeLimit through the compiler's error zone, so that it is
// returned as an error by the compile package.
type Limited struct {
	Dynamic
	limit int
}

// NewLimited buffer which appends to b.  The slice must be empty.
func NewLimited(b []byte, maxSize int) *Limited {
	return &Limited{*NewDynamic(b), maxSize}
}

func (l *Limited) PutByte(x byte) {
	l.check(1)
	l.Dynamic.PutByte(x)
}

func (l *Limited) Extend(n int) []byte {
	l.check(n)
	return l.Dynamic.Extend(n)
}

func (l *Limited) check(n int) {
	if l.Len()+n > l.limit {
		pan.Panic(ErrSizeLimit)
	}
}
