// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer implements the byte sinks which machine code is emitted
// into.
package buffer

type sizeError string

func (s sizeError) Error() string { return string(s) }

// BufferSizeLimit marks the error as a resource limit, as opposed to a
// malformed input.
func (s sizeError) BufferSizeLimit() string { return string(s) }

var (
	ErrSizeLimit  = sizeError("buffer size limit exceeded")
	ErrStaticSize = sizeError("static buffer capacity exceeded")
)
