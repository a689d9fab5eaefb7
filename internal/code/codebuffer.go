// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package code defines the byte sink which instruction encoders append to.
package code

import (
	"encoding/binary"

	"gate.computer/safepoint/reloc"
)

// Buffer is implemented by the types of the buffer package.
type Buffer interface {
	Bytes() []byte
	Extend(n int) []byte
	PutByte(byte)
}

// Buf is an optimized Buffer.  The cached length (Addr) avoids interface
// function calls.
type Buf struct {
	Buffer
	Addr reloc.CodeOffset
}

func (buf *Buf) Extend(n int) (b []byte) {
	b = buf.Buffer.Extend(n)
	buf.Addr += reloc.CodeOffset(n)
	return
}

func (buf *Buf) PutByte(x byte) {
	buf.Buffer.PutByte(x)
	buf.Addr++
}

// PutUint32 appends a little-endian word.
func (buf *Buf) PutUint32(x uint32) {
	binary.LittleEndian.PutUint32(buf.Extend(4), x)
}

// PutUint16BE appends a big-endian halfword (s390x instruction parcels).
func (buf *Buf) PutUint16BE(x uint16) {
	binary.BigEndian.PutUint16(buf.Extend(2), x)
}

// PutUint64 appends a little-endian doubleword.
func (buf *Buf) PutUint64(x uint64) {
	binary.LittleEndian.PutUint64(buf.Extend(8), x)
}

// Bytes at a previously emitted offset, for patching.
func (buf *Buf) At(offset reloc.CodeOffset, n int) []byte {
	return buf.Buffer.Bytes()[offset : int(offset)+n]
}

// SourceLoc identifies the WebAssembly instruction which an emitted machine
// instruction belongs to.  The zero value means that no location is
// attached.
type SourceLoc uint32

const NoSourceLoc = SourceLoc(0)

func (loc SourceLoc) IsSet() bool { return loc != NoSourceLoc }
