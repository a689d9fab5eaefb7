// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stackmap builds and reads the stack map section, which lists the
// stack slots holding live references at each safepoint of a compilation
// unit.
//
// Section layout (little-endian 32-bit words):
//
//	count
//	pc[count]     ascending code offsets
//	off[count]    word index into data for each pc
//	data[...]     frame size, slot count N, N slot offsets divided by 4
package stackmap

import (
	"encoding/binary"
	"fmt"

	"gate.computer/safepoint/reloc"
)

const (
	SectionName  = ".wag.stackmaps"
	SectionAlign = 4

	// SlotScale is the unit of stored slot offsets.  Stack slots holding
	// references are at least 4-byte aligned on every target.
	SlotScale = 4
)

// Object receives the serialized section.
type Object interface {
	AddSection(name string, data []byte, align int)
}

// Builder accumulates safepoints in code offset order.  It must not be used
// concurrently.
type Builder struct {
	pcs      []uint32
	pointers []uint32
	data     []uint32

	last   reloc.CodeOffset
	pushed bool
}

// Push records the live slots at a return address.  frameSize is the
// distance from the frame pointer to the stack pointer at the call; slots
// are stack pointer relative byte offsets.  Nothing is recorded if slots is
// empty.
//
// Offsets must be pushed in non-decreasing order, and each slot offset must
// be a distinct multiple of SlotScale.
func (b *Builder) Push(offset reloc.CodeOffset, frameSize uint32, slots []uint32) {
	if b.pushed && offset < b.last {
		panic(fmt.Sprintf("stack map offset %#x pushed after %#x", offset, b.last))
	}
	b.last = offset
	b.pushed = true

	if len(slots) == 0 {
		return
	}

	for i, x := range slots {
		if x%SlotScale != 0 {
			panic(fmt.Sprintf("stack map slot offset %d is not a multiple of %d", x, SlotScale))
		}
		for _, y := range slots[:i] {
			if x == y {
				panic(fmt.Sprintf("stack map slot offset %d listed twice", x))
			}
		}
	}

	b.pcs = append(b.pcs, uint32(offset))
	b.pointers = append(b.pointers, uint32(len(b.data)))
	b.data = append(b.data, frameSize, uint32(len(slots)))
	for _, x := range slots {
		b.data = append(b.data, x/SlotScale)
	}
}

// Len is the number of recorded entries.
func (b *Builder) Len() int {
	return len(b.pcs)
}

// Bytes serializes the section.  The result is nil if no entries were
// recorded.
func (b *Builder) Bytes() []byte {
	if len(b.pcs) == 0 {
		return nil
	}

	buf := make([]byte, 4*(1+len(b.pcs)+len(b.pointers)+len(b.data)))
	binary.LittleEndian.PutUint32(buf, uint32(len(b.pcs)))

	i := 4
	for _, words := range [][]uint32{b.pcs, b.pointers, b.data} {
		for _, x := range words {
			binary.LittleEndian.PutUint32(buf[i:], x)
			i += 4
		}
	}
	return buf
}

// AppendTo adds the section to obj, unless no entries were recorded.
func (b *Builder) AppendTo(obj Object) {
	if data := b.Bytes(); data != nil {
		obj.AddSection(SectionName, data, SectionAlign)
	}
}
