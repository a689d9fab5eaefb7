// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stackmap

import (
	"encoding/binary"
	"sort"

	"golang.org/x/xerrors"
)

// Entry of a parsed section.
type Entry struct {
	PC        uint32
	FrameSize uint32
	Slots     []uint32 // Byte offsets.
}

// Section is a validated view of serialized stack maps.  The zero value is
// an empty section.
type Section struct {
	pcs  []byte
	offs []byte
	data []byte
}

// Parse validates the bounds of every entry.  Empty input yields an empty
// section.  The section refers to b.
func Parse(b []byte) (s Section, err error) {
	if len(b) == 0 {
		return
	}
	if len(b) < 4 || len(b)%4 != 0 {
		err = xerrors.Errorf("stack map section size %d is invalid", len(b))
		return
	}

	count := uint64(binary.LittleEndian.Uint32(b))
	if 4+8*count > uint64(len(b)) {
		err = xerrors.Errorf("stack map section is too short for %d entries", count)
		return
	}

	s.pcs = b[4 : 4+4*count]
	s.offs = b[4+4*count : 4+8*count]
	s.data = b[4+8*count:]

	words := uint64(len(s.data) / 4)
	var prev uint32

	for i := 0; i < int(count); i++ {
		pc := s.pc(i)
		if i > 0 && pc < prev {
			err = xerrors.Errorf("stack map pc %#x follows %#x", pc, prev)
			return
		}
		prev = pc

		off := uint64(s.off(i))
		if off+2 > words {
			err = xerrors.Errorf("stack map entry %d at word %d is out of bounds", i, off)
			return
		}
		if n := uint64(s.word(int(off) + 1)); off+2+n > words {
			err = xerrors.Errorf("stack map entry %d has %d slots beyond section end", i, n)
			return
		}
	}

	return
}

func (s Section) pc(i int) uint32   { return binary.LittleEndian.Uint32(s.pcs[4*i:]) }
func (s Section) off(i int) uint32  { return binary.LittleEndian.Uint32(s.offs[4*i:]) }
func (s Section) word(i int) uint32 { return binary.LittleEndian.Uint32(s.data[4*i:]) }

// Len is the number of entries.
func (s Section) Len() int {
	return len(s.pcs) / 4
}

func (s Section) entry(i int) (frameSize uint32, slots []uint32) {
	off := int(s.off(i))
	frameSize = s.word(off)
	n := int(s.word(off + 1))
	slots = make([]uint32, n)
	for j := range slots {
		slots[j] = s.word(off+2+j) * SlotScale
	}
	return
}

// Lookup the stack map of a return address.  ok is false if there are no
// live references at pc.
func (s Section) Lookup(pc uint32) (frameSize uint32, slots []uint32, ok bool) {
	n := s.Len()
	i := sort.Search(n, func(i int) bool {
		return s.pc(i) >= pc
	})
	if i == n || s.pc(i) != pc {
		return
	}

	frameSize, slots = s.entry(i)
	ok = true
	return
}

// Entries in pc order.
func (s Section) Entries() []Entry {
	entries := make([]Entry, s.Len())
	for i := range entries {
		e := &entries[i]
		e.PC = s.pc(i)
		e.FrameSize, e.Slots = s.entry(i)
	}
	return entries
}
