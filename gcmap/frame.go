// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcmap

import (
	"unsafe"

	"gate.computer/safepoint/object/stack/unwind"
)

// FrameStackMap combines a walked frame with the metadata of its function.
type FrameStackMap struct {
	Map            *CompiledFunctionMetadata
	FramePointer   uintptr
	ProgramCounter uintptr
	Unwind         unwind.Unwind
}

func (m FrameStackMap) location() *StackLocation {
	return m.Map.StackLocation(uint32(m.ProgramCounter - m.Map.Start))
}

// StackPointer of the frame at the safepoint.  ok is false if no stack map
// is recorded at the program counter.
func (m FrameStackMap) StackPointer() (sp uintptr, ok bool) {
	loc := m.location()
	if loc == nil {
		return
	}
	sp = m.Unwind.StackPointer(m.FramePointer, loc.FrameSize)
	ok = true
	return
}

// LiveSlots are stack pointer relative offsets of slots which hold
// references.  The result is empty if there are none at the program counter.
func (m FrameStackMap) LiveSlots() []uint32 {
	if loc := m.location(); loc != nil {
		return loc.Slots
	}
	return nil
}

// SlotAddrs are the absolute addresses of the live slots.
func (m FrameStackMap) SlotAddrs() []uintptr {
	loc := m.location()
	if loc == nil {
		return nil
	}

	sp := m.Unwind.StackPointer(m.FramePointer, loc.FrameSize)
	addrs := make([]uintptr, len(loc.Slots))
	for i, off := range loc.Slots {
		addrs[i] = sp + uintptr(off)
	}
	return addrs
}

// VisitSlots calls visit with a pointer to each live slot.  A moving
// collector may store the relocated reference through it.
func (m FrameStackMap) VisitSlots(visit func(slot *uintptr)) {
	for _, addr := range m.SlotAddrs() {
		visit((*uintptr)(unsafe.Pointer(addr)))
	}
}
