// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcmap locates the stack slots which hold live references in the
// frames of loaded code.  The metadata of loaded functions is declared once
// per process and read without locking afterwards.
package gcmap

import (
	"fmt"
	"sort"
	"sync/atomic"

	"gate.computer/safepoint/object/stack"
	"gate.computer/safepoint/object/stack/unwind"
)

// StackLocation describes the live slots at code offsets Offset through
// Offset+Len (inclusive) of a function.  Slots are stack pointer relative
// byte offsets; the stack pointer is the frame pointer minus FrameSize.
type StackLocation struct {
	Offset    uint32
	Len       uint32
	FrameSize uint32
	Slots     []uint32
}

func (l *StackLocation) end() uint64 {
	return uint64(l.Offset) + uint64(l.Len)
}

// CompiledFunctionMetadata of a loaded function.  Start and End are absolute
// code addresses; StackLocations are sorted by offset.
type CompiledFunctionMetadata struct {
	Start          uintptr
	End            uintptr
	StackLocations []StackLocation
}

// Contains pc.  A return address at the end belongs to the function.
func (m *CompiledFunctionMetadata) Contains(pc uintptr) bool {
	return m.Start <= pc && pc <= m.End
}

// StackLocation containing a function-relative code offset, or nil.
func (m *CompiledFunctionMetadata) StackLocation(offset uint32) *StackLocation {
	locs := m.StackLocations
	i := sort.Search(len(locs), func(i int) bool {
		return locs[i].end() >= uint64(offset)
	})
	if i < len(locs) && locs[i].Offset <= offset {
		return &locs[i]
	}
	return nil
}

func (m *CompiledFunctionMetadata) validate() error {
	if m.Start > m.End {
		return fmt.Errorf("function %#x ends at %#x", m.Start, m.End)
	}
	for i := range m.StackLocations {
		l := &m.StackLocations[i]
		if l.end() > uint64(m.End-m.Start) {
			return fmt.Errorf("stack location %#x+%d is outside function %#x-%#x", l.Offset, l.Len, m.Start, m.End)
		}
		if i > 0 && uint64(l.Offset) <= m.StackLocations[i-1].end() {
			prev := &m.StackLocations[i-1]
			return fmt.Errorf("stack location %#x overlaps or precedes %#x+%d", l.Offset, prev.Offset, prev.Len)
		}
	}
	return nil
}

// Registry of loaded functions.
type Registry struct {
	unwind   unwind.Unwind
	declared atomic.Bool
	funcs    atomic.Pointer[[]CompiledFunctionMetadata]
}

// NewRegistry for frames of the given layout.
func NewRegistry(u unwind.Unwind) *Registry {
	return &Registry{unwind: u}
}

// Declare the loaded functions, sorted by address.  It panics if called
// twice, or if the functions or their stack locations are unsorted or
// overlap.  Invalid input leaves the registry undeclared.
func (r *Registry) Declare(funcs []CompiledFunctionMetadata) {
	for i := range funcs {
		if err := funcs[i].validate(); err != nil {
			panic(err)
		}
		if i > 0 && funcs[i].Start < funcs[i-1].End {
			panic(fmt.Sprintf("function %#x overlaps or precedes %#x-%#x", funcs[i].Start, funcs[i-1].Start, funcs[i-1].End))
		}
	}

	if !r.declared.CompareAndSwap(false, true) {
		panic("stack maps declared twice")
	}

	funcs = append([]CompiledFunctionMetadata(nil), funcs...)
	r.funcs.Store(&funcs)
}

// Lookup the function containing pc, or nil.
func (r *Registry) Lookup(pc uintptr) *CompiledFunctionMetadata {
	p := r.funcs.Load()
	if p == nil {
		return nil
	}
	funcs := *p

	i := sort.Search(len(funcs), func(i int) bool {
		return funcs[i].End >= pc
	})
	if i < len(funcs) && funcs[i].Start <= pc {
		return &funcs[i]
	}
	return nil
}

// FrameStackMap of a walked frame.  ok is false if the frame does not belong
// to a declared function.
func (r *Registry) FrameStackMap(f stack.Frame) (m FrameStackMap, ok bool) {
	fn := r.Lookup(f.PC)
	if fn == nil {
		return
	}

	m = FrameStackMap{
		Map:            fn,
		FramePointer:   f.FP,
		ProgramCounter: f.PC,
		Unwind:         r.unwind,
	}
	ok = true
	return
}

// FindCurrentStackMap of the innermost frame of an activation which belongs
// to a declared function.
func (r *Registry) FindCurrentStackMap(act *stack.Activation) (m FrameStackMap, ok bool) {
	act.VisitFrames(r.unwind, func(f stack.Frame) bool {
		m, ok = r.FrameStackMap(f)
		return !ok
	})
	return
}

// VisitStackMaps of frames with live references, innermost first.  The walk
// stops early if visit returns false.
func (r *Registry) VisitStackMaps(act *stack.Activation, visit func(FrameStackMap) bool) {
	act.VisitFrames(r.unwind, func(f stack.Frame) bool {
		m, ok := r.FrameStackMap(f)
		if !ok || len(m.LiveSlots()) == 0 {
			return true
		}
		return visit(m)
	})
}
