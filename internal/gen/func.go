// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gen holds the per-function emission context.  Each function is
// emitted into its own Func, so functions can be generated concurrently.
package gen

import (
	"fmt"

	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/internal/gen/debug"
	"gate.computer/safepoint/internal/gen/link"
	"gate.computer/safepoint/isa/mem"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/trap"
)

// TrapSite is the offset of an instruction which may fault.
type TrapSite struct {
	Offset reloc.CodeOffset
	ID     trap.ID
	Loc    code.SourceLoc
}

// StackMapSite lists the stack slots holding live references at a
// safepoint.  Offset is a return address; slot offsets are relative to the
// stack pointer at the call.
type StackMapSite struct {
	Offset    reloc.CodeOffset
	FrameSize uint32
	Slots     []uint32
}

type Func struct {
	Arch string // For debug output.
	Text code.Buf

	Frame        mem.FrameState
	LocalSize    uint32 // Stack space requested for locals and spill slots.
	FrameSize    uint32 // Distance between frame pointer and stack pointer after prologue.
	PrologueSize uint32

	Traps     []TrapSite
	Relocs    []reloc.Site
	StackMaps []StackMapSite

	labels []link.L
}

func NewFunc(arch string, text code.Buffer, localSize uint32) *Func {
	return &Func{
		Arch:      arch,
		Text:      code.Buf{Buffer: text, Addr: reloc.CodeOffset(len(text.Bytes()))},
		LocalSize: localSize,
	}
}

func (f *Func) label(l mem.Label) *link.L {
	if int(l) >= len(f.labels) {
		n := make([]link.L, int(l)+1)
		copy(n, f.labels)
		f.labels = n
	}
	return &f.labels[l]
}

// Bind label to the current position.
func (f *Func) Bind(l mem.Label) {
	f.label(l).Bind(f.Text.Addr)

	if debug.Enabled {
		debug.Printf("label.%d:", l)
	}
}

// UseLabel registers an instruction at site which refers to the label.  The
// instruction is patched by Finish.
func (f *Func) UseLabel(l mem.Label, site reloc.CodeOffset, patch link.Patcher) {
	f.label(l).AddSite(site, patch)
}

// AddTrap at the current position.
func (f *Func) AddTrap(id trap.ID, loc code.SourceLoc) {
	f.Traps = append(f.Traps, TrapSite{f.Text.Addr, id, loc})
}

func (f *Func) AddReloc(offset reloc.CodeOffset, kind reloc.Reloc, symbol string, addend reloc.Addend) {
	f.Relocs = append(f.Relocs, reloc.Site{
		Offset: offset,
		Kind:   kind,
		Symbol: symbol,
		Addend: addend,
	})
}

// AddStackMap records live slots at the current position, which must be the
// return address of a call.  Empty slot lists are recorded too; the stack map
// builder drops them.
func (f *Func) AddStackMap(slots []uint32) {
	frameSize := int64(f.FrameSize) + f.Frame.VirtualSPOffset
	if frameSize < 0 {
		panic(fmt.Errorf("negative frame size %d at safepoint", frameSize))
	}

	f.StackMaps = append(f.StackMaps, StackMapSite{
		Offset:    f.Text.Addr,
		FrameSize: uint32(frameSize),
		Slots:     append([]uint32(nil), slots...),
	})
}

// Trace instructions emitted since start, when built with the debug tag.
func (f *Func) Trace(start reloc.CodeOffset) {
	if debug.Enabled {
		debug.PrintInsn(f.Arch, uint32(start), f.Text.Bytes()[start:f.Text.Addr])
	}
}

// Finish patches label references.  It panics if a referenced label was not
// bound.
func (f *Func) Finish() {
	text := f.Text.Bytes()

	for i := range f.labels {
		l := &f.labels[i]
		if len(l.Sites) == 0 {
			continue
		}
		if !l.Bound() {
			panic(fmt.Errorf("label.%d is referenced but not bound", i))
		}
		l.Apply(text)
	}
}
