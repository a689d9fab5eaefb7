// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package s390x

import (
	"math"

	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/s390x/in"
	"gate.computer/safepoint/isa/mem"
	"gate.computer/safepoint/isa/reg"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/trap"
	"gate.computer/safepoint/wa"
)

// Load a value of type Type from memory.  Size is the memory access width
// (zero means the size of the type); narrow values are extended according to
// Signed.
type Load struct {
	Type   wa.Type
	Size   wa.Size
	Signed bool
	Dst    reg.R
	Src    mem.Mem
	Loc    code.SourceLoc
}

func (i Load) Emit(f *gen.Func) {
	EmitMem(f, i.Dst, i.Src, LoadOps(i.Type, i.Size, i.Signed), i.Loc)
}

// Store a value of type Type to memory, truncated to Size.
type Store struct {
	Type wa.Type
	Size wa.Size
	Src  reg.R
	Dst  mem.Mem
	Loc  code.SourceLoc
}

func (i Store) Emit(f *gen.Func) {
	EmitMem(f, i.Src, i.Dst, StoreOps(i.Type, i.Size), i.Loc)
}

// LoadAddress computes the effective address of Src.
type LoadAddress struct {
	Dst reg.R
	Src mem.Mem
}

func (i LoadAddress) Emit(f *gen.Func) {
	EmitMem(f, i.Dst, i.Src.WithFlags(mem.NoTrap), OpsLoadAddr, code.NoSourceLoc)
}

type MoveImm struct {
	Dst   reg.R
	Value int64
}

func (i MoveImm) Emit(f *gen.Func) {
	start := f.Text.Addr
	loadImm(&f.Text, i.Dst, i.Value)
	f.Trace(start)
}

type Move struct {
	Type     wa.Type
	Dst, Src reg.R
}

func (i Move) Emit(f *gen.Func) {
	start := f.Text.Addr
	switch i.Type {
	case wa.F32:
		in.LER.RegReg(&f.Text, i.Dst, i.Src)
	case wa.F64:
		in.LDR.RegReg(&f.Text, i.Dst, i.Src)
	default:
		in.LGR.RegReg(&f.Text, i.Dst, i.Src)
	}
	f.Trace(start)
}

// Call a function directly.  Live lists the stack pointer relative offsets
// of slots which hold references during the call.
type Call struct {
	Symbol    string
	Colocated bool
	Live      []uint32
}

func (i Call) Emit(f *gen.Func) {
	start := f.Text.Addr
	kind := reloc.S390xPLTRel32Dbl
	if i.Colocated {
		kind = reloc.S390xPCRel32Dbl
	}
	f.AddReloc(f.Text.Addr+2, kind, i.Symbol, 2)
	in.BRASL.RegPCRel(&f.Text, RegLink)
	f.AddStackMap(i.Live)
	f.Trace(start)
}

// CallIndirect calls the address in Target.
type CallIndirect struct {
	Target reg.R
	Live   []uint32
}

func (i CallIndirect) Emit(f *gen.Func) {
	start := f.Text.Addr
	in.BASR.RegReg(&f.Text, RegLink, i.Target)
	f.AddStackMap(i.Live)
	f.Trace(start)
}

// CallHost calls a host function through an inline address which is filled
// in by the loader.
type CallHost struct {
	Symbol string
	Live   []uint32
}

func (i CallHost) Emit(f *gen.Func) {
	start := f.Text.Addr
	literalAddr(f, RegScratch, reloc.HostCallIndirect, i.Symbol, 0)
	in.BASR.RegReg(&f.Text, RegLink, RegScratch)
	f.AddStackMap(i.Live)
	f.Trace(start)
}

// adjustSP subtracts n from the stack pointer.  The back chain is stored at
// the new stack pointer, so that the frame of a callee can find it.
func adjustSP(text *code.Buf, n int64) {
	switch {
	case n == 0:
		return

	case n >= -math.MaxInt16 && n <= math.MaxInt16:
		in.AGHI.RegImm16(text, RegStackPtr, int16(-n))

	case fitsInt32(-n):
		in.AGFI.RegImm32(text, RegStackPtr, int32(-n))

	default:
		panic("s390x: stack pointer adjustment is too large")
	}
	in.STG.RegIndexBaseDisp(text, RegFramePtr, reg.None, RegStackPtr, SavedFrameOffset)
}

// AdjustSP decrements the stack pointer by Delta bytes (or increments it, if
// Delta is negative), and keeps the frame state in sync.
type AdjustSP struct {
	Delta int32
}

func (i AdjustSP) Emit(f *gen.Func) {
	start := f.Text.Addr
	adjustSP(&f.Text, int64(i.Delta))
	f.Frame.AdjustSP(int64(i.Delta))
	f.Trace(start)
}

type Bind struct {
	Label mem.Label
}

func (i Bind) Emit(f *gen.Func) {
	f.Bind(i.Label)
}

type Jump struct {
	Label mem.Label
}

func (i Jump) Emit(f *gen.Func) {
	start := f.Text.Addr
	f.UseLabel(i.Label, f.Text.Addr, patchPCRel32)
	in.BRCL.RegPCRel(&f.Text, in.MaskAlways)
	f.Trace(start)
}

// Unreachable emits an invalid instruction.
type Unreachable struct {
	Loc code.SourceLoc
}

func (i Unreachable) Emit(f *gen.Func) {
	start := f.Text.Addr
	f.AddTrap(trap.UnreachableCodeReached, i.Loc)
	f.Text.PutUint16BE(0)
	f.Trace(start)
}

type Return struct{}

func (Return) Emit(f *gen.Func) {
	epilogue(f)
}
