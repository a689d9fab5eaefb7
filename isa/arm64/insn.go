// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arm64

import (
	"fmt"

	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/arm64/in"
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
	EmitMem(f, i.Dst, i.Src, LoadOp(i.Type, i.Size, i.Signed), i.Loc)
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
	EmitMem(f, i.Src, i.Dst, StoreOp(i.Type, i.Size), i.Loc)
}

// LoadAddress computes the effective address of Src.
type LoadAddress struct {
	Dst reg.R
	Src mem.Mem
}

func (i LoadAddress) Emit(f *gen.Func) {
	EmitAddress(f, i.Dst, i.Src)
}

type MoveImm struct {
	Dst   reg.R
	Value int64
}

func (i MoveImm) Emit(f *gen.Func) {
	start := f.Text.Addr
	moveImm(&f.Text, i.Dst, i.Value)
	f.Trace(start)
}

// Move between registers.  Register 31 is the stack pointer.
type Move struct {
	Type     wa.Type
	Dst, Src reg.R
}

func (i Move) Emit(f *gen.Func) {
	start := f.Text.Addr
	switch {
	case i.Type.Category() == wa.Float:
		insn(&f.Text, in.FMOV.RdRn(i.Dst, i.Src, i.Type.Size()))

	case i.Dst == RegStackPtr || i.Src == RegStackPtr:
		insn(&f.Text, in.ADDi.RdRnI12S2(i.Dst, i.Src, 0, 0, wa.Size64))

	default:
		insn(&f.Text, in.ORRs.RdRnI6RmS2(i.Dst, RegZero, 0, i.Src, in.LSL, i.Type.Size()))
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
	f.AddReloc(f.Text.Addr, reloc.Arm64Call, i.Symbol, 0)
	insn(&f.Text, in.BL.I26(0))
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
	insn(&f.Text, in.BLR.Rn(i.Target))
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
	lit, _ := in.LoadD.OpcodeLiteral()

	start := f.Text.Addr
	insn(&f.Text, lit.RtI19(RegScratch, 2))
	insn(&f.Text, in.B.I26(3))
	f.AddReloc(f.Text.Addr, reloc.HostCallIndirect, i.Symbol, 0)
	f.Text.PutUint64(0)
	insn(&f.Text, in.BLR.Rn(RegScratch))
	f.AddStackMap(i.Live)
	f.Trace(start)
}

// adjustSP subtracts n from the stack pointer (or adds, if add is set).
func adjustSP(text *code.Buf, n uint32, add bool) {
	op := in.SUBi
	if add {
		op = in.ADDi
	}

	if n >= 1<<24 {
		panic(fmt.Sprintf("arm64: stack pointer adjustment %d is too large", n))
	}
	if hi := n >> 12; hi != 0 {
		insn(text, op.RdRnI12S2(RegStackPtr, RegStackPtr, hi, 1, wa.Size64))
	}
	if lo := n & 0xfff; lo != 0 {
		insn(text, op.RdRnI12S2(RegStackPtr, RegStackPtr, lo, 0, wa.Size64))
	}
}

// AdjustSP decrements the stack pointer by Delta bytes (or increments it, if
// Delta is negative), and keeps the frame state in sync.
type AdjustSP struct {
	Delta int32
}

func (i AdjustSP) Emit(f *gen.Func) {
	start := f.Text.Addr
	if i.Delta >= 0 {
		adjustSP(&f.Text, uint32(i.Delta), false)
	} else {
		adjustSP(&f.Text, uint32(-int64(i.Delta)), true)
	}
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
	f.UseLabel(i.Label, f.Text.Addr, patchImm26)
	insn(&f.Text, in.B.I26(0))
	f.Trace(start)
}

// Unreachable emits a breakpoint which carries the trap identifier.
type Unreachable struct {
	Loc code.SourceLoc
}

func (i Unreachable) Emit(f *gen.Func) {
	start := f.Text.Addr
	f.AddTrap(trap.UnreachableCodeReached, i.Loc)
	insn(&f.Text, in.BRK.I16(uint32(trap.UnreachableCodeReached)))
	f.Trace(start)
}

type Return struct{}

func (Return) Emit(f *gen.Func) {
	epilogue(f)
}
