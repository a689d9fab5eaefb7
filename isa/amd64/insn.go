// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/amd64/in"
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
	EmitMem(f, i.Type, i.Dst, i.Src, LoadOps(i.Type, i.Size, i.Signed), i.Loc)
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
	EmitMem(f, i.Type, i.Src, i.Dst, StoreOps(i.Type, i.Size), i.Loc)
}

// LoadAddress computes the effective address of Src.
type LoadAddress struct {
	Dst reg.R
	Src mem.Mem
}

func (i LoadAddress) Emit(f *gen.Func) {
	EmitMem(f, wa.I64, i.Dst, i.Src.WithFlags(mem.NoTrap), OpsLoadAddr, code.NoSourceLoc)
}

type MoveImm struct {
	Dst   reg.R
	Value int64
}

func (i MoveImm) Emit(f *gen.Func) {
	start := f.Text.Addr
	if fitsInt32(i.Value) {
		in.MOVi.RegImm(&f.Text, wa.I64, i.Dst, int32(i.Value))
	} else {
		in.MOV64i.RegImm64(&f.Text, i.Dst, i.Value)
	}
	f.Trace(start)
}

type Move struct {
	Type     wa.Type
	Dst, Src reg.R
}

func (i Move) Emit(f *gen.Func) {
	start := f.Text.Addr
	if i.Type.Category() == wa.Float {
		in.MOVSx.RegReg(&f.Text, i.Type, i.Dst, i.Src)
	} else {
		in.MOV.RegReg(&f.Text, i.Type, i.Dst, i.Src)
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
	in.CALLcd.Stub32(&f.Text)
	kind := reloc.X86CallPLTRel4
	if i.Colocated {
		kind = reloc.X86CallPCRel4
	}
	f.AddReloc(f.Text.Addr-4, kind, i.Symbol, -4)
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
	in.CALL.Reg(&f.Text, in.OneSize, i.Target)
	f.AddStackMap(i.Live)
	f.Trace(start)
}

// CallHost calls a host function through an address which is filled in by
// the loader.
type CallHost struct {
	Symbol string
	Live   []uint32
}

func (i CallHost) Emit(f *gen.Func) {
	start := f.Text.Addr
	in.MOV64i.RegImm64(&f.Text, RegScratch, 0)
	f.AddReloc(f.Text.Addr-8, reloc.HostCallIndirect, i.Symbol, 0)
	in.CALL.Reg(&f.Text, in.OneSize, RegScratch)
	f.AddStackMap(i.Live)
	f.Trace(start)
}

// AdjustSP decrements the stack pointer by Delta bytes (or increments it, if
// Delta is negative), and keeps the frame state in sync.
type AdjustSP struct {
	Delta int32
}

func (i AdjustSP) Emit(f *gen.Func) {
	start := f.Text.Addr
	switch {
	case i.Delta > 0:
		in.SUBi.RegImm(&f.Text, wa.I64, RegStackPtr, i.Delta)
	case i.Delta < 0:
		in.ADDi.RegImm(&f.Text, wa.I64, RegStackPtr, -i.Delta)
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
	in.JMPcd.Stub32(&f.Text)
	f.UseLabel(i.Label, f.Text.Addr, patchRel32)
	f.Trace(start)
}

type Unreachable struct {
	Loc code.SourceLoc
}

func (i Unreachable) Emit(f *gen.Func) {
	start := f.Text.Addr
	f.AddTrap(trap.UnreachableCodeReached, i.Loc)
	in.UD2.Simple(&f.Text)
	f.Trace(start)
}

type Return struct{}

func (Return) Emit(f *gen.Func) {
	epilogue(f)
}
