// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package s390x emits z/Architecture machine code.
package s390x

import (
	"fmt"
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

// MemOps lists the addressing forms of a memory instruction.  Zero fields
// are forms which the instruction lacks.
type MemOps struct {
	RX    in.RX  // base + index + 12-bit unsigned displacement
	RXY   in.RXY // base + index + 20-bit signed displacement
	PCRel in.RIL // PC-relative, halfword-scaled 32-bit displacement
	Store bool   // The register operand is read.
	Float bool   // The register operand is a floating-point register.
}

var (
	OpsLoad32    = MemOps{RX: in.L, RXY: in.LY, PCRel: in.LRL}
	OpsLoad64    = MemOps{RXY: in.LG, PCRel: in.LGRL}
	OpsLoad8S32  = MemOps{RXY: in.LB}
	OpsLoad8S64  = MemOps{RXY: in.LGB}
	OpsLoad8U32  = MemOps{RXY: in.LLC}
	OpsLoad8U64  = MemOps{RXY: in.LLGC}
	OpsLoad16S32 = MemOps{RX: in.LH, RXY: in.LHY, PCRel: in.LHRL}
	OpsLoad16S64 = MemOps{RXY: in.LGH, PCRel: in.LGHRL}
	OpsLoad16U32 = MemOps{RXY: in.LLH, PCRel: in.LLHRL}
	OpsLoad16U64 = MemOps{RXY: in.LLGH, PCRel: in.LLGHRL}
	OpsLoad32S   = MemOps{RXY: in.LGF, PCRel: in.LGFRL}
	OpsLoad32U   = MemOps{RXY: in.LLGF, PCRel: in.LLGFRL}
	OpsLoadF32   = MemOps{RX: in.LE, RXY: in.LEY, Float: true}
	OpsLoadF64   = MemOps{RX: in.LD, RXY: in.LDY, Float: true}

	OpsStore8   = MemOps{RX: in.STC, RXY: in.STCY, Store: true}
	OpsStore16  = MemOps{RX: in.STH, RXY: in.STHY, PCRel: in.STHRL, Store: true}
	OpsStore32  = MemOps{RX: in.ST, RXY: in.STY, PCRel: in.STRL, Store: true}
	OpsStore64  = MemOps{RXY: in.STG, PCRel: in.STGRL, Store: true}
	OpsStoreF32 = MemOps{RX: in.STE, RXY: in.STEY, Store: true, Float: true}
	OpsStoreF64 = MemOps{RX: in.STD, RXY: in.STDY, Store: true, Float: true}

	OpsLoadAddr = MemOps{RX: in.LA, RXY: in.LAY, PCRel: in.LARL}
)

// LoadOps selects the load instruction for a value of type t read from
// memory of the given width.  Zero size means the size of the type.
func LoadOps(t wa.Type, size wa.Size, signed bool) MemOps {
	if size == 0 {
		size = t.Size()
	}
	wide := t.Size() == wa.Size64

	switch {
	case t == wa.F32:
		return OpsLoadF32

	case t == wa.F64:
		return OpsLoadF64

	case size == wa.Size8 && signed && wide:
		return OpsLoad8S64

	case size == wa.Size8 && signed:
		return OpsLoad8S32

	case size == wa.Size8 && wide:
		return OpsLoad8U64

	case size == wa.Size8:
		return OpsLoad8U32

	case size == wa.Size16 && signed && wide:
		return OpsLoad16S64

	case size == wa.Size16 && signed:
		return OpsLoad16S32

	case size == wa.Size16 && wide:
		return OpsLoad16U64

	case size == wa.Size16:
		return OpsLoad16U32

	case size == wa.Size32 && wide && signed:
		return OpsLoad32S

	case size == wa.Size32 && wide:
		return OpsLoad32U

	case size == wa.Size32:
		return OpsLoad32

	case size == wa.Size64 && wide:
		return OpsLoad64
	}

	panic(fmt.Sprintf("%s load of size %d", t, size))
}

// StoreOps selects the store instruction for a value of type t written to
// memory of the given width.  Zero size means the size of the type.
func StoreOps(t wa.Type, size wa.Size) MemOps {
	if size == 0 {
		size = t.Size()
	}

	switch {
	case t == wa.F32:
		return OpsStoreF32

	case t == wa.F64:
		return OpsStoreF64

	case size == wa.Size8:
		return OpsStore8

	case size == wa.Size16:
		return OpsStore16

	case size == wa.Size32:
		return OpsStore32

	case size == wa.Size64 && t.Size() == wa.Size64:
		return OpsStore64
	}

	panic(fmt.Sprintf("%s store of size %d", t, size))
}

func fitsInt32(x int64) bool {
	return x >= math.MinInt32 && x <= math.MaxInt32
}

// loadImm materializes x with the shortest immediate load.
func loadImm(text *code.Buf, r reg.R, x int64) {
	switch {
	case x >= math.MinInt16 && x <= math.MaxInt16:
		in.LGHI.RegImm16(text, r, int16(x))

	case fitsInt32(x):
		in.LGFI.RegImm32(text, r, int32(x))

	default:
		in.IIHF.RegImm32(text, r, int32(x>>32))
		in.IILF.RegImm32(text, r, int32(x))
	}
}

func patchPCRel32(text []byte, site, target reloc.CodeOffset) {
	in.PatchPCRel32(text, int64(site), int64(target))
}

// literalAddr loads an address from an inline literal into r.  The literal
// is skipped by branching over it.
func literalAddr(f *gen.Func, r reg.R, kind reloc.Reloc, symbol string, addend reloc.Addend) {
	in.BRAS.RegImm16(&f.Text, r, (4+8)/2)
	f.AddReloc(f.Text.Addr, kind, symbol, addend)
	f.Text.PutUint64(0)
	in.LG.RegIndexBaseDisp(&f.Text, r, reg.None, r, 0)
}

// EmitMem emits a memory instruction.  The operand is resolved first; helper
// instructions are emitted into the scratch register when the operand cannot
// be encoded by any of the instruction's forms.  A trap is recorded at the
// memory instruction if the operand may fault and loc is set.
func EmitMem(f *gen.Func, r reg.R, m mem.Mem, ops MemOps, loc code.SourceLoc) {
	start := f.Text.Addr
	defer f.Trace(start)

	m = m.Resolve(f.Frame, RegStackPtr, RegFramePtr)

	if m.Uses(RegScratch) {
		panic(fmt.Sprintf("s390x: scratch register %s aliases address %s", RegScratch, m))
	}
	if m.Uses(R0) {
		panic(fmt.Sprintf("s390x: address %s uses r0", m))
	}

	useScratch := func() {
		if ops.Store && !ops.Float && r == RegScratch {
			panic(fmt.Sprintf("s390x: scratch register %s is the source operand of %s", RegScratch, m))
		}
	}

	mayTrap := m.MayTrap() && loc.IsSet()
	final := func() {
		if mayTrap {
			f.AddTrap(trap.HeapOutOfBounds, loc)
		}
	}

	switch m.Kind {
	case mem.KindLabel:
		if ops.PCRel != 0 {
			final()
			f.UseLabel(m.Label, f.Text.Addr, patchPCRel32)
			ops.PCRel.RegPCRel(&f.Text, r)
			return
		}

		useScratch()
		f.UseLabel(m.Label, f.Text.Addr, patchPCRel32)
		in.LARL.RegPCRel(&f.Text, RegScratch)
		m = mem.RegOffset(RegScratch, 0)

	case mem.KindSymbol:
		if m.Colocated && m.Addend&1 == 0 && ops.PCRel != 0 {
			final()
			f.AddReloc(f.Text.Addr+2, reloc.S390xPCRel32Dbl, m.Symbol, m.Addend+2)
			ops.PCRel.RegPCRel(&f.Text, r)
			return
		}

		useScratch()
		if m.Colocated {
			f.AddReloc(f.Text.Addr+2, reloc.S390xPCRel32Dbl, m.Symbol, m.Addend&^1+2)
			in.LARL.RegPCRel(&f.Text, RegScratch)
			m = mem.RegOffset(RegScratch, int64(m.Addend&1))
		} else {
			literalAddr(f, RegScratch, reloc.Abs8, m.Symbol, m.Addend)
			m = mem.RegOffset(RegScratch, 0)
		}

	case mem.KindRegReg:
		m = mem.RegIndexOffset(m.Base, m.Index, m.Shift, 0)
	}

	base, index, shift, disp := m.Base, m.Index, m.Shift, m.Disp
	if !m.HasIndex() {
		index = reg.None
	}

	if index.Valid() && shift != 0 {
		if shift > 63 {
			panic(fmt.Sprintf("s390x: address %s has invalid shift", m))
		}
		useScratch()
		in.SLLG.RegRegBaseDisp(&f.Text, RegScratch, index, reg.None, int64(shift))
		index = RegScratch
	}

	if !in.FitsDisp20(disp) {
		useScratch()
		if index == RegScratch {
			if !fitsInt32(disp) {
				panic(fmt.Sprintf("s390x: address %s has both shifted index and wide displacement", m))
			}
			in.AGFI.RegImm32(&f.Text, RegScratch, int32(disp))
		} else {
			loadImm(&f.Text, RegScratch, disp)
			if index.Valid() {
				in.AGR.RegReg(&f.Text, RegScratch, index)
			}
			index = RegScratch
		}
		disp = 0
	}

	switch {
	case ops.RX != 0 && in.FitsDisp12(disp):
		final()
		ops.RX.RegIndexBaseDisp(&f.Text, r, index, base, disp)

	case ops.RXY != 0:
		final()
		ops.RXY.RegIndexBaseDisp(&f.Text, r, index, base, disp)

	default:
		panic(fmt.Sprintf("s390x: no instruction form for operand %s", m))
	}
}
