// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amd64 emits x86-64 machine code.
package amd64

import (
	"encoding/binary"
	"fmt"
	"math"

	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/amd64/in"
	"gate.computer/safepoint/isa/mem"
	"gate.computer/safepoint/isa/reg"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/trap"
	"gate.computer/safepoint/wa"
)

type regMemDispInsn interface {
	RegMemDisp(text *code.Buf, t wa.Type, r, base reg.R, disp int32)
}
type regMemIndexDispInsn interface {
	RegMemIndexDisp(text *code.Buf, t wa.Type, r, base, index reg.R, s in.Scale, disp int32)
}
type regRIPDispInsn interface {
	RegRIPDisp(text *code.Buf, t wa.Type, r reg.R, disp int32)
}

// MemOps lists the addressing forms of a memory instruction.  Nil fields are
// forms which the instruction lacks.
type MemOps struct {
	Disp  regMemDispInsn      // [base + disp8/disp32]
	Index regMemIndexDispInsn // [base + index*scale + disp8/disp32]
	RIP   regRIPDispInsn      // [rip + disp32]
	Store bool                // The register operand is read.
}

type (
	opLoadInt32S    struct{}
	opLoadInt32U    struct{}
	opStoreRegInt32 struct{}
)

func (opLoadInt32S) RegMemDisp(text *code.Buf, _ wa.Type, r, base reg.R, disp int32) {
	in.MOVSXD.RegMemDisp(text, wa.I64, r, base, disp)
}
func (opLoadInt32S) RegMemIndexDisp(text *code.Buf, _ wa.Type, r, base, index reg.R, s in.Scale, disp int32) {
	in.MOVSXD.RegMemIndexDisp(text, wa.I64, r, base, index, s, disp)
}
func (opLoadInt32S) RegRIPDisp(text *code.Buf, _ wa.Type, r reg.R, disp int32) {
	in.MOVSXD.RegRIPDisp(text, wa.I64, r, disp)
}

func (opLoadInt32U) RegMemDisp(text *code.Buf, _ wa.Type, r, base reg.R, disp int32) {
	in.MOV.RegMemDisp(text, wa.I32, r, base, disp)
}
func (opLoadInt32U) RegMemIndexDisp(text *code.Buf, _ wa.Type, r, base, index reg.R, s in.Scale, disp int32) {
	in.MOV.RegMemIndexDisp(text, wa.I32, r, base, index, s, disp)
}
func (opLoadInt32U) RegRIPDisp(text *code.Buf, _ wa.Type, r reg.R, disp int32) {
	in.MOV.RegRIPDisp(text, wa.I32, r, disp)
}

func (opStoreRegInt32) RegMemDisp(text *code.Buf, _ wa.Type, r, base reg.R, disp int32) {
	in.MOVmr.RegMemDisp(text, wa.I32, r, base, disp)
}
func (opStoreRegInt32) RegMemIndexDisp(text *code.Buf, _ wa.Type, r, base, index reg.R, s in.Scale, disp int32) {
	in.MOVmr.RegMemIndexDisp(text, wa.I32, r, base, index, s, disp)
}
func (opStoreRegInt32) RegRIPDisp(text *code.Buf, _ wa.Type, r reg.R, disp int32) {
	in.MOVmr.RegRIPDisp(text, wa.I32, r, disp)
}

func allForms(op interface {
	regMemDispInsn
	regMemIndexDispInsn
	regRIPDispInsn
}, store bool) MemOps {
	return MemOps{op, op, op, store}
}

var (
	OpsLoad     = allForms(in.MOV, false)
	OpsLoad8S   = allForms(in.MOVSX8, false)
	OpsLoad8U   = allForms(in.MOVZX8, false)
	OpsLoad16S  = allForms(in.MOVSX16, false)
	OpsLoad16U  = allForms(in.MOVZX16, false)
	OpsLoad32S  = allForms(opLoadInt32S{}, false)
	OpsLoad32U  = allForms(opLoadInt32U{}, false)
	OpsLoadF    = allForms(in.MOVSx, false)
	OpsStore    = allForms(in.MOVmr, true)
	OpsStore32  = allForms(opStoreRegInt32{}, true)
	OpsStoreF   = allForms(in.MOVSxmr, true)
	OpsLoadAddr = allForms(in.LEA, false)

	// Narrow stores have no RIP-relative form here; labels and symbols go
	// through the scratch register.
	OpsStore8  = MemOps{Disp: in.MOV8mr, Index: in.MOV8mr, Store: true}
	OpsStore16 = MemOps{Disp: in.MOV16mr, Index: in.MOV16mr, Store: true}
)

// LoadOps selects the load instruction for a value of type t read from
// memory of the given width.  Zero size means the size of the type.
func LoadOps(t wa.Type, size wa.Size, signed bool) MemOps {
	if t.Category() == wa.Float {
		return OpsLoadF
	}

	switch {
	case size == 0 || size == t.Size():
		return OpsLoad

	case size == wa.Size8 && signed:
		return OpsLoad8S

	case size == wa.Size8:
		return OpsLoad8U

	case size == wa.Size16 && signed:
		return OpsLoad16S

	case size == wa.Size16:
		return OpsLoad16U

	case size == wa.Size32 && signed:
		return OpsLoad32S

	case size == wa.Size32:
		return OpsLoad32U
	}

	panic(fmt.Sprintf("%s load of size %d", t, size))
}

// StoreOps selects the store instruction for a value of type t written to
// memory of the given width.  Zero size means the size of the type.
func StoreOps(t wa.Type, size wa.Size) MemOps {
	if t.Category() == wa.Float {
		return OpsStoreF
	}

	switch {
	case size == 0 || size == t.Size():
		return OpsStore

	case size == wa.Size8:
		return OpsStore8

	case size == wa.Size16:
		return OpsStore16

	case size == wa.Size32:
		return OpsStore32
	}

	panic(fmt.Sprintf("%s store of size %d", t, size))
}

func putInt32(b []byte, x int32) {
	binary.LittleEndian.PutUint32(b, uint32(x))
}

func fitsInt32(x int64) bool {
	return x >= math.MinInt32 && x <= math.MaxInt32
}

// patchRel32 updates a 32-bit displacement which is relative to the end of
// the instruction (site).
func patchRel32(text []byte, site, target reloc.CodeOffset) {
	putInt32(text[site-4:], int32(target)-int32(site))
}

// EmitMem emits a memory instruction.  The operand is resolved first; helper
// instructions are emitted into the scratch register when the operand cannot
// be encoded by any of the instruction's forms.  A trap is recorded at the
// memory instruction if the operand may fault and loc is set.
func EmitMem(f *gen.Func, t wa.Type, r reg.R, m mem.Mem, ops MemOps, loc code.SourceLoc) {
	start := f.Text.Addr
	defer f.Trace(start)

	m = m.Resolve(f.Frame, RegStackPtr, RegFramePtr)

	if m.Uses(RegScratch) {
		panic(fmt.Sprintf("amd64: scratch register %s aliases address %s", RegScratch, m))
	}

	useScratch := func() {
		if ops.Store && t.Category() == wa.Int && r == RegScratch {
			panic(fmt.Sprintf("amd64: scratch register %s is the source operand of %s", RegScratch, m))
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
		if ops.RIP != nil {
			final()
			ops.RIP.RegRIPDisp(&f.Text, t, r, 0)
			f.UseLabel(m.Label, f.Text.Addr, patchRel32)
			return
		}

		useScratch()
		in.LEA.RegRIPDisp(&f.Text, wa.I64, RegScratch, 0)
		f.UseLabel(m.Label, f.Text.Addr, patchRel32)
		m = mem.RegOffset(RegScratch, 0)

	case mem.KindSymbol:
		if m.Colocated && ops.RIP != nil {
			final()
			ops.RIP.RegRIPDisp(&f.Text, t, r, 0)
			f.AddReloc(f.Text.Addr-4, reloc.X86PCRel4, m.Symbol, m.Addend-4)
			return
		}

		useScratch()
		if m.Colocated {
			in.LEA.RegRIPDisp(&f.Text, wa.I64, RegScratch, 0)
			f.AddReloc(f.Text.Addr-4, reloc.X86PCRel4, m.Symbol, m.Addend-4)
		} else {
			in.MOV64i.RegImm64(&f.Text, RegScratch, 0)
			f.AddReloc(f.Text.Addr-8, reloc.Abs8, m.Symbol, m.Addend)
		}
		m = mem.RegOffset(RegScratch, 0)

	case mem.KindRegReg:
		m = mem.RegIndexOffset(m.Base, m.Index, m.Shift, 0)
	}

	base, index, shift, disp := m.Base, m.Index, m.Shift, m.Disp
	if !m.HasIndex() {
		index = reg.None
	}

	switch {
	case index.Valid() && shift > in.MaxShift:
		if !fitsInt32(disp) {
			panic(fmt.Sprintf("amd64: address %s has both wide shift and wide displacement", m))
		}
		useScratch()
		in.MOV.RegReg(&f.Text, wa.I64, RegScratch, index)
		in.SHLi.RegImm8(&f.Text, wa.I64, RegScratch, int8(shift))
		in.ADD.RegReg(&f.Text, wa.I64, RegScratch, base)
		base, index, shift = RegScratch, reg.None, 0

	case !fitsInt32(disp):
		useScratch()
		in.MOV64i.RegImm64(&f.Text, RegScratch, disp)
		if index.Valid() {
			in.LEA.RegMemIndexDisp(&f.Text, wa.I64, RegScratch, RegScratch, index, in.ShiftScale(shift), 0)
		}
		if ops.Index != nil {
			index, shift, disp = RegScratch, 0, 0
		} else {
			in.ADD.RegReg(&f.Text, wa.I64, RegScratch, base)
			base, index, shift, disp = RegScratch, reg.None, 0, 0
		}

	case index.Valid() && ops.Index == nil:
		useScratch()
		in.LEA.RegMemIndexDisp(&f.Text, wa.I64, RegScratch, base, index, in.ShiftScale(shift), int32(disp))
		base, index, shift, disp = RegScratch, reg.None, 0, 0
	}

	switch {
	case index.Valid() && ops.Index != nil:
		final()
		ops.Index.RegMemIndexDisp(&f.Text, t, r, base, index, in.ShiftScale(shift), int32(disp))

	case !index.Valid() && ops.Disp != nil:
		final()
		ops.Disp.RegMemDisp(&f.Text, t, r, base, int32(disp))

	default:
		panic(fmt.Sprintf("amd64: no instruction form for operand %s", m))
	}
}
