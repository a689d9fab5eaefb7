// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arm64 emits ARM64 machine code.
package arm64

import (
	"encoding/binary"
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

func insn(text *code.Buf, i uint32) {
	text.PutUint32(i)
}

// LoadOp selects the load instruction for a value of type t read from memory
// of the given width.  Zero size means the size of the type.
func LoadOp(t wa.Type, size wa.Size, signed bool) in.Memory {
	if size == 0 {
		size = t.Size()
	}

	switch {
	case t == wa.F32:
		return in.LoadF32

	case t == wa.F64:
		return in.LoadF64

	case size == wa.Size8 && !signed:
		return in.LoadB

	case size == wa.Size8 && t.Size() == wa.Size32:
		return in.LoadSB32

	case size == wa.Size8:
		return in.LoadSB64

	case size == wa.Size16 && !signed:
		return in.LoadH

	case size == wa.Size16 && t.Size() == wa.Size32:
		return in.LoadSH32

	case size == wa.Size16:
		return in.LoadSH64

	case size == wa.Size32 && signed && t.Size() == wa.Size64:
		return in.LoadSW64

	case size == wa.Size32:
		return in.LoadW

	case size == wa.Size64 && t.Size() == wa.Size64:
		return in.LoadD
	}

	panic(fmt.Sprintf("%s load of size %d", t, size))
}

// StoreOp selects the store instruction for a value of type t written to
// memory of the given width.  Zero size means the size of the type.
func StoreOp(t wa.Type, size wa.Size) in.Memory {
	if size == 0 {
		size = t.Size()
	}

	switch {
	case t == wa.F32:
		return in.StoreF32

	case t == wa.F64:
		return in.StoreF64

	case size == wa.Size8:
		return in.StoreB

	case size == wa.Size16:
		return in.StoreH

	case size == wa.Size32:
		return in.StoreW

	case size == wa.Size64 && t.Size() == wa.Size64:
		return in.StoreD
	}

	panic(fmt.Sprintf("%s store of size %d", t, size))
}

// moveImm materializes x with MOVZ or MOVN, followed by a MOVK for each
// remaining halfword.
func moveImm(text *code.Buf, r reg.R, x int64) {
	var zeros, ones int
	for hw := 0; hw < 4; hw++ {
		switch uint16(uint64(x) >> (hw * 16)) {
		case 0:
			zeros++
		case 0xffff:
			ones++
		}
	}

	first, fill := in.MOVZ, uint16(0)
	if ones > zeros {
		first, fill = in.MOVN, 0xffff
	}

	emitted := false
	for hw := uint32(0); hw < 4; hw++ {
		h := uint16(uint64(x) >> (hw * 16))
		if h == fill {
			continue
		}
		switch {
		case emitted:
			insn(text, in.MOVK.RdI16Hw(r, uint32(h), hw, wa.Size64))
		case first == in.MOVN:
			insn(text, first.RdI16Hw(r, uint32(^h), hw, wa.Size64))
		default:
			insn(text, first.RdI16Hw(r, uint32(h), hw, wa.Size64))
		}
		emitted = true
	}
	if !emitted {
		insn(text, first.RdI16Hw(r, 0, 0, wa.Size64))
	}
}

// addShifted computes rn + rm<<shift into rd.  The extended register form
// treats register 31 as the stack pointer when it is rn.
func addShifted(text *code.Buf, rd, rn, rm reg.R, shift uint8) {
	if shift <= 4 {
		insn(text, in.ADDe.RdRnI3ExtRm(rd, rn, uint32(shift), in.UX, rm, wa.Size64))
		return
	}

	insn(text, in.ADDs.RdRnI6RmS2(RegScratch, RegZero, uint32(shift), rm, in.LSL, wa.Size64))
	insn(text, in.ADDe.RdRnI3ExtRm(rd, rn, 0, in.UX, RegScratch, wa.Size64))
}

// addImm computes rn + x into rd.
func addImm(text *code.Buf, rd, rn reg.R, x int64) {
	switch {
	case x == 0:
		if rd != rn {
			insn(text, in.ADDi.RdRnI12S2(rd, rn, 0, 0, wa.Size64))
		}

	case x > 0 && x < 4096:
		insn(text, in.ADDi.RdRnI12S2(rd, rn, uint32(x), 0, wa.Size64))

	case x < 0 && x > -4096:
		insn(text, in.SUBi.RdRnI12S2(rd, rn, uint32(-x), 0, wa.Size64))

	default:
		moveImm(text, RegScratch, x)
		insn(text, in.ADDe.RdRnI3ExtRm(rd, rn, 0, in.UX, RegScratch, wa.Size64))
	}
}

func scaledImm(disp int64, log2 uint8) bool {
	return disp >= 0 && disp&(1<<log2-1) == 0 && disp>>log2 < 4096
}

func unscaledImm(disp int64) bool {
	return disp >= -256 && disp <= 255
}

func patchWord(text []byte, site reloc.CodeOffset, mask, bits uint32) {
	b := text[site : site+4]
	binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(b)&^mask|bits)
}

func wordDisp(site, target reloc.CodeOffset, bits uint) int32 {
	disp := (int32(target) - int32(site)) / 4
	if limit := int32(1) << (bits - 1); disp < -limit || disp >= limit {
		panic(fmt.Sprintf("arm64: branch displacement %d does not fit in %d bits", disp, bits))
	}
	return disp
}

// patchImm19 updates a literal load or a conditional branch at site.
func patchImm19(text []byte, site, target reloc.CodeOffset) {
	patchWord(text, site, 0x7ffff<<5, in.Int19(wordDisp(site, target, 19))<<5)
}

// patchImm26 updates an unconditional branch at site.
func patchImm26(text []byte, site, target reloc.CodeOffset) {
	patchWord(text, site, 0x3ffffff, in.Int26(wordDisp(site, target, 26)))
}

// patchADR updates an ADR instruction at site.
func patchADR(text []byte, site, target reloc.CodeOffset) {
	disp := int32(target) - int32(site)
	if disp < -1<<20 || disp >= 1<<20 {
		panic(fmt.Sprintf("arm64: address displacement %d is out of range", disp))
	}
	patchWord(text, site, 3<<29|0x7ffff<<5, uint32(disp&3)<<29|in.Int19(disp>>2)<<5)
}

// symbolAddr loads the address of a symbol into rd.  The address of a
// colocated symbol is computed PC-relatively; others are loaded from the
// GOT.  The returned displacement is the part of the addend which was not
// applied.
func symbolAddr(f *gen.Func, rd reg.R, m mem.Mem) int64 {
	if m.Colocated {
		f.AddReloc(f.Text.Addr, reloc.Aarch64AdrPrelPgHi21, m.Symbol, m.Addend)
		insn(&f.Text, in.ADRP.RdI19hiI2lo(rd, 0, 0))
		f.AddReloc(f.Text.Addr, reloc.Aarch64AddAbsLo12Nc, m.Symbol, m.Addend)
		insn(&f.Text, in.ADDi.RdRnI12S2(rd, rd, 0, 0, wa.Size64))
		return 0
	}

	f.AddReloc(f.Text.Addr, reloc.Aarch64AdrGotPage21, m.Symbol, 0)
	insn(&f.Text, in.ADRP.RdI19hiI2lo(rd, 0, 0))
	f.AddReloc(f.Text.Addr, reloc.Aarch64Ld64GotLo12Nc, m.Symbol, 0)
	insn(&f.Text, in.LoadD.OpcodeImm().RtRnI12(rd, rd, 0))
	return int64(m.Addend)
}

// EmitMem emits a memory instruction.  The operand is resolved first; helper
// instructions are emitted into the scratch register when the operand cannot
// be encoded directly.  A trap is recorded at the memory instruction if the
// operand may fault and loc is set.
func EmitMem(f *gen.Func, r reg.R, m mem.Mem, op in.Memory, loc code.SourceLoc) {
	start := f.Text.Addr
	defer f.Trace(start)

	m = m.Resolve(f.Frame, RegStackPtr, RegFramePtr)

	if m.Uses(RegScratch) {
		panic(fmt.Sprintf("arm64: scratch register %s aliases address %s", RegScratch, m))
	}
	if m.HasIndex() && m.Index == RegZero {
		panic(fmt.Sprintf("arm64: %s cannot be used as an index register", m.Index))
	}

	useScratch := func() {
		if op.IsStore() && !op.IsVector() && r == RegScratch {
			panic(fmt.Sprintf("arm64: scratch register %s is the source operand of %s", RegScratch, m))
		}
	}

	mayTrap := m.MayTrap() && loc.IsSet()
	final := func() {
		if mayTrap {
			f.AddTrap(trap.HeapOutOfBounds, loc)
		}
	}

	log2 := op.Log2Size()

	switch m.Kind {
	case mem.KindLabel:
		if lit, ok := op.OpcodeLiteral(); ok {
			final()
			f.UseLabel(m.Label, f.Text.Addr, patchImm19)
			insn(&f.Text, lit.RtI19(r, 0))
			return
		}

		useScratch()
		f.UseLabel(m.Label, f.Text.Addr, patchADR)
		insn(&f.Text, in.ADR.RdI19hiI2lo(RegScratch, 0, 0))
		m = mem.RegOffset(RegScratch, 0)

	case mem.KindSymbol:
		useScratch()
		m = mem.RegOffset(RegScratch, symbolAddr(f, RegScratch, m))

	case mem.KindRegReg:
		m = mem.RegIndexOffset(m.Base, m.Index, m.Shift, 0)
	}

	base, disp := m.Base, m.Disp

	if m.HasIndex() {
		index, shift := m.Index, m.Shift
		if shift > 63 {
			panic(fmt.Sprintf("arm64: address %s has invalid shift", m))
		}

		switch {
		case disp == 0 && (shift == 0 || shift == log2):
			s := in.Unscaled
			if shift != 0 {
				s = in.Scaled
			}
			final()
			insn(&f.Text, op.OpcodeReg().RtRnSOptionRm(r, base, s, in.UX, index))
			return

		case scaledImm(disp, log2) || unscaledImm(disp):
			useScratch()
			addShifted(&f.Text, RegScratch, base, index, shift)
			base = RegScratch

		default:
			useScratch()
			moveImm(&f.Text, RegScratch, disp)
			insn(&f.Text, in.ADDs.RdRnI6RmS2(RegScratch, RegScratch, uint32(shift), index, in.LSL, wa.Size64))
			final()
			insn(&f.Text, op.OpcodeReg().RtRnSOptionRm(r, base, in.Unscaled, in.UX, RegScratch))
			return
		}
	}

	switch {
	case scaledImm(disp, log2):
		final()
		insn(&f.Text, op.OpcodeImm().RtRnI12(r, base, uint32(disp>>log2)))

	case unscaledImm(disp):
		final()
		insn(&f.Text, op.OpcodeUnscaled().RtRnI9(r, base, in.Int9(int32(disp))))

	default:
		useScratch()
		moveImm(&f.Text, RegScratch, disp)
		final()
		insn(&f.Text, op.OpcodeReg().RtRnSOptionRm(r, base, in.Unscaled, in.UX, RegScratch))
	}
}

// EmitAddress computes the effective address of an operand into rd.
func EmitAddress(f *gen.Func, rd reg.R, m mem.Mem) {
	start := f.Text.Addr
	defer f.Trace(start)

	m = m.Resolve(f.Frame, RegStackPtr, RegFramePtr)

	if m.Uses(RegScratch) {
		panic(fmt.Sprintf("arm64: scratch register %s aliases address %s", RegScratch, m))
	}
	if rd == RegScratch {
		panic(fmt.Sprintf("arm64: scratch register %s is the destination of address %s", RegScratch, m))
	}

	switch m.Kind {
	case mem.KindLabel:
		f.UseLabel(m.Label, f.Text.Addr, patchADR)
		insn(&f.Text, in.ADR.RdI19hiI2lo(rd, 0, 0))
		return

	case mem.KindSymbol:
		m = mem.RegOffset(rd, symbolAddr(f, rd, m))

	case mem.KindRegReg:
		m = mem.RegIndexOffset(m.Base, m.Index, m.Shift, 0)
	}

	base := m.Base
	if m.HasIndex() {
		addShifted(&f.Text, rd, base, m.Index, m.Shift)
		base = rd
	}
	addImm(&f.Text, rd, base, m.Disp)
}
