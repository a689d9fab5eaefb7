// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"encoding/binary"

	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/isa/reg"
	"gate.computer/safepoint/wa"
)

func typeScalarPrefix(t wa.Type) byte { return byte(t)>>2 | 0xf2 } // 0xf3 or 0xf2

type output struct {
	buf    [16]byte
	offset uint8
}

func (o *output) len() int           { return int(o.offset) }
func (o *output) copy(target []byte) { copy(target, o.buf[:o.offset]) }

func (o *output) byte(b byte) {
	o.buf[o.offset] = b
	o.offset++
}

// word appends the two bytes of a big-endian word.
func (o *output) word(w uint16) {
	binary.BigEndian.PutUint16(o.buf[o.offset:], w)
	o.offset += 2
}

func (o *output) rex(wrxb rexWRXB) {
	o.buf[o.offset] = Rex | byte(wrxb)
	o.offset++
}

func (o *output) rexIf(wrxb rexWRXB) {
	o.buf[o.offset] = Rex | byte(wrxb)
	o.offset += bit(wrxb != 0)
}

func (o *output) mod(mod Mod, ro ModRO, rm ModRM) {
	o.buf[o.offset] = byte(mod) | byte(ro) | byte(rm)
	o.offset++
}

func (o *output) sib(s Scale, i Index, b Base) {
	o.buf[o.offset] = byte(s) | byte(i) | byte(b)
	o.offset++
}

func (o *output) int8(val int8) {
	o.buf[o.offset] = uint8(val)
	o.offset++
}

func (o *output) int32(val int32) {
	binary.LittleEndian.PutUint32(o.buf[o.offset:], uint32(val))
	o.offset += 4
}

func (o *output) int64(val int64) {
	binary.LittleEndian.PutUint64(o.buf[o.offset:], uint64(val))
	o.offset += 8
}

func (o *output) int(val int32, size uint8) {
	// Little-endian byte order works for any size
	binary.LittleEndian.PutUint32(o.buf[o.offset:], uint32(val))
	o.offset += size
}

// Memory operand tails (ModRM, optional SIB, displacement).

func (o *output) memDisp(r, base reg.R, disp int32) {
	mod, dispSize := baseModSize(base, disp)
	if base&7 == RegStack {
		o.mod(mod, regRO(r), ModRMSIB)
		o.sib(Scale0, noIndex, regBase(base))
	} else {
		o.mod(mod, regRO(r), regRM(base))
	}
	o.int(disp, dispSize)
}

func (o *output) memIndexDisp(r, base, index reg.R, s Scale, disp int32) {
	mod, dispSize := baseModSize(base, disp)
	o.mod(mod, regRO(r), ModRMSIB)
	o.sib(s, regIndex(index), regBase(base))
	o.int(disp, dispSize)
}

func (o *output) memRIPDisp(r reg.R, disp int32) {
	o.mod(ModMem, regRO(r), ModRMDisp32)
	o.int32(disp)
}

func (o *output) memReg(r, r2 reg.R) {
	o.mod(ModReg, regRO(r), regRM(r2))
}

// Opcode heads emit prefixes, REX and opcode bytes.

type head interface {
	head(o *output, t wa.Type, rxb rexWRXB)
}

func emitRegReg(text *code.Buf, op head, t wa.Type, r, r2 reg.R) {
	var o output
	op.head(&o, t, regRexR(r)|regRexB(r2))
	o.memReg(r, r2)
	o.copy(text.Extend(o.len()))
}

func emitRegMemDisp(text *code.Buf, op head, t wa.Type, r, base reg.R, disp int32) {
	var o output
	op.head(&o, t, regRexR(r)|regRexB(base))
	o.memDisp(r, base, disp)
	o.copy(text.Extend(o.len()))
}

func emitRegMemIndexDisp(text *code.Buf, op head, t wa.Type, r, base, index reg.R, s Scale, disp int32) {
	var o output
	op.head(&o, t, regRexR(r)|regRexX(index)|regRexB(base))
	o.memIndexDisp(r, base, index, s, disp)
	o.copy(text.Extend(o.len()))
}

func emitRegRIPDisp(text *code.Buf, op head, t wa.Type, r reg.R, disp int32) {
	var o output
	op.head(&o, t, regRexR(r))
	o.memRIPDisp(r, disp)
	o.copy(text.Extend(o.len()))
}

// NP

type NP byte

func (op NP) Simple(text *code.Buf) {
	text.PutByte(byte(op))
}

// NP with two opcode bytes

type NP2 uint16

func (op NP2) Simple(text *code.Buf) {
	var o output
	o.word(uint16(op))
	o.copy(text.Extend(o.len()))
}

// O

type O byte

func (op O) Reg(text *code.Buf, r reg.R) {
	var o output
	o.rexIf(regRexB(r))
	o.byte(byte(op) + byte(r&7))
	o.copy(text.Extend(o.len()))
}

// OI

type OI byte

// RegImm64 emits MOV with a 64-bit immediate.  The immediate occupies the
// last 8 bytes of the instruction.
func (op OI) RegImm64(text *code.Buf, r reg.R, val int64) {
	var o output
	o.rex(RexW | regRexB(r))
	o.byte(byte(op) + byte(r&7))
	o.int64(val)
	o.copy(text.Extend(o.len()))
}

// M

type M uint16 // opcode byte and ModRO byte

func (op M) Reg(text *code.Buf, t wa.Type, r reg.R) {
	var o output
	o.rexIf(typeRexW(t) | regRexB(r))
	o.byte(byte(op >> 8))
	o.mod(ModReg, ModRO(op), regRM(r))
	o.copy(text.Extend(o.len()))
}

// MI

type MI uint32 // 32-bit opcode byte, 8-bit opcode byte, and ModRO byte

// RegImm selects the 8-bit immediate form when the value fits.
func (op MI) RegImm(text *code.Buf, t wa.Type, r reg.R, val int32) {
	opcode, immSize := immOpcodeSize(uint16(op>>8), val)
	if opcode == 0 {
		opcode = byte(op >> 16) // only the 32-bit form exists
		immSize = 4
	}

	var o output
	o.rexIf(typeRexW(t) | regRexB(r))
	o.byte(opcode)
	o.mod(ModReg, ModRO(op), regRM(r))
	o.int(val, immSize)
	o.copy(text.Extend(o.len()))
}

// RegImm8 is for instructions which only have an 8-bit immediate form.
func (op MI) RegImm8(text *code.Buf, t wa.Type, r reg.R, val int8) {
	var o output
	o.rexIf(typeRexW(t) | regRexB(r))
	o.byte(byte(op >> 8))
	o.mod(ModReg, ModRO(op), regRM(r))
	o.int8(val)
	o.copy(text.Extend(o.len()))
}

// D

type Dd byte // opcode byte with 32-bit displacement

// Stub32 emits the instruction with zero displacement.  The displacement
// occupies the last 4 bytes of the instruction.
func (op Dd) Stub32(text *code.Buf) {
	var o output
	o.byte(byte(op))
	o.int32(0)
	o.copy(text.Extend(o.len()))
}

// RM (MR)

type RM byte       // opcode byte
type RM2 uint16    // two opcode bytes
type RMscalar byte // second opcode byte; type-dependent fixed-length prefix
type RMdata8 byte  // opcode byte; 8-bit operand size
type RMdata16 byte // opcode byte; 16-bit operand size

func (op RM) head(o *output, t wa.Type, rxb rexWRXB) {
	o.rexIf(typeRexW(t) | rxb)
	o.byte(byte(op))
}

func (op RM2) head(o *output, t wa.Type, rxb rexWRXB) {
	o.rexIf(typeRexW(t) | rxb)
	o.word(uint16(op))
}

func (op RMscalar) head(o *output, t wa.Type, rxb rexWRXB) {
	o.byte(typeScalarPrefix(t))
	o.rexIf(rxb)
	o.byte(0x0f)
	o.byte(byte(op))
}

func (op RMdata8) head(o *output, _ wa.Type, rxb rexWRXB) {
	o.rex(rxb) // Access low byte of rsp, rbp, rsi and rdi
	o.byte(byte(op))
}

func (op RMdata16) head(o *output, _ wa.Type, rxb rexWRXB) {
	o.byte(0x66)
	o.rexIf(rxb)
	o.byte(byte(op))
}

func (op RM) RegReg(text *code.Buf, t wa.Type, r, r2 reg.R) {
	emitRegReg(text, op, t, r, r2)
}
func (op RM) RegMemDisp(text *code.Buf, t wa.Type, r, base reg.R, disp int32) {
	emitRegMemDisp(text, op, t, r, base, disp)
}
func (op RM) RegMemIndexDisp(text *code.Buf, t wa.Type, r, base, index reg.R, s Scale, disp int32) {
	emitRegMemIndexDisp(text, op, t, r, base, index, s, disp)
}
func (op RM) RegRIPDisp(text *code.Buf, t wa.Type, r reg.R, disp int32) {
	emitRegRIPDisp(text, op, t, r, disp)
}

func (op RM2) RegMemDisp(text *code.Buf, t wa.Type, r, base reg.R, disp int32) {
	emitRegMemDisp(text, op, t, r, base, disp)
}
func (op RM2) RegMemIndexDisp(text *code.Buf, t wa.Type, r, base, index reg.R, s Scale, disp int32) {
	emitRegMemIndexDisp(text, op, t, r, base, index, s, disp)
}
func (op RM2) RegRIPDisp(text *code.Buf, t wa.Type, r reg.R, disp int32) {
	emitRegRIPDisp(text, op, t, r, disp)
}

func (op RMscalar) RegReg(text *code.Buf, t wa.Type, r, r2 reg.R) {
	emitRegReg(text, op, t, r, r2)
}
func (op RMscalar) RegMemDisp(text *code.Buf, t wa.Type, r, base reg.R, disp int32) {
	emitRegMemDisp(text, op, t, r, base, disp)
}
func (op RMscalar) RegMemIndexDisp(text *code.Buf, t wa.Type, r, base, index reg.R, s Scale, disp int32) {
	emitRegMemIndexDisp(text, op, t, r, base, index, s, disp)
}
func (op RMscalar) RegRIPDisp(text *code.Buf, t wa.Type, r reg.R, disp int32) {
	emitRegRIPDisp(text, op, t, r, disp)
}

func (op RMdata8) RegMemDisp(text *code.Buf, t wa.Type, r, base reg.R, disp int32) {
	emitRegMemDisp(text, op, t, r, base, disp)
}
func (op RMdata8) RegMemIndexDisp(text *code.Buf, t wa.Type, r, base, index reg.R, s Scale, disp int32) {
	emitRegMemIndexDisp(text, op, t, r, base, index, s, disp)
}

func (op RMdata16) RegMemDisp(text *code.Buf, t wa.Type, r, base reg.R, disp int32) {
	emitRegMemDisp(text, op, t, r, base, disp)
}
func (op RMdata16) RegMemIndexDisp(text *code.Buf, t wa.Type, r, base, index reg.R, s Scale, disp int32) {
	emitRegMemIndexDisp(text, op, t, r, base, index, s, disp)
}
