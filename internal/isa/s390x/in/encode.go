// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package in encodes z/Architecture instructions.  Instructions are made of
// big-endian halfwords.
package in

import (
	"encoding/binary"
	"fmt"

	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/isa/reg"
)

// Displacement field limits.
const (
	MaxDisp12 = 1<<12 - 1
	MinDisp20 = -1 << 19
	MaxDisp20 = 1<<19 - 1
)

func FitsDisp12(d int64) bool { return d >= 0 && d <= MaxDisp12 }
func FitsDisp20(d int64) bool { return d >= MinDisp20 && d <= MaxDisp20 }

func r4(r reg.R) byte {
	if r > 15 {
		panic(fmt.Sprintf("s390x: invalid register %s", r))
	}
	return byte(r)
}

// rx returns the field value of an optional index register; register 0
// means no index.
func rx(r reg.R) byte {
	if !r.Valid() {
		return 0
	}
	if r == 0 {
		panic("s390x: r0 cannot be used as an index register")
	}
	return r4(r)
}

func rb(r reg.R) byte {
	if r == 0 {
		panic("s390x: r0 cannot be used as a base register")
	}
	return r4(r)
}

type (
	RR  uint8  // op R1 R2
	RRE uint16 // op 0 R1 R2
	RI  uint16 // op1 R1 op2 I2(16)
	RIL uint16 // op1 R1 op2 I2(32)
	RX  uint8  // op R1 X2 B2 D2(12)
	RXY uint16 // op1 R1 X2 B2 DL2(12) DH2(8) op2
	RSY uint16 // op1 R1 R3 B2 DL2(12) DH2(8) op2
)

func (op RR) RegReg(text *code.Buf, r1, r2 reg.R) {
	b := text.Extend(2)
	b[0] = byte(op)
	b[1] = r4(r1)<<4 | r4(r2)
}

func (op RRE) RegReg(text *code.Buf, r1, r2 reg.R) {
	b := text.Extend(4)
	binary.BigEndian.PutUint16(b, uint16(op))
	b[2] = 0
	b[3] = r4(r1)<<4 | r4(r2)
}

func (op RI) RegImm16(text *code.Buf, r1 reg.R, imm int16) {
	b := text.Extend(4)
	b[0] = byte(op >> 4)
	b[1] = r4(r1)<<4 | byte(op&0xf)
	binary.BigEndian.PutUint16(b[2:], uint16(imm))
}

func (op RIL) RegImm32(text *code.Buf, r1 reg.R, imm int32) {
	b := text.Extend(6)
	b[0] = byte(op >> 4)
	b[1] = r4(r1)<<4 | byte(op&0xf)
	binary.BigEndian.PutUint32(b[2:], uint32(imm))
}

// RegPCRel emits a PC-relative instruction with a zero displacement, to be
// patched or relocated.  The displacement field is at offset 2.
func (op RIL) RegPCRel(text *code.Buf, r1 reg.R) {
	op.RegImm32(text, r1, 0)
}

func (op RX) RegIndexBaseDisp(text *code.Buf, r1, x2, b2 reg.R, d2 int64) {
	if !FitsDisp12(d2) {
		panic(fmt.Sprintf("s390x: displacement %d does not fit in 12 bits", d2))
	}

	b := text.Extend(4)
	b[0] = byte(op)
	b[1] = r4(r1)<<4 | rx(x2)
	binary.BigEndian.PutUint16(b[2:], uint16(rb(b2))<<12|uint16(d2))
}

func (op RXY) RegIndexBaseDisp(text *code.Buf, r1, x2, b2 reg.R, d2 int64) {
	if !FitsDisp20(d2) {
		panic(fmt.Sprintf("s390x: displacement %d does not fit in 20 bits", d2))
	}

	b := text.Extend(6)
	b[0] = byte(op >> 8)
	b[1] = r4(r1)<<4 | rx(x2)
	binary.BigEndian.PutUint16(b[2:], uint16(rb(b2))<<12|uint16(d2&0xfff))
	b[4] = byte(d2 >> 12)
	b[5] = byte(op)
}

// RegRegBaseDisp encodes a shift or a multiple-register operation.  Base
// register 0 means no base.
func (op RSY) RegRegBaseDisp(text *code.Buf, r1, r3, b2 reg.R, d2 int64) {
	if !FitsDisp20(d2) {
		panic(fmt.Sprintf("s390x: displacement %d does not fit in 20 bits", d2))
	}

	base := byte(0)
	if b2.Valid() {
		base = r4(b2)
	}

	b := text.Extend(6)
	b[0] = byte(op >> 8)
	b[1] = r4(r1)<<4 | r4(r3)
	binary.BigEndian.PutUint16(b[2:], uint16(base)<<12|uint16(d2&0xfff))
	b[4] = byte(d2 >> 12)
	b[5] = byte(op)
}

// PatchPCRel32 updates the halfword displacement of a RIL instruction at
// site.
func PatchPCRel32(text []byte, site, target int64) {
	disp := target - site
	if disp&1 != 0 || disp/2 < -1<<31 || disp/2 >= 1<<31 {
		panic(fmt.Sprintf("s390x: invalid relative displacement %d", disp))
	}
	binary.BigEndian.PutUint32(text[site+2:], uint32(int32(disp/2)))
}

// PatchPCRel16 updates the halfword displacement of a RI branch at site.
func PatchPCRel16(text []byte, site, target int64) {
	disp := target - site
	if disp&1 != 0 || disp/2 < -1<<15 || disp/2 >= 1<<15 {
		panic(fmt.Sprintf("s390x: invalid relative displacement %d", disp))
	}
	binary.BigEndian.PutUint16(text[site+2:], uint16(int16(disp/2)))
}
