// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package in encodes ARM64 instructions.
package in

import (
	"gate.computer/safepoint/isa/reg"
	"gate.computer/safepoint/wa"
)

// Register number 31 is either the stack pointer or the zero register,
// depending on the instruction.
const (
	RegSP = reg.R(31)
	RegZR = reg.R(31)
)

// sf sets bit 31 based on size.
func sf(t wa.Size) uint32 {
	bit4 := uint32(t & 8)
	return bit4 << 28
}

// scalarType sets bit 22 based on size.
func scalarType(t wa.Size) uint32 {
	bit4 := uint32(t & 8)
	return bit4 << 19
}

func Int7(i int32) uint32  { return uint32(i) & 0x7f }
func Int9(i int32) uint32  { return uint32(i) & 0x1ff }
func Int19(i int32) uint32 { return uint32(i) & 0x7ffff }
func Int26(i int32) uint32 { return uint32(i) & 0x3ffffff }

type S uint32

const (
	Unscaled = S(0 << 12)
	Scaled   = S(1 << 12)
)

type Shift uint32

const (
	LSL = Shift(0 << 22)
	LSR = Shift(1 << 22)
	ASR = Shift(2 << 22)
)

type Ext uint32

const (
	UB = Ext(0 << 13)
	UH = Ext(1 << 13)
	UW = Ext(2 << 13)
	UX = Ext(3 << 13) // LSL when used with 64-bit registers
	SB = Ext(4 << 13)
	SH = Ext(5 << 13)
	SW = Ext(6 << 13)
	SX = Ext(7 << 13)
)

type (
	Imm16                uint32
	Imm26                uint32
	Reg                  uint32
	RegImm16HwSf         uint32
	RegImm19             uint32
	RegImm19Imm2         uint32
	RegRegImm3ExtRegSf   uint32
	RegRegImm6RegShiftSf uint32
	RegRegImm9           uint32
	RegRegImm12          uint32
	RegRegImm12ShiftSf   uint32
	RegRegRegImm7        uint32
	RegRegSOptionReg     uint32
	RegRegType           uint32
)

func (op Imm16) I16(imm uint32) uint32 {
	return uint32(op) | imm<<5
}

func (op Imm26) I26(imm uint32) uint32 {
	return uint32(op) | imm
}

func (op Reg) Rn(rn reg.R) uint32 {
	return uint32(op) | uint32(rn)<<5
}

func (op RegImm16HwSf) RdI16Hw(rd reg.R, imm, hw uint32, t wa.Size) uint32 {
	return uint32(op) | sf(t) | hw<<21 | imm<<5 | uint32(rd)
}

func (op RegImm19) RtI19(rt reg.R, imm uint32) uint32 {
	return uint32(op) | imm<<5 | uint32(rt)
}

func (op RegImm19Imm2) RdI19hiI2lo(r reg.R, hi, lo uint32) uint32 {
	return uint32(op) | lo<<29 | hi<<5 | uint32(r)
}

func (op RegRegImm3ExtRegSf) RdRnI3ExtRm(rd, rn reg.R, imm uint32, option Ext, rm reg.R, t wa.Size) uint32 {
	return uint32(op) | sf(t) | uint32(rm)<<16 | uint32(option) | imm<<10 | uint32(rn)<<5 | uint32(rd)
}

func (op RegRegImm6RegShiftSf) RdRnI6RmS2(rd, rn reg.R, imm uint32, rm reg.R, shift Shift, t wa.Size) uint32 {
	return uint32(op) | sf(t) | uint32(shift) | uint32(rm)<<16 | imm<<10 | uint32(rn)<<5 | uint32(rd)
}

func (op RegRegImm9) RtRnI9(rt, rn reg.R, imm uint32) uint32 {
	return uint32(op) | imm<<12 | uint32(rn)<<5 | uint32(rt)
}

func (op RegRegImm12) RtRnI12(rt, rn reg.R, imm uint32) uint32 {
	return uint32(op) | imm<<10 | uint32(rn)<<5 | uint32(rt)
}

func (op RegRegImm12ShiftSf) RdRnI12S2(rd, rn reg.R, imm, shift uint32, t wa.Size) uint32 {
	return uint32(op) | sf(t) | shift<<22 | imm<<10 | uint32(rn)<<5 | uint32(rd)
}

func (op RegRegRegImm7) RtRt2RnI7(rt, rt2, rn reg.R, imm uint32) uint32 {
	return uint32(op) | imm<<15 | uint32(rt2)<<10 | uint32(rn)<<5 | uint32(rt)
}

func (op RegRegSOptionReg) RtRnSOptionRm(rt, rn reg.R, s S, option Ext, rm reg.R) uint32 {
	return uint32(op) | uint32(rm)<<16 | uint32(option) | uint32(s) | uint32(rn)<<5 | uint32(rt)
}

func (op RegRegType) RdRn(rd, rn reg.R, t wa.Size) uint32 {
	return uint32(op) | scalarType(t) | uint32(rn)<<5 | uint32(rd)
}
