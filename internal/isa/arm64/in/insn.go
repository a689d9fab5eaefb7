// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

const (
	// Exception generation
	BRK = Imm16(0xd4<<24 | 1<<21 | 0<<2 | 0<<0)

	// Unconditional branch (immediate)
	B  = Imm26(0<<31 | 5<<26)
	BL = Imm26(1<<31 | 5<<26)

	// Unconditional branch (register)
	BR  = Reg(0x6b<<25 | 0<<21 | 0x1f<<16 | 0<<10 | 0<<0)
	BLR = Reg(0x6b<<25 | 1<<21 | 0x1f<<16 | 0<<10 | 0<<0)
	RET = Reg(0x6b<<25 | 2<<21 | 0x1f<<16 | 0<<10 | 0<<0)

	// Load/store pair (64-bit, pre-indexed and post-indexed)
	STPpre  = RegRegRegImm7(2<<30 | 5<<27 | 0<<26 | 3<<23 | 0<<22)
	LDPpost = RegRegRegImm7(2<<30 | 5<<27 | 0<<26 | 1<<23 | 1<<22)

	// Add/subtract (immediate)
	ADDi = RegRegImm12ShiftSf(0<<30 | 0<<29 | 0x11<<24)
	SUBi = RegRegImm12ShiftSf(1<<30 | 0<<29 | 0x11<<24)

	// Move wide (immediate)
	MOVN = RegImm16HwSf(0<<29 | 0x25<<23)
	MOVZ = RegImm16HwSf(2<<29 | 0x25<<23)
	MOVK = RegImm16HwSf(3<<29 | 0x25<<23)

	// Address generation
	ADR  = RegImm19Imm2(0<<31 | 0x10<<24)
	ADRP = RegImm19Imm2(1<<31 | 0x10<<24)

	// Add/subtract (extended register); register 31 is SP as the first source
	ADDe = RegRegImm3ExtRegSf(0<<30 | 0<<29 | 0x0b<<24 | 0<<22 | 1<<21)

	// Add/subtract (shifted register)
	ADDs = RegRegImm6RegShiftSf(0<<30 | 0<<29 | 0x0b<<24 | 0<<21)

	// Logical (shifted register)
	ORRs = RegRegImm6RegShiftSf(1<<29 | 0x0a<<24 | 0<<21)

	// Floating-point move (register)
	FMOV = RegRegType(0<<31 | 0<<30 | 0<<29 | 0x1e<<24 | 1<<21 | 0<<17 | 0<<15 | 0x10<<10)
)

// Load/store instruction variants
type Memory uint32

const (
	StoreB   Memory = 0<<30 | 7<<27 | 0<<26 | 0<<24 | 0<<22
	LoadB    Memory = 0<<30 | 7<<27 | 0<<26 | 0<<24 | 1<<22
	LoadSB64 Memory = 0<<30 | 7<<27 | 0<<26 | 0<<24 | 2<<22
	LoadSB32 Memory = 0<<30 | 7<<27 | 0<<26 | 0<<24 | 3<<22
	StoreH   Memory = 1<<30 | 7<<27 | 0<<26 | 0<<24 | 0<<22
	LoadH    Memory = 1<<30 | 7<<27 | 0<<26 | 0<<24 | 1<<22
	LoadSH64 Memory = 1<<30 | 7<<27 | 0<<26 | 0<<24 | 2<<22
	LoadSH32 Memory = 1<<30 | 7<<27 | 0<<26 | 0<<24 | 3<<22
	StoreW   Memory = 2<<30 | 7<<27 | 0<<26 | 0<<24 | 0<<22
	LoadW    Memory = 2<<30 | 7<<27 | 0<<26 | 0<<24 | 1<<22
	LoadSW64 Memory = 2<<30 | 7<<27 | 0<<26 | 0<<24 | 2<<22
	StoreF32 Memory = 2<<30 | 7<<27 | 1<<26 | 0<<24 | 0<<22
	LoadF32  Memory = 2<<30 | 7<<27 | 1<<26 | 0<<24 | 1<<22
	StoreD   Memory = 3<<30 | 7<<27 | 0<<26 | 0<<24 | 0<<22
	LoadD    Memory = 3<<30 | 7<<27 | 0<<26 | 0<<24 | 1<<22
	StoreF64 Memory = 3<<30 | 7<<27 | 1<<26 | 0<<24 | 0<<22
	LoadF64  Memory = 3<<30 | 7<<27 | 1<<26 | 0<<24 | 1<<22
)

// Log2Size of the memory access in bytes.
func (op Memory) Log2Size() uint8 {
	return uint8(op >> 30)
}

// IsVector reports whether the register operand is a SIMD&FP register.
func (op Memory) IsVector() bool {
	return op&(1<<26) != 0
}

func (op Memory) IsStore() bool {
	return op&(3<<22) == 0
}

// OpcodeImm is the unsigned offset form; the immediate is scaled by the
// access size.
func (op Memory) OpcodeImm() RegRegImm12 {
	return RegRegImm12(op | 1<<24)
}

func (op Memory) OpcodeUnscaled() RegRegImm9 {
	return RegRegImm9(op | 0<<21 | 0<<10)
}

func (op Memory) OpcodeReg() RegRegSOptionReg {
	return RegRegSOptionReg(op | 1<<21 | 2<<10)
}

// OpcodeLiteral is the PC-relative load form.  Only word, doubleword,
// sign-extended word and floating-point loads have one.
func (op Memory) OpcodeLiteral() (RegImm19, bool) {
	switch op {
	case LoadW:
		return RegImm19(0<<30 | 3<<27 | 0<<26), true
	case LoadD:
		return RegImm19(1<<30 | 3<<27 | 0<<26), true
	case LoadSW64:
		return RegImm19(2<<30 | 3<<27 | 0<<26), true
	case LoadF32:
		return RegImm19(0<<30 | 3<<27 | 1<<26), true
	case LoadF64:
		return RegImm19(1<<30 | 3<<27 | 1<<26), true
	default:
		return 0, false
	}
}
