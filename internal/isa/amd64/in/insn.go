// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package in encodes x86-64 instructions.
package in

const (
	// Opcode bits of some instructions are located at this offset in the ModRM
	// byte (ModRO part) or a standalone opcode byte.
	opcodeBase = 3
)

const (
	ADD     = RM(0x03)
	PUSHo   = O(0x50)
	POPo    = O(0x58)
	MOVSXD  = RM(0x63) // I64 only
	ADDi    = MI(0x81<<16 | 0x83<<8 | 0<<opcodeBase)
	SUBi    = MI(0x81<<16 | 0x83<<8 | 5<<opcodeBase)
	MOV8mr  = RMdata8(0x88)
	MOV16mr = RMdata16(0x89)
	MOVmr   = RM(0x89)
	MOV     = RM(0x8b)
	LEA     = RM(0x8d)
	UD2     = NP2(0x0f<<8 | 0x0b)
	MOVZX8  = RM2(0x0f<<8 | 0xb6)
	MOVZX16 = RM2(0x0f<<8 | 0xb7)
	MOV64i  = OI(0xb8)
	MOVSX8  = RM2(0x0f<<8 | 0xbe)
	MOVSX16 = RM2(0x0f<<8 | 0xbf)
	SHLi    = MI(0xc1<<8 | 4<<opcodeBase)
	RET     = NP(0xc3)
	MOVi    = MI(0xc7<<16 | 0<<opcodeBase)
	INT3    = NP(0xcc)
	CALLcd  = Dd(0xe8)
	JMPcd   = Dd(0xe9)
	CALL    = M(0xff<<8 | 2<<opcodeBase)

	// SSE opcodes
	MOVSx   = RMscalar(0x10) // MOVSS or MOVSD
	MOVSxmr = RMscalar(0x11) // register parameters reversed
)
