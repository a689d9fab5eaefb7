// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

// Condition masks of branch on condition.
const (
	MaskNever  = 0
	MaskAlways = 15
)

const (
	BCR  = RR(0x07)
	BASR = RR(0x0d)
	LDR  = RR(0x28)
	LER  = RR(0x38)

	LGR = RRE(0xb904)
	AGR = RRE(0xb908)

	BRC  = RI(0xa74)
	BRAS = RI(0xa75)
	LGHI = RI(0xa79)
	AGHI = RI(0xa7b)

	LARL  = RIL(0xc00)
	LGFI  = RIL(0xc01)
	BRCL  = RIL(0xc04)
	BRASL = RIL(0xc05)
	IIHF  = RIL(0xc08)
	IILF  = RIL(0xc09)
	AGFI  = RIL(0xc28)

	// PC-relative loads and stores
	LLHRL  = RIL(0xc42)
	LGHRL  = RIL(0xc44)
	LHRL   = RIL(0xc45)
	LLGHRL = RIL(0xc46)
	STHRL  = RIL(0xc47)
	LGRL   = RIL(0xc48)
	STGRL  = RIL(0xc4b)
	LGFRL  = RIL(0xc4c)
	LRL    = RIL(0xc4d)
	LLGFRL = RIL(0xc4e)
	STRL   = RIL(0xc4f)

	STH = RX(0x40)
	LA  = RX(0x41)
	STC = RX(0x42)
	LH  = RX(0x48)
	ST  = RX(0x50)
	L   = RX(0x58)
	STD = RX(0x60)
	LD  = RX(0x68)
	STE = RX(0x70)
	LE  = RX(0x78)

	LG   = RXY(0xe304)
	LGF  = RXY(0xe314)
	LGH  = RXY(0xe315)
	LLGF = RXY(0xe316)
	STG  = RXY(0xe324)
	STY  = RXY(0xe350)
	LY   = RXY(0xe358)
	STHY = RXY(0xe370)
	LAY  = RXY(0xe371)
	STCY = RXY(0xe372)
	LB   = RXY(0xe376)
	LGB  = RXY(0xe377)
	LHY  = RXY(0xe378)
	LLGC = RXY(0xe390)
	LLGH = RXY(0xe391)
	LLC  = RXY(0xe394)
	LLH  = RXY(0xe395)
	LEY  = RXY(0xed64)
	LDY  = RXY(0xed65)
	STEY = RXY(0xed66)
	STDY = RXY(0xed67)

	LMG  = RSY(0xeb04)
	SLLG = RSY(0xeb0d)
	STMG = RSY(0xeb24)
)
