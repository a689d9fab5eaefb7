// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"gate.computer/safepoint/internal/isa/amd64/in"
	"gate.computer/safepoint/isa/reg"
)

// General-purpose registers.  SSE registers use the same numbers.
const (
	RAX = reg.R(0)
	RCX = reg.R(1)
	RDX = reg.R(2)
	RBX = reg.R(3)
	RSP = in.RegStack
	RBP = in.RegFrame
	RSI = reg.R(6)
	RDI = reg.R(7)
	R8  = reg.R(8)
	R9  = reg.R(9)
	R10 = reg.R(10)
	R11 = in.RegScratch
	R12 = reg.R(12)
	R13 = reg.R(13)
	R14 = reg.R(14)
	R15 = reg.R(15)
)

const (
	RegStackPtr = RSP
	RegFramePtr = RBP
	RegScratch  = R11 // Clobbered by memory instructions which need helpers.
)
