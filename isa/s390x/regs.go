// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package s390x

import (
	"gate.computer/safepoint/isa/reg"
)

// General registers R0-R15.  Floating-point registers use the same numbers.
func R(n int) reg.R { return reg.R(n) }

const (
	R0  = reg.R(0)
	R1  = reg.R(1)
	R11 = reg.R(11)
	R14 = reg.R(14)
	R15 = reg.R(15)
)

const (
	RegScratch  = R1  // Clobbered by memory instructions which need helpers.
	RegFramePtr = R11 // Canonical frame address: the stack pointer of the caller.
	RegLink     = R14
	RegStackPtr = R15
)

// RegisterSaveArea is the size of the ABI-defined area at the bottom of each
// frame, where callees save registers.  Frame-local slots start above it.
const RegisterSaveArea = 160

// Offsets from the canonical frame address.
const (
	SavedFrameOffset = 0   // Back chain stored by the caller.
	SavedRegsOffset  = 48  // r6-r15 saved by the prologue.
	ReturnAddrOffset = 112 // Saved r14.
)
