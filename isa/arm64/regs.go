// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arm64

import (
	"gate.computer/safepoint/internal/isa/arm64/in"
	"gate.computer/safepoint/isa/reg"
)

// General-purpose registers X0-X30.  SIMD&FP registers use the same
// numbers.
func X(n int) reg.R { return reg.R(n) }

const (
	X16 = reg.R(16)
	X29 = reg.R(29)
	X30 = reg.R(30)
)

const (
	RegStackPtr = in.RegSP
	RegZero     = in.RegZR
	RegFramePtr = X29
	RegLink     = X30
	RegScratch  = X16 // Clobbered by memory instructions which need helpers.
)
