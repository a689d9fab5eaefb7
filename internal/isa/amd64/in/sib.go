// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package in

import (
	"fmt"

	"gate.computer/safepoint/isa/reg"
)

type (
	Scale byte
	Index byte
	Base  byte
)

const (
	Scale0 = Scale(0 << 6)
	Scale1 = Scale(1 << 6)
	Scale2 = Scale(2 << 6)
	Scale3 = Scale(3 << 6)

	noIndex = Index(4 << 3)
)

// MaxShift is the largest index shift which a SIB byte can express.
const MaxShift = 3

func ShiftScale(shift uint8) Scale {
	if shift > MaxShift {
		panic(fmt.Sprintf("index shift %d is not encodable", shift))
	}
	return Scale(shift << 6)
}

func regIndex(r reg.R) Index {
	if r == RegStack {
		panic("stack pointer cannot be used as index register")
	}
	return Index((r & 7) << 3)
}

func regBase(r reg.R) Base { return Base(r & 7) }
