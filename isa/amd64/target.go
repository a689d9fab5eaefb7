// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"fmt"
	"math"

	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/amd64/in"
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/wa"
)

// FrameAlignment of the frame pointer and the stack pointer after the
// prologue.
const FrameAlignment = 16

type target struct{}

// Target builds frames where the saved frame pointer is at [rbp] and the
// return address at [rbp+8].
var Target isa.Target = target{}

func (target) Arch() isa.Arch { return isa.AMD64 }

func (target) Prologue(f *gen.Func) {
	size := (uint64(f.LocalSize) + FrameAlignment - 1) &^ (FrameAlignment - 1)
	if size > math.MaxInt32 {
		panic(fmt.Sprintf("amd64: frame size %d is too large", f.LocalSize))
	}

	start := f.Text.Addr
	in.PUSHo.Reg(&f.Text, RBP)
	in.MOV.RegReg(&f.Text, wa.I64, RBP, RSP)
	if size > 0 {
		in.SUBi.RegImm(&f.Text, wa.I64, RSP, int32(size))
	}
	f.FrameSize = uint32(size)
	f.PrologueSize = uint32(f.Text.Addr - start)
	f.Trace(start)
}

func (target) Epilogue(f *gen.Func) {
	epilogue(f)
}

func epilogue(f *gen.Func) {
	start := f.Text.Addr
	in.MOV.RegReg(&f.Text, wa.I64, RSP, RBP)
	in.POPo.Reg(&f.Text, RBP)
	in.RET.Simple(&f.Text)
	f.Trace(start)
}

func (target) Pad(b []byte) {
	for i := range b {
		b[i] = byte(in.INT3)
	}
}
