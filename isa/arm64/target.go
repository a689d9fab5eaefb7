// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arm64

import (
	"encoding/binary"

	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/arm64/in"
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/wa"
)

// FrameAlignment of the frame pointer and the stack pointer after the
// prologue.
const FrameAlignment = 16

type target struct{}

// Target builds frames where the saved frame pointer is at [x29] and the
// link register at [x29+8].
var Target isa.Target = target{}

func (target) Arch() isa.Arch { return isa.ARM64 }

func (target) Prologue(f *gen.Func) {
	size := (uint64(f.LocalSize) + FrameAlignment - 1) &^ (FrameAlignment - 1)

	start := f.Text.Addr
	insn(&f.Text, in.STPpre.RtRt2RnI7(RegFramePtr, RegLink, RegStackPtr, in.Int7(-2)))
	insn(&f.Text, in.ADDi.RdRnI12S2(RegFramePtr, RegStackPtr, 0, 0, wa.Size64))
	adjustSP(&f.Text, uint32(size), false)
	f.FrameSize = uint32(size)
	f.PrologueSize = uint32(f.Text.Addr - start)
	f.Trace(start)
}

func (target) Epilogue(f *gen.Func) {
	epilogue(f)
}

func epilogue(f *gen.Func) {
	start := f.Text.Addr
	insn(&f.Text, in.ADDi.RdRnI12S2(RegStackPtr, RegFramePtr, 0, 0, wa.Size64))
	insn(&f.Text, in.LDPpost.RtRt2RnI7(RegFramePtr, RegLink, RegStackPtr, in.Int7(2)))
	insn(&f.Text, in.RET.Rn(RegLink))
	f.Trace(start)
}

// Pad with breakpoint instructions.  A trailing partial word is zeroed.
func (target) Pad(b []byte) {
	for len(b) >= 4 {
		binary.LittleEndian.PutUint32(b, in.BRK.I16(0))
		b = b[4:]
	}
	for i := range b {
		b[i] = 0
	}
}
