// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package s390x

import (
	"fmt"
	"math"

	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/isa/s390x/in"
	"gate.computer/safepoint/isa"
)

// FrameAlignment of the stack pointer.
const FrameAlignment = 8

type target struct{}

// Target builds frames where the frame pointer (r11) is the canonical frame
// address.  The caller's frame pointer is found through the back chain at
// [r11] and the return address at [r11+112].
var Target isa.Target = target{}

func (target) Arch() isa.Arch { return isa.S390X }

func (target) Prologue(f *gen.Func) {
	size := RegisterSaveArea + (uint64(f.LocalSize)+FrameAlignment-1)&^(FrameAlignment-1)
	if size > math.MaxInt32 {
		panic(fmt.Sprintf("s390x: frame size %d is too large", f.LocalSize))
	}

	start := f.Text.Addr
	in.STMG.RegRegBaseDisp(&f.Text, 6, R15, RegStackPtr, SavedRegsOffset)
	in.LGR.RegReg(&f.Text, RegFramePtr, RegStackPtr)
	adjustSP(&f.Text, int64(size))
	f.FrameSize = uint32(size)
	f.PrologueSize = uint32(f.Text.Addr - start)
	f.Trace(start)
}

func (target) Epilogue(f *gen.Func) {
	epilogue(f)
}

func epilogue(f *gen.Func) {
	start := f.Text.Addr
	in.LMG.RegRegBaseDisp(&f.Text, 6, R15, RegFramePtr, SavedRegsOffset)
	in.BCR.RegReg(&f.Text, in.MaskAlways, RegLink)
	f.Trace(start)
}

// Pad with zero halfwords, which are invalid instructions.
func (target) Pad(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
