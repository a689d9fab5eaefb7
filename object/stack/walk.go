// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stack walks the call stack of generated code through the frame
// pointer chain.
//
// The walker dereferences frame pointers without validation.  They must
// come from frames built by the generated prologues, on a stack which is not
// mutated during the walk.
package stack

import (
	"fmt"
	"unsafe"

	"gate.computer/safepoint/object/stack/unwind"
)

// Frame of a call site.  PC is the return address into the function which
// owns the frame, and FP is its frame pointer.
type Frame struct {
	PC uintptr
	FP uintptr
}

func (f Frame) String() string {
	return fmt.Sprintf("pc=%#x fp=%#x", f.PC, f.FP)
}

// VisitFrames calls visit for each frame from the innermost (pc, fp) towards
// the frame whose pointer is trampolineFP, which is not visited.  The walk
// stops early if visit returns false.
func VisitFrames(u unwind.Unwind, pc, fp, trampolineFP uintptr, visit func(Frame) bool) {
	if off := u.NextOlderFPFromFPOffset(); off != 0 {
		panic(fmt.Sprintf("saved frame pointer offset %d is not supported", off))
	}

	for fp != trampolineFP {
		if fp >= trampolineFP {
			panic(fmt.Sprintf("frame pointer %#x is not below trampoline frame pointer %#x", fp, trampolineFP))
		}
		u.AssertFPIsAligned(fp)

		if !visit(Frame{PC: pc, FP: fp}) {
			return
		}

		pc = u.NextOlderPC(fp)
		next := *(*uintptr)(unsafe.Pointer(fp))

		if next <= fp {
			panic(fmt.Sprintf("next older frame pointer %#x is not above %#x", next, fp))
		}
		fp = next
	}
}
