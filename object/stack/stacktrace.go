// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stack

import (
	"gate.computer/safepoint/object/stack/unwind"
)

// Activation is maintained by the trampolines between host and generated
// code.  EntryFP is the frame pointer of the entry trampoline.  ExitPC and
// ExitFP describe the innermost generated frame when it called out to the
// host; they are zero while generated code is running.
type Activation struct {
	EntryFP uintptr
	ExitPC  uintptr
	ExitFP  uintptr
}

// Exited reports whether generated code is suspended in a host call.
func (a *Activation) Exited() bool {
	return a.ExitFP != 0
}

// VisitFrames of the activation.  Nothing is visited unless generated code
// has exited to the host.
func (a *Activation) VisitFrames(u unwind.Unwind, visit func(Frame) bool) {
	if a.Exited() {
		VisitFrames(u, a.ExitPC, a.ExitFP, a.EntryFP, visit)
	}
}

// Backtrace captures the frames of the activation, innermost first.
func Backtrace(u unwind.Unwind, a *Activation) (frames []Frame) {
	a.VisitFrames(u, func(f Frame) bool {
		frames = append(frames, f)
		return true
	})
	return
}
