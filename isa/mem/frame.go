// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mem

import (
	"gate.computer/safepoint/isa/reg"
)

// FrameState tracks how far the stack pointer has moved since the frame was
// set up.  Both offsets grow when the stack pointer is decremented.
type FrameState struct {
	InitialSPOffset int64 // Distance from current SP to SP after the prologue.
	VirtualSPOffset int64 // Pending nominal SP adjustment.
}

// AdjustSP records that the stack pointer was decremented by delta bytes (or
// incremented, if delta is negative).
func (s *FrameState) AdjustSP(delta int64) {
	s.InitialSPOffset += delta
	s.VirtualSPOffset += delta
}

// Resolve rewrites frame-relative operands into register-relative form.
// Other operands are returned as is.
func (m Mem) Resolve(state FrameState, sp, fp reg.R) Mem {
	var r Mem

	switch m.Kind {
	case KindInitialSPOffset:
		r = RegOffset(sp, m.Disp+state.InitialSPOffset)

	case KindNominalSPOffset:
		r = RegOffset(sp, m.Disp+state.VirtualSPOffset)

	case KindFPOffset:
		r = RegOffset(fp, m.Disp)

	default:
		return m
	}

	r.Flags = m.Flags
	return r
}
