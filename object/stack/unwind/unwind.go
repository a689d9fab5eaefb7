// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unwind describes the frame records built by generated function
// prologues.  A record is reached through the frame pointer; it holds the
// caller's frame pointer and the return address into the caller.
package unwind

import (
	"fmt"
	"unsafe"
)

// Unwind is the frame record layout of a target architecture.
type Unwind interface {
	// NextOlderFPFromFPOffset is the offset of the caller's frame pointer
	// from the frame pointer.
	NextOlderFPFromFPOffset() uintptr

	// NextOlderPC reads the return address of the frame.
	NextOlderPC(fp uintptr) uintptr

	// AssertFPIsAligned panics if fp is not aligned as the prologue aligns
	// it.
	AssertFPIsAligned(fp uintptr)

	// StackPointer of the frame at a safepoint, given the frame size
	// recorded in its stack map.
	StackPointer(fp uintptr, frameSize uint32) uintptr
}

type layout struct {
	name       string
	savedFP    uintptr
	returnAddr uintptr
	alignment  uintptr
}

// Saved frame pointer at [fp], return address at [fp+8].
var AMD64 Unwind = layout{"amd64", 0, 8, 16}

// Saved frame pointer (x29) at [fp], link register (x30) at [fp+8].
var ARM64 Unwind = layout{"arm64", 0, 8, 16}

// Back chain at [fp], saved r14 at [fp+112].  The frame pointer is the
// canonical frame address.
var S390X Unwind = layout{"s390x", 0, 112, 8}

func (l layout) String() string { return l.name }

func (l layout) NextOlderFPFromFPOffset() uintptr {
	return l.savedFP
}

func (l layout) NextOlderPC(fp uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(fp + l.returnAddr))
}

func (l layout) AssertFPIsAligned(fp uintptr) {
	if fp&(l.alignment-1) != 0 {
		panic(fmt.Sprintf("%s: frame pointer %#x is not aligned to %d bytes", l.name, fp, l.alignment))
	}
}

func (l layout) StackPointer(fp uintptr, frameSize uint32) uintptr {
	return fp - uintptr(frameSize)
}
