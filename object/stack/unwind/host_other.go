// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !(amd64 || arm64 || s390x)

package unwind

// Host panics on use: generated code cannot run on this machine.
var Host Unwind = unsupported{}

type unsupported struct{}

func (unsupported) NextOlderFPFromFPOffset() uintptr     { panic("unsupported architecture") }
func (unsupported) NextOlderPC(uintptr) uintptr          { panic("unsupported architecture") }
func (unsupported) AssertFPIsAligned(uintptr)            { panic("unsupported architecture") }
func (unsupported) StackPointer(uintptr, uint32) uintptr { panic("unsupported architecture") }
