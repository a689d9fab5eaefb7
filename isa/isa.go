// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isa defines the interfaces shared by the target architecture
// packages.
package isa

import (
	"encoding/binary"
	"fmt"
	"strings"

	"gate.computer/safepoint/internal/gen"
)

type Arch uint8

const (
	AMD64 Arch = iota + 1
	ARM64
	S390X
)

var archNames = [...]string{
	AMD64: "amd64",
	ARM64: "arm64",
	S390X: "s390x",
}

func (a Arch) String() string {
	if a > 0 && int(a) < len(archNames) {
		return archNames[a]
	}
	return fmt.Sprintf("Arch(%d)", uint8(a))
}

func ParseArch(s string) (Arch, error) {
	for a, name := range archNames {
		if name != "" && strings.EqualFold(s, name) {
			return Arch(a), nil
		}
	}
	return 0, fmt.Errorf("unknown architecture: %q", s)
}

// ByteOrder of data in the target's memory.
func (a Arch) ByteOrder() binary.ByteOrder {
	if a == S390X {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Insn is a register-allocated machine instruction (or a short sequence).
type Insn interface {
	Emit(f *gen.Func)
}

// Target emits the parts of a function which are not expressed as
// instructions by the caller.
type Target interface {
	Arch() Arch

	// Prologue links the frame into the frame pointer chain and allocates
	// f.LocalSize bytes.  It sets f.FrameSize and f.PrologueSize.
	Prologue(f *gen.Func)

	// Epilogue unlinks the frame and returns.
	Epilogue(f *gen.Func)

	// Pad fills alignment padding between functions.
	Pad(b []byte)
}
