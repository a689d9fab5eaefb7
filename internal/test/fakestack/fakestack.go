// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakestack builds frame pointer chains in heap memory for walker
// tests.
package fakestack

import (
	"fmt"
	"unsafe"
)

const wordSize = unsafe.Sizeof(uintptr(0))

// Stack memory.  Addresses are aligned to 16 bytes at word index 0.
type Stack struct {
	words []uintptr
	start uintptr
	skip  int
}

// New stack with room for n words.
func New(n int) *Stack {
	s := &Stack{words: make([]uintptr, n+16/int(wordSize))}
	base := uintptr(unsafe.Pointer(&s.words[0]))
	for base&15 != 0 {
		base += wordSize
		s.skip++
	}
	s.start = base
	return s
}

// Addr of word i.
func (s *Stack) Addr(i int) uintptr {
	return s.start + uintptr(i)*wordSize
}

func (s *Stack) index(addr uintptr) int {
	if addr < s.start || (addr-s.start)%wordSize != 0 {
		panic(fmt.Sprintf("address %#x is not a word of the stack", addr))
	}
	i := s.skip + int((addr-s.start)/wordSize)
	if i >= len(s.words) {
		panic(fmt.Sprintf("address %#x is beyond the stack", addr))
	}
	return i
}

// Store a word.
func (s *Stack) Store(addr, value uintptr) {
	s.words[s.index(addr)] = value
}

// Load a word.
func (s *Stack) Load(addr uintptr) uintptr {
	return s.words[s.index(addr)]
}

// Record writes a frame record: the caller's frame pointer at fp and the
// return address at fp+retOffset.
func (s *Stack) Record(fp, olderFP, retAddr, retOffset uintptr) {
	s.Store(fp, olderFP)
	s.Store(fp+retOffset, retAddr)
}
