// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unwind

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

var record [16]uintptr

func TestNextOlderPC(t *testing.T) {
	fp := uintptr(unsafe.Pointer(&record[0]))

	record[1] = 0x1234
	record[112/unsafe.Sizeof(uintptr(0))] = 0x5678

	assert.Equal(t, uintptr(0x1234), AMD64.NextOlderPC(fp))
	assert.Equal(t, uintptr(0x1234), ARM64.NextOlderPC(fp))
	if unsafe.Sizeof(uintptr(0)) == 8 {
		assert.Equal(t, uintptr(0x5678), S390X.NextOlderPC(fp))
	}
}

func TestLayout(t *testing.T) {
	for _, u := range []Unwind{AMD64, ARM64, S390X} {
		assert.Equal(t, uintptr(0), u.NextOlderFPFromFPOffset())
		assert.Equal(t, uintptr(0x1000-48), u.StackPointer(0x1000, 48))
	}
}

func TestAlignment(t *testing.T) {
	AMD64.AssertFPIsAligned(0x1000)
	ARM64.AssertFPIsAligned(0x1010)
	S390X.AssertFPIsAligned(0x1008)

	assert.Panics(t, func() { AMD64.AssertFPIsAligned(0x1008) })
	assert.Panics(t, func() { ARM64.AssertFPIsAligned(0x1004) })
	assert.Panics(t, func() { S390X.AssertFPIsAligned(0x1004) })
}
