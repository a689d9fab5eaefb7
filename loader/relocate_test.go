// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate.computer/safepoint/compile"
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/isa/arm64"
	"gate.computer/safepoint/isa/mem"
	"gate.computer/safepoint/object"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/stackmap"
	"gate.computer/safepoint/wa"
)

const testTextAddr = 0x1000

func testCode(arch isa.Arch, text []byte, site reloc.Site) *object.CompiledCode {
	return &object.CompiledCode{
		Arch: arch,
		Text: text,
		Funcs: []object.FuncInfo{
			{Name: "f", Addr: 0, Size: 12},
			{Name: "g", Addr: 12, Size: 4},
		},
		Relocs: []reloc.Site{site},
	}
}

var testSymbols = Symbols{
	"host": 0x1122334455667788,
	"low":  0x5123,
	"far":  0x10000000000,
}

func TestRelocate(t *testing.T) {
	for _, x := range []struct {
		name   string
		arch   isa.Arch
		text   []byte
		site   reloc.Site
		offset int
		result []byte
	}{
		{
			name:   "X86CallPCRel4",
			arch:   isa.AMD64,
			site:   reloc.Site{Offset: 4, Kind: reloc.X86CallPCRel4, Symbol: "g", Addend: -4},
			offset: 4,
			result: []byte{0x04, 0x00, 0x00, 0x00},
		},
		{
			name:   "X86PCRel4Backward",
			arch:   isa.AMD64,
			site:   reloc.Site{Offset: 4, Kind: reloc.X86PCRel4, Symbol: "f", Addend: -4},
			offset: 4,
			result: []byte{0xf8, 0xff, 0xff, 0xff},
		},
		{
			name:   "Abs4",
			arch:   isa.AMD64,
			site:   reloc.Site{Offset: 0, Kind: reloc.Abs4, Symbol: "low"},
			offset: 0,
			result: []byte{0x23, 0x51, 0x00, 0x00},
		},
		{
			name:   "Abs8",
			arch:   isa.AMD64,
			site:   reloc.Site{Offset: 8, Kind: reloc.Abs8, Symbol: "host"},
			offset: 8,
			result: []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11},
		},
		{
			name:   "HostCallIndirectBigEndian",
			arch:   isa.S390X,
			site:   reloc.Site{Offset: 8, Kind: reloc.HostCallIndirect, Symbol: "host"},
			offset: 8,
			result: []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88},
		},
		{
			name:   "Arm64Call",
			arch:   isa.ARM64,
			text:   []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x94},
			site:   reloc.Site{Offset: 4, Kind: reloc.Arm64Call, Symbol: "g"},
			offset: 4,
			result: []byte{0x02, 0x00, 0x00, 0x94},
		},
		{
			name:   "Arm64CallBackward",
			arch:   isa.ARM64,
			text:   []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x94},
			site:   reloc.Site{Offset: 4, Kind: reloc.Arm64Call, Symbol: "f"},
			offset: 4,
			result: []byte{0xff, 0xff, 0xff, 0x97},
		},
		{
			name:   "Aarch64AdrPrelPgHi21",
			arch:   isa.ARM64,
			text:   []byte{0x01, 0x00, 0x00, 0x90},
			site:   reloc.Site{Offset: 0, Kind: reloc.Aarch64AdrPrelPgHi21, Symbol: "low"},
			offset: 0,
			result: []byte{0x21, 0x00, 0x00, 0x90},
		},
		{
			name:   "Aarch64AddAbsLo12Nc",
			arch:   isa.ARM64,
			text:   []byte{0x21, 0x00, 0x00, 0x91},
			site:   reloc.Site{Offset: 0, Kind: reloc.Aarch64AddAbsLo12Nc, Symbol: "low"},
			offset: 0,
			result: []byte{0x21, 0x8c, 0x04, 0x91},
		},
		{
			name:   "S390xPCRel32Dbl",
			arch:   isa.S390X,
			text:   []byte{0xc0, 0x10},
			site:   reloc.Site{Offset: 2, Kind: reloc.S390xPCRel32Dbl, Symbol: "g", Addend: 2},
			offset: 0,
			result: []byte{0xc0, 0x10, 0x00, 0x00, 0x00, 0x06},
		},
		{
			name:   "S390xPLTRel32Dbl",
			arch:   isa.S390X,
			text:   []byte{0xc0, 0xe5},
			site:   reloc.Site{Offset: 2, Kind: reloc.S390xPLTRel32Dbl, Symbol: "f", Addend: 2},
			offset: 0,
			result: []byte{0xc0, 0xe5, 0x00, 0x00, 0x00, 0x00},
		},
	} {
		t.Run(x.name, func(t *testing.T) {
			text := make([]byte, 16)
			copy(text, x.text)

			code := testCode(x.arch, text, x.site)
			require.NoError(t, Relocate(text, testTextAddr, code, testSymbols))
			assert.Equal(t, x.result, text[x.offset:x.offset+len(x.result)])
		})
	}
}

func TestRelocateErrors(t *testing.T) {
	for _, x := range []struct {
		name string
		arch isa.Arch
		site reloc.Site
	}{
		{"Undefined", isa.AMD64, reloc.Site{Offset: 0, Kind: reloc.Abs8, Symbol: "missing"}},
		{"Unsupported", isa.AMD64, reloc.Site{Offset: 0, Kind: reloc.X86SecRel, Symbol: "f"}},
		{"OutsideText", isa.AMD64, reloc.Site{Offset: 12, Kind: reloc.Abs8, Symbol: "f"}},
		{"Abs4Range", isa.AMD64, reloc.Site{Offset: 0, Kind: reloc.Abs4, Symbol: "far"}},
		{"PCRel4Range", isa.AMD64, reloc.Site{Offset: 0, Kind: reloc.X86PCRel4, Symbol: "far"}},
		{"Arm64CallMisaligned", isa.ARM64, reloc.Site{Offset: 0, Kind: reloc.Arm64Call, Symbol: "f", Addend: 2}},
		{"Arm64CallRange", isa.ARM64, reloc.Site{Offset: 0, Kind: reloc.Arm64Call, Symbol: "far"}},
		{"S390xOdd", isa.S390X, reloc.Site{Offset: 2, Kind: reloc.S390xPCRel32Dbl, Symbol: "g", Addend: 1}},
	} {
		t.Run(x.name, func(t *testing.T) {
			text := make([]byte, 16)
			err := Relocate(text, testTextAddr, testCode(x.arch, text, x.site), testSymbols)
			assert.Error(t, err)
		})
	}
}

func TestRelocateGOT(t *testing.T) {
	text := []byte{
		0x10, 0x00, 0x00, 0x90, // adrp x16, host@GOT
		0x10, 0x02, 0x40, 0xf9, // ldr x16, [x16, host@GOT]
		0x11, 0x00, 0x00, 0x90, // adrp x17, low@GOT
		0x31, 0x02, 0x40, 0xf9, // ldr x17, [x17, low@GOT]
		0x10, 0x00, 0x00, 0x90, // adrp x16, host@GOT
		0x10, 0x02, 0x40, 0xf9, // ldr x16, [x16, host@GOT]
	}
	code := &object.CompiledCode{
		Arch:  isa.ARM64,
		Text:  text,
		Funcs: []object.FuncInfo{{Name: "f", Addr: 0, Size: 24}},
		Relocs: []reloc.Site{
			{Offset: 0, Kind: reloc.Aarch64AdrGotPage21, Symbol: "host"},
			{Offset: 4, Kind: reloc.Aarch64Ld64GotLo12Nc, Symbol: "host"},
			{Offset: 8, Kind: reloc.Aarch64AdrGotPage21, Symbol: "low"},
			{Offset: 12, Kind: reloc.Aarch64Ld64GotLo12Nc, Symbol: "low"},
			{Offset: 16, Kind: reloc.Aarch64AdrGotPage21, Symbol: "host"},
			{Offset: 20, Kind: reloc.Aarch64Ld64GotLo12Nc, Symbol: "host"},
		},
	}

	assert.Equal(t, 24, GOTOffset(code))
	require.Equal(t, 40, ImageSize(code))

	image := make([]byte, ImageSize(code))
	copy(image, text)

	assert.Error(t, Relocate(image[:39], testTextAddr, code, testSymbols))
	require.NoError(t, Relocate(image, testTextAddr, code, testSymbols))

	// Entries at 0x1018 and 0x1020 are on the same page as the text.
	assert.Equal(t, []byte{0x10, 0x00, 0x00, 0x90}, image[0:4])
	assert.Equal(t, []byte{0x10, 0x0e, 0x40, 0xf9}, image[4:8])   // ldr x16, [x16, #0x18]
	assert.Equal(t, []byte{0x31, 0x12, 0x40, 0xf9}, image[12:16]) // ldr x17, [x17, #0x20]
	assert.Equal(t, image[0:8], image[16:24])

	assert.Equal(t, uint64(0x1122334455667788), binary.LittleEndian.Uint64(image[24:]))
	assert.Equal(t, uint64(0x5123), binary.LittleEndian.Uint64(image[32:]))

	code.Relocs[2].Symbol = "missing"
	code.Relocs[3].Symbol = "missing"
	assert.Error(t, Relocate(image, testTextAddr, code, testSymbols))
}

func TestRelocateEmittedGOT(t *testing.T) {
	code, err := compile.Compile(context.Background(), &compile.Config{Target: arm64.Target}, []compile.Func{
		{
			Name: "f",
			Insns: []isa.Insn{
				arm64.Load{Type: wa.I64, Dst: arm64.X(0), Src: mem.SymbolAddr("host", 0, false)},
			},
		},
	})
	require.NoError(t, err)

	image := make([]byte, ImageSize(code))
	copy(image, code.Text)
	require.NoError(t, Relocate(image, testTextAddr, code, testSymbols))

	gotOffset := GOTOffset(code)
	require.Less(t, gotOffset, 0x1000-testTextAddr%0x1000)
	assert.Equal(t, uint64(0x1122334455667788), binary.LittleEndian.Uint64(image[gotOffset:]))

	var sites int
	for _, site := range code.Relocs {
		word := binary.LittleEndian.Uint32(image[site.Offset:])

		switch site.Kind {
		case reloc.Aarch64AdrGotPage21:
			assert.Zero(t, word&(3<<29|0x7ffff<<5), "same page")
			sites++

		case reloc.Aarch64Ld64GotLo12Nc:
			assert.Equal(t, uint32(gotOffset>>3), word>>10&0xfff)
			sites++
		}
	}
	assert.Equal(t, 2, sites)
}

func TestRelocateLocalSymbolPrecedence(t *testing.T) {
	text := make([]byte, 16)
	code := testCode(isa.AMD64, text, reloc.Site{Offset: 0, Kind: reloc.Abs8, Symbol: "g"})

	require.NoError(t, Relocate(text, testTextAddr, code, Symbols{"g": 0xdead}))
	assert.Equal(t, []byte{0x0c, 0x10, 0, 0, 0, 0, 0, 0}, text[:8])
}

func TestMetadata(t *testing.T) {
	var b stackmap.Builder
	b.Push(8, 32, []uint32{0, 8})
	b.Push(12, 16, []uint32{4})
	b.Push(14, 48, []uint32{12})

	code := &object.CompiledCode{
		Arch: isa.AMD64,
		Text: make([]byte, 16),
		Funcs: []object.FuncInfo{
			{Name: "f", Addr: 0, Size: 12},
			{Name: "g", Addr: 12, Size: 4},
		},
	}
	b.AppendTo(code)

	funcs, err := Metadata(code, testTextAddr)
	require.NoError(t, err)
	require.Len(t, funcs, 2)

	assert.Equal(t, uintptr(0x1000), funcs[0].Start)
	assert.Equal(t, uintptr(0x100c), funcs[0].End)
	assert.Equal(t, uintptr(0x100c), funcs[1].Start)
	assert.Equal(t, uintptr(0x1010), funcs[1].End)

	require.Len(t, funcs[0].StackLocations, 2)
	assert.Equal(t, uint32(8), funcs[0].StackLocations[0].Offset)
	assert.Equal(t, uint32(32), funcs[0].StackLocations[0].FrameSize)
	assert.Equal(t, []uint32{0, 8}, funcs[0].StackLocations[0].Slots)

	// A return address at the end of a function belongs to it.
	assert.Equal(t, uint32(12), funcs[0].StackLocations[1].Offset)
	assert.Equal(t, []uint32{4}, funcs[0].StackLocations[1].Slots)

	require.Len(t, funcs[1].StackLocations, 1)
	assert.Equal(t, uint32(2), funcs[1].StackLocations[0].Offset)
	assert.Equal(t, uint32(48), funcs[1].StackLocations[0].FrameSize)
}

func TestMetadataOutsideFunctions(t *testing.T) {
	var b stackmap.Builder
	b.Push(20, 16, []uint32{0})

	code := testCode(isa.AMD64, make([]byte, 32), reloc.Site{})
	code.Relocs = nil
	b.AppendTo(code)

	_, err := Metadata(code, testTextAddr)
	assert.Error(t, err)
}
