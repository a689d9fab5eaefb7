// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arm64

import (
	"encoding/binary"
	"testing"

	"gate.computer/safepoint/buffer"
	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/isa/mem"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/trap"
	"gate.computer/safepoint/wa"
)

func newFunc() *gen.Func {
	return gen.NewFunc("arm64", buffer.NewDynamic(nil), 0)
}

func emit(insns ...isa.Insn) *gen.Func {
	f := newFunc()
	for _, i := range insns {
		i.Emit(f)
	}
	f.Finish()
	return f
}

func checkWords(t *testing.T, f *gen.Func, expect ...uint32) {
	t.Helper()
	b := f.Text.Bytes()
	if len(b) != len(expect)*4 {
		t.Errorf("text: % x\nexpected %d words", b, len(expect))
		return
	}
	for i, x := range expect {
		if w := binary.LittleEndian.Uint32(b[i*4:]); w != x {
			t.Errorf("word %d: %08x, expected %08x", i, w, x)
		}
	}
}

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("no panic")
		}
	}()
	fn()
}

func TestOffsetForms(t *testing.T) {
	for _, x := range []struct {
		disp  int64
		words []uint32
	}{
		{8, []uint32{0xf9400420}},                  // ldr x0, [x1, #8]
		{-8, []uint32{0xf85f8020}},                 // ldur x0, [x1, #-8]
		{12, []uint32{0xf840c020}},                 // ldur x0, [x1, #12]
		{0x7ff8, []uint32{0xf97ffc20}},             // ldr x0, [x1, #32760]
		{0x8000, []uint32{0xd2900010, 0xf8706820}}, // movz x16, #0x8000; ldr x0, [x1, x16]
	} {
		f := emit(Load{Type: wa.I64, Dst: 0, Src: mem.RegOffset(X(1), x.disp), Loc: 3})
		checkWords(t, f, x.words...)

		trapOffset := reloc.CodeOffset(len(x.words)-1) * 4
		if len(f.Traps) != 1 || f.Traps[0].Offset != trapOffset || f.Traps[0].ID != trap.HeapOutOfBounds || f.Traps[0].Loc != 3 {
			t.Errorf("disp %d: traps %v", x.disp, f.Traps)
		}
	}
}

func TestFrameOperands(t *testing.T) {
	f := emit(Load{Type: wa.I64, Dst: 0, Src: mem.FP(-16)})
	checkWords(t, f, 0xf85f03a0) // ldur x0, [x29, #-16]

	f = newFunc()
	f.Frame.VirtualSPOffset = 16
	Load{Type: wa.I64, Dst: 0, Src: mem.NominalSP(8)}.Emit(f)
	checkWords(t, f, 0xf9400fe0) // ldr x0, [sp, #24]

	f = newFunc()
	f.Frame.InitialSPOffset = 4
	Store{Type: wa.I32, Src: 0, Dst: mem.InitialSP(0)}.Emit(f)
	checkWords(t, f, 0xb90007e0) // str w0, [sp, #4]
}

func TestIndexedForms(t *testing.T) {
	for _, x := range []struct {
		name  string
		typ   wa.Type
		m     mem.Mem
		words []uint32
	}{
		{"scaled", wa.I64, mem.RegReg(X(1), X(2), 3), []uint32{0xf8627820}},
		{"unscaled", wa.I32, mem.RegReg(X(1), X(2), 0), []uint32{0xb8626820}},
		{"other shift", wa.I64, mem.RegReg(X(1), X(2), 2), []uint32{0x8b226830, 0xf9400200}},
		{"displacement", wa.I64, mem.RegIndexOffset(X(1), X(2), 3, 16), []uint32{0x8b226c30, 0xf9400a00}},
		{"wide shift", wa.I64, mem.RegReg(X(1), X(2), 6), []uint32{0x8b021bf0, 0x8b306030, 0xf9400200}},
		{"wide displacement", wa.I64, mem.RegIndexOffset(X(1), X(2), 3, 0x10000), []uint32{0xd2a00030, 0x8b020e10, 0xf8706820}},
	} {
		t.Run(x.name, func(t *testing.T) {
			f := emit(Load{Type: x.typ, Dst: 0, Src: x.m, Loc: 1})
			checkWords(t, f, x.words...)

			if n := len(x.words); len(f.Traps) != 1 || f.Traps[0].Offset != reloc.CodeOffset(n-1)*4 {
				t.Errorf("traps: %v", f.Traps)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	f := emit(
		Load{Type: wa.I64, Dst: 0, Src: mem.LabelAddr(0)},
		Unreachable{},
		Bind{0},
	)
	checkWords(t, f, 0x58000040, 0xd4200120) // ldr x0, #8; brk #9

	f = emit(
		Bind{1},
		Load{Type: wa.I32, Size: wa.Size8, Dst: 0, Src: mem.LabelAddr(1)},
	)
	checkWords(t, f, 0x10000010, 0x39400200) // adr x16, #0; ldrb w0, [x16]

	f = emit(
		Bind{2},
		Unreachable{},
		Jump{2},
	)
	checkWords(t, f, 0xd4200120, 0x17ffffff) // brk #9; b #-4
}

func TestSymbol(t *testing.T) {
	f := emit(Load{Type: wa.I64, Dst: 0, Src: mem.SymbolAddr("data", 8, true)})
	checkWords(t, f, 0x90000010, 0x91000210, 0xf9400200)

	if len(f.Relocs) != 2 ||
		f.Relocs[0] != (reloc.Site{Offset: 0, Kind: reloc.Aarch64AdrPrelPgHi21, Symbol: "data", Addend: 8}) ||
		f.Relocs[1] != (reloc.Site{Offset: 4, Kind: reloc.Aarch64AddAbsLo12Nc, Symbol: "data", Addend: 8}) {
		t.Errorf("relocs: %v", f.Relocs)
	}

	f = emit(Load{Type: wa.I64, Dst: 0, Src: mem.SymbolAddr("extern", 8, false)})
	checkWords(t, f, 0x90000010, 0xf9400210, 0xf9400600)

	if len(f.Relocs) != 2 ||
		f.Relocs[0] != (reloc.Site{Offset: 0, Kind: reloc.Aarch64AdrGotPage21, Symbol: "extern"}) ||
		f.Relocs[1] != (reloc.Site{Offset: 4, Kind: reloc.Aarch64Ld64GotLo12Nc, Symbol: "extern"}) {
		t.Errorf("relocs: %v", f.Relocs)
	}
}

func TestTrapPlacement(t *testing.T) {
	f := emit(Load{Type: wa.I64, Dst: 0, Src: mem.RegOffset(X(1), 0)})
	if len(f.Traps) != 0 {
		t.Errorf("trap recorded without source location: %v", f.Traps)
	}

	f = emit(Load{Type: wa.I64, Dst: 0, Src: mem.RegOffset(X(1), 0).WithFlags(mem.NoTrap), Loc: 2})
	if len(f.Traps) != 0 {
		t.Errorf("trap recorded for non-trapping access: %v", f.Traps)
	}

	f = emit(LoadAddress{Dst: 0, Src: mem.RegOffset(X(1), 0x100000)})
	if len(f.Traps) != 0 {
		t.Errorf("trap recorded for address computation: %v", f.Traps)
	}
}

func TestScratchAliasing(t *testing.T) {
	expectPanic(t, func() {
		emit(Store{Type: wa.I64, Src: X16, Dst: mem.RegOffset(X(1), 0x8000)})
	})
	expectPanic(t, func() {
		emit(Load{Type: wa.I64, Dst: 0, Src: mem.RegReg(X16, X(1), 0)})
	})
	expectPanic(t, func() {
		emit(Load{Type: wa.I64, Dst: 0, Src: mem.RegReg(X(1), RegZero, 0)})
	})

	expectPanic(t, func() {
		emit(LoadAddress{Dst: X16, Src: mem.SymbolAddr("extern", 0x10000, false)})
	})
	expectPanic(t, func() {
		emit(LoadAddress{Dst: X16, Src: mem.RegOffset(X(1), 8)})
	})

	f := emit(Store{Type: wa.I64, Src: X16, Dst: mem.RegOffset(X(1), 8)})
	checkWords(t, f, 0xf9000430) // str x16, [x1, #8]

	f = emit(Store{Type: wa.F64, Src: 16, Dst: mem.RegOffset(X(1), 0x10000)})
	checkWords(t, f, 0xd2a00030, 0xfc306830) // movz x16, #1, lsl #16; str d16, [x1, x16]
}

func TestFrame(t *testing.T) {
	f := gen.NewFunc("arm64", buffer.NewDynamic(nil), 20)
	Target.Prologue(f)
	Call{Symbol: "f", Colocated: true}.Emit(f)
	Return{}.Emit(f)
	f.Finish()

	checkWords(t, f,
		0xa9bf7bfd, // stp x29, x30, [sp, #-16]!
		0x910003fd, // mov x29, sp
		0xd10083ff, // sub sp, sp, #32
		0x94000000, // bl f
		0x910003bf, // mov sp, x29
		0xa8c17bfd, // ldp x29, x30, [sp], #16
		0xd65f03c0, // ret
	)

	if f.FrameSize != 32 || f.PrologueSize != 12 {
		t.Errorf("frame size %d, prologue size %d", f.FrameSize, f.PrologueSize)
	}
	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 12, Kind: reloc.Arm64Call, Symbol: "f"}) {
		t.Errorf("relocs: %v", f.Relocs)
	}
	if len(f.StackMaps) != 1 || f.StackMaps[0].Offset != 16 || f.StackMaps[0].FrameSize != 32 {
		t.Errorf("stack maps: %v", f.StackMaps)
	}
}

func TestCalls(t *testing.T) {
	f := emit(
		AdjustSP{16},
		CallHost{Symbol: "host", Live: []uint32{0}},
		AdjustSP{-16},
	)

	checkWords(t, f,
		0xd10043ff, // sub sp, sp, #16
		0x58000050, // ldr x16, #8
		0x14000003, // b #12
		0, 0,
		0xd63f0200, // blr x16
		0x910043ff, // add sp, sp, #16
	)

	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 12, Kind: reloc.HostCallIndirect, Symbol: "host"}) {
		t.Errorf("relocs: %v", f.Relocs)
	}
	if len(f.StackMaps) != 1 || f.StackMaps[0].Offset != 24 || f.StackMaps[0].FrameSize != 16 {
		t.Errorf("stack maps: %v", f.StackMaps)
	}
	if f.Frame.VirtualSPOffset != 0 {
		t.Errorf("virtual sp offset: %d", f.Frame.VirtualSPOffset)
	}

	f = emit(AdjustSP{0x12340})
	checkWords(t, f, 0xd1404bff, 0xd10d03ff)

	expectPanic(t, func() {
		emit(AdjustSP{1 << 24})
	})
}

func TestMoveImm(t *testing.T) {
	for _, x := range []struct {
		value int64
		words []uint32
	}{
		{0, []uint32{0xd2800000}},
		{-1, []uint32{0x92800000}},
		{-8, []uint32{0x928000e0}},
		{-0x10000, []uint32{0x929fffe0}},
		{0x12345678, []uint32{0xd28acf00, 0xf2a24680}},
		{0x100000000, []uint32{0xd2c00020}},
	} {
		f := emit(MoveImm{Dst: 0, Value: x.value})
		checkWords(t, f, x.words...)
	}
}

func TestMove(t *testing.T) {
	checkWords(t, emit(Move{Type: wa.I64, Dst: X(1), Src: X(2)}), 0xaa0203e1)
	checkWords(t, emit(Move{Type: wa.I32, Dst: X(1), Src: X(2)}), 0x2a0203e1)
	checkWords(t, emit(Move{Type: wa.I64, Dst: RegFramePtr, Src: RegStackPtr}), 0x910003fd)
	checkWords(t, emit(Move{Type: wa.F64, Dst: 0, Src: 1}), 0x1e604020)
}

func TestLoadAddress(t *testing.T) {
	checkWords(t, emit(LoadAddress{Dst: 0, Src: mem.FP(-16)}), 0xd10043a0)               // sub x0, x29, #16
	checkWords(t, emit(LoadAddress{Dst: 0, Src: mem.RegReg(X(1), X(2), 3)}), 0x8b226c20) // add x0, x1, x2, uxtx #3
	checkWords(t, emit(LoadAddress{Dst: 0, Src: mem.RegOffset(X(1), 0)}), 0x91000020)    // mov x0, x1

	f := emit(
		LoadAddress{Dst: 0, Src: mem.LabelAddr(0)},
		Bind{0},
	)
	checkWords(t, f, 0x10000020) // adr x0, #4
}

func TestPad(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6}
	Target.Pad(b)
	if string(b) != "\x00\x00\x20\xd4\x00\x00" {
		t.Errorf("% x", b)
	}
}
