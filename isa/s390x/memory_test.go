// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package s390x

import (
	"encoding/hex"
	"strings"
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
	return gen.NewFunc("s390x", buffer.NewDynamic(nil), 0)
}

func emit(insns ...isa.Insn) *gen.Func {
	f := newFunc()
	for _, i := range insns {
		i.Emit(f)
	}
	f.Finish()
	return f
}

func parseHex(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}

func checkText(t *testing.T, f *gen.Func, expect string) {
	t.Helper()
	if b := f.Text.Bytes(); string(b) != string(parseHex(expect)) {
		t.Errorf("text: % x\nexpected: %s", b, expect)
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

func TestDisplacementForms(t *testing.T) {
	for _, x := range []struct {
		name string
		load Load
		hex  string
		trap reloc.CodeOffset
	}{
		{"rx", Load{Type: wa.I32, Dst: R(2), Src: mem.RegOffset(R(3), 8)}, "58 20 30 08", 0},
		{"rxy", Load{Type: wa.I32, Dst: R(2), Src: mem.RegOffset(R(3), 4096)}, "e3 20 30 00 01 58", 0},
		{"negative", Load{Type: wa.I32, Dst: R(2), Src: mem.RegOffset(R(3), -4)}, "e3 20 3f fc ff 58", 0},
		{"upgrade", Load{Type: wa.I64, Dst: R(2), Src: mem.RegOffset(R(3), 8)}, "e3 20 30 08 00 04", 0},
		{"frame", Load{Type: wa.I64, Dst: R(2), Src: mem.FP(-8)}, "e3 20 bf f8 ff 04", 0},
		{"wide", Load{Type: wa.I64, Dst: R(2), Src: mem.RegOffset(R(3), 0x100000)}, "c0 11 00 10 00 00  e3 21 30 00 00 04", 6},
		{"wider", Load{Type: wa.I64, Dst: R(2), Src: mem.RegOffset(R(3), 0x100000000)}, "c0 18 00 00 00 01  c0 19 00 00 00 00  e3 21 30 00 00 04", 12},
		{"float", Load{Type: wa.F64, Dst: R(2), Src: mem.RegOffset(R(11), 16)}, "68 20 b0 10", 0},
		{"narrow", Load{Type: wa.I64, Size: wa.Size8, Dst: R(0), Src: mem.RegOffset(R(2), 0)}, "e3 00 20 00 00 90", 0},
	} {
		t.Run(x.name, func(t *testing.T) {
			x.load.Loc = 7
			f := emit(x.load)
			checkText(t, f, x.hex)

			if len(f.Traps) != 1 || f.Traps[0].Offset != x.trap || f.Traps[0].ID != trap.HeapOutOfBounds || f.Traps[0].Loc != 7 {
				t.Errorf("traps: %v", f.Traps)
			}
		})
	}
}

func TestIndexedForms(t *testing.T) {
	for _, x := range []struct {
		name string
		load Load
		hex  string
	}{
		{"index", Load{Type: wa.I32, Dst: R(2), Src: mem.RegReg(R(3), R(4), 0)}, "58 24 30 00"},
		{"shift", Load{Type: wa.I64, Dst: R(2), Src: mem.RegReg(R(3), R(4), 3)}, "eb 14 00 03 00 0d  e3 21 30 00 00 04"},
		{"shift wide", Load{Type: wa.I32, Dst: R(2), Src: mem.RegIndexOffset(R(3), R(4), 2, 0x100000)}, "eb 14 00 02 00 0d  c2 18 00 10 00 00  58 21 30 00"},
		{"index wide", Load{Type: wa.I64, Dst: R(2), Src: mem.RegIndexOffset(R(3), R(4), 0, 0x100000)}, "c0 11 00 10 00 00  b9 08 00 14  e3 21 30 00 00 04"},
	} {
		t.Run(x.name, func(t *testing.T) {
			checkText(t, emit(x.load), x.hex)
		})
	}

	expectPanic(t, func() {
		emit(Load{Type: wa.I64, Dst: R(2), Src: mem.RegIndexOffset(R(3), R(4), 2, 0x100000000)})
	})
}

func TestLabel(t *testing.T) {
	f := emit(
		Load{Type: wa.I64, Dst: R(2), Src: mem.LabelAddr(0)},
		Unreachable{},
		Bind{0},
	)
	checkText(t, f, "c4 28 00 00 00 04  00 00")

	f = emit(
		Bind{1},
		Load{Type: wa.F64, Dst: R(2), Src: mem.LabelAddr(1)},
	)
	checkText(t, f, "c0 10 00 00 00 00  68 20 10 00")

	f = emit(
		Bind{0},
		Unreachable{},
		Jump{0},
	)
	checkText(t, f, "00 00  c0 f4 ff ff ff ff")
}

func TestSymbol(t *testing.T) {
	f := emit(Load{Type: wa.I32, Dst: R(2), Src: mem.SymbolAddr("data", 4, true)})
	checkText(t, f, "c4 2d 00 00 00 00")
	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 2, Kind: reloc.S390xPCRel32Dbl, Symbol: "data", Addend: 6}) {
		t.Errorf("relocs: %v", f.Relocs)
	}

	f = emit(Load{Type: wa.I32, Dst: R(2), Src: mem.SymbolAddr("data", 5, true)})
	checkText(t, f, "c0 10 00 00 00 00  58 20 10 01")
	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 2, Kind: reloc.S390xPCRel32Dbl, Symbol: "data", Addend: 6}) {
		t.Errorf("relocs: %v", f.Relocs)
	}

	f = emit(Load{Type: wa.I64, Dst: R(2), Src: mem.SymbolAddr("extern", 8, false)})
	checkText(t, f, "a7 15 00 06  00 00 00 00 00 00 00 00  e3 10 10 00 00 04  e3 20 10 00 00 04")
	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 4, Kind: reloc.Abs8, Symbol: "extern", Addend: 8}) {
		t.Errorf("relocs: %v", f.Relocs)
	}
}

func TestInvalidAddresses(t *testing.T) {
	expectPanic(t, func() {
		emit(Load{Type: wa.I64, Dst: R(2), Src: mem.RegOffset(R0, 0)})
	})
	expectPanic(t, func() {
		emit(Load{Type: wa.I64, Dst: R(2), Src: mem.RegReg(R(3), R0, 0)})
	})
	expectPanic(t, func() {
		emit(Load{Type: wa.I64, Dst: R(2), Src: mem.RegOffset(RegScratch, 0)})
	})
	expectPanic(t, func() {
		emit(Store{Type: wa.I64, Src: RegScratch, Dst: mem.RegOffset(R(3), 0x100000)})
	})

	f := emit(Store{Type: wa.I32, Src: RegScratch, Dst: mem.RegOffset(R(3), 8)})
	checkText(t, f, "50 10 30 08")
}

func TestTrapPlacement(t *testing.T) {
	f := emit(Load{Type: wa.I64, Dst: R(2), Src: mem.RegOffset(R(3), 0)})
	if len(f.Traps) != 0 {
		t.Errorf("trap recorded without source location: %v", f.Traps)
	}

	f = emit(Store{Type: wa.I64, Src: R(2), Dst: mem.RegOffset(R(3), 0).WithFlags(mem.NoTrap), Loc: 1})
	if len(f.Traps) != 0 {
		t.Errorf("trap recorded for non-trapping access: %v", f.Traps)
	}

	f = emit(
		MoveImm{Dst: R(2), Value: 1},
		Store{Type: wa.I64, Src: R(2), Dst: mem.RegReg(R(3), R(4), 3), Loc: 1},
	)
	if len(f.Traps) != 1 || f.Traps[0].Offset != 4+6 {
		t.Errorf("traps: %v", f.Traps)
	}
}

func TestFrame(t *testing.T) {
	f := gen.NewFunc("s390x", buffer.NewDynamic(nil), 20)
	Target.Prologue(f)
	Call{Symbol: "f", Colocated: true}.Emit(f)
	Return{}.Emit(f)
	f.Finish()

	checkText(t, f, ""+
		"eb 6f f0 30 00 24"+ // stmg %r6,%r15,48(%r15)
		"b9 04 00 bf"+ // lgr %r11,%r15
		"a7 fb ff 48"+ // aghi %r15,-184
		"e3 b0 f0 00 00 24"+ // stg %r11,0(%r15)
		"c0 e5 00 00 00 00"+ // brasl %r14,f
		"eb 6f b0 30 00 04"+ // lmg %r6,%r15,48(%r11)
		"07 fe") // br %r14

	if f.FrameSize != 184 || f.PrologueSize != 20 {
		t.Errorf("frame size %d, prologue size %d", f.FrameSize, f.PrologueSize)
	}
	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 22, Kind: reloc.S390xPCRel32Dbl, Symbol: "f", Addend: 2}) {
		t.Errorf("relocs: %v", f.Relocs)
	}
	if len(f.StackMaps) != 1 || f.StackMaps[0].Offset != 26 || f.StackMaps[0].FrameSize != 184 {
		t.Errorf("stack maps: %v", f.StackMaps)
	}
}

func TestCalls(t *testing.T) {
	f := emit(
		AdjustSP{16},
		CallHost{Symbol: "host", Live: []uint32{160}},
		CallIndirect{Target: R(3)},
		AdjustSP{-16},
	)

	checkText(t, f, ""+
		"a7 fb ff f0  e3 b0 f0 00 00 24"+
		"a7 15 00 06  00 00 00 00 00 00 00 00  e3 10 10 00 00 04  0d e1"+
		"0d e3"+
		"a7 fb 00 10  e3 b0 f0 00 00 24")

	if len(f.Relocs) != 1 || f.Relocs[0] != (reloc.Site{Offset: 14, Kind: reloc.HostCallIndirect, Symbol: "host"}) {
		t.Errorf("relocs: %v", f.Relocs)
	}
	if len(f.StackMaps) != 2 || f.StackMaps[0].Offset != 30 || f.StackMaps[0].FrameSize != 16 || f.StackMaps[1].Offset != 32 {
		t.Errorf("stack maps: %v", f.StackMaps)
	}
	if f.Frame.VirtualSPOffset != 0 {
		t.Errorf("virtual sp offset: %d", f.Frame.VirtualSPOffset)
	}
}

func TestMoveImm(t *testing.T) {
	for _, x := range []struct {
		value int64
		hex   string
	}{
		{1, "a7 29 00 01"},
		{-1, "a7 29 ff ff"},
		{0x12345, "c0 21 00 01 23 45"},
		{1 << 32, "c0 28 00 00 00 01  c0 29 00 00 00 00"},
	} {
		checkText(t, emit(MoveImm{Dst: R(2), Value: x.value}), x.hex)
	}
}

func TestLoadAddress(t *testing.T) {
	checkText(t, emit(LoadAddress{Dst: R(2), Src: mem.FP(-8)}), "e3 20 bf f8 ff 71")
	checkText(t, emit(LoadAddress{Dst: R(2), Src: mem.RegOffset(R(3), 8)}), "41 20 30 08")

	f := emit(
		LoadAddress{Dst: R(2), Src: mem.LabelAddr(0)},
		Bind{0},
	)
	checkText(t, f, "c0 20 00 00 00 03")
}

func TestPad(t *testing.T) {
	b := []byte{1, 2, 3}
	Target.Pad(b)
	if string(b) != "\x00\x00\x00" {
		t.Errorf("% x", b)
	}
}
