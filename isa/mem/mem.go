// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mem defines virtual memory operands.  A Mem is built by the
// instruction selector and consumed by one memory instruction emission, which
// resolves it into an addressing mode of the target architecture.
package mem

import (
	"fmt"

	"gate.computer/safepoint/isa/reg"
	"gate.computer/safepoint/reloc"
)

type Kind uint8

const (
	KindRegReg          Kind = iota // base + index << shift
	KindRegOffset                   // base [+ index << shift] + disp
	KindLabel                       // PC-relative label
	KindSymbol                      // symbol + addend
	KindInitialSPOffset             // stack pointer at function entry + offset
	KindNominalSPOffset             // nominal stack pointer + offset
	KindFPOffset                    // frame pointer + offset
)

var kindNames = [...]string{
	KindRegReg:          "RegReg",
	KindRegOffset:       "RegOffset",
	KindLabel:           "Label",
	KindSymbol:          "Symbol",
	KindInitialSPOffset: "InitialSPOffset",
	KindNominalSPOffset: "NominalSPOffset",
	KindFPOffset:        "FPOffset",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Virtual reports whether the operand is relative to the frame layout.
func (k Kind) Virtual() bool {
	return k >= KindInitialSPOffset
}

type Flags uint8

const (
	NoTrap  Flags = 1 << iota // Access cannot fault.
	Aligned                   // Address is naturally aligned.
)

// Label identifies a code position within one function.
type Label uint32

// Mem is a virtual memory operand.  Fields which are not used by the kind are
// zero (Index is reg.None).
type Mem struct {
	Kind      Kind
	Base      reg.R
	Index     reg.R
	Shift     uint8
	Disp      int64
	Label     Label
	Symbol    string
	Addend    reloc.Addend
	Colocated bool // Symbol is defined in the same code region.
	Flags     Flags
}

func RegReg(base, index reg.R, shift uint8) Mem {
	return Mem{Kind: KindRegReg, Base: base, Index: index, Shift: shift}
}

func RegOffset(base reg.R, disp int64) Mem {
	return Mem{Kind: KindRegOffset, Base: base, Index: reg.None, Disp: disp}
}

func RegIndexOffset(base, index reg.R, shift uint8, disp int64) Mem {
	return Mem{Kind: KindRegOffset, Base: base, Index: index, Shift: shift, Disp: disp}
}

func LabelAddr(l Label) Mem {
	return Mem{Kind: KindLabel, Base: reg.None, Index: reg.None, Label: l}
}

func SymbolAddr(name string, addend reloc.Addend, colocated bool) Mem {
	return Mem{Kind: KindSymbol, Base: reg.None, Index: reg.None, Symbol: name, Addend: addend, Colocated: colocated}
}

func InitialSP(offset int64) Mem {
	return Mem{Kind: KindInitialSPOffset, Base: reg.None, Index: reg.None, Disp: offset}
}

func NominalSP(offset int64) Mem {
	return Mem{Kind: KindNominalSPOffset, Base: reg.None, Index: reg.None, Disp: offset}
}

func FP(offset int64) Mem {
	return Mem{Kind: KindFPOffset, Base: reg.None, Index: reg.None, Disp: offset}
}

func (m Mem) WithFlags(f Flags) Mem {
	m.Flags |= f
	return m
}

// MayTrap reports whether an access through the operand may fault.
func (m Mem) MayTrap() bool {
	return m.Flags&NoTrap == 0
}

// HasIndex reports whether an index register is part of the address.
func (m Mem) HasIndex() bool {
	return m.Index.Valid() && (m.Kind == KindRegReg || m.Kind == KindRegOffset)
}

// Uses reports whether r is the base or the index of the address.
func (m Mem) Uses(r reg.R) bool {
	switch m.Kind {
	case KindRegReg, KindRegOffset:
		return m.Base == r || (m.Index.Valid() && m.Index == r)
	}
	return false
}

func (m Mem) String() string {
	switch m.Kind {
	case KindRegReg:
		return fmt.Sprintf("[%s + %s<<%d]", m.Base, m.Index, m.Shift)

	case KindRegOffset:
		if m.Index.Valid() {
			return fmt.Sprintf("[%s + %s<<%d %+d]", m.Base, m.Index, m.Shift, m.Disp)
		}
		return fmt.Sprintf("[%s %+d]", m.Base, m.Disp)

	case KindLabel:
		return fmt.Sprintf("label.%d", m.Label)

	case KindSymbol:
		if m.Addend != 0 {
			return fmt.Sprintf("%s%+d", m.Symbol, m.Addend)
		}
		return m.Symbol

	case KindInitialSPOffset:
		return fmt.Sprintf("[initial-sp %+d]", m.Disp)

	case KindNominalSPOffset:
		return fmt.Sprintf("[nominal-sp %+d]", m.Disp)

	case KindFPOffset:
		return fmt.Sprintf("[fp %+d]", m.Disp)

	default:
		return m.Kind.String()
	}
}
