// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reloc enumerates position-dependent references recorded while
// emitting machine code.
//
// The Reloc type is shared by all target architectures; a consumer only
// interprets the kinds relevant to its target.
package reloc

import (
	"fmt"
)

// CodeOffset is a byte offset within emitted code.  It is not a host
// pointer-width integer, because the target may be narrower or wider than
// the host.
type CodeOffset uint32

// Addend is added to the resolved symbol address.
type Addend int64

// Reloc kind.
type Reloc uint8

const (
	Abs4                        Reloc = iota // absolute 4-byte
	Abs8                                     // absolute 8-byte
	X86PCRel4                                // x86 PC-relative 4-byte
	X86CallPCRel4                            // x86 call to PC-relative 4-byte
	X86CallPLTRel4                           // x86 call to PLT-relative 4-byte
	X86GOTPCRel4                             // x86 GOT PC-relative 4-byte
	X86SecRel                                // x86 section-relative 4-byte (COFF)
	Arm32Call                                // arm32 call target
	Arm64Call                                // arm64 call target (26-bit word displacement)
	S390xPCRel32Dbl                          // s390x PC-relative 4-byte offset in halfwords
	S390xPLTRel32Dbl                         // s390x PC-relative 4-byte PLT offset in halfwords
	ElfX86_64TlsGd                           // ELF x86_64 TLS general dynamic
	MachOX86_64Tlv                           // Mach-O x86_64 TLS variable
	MachOAarch64TlsAdrPage21                 // Mach-O aarch64 TLS ADRP page
	MachOAarch64TlsAdrPageOff12              // Mach-O aarch64 TLS page offset
	Aarch64TlsGdAdrPage21                    // aarch64 TLS general dynamic ADRP
	Aarch64TlsGdAddLo12Nc                    // aarch64 TLS general dynamic ADD low 12 bits
	Aarch64AdrGotPage21                      // aarch64 GOT entry page (ADRP)
	Aarch64Ld64GotLo12Nc                     // aarch64 GOT entry low 12 bits (LDR)
	Aarch64AdrPrelPgHi21                     // aarch64 PC-relative page (ADRP)
	Aarch64AddAbsLo12Nc                      // aarch64 absolute low 12 bits (ADD)
	S390xTlsGd64                             // s390x TLS general dynamic GOT offset
	S390xTlsGdCall                           // s390x TLS general dynamic call marker
	HostCallIndirect                         // indirect call to a host function identifier

	NumRelocs
)

var names = [NumRelocs]string{
	Abs4:                        "Abs4",
	Abs8:                        "Abs8",
	X86PCRel4:                   "X86PCRel4",
	X86CallPCRel4:               "X86CallPCRel4",
	X86CallPLTRel4:              "X86CallPLTRel4",
	X86GOTPCRel4:                "X86GOTPCRel4",
	X86SecRel:                   "X86SecRel",
	Arm32Call:                   "Arm32Call",
	Arm64Call:                   "Arm64Call",
	S390xPCRel32Dbl:             "S390xPCRel32Dbl",
	S390xPLTRel32Dbl:            "S390xPLTRel32Dbl",
	ElfX86_64TlsGd:              "ElfX86_64TlsGd",
	MachOX86_64Tlv:              "MachOX86_64Tlv",
	MachOAarch64TlsAdrPage21:    "MachOAarch64TlsAdrPage21",
	MachOAarch64TlsAdrPageOff12: "MachOAarch64TlsAdrPageOff12",
	Aarch64TlsGdAdrPage21:       "Aarch64TlsGdAdrPage21",
	Aarch64TlsGdAddLo12Nc:       "Aarch64TlsGdAddLo12Nc",
	Aarch64AdrGotPage21:         "Aarch64AdrGotPage21",
	Aarch64Ld64GotLo12Nc:        "Aarch64Ld64GotLo12Nc",
	Aarch64AdrPrelPgHi21:        "Aarch64AdrPrelPgHi21",
	Aarch64AddAbsLo12Nc:         "Aarch64AddAbsLo12Nc",
	S390xTlsGd64:                "S390xTlsGd64",
	S390xTlsGdCall:              "S390xTlsGdCall",
	HostCallIndirect:            "HostCallIndirect",
}

// Display names omit the architecture prefix: relocations are always shown
// next to code of one fixed architecture.
var displayNames = [NumRelocs]string{
	X86PCRel4:        "PCRel4",
	X86CallPCRel4:    "CallPCRel4",
	X86CallPLTRel4:   "CallPLTRel4",
	X86GOTPCRel4:     "GOTPCRel4",
	X86SecRel:        "SecRel",
	Arm32Call:        "Call",
	Arm64Call:        "Call",
	S390xPCRel32Dbl:  "PCRel32Dbl",
	S390xPLTRel32Dbl: "PLTRel32Dbl",
}

// Name is the architecture-qualified name.
func (r Reloc) Name() string {
	if r < NumRelocs {
		return names[r]
	}
	return fmt.Sprintf("Reloc(%d)", uint8(r))
}

// String is the display name.
func (r Reloc) String() string {
	if r < NumRelocs {
		if s := displayNames[r]; s != "" {
			return s
		}
	}
	return r.Name()
}

// Size of the patched field in bytes.  Instruction-embedded fields report
// the size of the instruction word.
func (r Reloc) Size() int {
	switch r {
	case Abs8, S390xTlsGd64, HostCallIndirect:
		return 8

	case S390xTlsGdCall:
		return 0

	default:
		return 4
	}
}

// Site is a relocation recorded at an offset of emitted code.
type Site struct {
	Offset CodeOffset
	Kind   Reloc
	Symbol string
	Addend Addend
}

func (s Site) String() string {
	if s.Addend != 0 {
		return fmt.Sprintf("%#x: %s %s%+d", s.Offset, s.Kind, s.Symbol, s.Addend)
	}
	return fmt.Sprintf("%#x: %s %s", s.Offset, s.Kind, s.Symbol)
}
