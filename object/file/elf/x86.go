// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elf

import (
	"debug/elf"

	"gate.computer/safepoint/reloc"
)

var x86Machine = machine{
	machine: elf.EM_X86_64,
	data:    elf.ELFDATA2LSB,
	types: map[reloc.Reloc]uint32{
		reloc.Abs4:             uint32(elf.R_X86_64_32),
		reloc.Abs8:             uint32(elf.R_X86_64_64),
		reloc.X86PCRel4:        uint32(elf.R_X86_64_PC32),
		reloc.X86CallPCRel4:    uint32(elf.R_X86_64_PC32),
		reloc.X86CallPLTRel4:   uint32(elf.R_X86_64_PLT32),
		reloc.X86GOTPCRel4:     uint32(elf.R_X86_64_GOTPCREL),
		reloc.ElfX86_64TlsGd:   uint32(elf.R_X86_64_TLSGD),
		reloc.HostCallIndirect: uint32(elf.R_X86_64_64),
	},
	canonical: []reloc.Reloc{
		reloc.Abs4,
		reloc.Abs8,
		reloc.X86PCRel4,
		reloc.X86CallPLTRel4,
		reloc.X86GOTPCRel4,
		reloc.ElfX86_64TlsGd,
	},
}
