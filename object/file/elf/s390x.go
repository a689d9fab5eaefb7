// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elf

import (
	"debug/elf"

	"gate.computer/safepoint/reloc"
)

var s390xMachine = machine{
	machine: elf.EM_S390,
	data:    elf.ELFDATA2MSB,
	types: map[reloc.Reloc]uint32{
		reloc.Abs4:             uint32(elf.R_390_32),
		reloc.Abs8:             uint32(elf.R_390_64),
		reloc.S390xPCRel32Dbl:  uint32(elf.R_390_PC32DBL),
		reloc.S390xPLTRel32Dbl: uint32(elf.R_390_PLT32DBL),
		reloc.S390xTlsGd64:     uint32(elf.R_390_TLS_GD64),
		reloc.S390xTlsGdCall:   uint32(elf.R_390_TLS_GDCALL),
		reloc.HostCallIndirect: uint32(elf.R_390_64),
	},
	canonical: []reloc.Reloc{
		reloc.Abs4,
		reloc.Abs8,
		reloc.S390xPCRel32Dbl,
		reloc.S390xPLTRel32Dbl,
		reloc.S390xTlsGd64,
		reloc.S390xTlsGdCall,
	},
}
