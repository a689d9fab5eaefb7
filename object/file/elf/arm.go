// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elf

import (
	"debug/elf"

	"gate.computer/safepoint/reloc"
)

var armMachine = machine{
	machine: elf.EM_AARCH64,
	data:    elf.ELFDATA2LSB,
	types: map[reloc.Reloc]uint32{
		reloc.Abs4:                  uint32(elf.R_AARCH64_ABS32),
		reloc.Abs8:                  uint32(elf.R_AARCH64_ABS64),
		reloc.Arm64Call:             uint32(elf.R_AARCH64_CALL26),
		reloc.Aarch64AdrPrelPgHi21:  uint32(elf.R_AARCH64_ADR_PREL_PG_HI21),
		reloc.Aarch64AddAbsLo12Nc:   uint32(elf.R_AARCH64_ADD_ABS_LO12_NC),
		reloc.Aarch64AdrGotPage21:   uint32(elf.R_AARCH64_ADR_GOT_PAGE),
		reloc.Aarch64Ld64GotLo12Nc:  uint32(elf.R_AARCH64_LD64_GOT_LO12_NC),
		reloc.Aarch64TlsGdAdrPage21: uint32(elf.R_AARCH64_TLSGD_ADR_PAGE21),
		reloc.Aarch64TlsGdAddLo12Nc: uint32(elf.R_AARCH64_TLSGD_ADD_LO12_NC),
		reloc.HostCallIndirect:      uint32(elf.R_AARCH64_ABS64),
	},
	canonical: []reloc.Reloc{
		reloc.Abs4,
		reloc.Abs8,
		reloc.Arm64Call,
		reloc.Aarch64AdrPrelPgHi21,
		reloc.Aarch64AddAbsLo12Nc,
		reloc.Aarch64AdrGotPage21,
		reloc.Aarch64Ld64GotLo12Nc,
		reloc.Aarch64TlsGdAdrPage21,
		reloc.Aarch64TlsGdAddLo12Nc,
	},
}
