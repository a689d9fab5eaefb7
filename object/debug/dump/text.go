// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/knightsc/gapstone"

	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/object"
)

type engineParams struct {
	arch    int
	mode    int
	syntax  uint
	padInsn uint
	unit    int // size of undecodable data
}

var engines = map[isa.Arch]engineParams{
	isa.AMD64: {gapstone.CS_ARCH_X86, gapstone.CS_MODE_64, gapstone.CS_OPT_SYNTAX_ATT, gapstone.X86_INS_INT3, 1},
	isa.ARM64: {gapstone.CS_ARCH_ARM64, gapstone.CS_MODE_LITTLE_ENDIAN, gapstone.CS_OPT_SYNTAX_DEFAULT, gapstone.ARM64_INS_BRK, 4},
	isa.S390X: {gapstone.CS_ARCH_SYSZ, gapstone.CS_MODE_BIG_ENDIAN, gapstone.CS_OPT_SYNTAX_DEFAULT, 0, 2},
}

// Text disassembles code located at textAddr (zero means relative
// addresses).  Functions are labeled, and trap sites, relocations and
// safepoints are annotated.
func Text(w io.Writer, code *object.CompiledCode, textAddr uintptr) error {
	p, found := engines[code.Arch]
	if !found {
		return fmt.Errorf("disassembly of %v is not supported", code.Arch)
	}

	engine, err := gapstone.New(p.arch, p.mode)
	if err != nil {
		return err
	}
	defer engine.Close()

	if p.syntax != gapstone.CS_OPT_SYNTAX_DEFAULT {
		if err := engine.SetOption(gapstone.CS_OPT_SYNTAX, p.syntax); err != nil {
			return err
		}
	}

	notes, err := annotations(code)
	if err != nil {
		return err
	}

	labels := make(map[uint]string)
	for _, f := range code.Funcs {
		labels[uint(f.Addr)] = f.Name
	}

	addrWidth := (len(fmt.Sprintf("%x", textAddr+uintptr(len(code.Text)))) + 7) &^ 7
	addrFmt := fmt.Sprintf("%%%dx", addrWidth)
	if textAddr != 0 {
		addrFmt = fmt.Sprintf("%%0%dx", addrWidth)
	}

	var (
		text    = code.Text
		offset  uint
		skipPad bool
	)

	line := func(addr uint, size int, s string) {
		if name, found := labels[addr]; found {
			fmt.Fprintf(w, "\n%s:\n", name)
		}
		fmt.Fprintf(w, addrFmt+"\t%s", textAddr+uintptr(addr), s)
		for i := addr; i < addr+uint(size); i++ {
			for _, n := range notes[i] {
				fmt.Fprintf(w, "\t; %s", n)
			}
		}
		fmt.Fprintln(w)
	}

	for len(text) > 0 {
		insns, _ := engine.Disasm(text, uint64(offset), 0)

		for _, insn := range insns {
			if p.padInsn != 0 && insn.Id == p.padInsn && labels[insn.Address] == "" && len(notes[insn.Address]) == 0 {
				if skipPad {
					continue
				}
				skipPad = true
			} else {
				skipPad = false
			}

			line(insn.Address, int(insn.Size), strings.TrimSpace(insn.Mnemonic+"\t"+insn.OpStr))
		}

		for _, insn := range insns {
			offset += uint(insn.Size)
			text = text[insn.Size:]
		}

		if len(text) > 0 {
			n := p.unit
			if n > len(text) {
				n = len(text)
			}
			line(offset, n, fmt.Sprintf(".byte\t% x", text[:n]))
			offset += uint(n)
			text = text[n:]
			skipPad = false
		}
	}

	fmt.Fprintln(w)
	return nil
}
