// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build debug || gendebug

package debug

import (
	"fmt"
	"sync"

	"github.com/knightsc/gapstone"
)

const Enabled = true

var Depth int

func Printf(format string, args ...interface{}) {
	if Depth < 0 {
		panic("negative DebugDepth")
	}

	for i := 0; i < Depth; i++ {
		print("  ")
	}

	print(fmt.Sprintf(format+"\n", args...))
}

var (
	enginesMu sync.Mutex
	engines   = make(map[string]*gapstone.Engine)
)

func engine(arch string) *gapstone.Engine {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	if e, ok := engines[arch]; ok {
		return e
	}

	var (
		e   gapstone.Engine
		err error
	)

	switch arch {
	case "amd64":
		e, err = gapstone.New(gapstone.CS_ARCH_X86, gapstone.CS_MODE_64)
		if err == nil {
			err = e.SetOption(gapstone.CS_OPT_SYNTAX, gapstone.CS_OPT_SYNTAX_ATT)
		}

	case "arm64":
		e, err = gapstone.New(gapstone.CS_ARCH_ARM64, gapstone.CS_MODE_ARM)

	case "s390x":
		e, err = gapstone.New(gapstone.CS_ARCH_SYSZ, gapstone.CS_MODE_BIG_ENDIAN)

	default:
		err = fmt.Errorf("unsupported architecture: %s", arch)
	}
	if err != nil {
		panic(err)
	}

	engines[arch] = &e
	return &e
}

// PrintInsn disassembles and prints machine code emitted at addr.
func PrintInsn(arch string, addr uint32, data []byte) {
	hex := " ;"
	for i, b := range data {
		if i > 0 && (i&3) == 0 {
			hex += " "
		}
		hex += fmt.Sprintf(" %02x", b)
	}

	insns, err := engine(arch).Disasm(data, uint64(addr), 0)
	if err != nil || len(insns) == 0 {
		Printf("%#06x: (bad)%s", addr, hex)
		return
	}

	for _, insn := range insns {
		Printf("%#06x: %-7s %-25s%s", insn.Address, insn.Mnemonic, insn.OpStr, hex)
		hex = ""
	}
}
