// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dump prints compiled code for humans.
package dump

import (
	"fmt"

	"gate.computer/safepoint/object"
)

// annotations by the code offsets which they are attached to.  Safepoints
// are attached to the byte preceding the return address, which is the last
// byte of the call instruction.
func annotations(code *object.CompiledCode) (map[uint][]string, error) {
	notes := make(map[uint][]string)

	for _, t := range code.Traps {
		notes[uint(t.Addr)] = append(notes[uint(t.Addr)], "trap: "+t.ID.String())
	}

	for _, r := range code.Relocs {
		s := fmt.Sprintf("reloc: %s %s", r.Kind, r.Symbol)
		if r.Addend != 0 {
			s += fmt.Sprintf("%+d", r.Addend)
		}
		notes[uint(r.Offset)] = append(notes[uint(r.Offset)], s)
	}

	maps, err := code.StackMaps()
	if err != nil {
		return nil, err
	}
	for _, e := range maps.Entries() {
		if e.PC == 0 {
			continue
		}
		addr := uint(e.PC - 1)
		notes[addr] = append(notes[addr], fmt.Sprintf("safepoint: frame %d slots %v", e.FrameSize, e.Slots))
	}

	return notes, nil
}
