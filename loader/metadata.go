// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"gate.computer/safepoint/gcmap"
	"gate.computer/safepoint/object"
	"golang.org/x/xerrors"
)

// Metadata converts the stack maps of code located at textAddr into
// per-function metadata sorted by address.  Every safepoint becomes a
// zero-length stack location at its return address.
func Metadata(code *object.CompiledCode, textAddr uintptr) ([]gcmap.CompiledFunctionMetadata, error) {
	maps, err := code.StackMaps()
	if err != nil {
		return nil, err
	}

	funcs := make([]gcmap.CompiledFunctionMetadata, len(code.Funcs))
	for i, f := range code.Funcs {
		funcs[i].Start = textAddr + uintptr(f.Addr)
		funcs[i].End = textAddr + uintptr(f.End())
	}

	for _, e := range maps.Entries() {
		i, found := object.FindFunc(code.Funcs, e.PC)
		if !found {
			return nil, xerrors.Errorf("stack map at %#x is outside of functions", e.PC)
		}

		funcs[i].StackLocations = append(funcs[i].StackLocations, gcmap.StackLocation{
			Offset:    e.PC - code.Funcs[i].Addr,
			FrameSize: e.FrameSize,
			Slots:     e.Slots,
		})
	}

	return funcs, nil
}
