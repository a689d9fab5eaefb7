// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stacktrace formats walked frames of loaded code.
package stacktrace

import (
	"fmt"
	"io"

	"gate.computer/safepoint/object"
	"gate.computer/safepoint/object/stack"
)

// Fprint writes one line per frame.  Frames are attributed to the functions
// of code, which is loaded at textAddr.
func Fprint(w io.Writer, frames []stack.Frame, textAddr uintptr, code *object.CompiledCode) (err error) {
	for depth, frame := range frames {
		var location string

		if frame.PC >= textAddr && frame.PC-textAddr <= uintptr(len(code.Text)) {
			offset := uint32(frame.PC - textAddr)

			if f, found := code.FindFunc(offset); found {
				location = fmt.Sprintf("%s+0x%x", f.Name, offset-f.Addr)
			} else {
				location = fmt.Sprintf("text+0x%x", offset)
			}
		} else {
			location = fmt.Sprintf("0x%x", frame.PC)
		}

		_, err = fmt.Fprintf(w, "#%-2d %s\n", depth, location)
		if err != nil {
			return
		}
	}

	return
}
