// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"sort"
)

// FuncInfo describes the placement and frame of a function.  FrameSize is
// the distance from the frame pointer to the stack pointer after the
// prologue, which is PrologueSize bytes long.
type FuncInfo struct {
	Name         string
	Addr         uint32
	Size         uint32
	FrameSize    uint32
	PrologueSize uint32
}

// End offset of the function.
func (f FuncInfo) End() uint32 {
	return f.Addr + f.Size
}

// FindFunc containing addr.  A return address at the end of a function
// belongs to it.
func FindFunc(a []FuncInfo, addr uint32) (i int, found bool) {
	i = sort.Search(len(a), func(i int) bool {
		return a[i].End() >= addr
	})
	found = i < len(a) && a[i].Addr <= addr
	return
}

// FindFunc containing addr.
func (c *CompiledCode) FindFunc(addr uint32) (f FuncInfo, found bool) {
	if i, ok := FindFunc(c.Funcs, addr); ok {
		f = c.Funcs[i]
		found = true
	}
	return
}
