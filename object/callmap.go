// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"sort"

	"gate.computer/safepoint/trap"
)

// TrapSite is the offset of an instruction which may fault.
//
// The struct size or layout will not change between minor versions.
type TrapSite struct {
	Addr uint32
	ID   trap.ID
}

func FindTrapSite(a []TrapSite, addr uint32) (i int, found bool) {
	i = sort.Search(len(a), func(i int) bool {
		return a[i].Addr >= addr
	})
	found = i < len(a) && a[i].Addr == addr
	return
}

// FindTrap at the faulting instruction address.
func (c *CompiledCode) FindTrap(addr uint32) (id trap.ID, found bool) {
	if i, ok := FindTrapSite(c.Traps, addr); ok {
		id = c.Traps[i].ID
		found = true
	}
	return
}
