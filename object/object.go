// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object holds the result of compiling a unit of functions: machine
// code and the metadata needed to link, load and unwind it.
package object

import (
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/stackmap"
)

// CodeInfo of a compiled code region.
type CodeInfo struct {
	TotalSize uint32
}

// Section of additional data, such as stack maps.
type Section struct {
	Name  string
	Data  []byte
	Align int
}

// CompiledCode of a compilation unit.  Offsets are relative to the start of
// Text.  Funcs, Traps and Relocs are sorted by offset.
type CompiledCode struct {
	Arch     isa.Arch
	Info     CodeInfo
	Text     []byte
	Funcs    []FuncInfo
	Traps    []TrapSite
	Relocs   []reloc.Site
	Sections []Section
}

// AddSection implements stackmap.Object.
func (c *CompiledCode) AddSection(name string, data []byte, align int) {
	c.Sections = append(c.Sections, Section{name, data, align})
}

// Section data by name, or nil.
func (c *CompiledCode) Section(name string) []byte {
	for _, s := range c.Sections {
		if s.Name == name {
			return s.Data
		}
	}
	return nil
}

// StackMaps parses the stack map section.  It is empty if the code has no
// safepoints with live references.
func (c *CompiledCode) StackMaps() (stackmap.Section, error) {
	return stackmap.Parse(c.Section(stackmap.SectionName))
}
