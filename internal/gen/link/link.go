// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link tracks label positions and the instructions which refer to
// them.
package link

import (
	"gate.computer/safepoint/reloc"
)

// Patcher updates the instruction at site so that it refers to target.  The
// text slice covers all code emitted so far.
type Patcher func(text []byte, site, target reloc.CodeOffset)

type Site struct {
	Addr  reloc.CodeOffset
	Patch Patcher
}

type L struct {
	Sites []Site
	Addr  reloc.CodeOffset
	bound bool
}

func (l *L) AddSite(addr reloc.CodeOffset, patch Patcher) {
	l.Sites = append(l.Sites, Site{addr, patch})
}

func (l *L) Bind(addr reloc.CodeOffset) {
	if l.bound {
		panic("label bound twice")
	}
	l.Addr = addr
	l.bound = true
}

func (l *L) Bound() bool {
	return l.bound
}

func (l *L) FinalAddr() reloc.CodeOffset {
	if !l.bound {
		panic("link address undefined while updating branch or call instruction")
	}
	return l.Addr
}

// Apply patches all sites.
func (l *L) Apply(text []byte) {
	addr := l.FinalAddr()
	for _, s := range l.Sites {
		s.Patch(text, s.Addr, addr)
	}
}
