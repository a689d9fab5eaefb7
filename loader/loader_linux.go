// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"runtime"
	"unsafe"

	"gate.computer/safepoint/gcmap"
	"gate.computer/safepoint/object"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Program is compiled code mapped into executable memory.
type Program struct {
	Code *object.CompiledCode
	mem  []byte
}

// Load code for execution on the host.  The global offset table is placed
// after the text in the same mapping.  Relocations are applied before the
// memory is made read-only and executable.
func Load(code *object.CompiledCode, r Resolver) (*Program, error) {
	if code.Arch.String() != runtime.GOARCH {
		return nil, xerrors.Errorf("%s code cannot be loaded on %s", code.Arch, runtime.GOARCH)
	}

	pageSize := unix.Getpagesize()
	size := (ImageSize(code) + pageSize - 1) &^ (pageSize - 1)
	if size == 0 {
		size = pageSize
	}

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, xerrors.Errorf("mmap: %w", err)
	}

	p := &Program{code, mem}

	copy(mem, code.Text)

	if err := Relocate(mem, uint64(p.TextAddr()), code, r); err != nil {
		p.Close()
		return nil, err
	}

	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		p.Close()
		return nil, xerrors.Errorf("mprotect: %w", err)
	}

	return p, nil
}

// TextAddr is the absolute address of the first instruction.
func (p *Program) TextAddr() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p.mem)))
}

// Text as mapped (including relocations).
func (p *Program) Text() []byte {
	return p.mem[:len(p.Code.Text)]
}

// Metadata for stack map lookups of the mapped code.
func (p *Program) Metadata() ([]gcmap.CompiledFunctionMetadata, error) {
	return Metadata(p.Code, p.TextAddr())
}

// Declare the stack maps of the program to the process-wide registry.  It
// can be done only once per process.
func (p *Program) Declare() error {
	funcs, err := p.Metadata()
	if err != nil {
		return err
	}
	gcmap.DeclareStackMaps(funcs)
	return nil
}

// Close unmaps the program.  It must not be executing, and its stack maps
// must not have been declared.
func (p *Program) Close() (err error) {
	if p.mem != nil {
		err = unix.Munmap(p.mem)
		p.mem = nil
	}
	return
}
