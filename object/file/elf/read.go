// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"

	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/object"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/trap"
	"golang.org/x/xerrors"
)

type machine struct {
	machine elf.Machine
	data    elf.Data
	types   map[reloc.Reloc]uint32

	// Kinds chosen for ELF types when the kind section is missing.
	canonical []reloc.Reloc
}

func (m *machine) kind(t uint32) (reloc.Reloc, bool) {
	for _, k := range m.canonical {
		if m.types[k] == t {
			return k, true
		}
	}
	return 0, false
}

var machines = map[isa.Arch]*machine{
	isa.AMD64: &x86Machine,
	isa.ARM64: &armMachine,
	isa.S390X: &s390xMachine,
}

func archOf(m elf.Machine) (isa.Arch, bool) {
	for arch, x := range machines {
		if x.machine == m {
			return arch, true
		}
	}
	return 0, false
}

// Read compiled code from an ELF64 relocatable object.  Sections other than
// the standard ones are returned in CompiledCode.Sections.
func Read(r io.ReaderAt) (*object.CompiledCode, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, xerrors.Errorf("elf: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Type != elf.ET_REL {
		return nil, xerrors.Errorf("elf: not a 64-bit relocatable object (%v, %v)", f.Class, f.Type)
	}

	arch, found := archOf(f.Machine)
	if !found {
		return nil, xerrors.Errorf("elf: unsupported machine %v", f.Machine)
	}

	code := &object.CompiledCode{Arch: arch}

	if s := f.Section(".text"); s != nil {
		if code.Text, err = s.Data(); err != nil {
			return nil, xerrors.Errorf("elf: .text: %w", err)
		}
	}
	code.Info.TotalSize = uint32(len(code.Text))

	symbols, err := f.Symbols()
	if err != nil && !xerrors.Is(err, elf.ErrNoSymbols) {
		return nil, xerrors.Errorf("elf: symbols: %w", err)
	}

	if err := readFuncs(f, code, symbols); err != nil {
		return nil, err
	}
	if err := readRelocs(f, code, machines[arch], symbols); err != nil {
		return nil, err
	}
	if err := readTraps(f, code); err != nil {
		return nil, err
	}

	for _, s := range f.Sections {
		switch s.Name {
		case "", ".text", ".symtab", ".strtab", ".shstrtab", ".rela.text", RelocKindsSection, TrapsSection, FramesSection:
			continue
		}

		data, err := s.Data()
		if err != nil {
			return nil, xerrors.Errorf("elf: %s: %w", s.Name, err)
		}
		code.AddSection(s.Name, data, int(s.Addralign))
	}

	return code, nil
}

func sectionData(f *elf.File, name string) ([]byte, error) {
	s := f.Section(name)
	if s == nil {
		return nil, nil
	}
	data, err := s.Data()
	if err != nil {
		return nil, xerrors.Errorf("elf: %s: %w", name, err)
	}
	return data, nil
}

func readFuncs(f *elf.File, code *object.CompiledCode, symbols []elf.Symbol) error {
	frames, err := sectionData(f, FramesSection)
	if err != nil {
		return err
	}
	if len(frames)%16 != 0 {
		return xerrors.Errorf("elf: %s size %d is not a multiple of 16", FramesSection, len(frames))
	}

	var names []string
	for _, sym := range symbols {
		if elf.ST_TYPE(sym.Info) == elf.STT_FUNC {
			names = append(names, sym.Name)
		}
	}
	if len(names) != len(frames)/16 {
		return xerrors.Errorf("elf: %d function symbols but %d frames", len(names), len(frames)/16)
	}

	for i, name := range names {
		b := frames[16*i:]
		fn := object.FuncInfo{
			Name:         name,
			Addr:         binary.LittleEndian.Uint32(b[0:]),
			Size:         binary.LittleEndian.Uint32(b[4:]),
			FrameSize:    binary.LittleEndian.Uint32(b[8:]),
			PrologueSize: binary.LittleEndian.Uint32(b[12:]),
		}
		if uint64(fn.Addr)+uint64(fn.Size) > uint64(len(code.Text)) {
			return xerrors.Errorf("elf: function %s is outside of text", name)
		}
		if i > 0 && fn.Addr < code.Funcs[i-1].End() {
			return xerrors.Errorf("elf: function %s overlaps its predecessor", name)
		}
		code.Funcs = append(code.Funcs, fn)
	}

	return nil
}

func readRelocs(f *elf.File, code *object.CompiledCode, m *machine, symbols []elf.Symbol) error {
	data, err := sectionData(f, ".rela.text")
	if err != nil {
		return err
	}
	if len(data)%relaSize != 0 {
		return xerrors.Errorf("elf: .rela.text size %d is not a multiple of %d", len(data), relaSize)
	}

	kinds, err := sectionData(f, RelocKindsSection)
	if err != nil {
		return err
	}
	if kinds != nil && len(kinds) != len(data)/relaSize {
		return xerrors.Errorf("elf: %d relocation kinds for %d relocations", len(kinds), len(data)/relaSize)
	}

	r := bytes.NewReader(data)
	for i := 0; r.Len() > 0; i++ {
		var rela elf.Rela64
		if err := binary.Read(r, f.ByteOrder, &rela); err != nil {
			return xerrors.Errorf("elf: .rela.text: %w", err)
		}

		symIndex := elf.R_SYM64(rela.Info)
		if symIndex == 0 || int(symIndex) > len(symbols) {
			return xerrors.Errorf("elf: relocation %d refers to symbol %d", i, symIndex)
		}

		typ := elf.R_TYPE64(rela.Info)

		var kind reloc.Reloc
		if kinds != nil {
			kind = reloc.Reloc(kinds[i])
			if t, found := m.types[kind]; !found || t != typ {
				return xerrors.Errorf("elf: relocation %d kind %s does not match type %d", i, kind.Name(), typ)
			}
		} else {
			var found bool
			if kind, found = m.kind(typ); !found {
				return xerrors.Errorf("elf: relocation %d has unsupported type %d", i, typ)
			}
		}

		if rela.Off+uint64(kind.Size()) > uint64(len(code.Text)) {
			return xerrors.Errorf("elf: relocation %d is outside of text", i)
		}

		code.Relocs = append(code.Relocs, reloc.Site{
			Offset: reloc.CodeOffset(rela.Off),
			Kind:   kind,
			Symbol: symbols[symIndex-1].Name,
			Addend: reloc.Addend(rela.Addend),
		})
	}

	return nil
}

func readTraps(f *elf.File, code *object.CompiledCode) error {
	data, err := sectionData(f, TrapsSection)
	if err != nil {
		return err
	}
	if len(data)%8 != 0 {
		return xerrors.Errorf("elf: %s size %d is not a multiple of 8", TrapsSection, len(data))
	}

	for i := 0; i < len(data); i += 8 {
		code.Traps = append(code.Traps, object.TrapSite{
			Addr: binary.LittleEndian.Uint32(data[i:]),
			ID:   trap.ID(binary.LittleEndian.Uint32(data[i+4:])),
		})
	}

	return nil
}
