// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elf stores compiled code in ELF64 relocatable object files.
package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"io"

	"gate.computer/safepoint/object"
	"golang.org/x/xerrors"
)

// Names of sections which carry code metadata.  Their contents are
// little-endian regardless of the target.
const (
	TrapsSection      = ".wag.traps"      // u32 offset, u32 trap id
	FramesSection     = ".wag.frames"     // u32 start, size, frame size, prologue size
	RelocKindsSection = ".wag.relockinds" // one byte per .rela.text entry
)

const (
	headerSize  = 64
	sectionSize = 64
	symbolSize  = 24
	relaSize    = 24

	textAlign = 16
)

// File wraps compiled code for writing.
type File struct {
	Code *object.CompiledCode
}

// WriteTo writes an ELF64 relocatable object.
func (f *File) WriteTo(w io.Writer) (n int64, err error) {
	var b bytes.Buffer
	if err = write(&b, f.Code); err != nil {
		return
	}
	m, err := w.Write(b.Bytes())
	n = int64(m)
	return
}

// Write an ELF64 relocatable object.
func Write(w io.Writer, code *object.CompiledCode) error {
	_, err := (&File{code}).WriteTo(w)
	return err
}

type strtab struct {
	bytes.Buffer
}

func newStrtab() *strtab {
	t := new(strtab)
	t.WriteByte(0)
	return t
}

func (t *strtab) add(s string) uint32 {
	if s == "" {
		return 0
	}
	i := uint32(t.Len())
	t.WriteString(s)
	t.WriteByte(0)
	return i
}

type section struct {
	header elf.Section64
	data   []byte
}

func write(b *bytes.Buffer, code *object.CompiledCode) error {
	m, found := machines[code.Arch]
	if !found {
		return xerrors.Errorf("unsupported architecture: %v", code.Arch)
	}
	order := code.Arch.ByteOrder()

	var (
		shstr   = newStrtab()
		str     = newStrtab()
		symtab  bytes.Buffer
		rela    bytes.Buffer
		kinds   []byte
		symbols = make(map[string]uint32)
	)

	binary.Write(&symtab, order, elf.Sym64{})

	for _, f := range code.Funcs {
		if _, found := symbols[f.Name]; found {
			return xerrors.Errorf("duplicate function name: %q", f.Name)
		}
		symbols[f.Name] = uint32(len(symbols) + 1)
		binary.Write(&symtab, order, elf.Sym64{
			Name:  str.add(f.Name),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
			Shndx: 1,
			Value: uint64(f.Addr),
			Size:  uint64(f.Size),
		})
	}

	for _, r := range code.Relocs {
		t, found := m.types[r.Kind]
		if !found {
			return xerrors.Errorf("relocation type %s is not supported on %v", r.Kind.Name(), code.Arch)
		}

		sym, found := symbols[r.Symbol]
		if !found {
			sym = uint32(len(symbols) + 1)
			symbols[r.Symbol] = sym
			binary.Write(&symtab, order, elf.Sym64{
				Name: str.add(r.Symbol),
				Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_NOTYPE),
			})
		}

		binary.Write(&rela, order, elf.Rela64{
			Off:    uint64(r.Offset),
			Info:   elf.R_INFO(sym, t),
			Addend: int64(r.Addend),
		})
		kinds = append(kinds, byte(r.Kind))
	}

	var traps []byte
	for _, t := range code.Traps {
		traps = binary.LittleEndian.AppendUint32(traps, t.Addr)
		traps = binary.LittleEndian.AppendUint32(traps, uint32(t.ID))
	}

	var frames []byte
	for _, f := range code.Funcs {
		frames = binary.LittleEndian.AppendUint32(frames, f.Addr)
		frames = binary.LittleEndian.AppendUint32(frames, f.Size)
		frames = binary.LittleEndian.AppendUint32(frames, f.FrameSize)
		frames = binary.LittleEndian.AppendUint32(frames, f.PrologueSize)
	}

	sections := []section{
		{},
		{
			header: elf.Section64{
				Name:      shstr.add(".text"),
				Type:      uint32(elf.SHT_PROGBITS),
				Flags:     uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
				Addralign: textAlign,
			},
			data: code.Text,
		},
	}

	// Section indexes are fixed by the order of appending.
	const (
		symtabIndex = 2
		strtabIndex = 3
	)

	sections = append(sections,
		section{
			header: elf.Section64{
				Name:      shstr.add(".symtab"),
				Type:      uint32(elf.SHT_SYMTAB),
				Link:      strtabIndex,
				Info:      1,
				Addralign: 8,
				Entsize:   symbolSize,
			},
			data: symtab.Bytes(),
		},
		section{
			header: elf.Section64{
				Name:      shstr.add(".strtab"),
				Type:      uint32(elf.SHT_STRTAB),
				Addralign: 1,
			},
			data: str.Bytes(),
		},
		section{
			header: elf.Section64{
				Name:      shstr.add(".rela.text"),
				Type:      uint32(elf.SHT_RELA),
				Flags:     uint64(elf.SHF_INFO_LINK),
				Link:      symtabIndex,
				Info:      1,
				Addralign: 8,
				Entsize:   relaSize,
			},
			data: rela.Bytes(),
		},
		metadataSection(shstr, RelocKindsSection, kinds, 1),
		metadataSection(shstr, TrapsSection, traps, 4),
		metadataSection(shstr, FramesSection, frames, 4),
	)

	for _, s := range code.Sections {
		sections = append(sections, metadataSection(shstr, s.Name, s.Data, s.Align))
	}

	shstrIndex := len(sections)
	sections = append(sections, section{
		header: elf.Section64{
			Name:      shstr.add(".shstrtab"),
			Type:      uint32(elf.SHT_STRTAB),
			Addralign: 1,
		},
	})
	sections[shstrIndex].data = shstr.Bytes()

	offset := uint64(headerSize)
	for i := 1; i < len(sections); i++ {
		h := &sections[i].header
		offset = roundSize(offset, h.Addralign)
		h.Off = offset
		h.Size = uint64(len(sections[i].data))
		offset += h.Size
	}
	shoff := roundSize(offset, 8)

	binary.Write(b, order, elf.Header64{
		Ident: [elf.EI_NIDENT]byte{
			0:              0x7f,
			1:              'E',
			2:              'L',
			3:              'F',
			elf.EI_CLASS:   byte(elf.ELFCLASS64),
			elf.EI_DATA:    byte(m.data),
			elf.EI_VERSION: byte(elf.EV_CURRENT),
		},
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(m.machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    headerSize,
		Shentsize: sectionSize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrIndex),
	})

	for _, s := range sections[1:] {
		align(b, s.header.Off)
		b.Write(s.data)
	}

	align(b, shoff)
	for _, s := range sections {
		binary.Write(b, order, s.header)
	}

	return nil
}

func metadataSection(shstr *strtab, name string, data []byte, alignment int) section {
	if alignment < 1 {
		alignment = 1
	}
	return section{
		header: elf.Section64{
			Name:      shstr.add(name),
			Type:      uint32(elf.SHT_PROGBITS),
			Addralign: uint64(alignment),
		},
		data: data,
	}
}

func align(b *bytes.Buffer, offset uint64) {
	for uint64(b.Len()) < offset {
		b.WriteByte(0)
	}
}

func roundSize(value, alignment uint64) uint64 {
	if alignment <= 1 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}
