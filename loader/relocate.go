// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader links compiled code in place and maps it for execution.
package loader

import (
	"encoding/binary"

	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/object"
	"gate.computer/safepoint/reloc"
	"golang.org/x/xerrors"
)

// Resolver provides addresses of symbols which are not defined by the
// compiled code itself, such as host functions.
type Resolver interface {
	ResolveSymbol(name string) (addr uint64, found bool)
}

// Symbols is a Resolver backed by a map.
type Symbols map[string]uint64

func (m Symbols) ResolveSymbol(name string) (addr uint64, found bool) {
	addr, found = m[name]
	return
}

type gotKey struct {
	symbol string
	addend reloc.Addend
}

// gotLayout assigns an entry to each distinct target which is loaded through
// the global offset table, in order of first use.
func gotLayout(code *object.CompiledCode) (index map[gotKey]int, keys []gotKey) {
	index = make(map[gotKey]int)
	for _, site := range code.Relocs {
		if !usesGOT(site.Kind) {
			continue
		}
		k := gotKey{site.Symbol, site.Addend}
		if _, found := index[k]; !found {
			index[k] = len(keys)
			keys = append(keys, k)
		}
	}
	return
}

func usesGOT(kind reloc.Reloc) bool {
	return kind == reloc.Aarch64AdrGotPage21 || kind == reloc.Aarch64Ld64GotLo12Nc
}

// GOTOffset is the position of the global offset table in the image.
func GOTOffset(code *object.CompiledCode) int {
	return (len(code.Text) + gotEntrySize - 1) &^ (gotEntrySize - 1)
}

// ImageSize is the number of bytes needed for text and the global offset
// table.  The table is empty unless the code loads symbol addresses through
// it.
func ImageSize(code *object.CompiledCode) int {
	_, keys := gotLayout(code)
	if len(keys) == 0 {
		return len(code.Text)
	}
	return GOTOffset(code) + len(keys)*gotEntrySize
}

const gotEntrySize = 8

// Relocate patches an image in place as if it was located at textAddr.  The
// image holds a copy of the text followed by space for the global offset
// table (see ImageSize).  Function symbols defined by code take precedence
// over the resolver, which may be nil.
func Relocate(image []byte, textAddr uint64, code *object.CompiledCode, r Resolver) error {
	if size := ImageSize(code); len(image) < size {
		return xerrors.Errorf("image size %d is less than %d", len(image), size)
	}

	funcs := make(map[string]uint64, len(code.Funcs))
	for _, f := range code.Funcs {
		funcs[f.Name] = textAddr + uint64(f.Addr)
	}

	resolve := func(name string) (addr uint64, found bool) {
		addr, found = funcs[name]
		if !found && r != nil {
			addr, found = r.ResolveSymbol(name)
		}
		return
	}

	got, keys := gotLayout(code)
	gotAddr := textAddr + uint64(GOTOffset(code))

	for i, k := range keys {
		sym, found := resolve(k.symbol)
		if !found {
			return xerrors.Errorf("GOT entry %s: undefined symbol", k.symbol)
		}
		code.Arch.ByteOrder().PutUint64(image[GOTOffset(code)+i*gotEntrySize:], sym+uint64(k.addend))
	}

	text := image[:len(code.Text)]

	for _, site := range code.Relocs {
		var value uint64

		if usesGOT(site.Kind) {
			value = gotAddr + uint64(got[gotKey{site.Symbol, site.Addend}]*gotEntrySize)
		} else {
			sym, found := resolve(site.Symbol)
			if !found {
				return xerrors.Errorf("relocation %v: undefined symbol", site)
			}
			value = sym + uint64(site.Addend)
		}

		if int(site.Offset)+site.Kind.Size() > len(text) {
			return xerrors.Errorf("relocation %v: outside of text", site)
		}

		if err := apply(code.Arch, text[site.Offset:], textAddr+uint64(site.Offset), site.Kind, value); err != nil {
			return xerrors.Errorf("relocation %v: %w", site, err)
		}
	}

	return nil
}

// apply writes value to the field at b, which is located at address pc.
func apply(arch isa.Arch, b []byte, pc uint64, kind reloc.Reloc, value uint64) error {
	order := arch.ByteOrder()

	switch kind {
	case reloc.Abs4:
		if value > 0xffffffff {
			return xerrors.Errorf("address %#x does not fit in 32 bits", value)
		}
		order.PutUint32(b, uint32(value))

	case reloc.Abs8, reloc.HostCallIndirect:
		order.PutUint64(b, value)

	case reloc.X86PCRel4, reloc.X86CallPCRel4, reloc.X86CallPLTRel4:
		d, err := displacement(value, pc, 32)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b, uint32(d))

	case reloc.Arm64Call:
		d := int64(value - pc)
		if d&3 != 0 {
			return xerrors.Errorf("misaligned call target %#x", value)
		}
		if _, err := displacement(uint64(d>>2), 0, 26); err != nil {
			return err
		}
		word := binary.LittleEndian.Uint32(b)
		binary.LittleEndian.PutUint32(b, word&^0x3ffffff|uint32(d>>2)&0x3ffffff)

	case reloc.Aarch64AdrPrelPgHi21, reloc.Aarch64AdrGotPage21:
		d := int64(value>>12) - int64(pc>>12)
		if _, err := displacement(uint64(d), 0, 21); err != nil {
			return err
		}
		word := binary.LittleEndian.Uint32(b) &^ (3<<29 | 0x7ffff<<5)
		word |= uint32(d&3)<<29 | uint32(d>>2&0x7ffff)<<5
		binary.LittleEndian.PutUint32(b, word)

	case reloc.Aarch64AddAbsLo12Nc:
		word := binary.LittleEndian.Uint32(b) &^ (0xfff << 10)
		word |= uint32(value&0xfff) << 10
		binary.LittleEndian.PutUint32(b, word)

	case reloc.Aarch64Ld64GotLo12Nc:
		if value&7 != 0 {
			return xerrors.Errorf("misaligned GOT entry %#x", value)
		}
		word := binary.LittleEndian.Uint32(b) &^ (0xfff << 10)
		word |= uint32(value&0xfff>>3) << 10
		binary.LittleEndian.PutUint32(b, word)

	case reloc.S390xPCRel32Dbl, reloc.S390xPLTRel32Dbl:
		d := int64(value - pc)
		if d&1 != 0 {
			return xerrors.Errorf("odd target address %#x", value)
		}
		if _, err := displacement(uint64(d>>1), 0, 32); err != nil {
			return err
		}
		binary.BigEndian.PutUint32(b, uint32(d>>1))

	default:
		return xerrors.Errorf("unsupported relocation type %s", kind.Name())
	}

	return nil
}

// displacement from pc to target as a signed integer of the given width.
func displacement(target, pc uint64, bits uint) (int64, error) {
	d := int64(target - pc)
	if limit := int64(1) << (bits - 1); d < -limit || d >= limit {
		return 0, xerrors.Errorf("displacement %d does not fit in %d bits", d, bits)
	}
	return d, nil
}
