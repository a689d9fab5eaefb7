// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package file reads and writes object files in the default format.
package file

import (
	"io"
	"os"

	"gate.computer/safepoint/object"
	"gate.computer/safepoint/object/file/elf"
)

type File = elf.File

func init() {
	var _ io.WriterTo = new(File)
}

// Read compiled code from an object file.
func Read(r io.ReaderAt) (*object.CompiledCode, error) {
	return elf.Read(r)
}

// Open and read an object file.
func Open(filename string) (*object.CompiledCode, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Create an object file.
func Create(filename string, code *object.CompiledCode) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if _, err := (&File{Code: code}).WriteTo(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
