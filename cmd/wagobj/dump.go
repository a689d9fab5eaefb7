// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gate.computer/safepoint/object"
	"gate.computer/safepoint/object/debug/dump"
	"gate.computer/safepoint/object/file"
)

func getDumpCmd(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "print functions, relocations, traps and stack maps",
		Args:  cobra.ExactArgs(1),
	}

	flags := cmd.Flags()
	disasm := flags.Bool("disasm", false, "disassemble text (requires cgo)")
	hex := flags.Bool("hex", false, "print metadata sections as words")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if flags.Changed("disasm") {
			root.config.Disasm = *disasm
		}
		if flags.Changed("hex") {
			root.config.Hex = *hex
		}

		code, err := readObject(root.logger, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()

		if err := printCode(w, code); err != nil {
			return err
		}

		if root.config.Hex {
			for _, s := range code.Sections {
				if err := dump.Words(w, s.Name, s.Data); err != nil {
					return err
				}
			}
		}

		if root.config.Disasm {
			if err := dump.Text(w, code, uintptr(root.config.TextAddr)); err != nil {
				return err
			}
		}

		return nil
	}

	return cmd
}

func readObject(logger logrus.FieldLogger, filename string) (*object.CompiledCode, error) {
	log := logger.WithField("file", filename)
	log.Debug("reading object")

	code, err := file.Open(filename)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"arch":     code.Arch,
		"size":     len(code.Text),
		"funcs":    len(code.Funcs),
		"relocs":   len(code.Relocs),
		"traps":    len(code.Traps),
		"sections": len(code.Sections),
	}).Debug("read object")
	return code, nil
}

func printCode(w io.Writer, code *object.CompiledCode) error {
	maps, err := code.StackMaps()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "arch: %v\n", code.Arch)
	fmt.Fprintf(w, "text: %d bytes\n", len(code.Text))

	fmt.Fprintf(w, "\nfunctions:\n")
	for _, f := range code.Funcs {
		fmt.Fprintf(w, "  %#x-%#x %s frame %d prologue %d\n", f.Addr, f.End(), f.Name, f.FrameSize, f.PrologueSize)
	}

	fmt.Fprintf(w, "\nrelocations:\n")
	for _, r := range code.Relocs {
		fmt.Fprintf(w, "  %v\n", r)
	}

	fmt.Fprintf(w, "\ntraps:\n")
	for _, t := range code.Traps {
		fmt.Fprintf(w, "  %#x: %v\n", t.Addr, t.ID)
	}

	fmt.Fprintf(w, "\nstack maps:\n")
	for _, e := range maps.Entries() {
		fmt.Fprintf(w, "  %#x: %s frame %d slots %v\n", e.PC, location(code, e.PC), e.FrameSize, e.Slots)
	}

	fmt.Fprintf(w, "\nsections:\n")
	for _, s := range code.Sections {
		fmt.Fprintf(w, "  %s %d bytes align %d\n", s.Name, len(s.Data), s.Align)
	}

	_, err = fmt.Fprintln(w)
	return err
}

func location(code *object.CompiledCode, offset uint32) string {
	if f, found := code.FindFunc(offset); found {
		return fmt.Sprintf("%s+%#x", f.Name, offset-f.Addr)
	}
	return fmt.Sprintf("text+%#x", offset)
}
