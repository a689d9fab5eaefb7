// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func getStackMapCmd(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackmap FILE",
		Short: "look up the stack map of a return address",
		Args:  cobra.ExactArgs(1),
	}

	pcString := cmd.Flags().String("pc", "", "text offset of a return address")
	must(cmd.MarkFlagRequired("pc"))

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		pc, err := strconv.ParseUint(*pcString, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid pc: %w", err)
		}

		code, err := readObject(root.logger, args[0])
		if err != nil {
			return err
		}

		maps, err := code.StackMaps()
		if err != nil {
			return err
		}

		frameSize, slots, found := maps.Lookup(uint32(pc))
		if !found {
			return fmt.Errorf("no stack map at %#x (%s)", pc, location(code, uint32(pc)))
		}

		root.logger.WithField("pc", pc).Debug("found stack map")

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: frame %d slots %v\n", location(code, uint32(pc)), frameSize, slots)
		return err
	}

	return cmd
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
