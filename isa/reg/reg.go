// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reg defines the physical register numbering shared by the target
// architectures.  The meaning of a number depends on the architecture and
// the value type of the operand.
package reg

import (
	"fmt"
)

type R byte

// None marks an absent register operand (for example the index of a
// base+displacement address).
const None = R(0xff)

func (r R) String() string {
	if r == None {
		return "none"
	}
	return fmt.Sprintf("r%d", r)
}

// Valid reports whether r is a register number, not None.
func (r R) Valid() bool {
	return r != None
}
