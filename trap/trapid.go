// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trap enumerates trap identifiers attached to faulting
// instructions.
package trap

import (
	"fmt"
)

type ID uint32

const (
	StackOverflow = ID(iota)
	HeapOutOfBounds
	HeapMisaligned
	TableOutOfBounds
	IndirectCallToNull
	BadSignature
	IntegerOverflow
	IntegerDivisionByZero
	BadConversionToInteger
	UnreachableCodeReached
	Interrupt
	NullReference

	NumTraps
)

func (id ID) String() string {
	switch id {
	case StackOverflow:
		return "call stack exhausted"

	case HeapOutOfBounds:
		return "memory access out of bounds"

	case HeapMisaligned:
		return "misaligned memory access"

	case TableOutOfBounds:
		return "table index out of bounds"

	case IndirectCallToNull:
		return "indirect call to null"

	case BadSignature:
		return "indirect call signature mismatch"

	case IntegerOverflow:
		return "integer overflow"

	case IntegerDivisionByZero:
		return "integer divide by zero"

	case BadConversionToInteger:
		return "invalid conversion to integer"

	case UnreachableCodeReached:
		return "unreachable"

	case Interrupt:
		return "interrupted"

	case NullReference:
		return "null reference"

	default:
		return fmt.Sprintf("unknown trap %d", id)
	}
}

func (id ID) Error() string {
	return "trap: " + id.String()
}
