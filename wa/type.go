// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wa defines the value types handled by the code generator.
package wa

type ScalarCategory uint8

const (
	Int   = ScalarCategory(0)
	Float = ScalarCategory(1)
)

func (cat ScalarCategory) String() string {
	switch cat {
	case Int:
		return "int"

	case Float:
		return "float"

	default:
		return "<invalid scalar category>"
	}
}

type Size uint8

const (
	Size8  = Size(1)
	Size16 = Size(2)
	Size32 = Size(4)
	Size64 = Size(8)
)

// Log2 of the size in bytes.
func (s Size) Log2() uint8 {
	switch s {
	case Size8:
		return 0
	case Size16:
		return 1
	case Size32:
		return 2
	default:
		return 3
	}
}

type Type uint8

const (
	Void = Type(0)
	I32  = Type(4 | Int)
	I64  = Type(8 | Int)
	F32  = Type(4 | Float)
	F64  = Type(8 | Float)
	Ref  = Type(16 | 8 | Int) // Pointer-sized reference tracked by stack maps.
)

// Category of a non-void type.
func (t Type) Category() ScalarCategory {
	return ScalarCategory(t & 1)
}

// Size in bytes.
func (t Type) Size() Size {
	return Size(t) & (4 | 8)
}

// IsRef reports whether values of the type must be recorded in stack maps.
func (t Type) IsRef() bool {
	return t&16 != 0
}

func (t Type) String() string {
	switch t {
	case Void:
		return "void"

	case I32:
		return "i32"

	case I64:
		return "i64"

	case F32:
		return "f32"

	case F64:
		return "f64"

	case Ref:
		return "ref"

	default:
		return "<invalid type>"
	}
}
