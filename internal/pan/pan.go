// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pan is the error zone of the code generator.  Errors panicked
// through it are recovered into return values at API boundaries; other
// panics (invariant violations) propagate.
package pan

import (
	"import.name/pan"
)

var z = new(pan.Zone)

var Check = z.Check
var Panic = z.Panic
var Wrap = z.Wrap

// Error returns the error panicked through the zone, or nil if x is nil.
// Other panic values are re-panicked.
func Error(x any) error {
	return z.Error(x)
}

func Must[T any](x T, err error) T {
	Check(err)
	return x
}
