// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !(debug || gendebug)

// Package debug traces code generation when built with the debug tag.
package debug

const Enabled = false

var Depth int

func Printf(string, ...interface{})   {}
func PrintInsn(string, uint32, []byte) {}
