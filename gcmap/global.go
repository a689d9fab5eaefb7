// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcmap

import (
	"gate.computer/safepoint/object/stack"
	"gate.computer/safepoint/object/stack/unwind"
)

var registry = NewRegistry(unwind.Host)

// DeclareStackMaps publishes the functions loaded into this process.  It is
// called once by the loader; a second call panics.
func DeclareStackMaps(funcs []CompiledFunctionMetadata) {
	registry.Declare(funcs)
}

// FindCurrentStackMap of the innermost declared frame of the activation.
func FindCurrentStackMap(act *stack.Activation) (FrameStackMap, bool) {
	return registry.FindCurrentStackMap(act)
}

// VisitStackMaps of the activation's frames which hold live references.
func VisitStackMaps(act *stack.Activation, visit func(FrameStackMap) bool) {
	registry.VisitStackMaps(act, visit)
}
