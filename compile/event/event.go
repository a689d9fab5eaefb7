// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package event

// Event handler is invoked from a single goroutine (per compilation).
type Event int

const (
	// All functions have been generated by the workers, but they haven't
	// been placed into the text yet.
	FunctionBarrier = Event(iota)

	// Text, relocations, traps and stack maps have been aggregated.
	Aggregated
)

func (e Event) String() string {
	switch e {
	case FunctionBarrier:
		return "FunctionBarrier"

	case Aggregated:
		return "Aggregated"

	default:
		return "<invalid>"
	}
}
