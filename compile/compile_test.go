// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gate.computer/safepoint/buffer"
	"gate.computer/safepoint/compile/event"
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/isa/amd64"
	"gate.computer/safepoint/isa/mem"
	"gate.computer/safepoint/object"
	"gate.computer/safepoint/reloc"
	"gate.computer/safepoint/trap"
	"gate.computer/safepoint/wa"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testFuncs() []Func {
	return []Func{
		{
			Name:      "a",
			LocalSize: 20,
			Insns: []isa.Insn{
				amd64.Call{Symbol: "b", Colocated: true, Live: []uint32{0, 8}},
			},
		},
		{
			Name: "b",
			Insns: []isa.Insn{
				amd64.Load{Type: wa.I64, Dst: amd64.RAX, Src: mem.FP(-8), Loc: 3},
			},
		},
		{
			Name:      "c",
			LocalSize: 16,
			Insns: []isa.Insn{
				amd64.CallHost{Symbol: "host", Live: []uint32{8}},
			},
		},
	}
}

func TestCompile(t *testing.T) {
	var events []event.Event

	config := &Config{
		Target:       amd64.Target,
		Concurrency:  2,
		EventHandler: func(e event.Event) { events = append(events, e) },
	}

	c, err := Compile(context.Background(), config, testFuncs())
	require.NoError(t, err)

	assert.Equal(t, []event.Event{event.FunctionBarrier, event.Aggregated}, events)
	assert.Equal(t, isa.AMD64, c.Arch)
	assert.Equal(t, uint32(74), c.Info.TotalSize)
	assert.Len(t, c.Text, 74)

	assert.Equal(t, []object.FuncInfo{
		{Name: "a", Addr: 0, Size: 18, FrameSize: 32, PrologueSize: 8},
		{Name: "b", Addr: 32, Size: 13, FrameSize: 0, PrologueSize: 4},
		{Name: "c", Addr: 48, Size: 26, FrameSize: 16, PrologueSize: 8},
	}, c.Funcs)

	assert.Equal(t, bytes.Repeat([]byte{0xcc}, 14), c.Text[18:32])
	assert.Equal(t, bytes.Repeat([]byte{0xcc}, 3), c.Text[45:48])
	assert.Equal(t, []byte{0x55, 0x48, 0x8b, 0xec, 0x48, 0x8b, 0x45, 0xf8}, c.Text[32:40])

	assert.Equal(t, []reloc.Site{
		{Offset: 9, Kind: reloc.X86CallPCRel4, Symbol: "b", Addend: -4},
		{Offset: 58, Kind: reloc.HostCallIndirect, Symbol: "host"},
	}, c.Relocs)

	assert.Equal(t, []object.TrapSite{{Addr: 36, ID: trap.HeapOutOfBounds}}, c.Traps)

	maps, err := c.StackMaps()
	require.NoError(t, err)
	require.Equal(t, 2, maps.Len())

	size, slots, ok := maps.Lookup(13)
	require.True(t, ok)
	assert.Equal(t, uint32(32), size)
	assert.Equal(t, []uint32{0, 8}, slots)

	size, slots, ok = maps.Lookup(69)
	require.True(t, ok)
	assert.Equal(t, uint32(16), size)
	assert.Equal(t, []uint32{8}, slots)
}

func TestOrder(t *testing.T) {
	var funcs []Func
	for i := 0; i < 50; i++ {
		funcs = append(funcs, Func{
			Name:      fmt.Sprintf("f%d", i),
			LocalSize: uint32(i * 8),
			Insns: []isa.Insn{
				amd64.Call{Symbol: "g", Live: []uint32{uint32(i%4) * 8}},
			},
		})
	}

	c, err := Compile(context.Background(), &Config{Target: amd64.Target, Concurrency: 8}, funcs)
	require.NoError(t, err)
	require.Len(t, c.Funcs, len(funcs))

	maps, err := c.StackMaps()
	require.NoError(t, err)
	require.Equal(t, len(funcs), maps.Len())

	for i, f := range c.Funcs {
		assert.Equal(t, funcs[i].Name, f.Name)
		assert.Zero(t, f.Addr%FuncAlignment)
		if i > 0 {
			assert.Greater(t, f.Addr, c.Funcs[i-1].Addr)
		}

		_, slots, ok := maps.Lookup(c.Relocs[i].Offset + 4)
		require.True(t, ok)
		assert.Equal(t, []uint32{uint32(i%4) * 8}, slots)
	}
}

func TestSizeLimit(t *testing.T) {
	_, err := Compile(context.Background(), &Config{Target: amd64.Target, MaxTextSize: 10}, testFuncs())
	require.Error(t, err)
	assert.True(t, errors.Is(err, buffer.ErrSizeLimit), "%v", err)

	_, err = Compile(context.Background(), &Config{Target: amd64.Target, MaxTextSize: 30}, testFuncs())
	require.Error(t, err)
	assert.True(t, errors.Is(err, buffer.ErrSizeLimit), "%v", err)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, &Config{Target: amd64.Target}, testFuncs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvariantPanic(t *testing.T) {
	funcs := testFuncs()
	funcs[1].Insns = append(funcs[1].Insns, amd64.Jump{Label: 7})

	assert.Panics(t, func() {
		Compile(context.Background(), &Config{Target: amd64.Target, Concurrency: 3}, funcs)
	})
}

func TestLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	_, err := Compile(context.Background(), &Config{Target: amd64.Target, Logger: logger}, testFuncs())
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 4)

	last := hook.LastEntry()
	assert.Equal(t, "compiled unit", last.Message)
	assert.Equal(t, 3, last.Data["funcs"])
	assert.Equal(t, uint32(74), last.Data["size"])
	assert.Equal(t, isa.AMD64, last.Data["arch"])
}
