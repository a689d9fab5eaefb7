// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stackmap

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate.computer/safepoint/reloc"
)

type object struct {
	names  []string
	datas  [][]byte
	aligns []int
}

func (o *object) AddSection(name string, data []byte, align int) {
	o.names = append(o.names, name)
	o.datas = append(o.datas, data)
	o.aligns = append(o.aligns, align)
}

var scenario = []struct {
	pc        reloc.CodeOffset
	frameSize uint32
	slots     []uint32
}{
	{0, 4, []uint32{0}},
	{4, 200, []uint32{0, 4, 20, 180}},
	{200, 20, []uint32{12}},
	{600, 0, []uint32{}},
	{800, 20, []uint32{0, 4, 8, 12, 16}},
	{1200, 2000, []uint32{1800, 1804, 1808, 1900}},
}

func buildScenario() *Builder {
	b := new(Builder)
	for _, x := range scenario {
		b.Push(x.pc, x.frameSize, x.slots)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	b := buildScenario()
	require.Equal(t, 5, b.Len())

	obj := new(object)
	b.AppendTo(obj)
	require.Equal(t, []string{SectionName}, obj.names)
	require.Equal(t, []int{SectionAlign}, obj.aligns)

	s, err := Parse(obj.datas[0])
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())

	for _, x := range scenario {
		frameSize, slots, ok := s.Lookup(uint32(x.pc))
		if len(x.slots) == 0 {
			assert.False(t, ok, "pc %d", x.pc)
			continue
		}
		require.True(t, ok, "pc %d", x.pc)
		assert.Equal(t, x.frameSize, frameSize, "pc %d", x.pc)
		assert.Equal(t, x.slots, slots, "pc %d", x.pc)
	}

	for _, pc := range []uint32{1, 3, 5, 199, 601, 1201, 0xffffffff} {
		_, _, ok := s.Lookup(pc)
		assert.False(t, ok, "pc %d", pc)
	}
}

func TestLayout(t *testing.T) {
	data := buildScenario().Bytes()

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[4*i:])
	}

	require.Equal(t, []uint32{
		5,
		0, 4, 200, 800, 1200,
		0, 3, 9, 12, 19,
		4, 1, 0,
		200, 4, 0, 1, 5, 45,
		20, 1, 3,
		20, 5, 0, 1, 2, 3, 4,
		2000, 4, 450, 451, 452, 475,
	}, words)
}

func TestEntries(t *testing.T) {
	s, err := Parse(buildScenario().Bytes())
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, Entry{PC: 4, FrameSize: 200, Slots: []uint32{0, 4, 20, 180}}, entries[1])
	assert.Equal(t, uint32(1200), entries[4].PC)
}

func TestDensity(t *testing.T) {
	b := new(Builder)
	b.Push(0, 16, nil)
	b.Push(8, 32, []uint32{})
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.Bytes())

	obj := new(object)
	b.AppendTo(obj)
	assert.Empty(t, obj.names)

	b.Push(12, 32, []uint32{8})
	before := len(b.Bytes())
	b.Push(16, 32, nil)
	assert.Equal(t, before, len(b.Bytes()))
}

func TestMonotonicPush(t *testing.T) {
	b := new(Builder)
	b.Push(10, 0, []uint32{4})
	b.Push(10, 0, nil)
	b.Push(20, 0, []uint32{8})

	assert.Panics(t, func() { b.Push(19, 0, nil) })
	assert.Panics(t, func() { b.Push(5, 0, []uint32{4}) })
}

func TestInvalidSlots(t *testing.T) {
	assert.Panics(t, func() { new(Builder).Push(0, 0, []uint32{2}) })
	assert.Panics(t, func() { new(Builder).Push(0, 0, []uint32{4, 8, 4}) })
}

func TestParseErrors(t *testing.T) {
	valid := buildScenario().Bytes()

	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	for name, data := range map[string][]byte{
		"unaligned": valid[:len(valid)-1],
		"truncated": valid[:4+8*4],
		"short":     {1, 0},
		"count":     {0xff, 0xff, 0xff, 0xff},
		"slots":     valid[:len(valid)-4],
	} {
		_, err := Parse(data)
		assert.Error(t, err, name)
	}

	unsorted := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(unsorted[4+4:], 1000)
	_, err = Parse(unsorted)
	assert.Error(t, err)

	badOff := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badOff[4+5*4:], 1000)
	_, err = Parse(badOff)
	assert.Error(t, err)
}

func FuzzParse(f *testing.F) {
	f.Add(buildScenario().Bytes())
	f.Add([]byte{})
	f.Add([]byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Parse(data)
		if err != nil {
			return
		}

		entries := s.Entries()
		for _, e := range entries {
			frameSize, slots, ok := s.Lookup(e.PC)
			if !ok {
				t.Fatalf("entry pc %#x not found", e.PC)
			}

			// Duplicate pcs resolve to the first entry.
			first := entries[firstIndex(entries, e.PC)]
			if frameSize != first.FrameSize || len(slots) != len(first.Slots) {
				t.Fatalf("lookup of %#x is inconsistent", e.PC)
			}
		}
	})
}

func firstIndex(entries []Entry, pc uint32) int {
	for i, e := range entries {
		if e.PC == pc {
			return i
		}
	}
	return -1
}
