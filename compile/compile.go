// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compile emits the machine code of a unit of register-allocated
// functions.  Functions are emitted concurrently; their code and metadata is
// aggregated in input order.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gate.computer/safepoint/buffer"
	"gate.computer/safepoint/compile/event"
	"gate.computer/safepoint/internal/code"
	"gate.computer/safepoint/internal/gen"
	"gate.computer/safepoint/internal/pan"
	"gate.computer/safepoint/isa"
	"gate.computer/safepoint/object"
	"gate.computer/safepoint/stackmap"
)

// FuncAlignment of function start offsets within the text.
const FuncAlignment = 16

// Config for a single compiler invocation.
type Config struct {
	Target isa.Target

	// MaxTextSize limits the size of the aggregated text.  Zero means no
	// limit.
	MaxTextSize int

	// Concurrency limits the number of functions emitted at the same time.
	// Zero means GOMAXPROCS.
	Concurrency int

	// Logger receives progress information.  Nil means no logging.
	Logger logrus.FieldLogger

	// EventHandler (if set) is invoked from the goroutine which called
	// Compile.
	EventHandler func(event.Event)
}

// Func to be compiled.  The body falls through to the epilogue.
type Func struct {
	Name      string
	LocalSize uint32 // Bytes of stack space for locals and spill slots.
	Insns     []isa.Insn
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// Compile functions into one unit of code.  Exceeding MaxTextSize is
// reported as an error wrapping buffer.ErrSizeLimit.  Invalid instructions
// cause panics.
func Compile(ctx context.Context, config *Config, funcs []Func) (*object.CompiledCode, error) {
	if config.Target == nil {
		panic("compile: target is not configured")
	}

	log := config.Logger
	if log == nil {
		log = discardLogger()
	}
	log = log.WithField("arch", config.Target.Arch())

	emitted, err := emitFuncs(ctx, config, log, funcs)
	if err != nil {
		return nil, err
	}

	if config.EventHandler != nil {
		config.EventHandler(event.FunctionBarrier)
	}

	c, err := aggregate(config, funcs, emitted)
	if err != nil {
		return nil, err
	}

	if config.EventHandler != nil {
		config.EventHandler(event.Aggregated)
	}

	log.WithFields(logrus.Fields{
		"funcs":    len(c.Funcs),
		"size":     c.Info.TotalSize,
		"relocs":   len(c.Relocs),
		"traps":    len(c.Traps),
		"sections": len(c.Sections),
	}).Info("compiled unit")

	return c, nil
}

func emitFuncs(ctx context.Context, config *Config, log logrus.FieldLogger, funcs []Func) ([]*gen.Func, error) {
	n := config.Concurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	emitted := make([]*gen.Func, len(funcs))
	panics := make([]any, len(funcs))

	for i := range funcs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			f, x, err := emitFunc(config, &funcs[i])
			if x != nil {
				panics[i] = x
				return errPanicked
			}
			if err != nil {
				return fmt.Errorf("function %s: %w", funcs[i].Name, err)
			}
			emitted[i] = f

			log.WithFields(logrus.Fields{
				"func": funcs[i].Name,
				"size": len(f.Text.Bytes()),
			}).Debug("emitted function")
			return nil
		})
	}

	err := g.Wait()

	// Invariant violations are raised in the calling goroutine.
	for _, x := range panics {
		if x != nil {
			panic(x)
		}
	}

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return emitted, nil
}

var errPanicked = errors.New("function emission panicked")

// emitFunc returns other panic values than errors raised through the error
// zone as x.
func emitFunc(config *Config, fn *Func) (f *gen.Func, x any, err error) {
	defer func() {
		if v := recover(); v != nil {
			x, err = capture(v)
		}
	}()

	f = gen.NewFunc(config.Target.Arch().String(), newTextBuffer(config.MaxTextSize), fn.LocalSize)

	config.Target.Prologue(f)
	for _, insn := range fn.Insns {
		insn.Emit(f)
	}
	config.Target.Epilogue(f)
	f.Finish()
	return
}

func capture(v any) (x any, err error) {
	defer func() {
		if y := recover(); y != nil {
			x = y
		}
	}()

	err = pan.Error(v)
	return
}

func newTextBuffer(maxSize int) code.Buffer {
	if maxSize > 0 {
		return buffer.NewLimited(nil, maxSize)
	}
	return buffer.NewDynamic(nil)
}

// aggregate places the functions in input order and rebases their metadata.
func aggregate(config *Config, funcs []Func, emitted []*gen.Func) (c *object.CompiledCode, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = pan.Error(x)
		}
	}()

	var total int
	for _, f := range emitted {
		total = alignFunc(total) + len(f.Text.Bytes())
	}
	if config.MaxTextSize > 0 && total > config.MaxTextSize {
		pan.Panic(buffer.ErrSizeLimit)
	}

	text := code.Buf{Buffer: buffer.NewStatic(make([]byte, 0, total))}
	maps := new(stackmap.Builder)

	c = &object.CompiledCode{
		Arch:  config.Target.Arch(),
		Funcs: make([]object.FuncInfo, 0, len(funcs)),
	}

	for i, f := range emitted {
		if pad := alignFunc(int(text.Addr)) - int(text.Addr); pad > 0 {
			config.Target.Pad(text.Extend(pad))
		}
		addr := text.Addr

		b := f.Text.Bytes()
		copy(text.Extend(len(b)), b)

		c.Funcs = append(c.Funcs, object.FuncInfo{
			Name:         funcs[i].Name,
			Addr:         uint32(addr),
			Size:         uint32(len(b)),
			FrameSize:    f.FrameSize,
			PrologueSize: f.PrologueSize,
		})

		for _, t := range f.Traps {
			c.Traps = append(c.Traps, object.TrapSite{
				Addr: uint32(addr + t.Offset),
				ID:   t.ID,
			})
		}

		for _, r := range f.Relocs {
			r.Offset += addr
			c.Relocs = append(c.Relocs, r)
		}

		for _, sm := range f.StackMaps {
			maps.Push(addr+sm.Offset, sm.FrameSize, sm.Slots)
		}
	}

	c.Text = text.Bytes()
	c.Info.TotalSize = uint32(len(c.Text))
	maps.AppendTo(c)
	return
}

func alignFunc(addr int) int {
	return (addr + FuncAlignment - 1) &^ (FuncAlignment - 1)
}
