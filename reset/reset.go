// Package reset turns a decoded module's raw constant-expression bytes
// (global initializers, element and data segment offsets) into concrete
// instantiation-time values, re-traversing the global, element and data
// sections the way a host runtime would at module-instantiation time.
// It is deliberately separate from validate: by the time reset runs, the
// module has already been fully validated, so it only ever evaluates
// constant expressions that are known well-formed.
package reset

import (
	"fmt"

	"github.com/dufoli/graal/internal/xlog"
	"github.com/dufoli/graal/wasm"
	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/types"
)

var log = xlog.For("reset")

// GlobalStore receives each declared global's evaluated initial value and
// answers lookups for already-resolved globals, needed when one global's
// constant expression is a global.get of an earlier, imported global
// (Invariant 5). Indices are into the global index space, where imported
// globals come first.
type GlobalStore interface {
	SetGlobal(idx int, value uint64)
	GetGlobal(idx int) (value uint64, ok bool)
}

// MemorySink receives the bytes and function indices produced by
// evaluating a module's active data and element segments.
type MemorySink interface {
	WriteMemory(offset uint32, data []byte)
	WriteTable(offset uint32, funcs []uint32)
}

// Pass evaluates one module's globals, element segments and data segments
// in declaration order, the order in which a host must apply them.
type Pass struct {
	Module  *wasm.Module
	Globals GlobalStore
	Memory  MemorySink
}

// Run evaluates every constant expression in Module and writes the
// results to Globals/Memory. It stops at the first malformed expression;
// since DecodeModule already validated every expression's type and
// global.get target, this should only happen for a hand-built Module that
// bypassed decode.
func (p *Pass) Run() error {
	base := 0
	for _, im := range p.Module.Imports {
		if im.Kind == types.ExternalGlobal {
			base++
		}
	}
	for idx, g := range p.Module.Globals {
		v, err := evalConstExpr(g.Init, p.Globals)
		if err != nil {
			return fmt.Errorf("reset: global %d: %w", idx, err)
		}
		p.Globals.SetGlobal(base+idx, v)
	}

	for i, el := range p.Module.Elements {
		off, err := evalConstExpr(el.Offset, p.Globals)
		if err != nil {
			return fmt.Errorf("reset: element segment %d: %w", i, err)
		}
		p.Memory.WriteTable(uint32(off), el.Funcs)
	}

	for i, d := range p.Module.Data {
		off, err := evalConstExpr(d.Offset, p.Globals)
		if err != nil {
			return fmt.Errorf("reset: data segment %d: %w", i, err)
		}
		p.Memory.WriteMemory(uint32(off), d.Data)
	}

	log.WithField("globals", len(p.Module.Globals)).Debug("reset pass complete")
	return nil
}

// evalConstExpr interprets the raw bytes wasm.readConstExpr captured
// during decode: a single const or global.get instruction, with the
// trailing end byte already stripped.
func evalConstExpr(expr []byte, gs GlobalStore) (uint64, error) {
	if len(expr) == 0 {
		return 0, fmt.Errorf("empty constant expression")
	}
	c := cursor.New(expr)
	op, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	switch op {
	case 0x41: // i32.const
		v, err := c.ReadLEBInt32()
		return uint64(uint32(v)), err
	case 0x42: // i64.const
		v, err := c.ReadLEBInt64()
		return uint64(v), err
	case 0x43: // f32.const
		v, err := c.ReadU32LE()
		return uint64(v), err
	case 0x44: // f64.const
		return c.ReadU64LE()
	case 0x23: // global.get
		idx, err := c.ReadLEBUint32()
		if err != nil {
			return 0, err
		}
		v, ok := gs.GetGlobal(int(idx))
		if !ok {
			return 0, fmt.Errorf("global.get %d: no value available", idx)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("unexpected opcode 0x%02x in constant expression", op)
	}
}
