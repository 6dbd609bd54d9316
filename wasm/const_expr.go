// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasm

import (
	"github.com/dufoli/graal/symtab"
	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/types"
)

// readConstExpr reads one constant expression: a single i32.const,
// i64.const, f32.const, f64.const or global.get instruction followed by
// `end` (0x0B). It is used by the global, element and data sections to
// read initializers and offsets. The returned slice is the expression's
// raw bytes, excluding the trailing end byte, so it can be replayed later
// by a reset/executor pass without re-validating it.
func readConstExpr(c *cursor.ByteCursor, expected types.ValueType, st symtab.SymbolTable) ([]byte, error) {
	start := c.Offset()

	op, err := c.ReadU8()
	if err != nil {
		return nil, classify(err)
	}

	var got types.ValueType
	switch op {
	case 0x41: // i32.const
		if _, err := c.ReadLEBInt32(); err != nil {
			return nil, classify(err)
		}
		got = types.I32
	case 0x42: // i64.const
		if _, err := c.ReadLEBInt64(); err != nil {
			return nil, classify(err)
		}
		got = types.I64
	case 0x43: // f32.const
		if _, err := c.ReadU32LE(); err != nil {
			return nil, classify(err)
		}
		got = types.F32
	case 0x44: // f64.const
		if _, err := c.ReadU64LE(); err != nil {
			return nil, classify(err)
		}
		got = types.F64
	case 0x23: // global.get
		idx, err := c.ReadLEBUint32()
		if err != nil {
			return nil, classify(err)
		}
		g, ok := st.GlobalType(int(idx))
		if !ok {
			return nil, Fail(UnknownGlobal, "constant expression: global index %d out of bounds", idx)
		}
		if m, ok := st.(*Module); ok && !m.GlobalIsImported(int(idx)) {
			return nil, Fail(UnspecifiedInvalid, "constant expression: global.get %d does not reference an imported global", idx)
		}
		got = g.Type
	default:
		return nil, Fail(UnspecifiedMalformed, "constant expression: opcode 0x%02x is not a valid constant instruction", op)
	}

	if got != expected {
		return nil, Fail(TypeMismatch, "constant expression: want %s, got %s", expected, got)
	}

	end, err := c.ReadU8()
	if err != nil {
		return nil, classify(err)
	}
	if end != 0x0b {
		return nil, Fail(UnspecifiedMalformed, "constant expression: expected end (0x0B), got 0x%02x", end)
	}

	return c.Bytes(start)[:c.Offset()-start-1], nil
}
