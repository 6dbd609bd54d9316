// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package operators

import (
	"github.com/dufoli/graal/wasm/types"
)

// NaturalAlignment maps each load/store opcode to its access width in
// bytes; the largest alignment hint it allows is log2 of that width
// (Invariant 10: 2^align <= width/8).
var NaturalAlignment = map[byte]uint32{
	0x28: 4, 0x29: 8, 0x2a: 4, 0x2b: 8,
	0x2c: 1, 0x2d: 1, 0x2e: 2, 0x2f: 2,
	0x30: 1, 0x31: 1, 0x32: 2, 0x33: 2, 0x34: 4, 0x35: 4,
	0x36: 4, 0x37: 8, 0x38: 4, 0x39: 8,
	0x3a: 1, 0x3b: 2, 0x3c: 1, 0x3d: 2, 0x3e: 4,
}

var (
	I32Load    = newOp(0x28, "i32.load", nil, types.I32)
	I64Load    = newOp(0x29, "i64.load", nil, types.I64)
	F32Load    = newOp(0x2a, "f32.load", nil, types.F32)
	F64Load    = newOp(0x2b, "f64.load", nil, types.F64)
	I32Load8s  = newOp(0x2c, "i32.load8_s", nil, types.I32)
	I32Load8u  = newOp(0x2d, "i32.load8_u", nil, types.I32)
	I32Load16s = newOp(0x2e, "i32.load16_s", nil, types.I32)
	I32Load16u = newOp(0x2f, "i32.load16_u", nil, types.I32)
	I64Load8s  = newOp(0x30, "i64.load8_s", nil, types.I64)
	I64Load8u  = newOp(0x31, "i64.load8_u", nil, types.I64)
	I64Load16s = newOp(0x32, "i64.load16_s", nil, types.I64)
	I64Load16u = newOp(0x33, "i64.load16_u", nil, types.I64)
	I64Load32s = newOp(0x34, "i64.load32_s", nil, types.I64)
	I64Load32u = newOp(0x35, "i64.load32_u", nil, types.I64)

	// Store opcodes repurpose Returns to carry the type of the value being
	// stored (stores leave nothing on the stack); validate/decoder.go pops
	// that type before popping the i32 address.
	I32Store   = newOp(0x36, "i32.store", nil, types.I32)
	I64Store   = newOp(0x37, "i64.store", nil, types.I64)
	F32Store   = newOp(0x38, "f32.store", nil, types.F32)
	F64Store   = newOp(0x39, "f64.store", nil, types.F64)
	I32Store8  = newOp(0x3a, "i32.store8", nil, types.I32)
	I32Store16 = newOp(0x3b, "i32.store16", nil, types.I32)
	I64Store8  = newOp(0x3c, "i64.store8", nil, types.I64)
	I64Store16 = newOp(0x3d, "i64.store16", nil, types.I64)
	I64Store32 = newOp(0x3e, "i64.store32", nil, types.I64)

	CurrentMemory = newOp(0x3f, "memory.size", nil, types.I32)
	GrowMemory    = newOp(0x40, "memory.grow", []types.ValueType{types.I32}, types.I32)
)

// IsLoad reports whether code is one of the load opcodes.
func IsLoad(code byte) bool { return code >= 0x28 && code <= 0x35 }

// IsStore reports whether code is one of the store opcodes.
func IsStore(code byte) bool { return code >= 0x36 && code <= 0x3e }
