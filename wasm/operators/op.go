// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package operators is a lookup table from opcode byte to its name and
// fixed operand-stack signature, covering every MVP numeric, comparison,
// conversion and memory-access instruction. Control, parametric and
// variable instructions have no fixed signature (their effect depends on
// block type, stack contents or local/global index) and are handled
// directly by the validate package's decoder; New still resolves their
// Name for diagnostics.
package operators

import (
	"fmt"

	"github.com/dufoli/graal/wasm/types"
)

// NoReturn marks an opcode that leaves nothing on the stack.
const NoReturn = types.ValueType(0)

// Op describes one opcode's name and, where fixed, its stack signature.
type Op struct {
	Code    byte
	Name    string
	Args    []types.ValueType
	Returns types.ValueType
}

var table [256]*Op

func newOp(code byte, name string, args []types.ValueType, returns types.ValueType) Op {
	o := Op{Code: code, Name: name, Args: args, Returns: returns}
	table[code] = &o
	return o
}

// New looks up the Op describing code.
func New(code byte) (Op, error) {
	o := table[code]
	if o == nil {
		return Op{}, fmt.Errorf("operators: unknown opcode 0x%02x", code)
	}
	return *o, nil
}

func i(n types.ValueType) []types.ValueType { return []types.ValueType{n} }
func ii(a, b types.ValueType) []types.ValueType { return []types.ValueType{a, b} }

// Control and parametric instructions: registered only so New/Name works
// for diagnostics; their stack effect is opcode-specific and computed by
// the decoder.
var (
	Unreachable   = newOp(0x00, "unreachable", nil, NoReturn)
	Nop           = newOp(0x01, "nop", nil, NoReturn)
	Block         = newOp(0x02, "block", nil, NoReturn)
	Loop          = newOp(0x03, "loop", nil, NoReturn)
	If            = newOp(0x04, "if", nil, NoReturn)
	Else          = newOp(0x05, "else", nil, NoReturn)
	End           = newOp(0x0b, "end", nil, NoReturn)
	Br            = newOp(0x0c, "br", nil, NoReturn)
	BrIf          = newOp(0x0d, "br_if", nil, NoReturn)
	BrTable       = newOp(0x0e, "br_table", nil, NoReturn)
	Return        = newOp(0x0f, "return", nil, NoReturn)
	Call          = newOp(0x10, "call", nil, NoReturn)
	CallIndirect  = newOp(0x11, "call_indirect", nil, NoReturn)
	Drop          = newOp(0x1a, "drop", nil, NoReturn)
	Select        = newOp(0x1b, "select", nil, NoReturn)
	LocalGet      = newOp(0x20, "local.get", nil, NoReturn)
	LocalSet      = newOp(0x21, "local.set", nil, NoReturn)
	LocalTee      = newOp(0x22, "local.tee", nil, NoReturn)
	GlobalGet     = newOp(0x23, "global.get", nil, NoReturn)
	GlobalSet     = newOp(0x24, "global.set", nil, NoReturn)
)

// Numeric constants push their result type and take no immediate operands
// off the stack.
var (
	I32Const = newOp(0x41, "i32.const", nil, types.I32)
	I64Const = newOp(0x42, "i64.const", nil, types.I64)
	F32Const = newOp(0x43, "f32.const", nil, types.F32)
	F64Const = newOp(0x44, "f64.const", nil, types.F64)
)

// Comparisons.
var (
	I32Eqz  = newOp(0x45, "i32.eqz", i(types.I32), types.I32)
	I32Eq   = newOp(0x46, "i32.eq", ii(types.I32, types.I32), types.I32)
	I32Ne   = newOp(0x47, "i32.ne", ii(types.I32, types.I32), types.I32)
	I32LtS  = newOp(0x48, "i32.lt_s", ii(types.I32, types.I32), types.I32)
	I32LtU  = newOp(0x49, "i32.lt_u", ii(types.I32, types.I32), types.I32)
	I32GtS  = newOp(0x4a, "i32.gt_s", ii(types.I32, types.I32), types.I32)
	I32GtU  = newOp(0x4b, "i32.gt_u", ii(types.I32, types.I32), types.I32)
	I32LeS  = newOp(0x4c, "i32.le_s", ii(types.I32, types.I32), types.I32)
	I32LeU  = newOp(0x4d, "i32.le_u", ii(types.I32, types.I32), types.I32)
	I32GeS  = newOp(0x4e, "i32.ge_s", ii(types.I32, types.I32), types.I32)
	I32GeU  = newOp(0x4f, "i32.ge_u", ii(types.I32, types.I32), types.I32)

	I64Eqz = newOp(0x50, "i64.eqz", i(types.I64), types.I32)
	I64Eq  = newOp(0x51, "i64.eq", ii(types.I64, types.I64), types.I32)
	I64Ne  = newOp(0x52, "i64.ne", ii(types.I64, types.I64), types.I32)
	I64LtS = newOp(0x53, "i64.lt_s", ii(types.I64, types.I64), types.I32)
	I64LtU = newOp(0x54, "i64.lt_u", ii(types.I64, types.I64), types.I32)
	I64GtS = newOp(0x55, "i64.gt_s", ii(types.I64, types.I64), types.I32)
	I64GtU = newOp(0x56, "i64.gt_u", ii(types.I64, types.I64), types.I32)
	I64LeS = newOp(0x57, "i64.le_s", ii(types.I64, types.I64), types.I32)
	I64LeU = newOp(0x58, "i64.le_u", ii(types.I64, types.I64), types.I32)
	I64GeS = newOp(0x59, "i64.ge_s", ii(types.I64, types.I64), types.I32)
	I64GeU = newOp(0x5a, "i64.ge_u", ii(types.I64, types.I64), types.I32)

	F32Eq = newOp(0x5b, "f32.eq", ii(types.F32, types.F32), types.I32)
	F32Ne = newOp(0x5c, "f32.ne", ii(types.F32, types.F32), types.I32)
	F32Lt = newOp(0x5d, "f32.lt", ii(types.F32, types.F32), types.I32)
	F32Gt = newOp(0x5e, "f32.gt", ii(types.F32, types.F32), types.I32)
	F32Le = newOp(0x5f, "f32.le", ii(types.F32, types.F32), types.I32)
	F32Ge = newOp(0x60, "f32.ge", ii(types.F32, types.F32), types.I32)

	F64Eq = newOp(0x61, "f64.eq", ii(types.F64, types.F64), types.I32)
	F64Ne = newOp(0x62, "f64.ne", ii(types.F64, types.F64), types.I32)
	F64Lt = newOp(0x63, "f64.lt", ii(types.F64, types.F64), types.I32)
	F64Gt = newOp(0x64, "f64.gt", ii(types.F64, types.F64), types.I32)
	F64Le = newOp(0x65, "f64.le", ii(types.F64, types.F64), types.I32)
	F64Ge = newOp(0x66, "f64.ge", ii(types.F64, types.F64), types.I32)
)

// Integer and float arithmetic.
var (
	I32Clz    = newOp(0x67, "i32.clz", i(types.I32), types.I32)
	I32Ctz    = newOp(0x68, "i32.ctz", i(types.I32), types.I32)
	I32Popcnt = newOp(0x69, "i32.popcnt", i(types.I32), types.I32)
	I32Add    = newOp(0x6a, "i32.add", ii(types.I32, types.I32), types.I32)
	I32Sub    = newOp(0x6b, "i32.sub", ii(types.I32, types.I32), types.I32)
	I32Mul    = newOp(0x6c, "i32.mul", ii(types.I32, types.I32), types.I32)
	I32DivS   = newOp(0x6d, "i32.div_s", ii(types.I32, types.I32), types.I32)
	I32DivU   = newOp(0x6e, "i32.div_u", ii(types.I32, types.I32), types.I32)
	I32RemS   = newOp(0x6f, "i32.rem_s", ii(types.I32, types.I32), types.I32)
	I32RemU   = newOp(0x70, "i32.rem_u", ii(types.I32, types.I32), types.I32)
	I32And    = newOp(0x71, "i32.and", ii(types.I32, types.I32), types.I32)
	I32Or     = newOp(0x72, "i32.or", ii(types.I32, types.I32), types.I32)
	I32Xor    = newOp(0x73, "i32.xor", ii(types.I32, types.I32), types.I32)
	I32Shl    = newOp(0x74, "i32.shl", ii(types.I32, types.I32), types.I32)
	I32ShrS   = newOp(0x75, "i32.shr_s", ii(types.I32, types.I32), types.I32)
	I32ShrU   = newOp(0x76, "i32.shr_u", ii(types.I32, types.I32), types.I32)
	I32Rotl   = newOp(0x77, "i32.rotl", ii(types.I32, types.I32), types.I32)
	I32Rotr   = newOp(0x78, "i32.rotr", ii(types.I32, types.I32), types.I32)

	I64Clz    = newOp(0x79, "i64.clz", i(types.I64), types.I64)
	I64Ctz    = newOp(0x7a, "i64.ctz", i(types.I64), types.I64)
	I64Popcnt = newOp(0x7b, "i64.popcnt", i(types.I64), types.I64)
	I64Add    = newOp(0x7c, "i64.add", ii(types.I64, types.I64), types.I64)
	I64Sub    = newOp(0x7d, "i64.sub", ii(types.I64, types.I64), types.I64)
	I64Mul    = newOp(0x7e, "i64.mul", ii(types.I64, types.I64), types.I64)
	I64DivS   = newOp(0x7f, "i64.div_s", ii(types.I64, types.I64), types.I64)
	I64DivU   = newOp(0x80, "i64.div_u", ii(types.I64, types.I64), types.I64)
	I64RemS   = newOp(0x81, "i64.rem_s", ii(types.I64, types.I64), types.I64)
	I64RemU   = newOp(0x82, "i64.rem_u", ii(types.I64, types.I64), types.I64)
	I64And    = newOp(0x83, "i64.and", ii(types.I64, types.I64), types.I64)
	I64Or     = newOp(0x84, "i64.or", ii(types.I64, types.I64), types.I64)
	I64Xor    = newOp(0x85, "i64.xor", ii(types.I64, types.I64), types.I64)
	I64Shl    = newOp(0x86, "i64.shl", ii(types.I64, types.I64), types.I64)
	I64ShrS   = newOp(0x87, "i64.shr_s", ii(types.I64, types.I64), types.I64)
	I64ShrU   = newOp(0x88, "i64.shr_u", ii(types.I64, types.I64), types.I64)
	I64Rotl   = newOp(0x89, "i64.rotl", ii(types.I64, types.I64), types.I64)
	I64Rotr   = newOp(0x8a, "i64.rotr", ii(types.I64, types.I64), types.I64)

	F32Abs      = newOp(0x8b, "f32.abs", i(types.F32), types.F32)
	F32Neg      = newOp(0x8c, "f32.neg", i(types.F32), types.F32)
	F32Ceil     = newOp(0x8d, "f32.ceil", i(types.F32), types.F32)
	F32Floor    = newOp(0x8e, "f32.floor", i(types.F32), types.F32)
	F32Trunc    = newOp(0x8f, "f32.trunc", i(types.F32), types.F32)
	F32Nearest  = newOp(0x90, "f32.nearest", i(types.F32), types.F32)
	F32Sqrt     = newOp(0x91, "f32.sqrt", i(types.F32), types.F32)
	F32Add      = newOp(0x92, "f32.add", ii(types.F32, types.F32), types.F32)
	F32Sub      = newOp(0x93, "f32.sub", ii(types.F32, types.F32), types.F32)
	F32Mul      = newOp(0x94, "f32.mul", ii(types.F32, types.F32), types.F32)
	F32Div      = newOp(0x95, "f32.div", ii(types.F32, types.F32), types.F32)
	F32Min      = newOp(0x96, "f32.min", ii(types.F32, types.F32), types.F32)
	F32Max      = newOp(0x97, "f32.max", ii(types.F32, types.F32), types.F32)
	F32Copysign = newOp(0x98, "f32.copysign", ii(types.F32, types.F32), types.F32)

	F64Abs      = newOp(0x99, "f64.abs", i(types.F64), types.F64)
	F64Neg      = newOp(0x9a, "f64.neg", i(types.F64), types.F64)
	F64Ceil     = newOp(0x9b, "f64.ceil", i(types.F64), types.F64)
	F64Floor    = newOp(0x9c, "f64.floor", i(types.F64), types.F64)
	F64Trunc    = newOp(0x9d, "f64.trunc", i(types.F64), types.F64)
	F64Nearest  = newOp(0x9e, "f64.nearest", i(types.F64), types.F64)
	F64Sqrt     = newOp(0x9f, "f64.sqrt", i(types.F64), types.F64)
	F64Add      = newOp(0xa0, "f64.add", ii(types.F64, types.F64), types.F64)
	F64Sub      = newOp(0xa1, "f64.sub", ii(types.F64, types.F64), types.F64)
	F64Mul      = newOp(0xa2, "f64.mul", ii(types.F64, types.F64), types.F64)
	F64Div      = newOp(0xa3, "f64.div", ii(types.F64, types.F64), types.F64)
	F64Min      = newOp(0xa4, "f64.min", ii(types.F64, types.F64), types.F64)
	F64Max      = newOp(0xa5, "f64.max", ii(types.F64, types.F64), types.F64)
	F64Copysign = newOp(0xa6, "f64.copysign", ii(types.F64, types.F64), types.F64)
)

// Conversions and reinterpretations.
var (
	I32WrapI64       = newOp(0xa7, "i32.wrap_i64", i(types.I64), types.I32)
	I32TruncF32S     = newOp(0xa8, "i32.trunc_f32_s", i(types.F32), types.I32)
	I32TruncF32U     = newOp(0xa9, "i32.trunc_f32_u", i(types.F32), types.I32)
	I32TruncF64S     = newOp(0xaa, "i32.trunc_f64_s", i(types.F64), types.I32)
	I32TruncF64U     = newOp(0xab, "i32.trunc_f64_u", i(types.F64), types.I32)
	I64ExtendI32S    = newOp(0xac, "i64.extend_i32_s", i(types.I32), types.I64)
	I64ExtendI32U    = newOp(0xad, "i64.extend_i32_u", i(types.I32), types.I64)
	I64TruncF32S     = newOp(0xae, "i64.trunc_f32_s", i(types.F32), types.I64)
	I64TruncF32U     = newOp(0xaf, "i64.trunc_f32_u", i(types.F32), types.I64)
	I64TruncF64S     = newOp(0xb0, "i64.trunc_f64_s", i(types.F64), types.I64)
	I64TruncF64U     = newOp(0xb1, "i64.trunc_f64_u", i(types.F64), types.I64)
	F32ConvertI32S   = newOp(0xb2, "f32.convert_i32_s", i(types.I32), types.F32)
	F32ConvertI32U   = newOp(0xb3, "f32.convert_i32_u", i(types.I32), types.F32)
	F32ConvertI64S   = newOp(0xb4, "f32.convert_i64_s", i(types.I64), types.F32)
	F32ConvertI64U   = newOp(0xb5, "f32.convert_i64_u", i(types.I64), types.F32)
	F32DemoteF64     = newOp(0xb6, "f32.demote_f64", i(types.F64), types.F32)
	F64ConvertI32S   = newOp(0xb7, "f64.convert_i32_s", i(types.I32), types.F64)
	F64ConvertI32U   = newOp(0xb8, "f64.convert_i32_u", i(types.I32), types.F64)
	F64ConvertI64S   = newOp(0xb9, "f64.convert_i64_s", i(types.I64), types.F64)
	F64ConvertI64U   = newOp(0xba, "f64.convert_i64_u", i(types.I64), types.F64)
	F64PromoteF32    = newOp(0xbb, "f64.promote_f32", i(types.F32), types.F64)
	I32ReinterpretF32 = newOp(0xbc, "i32.reinterpret_f32", i(types.F32), types.I32)
	I64ReinterpretF64 = newOp(0xbd, "i64.reinterpret_f64", i(types.F64), types.I64)
	F32ReinterpretI32 = newOp(0xbe, "f32.reinterpret_i32", i(types.I32), types.F32)
	F64ReinterpretI64 = newOp(0xbf, "f64.reinterpret_i64", i(types.I64), types.F64)
)

// IsFixedSignature reports whether code's stack effect is wholly described
// by its registered Op (memory/numeric/comparison/conversion), as opposed
// to control/parametric/variable opcodes the decoder special-cases.
func IsFixedSignature(code byte) bool {
	return code >= 0x28 && code <= 0xbf
}
