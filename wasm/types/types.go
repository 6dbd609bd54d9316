// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package types holds the pure value types of the WebAssembly binary
// format (value types, function signatures, tables, memories, limits) and
// their ByteCursor readers. It has no knowledge of sections, modules or the
// §7 failure taxonomy, so symtab and sink can depend on it without pulling
// in the rest of the decoder.
package types

import (
	"fmt"

	"github.com/dufoli/graal/wasm/cursor"
)

// ValueType represents the type of a valid value in Wasm.
type ValueType int8

const (
	I32 ValueType = -0x01
	I64 ValueType = -0x02
	F32 ValueType = -0x03
	F64 ValueType = -0x04
)

var valueTypeStrMap = map[ValueType]string{
	I32: "i32",
	I64: "i64",
	F32: "f32",
	F64: "f64",
}

func (t ValueType) String() string {
	if s, ok := valueTypeStrMap[t]; ok {
		return s
	}
	return fmt.Sprintf("<unknown value_type %d>", int8(t))
}

// IsValid reports whether t is one of the four MVP value types.
func (t ValueType) IsValid() bool {
	_, ok := valueTypeStrMap[t]
	return ok
}

func ReadValueType(c *cursor.ByteCursor) (ValueType, error) {
	v, err := c.ReadLEBInt32()
	if err != nil {
		return 0, err
	}
	t := ValueType(v)
	if !t.IsValid() {
		return 0, fmt.Errorf("%w: 0x%x is not a valid value type", ErrMalformed, uint32(v)&0xff)
	}
	return t, nil
}

// TypeFunc is the form byte every type-section entry must begin with.
const TypeFunc int8 = -0x20

// BlockType is the signature of a structured block: one of the four value
// types, or BlockTypeEmpty.
type BlockType ValueType

const BlockTypeEmpty BlockType = -0x40

func ReadBlockType(c *cursor.ByteCursor) (BlockType, error) {
	v, err := c.ReadLEBInt32()
	if err != nil {
		return 0, err
	}
	bt := BlockType(v)
	if bt != BlockTypeEmpty && !ValueType(bt).IsValid() {
		return 0, fmt.Errorf("%w: 0x%x is not a valid block type", ErrMalformed, uint32(v)&0xff)
	}
	return bt, nil
}

func (b BlockType) String() string {
	if b == BlockTypeEmpty {
		return "<empty block>"
	}
	return ValueType(b).String()
}

// Arity reports how many values a block of this type produces: 0 or 1.
func (b BlockType) Arity() int {
	if b == BlockTypeEmpty {
		return 0
	}
	return 1
}

// ToValueType converts a non-empty BlockType to its ValueType.
func (b BlockType) ToValueType() (ValueType, bool) {
	if b == BlockTypeEmpty {
		return 0, false
	}
	return ValueType(b), true
}

// ElemType describes the type of a table's elements. The MVP has only
// funcref (historically named anyfunc).
type ElemType int8

const AnyFunc ElemType = -0x10

func ReadElemType(c *cursor.ByteCursor) (ElemType, error) {
	v, err := c.ReadLEBInt32()
	return ElemType(v), err
}

func (t ElemType) String() string {
	if t == AnyFunc {
		return "funcref"
	}
	return "<unknown elem_type>"
}

// FunctionSig describes a declared function type. ReturnTypes has at most
// one entry in the MVP.
type FunctionSig struct {
	Form        int8
	ParamTypes  []ValueType
	ReturnTypes []ValueType
}

func (f FunctionSig) String() string {
	return fmt.Sprintf("<func %v -> %v>", f.ParamTypes, f.ReturnTypes)
}

// ErrMalformed is a sentinel wrapped with fmt.Errorf by the readers in this
// package; higher layers classify it into the proper §7 FailureKind.
var ErrMalformed = fmt.Errorf("malformed")

// ErrInvalidResultArity flags a function type declaring more than one result.
var ErrInvalidResultArity = fmt.Errorf("invalid result arity")

func ReadFunctionSig(c *cursor.ByteCursor) (FunctionSig, error) {
	var f FunctionSig

	form, err := c.ReadLEBInt32()
	if err != nil {
		return f, err
	}
	if int8(form) != TypeFunc {
		return f, fmt.Errorf("%w: type section entry does not begin with 0x60, got 0x%x", ErrMalformed, uint32(form)&0xff)
	}
	f.Form = int8(form)

	paramCount, err := c.ReadLEBUint32()
	if err != nil {
		return f, err
	}
	f.ParamTypes = make([]ValueType, paramCount)
	for i := range f.ParamTypes {
		if f.ParamTypes[i], err = ReadValueType(c); err != nil {
			return f, err
		}
	}

	returnCount, err := c.ReadLEBUint32()
	if err != nil {
		return f, err
	}
	if returnCount > 1 {
		return f, fmt.Errorf("%w: function type declares %d results, MVP allows at most 1", ErrInvalidResultArity, returnCount)
	}
	f.ReturnTypes = make([]ValueType, returnCount)
	for i := range f.ReturnTypes {
		if f.ReturnTypes[i], err = ReadValueType(c); err != nil {
			return f, err
		}
	}

	return f, nil
}

// GlobalVar describes the type and mutability of a global.
type GlobalVar struct {
	Type    ValueType
	Mutable bool
}

func ReadGlobalVar(c *cursor.ByteCursor) (GlobalVar, error) {
	var g GlobalVar
	var err error

	if g.Type, err = ReadValueType(c); err != nil {
		return g, err
	}
	m, err := c.ReadU8()
	if err != nil {
		return g, err
	}
	if m > 1 {
		return g, fmt.Errorf("%w: mutability flag must be 0 or 1, got %d", ErrMalformed, m)
	}
	g.Mutable = m == 1
	return g, nil
}

// Table describes a module's table. The MVP allows at most one, with
// element type funcref.
type Table struct {
	ElementType ElemType
	Limits      ResizableLimits
}

func ReadTable(c *cursor.ByteCursor) (Table, error) {
	var t Table
	var err error

	if t.ElementType, err = ReadElemType(c); err != nil {
		return t, err
	}
	if t.ElementType != AnyFunc {
		return t, fmt.Errorf("%w: table element type must be funcref (0x70), got 0x%x", ErrMalformed, uint8(t.ElementType))
	}
	t.Limits, err = ReadResizableLimits(c, 0)
	return t, err
}

// Memory describes a module's linear memory, sized in 64KiB pages. The MVP
// allows at most one, capped at 65536 pages.
type Memory struct {
	Limits ResizableLimits
}

const MaxMemoryPages = 65536

func ReadMemory(c *cursor.ByteCursor) (Memory, error) {
	lim, err := ReadResizableLimits(c, MaxMemoryPages)
	if err != nil {
		return Memory{}, err
	}
	return Memory{lim}, nil
}

// External describes the kind of an import/export entry.
type External uint8

const (
	ExternalFunction External = 0
	ExternalTable    External = 1
	ExternalMemory   External = 2
	ExternalGlobal   External = 3
)

func (e External) String() string {
	switch e {
	case ExternalFunction:
		return "function"
	case ExternalTable:
		return "table"
	case ExternalMemory:
		return "memory"
	case ExternalGlobal:
		return "global"
	default:
		return "<unknown external_kind>"
	}
}

func ReadExternal(c *cursor.ByteCursor) (External, error) {
	b, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	if b > byte(ExternalGlobal) {
		return 0, fmt.Errorf("%w: invalid external_kind value %d", ErrMalformed, b)
	}
	return External(b), nil
}

// ResizableLimits describes the limits of a table or linear memory.
type ResizableLimits struct {
	HasMax  bool
	Initial uint32
	Maximum uint32
}

// ErrZeroFlagExpected flags a limits prefix byte outside {0x00, 0x01}.
var ErrZeroFlagExpected = fmt.Errorf("limits flag must be 0 or 1")

// ErrLimitMinGreaterThanMax flags Initial > Maximum.
var ErrLimitMinGreaterThanMax = fmt.Errorf("limits minimum exceeds maximum")

// ErrLimitTooLarge flags a limits value exceeding a caller-supplied cap.
var ErrLimitTooLarge = fmt.Errorf("limits exceed allowed maximum")

// ReadResizableLimits reads a limits value. maxAllowed of 0 disables the
// absolute cap (used for tables, which have no fixed MVP ceiling).
func ReadResizableLimits(c *cursor.ByteCursor, maxAllowed uint32) (ResizableLimits, error) {
	var lim ResizableLimits

	flag, err := c.ReadU8()
	if err != nil {
		return lim, err
	}
	if flag > 1 {
		return lim, fmt.Errorf("%w: got %d", ErrZeroFlagExpected, flag)
	}
	lim.HasMax = flag == 1

	if lim.Initial, err = c.ReadLEBUint32(); err != nil {
		return lim, err
	}

	if lim.HasMax {
		if lim.Maximum, err = c.ReadLEBUint32(); err != nil {
			return lim, err
		}
		if lim.Initial > lim.Maximum {
			return lim, fmt.Errorf("%w: %d > %d", ErrLimitMinGreaterThanMax, lim.Initial, lim.Maximum)
		}
	}

	if maxAllowed > 0 {
		if lim.Initial > maxAllowed || (lim.HasMax && lim.Maximum > maxAllowed) {
			return lim, fmt.Errorf("%w: %d", ErrLimitTooLarge, maxAllowed)
		}
	}

	return lim, nil
}
