// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dufoli/graal/linker"
	"github.com/dufoli/graal/sink"
	"github.com/dufoli/graal/wasm/failure"
	"github.com/dufoli/graal/wasm/types"
)

// fakeSymtab implements symtab.SymbolTable with just enough behavior for
// DecodeFunctionBody: every mutating method is a no-op, every lookup reads
// from the fields a test populates directly.
type fakeSymtab struct {
	funcSigs  map[int]*types.FunctionSig
	typeSigs  map[int]*types.FunctionSig
	globals   map[int]types.GlobalVar
	hasTable  bool
	hasMemory bool
}

func newFakeSymtab() *fakeSymtab {
	return &fakeSymtab{
		funcSigs: map[int]*types.FunctionSig{},
		typeSigs: map[int]*types.FunctionSig{},
		globals:  map[int]types.GlobalVar{},
	}
}

func (f *fakeSymtab) AllocateFunctionType(paramArity, resultArity int) int               { return 0 }
func (f *fakeSymtab) RegisterFunctionTypeParameterType(typeIdx, paramIdx int, t types.ValueType) {}
func (f *fakeSymtab) RegisterFunctionTypeReturnType(typeIdx, resultIdx int, t types.ValueType)   {}
func (f *fakeSymtab) ImportFunction(module, field string, typeIdx uint32) int             { return 0 }
func (f *fakeSymtab) ImportTable(module, field string, t types.Table) int                 { return 0 }
func (f *fakeSymtab) ImportMemory(module, field string, m types.Memory) int               { return 0 }
func (f *fakeSymtab) ImportGlobal(module, field string, g types.GlobalVar) int            { return 0 }
func (f *fakeSymtab) DeclareFunction(typeIdx uint32) int                                  { return 0 }
func (f *fakeSymtab) AllocateTable(t types.Table) int                                     { return 0 }
func (f *fakeSymtab) AllocateMemory(m types.Memory) int                                   { return 0 }
func (f *fakeSymtab) DeclareGlobal(g types.GlobalVar, init []byte) int                     { return 0 }
func (f *fakeSymtab) ExportFunction(name string, idx uint32) error                        { return nil }
func (f *fakeSymtab) ExportTable(name string, idx uint32) error                           { return nil }
func (f *fakeSymtab) ExportMemory(name string, idx uint32) error                          { return nil }
func (f *fakeSymtab) ExportGlobal(name string, idx uint32) error                          { return nil }
func (f *fakeSymtab) SetStartFunction(idx uint32) error                                   { return nil }
func (f *fakeSymtab) TypeCount() int                                                      { return len(f.typeSigs) }
func (f *fakeSymtab) TypeSig(idx int) (*types.FunctionSig, bool) {
	sig, ok := f.typeSigs[idx]
	return sig, ok
}
func (f *fakeSymtab) FunctionCount() int { return len(f.funcSigs) }
func (f *fakeSymtab) FunctionSig(idx int) (*types.FunctionSig, bool) {
	sig, ok := f.funcSigs[idx]
	return sig, ok
}
func (f *fakeSymtab) GlobalType(idx int) (types.GlobalVar, bool) {
	g, ok := f.globals[idx]
	return g, ok
}
func (f *fakeSymtab) HasTable() bool  { return f.hasTable }
func (f *fakeSymtab) HasMemory() bool { return f.hasMemory }
func (f *fakeSymtab) TableLimits() (types.ResizableLimits, bool)  { return types.ResizableLimits{}, f.hasTable }
func (f *fakeSymtab) MemoryLimits() (types.ResizableLimits, bool) { return types.ResizableLimits{}, f.hasMemory }

func decodeBody(t *testing.T, body []byte, sig *types.FunctionSig, st *fakeSymtab) (Result, error) {
	t.Helper()
	tree := sink.NewTree()
	lq := linker.NewQueue()
	return DecodeFunctionBody(body, 0, sig, st, tree, lq, Limits{})
}

func TestDecodeFunctionBodyAddsTwoParams(t *testing.T) {
	sig := &types.FunctionSig{ParamTypes: []types.ValueType{types.I32, types.I32}, ReturnTypes: []types.ValueType{types.I32}}
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b} // locals:0; local.get 0; local.get 1; i32.add; end
	res, err := decodeBody(t, body, sig, newFakeSymtab())
	require.NoError(t, err)
	require.Equal(t, 2, res.MaxStackDepth)
}

func TestDecodeFunctionBodyNoSig(t *testing.T) {
	_, err := decodeBody(t, []byte{0x00, 0x0b}, nil, newFakeSymtab())
	require.Error(t, err)
	require.Equal(t, failure.UnknownType, failure.KindOf(err))
}

func TestDecodeFunctionBodyStackUnderflow(t *testing.T) {
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x6a, 0x0b} // i32.add with nothing on the stack
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
}

func TestDecodeFunctionBodyTypeMismatch(t *testing.T) {
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	// i64.const 0; return expects i32 on the stack.
	body := []byte{0x00, 0x42, 0x00, 0x0f, 0x0b}
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
	require.Equal(t, failure.TypeMismatch, failure.KindOf(err))
}

func TestDecodeFunctionBodyUnreachablePolymorphism(t *testing.T) {
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	// unreachable; i32.add (pops two unknowns, pushes i32); end
	body := []byte{0x00, 0x00, 0x6a, 0x0b}
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.NoError(t, err)
}

func TestDecodeFunctionBodyMissingFinalEnd(t *testing.T) {
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x01} // nop, no end
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
}

func TestDecodeFunctionBodyTrailingBytes(t *testing.T) {
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x0b, 0x01} // end, then a stray byte
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
}

func TestDecodeFunctionBodyCall(t *testing.T) {
	st := newFakeSymtab()
	st.funcSigs[1] = &types.FunctionSig{ParamTypes: []types.ValueType{types.I32}, ReturnTypes: []types.ValueType{types.I32}}
	sig := &types.FunctionSig{ParamTypes: []types.ValueType{types.I32}, ReturnTypes: []types.ValueType{types.I32}}
	body := []byte{0x00, 0x20, 0x00, 0x10, 0x01, 0x0b} // local.get 0; call 1; end
	res, err := decodeBody(t, body, sig, st)
	require.NoError(t, err)
	require.Equal(t, 1, res.MaxStackDepth)
}

func TestDecodeFunctionBodyCallUnknownFunction(t *testing.T) {
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x10, 0x05, 0x0b} // call 5, never declared
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
}

func TestDecodeFunctionBodyCallIndirectRequiresTable(t *testing.T) {
	st := newFakeSymtab()
	st.typeSigs[0] = &types.FunctionSig{}
	sig := &types.FunctionSig{}
	// i32.const 0 (table index); call_indirect type=0 reserved=0; end
	body := []byte{0x00, 0x41, 0x00, 0x11, 0x00, 0x00, 0x0b}
	_, err := decodeBody(t, body, sig, st)
	require.Error(t, err)
	require.Equal(t, failure.UnknownTable, failure.KindOf(err))
}

func TestDecodeFunctionBodyCallIndirectSucceeds(t *testing.T) {
	st := newFakeSymtab()
	st.hasTable = true
	st.typeSigs[0] = &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	body := []byte{0x00, 0x41, 0x00, 0x11, 0x00, 0x00, 0x0b}
	res, err := decodeBody(t, body, sig, st)
	require.NoError(t, err)
	require.Equal(t, 1, res.MaxStackDepth)
}

func TestDecodeFunctionBodyBrIfKeepsContinuationValue(t *testing.T) {
	st := newFakeSymtab()
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	// block (result i32): i32.const 1; i32.const 0; br_if 0; drop; i32.const 2; end
	body := []byte{
		0x00,
		0x02, 0x7f, // block (result i32)
		0x41, 0x01, // i32.const 1
		0x41, 0x00, // i32.const 0
		0x0d, 0x00, // br_if 0
		0x1a,       // drop
		0x41, 0x02, // i32.const 2
		0x0b, // end block
		0x0b, // end function
	}
	res, err := decodeBody(t, body, sig, st)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1}, res.IntConsts)
	require.Equal(t, 1, res.ProfileCount)
}

func TestDecodeFunctionBodyBrRecordsIntConsts(t *testing.T) {
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	// block (result i32): i32.const 1; i32.const 2; br 0; end; end
	body := []byte{
		0x00,
		0x02, 0x7f, // block (result i32)
		0x41, 0x01, // i32.const 1 (discarded by the branch)
		0x41, 0x02, // i32.const 2 (the continuation value)
		0x0c, 0x00, // br 0
		0x0b, // end block
		0x0b, // end function
	}
	res, err := decodeBody(t, body, sig, newFakeSymtab())
	require.NoError(t, err)
	require.Equal(t, []int32{1, 1}, res.IntConsts)
	require.Equal(t, 0, res.ProfileCount)
	require.Empty(t, res.BranchTables)
}

func TestDecodeFunctionBodyImmediateReturnHasEmptySideTables(t *testing.T) {
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	body := []byte{0x00, 0x41, 0x2a, 0x0b} // i32.const 42; end
	res, err := decodeBody(t, body, sig, newFakeSymtab())
	require.NoError(t, err)
	require.Empty(t, res.IntConsts)
	require.Empty(t, res.BranchTables)
	require.Equal(t, 1, res.MaxStackDepth)
}

func TestDecodeFunctionBodyBrTableArityMismatchIsTypeMismatch(t *testing.T) {
	sig := &types.FunctionSig{}
	// block (result i32): block (empty): i32.const 0; br_table 0 1; end; end
	body := []byte{
		0x00,
		0x02, 0x7f, // block (result i32)
		0x02, 0x40, // block (empty)
		0x41, 0x00, // i32.const 0 (br_table index)
		0x0e, 0x01, 0x00, 0x01, // br_table targets=[0] default=1
	}
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
	require.Equal(t, failure.TypeMismatch, failure.KindOf(err))
}

func TestDecodeFunctionBodyCallIndirectIncrementsProfileCount(t *testing.T) {
	st := newFakeSymtab()
	st.hasTable = true
	st.typeSigs[0] = &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	sig := &types.FunctionSig{ReturnTypes: []types.ValueType{types.I32}}
	body := []byte{0x00, 0x41, 0x00, 0x11, 0x00, 0x00, 0x0b}
	res, err := decodeBody(t, body, sig, st)
	require.NoError(t, err)
	require.Equal(t, 1, res.ProfileCount)
}

func TestDecodeFunctionBodyLoadStoreRequiresMemory(t *testing.T) {
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x41, 0x00, 0x28, 0x02, 0x00, 0x1a, 0x0b} // i32.const 0; i32.load align=2 offset=0; drop
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
	require.Equal(t, failure.UnknownMemory, failure.KindOf(err))
}

func TestDecodeFunctionBodyLoadStoreRoundTrip(t *testing.T) {
	st := newFakeSymtab()
	st.hasMemory = true
	sig := &types.FunctionSig{}
	// i32.const 0; i32.const 7; i32.store align=2 offset=0; i32.const 0; i32.load align=2 offset=0; drop
	body := []byte{
		0x00,
		0x41, 0x00,
		0x41, 0x07,
		0x36, 0x02, 0x00,
		0x41, 0x00,
		0x28, 0x02, 0x00,
		0x1a,
		0x0b,
	}
	_, err := decodeBody(t, body, sig, st)
	require.NoError(t, err)
}

func TestDecodeFunctionBodyMisalignedLoad(t *testing.T) {
	st := newFakeSymtab()
	st.hasMemory = true
	sig := &types.FunctionSig{}
	// i32.const 0; i32.load8_u with align=1 (natural alignment is 0 for width 1 byte)
	body := []byte{0x00, 0x41, 0x00, 0x2d, 0x01, 0x00, 0x1a, 0x0b}
	_, err := decodeBody(t, body, sig, st)
	require.Error(t, err)
	require.Equal(t, failure.AlignmentLargerThanNatural, failure.KindOf(err))
}

func TestDecodeFunctionBodyLocalIndexOutOfRange(t *testing.T) {
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x20, 0x00, 0x1a, 0x0b} // local.get 0, no locals declared
	_, err := decodeBody(t, body, sig, newFakeSymtab())
	require.Error(t, err)
}

func TestDecodeFunctionBodyGlobalSetImmutable(t *testing.T) {
	st := newFakeSymtab()
	st.globals[0] = types.GlobalVar{Type: types.I32, Mutable: false}
	sig := &types.FunctionSig{}
	body := []byte{0x00, 0x41, 0x00, 0x24, 0x00, 0x0b} // i32.const 0; global.set 0
	_, err := decodeBody(t, body, sig, st)
	require.Error(t, err)
	require.Equal(t, failure.ImmutableGlobalWrite, failure.KindOf(err))
}
