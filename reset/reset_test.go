package reset

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dufoli/graal/wasm"
	"github.com/dufoli/graal/wasm/types"
)

type fakeGlobalStore struct {
	values map[int]uint64
}

func newFakeGlobalStore() *fakeGlobalStore {
	return &fakeGlobalStore{values: map[int]uint64{}}
}

func (g *fakeGlobalStore) SetGlobal(idx int, value uint64) { g.values[idx] = value }

func (g *fakeGlobalStore) GetGlobal(idx int) (uint64, bool) {
	v, ok := g.values[idx]
	return v, ok
}

type memWrite struct {
	offset uint32
	data   []byte
}

type tableWrite struct {
	offset uint32
	funcs  []uint32
}

type fakeMemorySink struct {
	mem   []memWrite
	table []tableWrite
}

func (m *fakeMemorySink) WriteMemory(offset uint32, data []byte) {
	m.mem = append(m.mem, memWrite{offset, data})
}

func (m *fakeMemorySink) WriteTable(offset uint32, funcs []uint32) {
	m.table = append(m.table, tableWrite{offset, funcs})
}

func i32Const(v int32) []byte { return []byte{0x41, byte(v)} }

func i64Const(v int64) []byte { return []byte{0x42, byte(v)} }

func f32Const(v float32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return append([]byte{0x43}, b[:]...)
}

func f64Const(v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append([]byte{0x44}, b[:]...)
}

func globalGet(idx byte) []byte { return []byte{0x23, idx} }

func TestPassRunEvaluatesGlobalConstants(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.GlobalEntry{
			{Type: types.GlobalVar{Type: types.I32}, Init: i32Const(7)},
			{Type: types.GlobalVar{Type: types.I64}, Init: i64Const(9)},
			{Type: types.GlobalVar{Type: types.F32}, Init: f32Const(1.5)},
			{Type: types.GlobalVar{Type: types.F64}, Init: f64Const(2.5)},
		},
	}
	gs := newFakeGlobalStore()
	p := &Pass{Module: m, Globals: gs, Memory: &fakeMemorySink{}}

	require.NoError(t, p.Run())
	require.Equal(t, uint64(7), gs.values[0])
	require.Equal(t, uint64(9), gs.values[1])
	require.Equal(t, uint64(math.Float32bits(1.5)), gs.values[2])
	require.Equal(t, math.Float64bits(2.5), gs.values[3])
}

func TestPassRunGlobalGetReferencesEarlierGlobal(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.GlobalEntry{
			{Type: types.GlobalVar{Type: types.I32}, Init: i32Const(42)},
			{Type: types.GlobalVar{Type: types.I32}, Init: globalGet(0)},
		},
	}
	gs := newFakeGlobalStore()
	p := &Pass{Module: m, Globals: gs, Memory: &fakeMemorySink{}}

	require.NoError(t, p.Run())
	require.Equal(t, uint64(42), gs.values[1])
}

func TestPassRunWritesElementSegmentIntoTable(t *testing.T) {
	m := &wasm.Module{
		Elements: []wasm.ElementSegment{
			{TableIndex: 0, Offset: i32Const(3), Funcs: []uint32{1, 2, 3}},
		},
	}
	mem := &fakeMemorySink{}
	p := &Pass{Module: m, Globals: newFakeGlobalStore(), Memory: mem}

	require.NoError(t, p.Run())
	require.Len(t, mem.table, 1)
	require.EqualValues(t, 3, mem.table[0].offset)
	require.Equal(t, []uint32{1, 2, 3}, mem.table[0].funcs)
}

func TestPassRunWritesDataSegmentIntoMemory(t *testing.T) {
	m := &wasm.Module{
		Data: []wasm.DataSegment{
			{MemIndex: 0, Offset: i32Const(10), Data: []byte("hi")},
		},
	}
	mem := &fakeMemorySink{}
	p := &Pass{Module: m, Globals: newFakeGlobalStore(), Memory: mem}

	require.NoError(t, p.Run())
	require.Len(t, mem.mem, 1)
	require.EqualValues(t, 10, mem.mem[0].offset)
	require.Equal(t, []byte("hi"), mem.mem[0].data)
}

func TestPassRunGlobalGetUnresolvedFails(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.GlobalEntry{
			{Type: types.GlobalVar{Type: types.I32}, Init: globalGet(5)},
		},
	}
	p := &Pass{Module: m, Globals: newFakeGlobalStore(), Memory: &fakeMemorySink{}}

	err := p.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "global 0")
}

func TestPassRunEmptyExpressionFails(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.GlobalEntry{{Type: types.GlobalVar{Type: types.I32}, Init: nil}},
	}
	p := &Pass{Module: m, Globals: newFakeGlobalStore(), Memory: &fakeMemorySink{}}

	err := p.Run()
	require.Error(t, err)
}

func TestPassRunUnknownOpcodeFails(t *testing.T) {
	m := &wasm.Module{
		Data: []wasm.DataSegment{{Offset: []byte{0x0c}, Data: []byte("x")}},
	}
	p := &Pass{Module: m, Globals: newFakeGlobalStore(), Memory: &fakeMemorySink{}}

	err := p.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "data segment 0")
}
