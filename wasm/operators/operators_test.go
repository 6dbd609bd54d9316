// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package operators

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dufoli/graal/wasm/types"
)

func TestNewKnownOpcode(t *testing.T) {
	op, err := New(0x6a) // i32.add
	require.NoError(t, err)
	require.Equal(t, "i32.add", op.Name)
	require.Equal(t, types.I32, op.Returns)
	require.Equal(t, []types.ValueType{types.I32, types.I32}, op.Args)
}

func TestNewUnknownOpcode(t *testing.T) {
	_, err := New(0xc0)
	require.Error(t, err)
}

func TestIsFixedSignatureRange(t *testing.T) {
	require.True(t, IsFixedSignature(0x28))
	require.True(t, IsFixedSignature(0xbf))
	require.True(t, IsFixedSignature(0x6a))
	require.False(t, IsFixedSignature(0x02)) // block
	require.False(t, IsFixedSignature(0x20)) // local.get
}

func TestIsLoadIsStoreDisjoint(t *testing.T) {
	require.True(t, IsLoad(0x28))
	require.False(t, IsStore(0x28))
	require.True(t, IsStore(0x36))
	require.False(t, IsLoad(0x36))
	require.False(t, IsLoad(0x3f)) // memory.size, not a load
}

func TestNaturalAlignmentMatchesAccessWidth(t *testing.T) {
	cases := map[byte]uint32{
		0x28: 4, // i32.load
		0x29: 8, // i64.load
		0x2c: 1, // i32.load8_s
		0x36: 4, // i32.store
		0x37: 8, // i64.store
	}
	for code, width := range cases {
		require.Equal(t, width, NaturalAlignment[code])
		maxAlign := bits.TrailingZeros32(width)
		require.GreaterOrEqual(t, maxAlign, 0)
	}
}

func TestStoreOpReturnsCarriesStoredValueType(t *testing.T) {
	op, err := New(0x37) // i64.store
	require.NoError(t, err)
	require.Equal(t, types.I64, op.Returns)
}
