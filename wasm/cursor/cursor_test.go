// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cursor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadU8AndBytes(t *testing.T) {
	c := New([]byte{0x01, 0x02, 0x03})
	b, err := c.ReadU8()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), b)

	rest, err := c.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x03}, rest)
	require.True(t, c.EOF())
}

func TestReadU8PastEnd(t *testing.T) {
	c := New(nil)
	_, err := c.ReadU8()
	require.ErrorIs(t, err, ErrUnexpectedEnd)
}

func TestReadU32LE(t *testing.T) {
	c := New([]byte{0x00, 0x61, 0x73, 0x6d})
	v, err := c.ReadU32LE()
	require.NoError(t, err)
	require.Equal(t, uint32(0x6d736100), v)
}

func TestReadLEBUint32(t *testing.T) {
	c := New([]byte{0x80, 0x80, 0x80, 0xfd, 0x07})
	v, err := c.ReadLEBUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(2141192192), v)
}

func TestReadLEBOverlongTranslated(t *testing.T) {
	c := New([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err := c.ReadLEBUint32()
	require.ErrorIs(t, err, ErrMalformedLEB)
}

func TestReadStringLEB(t *testing.T) {
	c := New([]byte{0x05, 'h', 'e', 'l', 'l', 'o'})
	s, err := c.ReadStringLEB()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestReadStringMalformedUTF8(t *testing.T) {
	c := New([]byte{0xff, 0xfe})
	_, err := c.ReadString(2)
	require.ErrorIs(t, err, ErrMalformedUTF8)
}

func TestBytesSinceOffset(t *testing.T) {
	c := New([]byte{0x41, 0x00, 0x0b})
	start := c.Offset()
	_, _ = c.ReadU8()
	_, _ = c.ReadU8()
	require.Equal(t, []byte{0x41, 0x00}, c.Bytes(start))
}

func TestPeekU8DoesNotAdvance(t *testing.T) {
	c := New([]byte{0x10, 0x20})
	b, err := c.PeekU8(0)
	require.NoError(t, err)
	require.Equal(t, byte(0x10), b)
	require.Equal(t, 0, c.Offset())
}

func TestSkipPastEndConsumesRemainder(t *testing.T) {
	c := New([]byte{0x01})
	err := c.Skip(5)
	require.ErrorIs(t, err, ErrUnexpectedEnd)
	require.True(t, c.EOF())
}
