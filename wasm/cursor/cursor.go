// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cursor provides ByteCursor, the position-tracked, bounds-checked
// view over a module's bytes that every other decoder package reads
// through. It is deliberately dependency-free: it reports plain sentinel
// errors, leaving the §7 failure-kind classification to callers that know
// which section or instruction they're in.
package cursor

import (
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/dufoli/graal/wasm/leb128"
)

// ErrUnexpectedEnd is returned whenever a read would need bytes past the end
// of the buffer.
var ErrUnexpectedEnd = io.ErrUnexpectedEOF

// ErrMalformedUTF8 is returned by ReadString/ReadStringLEB when the bytes
// read do not decode as strict UTF-8.
var ErrMalformedUTF8 = errors.New("cursor: malformed UTF-8")

// ErrMalformedLEB is returned when a LEB128 value overruns its maximum
// encoded width.
var ErrMalformedLEB = leb128.ErrOverlong

// ByteCursor is a position-tracked, read-only view over a byte slice.
type ByteCursor struct {
	buf []byte
	pos int
}

// New wraps b without copying it.
func New(b []byte) *ByteCursor { return &ByteCursor{buf: b} }

// Offset returns the current read position.
func (c *ByteCursor) Offset() int { return c.pos }

// Len returns the total length of the underlying buffer.
func (c *ByteCursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *ByteCursor) Remaining() int { return len(c.buf) - c.pos }

// EOF reports whether the cursor has consumed the entire buffer.
func (c *ByteCursor) EOF() bool { return c.pos >= len(c.buf) }

// Jump repositions the cursor to an absolute offset.
func (c *ByteCursor) Jump(offset int) { c.pos = offset }

// Bytes returns the slice between [from, c.pos).
func (c *ByteCursor) Bytes(from int) []byte { return c.buf[from:c.pos] }

// PeekU8 returns the byte `delta` positions from the cursor without
// advancing it. delta may be negative.
func (c *ByteCursor) PeekU8(delta int) (byte, error) {
	i := c.pos + delta
	if i < 0 || i >= len(c.buf) {
		return 0, ErrUnexpectedEnd
	}
	return c.buf[i], nil
}

// Skip advances the cursor by n bytes without returning them.
func (c *ByteCursor) Skip(n int) error {
	if c.Remaining() < n {
		c.pos = len(c.buf)
		return ErrUnexpectedEnd
	}
	c.pos += n
	return nil
}

// ReadByte implements io.ByteReader and leb128.ByteReader.
func (c *ByteCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// ReadU8 reads a single byte, translating end-of-buffer into
// ErrUnexpectedEnd.
func (c *ByteCursor) ReadU8() (byte, error) {
	b, err := c.ReadByte()
	if err == io.EOF {
		return 0, ErrUnexpectedEnd
	}
	return b, err
}

// ReadBytes reads n raw bytes.
func (c *ByteCursor) ReadBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if c.Remaining() < n {
		c.pos = len(c.buf)
		return nil, ErrUnexpectedEnd
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadU32LE reads a little-endian fixed-width uint32.
func (c *ByteCursor) ReadU32LE() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64LE reads a little-endian fixed-width uint64.
func (c *ByteCursor) ReadU64LE() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadLEBUint32 reads a LEB128 unsigned 32-bit integer, at most 5 bytes.
func (c *ByteCursor) ReadLEBUint32() (uint32, error) {
	v, _, err := leb128.ReadVarUint32Size(c)
	return v, translateLEB(err)
}

// ReadLEBUint32Size is ReadLEBUint32 plus the number of bytes consumed.
func (c *ByteCursor) ReadLEBUint32Size() (uint32, int, error) {
	v, n, err := leb128.ReadVarUint32Size(c)
	return v, n, translateLEB(err)
}

// ReadLEBInt32 reads a LEB128 signed 32-bit integer, at most 5 bytes.
func (c *ByteCursor) ReadLEBInt32() (int32, error) {
	v, err := leb128.ReadVarint32(c)
	return v, translateLEB(err)
}

// ReadLEBInt64 reads a LEB128 signed 64-bit integer, at most 10 bytes.
func (c *ByteCursor) ReadLEBInt64() (int64, error) {
	v, err := leb128.ReadVarint64(c)
	return v, translateLEB(err)
}

func translateLEB(err error) error {
	switch err {
	case nil:
		return nil
	case io.ErrUnexpectedEOF:
		return ErrUnexpectedEnd
	case leb128.ErrOverlong:
		return ErrMalformedLEB
	default:
		return err
	}
}

// ReadString reads n bytes and validates them as strict UTF-8.
func (c *ByteCursor) ReadString(n int) (string, error) {
	b, err := c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrMalformedUTF8
	}
	return string(b), nil
}

// ReadStringLEB reads a LEB128-prefixed UTF-8 string.
func (c *ByteCursor) ReadStringLEB() (string, error) {
	n, err := c.ReadLEBUint32()
	if err != nil {
		return "", err
	}
	return c.ReadString(int(n))
}
