// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package leb128 provides functions for reading integers encoded in the
// Little Endian Base 128 (LEB128) format:
// https://en.wikipedia.org/wiki/LEB128
package leb128

import (
	"errors"
	"io"
)

// ErrOverlong is returned when a LEB128 value is encoded using more bytes
// than its declared maximum width allows.
var ErrOverlong = errors.New("leb128: overlong encoding")

// ByteReader is the minimal interface leb128 needs from its source; a
// cursor.ByteCursor satisfies it directly.
type ByteReader interface {
	ReadByte() (byte, error)
}

// ReadVarUint32 reads a LEB128 encoded unsigned 32-bit integer, rejecting
// encodings longer than 5 bytes (ceil(32/7)).
func ReadVarUint32(r ByteReader) (uint32, error) {
	v, _, err := ReadVarUint32Size(r)
	return v, err
}

// ReadVarUint32Size is ReadVarUint32 but also returns the number of bytes
// consumed, used by custom-section payload-length bookkeeping.
func ReadVarUint32Size(r ByteReader) (uint32, int, error) {
	var (
		res   uint32
		shift uint
		n     int
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, n, io.ErrUnexpectedEOF
			}
			return 0, n, err
		}
		n++
		if n > 5 {
			return 0, n, ErrOverlong
		}
		cur := uint32(b & 0x7f)
		if n == 5 && cur&^0xf != 0 {
			// the 5th byte may only contribute 4 more bits to a uint32.
			return 0, n, ErrOverlong
		}
		res |= cur << shift
		if b&0x80 == 0 {
			return res, n, nil
		}
		shift += 7
	}
}

// ReadVarint32 reads a LEB128 encoded signed 32-bit integer, rejecting
// encodings longer than 5 bytes.
func ReadVarint32(r ByteReader) (int32, error) {
	n, err := readVarintN(r, 32, 5)
	return int32(n), err
}

// ReadVarint64 reads a LEB128 encoded signed 64-bit integer, rejecting
// encodings longer than 10 bytes (ceil(64/7)).
func ReadVarint64(r ByteReader) (int64, error) {
	return readVarintN(r, 64, 10)
}

func readVarintN(r ByteReader, width uint, maxBytes int) (int64, error) {
	var (
		res   int64
		shift uint
		n     int
		b     byte
		err   error
	)
	for {
		b, err = r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		n++
		if n > maxBytes {
			return 0, ErrOverlong
		}
		res |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < width && b&0x40 != 0 {
		res |= -1 << shift
	}
	return res, nil
}
