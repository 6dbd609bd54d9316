// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasm

import "github.com/dufoli/graal/wasm/failure"

// FailureKind enumerates every distinguishable decode/validate failure.
// It is an alias of failure.Kind so that validate (which cannot import
// wasm without a cycle, since wasm's section decoder calls into validate)
// can classify its own errors under the identical taxonomy.
type FailureKind = failure.Kind

const (
	InvalidMagicNumber                = failure.InvalidMagicNumber
	InvalidVersionNumber              = failure.InvalidVersionNumber
	UnexpectedEnd                     = failure.UnexpectedEnd
	MalformedLeb                      = failure.MalformedLeb
	MalformedSectionId                = failure.MalformedSectionId
	DuplicatedSection                 = failure.DuplicatedSection
	InvalidSectionOrder               = failure.InvalidSectionOrder
	SectionSizeMismatch               = failure.SectionSizeMismatch
	LengthOutOfBounds                 = failure.LengthOutOfBounds
	MalformedValueType                = failure.MalformedValueType
	MalformedUtf8                     = failure.MalformedUtf8
	UnknownType                       = failure.UnknownType
	UnknownLocal                      = failure.UnknownLocal
	UnknownGlobal                     = failure.UnknownGlobal
	UnknownTable                      = failure.UnknownTable
	UnknownMemory                     = failure.UnknownMemory
	TypeMismatch                      = failure.TypeMismatch
	InvalidResultArity                = failure.InvalidResultArity
	LoopInput                         = failure.LoopInput
	ImmutableGlobalWrite              = failure.ImmutableGlobalWrite
	ZeroFlagExpected                  = failure.ZeroFlagExpected
	AlignmentLargerThanNatural        = failure.AlignmentLargerThanNatural
	DataSegmentDoesNotFit             = failure.DataSegmentDoesNotFit
	LimitMinimumGreaterThanMaximum    = failure.LimitMinimumGreaterThanMaximum
	MemorySizeLimitExceeded           = failure.MemorySizeLimitExceeded
	FunctionsCodeInconsistentLengths  = failure.FunctionsCodeInconsistentLengths
	UnspecifiedMalformed              = failure.UnspecifiedMalformed
	UnspecifiedInvalid                = failure.UnspecifiedInvalid
)

// Failure is the structured error every decode/validate path returns.
type Failure = failure.Failure

// Fail constructs a Failure.
func Fail(kind FailureKind, format string, args ...interface{}) error {
	return failure.Fail(kind, format, args...)
}

// WrapAt annotates err with a byte offset, keeping the original Failure
// (and its Kind) recoverable via KindOf.
func WrapAt(err error, offset int) error { return failure.WrapAt(err, offset) }

// KindOf unwraps err to find the underlying FailureKind.
func KindOf(err error) FailureKind { return failure.KindOf(err) }

// classify turns any error from a types.* or cursor.* reader into a
// FailureKind-tagged Failure, preserving the original message.
func classify(err error) error { return failure.Classify(err) }
