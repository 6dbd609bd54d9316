// Package failure holds the closed-set FailureKind taxonomy and the
// Failure error type shared by every decode/validate package. It is kept
// dependency-free of both wasm and validate (importing only the leaf
// cursor/leb128/types packages) precisely so that validate can classify
// its own errors under the same taxonomy wasm uses, without either
// package importing the other.
package failure

import (
	"fmt"
	"io"

	stderrors "errors"

	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/leb128"
	"github.com/dufoli/graal/wasm/types"
	"github.com/pkg/errors"
)

// Kind enumerates every distinguishable decode/validate failure.
type Kind int

const (
	InvalidMagicNumber Kind = iota
	InvalidVersionNumber
	UnexpectedEnd
	MalformedLeb
	MalformedSectionId
	DuplicatedSection
	InvalidSectionOrder
	SectionSizeMismatch
	LengthOutOfBounds
	MalformedValueType
	MalformedUtf8
	UnknownType
	UnknownLocal
	UnknownGlobal
	UnknownTable
	UnknownMemory
	TypeMismatch
	InvalidResultArity
	LoopInput
	ImmutableGlobalWrite
	ZeroFlagExpected
	AlignmentLargerThanNatural
	DataSegmentDoesNotFit
	LimitMinimumGreaterThanMaximum
	MemorySizeLimitExceeded
	FunctionsCodeInconsistentLengths
	UnspecifiedMalformed
	UnspecifiedInvalid
)

var kindNames = [...]string{
	"InvalidMagicNumber", "InvalidVersionNumber", "UnexpectedEnd", "MalformedLeb",
	"MalformedSectionId", "DuplicatedSection", "InvalidSectionOrder", "SectionSizeMismatch",
	"LengthOutOfBounds", "MalformedValueType", "MalformedUtf8", "UnknownType",
	"UnknownLocal", "UnknownGlobal", "UnknownTable", "UnknownMemory", "TypeMismatch",
	"InvalidResultArity", "LoopInput", "ImmutableGlobalWrite", "ZeroFlagExpected",
	"AlignmentLargerThanNatural", "DataSegmentDoesNotFit", "LimitMinimumGreaterThanMaximum",
	"MemorySizeLimitExceeded", "FunctionsCodeInconsistentLengths", "UnspecifiedMalformed",
	"UnspecifiedInvalid",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "UnknownFailureKind"
	}
	return kindNames[k]
}

// Failure is the structured error every decode/validate path returns: a
// closed-set Kind plus a human message.
type Failure struct {
	Kind    Kind
	Message string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Fail constructs a Failure.
func Fail(kind Kind, format string, args ...interface{}) error {
	return Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapAt annotates err with a byte offset, keeping the original Failure
// (and its Kind) recoverable via KindOf.
func WrapAt(err error, offset int) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "at offset %#x", offset)
}

// Kinder is implemented by any error that can classify itself under the
// taxonomy without being a Failure itself.
type Kinder interface {
	Kind() Kind
}

type causer interface {
	Cause() error
}

// KindOf unwraps err (following github.com/pkg/errors causes, then the
// cursor/leb128/types package sentinels) to find the underlying Kind.
func KindOf(err error) Kind {
	for err != nil {
		if f, ok := err.(Failure); ok {
			return f.Kind
		}
		if k, ok := err.(Kinder); ok {
			return k.Kind()
		}
		if k, ok := classifySentinel(err); ok {
			return k
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		next := c.Cause()
		if next == nil || next == err {
			break
		}
		err = next
	}
	return UnspecifiedInvalid
}

// classifySentinel maps the dependency-free sentinel errors returned by
// wasm/cursor, wasm/leb128 and wasm/types onto a Kind.
func classifySentinel(err error) (Kind, bool) {
	switch {
	case stderrors.Is(err, cursor.ErrUnexpectedEnd) || err == io.ErrUnexpectedEOF || err == io.EOF:
		return UnexpectedEnd, true
	case stderrors.Is(err, cursor.ErrMalformedLEB) || stderrors.Is(err, leb128.ErrOverlong):
		return MalformedLeb, true
	case stderrors.Is(err, cursor.ErrMalformedUTF8):
		return MalformedUtf8, true
	case stderrors.Is(err, types.ErrInvalidResultArity):
		return InvalidResultArity, true
	case stderrors.Is(err, types.ErrZeroFlagExpected):
		return ZeroFlagExpected, true
	case stderrors.Is(err, types.ErrLimitMinGreaterThanMax):
		return LimitMinimumGreaterThanMaximum, true
	case stderrors.Is(err, types.ErrLimitTooLarge):
		return MemorySizeLimitExceeded, true
	case stderrors.Is(err, types.ErrMalformed):
		return MalformedValueType, true
	}
	return 0, false
}

// Classify turns any error from a types.* or cursor.* reader into a
// Kind-tagged Failure, preserving the original message.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(Failure); ok {
		return err
	}
	kind, ok := classifySentinel(err)
	if !ok {
		kind = UnspecifiedMalformed
	}
	return Failure{Kind: kind, Message: err.Error()}
}
