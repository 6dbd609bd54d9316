// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"errors"
	"fmt"

	"github.com/dufoli/graal/wasm/failure"
	"github.com/dufoli/graal/wasm/operators"
	"github.com/dufoli/graal/wasm/types"
)

// Error wraps a validation error with the location it was encountered at,
// so a caller decoding many functions can tell which one failed.
type Error struct {
	Offset   int // byte offset within the function body
	Function int // index into the function index space
	Err      error
}

func (e Error) Error() string {
	return fmt.Sprintf("error while validating function %d at offset %d: %v", e.Function, e.Offset, e.Err)
}

// Kind lets Error participate in the wasm/failure taxonomy via failure.KindOf.
func (e Error) Kind() failure.Kind { return failure.KindOf(e.Err) }

// ErrStackUnderflow is returned when an instruction needs an operand but
// the current block's portion of the stack is empty and the block is
// still reachable.
var ErrStackUnderflow = errors.New("validate: stack underflow")

// stackUnderflowKind classifies ErrStackUnderflow, a bare sentinel with no
// Kind method; asFailure matches it with errors.Is and tags it with this
// kind before it escapes the package.
func stackUnderflowKind() failure.Kind { return failure.UnspecifiedInvalid }

// UnmatchedOpError flags an `else` with no matching `if`, or a body that
// runs out of bytes before its opening block's `end`.
type UnmatchedOpError byte

func (e UnmatchedOpError) Error() string {
	op, _ := operators.New(byte(e))
	return fmt.Sprintf("encountered unmatched %s", op.Name)
}

func (e UnmatchedOpError) Kind() failure.Kind { return failure.UnspecifiedMalformed }

// InvalidLabelError flags a branch whose nesting depth has no enclosing
// block.
type InvalidLabelError uint32

func (e InvalidLabelError) Error() string {
	return fmt.Sprintf("invalid nesting depth %d", uint32(e))
}

func (e InvalidLabelError) Kind() failure.Kind { return failure.UnspecifiedInvalid }

// InvalidLabelArityError flags a br_table target whose continuation arity
// disagrees with the default target's, a type error rather than a bad
// nesting depth.
type InvalidLabelArityError uint32

func (e InvalidLabelArityError) Error() string {
	return fmt.Sprintf("br_table target %d: label arity disagrees with default target", uint32(e))
}

func (e InvalidLabelArityError) Kind() failure.Kind { return failure.TypeMismatch }

// InvalidLocalIndexError flags local.get/set/tee referencing a local that
// does not exist.
type InvalidLocalIndexError uint32

func (e InvalidLocalIndexError) Error() string {
	return fmt.Sprintf("invalid index for local variable %d", uint32(e))
}

func (e InvalidLocalIndexError) Kind() failure.Kind { return failure.UnknownLocal }

// InvalidTypeError flags an operand whose type does not match what an
// instruction or block signature requires.
type InvalidTypeError struct {
	Wanted types.ValueType
	Got    operand
}

func (e InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid type, got: %v, wanted: %v", e.Got, e.Wanted)
}

func (e InvalidTypeError) Kind() failure.Kind { return failure.TypeMismatch }

// UnmatchedIfValueErr flags an `if` block that declares a result type but
// has no `else` arm to produce it on the not-taken path.
type UnmatchedIfValueErr types.ValueType

func (e UnmatchedIfValueErr) Error() string {
	return fmt.Sprintf("if block returns value of type %v but no else present", types.ValueType(e))
}

func (e UnmatchedIfValueErr) Kind() failure.Kind { return failure.UnspecifiedInvalid }

// InvalidFunctionIndexError flags call/call_indirect referencing a
// function or type index outside its index space.
type InvalidFunctionIndexError uint32

func (e InvalidFunctionIndexError) Error() string {
	return fmt.Sprintf("invalid index to function index space: %d", uint32(e))
}

func (e InvalidFunctionIndexError) Kind() failure.Kind { return failure.UnknownType }

// InvalidImmediateError flags a malformed immediate operand, such as a
// reserved byte that is not zero.
type InvalidImmediateError struct {
	OpName  string
	ImmType string
}

func (e InvalidImmediateError) Error() string {
	return fmt.Sprintf("invalid immediate for op %s (should be %s)", e.OpName, e.ImmType)
}

func (e InvalidImmediateError) Kind() failure.Kind { return failure.UnspecifiedMalformed }

// MisalignedAccessError flags a load/store whose align hint claims more
// than the opcode's natural alignment (Invariant 10).
type MisalignedAccessError struct {
	OpName string
	Align  uint32
}

func (e MisalignedAccessError) Error() string {
	return fmt.Sprintf("%s: alignment hint 2**%d exceeds natural alignment", e.OpName, e.Align)
}

func (e MisalignedAccessError) Kind() failure.Kind { return failure.AlignmentLargerThanNatural }

// ErrUnbalancedStack flags a block or function whose operand stack did not
// return to its entry height once its result (if any) was accounted for.
var ErrUnbalancedStack = errors.New("validate: unbalanced stack")

func unbalancedStackKind() failure.Kind { return failure.UnspecifiedInvalid }

// asFailure normalizes any validate-package error into a failure.Failure so
// DecodeFunctionBody always returns an error the taxonomy can classify,
// even for the bare sentinel errors above that carry no Kind method.
func asFailure(err error) error {
	if err == nil {
		return nil
	}
	if k, ok := err.(failure.Kinder); ok {
		return failure.Fail(k.Kind(), "%v", err)
	}
	switch {
	case errors.Is(err, ErrStackUnderflow):
		return failure.Fail(stackUnderflowKind(), "%v", err)
	case errors.Is(err, ErrUnbalancedStack):
		return failure.Fail(unbalancedStackKind(), "%v", err)
	default:
		return failure.Classify(err)
	}
}
