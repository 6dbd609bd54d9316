// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate abstractly interprets a function body against the
// module's SymbolTable, the way a real executor would run it, except
// every value on the operand stack is a type rather than a number.
package validate

import (
	"math/bits"

	"github.com/dufoli/graal/linker"
	"github.com/dufoli/graal/sink"
	"github.com/dufoli/graal/symtab"
	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/failure"
	"github.com/dufoli/graal/wasm/operators"
	"github.com/dufoli/graal/wasm/types"
)

// Limits bounds the resources a single function body's decode may use.
type Limits struct {
	MaxLocals uint32
}

// Result is the validated shape of a function body: the caller (wasm's
// section decoder) folds this into its own per-function record.
type Result struct {
	Locals        []types.ValueType
	Root          sink.NodeID
	MaxStackDepth int

	// IntConsts holds, for every br/br_if site in encounter order, the pair
	// (values the branch discards below its continuation, continuation
	// length).
	IntConsts []int32
	// BranchTables holds one int32 array per br_table site: its targets
	// followed by its default target.
	BranchTables [][]int32
	// ProfileCount is how many br_if/call_indirect sites this body has.
	ProfileCount int
}

// DecodeFunctionBody validates one function body's bytecode, recording its
// block tree into ns and its cross-function call sites onto lq. body is
// the bytes of one code-section entry: the local-declaration vector
// followed by the instruction stream, ending with the function-level end
// (0x0B).
func DecodeFunctionBody(body []byte, funcIdx int, sig *types.FunctionSig, st symtab.SymbolTable, ns sink.NodeSink, lq linker.LinkerQueue, limits Limits) (Result, error) {
	if sig == nil {
		return Result{}, failure.Fail(failure.UnknownType, "function %d: no signature", funcIdx)
	}

	c := cursor.New(body)

	locals := append([]types.ValueType(nil), sig.ParamTypes...)

	declCount, err := c.ReadLEBUint32()
	if err != nil {
		return Result{}, wrap(funcIdx, c, err)
	}
	for i := uint32(0); i < declCount; i++ {
		count, err := c.ReadLEBUint32()
		if err != nil {
			return Result{}, wrap(funcIdx, c, err)
		}
		t, err := types.ReadValueType(c)
		if err != nil {
			return Result{}, wrap(funcIdx, c, err)
		}
		if limits.MaxLocals > 0 && uint64(len(locals))+uint64(count) > uint64(limits.MaxLocals) {
			return Result{}, wrap(funcIdx, c, failure.Fail(failure.LengthOutOfBounds, "function %d declares too many locals", funcIdx))
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, t)
		}
	}

	root := ns.NewRootNode(funcIdx)
	s := newState()
	s.pushBlock(ctrlBlock, blockTypeOf(sig), root)

	d := &decoder{c: c, funcIdx: funcIdx, sig: sig, st: st, ns: ns, lq: lq, locals: locals, s: s}
	for {
		if c.EOF() {
			return Result{}, wrap(funcIdx, c, UnmatchedOpError(0))
		}
		offset := c.Offset()
		opcode, err := c.ReadU8()
		if err != nil {
			return Result{}, wrap(funcIdx, c, err)
		}
		done, err := d.step(opcode)
		if err != nil {
			return Result{}, asFailure(Error{Offset: offset, Function: funcIdx, Err: err})
		}
		if done {
			break
		}
	}
	if !c.EOF() {
		return Result{}, wrap(funcIdx, c, failure.Fail(failure.SectionSizeMismatch, "function %d: trailing bytes after final end", funcIdx))
	}

	ns.CloseNode(root, s.maxStack, sink.BlockExtents{})
	return Result{
		Locals:        locals,
		Root:          root,
		MaxStackDepth: s.maxStack,
		IntConsts:     s.intConsts,
		BranchTables:  s.branchTables,
		ProfileCount:  s.profileCount,
	}, nil
}

func wrap(funcIdx int, c *cursor.ByteCursor, err error) error {
	return asFailure(Error{Offset: c.Offset(), Function: funcIdx, Err: err})
}

func blockTypeOf(sig *types.FunctionSig) types.BlockType {
	if len(sig.ReturnTypes) == 0 {
		return types.BlockTypeEmpty
	}
	return types.BlockType(sig.ReturnTypes[0])
}

// decoder carries the per-call state step needs on every instruction:
// the byte cursor, the abstract stack/block state, and the collaborators
// that receive the block tree and deferred call-resolution work.
type decoder struct {
	c       *cursor.ByteCursor
	funcIdx int
	sig     *types.FunctionSig
	st      symtab.SymbolTable
	ns      sink.NodeSink
	lq      linker.LinkerQueue
	locals  []types.ValueType
	s       *state
}

// step decodes and type-checks one instruction. done is true once the
// opcode just processed was the `end` that closed the function's
// implicit outermost block.
func (d *decoder) step(opcode byte) (done bool, err error) {
	switch opcode {
	case 0x00: // unreachable
		d.s.setUnreachable()

	case 0x01: // nop

	case 0x02, 0x03, 0x04: // block, loop, if
		bt, err := types.ReadBlockType(d.c)
		if err != nil {
			return false, err
		}
		parent := d.s.top().node
		switch opcode {
		case 0x02:
			d.s.pushBlock(ctrlBlock, bt, d.ns.NewBlockNode(parent, sinkSig(bt)))
		case 0x03:
			d.s.pushBlock(ctrlLoop, bt, d.ns.NewLoopNode(parent, sinkSig(bt)))
		case 0x04:
			if err := d.s.popExpect(types.I32); err != nil {
				return false, err
			}
			d.s.pushBlock(ctrlIf, bt, d.ns.NewIfNode(parent, sinkSig(bt)))
		}

	case 0x05: // else
		top := d.s.top()
		if top.kind != ctrlIf || top.hasElse {
			return false, UnmatchedOpError(opcode)
		}
		f, err := d.s.popBlock()
		if err != nil {
			return false, err
		}
		d.ns.MarkElse(f.node)
		d.s.pushBlock(ctrlIf, f.blockType, f.node)
		d.s.top().hasElse = true

	case 0x0b: // end
		top := d.s.top()
		wasIf, hadElse, node := top.kind == ctrlIf, top.hasElse, top.node
		f, err := d.s.popBlock()
		if err != nil {
			return false, err
		}
		if wasIf && !hadElse {
			if rt, ok := f.blockType.ToValueType(); ok {
				return false, UnmatchedIfValueErr(rt)
			}
		}
		if rt, ok := f.blockType.ToValueType(); ok {
			d.s.push(rt)
		}
		d.ns.CloseNode(node, d.s.maxStack, f.extents())
		if len(d.s.ctrls) == 0 {
			return true, nil
		}

	case 0x0c: // br
		depth, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		f, err := d.s.label(depth)
		if err != nil {
			return false, err
		}
		d.s.recordBranch(f)
		if err := d.s.popLabelArgs(f); err != nil {
			return false, err
		}
		d.s.setUnreachable()

	case 0x0d: // br_if
		depth, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		if err := d.s.popExpect(types.I32); err != nil {
			return false, err
		}
		f, err := d.s.label(depth)
		if err != nil {
			return false, err
		}
		d.s.recordBranch(f)
		d.s.profileCount++
		if err := d.s.popLabelArgs(f); err != nil {
			return false, err
		}
		d.s.pushLabelArgs(f)

	case 0x0e: // br_table
		n, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		targets := make([]uint32, n)
		for i := range targets {
			if targets[i], err = d.c.ReadLEBUint32(); err != nil {
				return false, err
			}
		}
		defaultTarget, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		if err := d.s.popExpect(types.I32); err != nil {
			return false, err
		}
		defaultFrame, err := d.s.label(defaultTarget)
		if err != nil {
			return false, err
		}
		for _, t := range targets {
			f, err := d.s.label(t)
			if err != nil {
				return false, err
			}
			if f.labelArity() != defaultFrame.labelArity() {
				return false, InvalidLabelArityError(t)
			}
			if f.labelArity() == 1 {
				rt1, _ := f.blockType.ToValueType()
				rt2, _ := defaultFrame.blockType.ToValueType()
				if rt1 != rt2 {
					return false, InvalidTypeError{Wanted: rt2, Got: known(rt1)}
				}
			}
		}
		if err := d.s.popLabelArgs(defaultFrame); err != nil {
			return false, err
		}
		table := make([]int32, 0, len(targets)+1)
		for _, t := range targets {
			table = append(table, int32(t))
		}
		table = append(table, int32(defaultTarget))
		d.s.branchTables = append(d.s.branchTables, table)
		d.s.setUnreachable()

	case 0x0f: // return
		if len(d.sig.ReturnTypes) == 1 {
			if err := d.s.popExpect(d.sig.ReturnTypes[0]); err != nil {
				return false, err
			}
		}
		d.s.setUnreachable()

	case 0x10: // call
		idx, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		callee, ok := d.st.FunctionSig(int(idx))
		if !ok {
			return false, InvalidFunctionIndexError(idx)
		}
		for i := len(callee.ParamTypes) - 1; i >= 0; i-- {
			if err := d.s.popExpect(callee.ParamTypes[i]); err != nil {
				return false, err
			}
		}
		for _, t := range callee.ReturnTypes {
			d.s.push(t)
		}
		d.ns.NewCallStubNode(d.s.top().node, idx)
		calleeIdx := idx
		d.lq.Enqueue(linker.ResolveCall, func() error {
			if _, ok := d.st.FunctionSig(int(calleeIdx)); !ok {
				return failure.Fail(failure.UnknownType, "call: function %d no longer resolvable", calleeIdx)
			}
			return nil
		})

	case 0x11: // call_indirect
		typeIdx, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		reserved, err := d.c.ReadU8()
		if err != nil {
			return false, err
		}
		if reserved != 0 {
			return false, InvalidImmediateError{OpName: "call_indirect", ImmType: "reserved byte must be 0"}
		}
		if !d.st.HasTable() {
			return false, failure.Fail(failure.UnknownTable, "call_indirect: module declares no table")
		}
		callee, ok := d.st.TypeSig(int(typeIdx))
		if !ok {
			return false, InvalidFunctionIndexError(typeIdx)
		}
		if err := d.s.popExpect(types.I32); err != nil {
			return false, err
		}
		for i := len(callee.ParamTypes) - 1; i >= 0; i-- {
			if err := d.s.popExpect(callee.ParamTypes[i]); err != nil {
				return false, err
			}
		}
		for _, t := range callee.ReturnTypes {
			d.s.push(t)
		}
		d.ns.NewIndirectCallNode(d.s.top().node, typeIdx)
		d.s.profileCount++
		resolvedType := typeIdx
		d.lq.Enqueue(linker.ResolveCall, func() error {
			if _, ok := d.st.TypeSig(int(resolvedType)); !ok {
				return failure.Fail(failure.UnknownType, "call_indirect: type %d no longer resolvable", resolvedType)
			}
			return nil
		})

	case 0x1a: // drop
		if _, err := d.s.pop(); err != nil {
			return false, err
		}

	case 0x1b: // select
		if err := d.s.popExpect(types.I32); err != nil {
			return false, err
		}
		a, err := d.s.pop()
		if err != nil {
			return false, err
		}
		b, err := d.s.pop()
		if err != nil {
			return false, err
		}
		switch {
		case a.known:
			if b.known && b.vt != a.vt {
				return false, InvalidTypeError{Wanted: a.vt, Got: b}
			}
			d.s.push(a.vt)
		case b.known:
			d.s.push(b.vt)
		default:
			d.s.pushUnknown()
		}

	case 0x20, 0x21, 0x22: // local.get, local.set, local.tee
		idx, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		if int(idx) >= len(d.locals) {
			return false, InvalidLocalIndexError(idx)
		}
		t := d.locals[idx]
		switch opcode {
		case 0x20:
			d.s.push(t)
		case 0x21:
			if err := d.s.popExpect(t); err != nil {
				return false, err
			}
		case 0x22:
			if err := d.s.popExpect(t); err != nil {
				return false, err
			}
			d.s.push(t)
		}

	case 0x23, 0x24: // global.get, global.set
		idx, err := d.c.ReadLEBUint32()
		if err != nil {
			return false, err
		}
		g, ok := d.st.GlobalType(int(idx))
		if !ok {
			return false, failure.Fail(failure.UnknownGlobal, "global index %d out of bounds", idx)
		}
		if opcode == 0x23 {
			d.s.push(g.Type)
		} else {
			if !g.Mutable {
				return false, failure.Fail(failure.ImmutableGlobalWrite, "global.set: global %d is immutable", idx)
			}
			if err := d.s.popExpect(g.Type); err != nil {
				return false, err
			}
		}

	case 0x3f, 0x40: // memory.size, memory.grow
		if !d.st.HasMemory() {
			return false, failure.Fail(failure.UnknownMemory, "module declares no memory")
		}
		reserved, err := d.c.ReadU8()
		if err != nil {
			return false, err
		}
		if reserved != 0 {
			return false, failure.Fail(failure.ZeroFlagExpected, "memory index byte must be 0")
		}
		if opcode == 0x40 {
			if err := d.s.popExpect(types.I32); err != nil {
				return false, err
			}
		}
		d.s.push(types.I32)

	case 0x41: // i32.const
		if _, err := d.c.ReadLEBInt32(); err != nil {
			return false, err
		}
		d.s.push(types.I32)

	case 0x42: // i64.const
		if _, err := d.c.ReadLEBInt64(); err != nil {
			return false, err
		}
		d.s.push(types.I64)

	case 0x43: // f32.const
		if _, err := d.c.ReadU32LE(); err != nil {
			return false, err
		}
		d.s.push(types.F32)

	case 0x44: // f64.const
		if _, err := d.c.ReadU64LE(); err != nil {
			return false, err
		}
		d.s.push(types.F64)

	default:
		switch {
		case operators.IsLoad(opcode):
			if err := d.memoryImmediate(opcode); err != nil {
				return false, err
			}
			op, _ := operators.New(opcode)
			if err := d.s.popExpect(types.I32); err != nil {
				return false, err
			}
			d.s.push(op.Returns)

		case operators.IsStore(opcode):
			if err := d.memoryImmediate(opcode); err != nil {
				return false, err
			}
			op, _ := operators.New(opcode)
			if err := d.s.popExpect(op.Returns); err != nil {
				return false, err
			}
			if err := d.s.popExpect(types.I32); err != nil {
				return false, err
			}

		case operators.IsFixedSignature(opcode):
			op, err := operators.New(opcode)
			if err != nil {
				return false, failure.Fail(failure.UnspecifiedMalformed, "unknown opcode 0x%02x", opcode)
			}
			for _, t := range op.Args {
				if err := d.s.popExpect(t); err != nil {
					return false, err
				}
			}
			if op.Returns != operators.NoReturn {
				d.s.push(op.Returns)
			}

		default:
			return false, failure.Fail(failure.UnspecifiedMalformed, "unknown opcode 0x%02x", opcode)
		}
	}

	return false, nil
}

// memoryImmediate reads a load/store's align/offset pair and checks the
// align hint against the opcode's natural alignment (Invariant 10).
func (d *decoder) memoryImmediate(opcode byte) error {
	if !d.st.HasMemory() {
		return failure.Fail(failure.UnknownMemory, "module declares no memory")
	}
	align, err := d.c.ReadLEBUint32()
	if err != nil {
		return err
	}
	if _, err := d.c.ReadLEBUint32(); err != nil { // offset
		return err
	}
	if width, ok := operators.NaturalAlignment[opcode]; ok {
		if align > uint32(bits.TrailingZeros32(width)) {
			op, _ := operators.New(opcode)
			return MisalignedAccessError{OpName: op.Name, Align: align}
		}
	}
	return nil
}

// sinkSig converts a types.BlockType to the leaf sink.BlockSignature so
// the block-tree package never needs to import wasm/types.
func sinkSig(bt types.BlockType) sink.BlockSignature {
	if bt == types.BlockTypeEmpty {
		return sink.BlockSignature{Empty: true}
	}
	return sink.BlockSignature{ResultType: int8(bt)}
}
