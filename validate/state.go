// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"github.com/dufoli/graal/sink"
	"github.com/dufoli/graal/wasm/types"
)

// operand is one entry of the abstract operand stack: either a concrete
// value type or the Unknown sentinel produced while popping inside an
// unreachable (stack-polymorphic) region.
type operand struct {
	known bool
	vt    types.ValueType
}

var unknownOperand = operand{}

func known(t types.ValueType) operand { return operand{known: true, vt: t} }

func (o operand) String() string {
	if !o.known {
		return "<unknown>"
	}
	return o.vt.String()
}

// ctrlKind distinguishes the three structured block shapes; it decides
// which continuation arity a branch into this frame uses.
type ctrlKind int

const (
	ctrlBlock ctrlKind = iota
	ctrlLoop
	ctrlIf
)

// frame is one entry of the block stack: everything needed to pop the
// frame's result off the operand stack and to record a NodeSink node for
// it once its matching `end` (or `else`) is seen.
type frame struct {
	kind        ctrlKind
	blockType   types.BlockType
	height      int // operand-stack length when the frame was opened
	unreachable bool
	node        sink.NodeID

	hasElse bool

	intConstStart    int
	branchTableStart int
	profileStart     int
}

// extents reports where this frame's slice of each side table began, for
// handing to the NodeSink once the frame's matching `end` closes it.
func (f frame) extents() sink.BlockExtents {
	return sink.BlockExtents{
		IntConstStart:    f.intConstStart,
		BranchTableStart: f.branchTableStart,
		ProfileStart:     f.profileStart,
	}
}

// labelArity is the continuation arity a branch targeting this frame must
// supply: 0 for loop (branches jump to the loop header, which takes no
// values), the block's declared result arity otherwise.
func (f frame) labelArity() int {
	if f.kind == ctrlLoop {
		return 0
	}
	return f.blockType.Arity()
}

// state is the per-function-body ExecutionState: the abstract operand
// stack, the block stack, and the three append-only side-table buffers
// consumed by an executor to locate each block's slice of branch data.
type state struct {
	opds  []operand
	ctrls []frame

	maxStack int

	intConsts    []int32
	branchTables [][]int32
	profileCount int
}

func newState() *state { return &state{} }

func (s *state) push(t types.ValueType) {
	s.opds = append(s.opds, known(t))
	if len(s.opds) > s.maxStack {
		s.maxStack = len(s.opds)
	}
}

func (s *state) pushUnknown() { s.opds = append(s.opds, unknownOperand) }

func (s *state) top() *frame { return &s.ctrls[len(s.ctrls)-1] }

func (s *state) pop() (operand, error) {
	top := s.top()
	if len(s.opds) == top.height {
		if top.unreachable {
			return unknownOperand, nil
		}
		return operand{}, ErrStackUnderflow
	}
	v := s.opds[len(s.opds)-1]
	s.opds = s.opds[:len(s.opds)-1]
	return v, nil
}

func (s *state) popExpect(t types.ValueType) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	if v.known && v.vt != t {
		return InvalidTypeError{Wanted: t, Got: v}
	}
	return nil
}

// branchDrop is how many operand-stack values a branch to f must discard
// below the continuation value(s) it keeps: the gap between the current
// stack top and f's entry height, excluding the labelArity values kept.
func (s *state) branchDrop(f *frame) int {
	return len(s.opds) - f.labelArity() - f.height
}

// recordBranch appends, for a br/br_if site targeting f, the number of
// operand-stack values the branch discards (branchDrop) and the
// continuation length onto the int-constant pool, for an executor to
// later read back out of the code entry.
func (s *state) recordBranch(f *frame) {
	s.intConsts = append(s.intConsts, int32(s.branchDrop(f)), int32(f.labelArity()))
}

// pushBlock opens a new control frame of the given kind and block type,
// recording the NodeSink id the caller already obtained for it.
func (s *state) pushBlock(kind ctrlKind, bt types.BlockType, node sink.NodeID) {
	s.ctrls = append(s.ctrls, frame{
		kind:             kind,
		blockType:        bt,
		height:           len(s.opds),
		node:             node,
		intConstStart:    len(s.intConsts),
		branchTableStart: len(s.branchTables),
		profileStart:     s.profileCount,
	})
}

// popBlock checks the top frame's result against its declared block type,
// verifies the operand stack returned exactly to the frame's entry depth
// plus that result, and pops the frame.
func (s *state) popBlock() (frame, error) {
	top := s.top()
	if rt, ok := top.blockType.ToValueType(); ok {
		if err := s.popExpect(rt); err != nil {
			return frame{}, err
		}
	}
	if len(s.opds) != top.height {
		return frame{}, ErrUnbalancedStack
	}
	f := *top
	s.ctrls = s.ctrls[:len(s.ctrls)-1]
	return f, nil
}

// setUnreachable discards everything the current frame pushed and marks it
// stack-polymorphic: further pops synthesize Unknown instead of failing.
func (s *state) setUnreachable() {
	top := s.top()
	s.opds = s.opds[:top.height]
	top.unreachable = true
}

// label returns the depth-th-from-top control frame (0 = innermost).
func (s *state) label(depth uint32) (*frame, error) {
	if depth >= uint32(len(s.ctrls)) {
		return nil, InvalidLabelError(depth)
	}
	return &s.ctrls[len(s.ctrls)-1-int(depth)], nil
}

// popLabelArgs pops the continuation value a branch to f must supply (none
// for a loop target, one value of f's declared block type otherwise).
func (s *state) popLabelArgs(f *frame) error {
	if f.labelArity() == 0 {
		return nil
	}
	rt, _ := f.blockType.ToValueType()
	return s.popExpect(rt)
}

// pushLabelArgs re-pushes what popLabelArgs popped; used by br_if, which
// only conditionally leaves the current block, so execution may continue
// with the continuation value still on the stack.
func (s *state) pushLabelArgs(f *frame) {
	if f.labelArity() == 0 {
		return
	}
	rt, _ := f.blockType.ToValueType()
	s.push(rt)
}
