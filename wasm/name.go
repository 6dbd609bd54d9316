// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasm

import (
	"github.com/dufoli/graal/symtab"
	"github.com/dufoli/graal/wasm/cursor"
)

// NameSection holds the debug-only names recovered from the custom "name"
// section: the module's own name, and per-index function and local names.
// A malformed name section never invalidates the module (§4.7/§9); the
// caller simply gets a nil NameSection.
type NameSection struct {
	Module    string
	Functions map[uint32]string
	Locals    map[uint32]map[uint32]string
}

const (
	nameSubsectionModule   = 0
	nameSubsectionFunction = 1
	nameSubsectionLocal    = 2
)

// readNameSection parses payload leniently: subsections are expected in
// ascending id order with no duplicates, but an unknown id is skipped
// rather than rejected, since future name subsections must stay
// forward-compatible. Any genuine parse error drops the whole section.
func readNameSection(payload []byte, st symtab.SymbolTable) (*NameSection, error) {
	c := cursor.New(payload)
	ns := &NameSection{Functions: map[uint32]string{}, Locals: map[uint32]map[uint32]string{}}

	lastID := -1
	for !c.EOF() {
		id, err := c.ReadU8()
		if err != nil {
			return nil, err
		}
		size, err := c.ReadLEBUint32()
		if err != nil {
			return nil, err
		}
		body, err := c.ReadBytes(int(size))
		if err != nil {
			return nil, err
		}
		if int(id) <= lastID {
			continue // out-of-order or duplicate subsection id: skip
		}
		lastID = int(id)

		sc := cursor.New(body)
		switch id {
		case nameSubsectionModule:
			name, err := sc.ReadStringLEB()
			if err != nil {
				return nil, err
			}
			ns.Module = name

		case nameSubsectionFunction:
			count, err := sc.ReadLEBUint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < count; i++ {
				idx, err := sc.ReadLEBUint32()
				if err != nil {
					return nil, err
				}
				name, err := sc.ReadStringLEB()
				if err != nil {
					return nil, err
				}
				if int(idx) < st.FunctionCount() {
					ns.Functions[idx] = name
				}
			}

		case nameSubsectionLocal:
			count, err := sc.ReadLEBUint32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < count; i++ {
				fnIdx, err := sc.ReadLEBUint32()
				if err != nil {
					return nil, err
				}
				localCount, err := sc.ReadLEBUint32()
				if err != nil {
					return nil, err
				}
				locals := make(map[uint32]string, localCount)
				for j := uint32(0); j < localCount; j++ {
					localIdx, err := sc.ReadLEBUint32()
					if err != nil {
						return nil, err
					}
					name, err := sc.ReadStringLEB()
					if err != nil {
						return nil, err
					}
					locals[localIdx] = name
				}
				if int(fnIdx) < st.FunctionCount() {
					ns.Locals[fnIdx] = locals
				}
			}

		default:
			// unknown subsection id: skip, already consumed via ReadBytes above
		}
	}

	return ns, nil
}
