// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasm

import (
	"context"

	"github.com/dufoli/graal/async"
	"github.com/dufoli/graal/config"
	"github.com/dufoli/graal/linker"
	"github.com/dufoli/graal/sink"
	"github.com/dufoli/graal/symtab"
	"github.com/dufoli/graal/validate"
	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/types"
)

// SectionID is a 1-byte code identifying a section, custom or known.
type SectionID uint8

const (
	SectionIDCustom   SectionID = 0
	SectionIDType     SectionID = 1
	SectionIDImport   SectionID = 2
	SectionIDFunction SectionID = 3
	SectionIDTable    SectionID = 4
	SectionIDMemory   SectionID = 5
	SectionIDGlobal   SectionID = 6
	SectionIDExport   SectionID = 7
	SectionIDStart    SectionID = 8
	SectionIDElement  SectionID = 9
	SectionIDCode     SectionID = 10
	SectionIDData     SectionID = 11
)

// wasmPageSize is the fixed linear-memory page granularity the format
// defines limits in (§4.5.4 of the WebAssembly spec).
const wasmPageSize = 65536

func (s SectionID) String() string {
	names := [...]string{"custom", "type", "import", "function", "table", "memory",
		"global", "export", "start", "element", "code", "data"}
	if int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// sectionDecoder drives the top-level section loop: magic/version have
// already been consumed from c by the time run is called.
type sectionDecoder struct {
	c      *cursor.ByteCursor
	st     symtab.SymbolTable
	lq     linker.LinkerQueue
	ns     sink.NodeSink
	limits ModuleLimits

	ctx        context.Context
	cfg        config.ConfigProvider
	moduleSize uint32

	custom []CustomSection
	names  *NameSection

	// funcBodyCode holds the raw code-section body bytes per declared
	// function, by declaration order, so run can cross-check against the
	// function section's count (Invariant: FunctionsCodeInconsistentLengths).
	funcBodyCode [][]byte
	funcCodeIdx  []uint32 // type index of each declared function, mirrors m.Functions
}

func (d *sectionDecoder) run() error {
	lastNonCustom := SectionID(0)
	seenAny := false

	for !d.c.EOF() {
		id, err := d.c.ReadU8()
		if err != nil {
			return classify(err)
		}
		size, err := d.c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		start := d.c.Offset()
		sid := SectionID(id)

		if sid != SectionIDCustom {
			if seenAny && sid <= lastNonCustom {
				if sid == lastNonCustom {
					return Fail(DuplicatedSection, "section %s appears more than once", sid)
				}
				return Fail(InvalidSectionOrder, "section %s appears after section %s", sid, lastNonCustom)
			}
			lastNonCustom = sid
			seenAny = true
		}
		if sid > SectionIDData {
			return Fail(MalformedSectionId, "unknown section id %d", id)
		}

		body, err := d.c.ReadBytes(int(size))
		if err != nil {
			return classify(err)
		}
		bc := cursor.New(body)

		switch sid {
		case SectionIDCustom:
			err = d.readCustom(bc)
		case SectionIDType:
			err = d.readTypes(bc)
		case SectionIDImport:
			err = d.readImports(bc)
		case SectionIDFunction:
			err = d.readFunctions(bc)
		case SectionIDTable:
			err = d.readTable(bc)
		case SectionIDMemory:
			err = d.readMemory(bc)
		case SectionIDGlobal:
			err = d.readGlobals(bc)
		case SectionIDExport:
			err = d.readExports(bc)
		case SectionIDStart:
			err = d.readStart(bc)
		case SectionIDElement:
			err = d.readElements(bc)
		case SectionIDCode:
			err = d.readCode(bc)
		case SectionIDData:
			err = d.readData(bc)
		}
		if err != nil {
			return err
		}
		if bc.Remaining() != 0 {
			return Fail(SectionSizeMismatch, "section %s declared %d bytes, consumed %d", sid, size, bc.Offset())
		}
		_ = start
	}

	if len(d.funcCodeIdx) != len(d.funcBodyCode) {
		return Fail(FunctionsCodeInconsistentLengths, "function section declares %d functions, code section has %d bodies", len(d.funcCodeIdx), len(d.funcBodyCode))
	}

	if m, ok := d.st.(*Module); ok {
		m.Custom = d.custom
		m.Names = d.names
	}
	return nil
}

func (d *sectionDecoder) readTypes(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxTypes > 0 && count > d.limits.MaxTypes {
		return Fail(LengthOutOfBounds, "type section declares %d entries, limit %d", count, d.limits.MaxTypes)
	}
	for i := uint32(0); i < count; i++ {
		sig, err := types.ReadFunctionSig(c)
		if err != nil {
			return classify(err)
		}
		typeIdx := d.st.AllocateFunctionType(len(sig.ParamTypes), len(sig.ReturnTypes))
		for j, p := range sig.ParamTypes {
			d.st.RegisterFunctionTypeParameterType(typeIdx, j, p)
		}
		for j, r := range sig.ReturnTypes {
			d.st.RegisterFunctionTypeReturnType(typeIdx, j, r)
		}
	}
	return nil
}

func (d *sectionDecoder) readImports(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxImports > 0 && count > d.limits.MaxImports {
		return Fail(LengthOutOfBounds, "import section declares %d entries, limit %d", count, d.limits.MaxImports)
	}
	for i := uint32(0); i < count; i++ {
		module, err := c.ReadStringLEB()
		if err != nil {
			return classify(err)
		}
		field, err := c.ReadStringLEB()
		if err != nil {
			return classify(err)
		}
		kind, err := types.ReadExternal(c)
		if err != nil {
			return classify(err)
		}
		switch kind {
		case types.ExternalFunction:
			typeIdx, err := c.ReadLEBUint32()
			if err != nil {
				return classify(err)
			}
			if int(typeIdx) >= d.st.TypeCount() {
				return Fail(UnknownType, "import %s.%s: type index %d out of bounds", module, field, typeIdx)
			}
			d.st.ImportFunction(module, field, typeIdx)
		case types.ExternalTable:
			t, err := types.ReadTable(c)
			if err != nil {
				return classify(err)
			}
			if d.st.HasTable() {
				return Fail(LengthOutOfBounds, "import %s.%s: module already declares a table", module, field)
			}
			d.st.ImportTable(module, field, t)
		case types.ExternalMemory:
			mm, err := types.ReadMemory(c)
			if err != nil {
				return classify(err)
			}
			if d.st.HasMemory() {
				return Fail(LengthOutOfBounds, "import %s.%s: module already declares a memory", module, field)
			}
			d.st.ImportMemory(module, field, mm)
		case types.ExternalGlobal:
			g, err := types.ReadGlobalVar(c)
			if err != nil {
				return classify(err)
			}
			d.st.ImportGlobal(module, field, g)
		}
	}
	return nil
}

func (d *sectionDecoder) readFunctions(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxFunctions > 0 && count > d.limits.MaxFunctions {
		return Fail(LengthOutOfBounds, "function section declares %d entries, limit %d", count, d.limits.MaxFunctions)
	}
	for i := uint32(0); i < count; i++ {
		typeIdx, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		if int(typeIdx) >= d.st.TypeCount() {
			return Fail(UnknownType, "function %d: type index %d out of bounds", i, typeIdx)
		}
		d.st.DeclareFunction(typeIdx)
		d.funcCodeIdx = append(d.funcCodeIdx, typeIdx)
	}
	return nil
}

func (d *sectionDecoder) readTable(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if count > 1 {
		return Fail(LengthOutOfBounds, "at most one table is allowed, got %d", count)
	}
	if count == 1 {
		if d.st.HasTable() {
			return Fail(LengthOutOfBounds, "module already declares a table")
		}
		t, err := types.ReadTable(c)
		if err != nil {
			return classify(err)
		}
		d.st.AllocateTable(t)
	}
	return nil
}

func (d *sectionDecoder) readMemory(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if count > 1 {
		return Fail(LengthOutOfBounds, "at most one memory is allowed, got %d", count)
	}
	if count == 1 {
		if d.st.HasMemory() {
			return Fail(LengthOutOfBounds, "module already declares a memory")
		}
		mm, err := types.ReadMemory(c)
		if err != nil {
			return classify(err)
		}
		d.st.AllocateMemory(mm)
	}
	return nil
}

func (d *sectionDecoder) readGlobals(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxGlobals > 0 && count > d.limits.MaxGlobals {
		return Fail(LengthOutOfBounds, "global section declares %d entries, limit %d", count, d.limits.MaxGlobals)
	}
	for i := uint32(0); i < count; i++ {
		g, err := types.ReadGlobalVar(c)
		if err != nil {
			return classify(err)
		}
		init, err := readConstExpr(c, g.Type, d.st)
		if err != nil {
			return err
		}
		idx := d.st.DeclareGlobal(g, init)
		globalIdx, globalType := idx, g.Type
		d.lq.Enqueue(linker.InitGlobal, func() error {
			if _, ok := d.st.GlobalType(globalIdx); !ok {
				return Fail(UnknownGlobal, "global %d vanished from the index space before linking", globalIdx)
			}
			log.WithField("global", globalIdx).WithField("type", globalType).Debug("deferred global init queued")
			return nil
		})
	}
	return nil
}

func (d *sectionDecoder) readExports(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxExports > 0 && count > d.limits.MaxExports {
		return Fail(LengthOutOfBounds, "export section declares %d entries, limit %d", count, d.limits.MaxExports)
	}
	for i := uint32(0); i < count; i++ {
		name, err := c.ReadStringLEB()
		if err != nil {
			return classify(err)
		}
		kind, err := types.ReadExternal(c)
		if err != nil {
			return classify(err)
		}
		idx, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		switch kind {
		case types.ExternalFunction:
			err = d.st.ExportFunction(name, idx)
		case types.ExternalTable:
			err = d.st.ExportTable(name, idx)
		case types.ExternalMemory:
			err = d.st.ExportMemory(name, idx)
		case types.ExternalGlobal:
			err = d.st.ExportGlobal(name, idx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *sectionDecoder) readStart(c *cursor.ByteCursor) error {
	idx, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	return d.st.SetStartFunction(idx)
}

func (d *sectionDecoder) readElements(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxElementSegments > 0 && count > d.limits.MaxElementSegments {
		return Fail(LengthOutOfBounds, "element section declares %d segments, limit %d", count, d.limits.MaxElementSegments)
	}
	for i := uint32(0); i < count; i++ {
		tableIdx, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		if tableIdx != 0 {
			return Fail(UnknownTable, "element segment %d: table index must be 0, got %d", i, tableIdx)
		}
		if !d.st.HasTable() {
			return Fail(UnknownTable, "element segment %d: module declares no table", i)
		}
		offset, err := readConstExpr(c, types.I32, d.st)
		if err != nil {
			return err
		}
		n, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		funcs := make([]uint32, n)
		for j := range funcs {
			if funcs[j], err = c.ReadLEBUint32(); err != nil {
				return classify(err)
			}
			if int(funcs[j]) >= d.st.FunctionCount() {
				return Fail(LengthOutOfBounds, "element segment %d: function index %d out of bounds", i, funcs[j])
			}
		}
		segment, segmentFuncs := i, append([]uint32(nil), funcs...)
		d.lq.Enqueue(linker.WriteElement, func() error {
			for _, fn := range segmentFuncs {
				if int(fn) >= d.st.FunctionCount() {
					return Fail(LengthOutOfBounds, "element segment %d: function index %d out of bounds at link time", segment, fn)
				}
			}
			return nil
		})
		if m, ok := d.st.(*Module); ok {
			m.Elements = append(m.Elements, ElementSegment{TableIndex: tableIdx, Offset: offset, Funcs: funcs})
		}
	}
	return nil
}

func (d *sectionDecoder) readCode(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	for i := uint32(0); i < count; i++ {
		bodySize, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		if d.limits.MaxFunctionBodySize > 0 && bodySize > d.limits.MaxFunctionBodySize {
			return Fail(LengthOutOfBounds, "function body %d: size %d exceeds limit %d", i, bodySize, d.limits.MaxFunctionBodySize)
		}
		body, err := c.ReadBytes(int(bodySize))
		if err != nil {
			return classify(err)
		}
		d.funcBodyCode = append(d.funcBodyCode, body)
	}

	if len(d.funcCodeIdx) != len(d.funcBodyCode) {
		return Fail(FunctionsCodeInconsistentLengths, "function section declares %d functions, code section has %d bodies", len(d.funcCodeIdx), len(d.funcBodyCode))
	}

	m, _ := d.st.(*Module)
	importedFuncs := d.st.FunctionCount() - len(d.funcCodeIdx)

	validateAll := func() error {
		for i, body := range d.funcBodyCode {
			funcIdx := importedFuncs + i
			sig, _ := d.st.FunctionSig(funcIdx)
			res, err := validate.DecodeFunctionBody(body, funcIdx, sig, d.st, d.ns, d.lq, validate.Limits{MaxLocals: d.limits.MaxLocalsPerFunc})
			if err != nil {
				return err
			}
			if m != nil {
				m.Code[i] = &CodeEntry{
					Locals:        res.Locals,
					Root:          res.Root,
					MaxStackDepth: res.MaxStackDepth,
					IntConsts:     res.IntConsts,
					BranchTables:  res.BranchTables,
					ProfileCount:  res.ProfileCount,
				}
			}
		}
		return nil
	}

	return async.Decode(d.ctx, d.cfg, d.moduleSize, validateAll)
}

func (d *sectionDecoder) readData(c *cursor.ByteCursor) error {
	count, err := c.ReadLEBUint32()
	if err != nil {
		return classify(err)
	}
	if d.limits.MaxDataSegments > 0 && count > d.limits.MaxDataSegments {
		return Fail(LengthOutOfBounds, "data section declares %d segments, limit %d", count, d.limits.MaxDataSegments)
	}
	for i := uint32(0); i < count; i++ {
		memIdx, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		if memIdx != 0 {
			return Fail(UnknownMemory, "data segment %d: memory index must be 0, got %d", i, memIdx)
		}
		if !d.st.HasMemory() {
			return Fail(UnknownMemory, "data segment %d: module declares no memory", i)
		}
		offset, err := readConstExpr(c, types.I32, d.st)
		if err != nil {
			return err
		}
		n, err := c.ReadLEBUint32()
		if err != nil {
			return classify(err)
		}
		data, err := c.ReadBytes(int(n))
		if err != nil {
			return classify(err)
		}
		segment, segmentSize := i, len(data)
		d.lq.Enqueue(linker.WriteData, func() error {
			if !d.st.HasMemory() {
				return Fail(UnknownMemory, "data segment %d: memory vanished before linking", segment)
			}
			if limits, ok := d.st.MemoryLimits(); ok && limits.Initial > 0 {
				maxBytes := uint64(limits.Initial) * wasmPageSize
				if uint64(segmentSize) > maxBytes {
					return Fail(DataSegmentDoesNotFit, "data segment %d: %d bytes exceeds initial memory of %d bytes", segment, segmentSize, maxBytes)
				}
			}
			return nil
		})
		if m, ok := d.st.(*Module); ok {
			m.Data = append(m.Data, DataSegment{MemIndex: memIdx, Offset: offset, Data: data})
		}
	}
	return nil
}

func (d *sectionDecoder) readCustom(c *cursor.ByteCursor) error {
	name, err := c.ReadStringLEB()
	if err != nil {
		return classify(err)
	}
	payload := c.Bytes(c.Offset())
	if _, err := c.ReadBytes(c.Remaining()); err != nil {
		return classify(err)
	}
	d.custom = append(d.custom, CustomSection{Name: name, Bytes: payload})
	if name == "name" {
		// Per §4.7/§9: malformed debug metadata must never invalidate an
		// otherwise-valid module.
		if ns, err := readNameSection(payload, d.st); err == nil {
			d.names = ns
		}
	}
	return nil
}
