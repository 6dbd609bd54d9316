// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wasm decodes and validates a WebAssembly 1.0 (MVP) binary module.
// Module is the default SymbolTable: its Decode/DecodeModule entry points
// drive the section loop, delegate function bodies to the validate
// package's abstract interpreter, and hand block-tree construction to a
// sink.NodeSink and deferred writes to a linker.LinkerQueue.
package wasm

import (
	"context"

	"github.com/dufoli/graal/config"
	"github.com/dufoli/graal/internal/xlog"
	"github.com/dufoli/graal/linker"
	"github.com/dufoli/graal/sink"
	"github.com/dufoli/graal/source"
	"github.com/dufoli/graal/symtab"
	"github.com/dufoli/graal/wasm/cursor"
	"github.com/dufoli/graal/wasm/types"
)

// Magic and Version are the two fixed 4-byte fields every module opens with.
const (
	Magic   uint32 = 0x6d736100
	Version uint32 = 0x1
)

// ImportEntry records one entry of the import section, already classified
// by kind; only the field matching Kind is populated.
type ImportEntry struct {
	Module, Field string
	Kind          types.External

	FuncTypeIdx uint32
	TableType   types.Table
	MemoryType  types.Memory
	GlobalType  types.GlobalVar
}

// GlobalEntry is a declared (non-imported) global: its type plus the raw
// bytes of its constant-expression initializer, which reset.Pass evaluates
// after decode (the InitGlobal LinkerQueue action only checks that the
// global is still in the index space).
type GlobalEntry struct {
	Type types.GlobalVar
	Init []byte
}

// ExportEntry is one entry of the export section.
type ExportEntry struct {
	Name  string
	Kind  types.External
	Index uint32
}

// ElementSegment is one entry of the element section: a run of function
// indices to be written into the table starting at a constant-expression
// offset.
type ElementSegment struct {
	TableIndex uint32
	Offset     []byte
	Funcs      []uint32
}

// DataSegment is one entry of the data section: a byte run to be written
// into linear memory starting at a constant-expression offset.
type DataSegment struct {
	MemIndex uint32
	Offset   []byte
	Data     []byte
}

// CustomSection is a (name, bytes) pair kept verbatim; the "name" section
// is additionally parsed into Names.
type CustomSection struct {
	Name  string
	Bytes []byte
}

// CodeEntry is the validated shape of one function body: its full local
// vector (arguments followed by declared locals), the root of its block
// tree in the shared NodeSink, the high-water operand-stack mark computed
// while validating it, and the three side tables an executor consumes to
// locate each block's branch/constant data (each sink.Node records the
// start offset of its own slice into these via Node.Extents).
type CodeEntry struct {
	Locals        []types.ValueType
	Root          sink.NodeID
	MaxStackDepth int

	IntConsts    []int32
	BranchTables [][]int32
	ProfileCount int
}

// ModuleLimits are the hard resource ceilings enforced during decode; a
// breach aborts the parse. A zero field disables that ceiling, so callers
// typically start from DefaultLimits() and override a handful of fields.
// MaxTableEntries and MaxMemoryPages are not checked by Decode; memory
// limits are capped at types.MaxMemoryPages regardless.
type ModuleLimits struct {
	MaxFunctions        uint32
	MaxImports          uint32
	MaxExports          uint32
	MaxTypes            uint32
	MaxGlobals          uint32
	MaxLocalsPerFunc    uint32
	MaxFunctionBodySize uint32
	MaxElementSegments  uint32
	MaxDataSegments     uint32
	MaxTableEntries     uint32
	MaxMemoryPages      uint32
	MaxModuleSize       uint32
}

// DefaultLimits returns generous, MVP-sane ceilings: large enough that no
// legitimate module is rejected, small enough to bound a hostile input's
// memory footprint.
func DefaultLimits() ModuleLimits {
	return ModuleLimits{
		MaxFunctions:        1 << 20,
		MaxImports:          1 << 16,
		MaxExports:          1 << 16,
		MaxTypes:            1 << 20,
		MaxGlobals:          1 << 20,
		MaxLocalsPerFunc:    50000,
		MaxFunctionBodySize: 128 << 20,
		MaxElementSegments:  1 << 20,
		MaxDataSegments:     1 << 20,
		MaxTableEntries:     1 << 20,
		MaxMemoryPages:      types.MaxMemoryPages,
		MaxModuleSize:       1 << 30,
	}
}

// Module is the decoded, validated WebAssembly module and the default
// SymbolTable implementation: section readers mutate it directly through
// the symtab.SymbolTable interface it satisfies.
type Module struct {
	Limits ModuleLimits

	Types []types.FunctionSig

	Imports []ImportEntry

	// Functions holds the type index of every *declared* (non-imported)
	// function, in declaration order.
	Functions []uint32

	Table  *types.Table
	Memory *types.Memory

	Globals []GlobalEntry

	Exports []ExportEntry

	HasStart   bool
	StartIndex uint32

	Elements []ElementSegment
	Data     []DataSegment

	Custom []CustomSection
	Names  *NameSection

	// Code holds one CodeEntry per declared function, populated by the
	// code-section pass (validate package), indexed like Functions.
	Code []*CodeEntry

	// funcSigs and globalTypes are the combined import+declared index
	// spaces, import-first, used to answer SymbolTable's read accessors
	// and by the validator to resolve call/global.get targets.
	funcSigs    []*types.FunctionSig
	globalTypes []types.GlobalVar

	importedFuncCount   int
	importedGlobalCount int
}

// NewModule returns an empty Module ready to be decoded into.
func NewModule() *Module {
	return &Module{Limits: DefaultLimits()}
}

var log = xlog.For("wasm")

// DecodeModule is the common-case entry point: it decodes data into a
// fresh Module using the default symtab/linker/sink implementations and
// the default async/config behavior, and runs every deferred LinkerQueue
// action before returning.
func DecodeModule(data []byte) (*Module, error) {
	return DecodeModuleContext(context.Background(), data, config.NewDefaults())
}

// DecodeModuleContext is DecodeModule with explicit control over
// cancellation and the async-parsing thresholds in cfg.
func DecodeModuleContext(ctx context.Context, data []byte, cfg config.ConfigProvider) (*Module, error) {
	m := NewModule()
	lq := linker.NewQueue()
	tree := sink.NewTree()

	if err := Decode(ctx, data, m, lq, tree, m.Limits, cfg); err != nil {
		return nil, err
	}
	if err := lq.Run(); err != nil {
		return nil, err
	}
	log.WithField("functions", m.FunctionCount()).Debug("module decoded")
	return m, nil
}

// DecodeFile memory-maps path via source.LoadFile and decodes it, avoiding
// a heap copy of the module image. The returned Module remains valid only
// while the mapping is open; this keeps the mapping open for the whole
// decode and closes it before returning.
func DecodeFile(path string) (*Module, error) {
	f, err := source.LoadFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeModule(f.Bytes())
}

// Decode parses data as a WebAssembly 1.0 binary module, mutating st via
// the SymbolTable interface, recording block-tree nodes into ns and
// deferring link-time work (call resolution, element/data writes, global
// initialization) onto lq. Any failure aborts the parse, but st keeps
// whatever the sections read before the failure registered in it;
// DecodeModule and DecodeModuleContext return a nil Module in that case,
// discarding their partly filled one. cfg governs
// whether the code section is decoded on a background goroutine; ctx
// cancels that goroutine's wait.
func Decode(ctx context.Context, data []byte, st symtab.SymbolTable, lq linker.LinkerQueue, ns sink.NodeSink, limits ModuleLimits, cfg config.ConfigProvider) error {
	if limits.MaxModuleSize > 0 && uint32(len(data)) > limits.MaxModuleSize {
		return Fail(LengthOutOfBounds, "module size %d exceeds limit %d", len(data), limits.MaxModuleSize)
	}

	c := cursor.New(data)

	magic, err := c.ReadU32LE()
	if err != nil {
		return classify(err)
	}
	if magic != Magic {
		return Fail(InvalidMagicNumber, "got %#08x, want %#08x", magic, Magic)
	}

	version, err := c.ReadU32LE()
	if err != nil {
		return classify(err)
	}
	if version != Version {
		return Fail(InvalidVersionNumber, "got %d, want %d", version, Version)
	}

	dec := &sectionDecoder{
		c:          c,
		st:         st,
		lq:         lq,
		ns:         ns,
		limits:     limits,
		ctx:        ctx,
		cfg:        cfg,
		moduleSize: uint32(len(data)),
	}
	return dec.run()
}

func (m *Module) typeByIndex(idx uint32) *types.FunctionSig {
	if int(idx) >= len(m.Types) {
		return nil
	}
	return &m.Types[idx]
}

// --- symtab.SymbolTable ------------------------------------------------

func (m *Module) AllocateFunctionType(paramArity, resultArity int) int {
	idx := len(m.Types)
	m.Types = append(m.Types, types.FunctionSig{
		Form:        types.TypeFunc,
		ParamTypes:  make([]types.ValueType, paramArity),
		ReturnTypes: make([]types.ValueType, resultArity),
	})
	return idx
}

func (m *Module) RegisterFunctionTypeParameterType(typeIdx, paramIdx int, t types.ValueType) {
	m.Types[typeIdx].ParamTypes[paramIdx] = t
}

func (m *Module) RegisterFunctionTypeReturnType(typeIdx, resultIdx int, t types.ValueType) {
	m.Types[typeIdx].ReturnTypes[resultIdx] = t
}

func (m *Module) ImportFunction(module, field string, typeIdx uint32) int {
	m.Imports = append(m.Imports, ImportEntry{Module: module, Field: field, Kind: types.ExternalFunction, FuncTypeIdx: typeIdx})
	idx := len(m.funcSigs)
	m.funcSigs = append(m.funcSigs, m.typeByIndex(typeIdx))
	m.importedFuncCount++
	return idx
}

func (m *Module) ImportTable(module, field string, t types.Table) int {
	m.Imports = append(m.Imports, ImportEntry{Module: module, Field: field, Kind: types.ExternalTable, TableType: t})
	m.Table = &t
	return 0
}

func (m *Module) ImportMemory(module, field string, mm types.Memory) int {
	m.Imports = append(m.Imports, ImportEntry{Module: module, Field: field, Kind: types.ExternalMemory, MemoryType: mm})
	m.Memory = &mm
	return 0
}

func (m *Module) ImportGlobal(module, field string, g types.GlobalVar) int {
	m.Imports = append(m.Imports, ImportEntry{Module: module, Field: field, Kind: types.ExternalGlobal, GlobalType: g})
	idx := len(m.globalTypes)
	m.globalTypes = append(m.globalTypes, g)
	m.importedGlobalCount++
	return idx
}

func (m *Module) DeclareFunction(typeIdx uint32) int {
	m.Functions = append(m.Functions, typeIdx)
	idx := len(m.funcSigs)
	m.funcSigs = append(m.funcSigs, m.typeByIndex(typeIdx))
	m.Code = append(m.Code, nil)
	return idx
}

func (m *Module) AllocateTable(t types.Table) int {
	m.Table = &t
	return 0
}

func (m *Module) AllocateMemory(mm types.Memory) int {
	m.Memory = &mm
	return 0
}

func (m *Module) DeclareGlobal(g types.GlobalVar, init []byte) int {
	m.Globals = append(m.Globals, GlobalEntry{Type: g, Init: init})
	idx := len(m.globalTypes)
	m.globalTypes = append(m.globalTypes, g)
	return idx
}

func (m *Module) ExportFunction(name string, idx uint32) error {
	if int(idx) >= len(m.funcSigs) {
		return Fail(LengthOutOfBounds, "export %q: function index %d out of bounds", name, idx)
	}
	m.Exports = append(m.Exports, ExportEntry{Name: name, Kind: types.ExternalFunction, Index: idx})
	return nil
}

func (m *Module) ExportTable(name string, idx uint32) error {
	if m.Table == nil || idx != 0 {
		return Fail(UnknownTable, "export %q: no such table %d", name, idx)
	}
	m.Exports = append(m.Exports, ExportEntry{Name: name, Kind: types.ExternalTable, Index: idx})
	return nil
}

func (m *Module) ExportMemory(name string, idx uint32) error {
	if m.Memory == nil || idx != 0 {
		return Fail(UnknownMemory, "export %q: no such memory %d", name, idx)
	}
	m.Exports = append(m.Exports, ExportEntry{Name: name, Kind: types.ExternalMemory, Index: idx})
	return nil
}

func (m *Module) ExportGlobal(name string, idx uint32) error {
	if int(idx) >= len(m.globalTypes) {
		return Fail(UnknownGlobal, "export %q: global index %d out of bounds", name, idx)
	}
	m.Exports = append(m.Exports, ExportEntry{Name: name, Kind: types.ExternalGlobal, Index: idx})
	return nil
}

func (m *Module) SetStartFunction(idx uint32) error {
	if int(idx) >= len(m.funcSigs) {
		return Fail(LengthOutOfBounds, "start function index %d out of bounds", idx)
	}
	sig := m.funcSigs[idx]
	if sig != nil && (len(sig.ParamTypes) != 0 || len(sig.ReturnTypes) != 0) {
		return Fail(TypeMismatch, "start function must have signature () -> ()")
	}
	m.HasStart = true
	m.StartIndex = idx
	return nil
}

func (m *Module) TypeCount() int { return len(m.Types) }

func (m *Module) TypeSig(idx int) (*types.FunctionSig, bool) {
	if idx < 0 || idx >= len(m.Types) {
		return nil, false
	}
	return &m.Types[idx], true
}

func (m *Module) FunctionCount() int { return len(m.funcSigs) }

func (m *Module) FunctionSig(idx int) (*types.FunctionSig, bool) {
	if idx < 0 || idx >= len(m.funcSigs) {
		return nil, false
	}
	return m.funcSigs[idx], true
}

func (m *Module) GlobalType(idx int) (types.GlobalVar, bool) {
	if idx < 0 || idx >= len(m.globalTypes) {
		return types.GlobalVar{}, false
	}
	return m.globalTypes[idx], true
}

// GlobalIsImported reports whether global index idx was declared by the
// import section rather than the module's own global section; used to
// validate constant-expression global.get initializers (Invariant 5).
func (m *Module) GlobalIsImported(idx int) bool {
	return idx >= 0 && idx < m.importedGlobalCount
}

func (m *Module) HasTable() bool  { return m.Table != nil }
func (m *Module) HasMemory() bool { return m.Memory != nil }

func (m *Module) TableLimits() (types.ResizableLimits, bool) {
	if m.Table == nil {
		return types.ResizableLimits{}, false
	}
	return m.Table.Limits, true
}

func (m *Module) MemoryLimits() (types.ResizableLimits, bool) {
	if m.Memory == nil {
		return types.ResizableLimits{}, false
	}
	return m.Memory.Limits, true
}
