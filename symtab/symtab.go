// Package symtab defines the SymbolTable collaborator: the mutable registry
// of types, functions, tables, memories, globals and exports that the
// section decoder consults for index lookups and mutates as it reads each
// section. wasm.Module is the reference implementation; a downstream
// executor may supply its own.
package symtab

import "github.com/dufoli/graal/wasm/types"

// SymbolTable is the external collaborator described in SPEC_FULL §7. All
// index arguments and return values are into the relevant index space
// (function, table, memory, global), which is import-first: imported
// entries occupy the low indices, declared entries follow.
type SymbolTable interface {
	AllocateFunctionType(paramArity, resultArity int) int
	RegisterFunctionTypeParameterType(typeIdx, paramIdx int, t types.ValueType)
	RegisterFunctionTypeReturnType(typeIdx, resultIdx int, t types.ValueType)

	ImportFunction(module, field string, typeIdx uint32) int
	ImportTable(module, field string, t types.Table) int
	ImportMemory(module, field string, m types.Memory) int
	ImportGlobal(module, field string, g types.GlobalVar) int

	DeclareFunction(typeIdx uint32) int
	AllocateTable(t types.Table) int
	AllocateMemory(m types.Memory) int
	DeclareGlobal(g types.GlobalVar, init []byte) int

	ExportFunction(name string, idx uint32) error
	ExportTable(name string, idx uint32) error
	ExportMemory(name string, idx uint32) error
	ExportGlobal(name string, idx uint32) error
	SetStartFunction(idx uint32) error

	TypeCount() int
	TypeSig(idx int) (*types.FunctionSig, bool)
	FunctionCount() int
	FunctionSig(idx int) (*types.FunctionSig, bool)
	GlobalType(idx int) (types.GlobalVar, bool)
	HasTable() bool
	HasMemory() bool
	TableLimits() (types.ResizableLimits, bool)
	MemoryLimits() (types.ResizableLimits, bool)
}
