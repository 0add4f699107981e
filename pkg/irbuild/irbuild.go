// Package irbuild is the seam between ARM lowering code and the external
// SSA IR module builder. Apart from pkg/alias, which builds its tag nodes
// with github.com/llir/llvm/ir/metadata, it is the only package in this
// module that imports github.com/llir/llvm directly; everything else
// programs against the thin surface exposed here, the way bin2ll's
// disassembler type keeps every llir/llvm call behind its own methods.
package irbuild

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Common scalar types used throughout the translator.
var (
	I1  = types.I1
	I32 = types.I32
	I64 = types.I64
)

// Type aliases re-exporting the llir/llvm surface the rest of this module
// needs, so armshift/machine/instr/block/xlate program against irbuild's
// names without importing github.com/llir/llvm themselves.
type (
	Value    = value.Value
	Block    = ir.Block
	Func     = ir.Func
	Param    = ir.Param
	Module   = ir.Module
	Type     = types.Type
	IntType  = types.IntType
	Metadata = metadata.Metadata
	Case     = ir.Case
	ConstInt = constant.Int
)

// Condition codes for NewICmp, re-exported from the ir package.
const (
	IntEQ  = ir.IntEQ
	IntNE  = ir.IntNE
	IntUGT = ir.IntUGT
	IntUGE = ir.IntUGE
	IntULT = ir.IntULT
	IntULE = ir.IntULE
	IntSGT = ir.IntSGT
	IntSGE = ir.IntSGE
	IntSLT = ir.IntSLT
	IntSLE = ir.IntSLE
)

// NewParam is a thin re-export of ir.NewParam.
func NewParam(name string, typ Type) *Param { return ir.NewParam(name, typ) }

// Builder owns the IR module under construction and the handful of
// external globals (register file, flag file, memory accessors) every
// emitted function references.
type Builder struct {
	Module *ir.Module

	registers        value.Value
	flags            value.Value
	memRead32        *ir.Func
	memWrite32       *ir.Func
	verify           *ir.Global
	instructionCount *ir.Global

	dispatchFuncPtrType *types.PointerType
	blockAddrStruct     *types.StructType
	blockAddrArrType    *types.ArrayType
	blockAddrArray      *ir.Global
}

// NewBuilder creates an empty module and declares the external register
// file, flag file and memory-access functions the machine-state facade
// reads and writes. These mirror MachineState.cpp's external globals
// exactly: Registers and Flags are themselves pointer-typed globals
// (Registers: i32*, Flags: i1* indexed in multiples of 4), declared with
// a null initializer and external linkage because the runtime shim that
// actually backs them at link time is outside this translator's scope.
// It also declares the Verify and InstructionCount globals spec.md §3's
// Module type owns, with default linkage so the runtime shim can resolve
// them.
func NewBuilder(name string, verify bool) *Builder {
	m := ir.NewModule()
	m.SourceFilename = name

	i32ptr := types.NewPointer(I32)
	regs := m.NewGlobal("Registers", i32ptr)
	regs.Linkage = ir.LinkageExternal
	regs.Init = constant.NewNull(i32ptr)

	i1ptr := types.NewPointer(I1)
	flags := m.NewGlobal("Flags", i1ptr)
	flags.Linkage = ir.LinkageExternal
	flags.Init = constant.NewNull(i1ptr)

	read := m.NewFunc("Memory_Read32", I32, ir.NewParam("addr", I32))
	read.Linkage = ir.LinkageExternal

	write := m.NewFunc("Memory_Write32", types.Void, ir.NewParam("addr", I32), ir.NewParam("value", I32))
	write.Linkage = ir.LinkageExternal

	verifyGlobal := m.NewGlobal("Verify", I1)
	verifyGlobal.Init = ConstI1(verify)
	verifyGlobal.Immutable = true

	countGlobal := m.NewGlobal("InstructionCount", I32)
	countGlobal.Init = ConstI32(0)

	dispatchFuncPtrType := types.NewPointer(types.NewFunc(types.Void, I32))
	blockAddrStruct := types.NewStruct(dispatchFuncPtrType, I32)

	return &Builder{
		Module:              m,
		registers:           regs,
		flags:               flags,
		memRead32:           read,
		memWrite32:          write,
		verify:              verifyGlobal,
		instructionCount:    countGlobal,
		dispatchFuncPtrType: dispatchFuncPtrType,
		blockAddrStruct:     blockAddrStruct,
	}
}

// Registers returns the external register-file global.
func (b *Builder) Registers() value.Value { return b.registers }

// Flags returns the external flag-file global.
func (b *Builder) Flags() value.Value { return b.flags }

// MemRead32 returns the external Memory::Read32 function.
func (b *Builder) MemRead32() *ir.Func { return b.memRead32 }

// MemWrite32 returns the external Memory::Write32 function.
func (b *Builder) MemWrite32() *ir.Func { return b.memWrite32 }

// Verify reports the value of the constant Verify global: true when the
// module was built in verify mode, where every translated block returns to the
// runtime shim immediately after its effects instead of chaining.
func (b *Builder) Verify() bool {
	c, ok := b.verify.Init.(*constant.Int)
	return ok && !c.IsZero()
}

// InstructionCount returns the mutable InstructionCount global every
// block's code generation increments once per lowered instruction.
func (b *Builder) InstructionCount() value.Value { return b.instructionCount }

// NewDispatchFunc declares a color dispatch function with the signature
// fn(index i32) void, the shape spec.md §4.8 requires for every color.
func (b *Builder) NewDispatchFunc(name string) *ir.Func {
	f := b.Module.NewFunc(name, types.Void, ir.NewParam("index", I32))
	return f
}

// NewVoidFunc declares a void function with the given parameters, the
// shape used for Run (CanRun returns i1 and is declared with NewFunc).
func (b *Builder) NewVoidFunc(name string, params ...*ir.Param) *ir.Func {
	return b.Module.NewFunc(name, types.Void, params...)
}

// NewFunc declares a function with an arbitrary return type, the shape
// GetBlockAddress needs (it returns a BlockAddress struct, not void).
func (b *Builder) NewFunc(name string, retType types.Type, params ...*ir.Param) *ir.Func {
	return b.Module.NewFunc(name, retType, params...)
}

// BlockAddressType returns the BlockAddress struct type spec.md §3/§4.9
// describes: a dispatch function pointer paired with the block's index
// within that function's switch.
func (b *Builder) BlockAddressType() Type { return b.blockAddrStruct }

// DispatchFuncPtrType returns the pointer-to-function type every color's
// dispatch function shares: fn(index i32) void.
func (b *Builder) DispatchFuncPtrType() Type { return b.dispatchFuncPtrType }

// ConstNullFuncPtr returns the null dispatch-function-pointer constant,
// used both as the block-address array's sentinel value and as the
// comparand CanRun/Run test against.
func (b *Builder) ConstNullFuncPtr() Value { return constant.NewNull(b.dispatchFuncPtrType) }

// BlockAddressSentinel returns the constant `(null, 0)` BlockAddress
// value spec.md §3 names as "no translated block at this PC".
func (b *Builder) BlockAddressSentinel() Value {
	return constant.NewStruct(b.blockAddrStruct, b.ConstNullFuncPtr().(constant.Constant), ConstI32(0))
}

// NewBlockAddressArray declares the module's BlockAddressArray global:
// a dense array of length BlockAddress structs, every slot initialized
// to the sentinel, ready for SetBlockAddress to fill in during phase 7
// of the module builder.
func (b *Builder) NewBlockAddressArray(length int) {
	arrType := types.NewArray(uint64(length), b.blockAddrStruct)
	elems := make([]constant.Constant, length)
	sentinel := b.BlockAddressSentinel().(constant.Constant)
	for i := range elems {
		elems[i] = sentinel
	}
	g := b.Module.NewGlobal("BlockAddressArray", arrType)
	g.Init = constant.NewArray(arrType, elems...)

	b.blockAddrArrType = arrType
	b.blockAddrArray = g
}

// SetBlockAddress writes `(fn, index)` into slot i of the block-address
// array's initializer, the per-block write spec.md §4.9 phase 7
// describes.
func (b *Builder) SetBlockAddress(i int, fn *ir.Func, index int) {
	arrInit := b.blockAddrArray.Init.(*constant.Array)
	fnPtr := constant.NewBitCast(fn, b.dispatchFuncPtrType)
	arrInit.Elems[i] = constant.NewStruct(b.blockAddrStruct, fnPtr, ConstI32(int64(index)))
}

// BlockAddressArrayPtr computes a pointer to element index of the
// block-address array, the GEP GetBlockAddress's lowering performs
// before loading the tagged-const BlockAddress value out of it.
func (b *Builder) BlockAddressArrayPtr(blk *Block, index Value) Value {
	return blk.NewGetElementPtr(b.blockAddrArrType, b.blockAddrArray, ConstI32(0), index)
}

// ConstI32 returns a constant 32-bit integer value.
func ConstI32(v int64) *constant.Int { return constant.NewInt(I32, v) }

// ConstI1 returns a constant 1-bit boolean value.
func ConstI1(v bool) *constant.Int {
	if v {
		return constant.NewInt(I1, 1)
	}
	return constant.NewInt(I1, 0)
}

// ConstAddr is a convenience alias for ConstI32 used when the value is
// known to represent an ARM address or PC rather than a plain integer.
func ConstAddr(addr uint32) *constant.Int { return constant.NewInt(I32, int64(int32(addr))) }

// ConstI64 returns a constant 64-bit integer value, used by the long
// multiply forms that widen their operands before multiplying.
func ConstI64(v int64) *constant.Int { return constant.NewInt(I64, v) }

// GEPElem computes a pointer to element index past base, where base is
// itself a pointer value (not a pointer to an array) — the single-index
// GEP pattern MachineState::GetRegisterPtr uses via
// CreateConstInBoundsGEP1_32 over the loaded Registers/Flags pointer.
func GEPElem(block *ir.Block, base value.Value, elemType types.Type, index int64) value.Value {
	idx := constant.NewInt(I32, index)
	return block.NewGetElementPtr(elemType, base, idx)
}

// NewBlock creates a basic block detached from any function. Instruction
// blocks are built this way because which dispatch function eventually
// owns a given block is only decided during coloring, long after the
// block's code has been generated — mirroring InstructionBlock::
// GenerateEntryBlock, which calls BasicBlock::Create with no parent
// function and only attaches it later in BlockColors::GenerateFunctions.
func NewBlock(name string) *Block { return ir.NewBlock(name) }

// AppendBlock attaches a previously detached block to f.
func AppendBlock(f *Func, b *Block) {
	f.Blocks = append(f.Blocks, b)
}

// NewCase builds one switch-statement case for NewDispatchFunc's body.
func NewCase(x *ConstInt, target *Block) *Case { return ir.NewCase(x, target) }

// Terminated reports whether b's last instruction is a terminator, the
// Go equivalent of checking IRBuilder::GetInsertBlock()->getTerminator().
func Terminated(b *Block) bool { return b.Term != nil }

// WriteTo serializes the built module as LLVM IR text. This stands in
// for the external toolchain's object-emission step (spec.md §4.9 phase
// 8): the opaque IR builder/optimizer/emitter collaborator is outside
// this translator's scope, so the "object" this repo produces is the
// module text the real toolchain would otherwise turn into a
// relocatable file.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprint(w, b.Module)
	return int64(n), err
}

// Successors returns the blocks b's terminator can transfer control to,
// or nil if b is not yet terminated. Used by the block-coloring pass to
// walk a color's basic blocks into their owning dispatch function, the
// same way BlockColors::AddBasicBlocksToFunction walks a terminator's
// getSuccessor(i) list.
func Successors(b *Block) []*Block {
	if b.Term == nil {
		return nil
	}
	return b.Term.Succs()
}
