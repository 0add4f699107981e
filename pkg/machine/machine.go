// Package machine is the facade over guest register, flag and memory
// state: every instruction kind reads and writes ARM state exclusively
// through this package, never by emitting raw loads/stores of its own.
// It is grounded on MachineState.cpp: the register file and flag file
// are externally-linked globals indexed by GetRegisterPtr (flags at
// stride 4), ConditionPassed reproduces the exact condition-code table,
// and guest memory access goes through direct calls to the module's
// external Memory_Read32/Memory_Write32 function declarations; no
// function pointer is loaded from a global.
package machine

import (
	"github.com/bassosimone/armxlate/pkg/alias"
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

const flagStride = 4

// State binds the machine-state facade to one module's register/flag
// globals and alias-tag set.
type State struct {
	bld  *irbuild.Builder
	tags *alias.Tags
}

// New creates a machine-state facade over the given builder's globals.
func New(bld *irbuild.Builder, tags *alias.Tags) *State {
	return &State{bld: bld, tags: tags}
}

// getRegisterPtr implements MachineState::GetRegisterPtr: load the base
// pointer out of the appropriate external global (tagged as a constant
// load, since the global itself never changes once the runtime shim has
// initialized it), then index into it — GPRs at register index, flags
// at 4x the flag index. It also returns the element type (i32 for GPRs,
// i1 for flags) callers need for the value load/store that follows.
func (s *State) getRegisterPtr(b *irbuild.Block, reg armreg.Register) (irbuild.Value, irbuild.Type) {
	var global irbuild.Value
	var index int64
	var elemType irbuild.Type
	if reg.IsGPR() {
		global = s.bld.Registers()
		index = int64(reg.GPRIndex())
		elemType = irbuild.I32
	} else {
		global = s.bld.Flags()
		index = int64(reg.FlagIndex()) * flagStride
		elemType = irbuild.I1
	}
	base := b.NewLoad(global)
	alias.Attach(&base.Metadata, s.tags, alias.ClassConst)
	return irbuild.GEPElem(b, base, elemType, index), elemType
}

// ReadRegister implements MachineState::ReadRegiser: a tagged load
// through getRegisterPtr. allowPC documents, but does not itself
// enforce, the manual's "register-form operands may not read PC" rule —
// callers reject rn/rm == PC during decode, per the Open Question
// decision to keep that restriction.
func (s *State) ReadRegister(b *irbuild.Block, reg armreg.Register, allowPC bool) irbuild.Value {
	_ = allowPC
	ptr, _ := s.getRegisterPtr(b, reg)
	load := b.NewLoad(ptr)
	class := alias.ForRegister(reg)
	if reg.IsFlag() {
		class = alias.ForFlag(reg)
	}
	alias.Attach(&load.Metadata, s.tags, class)
	return load
}

// WriteRegister implements MachineState::WriteRegiser: a tagged store
// through getRegisterPtr.
func (s *State) WriteRegister(b *irbuild.Block, reg armreg.Register, value irbuild.Value) {
	ptr, _ := s.getRegisterPtr(b, reg)
	store := b.NewStore(value, ptr)
	class := alias.ForRegister(reg)
	if reg.IsFlag() {
		class = alias.ForFlag(reg)
	}
	alias.Attach(&store.Metadata, s.tags, class)
}

// ReadFlag reads one of the four condition flags (N, Z, C, V).
func (s *State) ReadFlag(b *irbuild.Block, flag armreg.Register) irbuild.Value {
	return s.ReadRegister(b, flag, true)
}

// WriteFlag writes one of the four condition flags.
func (s *State) WriteFlag(b *irbuild.Block, flag armreg.Register, value irbuild.Value) {
	s.WriteRegister(b, flag, value)
}

// ConditionPassed implements MachineState::ConditionPassed exactly: it
// reduces the 14 meaningful condition codes to the positive half of
// their pair, builds the predicate for that positive half out of flag
// reads, and negates the result if the original code was the negated
// half of the pair.
func (s *State) ConditionPassed(b *irbuild.Block, cond armreg.Condition) irbuild.Value {
	negate := cond.IsNegated()
	positive := cond.Positive()

	var pred irbuild.Value
	switch positive {
	case armreg.EQ:
		pred = s.ReadFlag(b, armreg.Z)
	case armreg.CS:
		pred = s.ReadFlag(b, armreg.C)
	case armreg.MI:
		pred = s.ReadFlag(b, armreg.N)
	case armreg.VS:
		pred = s.ReadFlag(b, armreg.V)
	case armreg.HI:
		c := s.ReadFlag(b, armreg.C)
		notZ := b.NewXor(s.ReadFlag(b, armreg.Z), irbuild.ConstI1(true))
		pred = b.NewAnd(c, notZ)
	case armreg.GE:
		pred = b.NewICmp(irbuild.IntEQ, s.ReadFlag(b, armreg.N), s.ReadFlag(b, armreg.V))
	case armreg.GT:
		notZ := b.NewXor(s.ReadFlag(b, armreg.Z), irbuild.ConstI1(true))
		nEqV := b.NewICmp(irbuild.IntEQ, s.ReadFlag(b, armreg.N), s.ReadFlag(b, armreg.V))
		pred = b.NewAnd(notZ, nEqV)
	case armreg.AL:
		pred = irbuild.ConstI1(true)
	default:
		pred = irbuild.ConstI1(false)
	}

	if negate {
		pred = b.NewXor(pred, irbuild.ConstI1(true))
	}
	return pred
}

// ReadMemory32 implements MachineState::ReadMemory32 as a direct call to
// the module's external Memory_Read32 function declaration; it does not
// load a function pointer from a global first. The call is tagged as the
// memory alias class so the optimizer never assumes it aliases a
// register load.
func (s *State) ReadMemory32(b *irbuild.Block, address irbuild.Value) irbuild.Value {
	call := b.NewCall(s.bld.MemRead32(), address)
	alias.Attach(&call.Metadata, s.tags, alias.ClassMemory)
	return call
}

// WriteMemory32 implements MachineState::WriteMemory32.
func (s *State) WriteMemory32(b *irbuild.Block, address, value irbuild.Value) {
	call := b.NewCall(s.bld.MemWrite32(), address, value)
	alias.Attach(&call.Metadata, s.tags, alias.ClassMemory)
}

// IncrementInstructionCount emits the per-instruction `InstructionCount
// += 1` tick spec.md §4.7/§9 describes: a tagged load, add, and store
// against the module's InstructionCount global, tagged as its own alias
// class so the optimizer never hoists it across a memory operation.
func (s *State) IncrementInstructionCount(b *irbuild.Block) {
	counter := s.bld.InstructionCount()
	load := b.NewLoad(counter)
	alias.Attach(&load.Metadata, s.tags, alias.ClassInstructionCount)
	incremented := b.NewAdd(load, irbuild.ConstI32(1))
	store := b.NewStore(incremented, counter)
	alias.Attach(&store.Metadata, s.tags, alias.ClassInstructionCount)
}
