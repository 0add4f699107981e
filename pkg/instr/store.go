package instr

import (
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/field"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

type storeForm int

const (
	storeFormImmediate storeForm = iota
	storeFormMultiReg
)

// Store is the STR instruction kind's two forms — register plus
// immediate offset, and STMDB — grounded on Instructions/Str.cpp. Per
// spec.md's Open Question (b), only the decrement-before STM addressing
// mode is implemented.
type Store struct {
	addr  uint32
	cond  armreg.Condition
	form  storeForm
	u     bool
	rt    armreg.Register
	imm12 uint32
	p     bool
	w     bool
	rn    armreg.Register
	list  uint32
}

func (s *Store) Address() uint32        { return s.addr }
func (s *Store) Cond() armreg.Condition { return s.cond }
func (s *Store) Mnemonic() string       { return "store" }

func decodeStore(word uint32, addr uint32) (Instruction, bool) {
	var condBits, p, u, w, rn, rt, imm12 uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(3, 2),
		field.Bits(1, &p),
		field.Bits(1, &u),
		field.Const(1, 0),
		field.Bits(1, &w),
		field.Const(1, 0),
		field.Bits(4, &rn),
		field.Bits(4, &rt),
		field.Bits(12, &imm12),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		if p == 0 && w != 0 {
			return nil, false // SEE STRT
		}
		rnReg := armreg.Register(rn)
		rtReg := armreg.Register(rt)
		if (p == 0 || w != 0) && (rnReg == rtReg || rnReg == armreg.PC) {
			return nil, false // UNPREDICTABLE
		}
		if rnReg == armreg.PC {
			return nil, false
		}
		return &Store{
			addr: addr, cond: cond, form: storeFormImmediate, u: u != 0, rt: rtReg,
			imm12: imm12, p: p != 0, w: w != 0, rn: rnReg,
		}, true
	}

	var list uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(6, 0x24),
		field.Bits(1, &w),
		field.Const(1, 0),
		field.Bits(4, &rn),
		field.Bits(16, &list),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		rnReg := armreg.Register(rn)
		if rnReg == armreg.PC || list == 0 {
			return nil, false // UNPREDICTABLE
		}
		if list&(1<<uint(armreg.PC-armreg.R0)) != 0 {
			return nil, false // not implemented
		}
		return &Store{addr: addr, cond: cond, form: storeFormMultiReg, w: w != 0, rn: rnReg, list: list}, true
	}

	return nil, false
}

// Generate implements Str::GenerateInstructionCode.
func (s *Store) Generate(ctx *Context) {
	b := ctx.Block

	if s.form == storeFormImmediate {
		index := s.p
		wback := !s.p || s.w
		source := ctx.State.ReadRegister(b, s.rn, false)
		var imm32 int64
		if s.u {
			imm32 = int64(s.imm12)
		} else {
			imm32 = -int64(s.imm12)
		}
		offsetAddress := b.NewAdd(source, irbuild.ConstI32(imm32))
		var address irbuild.Value
		if index {
			address = offsetAddress
		} else {
			address = source
		}
		if wback {
			ctx.State.WriteRegister(b, s.rn, offsetAddress)
		}
		ctx.State.WriteMemory32(b, address, ctx.State.ReadRegister(b, s.rt, false))
		return
	}

	count := popcount16(s.list)
	writeBackAddress := b.NewSub(ctx.State.ReadRegister(b, s.rn, false), irbuild.ConstI32(int64(4*count)))
	address := writeBackAddress
	for i := 0; i < 16; i++ {
		if s.list&(1<<uint(i)) == 0 {
			continue
		}
		reg := armreg.Register(i)
		ctx.State.WriteMemory32(b, address, ctx.State.ReadRegister(b, reg, false))
		address = b.NewAdd(address, irbuild.ConstI32(4))
	}
	if s.w {
		ctx.State.WriteRegister(b, s.rn, writeBackAddress)
	}
}

func popcount16(v uint32) int {
	n := 0
	for i := 0; i < 16; i++ {
		if v&(1<<uint(i)) != 0 {
			n++
		}
	}
	return n
}
