package instr

import (
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/field"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

type loadForm int

const (
	loadFormPC loadForm = iota
	loadFormReg
	loadFormMultiReg
)

// Load is the LDR instruction kind's three forms — PC-relative literal,
// register plus immediate offset, and LDM — grounded on Instructions/Ldr.cpp.
type Load struct {
	addr  uint32
	cond  armreg.Condition
	form  loadForm
	u     bool
	rt    armreg.Register
	imm12 uint32
	p     bool
	w     bool
	rn    armreg.Register
	list  uint32
}

func (l *Load) Address() uint32        { return l.addr }
func (l *Load) Cond() armreg.Condition { return l.cond }
func (l *Load) Mnemonic() string       { return "load" }

func decodeLoad(word uint32, addr uint32) (Instruction, bool) {
	var condBits, u, rt, imm12 uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(4, 5),
		field.Bits(1, &u),
		field.Const(7, 0x1f),
		field.Bits(4, &rt),
		field.Bits(12, &imm12),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		return &Load{addr: addr, cond: cond, form: loadFormPC, u: u != 0, rt: armreg.Register(rt), imm12: imm12}, true
	}

	var p, w, rn uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(3, 2),
		field.Bits(1, &p),
		field.Bits(1, &u),
		field.Const(1, 0),
		field.Bits(1, &w),
		field.Const(1, 1),
		field.Bits(4, &rn),
		field.Bits(4, &rt),
		field.Bits(12, &imm12),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		if p == 0 && w != 0 {
			return nil, false // SEE LDRT
		}
		rnReg := armreg.Register(rn)
		rtReg := armreg.Register(rt)
		if (p == 0 || w != 0) && rnReg == rtReg {
			return nil, false // UNPREDICTABLE
		}
		return &Load{
			addr: addr, cond: cond, form: loadFormReg, u: u != 0, rt: rtReg,
			imm12: imm12, p: p != 0, w: w != 0, rn: rnReg,
		}, true
	}

	var list uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(6, 0x22),
		field.Bits(1, &w),
		field.Const(1, 1),
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
		if w != 0 && list&(1<<uint(rnReg)) != 0 {
			return nil, false // UNPREDICTABLE
		}
		return &Load{addr: addr, cond: cond, form: loadFormMultiReg, w: w != 0, rn: rnReg, list: list}, true
	}

	return nil, false
}

// Generate implements Ldr::GenerateInstructionCode.
func (l *Load) Generate(ctx *Context) {
	b := ctx.Block

	if l.form == loadFormMultiReg {
		address := ctx.State.ReadRegister(b, l.rn, true)
		for i := 0; i < 16; i++ {
			if l.list&(1<<uint(i)) == 0 {
				continue
			}
			reg := armreg.Register(i)
			value := ctx.State.ReadMemory32(b, address)
			ctx.State.WriteRegister(b, reg, value)
			address = b.NewAdd(address, irbuild.ConstI32(4))
		}
		if l.w {
			ctx.State.WriteRegister(b, l.rn, address)
		}
		if l.list&(1<<uint(armreg.PC-armreg.R0)) != 0 {
			ctx.Linker.BranchReadPC(b)
		}
		return
	}

	var address irbuild.Value
	var value irbuild.Value

	if l.form == loadFormPC {
		base := l.addr + 8
		var constAddr uint32
		if l.u {
			constAddr = base + l.imm12
		} else {
			constAddr = base - l.imm12
		}
		constEnd := constAddr + 4
		inCode := constAddr >= ctx.ROM.CodeStart() && constEnd <= ctx.ROM.CodeStart()+ctx.ROM.CodeSize()
		inRO := constAddr >= ctx.ROM.RODataStart() && constEnd <= ctx.ROM.RODataStart()+ctx.ROM.RODataSize()
		if inCode || inRO {
			if word, ok := ctx.ROM.ReadWord(constAddr); ok {
				value = irbuild.ConstAddr(word)
			}
		}
		if value == nil {
			address = irbuild.ConstAddr(constAddr)
		}
	} else {
		index := l.p
		wback := !l.p || l.w
		source := ctx.State.ReadRegister(b, l.rn, false)
		var imm32 int64
		if l.u {
			imm32 = int64(l.imm12)
		} else {
			imm32 = -int64(l.imm12)
		}
		offsetAddress := b.NewAdd(source, irbuild.ConstI32(imm32))
		if index {
			address = offsetAddress
		} else {
			address = source
		}
		if wback {
			ctx.State.WriteRegister(b, l.rn, offsetAddress)
		}
	}

	if value == nil {
		value = ctx.State.ReadMemory32(b, address)
	}
	ctx.State.WriteRegister(b, l.rt, value)

	if l.rt == armreg.PC {
		ctx.Linker.BranchReadPC(b)
	}
}
