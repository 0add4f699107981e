package instr

import (
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/field"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

type branchForm int

const (
	branchFormImmediate branchForm = iota
	branchFormRegister
)

// Branch is the B/BL/BX/BLX(register) instruction kind, grounded on
// Instructions/Branch.cpp.
type Branch struct {
	addr  uint32
	cond  armreg.Condition
	form  branchForm
	link  bool
	imm24 uint32
	rm    armreg.Register
}

func (br *Branch) Address() uint32        { return br.addr }
func (br *Branch) Cond() armreg.Condition { return br.cond }
func (br *Branch) Mnemonic() string       { return "branch" }

func decodeBranch(word uint32, addr uint32) (Instruction, bool) {
	var condBits, link, imm24 uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(3, 5),
		field.Bits(1, &link),
		field.Bits(24, &imm24),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		return &Branch{addr: addr, cond: cond, form: branchFormImmediate, link: link != 0, imm24: imm24}, true
	}

	var rm uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(20, 0x12fff),
		field.Const(2, 0),
		field.Bits(1, &link), // 0 for BX, 1 for BLX
		field.Const(1, 1),
		field.Bits(4, &rm),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		rmReg := armreg.Register(rm)
		if rmReg == armreg.PC {
			return nil, false
		}
		return &Branch{addr: addr, cond: cond, form: branchFormRegister, link: link != 0, rm: rmReg}, true
	}

	return nil, false
}

// Generate implements Branch::GenerateInstructionCode: write LR first
// (for BL/BLX) so a branch-to-self doesn't clobber the link value, then
// either resolve a constant PC-relative target through the linker or
// read the target register and fall back to the runtime dispatcher.
func (br *Branch) Generate(ctx *Context) {
	b := ctx.Block
	if br.link {
		ctx.State.WriteRegister(b, armreg.LR, irbuild.ConstAddr(br.addr+4))
	}

	if br.form == branchFormImmediate {
		offset := int32(br.imm24<<2) << 6 >> 6 // sign-extend the 26-bit byte offset
		target := uint32(int64(br.addr) + 8 + int64(offset))
		ctx.Linker.BranchWritePCConst(b, target)
	} else {
		pc := ctx.State.ReadRegister(b, br.rm, true)
		ctx.State.WriteRegister(b, armreg.PC, pc)
		ctx.Linker.BranchReadPC(b)
	}
}
