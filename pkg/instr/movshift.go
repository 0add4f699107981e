package instr

import (
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/armshift"
	"github.com/bassosimone/armxlate/pkg/field"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

// movShiftOp2 is the 2-bit "op2" field of the register form: which
// shift/rotate kind MOV/MOVS applies to rm.
type movShiftOp2 uint32

const (
	op2MoveAndLSL movShiftOp2 = 0
	op2LSR        movShiftOp2 = 1
	op2ASR        movShiftOp2 = 2
	op2RRXAndROR  movShiftOp2 = 3
)

type movShiftForm int

const (
	movShiftFormRegister movShiftForm = iota
	movShiftFormImmediateA1
	movShiftFormImmediateA2
)

// MovShift is the MOV/MOVS/MOVW/LSL/LSR/ASR/ROR/RRX instruction kind,
// grounded on Instructions/MovShift.cpp's three decode forms. MOVT is
// not decoded.
type MovShift struct {
	addr  uint32
	cond  armreg.Condition
	form  movShiftForm
	s     bool
	rd    armreg.Register
	rm    armreg.Register
	imm5  uint32
	op2   movShiftOp2
	imm12 uint32
	imm4  uint32
}

func (m *MovShift) Address() uint32        { return m.addr }
func (m *MovShift) Cond() armreg.Condition { return m.cond }
func (m *MovShift) Mnemonic() string       { return "movshift" }

func decodeMovShift(word uint32, addr uint32) (Instruction, bool) {
	var condBits, s, rd, imm5, op2, rm uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(3, 0),
		field.Const(4, 13),
		field.Bits(1, &s),
		field.Const(4, 0),
		field.Bits(4, &rd),
		field.Bits(5, &imm5),
		field.Bits(2, &op2),
		field.Const(1, 0),
		field.Bits(4, &rm),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		rdReg := armreg.Register(rd)
		rmReg := armreg.Register(rm)
		if rmReg == armreg.PC {
			return nil, false
		}
		if rdReg == armreg.PC && s != 0 {
			return nil, false
		}
		return &MovShift{
			addr: addr, cond: cond, form: movShiftFormRegister, s: s != 0,
			rd: rdReg, rm: rmReg, imm5: imm5, op2: movShiftOp2(op2),
		}, true
	}

	var imm12 uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(7, 0x1d),
		field.Bits(1, &s),
		field.Const(4, 0),
		field.Bits(4, &rd),
		field.Bits(12, &imm12),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		return &MovShift{
			addr: addr, cond: cond, form: movShiftFormImmediateA1, s: s != 0,
			rd: armreg.Register(rd), imm12: imm12,
		}, true
	}

	var imm4 uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(8, 0x30),
		field.Bits(4, &imm4),
		field.Bits(4, &rd),
		field.Bits(12, &imm12),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		rdReg := armreg.Register(rd)
		if rdReg == armreg.PC {
			return nil, false
		}
		return &MovShift{
			addr: addr, cond: cond, form: movShiftFormImmediateA2, s: false,
			rd: rdReg, imm4: imm4, imm12: imm12,
		}, true
	}

	return nil, false
}

// Generate implements MovShift::GenerateInstructionCode.
func (m *MovShift) Generate(ctx *Context) {
	b := ctx.Block
	carryIn := ctx.State.ReadFlag(b, armreg.C)

	var value irbuild.Value
	carry := carryIn
	carryChanged := false

	switch m.form {
	case movShiftFormRegister:
		value = ctx.State.ReadRegister(b, m.rm, false)
		switch m.op2 {
		case op2MoveAndLSL:
			if m.imm5 != 0 {
				_, amount := armreg.DecodeImmShift(0, m.imm5)
				rc := armshift.ShiftC(b, value, armreg.LSL, irbuild.ConstI32(int64(amount)), carry)
				value, carry = rc.Result, rc.Carry
				carryChanged = true
			}
		case op2LSR:
			_, amount := armreg.DecodeImmShift(1, m.imm5)
			rc := armshift.ShiftC(b, value, armreg.LSR, irbuild.ConstI32(int64(amount)), carry)
			value, carry = rc.Result, rc.Carry
			carryChanged = true
		case op2ASR:
			_, amount := armreg.DecodeImmShift(2, m.imm5)
			rc := armshift.ShiftC(b, value, armreg.ASR, irbuild.ConstI32(int64(amount)), carry)
			value, carry = rc.Result, rc.Carry
			carryChanged = true
		case op2RRXAndROR:
			if m.imm5 == 0 {
				rc := armshift.ShiftC(b, value, armreg.RRX, irbuild.ConstI32(1), carry)
				value, carry = rc.Result, rc.Carry
			} else {
				_, amount := armreg.DecodeImmShift(3, m.imm5)
				rc := armshift.ShiftC(b, value, armreg.ROR, irbuild.ConstI32(int64(amount)), carry)
				value, carry = rc.Result, rc.Carry
			}
			carryChanged = true
		}
	case movShiftFormImmediateA1:
		rc := armshift.ARMExpandImmC(b, m.imm12, carry)
		value, carry = rc.Result, rc.Carry
		carryChanged = true
	case movShiftFormImmediateA2:
		value = irbuild.ConstI32(int64((m.imm4 << 12) | m.imm12))
	}

	ctx.State.WriteRegister(b, m.rd, value)

	if m.s {
		ctx.State.WriteFlag(b, armreg.N, b.NewTrunc(b.NewLShr(value, irbuild.ConstI32(31)), irbuild.I1))
		ctx.State.WriteFlag(b, armreg.Z, b.NewICmp(irbuild.IntEQ, value, irbuild.ConstI32(0)))
		if carryChanged {
			ctx.State.WriteFlag(b, armreg.C, carry)
		}
	}

	if m.rd == armreg.PC {
		ctx.Linker.BranchReadPC(b)
	}
}
