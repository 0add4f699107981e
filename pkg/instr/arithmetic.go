package instr

import (
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/armshift"
	"github.com/bassosimone/armxlate/pkg/field"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

// arithOp is the 4-bit data-processing opcode field, restricted to the
// ten ops this translator lowers (the remaining values — TST/TEQ/CMP/
// CMN, MOV/MVN, the bitwise-not form — are either handled by MovShift or
// not supported, matching Arithmetic.cpp's IsSupported table).
type arithOp uint32

const (
	opAnd arithOp = 0
	opEor arithOp = 1
	opSub arithOp = 2
	opRsb arithOp = 3
	opAdd arithOp = 4
	opAdc arithOp = 5
	opSbc arithOp = 6
	opRsc arithOp = 7
	opOrr arithOp = 12
	opBic arithOp = 14
)

func (op arithOp) supported() bool {
	switch op {
	case opAnd, opEor, opSub, opRsb, opAdd, opAdc, opSbc, opRsc, opOrr, opBic:
		return true
	default:
		return false
	}
}

func (op arithOp) bitwise() bool {
	switch op {
	case opAnd, opEor, opOrr, opBic:
		return true
	default:
		return false
	}
}

// arithForm distinguishes the register and immediate encodings of a
// data-processing instruction.
type arithForm int

const (
	arithFormRegister arithForm = iota
	arithFormImmediate
)

// Arithmetic is the non-multiply, non-move data-processing instruction
// kind: AND/EOR/SUB/RSB/ADD/ADC/SBC/RSC/ORR/BIC in register and
// immediate forms, grounded on Instructions/Arithmetic.cpp.
type Arithmetic struct {
	addr     uint32
	cond     armreg.Condition
	form     arithForm
	op       arithOp
	setFlags bool
	rn       armreg.Register
	rd       armreg.Register
	imm5     uint32
	shiftTy  uint32
	rm       armreg.Register
	imm12    uint32
}

func (a *Arithmetic) Address() uint32          { return a.addr }
func (a *Arithmetic) Cond() armreg.Condition   { return a.cond }
func (a *Arithmetic) Mnemonic() string         { return "arithmetic" }

func decodeArithmetic(word uint32, addr uint32) (Instruction, bool) {
	var condBits, rawOp, setFlags, rn, rd, imm5, shiftTy, rm uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(3, 0),
		field.Bits(4, &rawOp),
		field.Bits(1, &setFlags),
		field.Bits(4, &rn),
		field.Bits(4, &rd),
		field.Bits(5, &imm5),
		field.Bits(2, &shiftTy),
		field.Const(1, 0),
		field.Bits(4, &rm),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		op := arithOp(rawOp)
		rnReg := armreg.Register(rn)
		rdReg := armreg.Register(rd)
		rmReg := armreg.Register(rm)
		if rdReg == armreg.PC && setFlags != 0 {
			return nil, false
		}
		if rnReg == armreg.PC || rmReg == armreg.PC {
			return nil, false
		}
		if !op.supported() {
			return nil, false
		}
		return &Arithmetic{
			addr: addr, cond: cond, form: arithFormRegister, op: op,
			setFlags: setFlags != 0, rn: rnReg, rd: rdReg,
			imm5: imm5, shiftTy: shiftTy, rm: rmReg,
		}, true
	}

	var imm12 uint32
	if field.ReadFields(word,
		field.Bits(4, &condBits),
		field.Const(3, 1),
		field.Bits(4, &rawOp),
		field.Bits(1, &setFlags),
		field.Bits(4, &rn),
		field.Bits(4, &rd),
		field.Bits(12, &imm12),
	) {
		cond := armreg.DecodeCondition(condBits)
		if cond == armreg.Invalid {
			return nil, false
		}
		op := arithOp(rawOp)
		rnReg := armreg.Register(rn)
		rdReg := armreg.Register(rd)
		if rdReg == armreg.PC && setFlags != 0 {
			return nil, false
		}
		if rnReg == armreg.PC {
			return nil, false
		}
		if !op.supported() {
			return nil, false
		}
		return &Arithmetic{
			addr: addr, cond: cond, form: arithFormImmediate, op: op,
			setFlags: setFlags != 0, rn: rnReg, rd: rdReg, imm12: imm12,
		}, true
	}

	return nil, false
}

// Generate implements Arithmetic::GenerateInstructionCode: compute the
// left/right operands (shifting the register form or expanding the
// immediate form, both producing a carry-out only bitwise ops use),
// apply the op, write rd, and — if S is set — write N/Z always, C only
// when the op produced one, and V only for the add/subtract family.
func (a *Arithmetic) Generate(ctx *Context) {
	b := ctx.Block
	carryIn := ctx.State.ReadFlag(b, armreg.C)
	left := ctx.State.ReadRegister(b, a.rn, false)

	var right irbuild.Value
	var shiftCarry irbuild.Value
	haveShiftCarry := false

	if a.form == arithFormRegister {
		st, amount := armreg.DecodeImmShift(a.shiftTy, a.imm5)
		rm := ctx.State.ReadRegister(b, a.rm, false)
		amountVal := irbuild.ConstI32(int64(amount))
		if a.op.bitwise() {
			rc := armshift.ShiftC(b, rm, st, amountVal, carryIn)
			right = rc.Result
			shiftCarry = rc.Carry
			haveShiftCarry = true
		} else {
			right = armshift.Shift(b, rm, st, amountVal, carryIn)
		}
	} else {
		if a.op.bitwise() {
			rc := armshift.ARMExpandImmC(b, a.imm12, carryIn)
			right = rc.Result
			shiftCarry = rc.Carry
			haveShiftCarry = true
		} else {
			right = armshift.ARMExpandImm(b, a.imm12, carryIn)
		}
	}

	var result irbuild.Value
	var carryOut irbuild.Value
	var overflowOut irbuild.Value
	haveOverflow := false

	switch a.op {
	case opAnd:
		result = b.NewAnd(left, right)
	case opEor:
		result = b.NewXor(left, right)
	case opOrr:
		result = b.NewOr(left, right)
	case opBic:
		result = b.NewAnd(left, b.NewXor(right, irbuild.ConstI32(-1)))
	case opSub:
		rco := armshift.AddWithCarry(b, left, b.NewXor(right, irbuild.ConstI32(-1)), irbuild.ConstI1(true))
		result, carryOut, overflowOut = rco.Result, rco.Carry, rco.Overflow
		haveOverflow = true
	case opRsb:
		rco := armshift.AddWithCarry(b, b.NewXor(left, irbuild.ConstI32(-1)), right, irbuild.ConstI1(true))
		result, carryOut, overflowOut = rco.Result, rco.Carry, rco.Overflow
		haveOverflow = true
	case opAdd:
		rco := armshift.AddWithCarry(b, left, right, irbuild.ConstI1(false))
		result, carryOut, overflowOut = rco.Result, rco.Carry, rco.Overflow
		haveOverflow = true
	case opAdc:
		rco := armshift.AddWithCarry(b, left, right, carryIn)
		result, carryOut, overflowOut = rco.Result, rco.Carry, rco.Overflow
		haveOverflow = true
	case opSbc:
		rco := armshift.AddWithCarry(b, left, b.NewXor(right, irbuild.ConstI32(-1)), carryIn)
		result, carryOut, overflowOut = rco.Result, rco.Carry, rco.Overflow
		haveOverflow = true
	case opRsc:
		rco := armshift.AddWithCarry(b, b.NewXor(left, irbuild.ConstI32(-1)), right, carryIn)
		result, carryOut, overflowOut = rco.Result, rco.Carry, rco.Overflow
		haveOverflow = true
	}

	if haveShiftCarry {
		carryOut = shiftCarry
	}

	ctx.State.WriteRegister(b, a.rd, result)

	if a.setFlags {
		ctx.State.WriteFlag(b, armreg.N, b.NewICmp(irbuild.IntSLT, result, irbuild.ConstI32(0)))
		ctx.State.WriteFlag(b, armreg.Z, b.NewICmp(irbuild.IntEQ, result, irbuild.ConstI32(0)))
		if carryOut != nil {
			ctx.State.WriteFlag(b, armreg.C, carryOut)
		}
		if haveOverflow {
			ctx.State.WriteFlag(b, armreg.V, overflowOut)
		}
	}
}
