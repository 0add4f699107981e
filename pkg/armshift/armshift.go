// Package armshift implements the ARM architecture reference manual's
// shift, rotate and addition pseudocode (DecodeImmShift, Shift/Shift_C,
// the four *_C shift primitives, RRX_C, ARMExpandImm/ARMExpandImm_C and
// AddWithCarry) as IR-emitting Go functions. Each function takes the
// block currently being filled and value.Value operands, and emits the
// corresponding sequence of IR instructions into that block, returning
// the resulting handle(s) — the formulas are taken verbatim from
// ARMFuncs.cpp, translated from LLVM's C++ IRBuilder calls to the
// equivalent github.com/llir/llvm block methods via pkg/irbuild.
package armshift

import "github.com/bassosimone/armxlate/pkg/irbuild"
import "github.com/bassosimone/armxlate/pkg/armreg"

// ResultCarry pairs a shifted/rotated result with the carry-out bit the
// operation produces, mirroring ARMFuncs::ResultCarry.
type ResultCarry struct {
	Result irbuild.Value
	Carry  irbuild.Value
}

// ResultCarryOverflow additionally carries the overflow flag, the shape
// AddWithCarry returns.
type ResultCarryOverflow struct {
	Result   irbuild.Value
	Carry    irbuild.Value
	Overflow irbuild.Value
}

// Shift returns only the shifted result, discarding the carry-out.
func Shift(b *irbuild.Block, value irbuild.Value, st armreg.ShiftType, amount, carryIn irbuild.Value) irbuild.Value {
	return ShiftC(b, value, st, amount, carryIn).Result
}

// ShiftC implements ARMFuncs::Shift_C: it dispatches to the shift kind's
// *_C primitive, then uses a select to pass the unshifted value and
// incoming carry through unmodified when amount == 0 (ARM's manual makes
// a shift by zero a no-op on both the value and the carry flag, except
// RRX which always shifts by exactly one bit).
func ShiftC(b *irbuild.Block, value irbuild.Value, st armreg.ShiftType, amount, carryIn irbuild.Value) ResultCarry {
	amountZero := b.NewICmp(irbuild.IntEQ, amount, irbuild.ConstI32(0))

	var rc ResultCarry
	switch st {
	case armreg.LSL:
		rc = LSLC(b, value, amount)
	case armreg.LSR:
		rc = LSRC(b, value, amount)
	case armreg.ASR:
		rc = ASRC(b, value, amount)
	case armreg.ROR:
		rc = RORC(b, value, amount)
	case armreg.RRX:
		rc = RRXC(b, value, carryIn)
	}

	result := b.NewSelect(amountZero, value, rc.Result)
	carry := b.NewSelect(amountZero, carryIn, rc.Carry)
	return ResultCarry{Result: result, Carry: carry}
}

func shiftZeroCheck(b *irbuild.Block, x, shift irbuild.Value, nonZero func(*irbuild.Block, irbuild.Value, irbuild.Value) ResultCarry) irbuild.Value {
	amountZero := b.NewICmp(irbuild.IntEQ, shift, irbuild.ConstI32(0))
	rc := nonZero(b, x, shift)
	return b.NewSelect(amountZero, x, rc.Result)
}

// LSL performs a plain (non-carry-reporting) logical left shift.
func LSL(b *irbuild.Block, x, shift irbuild.Value) irbuild.Value {
	return shiftZeroCheck(b, x, shift, LSLC)
}

// LSLC implements ARMFuncs::LSL_C: shl for the result, and the bit that
// would have been shifted out (x's bit at position 32-shift) for carry.
func LSLC(b *irbuild.Block, x, shift irbuild.Value) ResultCarry {
	result := b.NewShl(x, shift)
	n := irbuild.ConstI32(32)
	carry := b.NewTrunc(b.NewLShr(x, b.NewSub(n, shift)), irbuild.I1)
	return ResultCarry{Result: result, Carry: carry}
}

// LSR performs a plain logical right shift.
func LSR(b *irbuild.Block, x, shift irbuild.Value) irbuild.Value {
	return shiftZeroCheck(b, x, shift, LSRC)
}

// LSRC implements ARMFuncs::LSR_C.
func LSRC(b *irbuild.Block, x, shift irbuild.Value) ResultCarry {
	one := irbuild.ConstI32(1)
	result := b.NewLShr(x, shift)
	carry := b.NewTrunc(b.NewLShr(x, b.NewSub(shift, one)), irbuild.I1)
	return ResultCarry{Result: result, Carry: carry}
}

// ASRC implements ARMFuncs::ASR_C (arithmetic shift right).
func ASRC(b *irbuild.Block, x, shift irbuild.Value) ResultCarry {
	one := irbuild.ConstI32(1)
	result := b.NewAShr(x, shift)
	carry := b.NewTrunc(b.NewLShr(x, b.NewSub(shift, one)), irbuild.I1)
	return ResultCarry{Result: result, Carry: carry}
}

// RORC implements ARMFuncs::ROR_C: rotate-right expressed as the OR of
// two opposite logical shifts by shift%32 and 32-(shift%32).
func RORC(b *irbuild.Block, x, shift irbuild.Value) ResultCarry {
	n := irbuild.ConstI32(32)
	m := b.NewURem(shift, n)
	result := b.NewOr(LSR(b, x, m), LSL(b, x, b.NewSub(n, m)))
	carry := b.NewTrunc(b.NewLShr(result, irbuild.ConstI32(31)), irbuild.I1)
	return ResultCarry{Result: result, Carry: carry}
}

// RRXC implements ARMFuncs::RRX_C: shift right by one bit, shifting the
// incoming carry flag into the vacated top bit; the outgoing carry is
// the bit shifted out of the bottom.
func RRXC(b *irbuild.Block, x, carryIn irbuild.Value) ResultCarry {
	result := b.NewLShr(x, irbuild.ConstI32(1))
	carryBit := b.NewShl(b.NewZExt(carryIn, irbuild.I32), irbuild.ConstI32(31))
	result = b.NewOr(result, carryBit)
	carry := b.NewTrunc(x, irbuild.I1)
	return ResultCarry{Result: result, Carry: carry}
}

// ARMExpandImm implements ARMFuncs::ARMExpandImm: the manual's 12-bit
// modified-immediate expansion, discarding the carry it would otherwise
// produce (the carry-out of this expansion never affects the result, so
// the caller may pass an arbitrary carry-in when ignoring it — here it
// passes the current C flag rather than LLVM's undef, since this
// translator always has a concrete carry value on hand).
func ARMExpandImm(b *irbuild.Block, imm12 uint32, carryIn irbuild.Value) irbuild.Value {
	return ARMExpandImmC(b, imm12, carryIn).Result
}

// ARMExpandImmC implements ARMFuncs::ARMExpandImm_C: split imm12 into an
// 8-bit value and an even rotate amount, then rotate right through
// Shift_C.
func ARMExpandImmC(b *irbuild.Block, imm12 uint32, carryIn irbuild.Value) ResultCarry {
	value := irbuild.ConstI32(int64(imm12 & 0xFF))
	shift := irbuild.ConstI32(int64(2 * (imm12 >> 8)))
	return ShiftC(b, value, armreg.ROR, shift, carryIn)
}

// AddWithCarry implements ARMFuncs::AddWithCarry: it widens both
// operands to 64 bits (once as unsigned, once as signed) to compute the
// unsigned and signed carry/overflow conditions by comparing the
// truncated 32-bit result back against the untruncated 64-bit sums.
func AddWithCarry(b *irbuild.Block, x, y, carryIn irbuild.Value) ResultCarryOverflow {
	xu64 := b.NewZExt(x, irbuild.I64)
	xs64 := b.NewSExt(x, irbuild.I64)
	yu64 := b.NewZExt(y, irbuild.I64)
	ys64 := b.NewSExt(y, irbuild.I64)
	c64 := b.NewZExt(carryIn, irbuild.I64)

	unsignedSum := b.NewAdd(b.NewAdd(xu64, yu64), c64)
	signedSum := b.NewAdd(b.NewAdd(xs64, ys64), c64)
	result32 := b.NewTrunc(unsignedSum, irbuild.I32)
	resultU64 := b.NewZExt(result32, irbuild.I64)
	resultS64 := b.NewSExt(result32, irbuild.I64)

	carry := b.NewICmp(irbuild.IntNE, resultU64, unsignedSum)
	overflow := b.NewICmp(irbuild.IntNE, resultS64, signedSum)

	return ResultCarryOverflow{Result: result32, Carry: carry, Overflow: overflow}
}
