package armshift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

func newTestBlock(t *testing.T) *irbuild.Block {
	t.Helper()
	bld := irbuild.NewBuilder("armshift_test", false)
	f := bld.NewVoidFunc("test")
	blk := f.NewBlock("entry")
	return blk
}

func TestShiftCByZeroPassesValueAndCarryThrough(t *testing.T) {
	blk := newTestBlock(t)
	carryIn := irbuild.ConstI1(true)
	x := irbuild.ConstI32(0x1234)
	rc := ShiftC(blk, x, armreg.LSL, irbuild.ConstI32(0), carryIn)
	require.NotNil(t, rc.Result)
	require.NotNil(t, rc.Carry)
}

func TestRRXCShiftsCarryIntoTopBit(t *testing.T) {
	blk := newTestBlock(t)
	rc := RRXC(blk, irbuild.ConstI32(1), irbuild.ConstI1(true))
	require.NotNil(t, rc.Result)
	require.NotNil(t, rc.Carry)
}

func TestARMExpandImmCRotatesByEvenAmount(t *testing.T) {
	blk := newTestBlock(t)
	rc := ARMExpandImmC(blk, 0xFF0, irbuild.ConstI1(false))
	require.NotNil(t, rc.Result)
}

func TestAddWithCarryEmitsWideningSequence(t *testing.T) {
	blk := newTestBlock(t)
	rco := AddWithCarry(blk, irbuild.ConstI32(1), irbuild.ConstI32(2), irbuild.ConstI1(false))
	require.NotNil(t, rco.Result)
	require.NotNil(t, rco.Carry)
	require.NotNil(t, rco.Overflow)
	require.NotEmpty(t, blk.Insts)
}

func TestRORCIsExpressedAsTwoOppositeShifts(t *testing.T) {
	blk := newTestBlock(t)
	rc := RORC(blk, irbuild.ConstI32(0x80000001), irbuild.ConstI32(4))
	require.NotNil(t, rc.Result)
	require.NotNil(t, rc.Carry)
}
