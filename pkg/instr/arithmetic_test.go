package instr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeArithmeticRegisterForm(t *testing.T) {
	// add r0, r1, r2
	inst, ok := decodeArithmetic(0xE0810002, 0x1000)
	require.True(t, ok)
	a := inst.(*Arithmetic)
	require.Equal(t, arithFormRegister, a.form)
	require.Equal(t, opAdd, a.op)
	require.False(t, a.setFlags)
}

func TestDecodeArithmeticImmediateForm(t *testing.T) {
	// add r0, r1, #5
	inst, ok := decodeArithmetic(0xE2810005, 0x1000)
	require.True(t, ok)
	a := inst.(*Arithmetic)
	require.Equal(t, arithFormImmediate, a.form)
	require.Equal(t, uint32(5), a.imm12)
}

func TestDecodeArithmeticRejectsUnsupportedOp(t *testing.T) {
	// op field 8 (TST family) is not in the supported set
	word := uint32(0xE0810002&^(0xF<<21)) | (8 << 21)
	_, ok := decodeArithmetic(word, 0x1000)
	require.False(t, ok)
}

func TestArithmeticGenerateSetsFlagsWhenRequested(t *testing.T) {
	ctx, _ := newTestContext(t)
	inst, ok := decodeArithmetic(0xE0910002, 0x1000) // adds r0, r1, r2
	require.True(t, ok)
	before := len(ctx.Block.Insts)
	inst.Generate(ctx)
	require.Greater(t, len(ctx.Block.Insts), before)
}
