package instr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeMultiplyShortForm(t *testing.T) {
	inst, ok := decodeMultiply(0xE0000291, 0x1000) // mul r0, r1, r2
	require.True(t, ok)
	m := inst.(*Multiply)
	require.Equal(t, mulOpMUL, m.op)
	require.False(t, m.op.isLong())
}

func TestDecodeMultiplyLongForm(t *testing.T) {
	inst, ok := decodeMultiply(0xE0810392, 0x1000) // umull r0, r1, r2, r3
	require.True(t, ok)
	m := inst.(*Multiply)
	require.Equal(t, mulOpUMULL, m.op)
	require.True(t, m.op.isLong())
	require.False(t, m.op.isSigned())
}

func TestDecodeMultiplyRejectsUnsupportedOp(t *testing.T) {
	// opcode field 0x2 is reserved
	word := uint32(0xE0000291&^(0xF<<21)) | (0x2 << 21)
	_, ok := decodeMultiply(word, 0x1000)
	require.False(t, ok)
}

func TestDecodeMultiplyRejectsSameRdHiRdLoInLongForm(t *testing.T) {
	// umull r0, r0, r2, r3 is UNPREDICTABLE
	word := uint32(0xE0810392) &^ (0xF << 16)
	_, ok := decodeMultiply(word, 0x1000)
	require.False(t, ok)
}

func TestMultiplyGenerateShortFormWritesSingleRegister(t *testing.T) {
	ctx, _ := newTestContext(t)
	inst, ok := decodeMultiply(0xE0203291, 0x1000) // mla r0, r1, r2, r3
	require.True(t, ok)
	before := len(ctx.Block.Insts)
	inst.Generate(ctx)
	require.Greater(t, len(ctx.Block.Insts), before)
}

func TestMultiplyGenerateLongFormSetsFlags(t *testing.T) {
	ctx, _ := newTestContext(t)
	inst, ok := decodeMultiply(0xE0F10392, 0x1000) // smlals r0, r1, r2, r3
	require.True(t, ok)
	m := inst.(*Multiply)
	require.True(t, m.setFlags)
	require.True(t, m.op.isSigned())
	before := len(ctx.Block.Insts)
	inst.Generate(ctx)
	require.Greater(t, len(ctx.Block.Insts), before)
}
