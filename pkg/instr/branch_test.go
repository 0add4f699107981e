package instr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBranchImmediateForm(t *testing.T) {
	inst, ok := decodeBranch(0xEA000000, 0x1000) // b with imm24 = 0
	require.True(t, ok)
	br := inst.(*Branch)
	require.Equal(t, branchFormImmediate, br.form)
	require.False(t, br.link)
}

func TestDecodeBranchRegisterFormRejectsPC(t *testing.T) {
	// blx pc would be UNPREDICTABLE
	word := uint32(0xE12FFF3F)
	_, ok := decodeBranch(word, 0x1000)
	require.False(t, ok)
}

func TestBranchGenerateImmediateResolvesConstTarget(t *testing.T) {
	ctx, linker := newTestContext(t)
	inst, ok := decodeBranch(0xEA000000, 0x1000) // imm24 = 0 -> target = addr+8
	require.True(t, ok)
	inst.Generate(ctx)
	require.True(t, linker.wroteConst)
	require.Equal(t, uint32(0x1008), linker.constTarget)
}

func TestBranchGenerateRegisterFormWritesLRAndReadsPC(t *testing.T) {
	ctx, linker := newTestContext(t)
	inst, ok := decodeBranch(0xE12FFF31, 0x1000) // blx r1
	require.True(t, ok)
	before := len(ctx.Block.Insts)
	inst.Generate(ctx)
	require.Greater(t, len(ctx.Block.Insts), before)
	require.True(t, linker.readPC)
}
