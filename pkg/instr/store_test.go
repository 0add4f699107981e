package instr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeStoreImmediateForm(t *testing.T) {
	inst, ok := decodeStore(0xE5810004, 0x1000) // str r0, [r1, #4]
	require.True(t, ok)
	s := inst.(*Store)
	require.Equal(t, storeFormImmediate, s.form)
	require.Equal(t, uint32(4), s.imm12)
}

func TestDecodeStoreMultiRegForm(t *testing.T) {
	inst, ok := decodeStore(0xE9200006, 0x1000) // stmdb r0!, {r1, r2}
	require.True(t, ok)
	s := inst.(*Store)
	require.Equal(t, storeFormMultiReg, s.form)
	require.True(t, s.w)
}

func TestDecodeStoreRejectsPCBaseInImmediateForm(t *testing.T) {
	// str r0, [pc, #4] — rn == PC is rejected unconditionally
	word := uint32(0xE58F0004)
	_, ok := decodeStore(word, 0x1000)
	require.False(t, ok)
}

func TestStoreGenerateImmediateFormWritesBackWhenRequested(t *testing.T) {
	ctx, _ := newTestContext(t)
	// str r0, [r1, #4]!  (P=1, U=1, W=1)
	inst, ok := decodeStore(0xE5A10004, 0x1000)
	require.True(t, ok)
	before := len(ctx.Block.Insts)
	inst.Generate(ctx)
	require.Greater(t, len(ctx.Block.Insts), before)
}

func TestPopcount16(t *testing.T) {
	require.Equal(t, 0, popcount16(0))
	require.Equal(t, 1, popcount16(1))
	require.Equal(t, 16, popcount16(0xFFFF))
	require.Equal(t, 3, popcount16(0x8003))
}
