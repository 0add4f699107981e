package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/armxlate/pkg/alias"
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/instr"
	"github.com/bassosimone/armxlate/pkg/irbuild"
	"github.com/bassosimone/armxlate/pkg/machine"
)

type fakeInstruction struct {
	addr uint32
	cond armreg.Condition
	ran  bool
}

func (f *fakeInstruction) Address() uint32        { return f.addr }
func (f *fakeInstruction) Cond() armreg.Condition { return f.cond }
func (f *fakeInstruction) Mnemonic() string        { return "fake" }
func (f *fakeInstruction) Generate(ctx *instr.Context) {
	f.ran = true
}

type fakeROM struct{}

func (fakeROM) CodeStart() uint32              { return 0 }
func (fakeROM) CodeSize() uint32               { return 0 }
func (fakeROM) RODataStart() uint32            { return 0 }
func (fakeROM) RODataSize() uint32             { return 0 }
func (fakeROM) ReadWord(uint32) (uint32, bool) { return 0, false }

type fakeLinker struct {
	wroteConst  bool
	constTarget uint32
}

func (f *fakeLinker) BranchWritePCConst(b *irbuild.Block, target uint32) {
	f.wroteConst = true
	f.constTarget = target
	b.NewRet(nil)
}

func (f *fakeLinker) BranchReadPC(b *irbuild.Block) {
	b.NewRet(nil)
}

func newTestState(t *testing.T) *machine.State {
	t.Helper()
	bld := irbuild.NewBuilder("block_test", false)
	tags := alias.NewTags()
	return machine.New(bld, tags)
}

func TestGenerateCodeAlwaysExecutedFallsThrough(t *testing.T) {
	st := newTestState(t)
	fi := &fakeInstruction{addr: 0x1000, cond: armreg.AL}
	blk := New(st, fi)
	blk.GenerateEntryBlock()
	linker := &fakeLinker{}
	blk.GenerateCode(linker, fakeROM{})
	require.True(t, fi.ran)
	require.True(t, linker.wroteConst)
	require.Equal(t, uint32(0x1004), linker.constTarget)
}

func TestGenerateCodeConditionalSplitsBlocks(t *testing.T) {
	st := newTestState(t)
	fi := &fakeInstruction{addr: 0x2000, cond: armreg.EQ}
	blk := New(st, fi)
	blk.GenerateEntryBlock()
	linker := &fakeLinker{}
	blk.GenerateCode(linker, fakeROM{})
	require.True(t, fi.ran)
	require.True(t, linker.wroteConst)
	require.Equal(t, uint32(0x2004), linker.constTarget)
	require.NotNil(t, blk.EntryBlock().Term)
}

func TestLinkRecordsAdjacency(t *testing.T) {
	st := newTestState(t)
	a := New(st, &fakeInstruction{addr: 0x1000, cond: armreg.AL})
	b := New(st, &fakeInstruction{addr: 0x1004, cond: armreg.AL})
	Link(a, b)
	require.Equal(t, []*Block{b}, a.Nexts())
	require.Equal(t, []*Block{a}, b.Prevs())
}
