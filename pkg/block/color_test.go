package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

func TestColoringGroupsConnectedBlocksTogether(t *testing.T) {
	st := newTestState(t)
	a := New(st, &fakeInstruction{addr: 0x1000, cond: armreg.AL})
	b := New(st, &fakeInstruction{addr: 0x1004, cond: armreg.AL})
	c := New(st, &fakeInstruction{addr: 0x2000, cond: armreg.AL})
	a.GenerateEntryBlock()
	b.GenerateEntryBlock()
	c.GenerateEntryBlock()
	Link(a, b)

	bld := irbuild.NewBuilder("color_test", false)
	coloring := NewColoring(bld)
	coloring.AddBlock(a)
	coloring.AddBlock(c)

	require.Equal(t, 2, coloring.ColorCount())
	require.True(t, a.HasColor())
	require.True(t, b.HasColor())
	require.Equal(t, a.Color(), b.Color())
	require.NotEqual(t, a.Color(), c.Color())
}

func TestColoringAddBlockIsIdempotent(t *testing.T) {
	st := newTestState(t)
	a := New(st, &fakeInstruction{addr: 0x1000, cond: armreg.AL})
	a.GenerateEntryBlock()

	bld := irbuild.NewBuilder("color_test2", false)
	coloring := NewColoring(bld)
	coloring.AddBlock(a)
	coloring.AddBlock(a)
	require.Equal(t, 1, coloring.ColorCount())
}

// branchingLinker emits a real inter-entry IR branch on
// BranchWritePCConst instead of a bare ret, the shape
// ModuleGen::BranchWritePCConst produces when it links a constant
// branch target to an already-decoded block (see pkg/xlate's Linker).
// fakeLinker in block_test.go never does this, which is why that file's
// tests alone can't see GenerateFunctions double-appending a block.
type branchingLinker struct {
	target *irbuild.Block
}

func (l *branchingLinker) BranchWritePCConst(b *irbuild.Block, target uint32) {
	b.NewBr(l.target)
}

func (l *branchingLinker) BranchReadPC(b *irbuild.Block) {
	b.NewRet(nil)
}

func TestGenerateFunctionsDoesNotDuplicateSharedSuccessor(t *testing.T) {
	st := newTestState(t)
	a := New(st, &fakeInstruction{addr: 0x1000, cond: armreg.AL})
	b := New(st, &fakeInstruction{addr: 0x1004, cond: armreg.AL})
	a.GenerateEntryBlock()
	b.GenerateEntryBlock()
	linker := &branchingLinker{target: b.EntryBlock()}
	a.GenerateCode(linker, fakeROM{})
	b.GenerateCode(linker, fakeROM{})
	Link(a, b)

	bld := irbuild.NewBuilder("color_test4", false)
	coloring := NewColoring(bld)
	coloring.AddBlock(a)

	funcs := coloring.GenerateFunctions()
	require.Len(t, funcs, 1)

	seen := make(map[*irbuild.Block]bool)
	for i, blk := range funcs[0].Blocks {
		require.False(t, seen[blk], "block at index %d appended more than once", i)
		seen[blk] = true
	}
}

func TestGenerateFunctionsProducesOneFunctionPerColor(t *testing.T) {
	st := newTestState(t)
	a := New(st, &fakeInstruction{addr: 0x1000, cond: armreg.AL})
	b := New(st, &fakeInstruction{addr: 0x1004, cond: armreg.AL})
	a.GenerateEntryBlock()
	b.GenerateEntryBlock()
	linker := &fakeLinker{}
	a.GenerateCode(linker, fakeROM{})
	b.GenerateCode(linker, fakeROM{})
	Link(a, b)

	bld := irbuild.NewBuilder("color_test3", false)
	coloring := NewColoring(bld)
	coloring.AddBlock(a)

	funcs := coloring.GenerateFunctions()
	require.Len(t, funcs, 1)
	require.Len(t, funcs[0].Params, 1)
}
