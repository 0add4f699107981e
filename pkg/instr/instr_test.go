package instr

import (
	"testing"

	"github.com/bassosimone/armxlate/pkg/alias"
	"github.com/bassosimone/armxlate/pkg/irbuild"
	"github.com/bassosimone/armxlate/pkg/machine"
)

// fakeROM is a minimal ROMInfo stub with an empty code/rodata extent, so
// PC-relative literal loads always fall back to a runtime memory read.
type fakeROM struct{}

func (fakeROM) CodeStart() uint32             { return 0 }
func (fakeROM) CodeSize() uint32              { return 0 }
func (fakeROM) RODataStart() uint32           { return 0 }
func (fakeROM) RODataSize() uint32            { return 0 }
func (fakeROM) ReadWord(uint32) (uint32, bool) { return 0, false }

// fakeLinker records whether either branch resolution path was invoked,
// without needing a real module builder's block graph.
type fakeLinker struct {
	wroteConst  bool
	constTarget uint32
	readPC      bool
}

func (f *fakeLinker) BranchWritePCConst(b *irbuild.Block, target uint32) {
	f.wroteConst = true
	f.constTarget = target
}

func (f *fakeLinker) BranchReadPC(b *irbuild.Block) {
	f.readPC = true
}

func newTestContext(t *testing.T) (*Context, *fakeLinker) {
	t.Helper()
	bld := irbuild.NewBuilder("instr_test", false)
	tags := alias.NewTags()
	st := machine.New(bld, tags)
	fn := bld.NewVoidFunc("test")
	blk := fn.NewBlock("entry")
	linker := &fakeLinker{}
	return &Context{Block: blk, State: st, ROM: fakeROM{}, Linker: linker}, linker
}
