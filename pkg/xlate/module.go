// Package xlate is the module builder: it owns the phase sequence that
// turns a decoded ROM image into a linked, colored IR module and the
// dispatch layer (GetBlockAddress/CanRun/Run) the runtime shim calls
// into. It is grounded on original_source/ModuleGen.{h,cpp}'s Run()
// phase ordering and on the teacher's decode-loop shape
// (pkg/vm.LoadBytecode's fetch/decode/execute split, generalized here
// into fetch/decode/link/color).
package xlate

import (
	"github.com/pkg/errors"

	"github.com/bassosimone/armxlate/pkg/alias"
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/block"
	"github.com/bassosimone/armxlate/pkg/instr"
	"github.com/bassosimone/armxlate/pkg/irbuild"
	"github.com/bassosimone/armxlate/pkg/machine"
)

// ErrMissingROMMetadata is the fatal error spec.md §7 names for a ROM
// image whose loader never published a code region: ROMCodeStart == 0
// is indistinguishable from "never set" for this loader's ABI.
var ErrMissingROMMetadata = errors.New("xlate: ROM image has no code region (ROMCodeStart == 0)")

// Module owns everything spec.md §3 assigns to the Module type: the
// machine-state facade, the alias-tag set, the per-block list in
// increasing-PC order, the PC→block map, and (after Build completes)
// the exported Run/CanRun/GetBlockAddress functions.
type Module struct {
	bld   *irbuild.Builder
	state *machine.State
	tags  *alias.Tags
	rom   instr.ROMInfo

	blocks []*block.Block
	byPC   map[uint32]*block.Block

	base   uint32
	length int

	coloring *block.Coloring

	getBlockAddressFn *irbuild.Func
	canRunFn          *irbuild.Func
	runFn             *irbuild.Func

	// currentBlock is the instruction block whose code is being
	// generated right now, tracked so BranchWritePCConst (called back
	// into from inside block.Block.GenerateCode) knows which block to
	// Link from when it resolves a direct branch target.
	currentBlock *block.Block
}

// Build runs the full module-builder phase sequence over rom, including
// coloring and block-address array population, and returns the finished
// Module, ready for VerifyIR and for writing out through its Builder's
// WriteTo.
func Build(bld *irbuild.Builder, rom instr.ROMInfo) (*Module, error) {
	if rom.CodeStart() == 0 {
		return nil, ErrMissingROMMetadata
	}

	tags := alias.NewTags()
	m := &Module{
		bld:   bld,
		state: machine.New(bld, tags),
		tags:  tags,
		rom:   rom,
		byPC:  make(map[uint32]*block.Block),
	}

	m.decode()
	m.generateEntryBlocks()
	m.declareDispatchSignatures()
	m.generateCode()
	m.color()
	m.buildBlockAddressArray()
	m.generateDispatchBodies()

	return m, nil
}

// decode implements phase 2: scan every word-aligned PC in the ROM's
// code region, skip zero words (an optimization, not a correctness
// requirement — a zero word usually disassembles to nothing useful
// anyway), and disassemble the rest, keeping only what succeeds.
func (m *Module) decode() {
	start, size := m.rom.CodeStart(), m.rom.CodeSize()
	for pc := start; pc < start+size; pc += 4 {
		word, ok := m.rom.ReadWord(pc)
		if !ok || word == 0 {
			continue
		}
		inst, ok := instr.Disassemble(word, pc)
		if !ok {
			continue
		}
		blk := block.New(m.state, inst)
		m.blocks = append(m.blocks, blk)
		m.byPC[pc] = blk
	}
}

// generateEntryBlocks implements phase 3: allocate every instruction's
// entry IR block before any code generation, so a direct branch to a
// later address has something to target.
func (m *Module) generateEntryBlocks() {
	for _, blk := range m.blocks {
		blk.GenerateEntryBlock()
	}
}

// declareDispatchSignatures implements phase 4: declare
// GetBlockAddress/CanRun/Run and the (still-sentinel) block-address
// array, derived from the ROM's code region per spec.md §3's
// `base = ROMCodeStart/4`, `length = ROMCodeSize/4`.
func (m *Module) declareDispatchSignatures() {
	m.base = m.rom.CodeStart() / 4
	m.length = int(m.rom.CodeSize() / 4)

	m.bld.NewBlockAddressArray(m.length)
	m.getBlockAddressFn = m.bld.NewFunc("GetBlockAddress", m.bld.BlockAddressType(), irbuild.NewParam("pc", irbuild.I32))
	m.canRunFn = m.bld.NewFunc("CanRun", irbuild.I1)
	m.runFn = m.bld.NewVoidFunc("Run")
}

// generateCode implements phase 5: generate every instruction block's
// code in PC order, with Module itself standing in as the instr.Linker
// that resolves BranchWritePCConst/BranchReadPC.
func (m *Module) generateCode() {
	for _, blk := range m.blocks {
		m.currentBlock = blk
		blk.GenerateCode(m, m.rom)
	}
	m.currentBlock = nil
}

// color implements phase 6: paint connected components and emit one
// dispatch function per color.
func (m *Module) color() {
	m.coloring = block.NewColoring(m.bld)
	for _, blk := range m.blocks {
		m.coloring.AddBlock(blk)
	}
	m.coloring.GenerateFunctions()
}

// buildBlockAddressArray implements phase 7: every slot already holds
// the sentinel from NewBlockAddressArray; overwrite the slot for each
// decoded block with its owning color's function and index.
func (m *Module) buildBlockAddressArray() {
	for _, blk := range m.blocks {
		fn, index := m.coloring.FunctionFor(blk)
		slot := int(blk.Address()/4 - m.base)
		m.bld.SetBlockAddress(slot, fn, index)
	}
}

// BranchWritePCConst implements instr.Linker, resolving
// ModuleGen::BranchWritePCConst exactly: in verify mode, or when the
// target doesn't name a decoded block, write PC and return; otherwise
// branch directly to the target block's entry and record the edge.
func (m *Module) BranchWritePCConst(b *irbuild.Block, target uint32) {
	if !m.bld.Verify() {
		if targetBlk, ok := m.byPC[target]; ok {
			b.NewBr(targetBlk.EntryBlock())
			block.Link(m.currentBlock, targetBlk)
			return
		}
	}
	m.state.WriteRegister(b, armreg.PC, irbuild.ConstAddr(target))
	b.NewRet(nil)
}

// BranchReadPC implements instr.Linker: tail-call Run in normal mode
// (PC was already written by the instruction), return in verify mode.
func (m *Module) BranchReadPC(b *irbuild.Block) {
	if m.bld.Verify() {
		b.NewRet(nil)
		return
	}
	b.NewCall(m.runFn)
	b.NewRet(nil)
}

// BlockAt returns the decoded block at pc, if any — used by tests to
// check the "decoded ⇔ non-sentinel block address" invariant without
// re-deriving the block-address array's layout by hand.
func (m *Module) BlockAt(pc uint32) (*block.Block, bool) {
	blk, ok := m.byPC[pc]
	return blk, ok
}

// Blocks returns the module's blocks in increasing-PC order.
func (m *Module) Blocks() []*block.Block { return m.blocks }

// ColorCount returns the number of dispatch functions the coloring
// phase produced.
func (m *Module) ColorCount() int { return m.coloring.ColorCount() }

// Builder returns the underlying IR builder, for writing the module out
// and for tests that need to inspect the produced module directly.
func (m *Module) Builder() *irbuild.Builder { return m.bld }
