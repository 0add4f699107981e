// Package block wraps one decoded instruction into the basic-block graph
// the module builder links and colors. It is grounded on
// InstructionBlock.{h,cpp} and Instructions/Instruction.cpp: each
// instruction gets its own entry basic block, named after its address,
// and GenerateCode wraps the instruction's unconditional body with the
// condition check and implicit fallthrough to the next address.
package block

import (
	"fmt"

	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/instr"
	"github.com/bassosimone/armxlate/pkg/irbuild"
	"github.com/bassosimone/armxlate/pkg/machine"
)

// Block is one instruction's basic-block wrapper: its entry block, the
// adjacency needed for coloring, and the machine-state facade it reads
// and writes through.
type Block struct {
	state *machine.State
	inst  instr.Instruction

	addrString string
	entry      *irbuild.Block

	hasColor bool
	color    int

	nexts []*Block
	prevs []*Block
}

// New wraps inst into a Block bound to state.
func New(state *machine.State, inst instr.Instruction) *Block {
	return &Block{
		state:      state,
		inst:       inst,
		addrString: fmt.Sprintf("%08x", inst.Address()),
	}
}

// Address is the wrapped instruction's address.
func (blk *Block) Address() uint32 { return blk.inst.Address() }

// EntryBlock returns the basic block instructions branch into to reach
// this instruction. Only valid after GenerateEntryBlock.
func (blk *Block) EntryBlock() *irbuild.Block { return blk.entry }

// GenerateEntryBlock creates the (still code-less, still parentless)
// basic block instructions link to.
func (blk *Block) GenerateEntryBlock() {
	blk.entry = irbuild.NewBlock(blk.addrString + "_Entry")
}

// GenerateCode implements InstructionBlock::GenerateCode plus
// Instruction::GenerateCode: it ticks the InstructionCount counter once
// at the top of the entry block, then — for an always-executed
// instruction (cond == AL) — lowers straight into the entry block;
// otherwise it splits into a Passed/NotPassed pair gated on
// ConditionPassed, lowers into Passed, falls through to NotPassed if
// Passed didn't already branch away, and continues from NotPassed. In
// either case, if the final block still isn't terminated, it falls
// through to the next instruction's address via the linker.
func (blk *Block) GenerateCode(linker instr.Linker, rom instr.ROMInfo) {
	cur := blk.entry
	blk.state.IncrementInstructionCount(cur)

	if blk.inst.Cond() == armreg.AL {
		blk.lower(cur, linker, rom)
	} else {
		pred := blk.state.ConditionPassed(cur, blk.inst.Cond())
		passed := irbuild.NewBlock(blk.addrString + "_Passed")
		notPassed := irbuild.NewBlock(blk.addrString + "_NotPassed")
		cur.NewCondBr(pred, passed, notPassed)

		blk.lower(passed, linker, rom)
		if !irbuild.Terminated(passed) {
			passed.NewBr(notPassed)
		}
		cur = notPassed
	}

	if !irbuild.Terminated(cur) {
		linker.BranchWritePCConst(cur, blk.Address()+4)
	}
}

func (blk *Block) lower(b *irbuild.Block, linker instr.Linker, rom instr.ROMInfo) {
	ctx := &instr.Context{Block: b, State: blk.state, ROM: rom, Linker: linker}
	blk.inst.Generate(ctx)
}

// Read reads a register in the context of this block's entry point, for
// callers (e.g. the module builder's prologue) that need to touch state
// outside of an instruction's own Generate.
func (blk *Block) Read(reg armreg.Register) irbuild.Value {
	return blk.state.ReadRegister(blk.entry, reg, true)
}

// Write writes a register in the context of this block's entry point.
func (blk *Block) Write(reg armreg.Register, value irbuild.Value) {
	blk.state.WriteRegister(blk.entry, reg, value)
}

// Link records a predecessor/successor edge between two adjacent
// instructions, the graph block coloring later floods over.
func Link(prev, next *Block) {
	prev.nexts = append(prev.nexts, next)
	next.prevs = append(next.prevs, prev)
}

// HasColor reports whether this block has already been assigned a color.
func (blk *Block) HasColor() bool { return blk.hasColor }

// Color returns the assigned color. Only valid after HasColor is true.
func (blk *Block) Color() int { return blk.color }

// SetColor assigns a color to this block.
func (blk *Block) SetColor(color int) {
	blk.color = color
	blk.hasColor = true
}

// Nexts returns this instruction's successor blocks.
func (blk *Block) Nexts() []*Block { return blk.nexts }

// Prevs returns this instruction's predecessor blocks.
func (blk *Block) Prevs() []*Block { return blk.prevs }
