// Package instr holds the instruction registry and the per-kind decoders
// and IR lowerings. Every instruction kind implements Instruction; the
// registry tries each kind's decoder in a fixed order and returns the
// first one whose structural checks accept the word, mirroring
// Disassembler::Disassemble's "try each registered reader" loop
// (original_source/.../Disassembler.cpp) built here as an explicit
// ordered slice rather than global static registration, per spec.md
// §9's own stated preference for an explicit table.
package instr

import (
	"github.com/bassosimone/armxlate/pkg/armreg"
	"github.com/bassosimone/armxlate/pkg/irbuild"
	"github.com/bassosimone/armxlate/pkg/machine"
)

// Instruction is the tagged-variant interface every decoded ARM
// instruction satisfies; one concrete type exists per instruction kind
// (arithmetic.go, movshift.go, branch.go, load.go, store.go,
// multiply.go), the same one-struct-per-opcode shape as the teacher's
// pkg/asm/instruction.go InstructionADD/InstructionADDI family.
type Instruction interface {
	// Address is the instruction word's PC.
	Address() uint32
	// Cond is the 4-bit condition field decoded from the word.
	Cond() armreg.Condition
	// Mnemonic names the instruction kind, used for debug dumps.
	Mnemonic() string
	// Generate emits this instruction's semantics (the unconditional
	// body ARM's manual describes) into ctx.Block. The condition wrap,
	// instruction-count tick and implicit fallthrough are the caller's
	// responsibility (pkg/block), not this method's.
	Generate(ctx *Context)
}

// ROMInfo is the minimal view of the ROM image an instruction needs to
// lower PC-relative literal loads: the code/read-only-data extents used
// to decide whether a literal load can be inlined as a constant, and a
// raw word reader to fetch the literal's value when it can be.
type ROMInfo interface {
	CodeStart() uint32
	CodeSize() uint32
	RODataStart() uint32
	RODataSize() uint32
	ReadWord(addr uint32) (uint32, bool)
}

// Linker is the subset of the module builder instruction kinds call into
// to resolve a branch target: either link directly to an already-known
// instruction block (ModuleGen::BranchWritePCConst's "found" path) or
// fall back to writing PC and returning out of the enclosing dispatch
// function (the "not found"/BranchReadPC paths). Defined here, on the
// consumer side, so pkg/instr does not import pkg/xlate.
type Linker interface {
	// BranchWritePCConst resolves a constant branch target.
	BranchWritePCConst(b *irbuild.Block, target uint32)
	// BranchReadPC resolves a branch to a runtime-computed address
	// already written into the PC register.
	BranchReadPC(b *irbuild.Block)
}

// Context bundles everything an instruction's Generate method needs:
// the block being filled, the machine-state facade, the ROM image, and
// the branch linker.
type Context struct {
	Block  *irbuild.Block
	State  *machine.State
	ROM    ROMInfo
	Linker Linker
}

// DecodeFunc attempts to decode word (fetched from address addr) as one
// instruction kind, returning (nil, false) if the word's structural
// checks don't match.
type DecodeFunc func(word uint32, addr uint32) (Instruction, bool)

// registry is the explicit, ordered catalog of instruction-kind decoders.
// Order matters only in that more specific encodings (e.g. MovShift's
// Form::ImmediateA1/A2, which overlap data-processing's own opcode
// space) must be tried before or instead of the generic Arithmetic form
// they'd otherwise collide with; each decoder's own structural checks
// are exact enough that collisions do not occur in practice, but the
// order here matches the source tree's own file order for predictability.
var registry = []DecodeFunc{
	decodeMovShift,
	decodeArithmetic,
	decodeMultiply,
	decodeBranch,
	decodeLoad,
	decodeStore,
}

// Disassemble tries every registered decoder in order and returns the
// first successful decode. It returns (nil, false) if no kind accepts
// the word, the "unsupported opcode" non-fatal outcome spec.md §7
// describes.
func Disassemble(word uint32, addr uint32) (Instruction, bool) {
	for _, decode := range registry {
		if inst, ok := decode(word, addr); ok {
			return inst, true
		}
	}
	return nil, false
}
