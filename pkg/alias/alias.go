// Package alias attaches type-based-alias-analysis metadata to the loads
// and stores the translator emits against the register file, flag file
// and guest memory, so the downstream optimizer can prove that writes to
// one register never alias reads of another. The mechanism mirrors
// bin2ll's use of ir/metadata to tag a function with its source address
// (cmd/bin2ll/ll.go: Metadata: map[string]*metadata.Metadata{"addr": ...}).
package alias

import (
	"fmt"

	"github.com/llir/llvm/ir/metadata"

	"github.com/bassosimone/armxlate/pkg/armreg"
)

// Class identifies one alias-analysis equivalence class: one per
// register, one per flag, one for globals the module only reads (the
// register/flag base pointers and the block-address array), one for the
// per-block instruction-count counter, and one for guest memory.
type Class int

// The fixed set of alias classes. There are 16 GPR classes and 4 flag
// classes (one per armreg.Register in the GPR/flag ranges), plus three
// cross-cutting classes.
const (
	classRegisterBase Class = iota
	// classRegisterBase .. classRegisterBase+15 are R0..PC.
	classFlagBase = classRegisterBase + 16
	// classFlagBase .. classFlagBase+3 are N..V.
	ClassConst           = classFlagBase + 4
	ClassInstructionCount = ClassConst + 1
	ClassMemory           = ClassInstructionCount + 1
	numClasses            = ClassMemory + 1
)

// ForRegister returns the alias class for a general-purpose register.
func ForRegister(reg armreg.Register) Class {
	return classRegisterBase + Class(reg.GPRIndex())
}

// ForFlag returns the alias class for a condition flag.
func ForFlag(reg armreg.Register) Class {
	return classFlagBase + Class(reg.FlagIndex())
}

func (c Class) String() string {
	switch {
	case c >= classRegisterBase && c < classFlagBase:
		return fmt.Sprintf("reg.%s", armreg.Register(int(c-classRegisterBase)).String())
	case c >= classFlagBase && c < ClassConst:
		return fmt.Sprintf("flag.%s", armreg.Register(int(c-classFlagBase)+int(armreg.N)).String())
	case c == ClassConst:
		return "const"
	case c == ClassInstructionCount:
		return "icount"
	case c == ClassMemory:
		return "memory"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Tags is a cache of the metadata node for each alias class, built once
// per module and attached to every load/store this translator emits
// against that class's storage.
type Tags struct {
	nodes [numClasses]*metadata.Metadata
}

// NewTags builds the full set of alias-tag metadata nodes for a fresh
// module. Each node is a single named string, the same shape bin2ll uses
// for its "addr" metadata attachment.
func NewTags() *Tags {
	t := &Tags{}
	for c := Class(0); c < numClasses; c++ {
		t.nodes[c] = &metadata.Metadata{
			Nodes: []metadata.Node{&metadata.String{Val: c.String()}},
		}
	}
	return t
}

// Node returns the metadata node for the given alias class.
func (t *Tags) Node(c Class) *metadata.Metadata {
	return t.nodes[c]
}

// Attach attaches the alias-tag metadata for class c to the metadata map
// of a load or store instruction, under the "tbaa" key, the same way
// bin2ll attaches its "addr" key to a function's metadata map. Unlike
// bin2ll, which only ever sets Metadata via a struct literal at
// creation, this attaches to a map llir/llvm's own instruction
// constructors allocate — lazily and only when first read — so md takes
// the field's address and allocates the map itself when it is still
// nil, rather than assuming the constructor already did.
func Attach(md *map[string]*metadata.Metadata, t *Tags, c Class) {
	if *md == nil {
		*md = make(map[string]*metadata.Metadata)
	}
	(*md)["tbaa"] = t.Node(c)
}
