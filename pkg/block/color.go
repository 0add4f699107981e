// Block coloring groups the basic-block graph into connected components
// ("colors") and emits one dispatch function per color, each a
// switch(index) over its member instructions' entry blocks. This mirrors
// BlockColors.cpp: a stack-based flood fill over the undirected union of
// preds and succs (so two instructions reachable from each other by
// either a forward or backward edge land in the same function — LLVM
// basic blocks must all belong to exactly one function), followed by a
// per-color Function with an unreachable default case.
package block

import (
	"github.com/bassosimone/armxlate/pkg/irbuild"
)

// Coloring partitions a set of Blocks into colors and builds one
// dispatch function per color.
type Coloring struct {
	bld    *irbuild.Builder
	colors [][]*Block
	funcs  []*irbuild.Func
}

// NewColoring creates an empty coloring bound to bld's module.
func NewColoring(bld *irbuild.Builder) *Coloring {
	return &Coloring{bld: bld}
}

// AddBlock assigns blk (and everything reachable from it via preds or
// succs) a fresh color, unless it already has one.
func (c *Coloring) AddBlock(blk *Block) {
	if blk.HasColor() {
		return
	}

	color := len(c.colors)
	c.colors = append(c.colors, nil)

	stack := []*Block{blk}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.HasColor() {
			continue
		}
		item.SetColor(color)
		c.colors[color] = append(c.colors[color], item)

		for _, next := range item.Nexts() {
			if !next.HasColor() {
				stack = append(stack, next)
			}
		}
		for _, prev := range item.Prevs() {
			if !prev.HasColor() {
				stack = append(stack, prev)
			}
		}
	}
}

// ColorCount returns the number of colors assigned so far.
func (c *Coloring) ColorCount() int { return len(c.colors) }

// GenerateFunctions builds one dispatch function per color: an Entry
// block holding a switch over the color's instructions (indexed in
// assignment order) and a Default block that's unreachable, since the
// only indices ever dispatched are the member positions AddBlock
// assigned to this color.
func (c *Coloring) GenerateFunctions() []*irbuild.Func {
	funcs := make([]*irbuild.Func, 0, len(c.colors))
	for _, color := range c.colors {
		fn := c.bld.NewDispatchFunc("ColorFunction")

		entry := irbuild.NewBlock("Entry")
		def := irbuild.NewBlock("Default")
		def.NewUnreachable()
		irbuild.AppendBlock(fn, entry)
		irbuild.AppendBlock(fn, def)

		index := fn.Params[0]
		cases := make([]*irbuild.Case, 0, len(color))
		seen := make(map[*irbuild.Block]bool)
		for i, instBlk := range color {
			cases = append(cases, irbuild.NewCase(irbuild.ConstI32(int64(i)), instBlk.EntryBlock()))
			c.addBasicBlocksToFunc(fn, instBlk.EntryBlock(), seen)
		}
		entry.NewSwitch(index, def, cases...)

		funcs = append(funcs, fn)
	}
	c.funcs = funcs
	return funcs
}

// FunctionFor returns the dispatch function owning blk and blk's index
// within that function's switch — the `(color.function,
// block_index_within_color)` pair spec.md §4.9 phase 7 writes into the
// block-address array. Only valid after GenerateFunctions has run.
func (c *Coloring) FunctionFor(blk *Block) (*irbuild.Func, int) {
	if !blk.HasColor() {
		return nil, 0
	}
	color := blk.Color()
	for i, member := range c.colors[color] {
		if member == blk {
			return c.funcs[color], i
		}
	}
	return nil, 0
}

// addBasicBlocksToFunc walks a color member's entry block forward
// through its terminator's successors, attaching every reachable block
// to fn exactly once — the Go equivalent of
// BlockColors::AddBasicBlocksToFunction's stack-based walk. seen is
// shared across every member of the same color, the Go stand-in for
// the C++ walk's getParent() != nullptr global dedup check, since a
// block reachable from one member's entry is often reachable from
// another member's entry too.
func (c *Coloring) addBasicBlocksToFunc(fn *irbuild.Func, entry *irbuild.Block, seen map[*irbuild.Block]bool) {
	stack := []*irbuild.Block{entry}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[top] {
			continue
		}
		seen[top] = true
		irbuild.AppendBlock(fn, top)
		for _, next := range irbuild.Successors(top) {
			if !seen[next] {
				stack = append(stack, next)
			}
		}
	}
}
