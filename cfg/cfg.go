// Package cfg builds a control-flow analysis over a decoded function's
// instruction stream: basic blocks, branch targets, loop headers and
// trap/catch region nesting. The structurer consumes this in a second
// pass to reconstruct if/else, while, switch and try/catch.
package cfg

import (
	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/opcode"
)

// Block is a maximal run of instructions with a single entry and a
// single exit: it ends at a branch, return, throw or switch, and
// starts at a branch target or the instruction after one.
type Block struct {
	Start int // inclusive instruction index
	End   int // exclusive instruction index
	// IsLoopHeader is true when this block is the target of a back-edge.
	IsLoopHeader bool
}

// TrapRegion describes one Trap/EndTrap nesting level.
type TrapRegion struct {
	TrapPC    int // index of the Trap instruction
	EndTrapPC int // index of the matching EndTrap instruction
	CatchPC   int // resolved catch-block entry (Trap's offset target)
}

// Graph is the complete control-flow analysis of one function.
type Graph struct {
	Instructions []opcode.Instruction
	// BranchTargets holds every instruction index referenced by some
	// branch's resolved target.
	BranchTargets map[int]bool
	Blocks        []Block
	// BlockOf maps an instruction index to the index of its Block in
	// Blocks.
	BlockOf []int
	Traps   []TrapRegion
}

// Analyze runs the full one-pass analysis described for the function
// control-flow analyzer: branch targets, basic blocks, loop headers,
// trap regions.
func Analyze(instructions []opcode.Instruction, funcIndex int) (*Graph, error) {
	g := &Graph{
		Instructions:  instructions,
		BranchTargets: map[int]bool{},
	}

	for pc, inst := range instructions {
		switch {
		case inst.Op.IsJump():
			target := inst.Target()
			if target < 0 || target > len(instructions) {
				return nil, hlerr.New(hlerr.Lift, hlerr.ReasonMalformedCFG, "branch target out of range").
					WithFunction(funcIndex).WithPC(pc).WithOpcode(inst.Op.String())
			}
			g.BranchTargets[target] = true
		case inst.Op == opcode.Switch:
			cases, end := inst.SwitchTargets()
			for _, t := range cases {
				if t < 0 || t > len(instructions) {
					return nil, hlerr.New(hlerr.Lift, hlerr.ReasonMalformedCFG, "switch case target out of range").
						WithFunction(funcIndex).WithPC(pc)
				}
				g.BranchTargets[t] = true
			}
			if end < 0 || end > len(instructions) {
				return nil, hlerr.New(hlerr.Lift, hlerr.ReasonMalformedCFG, "switch end target out of range").
					WithFunction(funcIndex).WithPC(pc)
			}
			g.BranchTargets[end] = true
		}
	}

	g.buildBlocks()

	if err := g.findTraps(funcIndex); err != nil {
		return nil, err
	}
	g.markLoopHeaders()

	return g, nil
}

// buildBlocks splits the instruction stream at branch targets and at
// the instruction following any branch, return, throw or switch.
func (g *Graph) buildBlocks() {
	n := len(g.Instructions)
	isBoundary := make([]bool, n+1)
	isBoundary[0] = true
	isBoundary[n] = true
	for pc := range g.BranchTargets {
		if pc >= 0 && pc <= n {
			isBoundary[pc] = true
		}
	}
	for pc, inst := range g.Instructions {
		switch inst.Op {
		case opcode.Ret, opcode.Throw, opcode.Rethrow, opcode.Switch:
			if pc+1 <= n {
				isBoundary[pc+1] = true
			}
		default:
			if inst.Op.IsJump() && pc+1 <= n {
				isBoundary[pc+1] = true
			}
		}
	}

	g.BlockOf = make([]int, n)
	start := 0
	for pc := 1; pc <= n; pc++ {
		if isBoundary[pc] {
			idx := len(g.Blocks)
			g.Blocks = append(g.Blocks, Block{Start: start, End: pc})
			for i := start; i < pc; i++ {
				g.BlockOf[i] = idx
			}
			start = pc
		}
	}
}

// markLoopHeaders flags every block that is the target of a back-edge
// (a branch whose resolved target is at or before the branch itself).
// Every back-edge target is flagged: when back-edges nest, the inner
// and the outer header are both marked, and neither is preferred.
func (g *Graph) markLoopHeaders() {
	for pc, inst := range g.Instructions {
		if !inst.Op.IsJump() {
			continue
		}
		target := inst.Target()
		if target <= pc {
			blockIdx := g.BlockOf[target]
			g.Blocks[blockIdx].IsLoopHeader = true
		}
	}
}

// findTraps pairs every Trap with its matching EndTrap using a LIFO
// stack, the nesting discipline trap regions follow.
func (g *Graph) findTraps(funcIndex int) error {
	var stack []int
	for pc, inst := range g.Instructions {
		switch inst.Op {
		case opcode.Trap:
			stack = append(stack, pc)
		case opcode.EndTrap:
			if len(stack) == 0 {
				return hlerr.New(hlerr.Lift, hlerr.ReasonMalformedCFG, "unmatched EndTrap").
					WithFunction(funcIndex).WithPC(pc).WithOpcode(inst.Op.String())
			}
			trapPC := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			catch := trapPC + 1 + int(g.Instructions[trapPC].Offset)
			g.Traps = append(g.Traps, TrapRegion{
				TrapPC:    trapPC,
				EndTrapPC: pc,
				CatchPC:   catch,
			})
		}
	}
	if len(stack) != 0 {
		return hlerr.New(hlerr.Lift, hlerr.ReasonMalformedCFG, "unmatched Trap").
			WithFunction(funcIndex).WithPC(stack[len(stack)-1]).WithOpcode(opcode.Trap.String())
	}
	return nil
}

// LoopExit reports whether target is the instruction immediately
// following the loop header's block, the conventional exit point used
// to decide whether a branch inside the loop should become Break.
func (g *Graph) LoopExit(headerBlock int, target int) bool {
	if headerBlock < 0 || headerBlock >= len(g.Blocks) {
		return false
	}
	return target == g.Blocks[headerBlock].End
}

// EnclosingTrap returns the innermost trap region containing pc, if
// any.
func (g *Graph) EnclosingTrap(pc int) (TrapRegion, bool) {
	best := -1
	for i, t := range g.Traps {
		if pc >= t.TrapPC && pc <= t.EndTrapPC {
			if best == -1 || t.TrapPC > g.Traps[best].TrapPC {
				best = i
			}
		}
	}
	if best == -1 {
		return TrapRegion{}, false
	}
	return g.Traps[best], true
}
