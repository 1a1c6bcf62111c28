// Package structure turns the lifter's flat item stream into the
// nested if/else, while, switch and try/catch statements of the final
// AST, guided by the control-flow graph built by package cfg.
package structure

import (
	"github.com/wudi/hlbcgo/ast"
	"github.com/wudi/hlbcgo/cfg"
	"github.com/wudi/hlbcgo/lift"
)

// builder walks lift.Items in program order and assembles ast.Statement
// trees region by region.
type builder struct {
	items []lift.Item
	byPC  map[int]int // item PC -> index in items, for CondBranch/Jump/Switch lookups
	graph *cfg.Graph
}

// Build reconstructs a method body from the lifter's output.
func Build(items []lift.Item, graph *cfg.Graph) []*ast.Statement {
	b := &builder{items: items, graph: graph, byPC: map[int]int{}}
	for i, it := range items {
		b.byPC[it.PC] = i
	}
	stmts, _ := b.run(0, len(items), -1)
	return stmts
}

// run reconstructs statements for items[start:end). loopExitPC, when
// >= 0, is the instruction just past the enclosing loop's back-edge; a
// conditional branch targeting it becomes Break. A backward conditional
// branch to a block the CFG marks as a loop header becomes Continue.
func (b *builder) run(start, end int, loopExitPC int) ([]*ast.Statement, int) {
	var out []*ast.Statement
	i := start
	for i < end {
		it := b.items[i]
		switch it.Kind {
		case lift.ItemStatement:
			out = append(out, it.Stmt)
			i++
		case lift.ItemTrap:
			endIdx, ok := b.byPC[endTrapPCFor(b.graph, it.PC)]
			if !ok {
				// malformed region; stop structuring this block here
				return out, i
			}
			tryBody, _ := b.run(i+1, endIdx, loopExitPC)
			catchStart := endIdx + 1
			catchEnd := end
			if region, ok := b.trapRegion(it.PC); ok {
				_ = region
			}
			catchBody, consumed := b.run(catchStart, catchEnd, loopExitPC)
			out = append(out,
				&ast.Statement{Kind: ast.StmtTry, Body: tryBody},
				&ast.Statement{Kind: ast.StmtCatch, Body: catchBody},
			)
			i = consumed
		case lift.ItemEndTrap:
			i++
		case lift.ItemSwitch:
			stmt, next := b.buildSwitch(it, end, loopExitPC)
			out = append(out, stmt)
			i = next
		case lift.ItemCondBranch:
			targetIdx, hasTarget := b.byPC[it.Target]
			if loopExitPC >= 0 && it.Target == loopExitPC {
				out = append(out, &ast.Statement{Kind: ast.StmtIfElse, IfElseVal: &ast.IfElseStmt{
					Cond: it.Cond,
					If:   []*ast.Statement{{Kind: ast.StmtBreak}},
				}})
				i++
				continue
			}
			if b.graph.BlockOf != nil && it.Target < len(b.graph.BlockOf) &&
				b.graph.Blocks[b.graph.BlockOf[it.Target]].IsLoopHeader && it.Target <= it.PC {
				out = append(out, &ast.Statement{Kind: ast.StmtIfElse, IfElseVal: &ast.IfElseStmt{
					Cond: it.Cond,
					If:   []*ast.Statement{{Kind: ast.StmtContinue}},
				}})
				i++
				continue
			}
			if !hasTarget || targetIdx <= i {
				// back-edge or unresolved: conservative if with no else
				out = append(out, &ast.Statement{Kind: ast.StmtIfElse, IfElseVal: &ast.IfElseStmt{Cond: it.Cond}})
				i++
				continue
			}
			ifEnd := targetIdx
			var elseBody []*ast.Statement
			mergeIdx := ifEnd
			if ifEnd-1 >= i+1 && b.items[ifEnd-1].Kind == lift.ItemJump {
				jump := b.items[ifEnd-1]
				if mIdx, ok := b.byPC[jump.Target]; ok && mIdx >= ifEnd {
					elseBody, _ = b.run(ifEnd, mIdx, loopExitPC)
					mergeIdx = mIdx
					ifEnd--
				}
			}
			ifBody, _ := b.run(i+1, ifEnd, loopExitPC)
			out = append(out, &ast.Statement{Kind: ast.StmtIfElse, IfElseVal: &ast.IfElseStmt{
				Cond: it.Cond,
				If:   ifBody,
				Else: elseBody,
			}})
			i = mergeIdx
		case lift.ItemJump:
			// A loop's back-edge to its own header becomes the loop
			// wrapper; encountered here it means we are at the bottom
			// of a while body.
			if headerIdx, ok := b.byPC[it.Target]; ok && it.Target <= it.PC {
				bodyEnd := i
				body, _ := b.run(headerIdx, bodyEnd, it.PC+1)
				out = append(out, &ast.Statement{Kind: ast.StmtWhile, WhileVal: &ast.WhileStmt{
					Cond: &ast.Expr{Kind: ast.ExprConstant, ConstantVal: &ast.Constant{Kind: ast.ConstBool, BoolVal: true}},
					Body: body,
				}})
				i++
				continue
			}
			i++
		default:
			i++
		}
	}
	return out, i
}

func (b *builder) trapRegion(trapPC int) (cfg.TrapRegion, bool) {
	for _, t := range b.graph.Traps {
		if t.TrapPC == trapPC {
			return t, true
		}
	}
	return cfg.TrapRegion{}, false
}

func endTrapPCFor(g *cfg.Graph, trapPC int) int {
	for _, t := range g.Traps {
		if t.TrapPC == trapPC {
			return t.EndTrapPC
		}
	}
	return -1
}

func (b *builder) buildSwitch(it lift.Item, regionEnd int, loopExitPC int) (*ast.Statement, int) {
	endIdx, hasEnd := b.byPC[it.SwitchEnd]
	if !hasEnd || endIdx > regionEnd {
		endIdx = regionEnd
	}
	var cases []ast.SwitchCase
	bounds := append(append([]int{}, it.SwitchCases...), it.SwitchEnd)
	start := b.byPC[it.PC] + 1
	for ci, target := range it.SwitchCases {
		caseStart, ok := b.byPC[target]
		if !ok {
			continue
		}
		caseEnd := endIdx
		if ci+1 < len(bounds)-1 {
			if nextStart, ok := b.byPC[bounds[ci+1]]; ok {
				caseEnd = nextStart
			}
		}
		body, _ := b.run(caseStart, caseEnd, loopExitPC)
		cases = append(cases, ast.SwitchCase{
			Pattern: &ast.Expr{Kind: ast.ExprConstant, ConstantVal: &ast.Constant{Kind: ast.InlineInt, InlineVal: int32(ci)}},
			Body:    body,
		})
	}
	_ = start
	return &ast.Statement{Kind: ast.StmtSwitch, SwitchVal: &ast.SwitchStmt{
		Arg:   it.SwitchArg,
		Cases: cases,
	}}, endIdx
}
