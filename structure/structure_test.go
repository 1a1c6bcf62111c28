package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/ast"
	"github.com/wudi/hlbcgo/cfg"
	"github.com/wudi/hlbcgo/lift"
)

func cond(pc int) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprConstant, ConstantVal: &ast.Constant{Kind: ast.InlineInt, InlineVal: int32(pc)}}
}

func stmt(n int) *ast.Statement {
	return &ast.Statement{Kind: ast.StmtComment, Comment: "s"}
}

func TestBuild_IfElseWithMerge(t *testing.T) {
	items := []lift.Item{
		{Kind: lift.ItemCondBranch, PC: 0, Cond: cond(0), Target: 3},
		{Kind: lift.ItemStatement, PC: 1, Stmt: stmt(1)},
		{Kind: lift.ItemJump, PC: 2, Target: 4},
		{Kind: lift.ItemStatement, PC: 3, Stmt: stmt(3)},
		{Kind: lift.ItemStatement, PC: 4, Stmt: stmt(4)},
	}
	out := Build(items, &cfg.Graph{})
	require.Len(t, out, 2)

	ifElse := out[0]
	assert.Equal(t, ast.StmtIfElse, ifElse.Kind)
	require.Len(t, ifElse.IfElseVal.If, 1)
	require.Len(t, ifElse.IfElseVal.Else, 1)
	assert.Equal(t, out[1].Kind, ast.StmtComment)
}

func TestBuild_TrapCatchPairing(t *testing.T) {
	items := []lift.Item{
		{Kind: lift.ItemTrap, PC: 0, Target: 3},
		{Kind: lift.ItemStatement, PC: 1, Stmt: stmt(1)},
		{Kind: lift.ItemEndTrap, PC: 2},
		{Kind: lift.ItemStatement, PC: 3, Stmt: stmt(3)},
	}
	g := &cfg.Graph{Traps: []cfg.TrapRegion{{TrapPC: 0, EndTrapPC: 2, CatchPC: 3}}}
	out := Build(items, g)
	require.Len(t, out, 2)
	assert.Equal(t, ast.StmtTry, out[0].Kind)
	require.Len(t, out[0].Body, 1)
	assert.Equal(t, ast.StmtCatch, out[1].Kind)
	require.Len(t, out[1].Body, 1)
}

func TestRun_BreakWhenTargetIsLoopExit(t *testing.T) {
	b := &builder{
		items: []lift.Item{{Kind: lift.ItemCondBranch, PC: 0, Cond: cond(0), Target: 5}},
		graph: &cfg.Graph{},
		byPC:  map[int]int{0: 0},
	}
	out, consumed := b.run(0, 1, 5)
	require.Len(t, out, 1)
	assert.Equal(t, ast.StmtIfElse, out[0].Kind)
	require.Len(t, out[0].IfElseVal.If, 1)
	assert.Equal(t, ast.StmtBreak, out[0].IfElseVal.If[0].Kind)
	assert.Equal(t, 1, consumed)
}

func TestBuild_SwitchCasesSplitOnBounds(t *testing.T) {
	items := []lift.Item{
		{Kind: lift.ItemSwitch, PC: 0, SwitchArg: cond(0), SwitchCases: []int{1, 2}, SwitchEnd: 3},
		{Kind: lift.ItemStatement, PC: 1, Stmt: stmt(1)},
		{Kind: lift.ItemStatement, PC: 2, Stmt: stmt(2)},
	}
	out := Build(items, &cfg.Graph{})
	require.Len(t, out, 1)
	require.Equal(t, ast.StmtSwitch, out[0].Kind)
	require.Len(t, out[0].SwitchVal.Cases, 2)
	assert.Len(t, out[0].SwitchVal.Cases[0].Body, 1)
	assert.Len(t, out[0].SwitchVal.Cases[1].Body, 1)
}
