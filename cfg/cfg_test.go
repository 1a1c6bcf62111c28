package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/opcode"
)

func instrs(ops ...opcode.Instruction) []opcode.Instruction {
	for pc := range ops {
		ops[pc].PC = pc
	}
	return ops
}

func TestAnalyze_IfElseSplitsBlocks(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.JFalse, A: 0, Offset: 2},
		opcode.Instruction{Op: opcode.Nop},
		opcode.Instruction{Op: opcode.JAlways, Offset: 1},
		opcode.Instruction{Op: opcode.Nop},
		opcode.Instruction{Op: opcode.Ret, A: 0},
	)
	g, err := Analyze(is, 0)
	require.NoError(t, err)

	assert.True(t, g.BranchTargets[3])
	assert.True(t, g.BranchTargets[4])
	assert.Greater(t, len(g.Blocks), 1)
	assert.Equal(t, len(is), len(g.BlockOf))
}

func TestAnalyze_BackEdgeMarksLoopHeader(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.Nop},            // 0: loop header
		opcode.Instruction{Op: opcode.JTrue, A: 0, Offset: 1}, // 1: exits loop
		opcode.Instruction{Op: opcode.JAlways, Offset: -3},    // 2: back-edge to 0
		opcode.Instruction{Op: opcode.Ret, A: 0},              // 3
	)
	g, err := Analyze(is, 0)
	require.NoError(t, err)

	headerBlock := g.BlockOf[0]
	assert.True(t, g.Blocks[headerBlock].IsLoopHeader)
}

func TestAnalyze_OutOfRangeTargetErrors(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.JAlways, Offset: 100},
	)
	_, err := Analyze(is, 0)
	require.Error(t, err)
}

func TestAnalyze_TrapRegionsPairUp(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.Trap, Dst: 1, Offset: 2},
		opcode.Instruction{Op: opcode.Nop},
		opcode.Instruction{Op: opcode.EndTrap, A: 1},
		opcode.Instruction{Op: opcode.Ret, A: 0},
		opcode.Instruction{Op: opcode.Throw, A: 1},
	)
	g, err := Analyze(is, 0)
	require.NoError(t, err)
	require.Len(t, g.Traps, 1)
	assert.Equal(t, 0, g.Traps[0].TrapPC)
	assert.Equal(t, 2, g.Traps[0].EndTrapPC)
	assert.Equal(t, 3, g.Traps[0].CatchPC)

	region, ok := g.EnclosingTrap(1)
	assert.True(t, ok)
	assert.Equal(t, 0, region.TrapPC)

	_, ok = g.EnclosingTrap(4)
	assert.False(t, ok)
}

func TestAnalyze_UnmatchedEndTrap(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.EndTrap, A: 0},
	)
	_, err := Analyze(is, 0)
	require.Error(t, err)
}

func TestAnalyze_UnmatchedTrap(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.Trap, Dst: 0, Offset: 1},
		opcode.Instruction{Op: opcode.Ret, A: 0},
	)
	_, err := Analyze(is, 0)
	require.Error(t, err)
}

func TestGraph_LoopExit(t *testing.T) {
	is := instrs(
		opcode.Instruction{Op: opcode.Nop},
		opcode.Instruction{Op: opcode.JAlways, Offset: -2},
		opcode.Instruction{Op: opcode.Ret, A: 0},
	)
	g, err := Analyze(is, 0)
	require.NoError(t, err)

	headerBlock := g.BlockOf[0]
	assert.True(t, g.LoopExit(headerBlock, g.Blocks[headerBlock].End))
	assert.False(t, g.LoopExit(headerBlock, 999))
}
