package opcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/pool"
)

func TestDecodeFunction_IntegerAdd(t *testing.T) {
	instrs := []Instruction{
		{Op: Int, PC: 0, Dst: 1, IntRef: 0},
		{Op: Int, PC: 1, Dst: 2, IntRef: 1},
		{Op: Add, PC: 2, Dst: 3, A: 1, B: 2},
		{Op: Ret, PC: 3, A: 3},
	}
	data := EncodeFunction(instrs)

	decoded, err := DecodeFunction(data, len(instrs))
	require.NoError(t, err)
	require.Len(t, decoded, len(instrs))

	for i, want := range instrs {
		got := decoded[i]
		assert.Equal(t, want.Op, got.Op, "instruction %d op", i)
		assert.Equal(t, want.Dst, got.Dst, "instruction %d dst", i)
		assert.Equal(t, want.A, got.A, "instruction %d a", i)
		assert.Equal(t, want.B, got.B, "instruction %d b", i)
		assert.Equal(t, want.IntRef, got.IntRef, "instruction %d intref", i)
	}
}

func TestDecodeFunction_UnknownOpcode(t *testing.T) {
	data := []byte{byte(opCount)} // out of range tag
	_, err := DecodeFunction(data, 1)
	require.Error(t, err)
}

func TestDecodeFunction_Truncated(t *testing.T) {
	data := []byte{byte(Int)} // missing dst/intref operands
	_, err := DecodeFunction(data, 1)
	require.Error(t, err)
}

func TestRoundTrip_AllSimpleVariants(t *testing.T) {
	cases := []Instruction{
		{Op: Mov, Dst: 0, A: 1},
		{Op: Bool, Dst: 0, BoolVal: true},
		{Op: Null, Dst: 2},
		{Op: Add, Dst: 0, A: 1, B: 2},
		{Op: Incr, Dst: 5},
		{Op: Call0, Dst: 0, FunRef: 7},
		{Op: CallN, Dst: 0, FunRef: 7, Args: []pool.Reg{1, 2, 3}},
		{Op: GetGlobal, Dst: 0, GlobalRef: 4},
		{Op: SetGlobal, GlobalRef: 4, A: 1},
		{Op: Field, Dst: 0, A: 1, FieldRef: 2},
		{Op: JAlways, Offset: 3},
		{Op: JSGt, A: 1, B: 2, Offset: -4},
		{Op: Ret, A: 1},
		{Op: Switch, A: 0, Offsets: []JumpOffset{1, 2, 3}, End: 4},
		{Op: MakeEnum, Dst: 0, Construct: 2, Args: []pool.Reg{1, 2}},
		{Op: Label},
		{Op: Nop},
	}

	for pc := range cases {
		cases[pc].PC = pc
	}

	data := EncodeFunction(cases)
	decoded, err := DecodeFunction(data, len(cases))
	require.NoError(t, err)
	require.Len(t, decoded, len(cases))

	for i, want := range cases {
		assert.Equalf(t, want, decoded[i], "instruction %d (%s) round-trip mismatch", i, want.Op)
	}
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "Add", Add.String())
	assert.Equal(t, "Unknown", Op(255).String())
}

func TestOp_IsJump(t *testing.T) {
	assert.True(t, JAlways.IsJump())
	assert.True(t, JEq.IsJump())
	assert.False(t, Add.IsJump())
	assert.False(t, JAlways.IsConditionalJump())
	assert.True(t, JEq.IsConditionalJump())
}

func TestInstruction_Target(t *testing.T) {
	inst := Instruction{PC: 10, Offset: 5}
	assert.Equal(t, 16, inst.Target())
}

func TestInstruction_SwitchTargets(t *testing.T) {
	inst := Instruction{PC: 10, Offsets: []JumpOffset{0, 2, 4}, End: 6}
	cases, end := inst.SwitchTargets()
	assert.Equal(t, []int{11, 13, 15}, cases)
	assert.Equal(t, 17, end)
}
