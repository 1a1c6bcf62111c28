package decompiler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/ast"
	"github.com/wudi/hlbcgo/opcode"
	"github.com/wudi/hlbcgo/pool"
)

func sampleModule() *Module {
	p := &pool.Pool{
		Strings: []string{"Main", "add"},
		Types: []pool.Type{
			{Kind: pool.I32},
			{Kind: pool.Function, Fun: pool.FunSignature{Args: []pool.RefType{0, 0}, Ret: 0}},
			{Kind: pool.Object, Name: 0},
		},
		Funcs: []pool.FunctionProto{
			{Type: 1, Name: 1, RegCount: 3},
		},
		Classes: []pool.ClassDef{
			{Type: 2, Methods: []pool.MethodDef{{Fun: 0, Static: true}}},
		},
	}
	instrs := []opcode.Instruction{
		{Op: opcode.Add, Dst: 2, A: 0, B: 1},
		{Op: opcode.Ret, A: 2},
	}
	for pc := range instrs {
		instrs[pc].PC = pc
	}
	return &Module{Pool: p, Instructions: [][]opcode.Instruction{instrs}}
}

func TestDecompileMethod_ReturnsFoldedExpression(t *testing.T) {
	m := sampleModule()
	method, err := m.DecompileMethod(0)
	require.NoError(t, err)
	require.Len(t, method.Statements, 1)
	assert.Equal(t, ast.StmtReturn, method.Statements[0].Kind)
}

func TestDecompileMethod_OutOfRangeFunction(t *testing.T) {
	m := sampleModule()
	_, err := m.DecompileMethod(99)
	require.Error(t, err)
}

func TestDecompileClass_AssemblesFieldsAndMethods(t *testing.T) {
	m := sampleModule()
	class, err := m.DecompileClass(2)
	require.NoError(t, err)
	assert.Equal(t, "Main", class.Name)
	require.Len(t, class.Methods, 1)
	assert.True(t, class.Methods[0].Static)
}

func TestFindClassByName(t *testing.T) {
	m := sampleModule()
	ref, err := m.FindClassByName("Main")
	require.NoError(t, err)
	assert.Equal(t, pool.RefType(2), ref)

	_, err = m.FindClassByName("Nope")
	require.Error(t, err)
}

func TestRender_ClassAndMethod(t *testing.T) {
	m := sampleModule()
	class, err := m.DecompileClass(2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf, class, nil))
	assert.Contains(t, buf.String(), "class Main")

	buf.Reset()
	require.NoError(t, m.Render(&buf, class.Methods[0], nil))
	assert.Contains(t, buf.String(), "function add(")
}

func TestRender_RejectsUnsupportedType(t *testing.T) {
	m := sampleModule()
	err := m.Render(&bytes.Buffer{}, 42, nil)
	require.Error(t, err)
}
