package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/decompiler"
	"github.com/wudi/hlbcgo/opcode"
	"github.com/wudi/hlbcgo/pool"
)

func sampleModule() *decompiler.Module {
	p := &pool.Pool{
		Strings: []string{"Main", "run"},
		Types: []pool.Type{
			{Kind: pool.Void},
			{Kind: pool.Function, Fun: pool.FunSignature{Ret: 0}},
			{Kind: pool.Object, Name: 0},
		},
		Funcs: []pool.FunctionProto{
			{Type: 1, Name: 1, RegCount: 1},
		},
		Classes: []pool.ClassDef{
			{Type: 2, Methods: []pool.MethodDef{{Fun: 0, Static: true}}},
		},
	}
	instrs := []opcode.Instruction{{Op: opcode.Ret}}
	return &decompiler.Module{Pool: p, Instructions: [][]opcode.Instruction{instrs}}
}

func TestSelection_String(t *testing.T) {
	assert.Equal(t, "module", selection{}.String())
	assert.Equal(t, "Main", selection{className: "Main"}.String())
	assert.Equal(t, "Main.run", selection{className: "Main", methodName: "run"}.String())
}

func TestRunInspectCommand_ClassAndMethodNarrowSelection(t *testing.T) {
	mod := sampleModule()
	sel := selection{}

	require.NoError(t, runInspectCommand(mod, &sel, "class Main"))
	assert.Equal(t, "Main", sel.className)
	assert.Equal(t, "", sel.methodName)

	require.NoError(t, runInspectCommand(mod, &sel, "method run"))
	assert.Equal(t, "run", sel.methodName)

	require.NoError(t, runInspectCommand(mod, &sel, "class Other"))
	assert.Equal(t, "", sel.methodName, "selecting a new class clears the prior method selection")
}

func TestRunInspectCommand_UnknownCommandErrors(t *testing.T) {
	mod := sampleModule()
	sel := selection{}
	err := runInspectCommand(mod, &sel, "bogus")
	require.Error(t, err)
}

func TestRunInspectCommand_ClassRequiresName(t *testing.T) {
	mod := sampleModule()
	sel := selection{}
	err := runInspectCommand(mod, &sel, "class")
	require.Error(t, err)
}

func TestShowSelection_NoClassSelectedErrors(t *testing.T) {
	mod := sampleModule()
	err := showSelection(mod, selection{})
	require.Error(t, err)
}

func TestShowSelection_UnknownMethodErrors(t *testing.T) {
	mod := sampleModule()
	err := showSelection(mod, selection{className: "Main", methodName: "missing"})
	require.Error(t, err)
}

func TestShowSelection_RendersClassWhenNoMethodSelected(t *testing.T) {
	mod := sampleModule()
	err := showSelection(mod, selection{className: "Main"})
	require.NoError(t, err)
}
