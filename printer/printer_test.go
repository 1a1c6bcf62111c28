package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/ast"
	"github.com/wudi/hlbcgo/pool"
)

func constInt(v int32) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprConstant, ConstantVal: &ast.Constant{Kind: ast.InlineInt, InlineVal: v}}
}

func varExpr(name string) *ast.Expr {
	n := name
	return &ast.Expr{Kind: ast.ExprVariable, VarName: &n}
}

func basePool() *pool.Pool {
	return &pool.Pool{
		Strings: []string{"Main", "add", "run", "x", "total"},
		Types: []pool.Type{
			{Kind: pool.Void},
			{Kind: pool.I32},
			{Kind: pool.Function, Fun: pool.FunSignature{Args: []pool.RefType{1, 1}, Ret: 1}},
			{Kind: pool.Object, Name: 0},
		},
	}
}

func TestPrintMethod_IntegerAdd(t *testing.T) {
	fn := pool.FunctionProto{Type: 2, Name: 1, ArgNames: []pool.RefString{3, 3}}
	poolWithFn := basePool()
	poolWithFn.Funcs = []pool.FunctionProto{fn}
	p := New(poolWithFn)

	method := &ast.Method{
		Fun: 0,
		Statements: []*ast.Statement{
			{Kind: ast.StmtReturn, ReturnVal: &ast.Expr{
				Kind: ast.ExprOp,
				OpVal: &ast.Operation{Kind: ast.OpAdd, Lhs: varExpr("x"), Rhs: varExpr("x")},
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, p.PrintMethod(&buf, method, DefaultFormatOptions()))
	out := buf.String()
	assert.Contains(t, out, "function add(")
	assert.Contains(t, out, "return x + x;")
}

func TestWriteStatement_IfElse(t *testing.T) {
	p := New(basePool())
	s := &ast.Statement{
		Kind: ast.StmtIfElse,
		IfElseVal: &ast.IfElseStmt{
			Cond: &ast.Expr{Kind: ast.ExprOp, OpVal: &ast.Operation{Kind: ast.OpGt, Lhs: varExpr("x"), Rhs: constInt(0)}},
			If:   []*ast.Statement{{Kind: ast.StmtReturn, ReturnVal: constInt(1)}},
			Else: []*ast.Statement{{Kind: ast.StmtReturn, ReturnVal: constInt(0)}},
		},
	}
	var b strings.Builder
	require.NoError(t, p.writeStatement(&b, s, DefaultFormatOptions()))
	out := b.String()
	assert.Contains(t, out, "if (x > 0) {")
	assert.Contains(t, out, "} else {")
	assert.Contains(t, out, "return 1;")
	assert.Contains(t, out, "return 0;")
}

func TestWriteStatement_While(t *testing.T) {
	p := New(basePool())
	s := &ast.Statement{
		Kind: ast.StmtWhile,
		WhileVal: &ast.WhileStmt{
			Cond: &ast.Expr{Kind: ast.ExprConstant, ConstantVal: &ast.Constant{Kind: ast.ConstBool, BoolVal: true}},
			Body: []*ast.Statement{{Kind: ast.StmtBreak}},
		},
	}
	var b strings.Builder
	require.NoError(t, p.writeStatement(&b, s, DefaultFormatOptions()))
	out := b.String()
	assert.Contains(t, out, "while (true) {")
	assert.Contains(t, out, "break;")
}

func TestWriteStatement_SwitchPrintsDefaultBeforeCases(t *testing.T) {
	p := New(basePool())
	s := &ast.Statement{
		Kind: ast.StmtSwitch,
		SwitchVal: &ast.SwitchStmt{
			Arg:     varExpr("x"),
			Default: []*ast.Statement{{Kind: ast.StmtBreak}},
			Cases: []ast.SwitchCase{
				{Pattern: constInt(0), Body: []*ast.Statement{{Kind: ast.StmtContinue}}},
				{Pattern: constInt(1), Body: []*ast.Statement{{Kind: ast.StmtBreak}}},
			},
		},
	}
	var b strings.Builder
	require.NoError(t, p.writeStatement(&b, s, DefaultFormatOptions()))
	out := b.String()

	defaultIdx := indexOf(out, "default:")
	case0Idx := indexOf(out, "case 0:")
	require.GreaterOrEqual(t, defaultIdx, 0)
	require.GreaterOrEqual(t, case0Idx, 0)
	assert.Less(t, defaultIdx, case0Idx, "default must print before the first case")
}

func TestWriteStatement_TryCatch(t *testing.T) {
	p := New(basePool())
	tryStmt := &ast.Statement{Kind: ast.StmtTry, Body: []*ast.Statement{{Kind: ast.StmtExpr, ExprVal: varExpr("x")}}}
	catchStmt := &ast.Statement{Kind: ast.StmtCatch, Body: []*ast.Statement{{Kind: ast.StmtThrow, ExprVal: varExpr("x")}}}

	var b strings.Builder
	require.NoError(t, p.writeStatement(&b, tryStmt, DefaultFormatOptions()))
	require.NoError(t, p.writeStatement(&b, catchStmt, DefaultFormatOptions()))
	out := b.String()
	assert.Contains(t, out, "try {")
	assert.Contains(t, out, "catch (")
	assert.Contains(t, out, "throw x")
}

func TestPrintClass_StaticFieldAndDynamicMethod(t *testing.T) {
	pl := basePool()
	pl.Funcs = []pool.FunctionProto{{Type: 2, Name: 2, ArgNames: []pool.RefString{3}}}
	p := New(pl)

	parent := "Base"
	class := &ast.Class{
		Name:   "Main",
		Type:   3,
		Parent: &parent,
		Fields: []ast.FieldDecl{{Name: "total", Type: 1, Static: true}},
		Methods: []*ast.Method{
			{Fun: 0, Dynamic: true, Statements: []*ast.Statement{{Kind: ast.StmtReturn, ReturnVal: constInt(0)}}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, p.PrintClass(&buf, class, DefaultFormatOptions()))
	out := buf.String()
	assert.Contains(t, out, "class Main extends Base {")
	assert.Contains(t, out, "static var total: Int;")
	assert.Contains(t, out, "dynamic function run(")
}

func TestHaxeType_Mapping(t *testing.T) {
	pl := &pool.Pool{
		Strings: []string{"Foo"},
		Types: []pool.Type{
			{Kind: pool.Void}, {Kind: pool.I32}, {Kind: pool.F64}, {Kind: pool.Bool},
			{Kind: pool.Bytes}, {Kind: pool.Dyn}, {Kind: pool.Function},
			{Kind: pool.Object, Name: 0}, {Kind: pool.Opaque},
		},
	}
	p := New(pl)
	assert.Equal(t, "Void", p.haxeType(0))
	assert.Equal(t, "Int", p.haxeType(1))
	assert.Equal(t, "Float", p.haxeType(2))
	assert.Equal(t, "Bool", p.haxeType(3))
	assert.Equal(t, "hl.Bytes", p.haxeType(4))
	assert.Equal(t, "Dynamic", p.haxeType(5))
	assert.Equal(t, "Function", p.haxeType(6))
	assert.Equal(t, "Foo", p.haxeType(7))
	assert.Equal(t, "other", p.haxeType(8))
}

func TestWriteExpr_InvalidAnonymousType(t *testing.T) {
	pl := &pool.Pool{Types: []pool.Type{{Kind: pool.Object}}}
	p := New(pl)
	e := &ast.Expr{Kind: ast.ExprAnonymous, AnonType: 0}
	var b strings.Builder
	require.NoError(t, p.writeExpr(&b, e, DefaultFormatOptions()))
	assert.Equal(t, "[invalid anonymous type]", b.String())
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
