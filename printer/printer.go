// Package printer renders a reconstructed Class or Method to text,
// deterministically and indentation-driven, one statement at a time.
// The rendering rules (field order, brace placement, default-before-
// case switch ordering) are carried over from the original fmt.rs
// Display implementations, adapted to an io.Writer and a FormatOptions
// value type instead of a borrowed-string builder.
package printer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wudi/hlbcgo/ast"
	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/pool"
)

// FormatOptions controls indentation. IndentUnit defaults to two
// spaces; MaxWidth is currently advisory and unused by the line-
// oriented renderer below.
type FormatOptions struct {
	IndentUnit string
	MaxWidth   int

	depth int
}

// DefaultFormatOptions returns the spec's default: two-space indents.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{IndentUnit: "  "}
}

// incNesting returns a copy of o one level deeper, the Go analogue of
// FormatOptions::inc_nesting in the original renderer.
func (o FormatOptions) incNesting() FormatOptions {
	o.depth++
	return o
}

func (o FormatOptions) indent() string {
	return strings.Repeat(o.IndentUnit, o.depth)
}

// Printer renders AST values against a module's pool for type and name
// resolution.
type Printer struct {
	pool *pool.Pool
}

// New builds a Printer bound to a module's pool.
func New(p *pool.Pool) *Printer {
	return &Printer{pool: p}
}

func (p *Printer) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return hlerr.New(hlerr.Render, hlerr.ReasonBadReference, err.Error())
}

// haxeType maps a pool type reference to its source-level display name,
// per the type rendering table: named object types print their
// declared name, everything unlisted prints the literal "other".
func (p *Printer) haxeType(ref pool.RefType) string {
	t, err := p.pool.ResolveType(ref)
	if err != nil {
		return "other"
	}
	switch t.Kind {
	case pool.Void:
		return "Void"
	case pool.I32:
		return "Int"
	case pool.F64:
		return "Float"
	case pool.Bool:
		return "Bool"
	case pool.Bytes:
		return "hl.Bytes"
	case pool.Dyn:
		return "Dynamic"
	case pool.Function:
		return "Function"
	case pool.Object, pool.Virtual, pool.Enum:
		name, err := p.pool.ResolveString(t.Name)
		if err != nil {
			return "other"
		}
		return name
	default:
		return "other"
	}
}

// PrintClass writes a reconstructed class in
// "class NAME [extends PARENT] {\n <fields>\n\n <methods>\n}" form.
func (p *Printer) PrintClass(w io.Writer, c *ast.Class, opts FormatOptions) error {
	var b strings.Builder
	b.WriteString(opts.indent())
	b.WriteString("class ")
	b.WriteString(c.Name)
	if c.Parent != nil {
		b.WriteString(" extends ")
		b.WriteString(*c.Parent)
	}
	b.WriteString(" {\n")

	inner := opts.incNesting()
	for _, f := range c.Fields {
		b.WriteString(inner.indent())
		if f.Static {
			b.WriteString("static ")
		}
		b.WriteString("var ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(p.haxeType(f.Type))
		b.WriteString(";\n")
	}
	for _, m := range c.Methods {
		b.WriteString("\n")
		if err := p.writeMethod(&b, m, inner); err != nil {
			return err
		}
	}
	b.WriteString(opts.indent())
	b.WriteString("}")

	_, err := io.WriteString(w, b.String())
	return p.wrapErr(err)
}

// PrintMethod writes a single method at the given nesting level,
// without the enclosing class braces.
func (p *Printer) PrintMethod(w io.Writer, m *ast.Method, opts FormatOptions) error {
	var b strings.Builder
	if err := p.writeMethod(&b, m, opts); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return p.wrapErr(err)
}

func (p *Printer) methodName(m *ast.Method) string {
	fn, err := p.pool.ResolveFunction(m.Fun)
	if err != nil {
		return fmt.Sprintf("fn%d", m.Fun)
	}
	name, err := p.pool.ResolveString(fn.Name)
	if err != nil || name == "" {
		return fmt.Sprintf("fn%d", m.Fun)
	}
	return name
}

func (p *Printer) writeMethod(b *strings.Builder, m *ast.Method, opts FormatOptions) error {
	b.WriteString(opts.indent())
	if m.Static {
		b.WriteString("static ")
	}
	if m.Dynamic {
		b.WriteString("dynamic ")
	}
	b.WriteString("function ")
	b.WriteString(p.methodName(m))
	b.WriteString("(")

	fn, err := p.pool.ResolveFunction(m.Fun)
	if err != nil {
		return p.wrapErr(err)
	}
	ft, err := p.pool.ResolveType(fn.Type)
	if err != nil {
		return p.wrapErr(err)
	}
	start := 0
	if !m.Static {
		start = 1
	}
	args := ft.Fun.Args
	for i := start; i < len(args); i++ {
		if i > start {
			b.WriteString(", ")
		}
		name := fmt.Sprintf("reg%d", i)
		if i < len(fn.ArgNames) {
			if n, err := p.pool.ResolveString(fn.ArgNames[i]); err == nil && n != "" {
				name = n
			}
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(p.haxeType(args[i]))
	}
	b.WriteString(")")
	if ft.Fun.Ret != 0 {
		if rt, err := p.pool.ResolveType(ft.Fun.Ret); err == nil && rt.Kind != pool.Void {
			b.WriteString(": ")
			b.WriteString(p.haxeType(ft.Fun.Ret))
		}
	}
	b.WriteString(" {")

	if len(m.Statements) == 0 {
		b.WriteString("}")
	} else {
		b.WriteString("\n")
		inner := opts.incNesting()
		for _, s := range m.Statements {
			b.WriteString(inner.indent())
			if err := p.writeStatement(b, s, inner); err != nil {
				return err
			}
			b.WriteString("\n")
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	}
	b.WriteString("\n")
	return nil
}

func (p *Printer) writeStatement(b *strings.Builder, s *ast.Statement, opts FormatOptions) error {
	switch s.Kind {
	case ast.StmtAssign:
		if s.AssignVal.Declaration {
			b.WriteString("var ")
		}
		if err := p.writeExpr(b, s.AssignVal.Variable, opts); err != nil {
			return err
		}
		b.WriteString(" = ")
		if err := p.writeExpr(b, s.AssignVal.Value, opts); err != nil {
			return err
		}
		b.WriteString(";")
	case ast.StmtExpr:
		if err := p.writeExpr(b, s.ExprVal, opts); err != nil {
			return err
		}
		b.WriteString(";")
	case ast.StmtReturn:
		b.WriteString("return")
		if s.ReturnVal != nil {
			b.WriteString(" ")
			if err := p.writeExpr(b, s.ReturnVal, opts); err != nil {
				return err
			}
		}
		b.WriteString(";")
	case ast.StmtIfElse:
		v := s.IfElseVal
		b.WriteString("if (")
		if err := p.writeExpr(b, v.Cond, opts); err != nil {
			return err
		}
		b.WriteString(") {\n")
		inner := opts.incNesting()
		if err := p.writeBlock(b, v.If, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
		if len(v.Else) > 0 {
			b.WriteString(" else {\n")
			if err := p.writeBlock(b, v.Else, inner); err != nil {
				return err
			}
			b.WriteString(opts.indent())
			b.WriteString("}")
		}
	case ast.StmtSwitch:
		v := s.SwitchVal
		b.WriteString("switch (")
		if err := p.writeExpr(b, v.Arg, opts); err != nil {
			return err
		}
		b.WriteString(") {\n")
		inner := opts.incNesting()
		caseIndent := inner.incNesting()
		if len(v.Default) > 0 {
			b.WriteString(inner.indent())
			b.WriteString("default:\n")
			if err := p.writeBlock(b, v.Default, caseIndent); err != nil {
				return err
			}
		}
		for i, c := range v.Cases {
			b.WriteString(inner.indent())
			b.WriteString("case ")
			if c.Pattern != nil {
				if err := p.writeExpr(b, c.Pattern, opts); err != nil {
					return err
				}
			} else {
				b.WriteString(strconv.Itoa(i))
			}
			b.WriteString(":\n")
			if err := p.writeBlock(b, c.Body, caseIndent); err != nil {
				return err
			}
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	case ast.StmtWhile:
		v := s.WhileVal
		b.WriteString("while (")
		if err := p.writeExpr(b, v.Cond, opts); err != nil {
			return err
		}
		b.WriteString(") {\n")
		inner := opts.incNesting()
		if err := p.writeBlock(b, v.Body, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	case ast.StmtBreak:
		b.WriteString("break;")
	case ast.StmtContinue:
		b.WriteString("continue;")
	case ast.StmtThrow:
		b.WriteString("throw ")
		if err := p.writeExpr(b, s.ExprVal, opts); err != nil {
			return err
		}
	case ast.StmtTry:
		b.WriteString("try {\n")
		inner := opts.incNesting()
		if err := p.writeBlock(b, s.Body, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	case ast.StmtCatch:
		b.WriteString("catch () {\n")
		inner := opts.incNesting()
		if err := p.writeBlock(b, s.Body, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	case ast.StmtComment:
		b.WriteString("// ")
		b.WriteString(s.Comment)
	}
	return nil
}

func (p *Printer) writeBlock(b *strings.Builder, stmts []*ast.Statement, opts FormatOptions) error {
	for _, s := range stmts {
		b.WriteString(opts.indent())
		if err := p.writeStatement(b, s, opts); err != nil {
			return err
		}
		b.WriteString("\n")
	}
	return nil
}

func (p *Printer) writeExpr(b *strings.Builder, e *ast.Expr, opts FormatOptions) error {
	switch e.Kind {
	case ast.ExprAnonymous:
		t, err := p.pool.ResolveType(e.AnonType)
		if err != nil || t.Kind != pool.Virtual {
			b.WriteString("[invalid anonymous type]")
			return nil
		}
		b.WriteString("{")
		for i, f := range e.AnonFields {
			if i > 0 {
				b.WriteString(", ")
			}
			name, _ := p.pool.FieldName(e.AnonType, f.Field)
			b.WriteString(name)
			b.WriteString(": ")
			if err := p.writeExpr(b, f.Value, opts); err != nil {
				return err
			}
		}
		b.WriteString("}")
	case ast.ExprArray:
		if err := p.writeExpr(b, e.Array, opts); err != nil {
			return err
		}
		b.WriteString("[")
		if err := p.writeExpr(b, e.Index, opts); err != nil {
			return err
		}
		b.WriteString("]")
	case ast.ExprCall:
		if err := p.writeExpr(b, e.CallExpr.Fun, opts); err != nil {
			return err
		}
		b.WriteString("(")
		for i, a := range e.CallExpr.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := p.writeExpr(b, a, opts); err != nil {
				return err
			}
		}
		b.WriteString(")")
	case ast.ExprConstant:
		return p.writeConstant(b, e.ConstantVal)
	case ast.ExprConstructor:
		b.WriteString("new ")
		b.WriteString(p.haxeType(e.ConstructorVal.Type))
		b.WriteString("(")
		for i, a := range e.ConstructorVal.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := p.writeExpr(b, a, opts); err != nil {
				return err
			}
		}
		b.WriteString(")")
	case ast.ExprClosure:
		b.WriteString("() -> {\n")
		inner := opts.incNesting()
		if err := p.writeBlock(b, e.ClosureVal.Body, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	case ast.ExprEnumConstr:
		b.WriteString(fmt.Sprintf("Constructor%d", e.EnumConstrVal.Constructor))
		b.WriteString("(")
		for i, a := range e.EnumConstrVal.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := p.writeExpr(b, a, opts); err != nil {
				return err
			}
		}
		b.WriteString(")")
	case ast.ExprField:
		if err := p.writeExpr(b, e.FieldReceiver, opts); err != nil {
			return err
		}
		b.WriteString(".")
		b.WriteString(e.FieldName)
	case ast.ExprFunRef:
		fn, err := p.pool.ResolveFunction(e.FunRefVal)
		if err != nil {
			b.WriteString(fmt.Sprintf("fn%d", e.FunRefVal))
			return nil
		}
		name, err := p.pool.ResolveString(fn.Name)
		if err != nil || name == "" {
			b.WriteString(fmt.Sprintf("fn%d", e.FunRefVal))
			return nil
		}
		b.WriteString(name)
	case ast.ExprIfElse:
		v := e.IfElseVal
		b.WriteString("if (")
		if err := p.writeExpr(b, v.Cond, opts); err != nil {
			return err
		}
		b.WriteString(") {\n")
		inner := opts.incNesting()
		if err := p.writeBlock(b, v.If, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("} else {\n")
		if err := p.writeBlock(b, v.Else, inner); err != nil {
			return err
		}
		b.WriteString(opts.indent())
		b.WriteString("}")
	case ast.ExprOp:
		return p.writeOperation(b, e.OpVal, opts)
	case ast.ExprUnknown:
		b.WriteString("[")
		b.WriteString(e.UnknownMsg)
		b.WriteString("]")
	case ast.ExprVariable:
		if e.VarName != nil {
			b.WriteString(*e.VarName)
		} else {
			b.WriteString(fmt.Sprintf("reg%d", e.Register))
		}
	}
	return nil
}

var opSymbol = map[ast.OpKind]string{
	ast.OpAdd: " + ", ast.OpSub: " - ", ast.OpMul: " * ", ast.OpDiv: " / ", ast.OpMod: " % ",
	ast.OpShl: " << ", ast.OpShr: " >> ", ast.OpAnd: " && ", ast.OpOr: " || ", ast.OpXor: " ^ ",
	ast.OpEq: " == ", ast.OpNotEq: " != ", ast.OpGt: " > ", ast.OpGte: " >= ",
	ast.OpLt: " < ", ast.OpLte: " <= ",
}

func (p *Printer) writeOperation(b *strings.Builder, op *ast.Operation, opts FormatOptions) error {
	switch op.Kind {
	case ast.OpNeg:
		b.WriteString("-")
		return p.writeExpr(b, op.Lhs, opts)
	case ast.OpNot:
		b.WriteString("!")
		return p.writeExpr(b, op.Lhs, opts)
	case ast.OpIncr:
		if err := p.writeExpr(b, op.Lhs, opts); err != nil {
			return err
		}
		b.WriteString("++")
		return nil
	case ast.OpDecr:
		if err := p.writeExpr(b, op.Lhs, opts); err != nil {
			return err
		}
		b.WriteString("--")
		return nil
	default:
		if err := p.writeExpr(b, op.Lhs, opts); err != nil {
			return err
		}
		b.WriteString(opSymbol[op.Kind])
		return p.writeExpr(b, op.Rhs, opts)
	}
}

func (p *Printer) writeConstant(b *strings.Builder, c *ast.Constant) error {
	switch c.Kind {
	case ast.InlineInt:
		b.WriteString(strconv.FormatInt(int64(c.InlineVal), 10))
	case ast.ConstInt:
		v, err := p.pool.ResolveInt(c.IntRef)
		if err != nil {
			return p.wrapErr(err)
		}
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case ast.ConstFloat:
		v, err := p.pool.ResolveFloat(c.FloatRef)
		if err != nil {
			return p.wrapErr(err)
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case ast.ConstString:
		s, err := p.pool.ResolveString(c.StringRef)
		if err != nil {
			return p.wrapErr(err)
		}
		b.WriteString(strconv.Quote(s))
	case ast.ConstBool:
		b.WriteString(strconv.FormatBool(c.BoolVal))
	case ast.ConstNull:
		b.WriteString("null")
	case ast.ConstThis:
		b.WriteString("this")
	}
	return nil
}
