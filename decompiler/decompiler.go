package decompiler

import (
	"io"

	"github.com/wudi/hlbcgo/ast"
	"github.com/wudi/hlbcgo/cfg"
	"github.com/wudi/hlbcgo/class"
	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/lift"
	"github.com/wudi/hlbcgo/pool"
	"github.com/wudi/hlbcgo/printer"
	"github.com/wudi/hlbcgo/structure"
)

// DecompileMethod runs the lift/structure pipeline for a single
// function and wraps it in an ast.Method. Static/Dynamic flags are
// left false; the caller (DecompileClass) sets them from the owning
// class's method table.
func (m *Module) DecompileMethod(fun pool.RefFun) (*ast.Method, error) {
	idx := int(fun)
	if idx < 0 || idx >= len(m.Pool.Funcs) {
		return nil, hlerr.New(hlerr.Pool, hlerr.ReasonOutOfRange, "function index out of range").WithFunction(idx)
	}
	proto := &m.Pool.Funcs[idx]
	instrs := m.Instructions[idx]

	graph, err := cfg.Analyze(instrs, idx)
	if err != nil {
		return nil, err
	}

	lifter := lift.New(m.Pool, proto, instrs, idx)
	items, err := lifter.Run()
	if err != nil {
		return nil, err
	}

	statements := structure.Build(items, graph)

	if err := validateRegisters(statements, proto.RegCount, idx); err != nil {
		return nil, err
	}

	return &ast.Method{Fun: fun, Statements: statements}, nil
}

// DecompileClass assembles the full reconstructed class, building every
// member method through DecompileMethod.
func (m *Module) DecompileClass(classRef pool.RefType) (*ast.Class, error) {
	return class.Assemble(m.Pool, classRef, m.DecompileMethod)
}

// Render writes a Class or Method to w using opts. A nil opts argument
// uses printer.DefaultFormatOptions.
func (m *Module) Render(w io.Writer, value interface{}, opts *printer.FormatOptions) error {
	o := printer.DefaultFormatOptions()
	if opts != nil {
		o = *opts
	}
	p := printer.New(m.Pool)
	switch v := value.(type) {
	case *ast.Class:
		return p.PrintClass(w, v, o)
	case *ast.Method:
		return p.PrintMethod(w, v, o)
	default:
		return hlerr.New(hlerr.Render, hlerr.ReasonBadReference, "Render accepts only *ast.Class or *ast.Method")
	}
}

// validateRegisters checks that every unnamed Expr::Variable produced
// by the lifter refers to a register within the owning function's
// register count. Variables that carry a name (globals, which use
// register -1, and registers named from debug info) are not checked.
func validateRegisters(statements []*ast.Statement, regCount int, funcIdx int) error {
	var walkExpr func(e *ast.Expr) error
	var walkStmt func(s *ast.Statement) error
	var walkStmts func(stmts []*ast.Statement) error

	walkExpr = func(e *ast.Expr) error {
		if e == nil {
			return nil
		}
		if e.Kind == ast.ExprVariable && e.VarName == nil {
			if int(e.Register) < 0 || int(e.Register) >= regCount {
				return hlerr.New(hlerr.Lift, hlerr.ReasonRegisterOOR, "variable register out of range").
					WithFunction(funcIdx)
			}
		}
		switch e.Kind {
		case ast.ExprArray:
			if err := walkExpr(e.Array); err != nil {
				return err
			}
			return walkExpr(e.Index)
		case ast.ExprCall:
			if err := walkExpr(e.CallExpr.Fun); err != nil {
				return err
			}
			for _, a := range e.CallExpr.Args {
				if err := walkExpr(a); err != nil {
					return err
				}
			}
		case ast.ExprField:
			return walkExpr(e.FieldReceiver)
		case ast.ExprOp:
			if err := walkExpr(e.OpVal.Lhs); err != nil {
				return err
			}
			return walkExpr(e.OpVal.Rhs)
		case ast.ExprConstructor:
			for _, a := range e.ConstructorVal.Args {
				if err := walkExpr(a); err != nil {
					return err
				}
			}
		case ast.ExprEnumConstr:
			for _, a := range e.EnumConstrVal.Args {
				if err := walkExpr(a); err != nil {
					return err
				}
			}
		case ast.ExprIfElse:
			if err := walkExpr(e.IfElseVal.Cond); err != nil {
				return err
			}
			if err := walkStmts(e.IfElseVal.If); err != nil {
				return err
			}
			return walkStmts(e.IfElseVal.Else)
		case ast.ExprClosure:
			return walkStmts(e.ClosureVal.Body)
		case ast.ExprAnonymous:
			for _, f := range e.AnonFields {
				if err := walkExpr(f.Value); err != nil {
					return err
				}
			}
		}
		return nil
	}

	walkStmts = func(stmts []*ast.Statement) error {
		for _, s := range stmts {
			if err := walkStmt(s); err != nil {
				return err
			}
		}
		return nil
	}

	walkStmt = func(s *ast.Statement) error {
		switch s.Kind {
		case ast.StmtAssign:
			if err := walkExpr(s.AssignVal.Variable); err != nil {
				return err
			}
			return walkExpr(s.AssignVal.Value)
		case ast.StmtExpr, ast.StmtThrow:
			return walkExpr(s.ExprVal)
		case ast.StmtReturn:
			return walkExpr(s.ReturnVal)
		case ast.StmtIfElse:
			if err := walkExpr(s.IfElseVal.Cond); err != nil {
				return err
			}
			if err := walkStmts(s.IfElseVal.If); err != nil {
				return err
			}
			return walkStmts(s.IfElseVal.Else)
		case ast.StmtSwitch:
			if err := walkExpr(s.SwitchVal.Arg); err != nil {
				return err
			}
			if err := walkStmts(s.SwitchVal.Default); err != nil {
				return err
			}
			for _, c := range s.SwitchVal.Cases {
				if err := walkStmts(c.Body); err != nil {
					return err
				}
			}
		case ast.StmtWhile:
			if err := walkExpr(s.WhileVal.Cond); err != nil {
				return err
			}
			return walkStmts(s.WhileVal.Body)
		case ast.StmtTry, ast.StmtCatch:
			return walkStmts(s.Body)
		}
		return nil
	}

	return walkStmts(statements)
}
