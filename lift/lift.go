// Package lift implements the expression lifter: a single forward pass
// over a function's decoded instructions that folds pure register
// definitions into their consuming expressions and emits a flat,
// still-unstructured statement list plus branch/switch/trap anchors
// for the structurer to consume.
package lift

import (
	"fmt"

	"github.com/wudi/hlbcgo/ast"
	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/opcode"
	"github.com/wudi/hlbcgo/pool"
)

// ItemKind tags one entry of the linear IR the lifter produces.
type ItemKind byte

const (
	ItemStatement ItemKind = iota
	ItemCondBranch
	ItemJump
	ItemSwitch
	ItemTrap
	ItemEndTrap
)

// Item is one unit of the lifter's output stream, consumed in order by
// the structurer alongside the CFG analysis.
type Item struct {
	Kind ItemKind
	PC   int

	Stmt *ast.Statement // ItemStatement

	Cond   *ast.Expr // ItemCondBranch: the bytecode-level test expression
	Target int       // ItemCondBranch / ItemJump: resolved absolute target

	SwitchArg   *ast.Expr // ItemSwitch
	SwitchCases []int     // ItemSwitch: resolved absolute targets
	SwitchEnd   int        // ItemSwitch
}

// Lifter holds the per-function state described for the expression
// lifter: the current defining expression and recovered name for each
// register, plus the use-count table built by the pre-pass.
type Lifter struct {
	pool     *pool.Pool
	fn       *pool.FunctionProto
	instrs   []opcode.Instruction
	funcIdx  int

	regExpr    map[pool.Reg]*ast.Expr
	regName    map[pool.Reg]*string
	readCounts map[pool.Reg]int
	declared   map[pool.Reg]bool

	items []Item
}

// New prepares a lifter for one function body.
func New(p *pool.Pool, fn *pool.FunctionProto, instrs []opcode.Instruction, funcIdx int) *Lifter {
	l := &Lifter{
		pool:       p,
		fn:         fn,
		instrs:     instrs,
		funcIdx:    funcIdx,
		regExpr:    map[pool.Reg]*ast.Expr{},
		regName:    map[pool.Reg]*string{},
		readCounts: map[pool.Reg]int{},
		declared:   map[pool.Reg]bool{},
	}
	for i, nameRef := range fn.ArgNames {
		name, err := p.ResolveString(nameRef)
		if err != nil {
			continue
		}
		n := name
		l.regName[pool.Reg(i)] = &n
	}
	l.countReads()
	return l
}

// countReads is the use-count pre-pass the single-read folding policy
// is built on: every register read anywhere in the function body is
// tallied once, up front, so the fold decision at definition time does
// not need a rollback mechanism.
func (l *Lifter) countReads() {
	bump := func(r pool.Reg) { l.readCounts[r]++ }
	for _, inst := range l.instrs {
		switch inst.Op {
		case opcode.Mov, opcode.Neg, opcode.Not, opcode.ToDyn, opcode.ToSFloat,
			opcode.ToUFloat, opcode.ToInt, opcode.SafeCast, opcode.UnsafeCast,
			opcode.ToVirtual, opcode.GetType, opcode.GetTID, opcode.Ref,
			opcode.Unref, opcode.RefData, opcode.ArraySize, opcode.Setref,
			opcode.RefOffset, opcode.EnumIndex:
			bump(inst.A)
		case opcode.Add, opcode.Sub, opcode.Mul, opcode.SDiv, opcode.UDiv,
			opcode.SMod, opcode.UMod, opcode.Shl, opcode.SShr, opcode.UShr,
			opcode.And, opcode.Or, opcode.Xor, opcode.GetI8, opcode.GetI16,
			opcode.GetMem, opcode.GetArray, opcode.DynGet:
			bump(inst.A)
			bump(inst.B)
		case opcode.Incr, opcode.Decr:
			bump(inst.Dst)
		case opcode.Call1, opcode.Call2, opcode.Call3, opcode.Call4:
			for _, a := range inst.Args {
				bump(a)
			}
		case opcode.CallN:
			for _, a := range inst.Args {
				bump(a)
			}
		case opcode.CallMethod:
			bump(inst.A)
			for _, a := range inst.Args {
				bump(a)
			}
		case opcode.CallThis:
			bump(inst.A)
			for _, a := range inst.Args {
				bump(a)
			}
		case opcode.CallClosure:
			bump(inst.A)
			for _, a := range inst.Args {
				bump(a)
			}
		case opcode.InstanceClosure, opcode.VirtualClosure:
			bump(inst.A)
		case opcode.SetGlobal, opcode.SetThis:
			bump(inst.A)
		case opcode.Field:
			bump(inst.A)
		case opcode.SetField:
			bump(inst.A)
			bump(inst.B)
		case opcode.DynSet, opcode.SetI8, opcode.SetI16, opcode.SetMem, opcode.SetArray:
			bump(inst.A)
			bump(inst.B)
			bump(inst.C)
		case opcode.JTrue, opcode.JFalse, opcode.JNull, opcode.JNotNull,
			opcode.NullCheck, opcode.Throw, opcode.Rethrow, opcode.EndTrap, opcode.Ret:
			bump(inst.A)
		case opcode.JSLt, opcode.JSGte, opcode.JSGt, opcode.JSLte, opcode.JULt,
			opcode.JUGte, opcode.JNotLt, opcode.JNotGte, opcode.JEq, opcode.JNotEq:
			bump(inst.A)
			bump(inst.B)
		case opcode.Switch:
			bump(inst.A)
		case opcode.MakeEnum:
			for _, a := range inst.Args {
				bump(a)
			}
		case opcode.SetEnumField:
			bump(inst.A)
			bump(inst.B)
		case opcode.EnumField:
			bump(inst.A)
		}
	}
}

func (l *Lifter) varExpr(r pool.Reg) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprVariable, Register: r, VarName: l.regName[r]}
}

// read returns the expression standing for the current value of r: the
// folded producer expression if one is pending, otherwise a Variable
// reference (the producer has already been materialized).
func (l *Lifter) read(r pool.Reg) *ast.Expr {
	if e, ok := l.regExpr[r]; ok {
		return e
	}
	return l.varExpr(r)
}

// define applies the fold policy to a newly produced value in dst:
// fold it into reg_expr if it is read at most once for the rest of the
// function, otherwise materialize it with an Assign statement.
func (l *Lifter) define(dst pool.Reg, value *ast.Expr) {
	if l.readCounts[dst] <= 1 {
		l.regExpr[dst] = value
		return
	}
	decl := !l.declared[dst]
	l.declared[dst] = true
	delete(l.regExpr, dst)
	l.emit(&ast.Statement{
		Kind: ast.StmtAssign,
		AssignVal: &ast.Assign{
			Declaration: decl,
			Variable:    l.varExpr(dst),
			Value:       value,
		},
	})
	l.regExpr[dst] = l.varExpr(dst)
}

func (l *Lifter) emit(s *ast.Statement) {
	l.items = append(l.items, Item{Kind: ItemStatement, Stmt: s})
}

func constant(c *ast.Constant) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprConstant, ConstantVal: c}
}

func binOp(kind ast.OpKind, lhs, rhs *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprOp, OpVal: &ast.Operation{Kind: kind, Lhs: lhs, Rhs: rhs}}
}

func unOp(kind ast.OpKind, e *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprOp, OpVal: &ast.Operation{Kind: kind, Lhs: e}}
}

var binOpKind = map[opcode.Op]ast.OpKind{
	opcode.Add: ast.OpAdd, opcode.Sub: ast.OpSub, opcode.Mul: ast.OpMul,
	opcode.SDiv: ast.OpDiv, opcode.UDiv: ast.OpDiv,
	opcode.SMod: ast.OpMod, opcode.UMod: ast.OpMod,
	opcode.Shl: ast.OpShl, opcode.SShr: ast.OpShr, opcode.UShr: ast.OpShr,
	opcode.And: ast.OpAnd, opcode.Or: ast.OpOr, opcode.Xor: ast.OpXor,
}

// cmpOpKind maps a conditional-compare jump opcode to the OpKind that
// expresses the same test as a plain boolean expression (used both for
// building if/while conditions and negating them).
var cmpOpKind = map[opcode.Op]ast.OpKind{
	opcode.JSLt: ast.OpLt, opcode.JSGte: ast.OpGte, opcode.JSGt: ast.OpGt,
	opcode.JSLte: ast.OpLte, opcode.JULt: ast.OpLt, opcode.JUGte: ast.OpGte,
	opcode.JNotLt: ast.OpGte, opcode.JNotGte: ast.OpLt,
	opcode.JEq: ast.OpEq, opcode.JNotEq: ast.OpNotEq,
}

// negate returns the logical negation of a comparison/equality OpKind,
// or wraps an arbitrary expression in Not when no direct inverse
// exists.
func negate(e *ast.Expr) *ast.Expr {
	if e.Kind == ast.ExprOp {
		inv := map[ast.OpKind]ast.OpKind{
			ast.OpEq: ast.OpNotEq, ast.OpNotEq: ast.OpEq,
			ast.OpGt: ast.OpLte, ast.OpLte: ast.OpGt,
			ast.OpGte: ast.OpLt, ast.OpLt: ast.OpGte,
		}
		if k, ok := inv[e.OpVal.Kind]; ok {
			return binOp(k, e.OpVal.Lhs, e.OpVal.Rhs)
		}
	}
	return unOp(ast.OpNot, e)
}

// Run lifts the whole instruction stream and returns the linear item
// list for the structurer.
func (l *Lifter) Run() ([]Item, error) {
	for pc, inst := range l.instrs {
		if err := l.step(pc, inst); err != nil {
			return nil, err
		}
	}
	return l.items, nil
}

func (l *Lifter) err(reason hlerr.Reason, pc int, op opcode.Op, msg string) *hlerr.Error {
	return hlerr.New(hlerr.Lift, reason, msg).WithFunction(l.funcIdx).WithPC(pc).WithOpcode(op.String())
}

func (l *Lifter) step(pc int, inst opcode.Instruction) error {
	switch inst.Op {
	case opcode.Int:
		l.define(inst.Dst, constant(&ast.Constant{Kind: ast.ConstInt, IntRef: inst.IntRef}))
	case opcode.Float:
		l.define(inst.Dst, constant(&ast.Constant{Kind: ast.ConstFloat, FloatRef: inst.FloatRef}))
	case opcode.Bool:
		l.define(inst.Dst, constant(&ast.Constant{Kind: ast.ConstBool, BoolVal: inst.BoolVal}))
	case opcode.Bytes:
		l.define(inst.Dst, constant(&ast.Constant{Kind: ast.ConstString, StringRef: pool.RefString(inst.BytesRef)}))
	case opcode.String:
		l.define(inst.Dst, constant(&ast.Constant{Kind: ast.ConstString, StringRef: inst.StringRef}))
	case opcode.Null:
		l.define(inst.Dst, constant(&ast.Constant{Kind: ast.ConstNull}))
	case opcode.Mov:
		l.define(inst.Dst, l.read(inst.A))
	case opcode.Add, opcode.Sub, opcode.Mul, opcode.SDiv, opcode.UDiv, opcode.SMod,
		opcode.UMod, opcode.Shl, opcode.SShr, opcode.UShr, opcode.And, opcode.Or, opcode.Xor:
		l.define(inst.Dst, binOp(binOpKind[inst.Op], l.read(inst.A), l.read(inst.B)))
	case opcode.Neg:
		l.define(inst.Dst, unOp(ast.OpNeg, l.read(inst.A)))
	case opcode.Not:
		l.define(inst.Dst, unOp(ast.OpNot, l.read(inst.A)))
	case opcode.Incr, opcode.Decr:
		kind := ast.OpIncr
		if inst.Op == opcode.Decr {
			kind = ast.OpDecr
		}
		v := l.varExpr(inst.Dst)
		l.emit(&ast.Statement{Kind: ast.StmtExpr, ExprVal: unOp(kind, v)})
		l.regExpr[inst.Dst] = v
	case opcode.Call0, opcode.Call1, opcode.Call2, opcode.Call3, opcode.Call4, opcode.CallN:
		call := &ast.Expr{Kind: ast.ExprCall, CallExpr: &ast.Call{
			Fun:  &ast.Expr{Kind: ast.ExprFunRef, FunRefVal: inst.FunRef},
			Args: l.readAll(inst.Args),
		}}
		l.defineOrEmit(inst.Dst, call)
	case opcode.CallMethod:
		call := &ast.Expr{Kind: ast.ExprCall, CallExpr: &ast.Call{
			Fun:  &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: fmt.Sprintf("field%d", inst.B)},
			Args: l.readAll(inst.Args),
		}}
		l.defineOrEmit(inst.Dst, call)
	case opcode.CallThis:
		call := &ast.Expr{Kind: ast.ExprCall, CallExpr: &ast.Call{
			Fun:  &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.varExpr(0), FieldName: fmt.Sprintf("field%d", inst.A)},
			Args: l.readAll(inst.Args),
		}}
		l.defineOrEmit(inst.Dst, call)
	case opcode.CallClosure:
		call := &ast.Expr{Kind: ast.ExprCall, CallExpr: &ast.Call{
			Fun:  l.read(inst.A),
			Args: l.readAll(inst.Args),
		}}
		l.defineOrEmit(inst.Dst, call)
	case opcode.StaticClosure:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprFunRef, FunRefVal: inst.FunRef})
	case opcode.InstanceClosure:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprClosure, ClosureVal: &ast.Closure{Fun: inst.FunRef}})
	case opcode.VirtualClosure:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: fmt.Sprintf("field%d", inst.B)})
	case opcode.GetGlobal:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprVariable, Register: -1, VarName: globalName(inst.GlobalRef)})
	case opcode.SetGlobal:
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprVariable, Register: -1, VarName: globalName(inst.GlobalRef)},
			Value:    l.read(inst.A),
		}})
	case opcode.Field:
		name, _ := l.pool.FieldName(l.fn.Type, inst.FieldRef)
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: name})
	case opcode.SetField:
		name, _ := l.pool.FieldName(l.fn.Type, inst.FieldRef)
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: name},
			Value:    l.read(inst.B),
		}})
	case opcode.GetThis:
		name, _ := l.pool.FieldName(l.fn.Type, inst.FieldRef)
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.thisExpr(), FieldName: name})
	case opcode.SetThis:
		name, _ := l.pool.FieldName(l.fn.Type, inst.FieldRef)
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.thisExpr(), FieldName: name},
			Value:    l.read(inst.A),
		}})
	case opcode.DynGet:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: fmt.Sprintf("field%d", inst.B)})
	case opcode.DynSet:
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: fmt.Sprintf("field%d", inst.B)},
			Value:    l.read(inst.C),
		}})
	case opcode.GetArray:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprArray, Array: l.read(inst.A), Index: l.read(inst.B)})
	case opcode.SetArray:
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprArray, Array: l.read(inst.A), Index: l.read(inst.B)},
			Value:    l.read(inst.C),
		}})
	case opcode.GetI8, opcode.GetI16, opcode.GetMem:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprArray, Array: l.read(inst.A), Index: l.read(inst.B)})
	case opcode.SetI8, opcode.SetI16, opcode.SetMem:
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprArray, Array: l.read(inst.A), Index: l.read(inst.B)},
			Value:    l.read(inst.C),
		}})
	case opcode.New:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprConstructor, ConstructorVal: &ast.ConstructorCall{}})
	case opcode.MakeEnum:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprEnumConstr, EnumConstrVal: &ast.EnumConstr{
			Constructor: inst.Construct,
			Args:        l.readAll(inst.Args),
		}})
	case opcode.EnumAlloc:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprEnumConstr, EnumConstrVal: &ast.EnumConstr{Constructor: inst.Construct}})
	case opcode.EnumIndex:
		l.define(inst.Dst, unOp(ast.OpNeg, l.read(inst.A))) // placeholder: constructor tag read
	case opcode.EnumField:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: fmt.Sprintf("param%d", inst.FieldRef)})
	case opcode.SetEnumField:
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: &ast.Expr{Kind: ast.ExprField, FieldReceiver: l.read(inst.A), FieldName: fmt.Sprintf("param%d", inst.FieldRef)},
			Value:    l.read(inst.B),
		}})
	case opcode.ToDyn, opcode.ToSFloat, opcode.ToUFloat, opcode.ToInt, opcode.UnsafeCast, opcode.ToVirtual:
		l.define(inst.Dst, l.read(inst.A))
	case opcode.SafeCast:
		l.define(inst.Dst, l.read(inst.A))
	case opcode.ArraySize, opcode.GetType, opcode.GetTID, opcode.Ref, opcode.Unref, opcode.RefData:
		l.define(inst.Dst, l.read(inst.A))
	case opcode.Setref:
		l.emit(&ast.Statement{Kind: ast.StmtAssign, AssignVal: &ast.Assign{
			Variable: l.varExpr(inst.Dst),
			Value:    l.read(inst.A),
		}})
	case opcode.RefOffset:
		l.define(inst.Dst, l.read(inst.A))
	case opcode.Type:
		l.define(inst.Dst, &ast.Expr{Kind: ast.ExprUnknown, UnknownMsg: "type value"})
	case opcode.Ret:
		// A return register typed Void carries no value: emit a bare
		// `return;` instead of a read of that register.
		if int(inst.A) >= 0 && int(inst.A) < len(l.fn.RegTypes) {
			if t, err := l.pool.ResolveType(l.fn.RegTypes[inst.A]); err == nil && t.Kind == pool.Void {
				l.emit(&ast.Statement{Kind: ast.StmtReturn})
				break
			}
		}
		l.emit(&ast.Statement{Kind: ast.StmtReturn, ReturnVal: l.read(inst.A)})
	case opcode.Throw, opcode.Rethrow:
		l.emit(&ast.Statement{Kind: ast.StmtThrow, ExprVal: l.read(inst.A)})
	case opcode.NullCheck:
		if pc+1 >= len(l.instrs) || !referencesReg(l.instrs[pc+1], inst.A) {
			l.emit(&ast.Statement{Kind: ast.StmtComment, Comment: fmt.Sprintf("null check reg%d", inst.A)})
		}
	case opcode.Assert, opcode.Nop, opcode.Label:
		// no statement emitted
	case opcode.Trap:
		l.items = append(l.items, Item{Kind: ItemTrap, PC: pc, Target: inst.Target()})
	case opcode.EndTrap:
		l.items = append(l.items, Item{Kind: ItemEndTrap, PC: pc})
	case opcode.JTrue, opcode.JFalse, opcode.JNull, opcode.JNotNull:
		var cond *ast.Expr
		switch inst.Op {
		case opcode.JTrue:
			cond = l.read(inst.A)
		case opcode.JFalse:
			cond = negate(l.read(inst.A))
		case opcode.JNull:
			cond = binOp(ast.OpEq, l.read(inst.A), constant(&ast.Constant{Kind: ast.ConstNull}))
		case opcode.JNotNull:
			cond = binOp(ast.OpNotEq, l.read(inst.A), constant(&ast.Constant{Kind: ast.ConstNull}))
		}
		l.items = append(l.items, Item{Kind: ItemCondBranch, PC: pc, Cond: cond, Target: inst.Target()})
	case opcode.JSLt, opcode.JSGte, opcode.JSGt, opcode.JSLte, opcode.JULt,
		opcode.JUGte, opcode.JNotLt, opcode.JNotGte, opcode.JEq, opcode.JNotEq:
		cond := binOp(cmpOpKind[inst.Op], l.read(inst.A), l.read(inst.B))
		l.items = append(l.items, Item{Kind: ItemCondBranch, PC: pc, Cond: cond, Target: inst.Target()})
	case opcode.JAlways:
		l.items = append(l.items, Item{Kind: ItemJump, PC: pc, Target: inst.Target()})
	case opcode.Switch:
		cases, end := inst.SwitchTargets()
		l.items = append(l.items, Item{
			Kind:        ItemSwitch,
			PC:          pc,
			SwitchArg:   l.read(inst.A),
			SwitchCases: cases,
			SwitchEnd:   end,
		})
	default:
		return l.err(hlerr.ReasonUnexpectedOpcode, pc, inst.Op, "opcode not handled by lifter")
	}
	return nil
}

func (l *Lifter) readAll(regs []pool.Reg) []*ast.Expr {
	out := make([]*ast.Expr, len(regs))
	for i, r := range regs {
		out[i] = l.read(r)
	}
	return out
}

// defineOrEmit applies spec.md section 4.4's call-result rule: a result
// that is never read afterward is not a candidate for folding at all
// (folding it would silently drop a call with side effects), so it is
// emitted immediately as a bare expression statement instead of going
// through define's fold-if-read-once policy.
func (l *Lifter) defineOrEmit(dst pool.Reg, value *ast.Expr) {
	if l.readCounts[dst] == 0 {
		l.emit(&ast.Statement{Kind: ast.StmtExpr, ExprVal: value})
		return
	}
	l.define(dst, value)
}

// referencesReg reports whether inst reads reg through one of the
// register operands its opcode actually uses (the same operand set the
// use-count pre-pass tallies); unused operand fields are ignored.
func referencesReg(inst opcode.Instruction, reg pool.Reg) bool {
	probe := &Lifter{instrs: []opcode.Instruction{inst}, readCounts: map[pool.Reg]int{}}
	probe.countReads()
	return probe.readCounts[reg] > 0
}

func (l *Lifter) thisExpr() *ast.Expr {
	return l.varExpr(0)
}

func globalName(ref pool.RefGlobal) *string {
	n := fmt.Sprintf("global%d", ref)
	return &n
}
