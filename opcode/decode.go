package opcode

import (
	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/pool"
)

// DecodeFunction parses count instructions from data, starting at
// offset 0. It consumes exactly the bytes described by the per-variant
// shape declaration below; a short read yields a Truncated error, an
// unrecognized tag yields UnknownOpcode. This is the contract from
// spec.md section 4.2: one encoded record in, one decoded Instruction
// out.
func DecodeFunction(data []byte, count int) ([]Instruction, error) {
	out, _, err := DecodeFunctionN(data, count)
	return out, err
}

// DecodeFunctionN behaves like DecodeFunction but also reports how many
// bytes of data were consumed, so a caller reading a larger buffer
// (e.g. a whole module) knows where the next record starts.
func DecodeFunctionN(data []byte, count int) ([]Instruction, int, error) {
	c := newCursor(data)
	out := make([]Instruction, 0, count)
	for pc := 0; pc < count; pc++ {
		inst, err := decodeOne(c, pc)
		if err != nil {
			return nil, c.pos, err
		}
		out = append(out, inst)
	}
	return out, c.pos, nil
}

func decodeOne(c *cursor, pc int) (Instruction, error) {
	tagByte, err := c.byte()
	if err != nil {
		return Instruction{}, err
	}
	op := Op(tagByte)
	if op >= opCount {
		return Instruction{}, hlerr.New(hlerr.Decode, hlerr.ReasonUnknownOpcode, "unknown opcode tag").
			WithPC(pc).WithOpcode(op.String())
	}
	inst := Instruction{Op: op, PC: pc}

	reg := func() (pool.Reg, error) {
		v, err := c.reg()
		return pool.Reg(v), err
	}
	readArgs := func() ([]pool.Reg, error) {
		n, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		args := make([]pool.Reg, n)
		for i := range args {
			r, err := reg()
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		return args, nil
	}

	var e error
	switch op {
	case Mov, Neg, Not, ToDyn, ToSFloat, ToUFloat, ToInt, SafeCast, UnsafeCast,
		ToVirtual, GetType, GetTID, Ref, Unref, RefData:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
	case Int:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.IntRef = pool.RefInt(v)
		}
	case Float:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FloatRef = pool.RefFloat(v)
		}
	case Bool:
		inst.Dst, e = reg()
		if e == nil {
			inst.BoolVal, e = c.boolean()
		}
	case Bytes:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.BytesRef = pool.RefBytes(v)
		}
	case String:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.StringRef = pool.RefString(v)
		}
	case Null, New, EnumAlloc:
		inst.Dst, e = reg()
		if e == nil && op == EnumAlloc {
			var v uint64
			v, e = c.uvarint()
			inst.Construct = int(v)
		}
	case Add, Sub, Mul, SDiv, UDiv, SMod, UMod, Shl, SShr, UShr, And, Or, Xor:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
		if e == nil {
			inst.B, e = reg()
		}
	case Incr, Decr:
		inst.Dst, e = reg()
	case Call0:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FunRef = pool.RefFun(v)
		}
	case Call1, Call2, Call3, Call4:
		inst.Dst, e = reg()
		if e != nil {
			break
		}
		var v uint64
		v, e = c.uvarint()
		inst.FunRef = pool.RefFun(v)
		n := map[Op]int{Call1: 1, Call2: 2, Call3: 3, Call4: 4}[op]
		inst.Args = make([]pool.Reg, n)
		for i := 0; i < n && e == nil; i++ {
			inst.Args[i], e = reg()
		}
	case CallN:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FunRef = pool.RefFun(v)
		}
		if e == nil {
			inst.Args, e = readArgs()
		}
	case CallMethod:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg() // obj
		}
		if e == nil {
			inst.B, e = reg() // field slot register
		}
		if e == nil {
			inst.Args, e = readArgs()
		}
	case CallThis:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg() // field slot register
		}
		if e == nil {
			inst.Args, e = readArgs()
		}
	case CallClosure:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg() // closure register
		}
		if e == nil {
			inst.Args, e = readArgs()
		}
	case StaticClosure:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FunRef = pool.RefFun(v)
		}
	case InstanceClosure:
		inst.Dst, e = reg()
		if e != nil {
			break
		}
		var v uint64
		v, e = c.uvarint()
		inst.FunRef = pool.RefFun(v)
		if e == nil {
			inst.A, e = reg() // obj
		}
	case VirtualClosure:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg() // obj
		}
		if e == nil {
			inst.B, e = reg() // field slot register
		}
	case GetGlobal:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.GlobalRef = pool.RefGlobal(v)
		}
	case SetGlobal:
		var v uint64
		v, e = c.uvarint()
		inst.GlobalRef = pool.RefGlobal(v)
		if e == nil {
			inst.A, e = reg() // src
		}
	case Field:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg() // obj
		}
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FieldRef = pool.RefField(v)
		}
	case SetField:
		inst.A, e = reg() // obj
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FieldRef = pool.RefField(v)
		}
		if e == nil {
			inst.B, e = reg() // src
		}
	case GetThis:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.FieldRef = pool.RefField(v)
		}
	case SetThis:
		var v uint64
		v, e = c.uvarint()
		inst.FieldRef = pool.RefField(v)
		if e == nil {
			inst.A, e = reg() // src
		}
	case DynGet:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg() // obj
		}
		if e == nil {
			inst.B, e = reg() // field slot register
		}
	case DynSet:
		inst.A, e = reg() // obj
		if e == nil {
			inst.B, e = reg() // field slot register
		}
		if e == nil {
			inst.C, e = reg() // src
		}
	case JTrue, JFalse, JNull, JNotNull, NullCheck, Throw, Rethrow, EndTrap:
		inst.A, e = reg()
		if e == nil && op != NullCheck && op != Throw && op != Rethrow && op != EndTrap {
			var off int64
			off, e = c.varint()
			inst.Offset = JumpOffset(off)
		}
	case JSLt, JSGte, JSGt, JSLte, JULt, JUGte, JNotLt, JNotGte, JEq, JNotEq:
		inst.A, e = reg()
		if e == nil {
			inst.B, e = reg()
		}
		if e == nil {
			var off int64
			off, e = c.varint()
			inst.Offset = JumpOffset(off)
		}
	case JAlways:
		var off int64
		off, e = c.varint()
		inst.Offset = JumpOffset(off)
	case Label, Assert, Nop:
		// no operands
	case Ret:
		inst.A, e = reg()
	case Switch:
		inst.A, e = reg()
		if e != nil {
			break
		}
		var n uint64
		n, e = c.uvarint()
		if e != nil {
			break
		}
		inst.Offsets = make([]JumpOffset, n)
		for i := range inst.Offsets {
			var off int64
			off, e = c.varint()
			if e != nil {
				break
			}
			inst.Offsets[i] = JumpOffset(off)
		}
		if e == nil {
			var off int64
			off, e = c.varint()
			inst.End = JumpOffset(off)
		}
	case Trap:
		inst.Dst, e = reg() // exc register
		if e == nil {
			var off int64
			off, e = c.varint()
			inst.Offset = JumpOffset(off)
		}
	case GetI8, GetI16, GetMem, GetArray:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
		if e == nil {
			inst.B, e = reg()
		}
	case SetI8, SetI16, SetMem, SetArray:
		inst.A, e = reg()
		if e == nil {
			inst.B, e = reg()
		}
		if e == nil {
			inst.C, e = reg()
		}
	case ArraySize:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
	case Type:
		inst.Dst, e = reg()
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.TypeRef = pool.RefType(v)
		}
	case Setref:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
	case MakeEnum:
		inst.Dst, e = reg()
		if e != nil {
			break
		}
		var v uint64
		v, e = c.uvarint()
		inst.Construct = int(v)
		if e == nil {
			inst.Args, e = readArgs()
		}
	case EnumIndex:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
	case EnumField:
		inst.Dst, e = reg()
		if e != nil {
			break
		}
		inst.A, e = reg() // enum_
		if e != nil {
			break
		}
		var v uint64
		v, e = c.uvarint()
		inst.Construct = int(v)
		if e == nil {
			var fv uint64
			fv, e = c.uvarint()
			inst.FieldRef = pool.RefField(fv)
		}
	case SetEnumField:
		inst.A, e = reg() // enum_
		if e != nil {
			break
		}
		var v uint64
		v, e = c.uvarint()
		inst.FieldRef = pool.RefField(v)
		if e == nil {
			inst.B, e = reg() // src
		}
	case RefOffset:
		inst.Dst, e = reg()
		if e == nil {
			inst.A, e = reg()
		}
		if e == nil {
			var v uint64
			v, e = c.uvarint()
			inst.RefByteOffset = int(v)
		}
	default:
		e = hlerr.New(hlerr.Decode, hlerr.ReasonUnknownOpcode, "unhandled opcode tag").
			WithPC(pc).WithOpcode(op.String())
	}
	if e != nil {
		if he, ok := e.(*hlerr.Error); ok {
			if he.Function < 0 {
				he.WithPC(pc).WithOpcode(op.String())
			}
			return Instruction{}, he
		}
		return Instruction{}, hlerr.New(hlerr.Decode, hlerr.ReasonTruncated, e.Error()).WithPC(pc).WithOpcode(op.String())
	}
	return inst, nil
}
