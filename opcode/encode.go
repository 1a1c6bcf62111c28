package opcode

import (
	"encoding/binary"

	"github.com/wudi/hlbcgo/pool"
)

// toU64 widens any of the pool's index ref types (all backed by int) to
// the uint64 the wire format uses for every operand slot.
func toU64[T ~int](v T) uint64 {
	return uint64(v)
}

func regsOfSlice(regs []pool.Reg) []uint64 {
	out := make([]uint64, len(regs))
	for i, r := range regs {
		out[i] = toU64(r)
	}
	return out
}

// writer is decode's inverse: a simple append-only byte buffer. It is
// reached from the round-trip tests and from cache.Key, which hashes an
// instruction stream's encoding; the pipeline never re-serializes an
// AST back to bytecode.
type writer struct {
	buf []byte
}

func (w *writer) putByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) putUvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
}

func (w *writer) putVarint(v int64) {
	w.putUvarint(uint64(v<<1) ^ uint64(v>>63))
}

func (w *writer) putBool(b bool) {
	if b {
		w.putByte(1)
	} else {
		w.putByte(0)
	}
}

// EncodeFunction serializes instructions back into the wire format
// DecodeFunction reads. It is used by the round-trip tests and by
// cache.Key.
func EncodeFunction(instructions []Instruction) []byte {
	w := &writer{}
	for _, inst := range instructions {
		Encode(w, inst)
	}
	return w.buf
}

// Encode appends the wire encoding of a single instruction to w.
func Encode(w *writer, inst Instruction) {
	w.putByte(byte(inst.Op))
	reg := func(r uint64) { w.putUvarint(r) }
	args := func(regs []uint64) {
		w.putUvarint(uint64(len(regs)))
		for _, r := range regs {
			reg(r)
		}
	}

	switch inst.Op {
	case Mov, Neg, Not, ToDyn, ToSFloat, ToUFloat, ToInt, SafeCast, UnsafeCast,
		ToVirtual, GetType, GetTID, Ref, Unref, RefData:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
	case Int:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.IntRef))
	case Float:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FloatRef))
	case Bool:
		reg(toU64(inst.Dst))
		w.putBool(inst.BoolVal)
	case Bytes:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.BytesRef))
	case String:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.StringRef))
	case Null, New:
		reg(toU64(inst.Dst))
	case EnumAlloc:
		reg(toU64(inst.Dst))
		w.putUvarint(uint64(inst.Construct))
	case Add, Sub, Mul, SDiv, UDiv, SMod, UMod, Shl, SShr, UShr, And, Or, Xor:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		reg(toU64(inst.B))
	case Incr, Decr:
		reg(toU64(inst.Dst))
	case Call0:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FunRef))
	case Call1, Call2, Call3, Call4:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FunRef))
		for _, a := range inst.Args {
			reg(toU64(a))
		}
	case CallN:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FunRef))
		args(regsOfSlice(inst.Args))
	case CallMethod:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		reg(toU64(inst.B))
		args(regsOfSlice(inst.Args))
	case CallThis:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		args(regsOfSlice(inst.Args))
	case CallClosure:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		args(regsOfSlice(inst.Args))
	case StaticClosure:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FunRef))
	case InstanceClosure:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FunRef))
		reg(toU64(inst.A))
	case VirtualClosure:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		reg(toU64(inst.B))
	case GetGlobal:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.GlobalRef))
	case SetGlobal:
		w.putUvarint(toU64(inst.GlobalRef))
		reg(toU64(inst.A))
	case Field:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		w.putUvarint(toU64(inst.FieldRef))
	case SetField:
		reg(toU64(inst.A))
		w.putUvarint(toU64(inst.FieldRef))
		reg(toU64(inst.B))
	case GetThis:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.FieldRef))
	case SetThis:
		w.putUvarint(toU64(inst.FieldRef))
		reg(toU64(inst.A))
	case DynGet:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		reg(toU64(inst.B))
	case DynSet:
		reg(toU64(inst.A))
		reg(toU64(inst.B))
		reg(toU64(inst.C))
	case JTrue, JFalse, JNull, JNotNull:
		reg(toU64(inst.A))
		w.putVarint(int64(inst.Offset))
	case NullCheck, Throw, Rethrow, EndTrap:
		reg(toU64(inst.A))
	case JSLt, JSGte, JSGt, JSLte, JULt, JUGte, JNotLt, JNotGte, JEq, JNotEq:
		reg(toU64(inst.A))
		reg(toU64(inst.B))
		w.putVarint(int64(inst.Offset))
	case JAlways:
		w.putVarint(int64(inst.Offset))
	case Label, Assert, Nop:
		// no operands
	case Ret:
		reg(toU64(inst.A))
	case Switch:
		reg(toU64(inst.A))
		w.putUvarint(uint64(len(inst.Offsets)))
		for _, off := range inst.Offsets {
			w.putVarint(int64(off))
		}
		w.putVarint(int64(inst.End))
	case Trap:
		reg(toU64(inst.Dst))
		w.putVarint(int64(inst.Offset))
	case GetI8, GetI16, GetMem, GetArray:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		reg(toU64(inst.B))
	case SetI8, SetI16, SetMem, SetArray:
		reg(toU64(inst.A))
		reg(toU64(inst.B))
		reg(toU64(inst.C))
	case ArraySize:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
	case Type:
		reg(toU64(inst.Dst))
		w.putUvarint(toU64(inst.TypeRef))
	case Setref:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
	case MakeEnum:
		reg(toU64(inst.Dst))
		w.putUvarint(uint64(inst.Construct))
		args(regsOfSlice(inst.Args))
	case EnumIndex:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
	case EnumField:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		w.putUvarint(uint64(inst.Construct))
		w.putUvarint(toU64(inst.FieldRef))
	case SetEnumField:
		reg(toU64(inst.A))
		w.putUvarint(toU64(inst.FieldRef))
		reg(toU64(inst.B))
	case RefOffset:
		reg(toU64(inst.Dst))
		reg(toU64(inst.A))
		w.putUvarint(uint64(inst.RefByteOffset))
	}
}
