package opcode

import "github.com/wudi/hlbcgo/pool"

// JumpOffset is relative to the index of the instruction following the
// branch that carries it (spec.md section 4.2).
type JumpOffset int32

// Instruction is a decoded bytecode instruction. Every variant's shape
// is a fixed subset of these fields; which fields are meaningful is
// determined entirely by Op (see decode.go's per-opcode read order).
// This flat-struct shape mirrors the teacher's own Instruction{Op1, Op2,
// Result} encoding (opcodes/opcodes.go), generalized from three untyped
// uint32 slots to named, pool-typed ones.
type Instruction struct {
	Op Op
	PC int // index of this instruction within its function's stream

	Dst pool.Reg
	A   pool.Reg
	B   pool.Reg
	// C is the rare third plain register operand (DynSet, SetArray,
	// SetMem, SetI8, SetI16) that carries no destination register.
	C pool.Reg

	// Args is the variable-length register list carried by CallN,
	// CallMethod, CallThis, CallClosure and MakeEnum.
	Args []pool.Reg

	IntRef    pool.RefInt
	FloatRef  pool.RefFloat
	BytesRef  pool.RefBytes
	StringRef pool.RefString
	TypeRef   pool.RefType
	FieldRef  pool.RefField
	GlobalRef pool.RefGlobal
	FunRef    pool.RefFun

	BoolVal bool

	// Offset is the single jump target for conditional branches,
	// JAlways and Trap. Switch instead uses Offsets/End.
	Offset  JumpOffset
	Offsets []JumpOffset
	End     JumpOffset

	// Construct is the enum constructor index for MakeEnum, EnumAlloc
	// and EnumField. EnumIndex does not use it; its operand is register A.
	Construct int

	// RefByteOffset is RefOffset's byte offset operand.
	RefByteOffset int
}

// Target resolves a single jump offset to an absolute instruction
// index, relative to the instruction following this one.
func (i *Instruction) Target() int {
	return i.PC + 1 + int(i.Offset)
}

// SwitchTargets resolves Switch's per-case offsets and its end/default
// offset to absolute instruction indices.
func (i *Instruction) SwitchTargets() (cases []int, end int) {
	base := i.PC + 1
	cases = make([]int, len(i.Offsets))
	for idx, off := range i.Offsets {
		cases[idx] = base + int(off)
	}
	end = base + int(i.End)
	return cases, end
}
