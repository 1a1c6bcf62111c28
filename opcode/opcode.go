// Package opcode defines the virtual machine's instruction set (~100
// variants, spec.md section 3) and the binary decoder/encoder for it.
// Grouped the way the source format groups them: register moves and
// constants, arithmetic, calls, globals and fields, branches, casts,
// control, memory access, enums, and a small misc bucket.
package opcode

// Op tags one instruction variant. Kept as a flat byte enum rather than
// an interface hierarchy per the design note in spec.md section 9:
// exhaustive switch dispatch over a closed set beats open dispatch here.
type Op byte

const (
	// Register moves & constants.
	Mov Op = iota
	Int
	Float
	Bool
	Bytes
	String
	Null

	// Arithmetic / bitwise / unary.
	Add
	Sub
	Mul
	SDiv
	UDiv
	SMod
	UMod
	Shl
	SShr
	UShr
	And
	Or
	Xor
	Neg
	Not
	Incr
	Decr

	// Calls.
	Call0
	Call1
	Call2
	Call3
	Call4
	CallN
	CallMethod
	CallThis
	CallClosure
	StaticClosure
	InstanceClosure
	VirtualClosure

	// Globals & fields.
	GetGlobal
	SetGlobal
	Field
	SetField
	GetThis
	SetThis
	DynGet
	DynSet

	// Branches: conditional.
	JTrue
	JFalse
	JNull
	JNotNull
	JSLt
	JSGte
	JSGt
	JSLte
	JULt
	JUGte
	JNotLt
	JNotGte
	JEq
	JNotEq
	// Branches: unconditional.
	JAlways

	// Casts.
	ToDyn
	ToSFloat
	ToUFloat
	ToInt
	SafeCast
	UnsafeCast
	ToVirtual

	// Control.
	Label
	Ret
	Throw
	Rethrow
	Switch
	NullCheck
	Trap
	EndTrap

	// Memory access.
	GetI8
	GetI16
	GetMem
	GetArray
	SetI8
	SetI16
	SetMem
	SetArray
	New
	ArraySize
	Type
	GetType
	GetTID
	Ref
	Unref
	Setref
	RefData
	RefOffset

	// Enums.
	MakeEnum
	EnumAlloc
	EnumIndex
	EnumField
	SetEnumField

	// Misc.
	Assert
	Nop

	opCount
)

var names = [...]string{
	Mov: "Mov", Int: "Int", Float: "Float", Bool: "Bool", Bytes: "Bytes",
	String: "String", Null: "Null",
	Add: "Add", Sub: "Sub", Mul: "Mul", SDiv: "SDiv", UDiv: "UDiv",
	SMod: "SMod", UMod: "UMod", Shl: "Shl", SShr: "SShr", UShr: "UShr",
	And: "And", Or: "Or", Xor: "Xor", Neg: "Neg", Not: "Not",
	Incr: "Incr", Decr: "Decr",
	Call0: "Call0", Call1: "Call1", Call2: "Call2", Call3: "Call3", Call4: "Call4",
	CallN: "CallN", CallMethod: "CallMethod", CallThis: "CallThis",
	CallClosure: "CallClosure", StaticClosure: "StaticClosure",
	InstanceClosure: "InstanceClosure", VirtualClosure: "VirtualClosure",
	GetGlobal: "GetGlobal", SetGlobal: "SetGlobal", Field: "Field",
	SetField: "SetField", GetThis: "GetThis", SetThis: "SetThis",
	DynGet: "DynGet", DynSet: "DynSet",
	JTrue: "JTrue", JFalse: "JFalse", JNull: "JNull", JNotNull: "JNotNull",
	JSLt: "JSLt", JSGte: "JSGte", JSGt: "JSGt", JSLte: "JSLte",
	JULt: "JULt", JUGte: "JUGte", JNotLt: "JNotLt", JNotGte: "JNotGte",
	JEq: "JEq", JNotEq: "JNotEq", JAlways: "JAlways",
	ToDyn: "ToDyn", ToSFloat: "ToSFloat", ToUFloat: "ToUFloat", ToInt: "ToInt",
	SafeCast: "SafeCast", UnsafeCast: "UnsafeCast", ToVirtual: "ToVirtual",
	Label: "Label", Ret: "Ret", Throw: "Throw", Rethrow: "Rethrow",
	Switch: "Switch", NullCheck: "NullCheck", Trap: "Trap", EndTrap: "EndTrap",
	GetI8: "GetI8", GetI16: "GetI16", GetMem: "GetMem", GetArray: "GetArray",
	SetI8: "SetI8", SetI16: "SetI16", SetMem: "SetMem", SetArray: "SetArray",
	New: "New", ArraySize: "ArraySize", Type: "Type", GetType: "GetType",
	GetTID: "GetTID", Ref: "Ref", Unref: "Unref", Setref: "Setref",
	RefData: "RefData", RefOffset: "RefOffset",
	MakeEnum: "MakeEnum", EnumAlloc: "EnumAlloc", EnumIndex: "EnumIndex",
	EnumField: "EnumField", SetEnumField: "SetEnumField",
	Assert: "Assert", Nop: "Nop",
}

func (o Op) String() string {
	if int(o) < 0 || int(o) >= len(names) || names[o] == "" {
		return "Unknown"
	}
	return names[o]
}

// IsJump reports whether o carries a JumpOffset field (all conditional
// branches plus JAlways). Switch is handled separately since it carries
// a list of offsets rather than a single one.
func (o Op) IsJump() bool {
	switch o {
	case JTrue, JFalse, JNull, JNotNull, JSLt, JSGte, JSGt, JSLte,
		JULt, JUGte, JNotLt, JNotGte, JEq, JNotEq, JAlways:
		return true
	default:
		return false
	}
}

// IsConditionalJump reports whether o is a two-way branch (as opposed
// to JAlways, which is unconditional).
func (o Op) IsConditionalJump() bool {
	return o.IsJump() && o != JAlways
}
