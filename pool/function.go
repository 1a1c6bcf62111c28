package pool

// FunctionProto is a function's pool-resident metadata: its type
// (argument/return types), its register file shape, and optional debug
// names. The decoded instruction stream for a function lives in the
// opcode package, keyed by the same RefFun.
type FunctionProto struct {
	Findex    RefFun
	Type      RefType // must resolve to a Function type
	RegCount  int
	RegTypes  []RefType
	Name      RefString
	HasDebug  bool
	ArgNames  []RefString // len == len(Type.Fun.Args), may contain -1 entries
	IsNative  bool
	NativeRef RefNative
}

// Global is a module-level variable slot; only its type is interned,
// any initial value lives in a function's constant-load instructions.
type Global struct {
	Type RefType
}
