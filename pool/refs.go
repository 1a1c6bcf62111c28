// Package pool implements the Pool & Type Store: the module's interned
// tables of constants and types. Every other stage holds only indices
// into these tables; dereferencing always goes through a Pool.
package pool

// Ref* are opaque indices into a Pool's tables. They carry no data of
// their own; Pool.Resolve* turns one into the value it names.
type (
	RefInt    int
	RefFloat  int
	RefBytes  int
	RefString int
	RefType   int
	RefGlobal int
	RefFun    int
	RefNative int
)

// RefField indexes a Type's Fields slice; it is only meaningful
// together with the RefType of the object/virtual type it belongs to.
type RefField int

// Reg names a register local to one function. Register 0 is the
// implicit receiver for non-static methods.
type Reg int
