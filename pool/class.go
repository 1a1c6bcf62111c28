package pool

// ClassDef binds a module-level class declaration to the Object type
// carrying its field layout, plus the methods hung off it. The type
// table (see Type) already carries name/fields/parent; ClassDef adds
// the method list and per-method flags that the type table has no room
// for.
type ClassDef struct {
	Type    RefType // resolves to a Type with Kind == Object
	Methods []MethodDef
}

// MethodDef is one method of a ClassDef.
type MethodDef struct {
	Fun     RefFun
	Static  bool
	Dynamic bool // late-bound, per-instance rebindable
}

// EnumDef binds a module-level enum declaration to its Enum type.
type EnumDef struct {
	Type RefType // resolves to a Type with Kind == Enum
}
