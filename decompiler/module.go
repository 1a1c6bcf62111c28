// Package decompiler exposes the four public core operations external
// collaborators (CLI, REPL) drive the pipeline through: Load,
// DecompileClass, DecompileMethod and Render. Everything underneath —
// pool resolution, opcode decoding, lifting, structuring, class
// assembly, printing — is an internal collaborator invoked in a
// straight-line, single-threaded pipeline (spec.md section 5).
package decompiler

import (
	"math"

	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/opcode"
	"github.com/wudi/hlbcgo/pool"
)

// magic identifies the bytecode module header, read but not otherwise
// interpreted beyond a sanity check.
var magic = [3]byte{'H', 'L', 'B'}

// Module is a fully decoded bytecode file: the pool plus every
// function's decoded instruction stream, read-only from this point on.
type Module struct {
	Pool         *pool.Pool
	Instructions [][]opcode.Instruction // indexed the same as Pool.Funcs
	EntryPoint   pool.RefFun
}

// FindClassByName resolves a class's type reference by its declared
// name, for collaborators (the CLI, the REPL) that address classes by
// name rather than by pool index.
func (m *Module) FindClassByName(name string) (pool.RefType, error) {
	for _, c := range m.Pool.Classes {
		t, err := m.Pool.ResolveType(c.Type)
		if err != nil {
			continue
		}
		tname, err := m.Pool.ResolveString(t.Name)
		if err != nil {
			continue
		}
		if tname == name {
			return c.Type, nil
		}
	}
	return 0, hlerr.New(hlerr.Pool, hlerr.ReasonBadReference, "no class named "+name)
}

// cursor mirrors opcode's unexported one; the loader needs its own
// copy since it reads the pool tables the opcode decoder never touches.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) truncated(what string) *hlerr.Error {
	return hlerr.New(hlerr.Decode, hlerr.ReasonTruncated, "truncated reading "+what)
}

func (c *cursor) readByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, c.truncated("byte")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) uvarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := c.readByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > 63 {
			return 0, hlerr.New(hlerr.Decode, hlerr.ReasonBadTableSize, "varint too long")
		}
	}
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, c.truncated("fixed block")
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readString() (string, error) {
	n, err := c.uvarint()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Load parses a complete bytecode module from an in-memory byte slice.
// It performs no I/O of its own: the caller is responsible for getting
// the bytes into memory (spec.md section 5's external-loader boundary).
func Load(data []byte) (*Module, error) {
	c := &cursor{data: data}

	hdr, err := c.take(3)
	if err != nil {
		return nil, err
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] {
		return nil, hlerr.New(hlerr.Decode, hlerr.ReasonBadTableSize, "bad magic header")
	}
	if _, err := c.readByte(); err != nil { // version byte, not otherwise interpreted
		return nil, err
	}

	p := &pool.Pool{}

	nints, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Ints = make([]int32, nints)
	for i := range p.Ints {
		v, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		p.Ints[i] = int32(v)
	}

	nfloats, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Floats = make([]float64, nfloats)
	for i := range p.Floats {
		b, err := c.take(8)
		if err != nil {
			return nil, err
		}
		var bits uint64
		for j := 0; j < 8; j++ {
			bits |= uint64(b[j]) << (8 * j)
		}
		p.Floats[i] = float64FromBits(bits)
	}

	nstrings, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Strings = make([]string, nstrings)
	for i := range p.Strings {
		s, err := c.readString()
		if err != nil {
			return nil, err
		}
		p.Strings[i] = s
	}

	nbytesBlobs, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Bytes = make([][]byte, nbytesBlobs)
	for i := range p.Bytes {
		n, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		blob, err := c.take(int(n))
		if err != nil {
			return nil, err
		}
		cp := make([]byte, len(blob))
		copy(cp, blob)
		p.Bytes[i] = cp
	}

	ntypes, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Types = make([]pool.Type, ntypes)
	for i := range p.Types {
		t, err := c.readType()
		if err != nil {
			return nil, err
		}
		p.Types[i] = t
	}

	nglobals, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Globals = make([]pool.Global, nglobals)
	for i := range p.Globals {
		v, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		p.Globals[i] = pool.Global{Type: pool.RefType(v)}
	}

	nnatives, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Natives = make([]pool.NativeRef, nnatives)
	for i := range p.Natives {
		name, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		typ, err := c.uvarint()
		if err != nil {
			return nil, err
		}
		p.Natives[i] = pool.NativeRef{Name: pool.RefString(name), Type: pool.RefType(typ)}
	}

	nfuncs, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	p.Funcs = make([]pool.FunctionProto, nfuncs)
	instructions := make([][]opcode.Instruction, nfuncs)
	for i := range p.Funcs {
		proto, instrs, err := c.readFunction(i)
		if err != nil {
			return nil, err
		}
		p.Funcs[i] = proto
		instructions[i] = instrs
	}

	if err := c.readClassesAndEnums(p); err != nil {
		return nil, err
	}

	entry, err := c.uvarint()
	if err != nil {
		return nil, err
	}

	return &Module{Pool: p, Instructions: instructions, EntryPoint: pool.RefFun(entry)}, nil
}

func float64FromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

func (c *cursor) readType() (pool.Type, error) {
	kindByte, err := c.readByte()
	if err != nil {
		return pool.Type{}, err
	}
	k := pool.TypeKind(kindByte)
	t := pool.Type{Kind: k}
	switch k {
	case pool.Object:
		nameRef, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.Name = pool.RefString(nameRef)
		hasParent, err := c.readByte()
		if err != nil {
			return t, err
		}
		if hasParent != 0 {
			parentRef, err := c.uvarint()
			if err != nil {
				return t, err
			}
			t.Parent = pool.RefType(parentRef)
			t.HasParent = true
		}
		nfields, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.Fields = make([]pool.Field, nfields)
		for i := range t.Fields {
			f, err := c.readField()
			if err != nil {
				return t, err
			}
			t.Fields[i] = f
		}
	case pool.Virtual:
		nfields, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.VirtualFields = make([]pool.Field, nfields)
		for i := range t.VirtualFields {
			f, err := c.readField()
			if err != nil {
				return t, err
			}
			t.VirtualFields[i] = f
		}
	case pool.Function:
		nargs, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.Fun.Args = make([]pool.RefType, nargs)
		for i := range t.Fun.Args {
			v, err := c.uvarint()
			if err != nil {
				return t, err
			}
			t.Fun.Args[i] = pool.RefType(v)
		}
		ret, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.Fun.Ret = pool.RefType(ret)
	case pool.Enum:
		nameRef, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.Name = pool.RefString(nameRef)
		nctors, err := c.uvarint()
		if err != nil {
			return t, err
		}
		t.Constructors = make([]pool.EnumConstructor, nctors)
		for i := range t.Constructors {
			nameRef, err := c.uvarint()
			if err != nil {
				return t, err
			}
			nfields, err := c.uvarint()
			if err != nil {
				return t, err
			}
			fields := make([]pool.RefType, nfields)
			for j := range fields {
				v, err := c.uvarint()
				if err != nil {
					return t, err
				}
				fields[j] = pool.RefType(v)
			}
			t.Constructors[i] = pool.EnumConstructor{Name: pool.RefString(nameRef), Fields: fields}
		}
	}
	return t, nil
}

func (c *cursor) readField() (pool.Field, error) {
	nameRef, err := c.uvarint()
	if err != nil {
		return pool.Field{}, err
	}
	typeRef, err := c.uvarint()
	if err != nil {
		return pool.Field{}, err
	}
	staticByte, err := c.readByte()
	if err != nil {
		return pool.Field{}, err
	}
	return pool.Field{Name: pool.RefString(nameRef), Type: pool.RefType(typeRef), Static: staticByte != 0}, nil
}

func (c *cursor) readFunction(idx int) (pool.FunctionProto, []opcode.Instruction, error) {
	typeRef, err := c.uvarint()
	if err != nil {
		return pool.FunctionProto{}, nil, err
	}
	nameRef, err := c.uvarint()
	if err != nil {
		return pool.FunctionProto{}, nil, err
	}
	regCount, err := c.uvarint()
	if err != nil {
		return pool.FunctionProto{}, nil, err
	}
	regTypes := make([]pool.RefType, regCount)
	for i := range regTypes {
		v, err := c.uvarint()
		if err != nil {
			return pool.FunctionProto{}, nil, err
		}
		regTypes[i] = pool.RefType(v)
	}
	hasDebug, err := c.readByte()
	if err != nil {
		return pool.FunctionProto{}, nil, err
	}
	var argNames []pool.RefString
	if hasDebug != 0 {
		nargNames, err := c.uvarint()
		if err != nil {
			return pool.FunctionProto{}, nil, err
		}
		argNames = make([]pool.RefString, nargNames)
		for i := range argNames {
			v, err := c.uvarint()
			if err != nil {
				return pool.FunctionProto{}, nil, err
			}
			argNames[i] = pool.RefString(v)
		}
	}
	ninstrs, err := c.uvarint()
	if err != nil {
		return pool.FunctionProto{}, nil, err
	}
	instrs, consumed, err := opcode.DecodeFunctionN(c.data[c.pos:], int(ninstrs))
	if err != nil {
		if he, ok := err.(*hlerr.Error); ok {
			he.WithFunction(idx)
		}
		return pool.FunctionProto{}, nil, err
	}
	c.pos += consumed

	proto := pool.FunctionProto{
		Findex:   pool.RefFun(idx),
		Type:     pool.RefType(typeRef),
		RegCount: int(regCount),
		RegTypes: regTypes,
		Name:     pool.RefString(nameRef),
		HasDebug: hasDebug != 0,
		ArgNames: argNames,
	}
	return proto, instrs, nil
}

func (c *cursor) readClassesAndEnums(p *pool.Pool) error {
	for i, t := range p.Types {
		switch t.Kind {
		case pool.Object:
			nmethods, err := c.uvarint()
			if err != nil {
				return err
			}
			methods := make([]pool.MethodDef, nmethods)
			for m := range methods {
				funRef, err := c.uvarint()
				if err != nil {
					return err
				}
				flags, err := c.readByte()
				if err != nil {
					return err
				}
				methods[m] = pool.MethodDef{
					Fun:     pool.RefFun(funRef),
					Static:  flags&0x1 != 0,
					Dynamic: flags&0x2 != 0,
				}
			}
			p.Classes = append(p.Classes, pool.ClassDef{Type: pool.RefType(i), Methods: methods})
		case pool.Enum:
			p.Enums = append(p.Enums, pool.EnumDef{Type: pool.RefType(i)})
		}
	}
	return nil
}
