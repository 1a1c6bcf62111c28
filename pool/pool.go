package pool

import (
	"strconv"

	"github.com/wudi/hlbcgo/errors"
)

// Pool is the module's Pool & Type Store: read-only after Load, holding
// every interned table the rest of the pipeline dereferences indices
// into. Concurrent reads from multiple goroutines are safe since Pool
// is never mutated after construction (spec.md section 5).
type Pool struct {
	Ints    []int32
	Floats  []float64
	Bytes   [][]byte
	Strings []string
	Types   []Type
	Globals []Global
	Natives []NativeRef
	Funcs   []FunctionProto
	Classes []ClassDef
	Enums   []EnumDef
}

// NativeRef names an externally-linked (host) function; the decompiler
// only needs its declared name and type to render a call target.
type NativeRef struct {
	Name RefString
	Type RefType
}

func outOfRange(kind string, index int) *errors.Error {
	return errors.New(errors.Pool, errors.ReasonOutOfRange, kind+" index "+strconv.Itoa(index))
}

func (p *Pool) ResolveInt(r RefInt) (int32, error) {
	if int(r) < 0 || int(r) >= len(p.Ints) {
		return 0, outOfRange("int", int(r))
	}
	return p.Ints[r], nil
}

func (p *Pool) ResolveFloat(r RefFloat) (float64, error) {
	if int(r) < 0 || int(r) >= len(p.Floats) {
		return 0, outOfRange("float", int(r))
	}
	return p.Floats[r], nil
}

func (p *Pool) ResolveBytes(r RefBytes) ([]byte, error) {
	if int(r) < 0 || int(r) >= len(p.Bytes) {
		return nil, outOfRange("bytes", int(r))
	}
	return p.Bytes[r], nil
}

func (p *Pool) ResolveString(r RefString) (string, error) {
	if int(r) < 0 || int(r) >= len(p.Strings) {
		return "", outOfRange("string", int(r))
	}
	return p.Strings[r], nil
}

func (p *Pool) ResolveType(r RefType) (*Type, error) {
	if int(r) < 0 || int(r) >= len(p.Types) {
		return nil, outOfRange("type", int(r))
	}
	return &p.Types[r], nil
}

func (p *Pool) ResolveGlobal(r RefGlobal) (*Global, error) {
	if int(r) < 0 || int(r) >= len(p.Globals) {
		return nil, outOfRange("global", int(r))
	}
	return &p.Globals[r], nil
}

func (p *Pool) ResolveFunction(r RefFun) (*FunctionProto, error) {
	if int(r) < 0 || int(r) >= len(p.Funcs) {
		return nil, outOfRange("function", int(r))
	}
	return &p.Funcs[r], nil
}

func (p *Pool) ResolveNative(r RefNative) (*NativeRef, error) {
	if int(r) < 0 || int(r) >= len(p.Natives) {
		return nil, outOfRange("native", int(r))
	}
	return &p.Natives[r], nil
}

// ResolveField looks up field i on the type referenced by tref, which
// must resolve to an Object or Virtual type.
func (p *Pool) ResolveField(tref RefType, i RefField) (*Field, error) {
	t, err := p.ResolveType(tref)
	if err != nil {
		return nil, err
	}
	var fields []Field
	switch t.Kind {
	case Object:
		fields = t.Fields
	case Virtual:
		fields = t.VirtualFields
	default:
		return nil, outOfRange("field (type is not Object/Virtual)", int(i))
	}
	if int(i) < 0 || int(i) >= len(fields) {
		return nil, outOfRange("field", int(i))
	}
	return &fields[i], nil
}

// FieldName is a convenience combining ResolveField with a string
// lookup, since the printer only ever wants the field's name text.
func (p *Pool) FieldName(tref RefType, i RefField) (string, error) {
	f, err := p.ResolveField(tref, i)
	if err != nil {
		return "", err
	}
	return p.ResolveString(f.Name)
}
