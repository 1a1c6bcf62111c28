// Package class assembles reconstructed methods into classes by
// walking the module's class table, in declaration order.
package class

import (
	"github.com/wudi/hlbcgo/ast"
	hlerr "github.com/wudi/hlbcgo/errors"
	"github.com/wudi/hlbcgo/pool"
)

// MethodBuilder produces a reconstructed ast.Method for one function,
// supplied by the decompiler package which owns the lift/structure
// pipeline.
type MethodBuilder func(fun pool.RefFun) (*ast.Method, error)

// Assemble builds the ast.Class for classRef: its fields in
// declaration order and its methods via build, in the order the class
// table lists them.
func Assemble(p *pool.Pool, classRef pool.RefType, build MethodBuilder) (*ast.Class, error) {
	var def *pool.ClassDef
	for i := range p.Classes {
		if p.Classes[i].Type == classRef {
			def = &p.Classes[i]
			break
		}
	}
	if def == nil {
		return nil, hlerr.New(hlerr.Pool, hlerr.ReasonBadReference, "class not found for type").WithOpcode("class")
	}

	t, err := p.ResolveType(classRef)
	if err != nil {
		return nil, err
	}
	name, err := p.ResolveString(t.Name)
	if err != nil {
		return nil, err
	}

	out := &ast.Class{Name: name, Type: classRef}
	if t.HasParent {
		pt, err := p.ResolveType(t.Parent)
		if err == nil {
			pname, err := p.ResolveString(pt.Name)
			if err == nil {
				out.Parent = &pname
			}
		}
	}

	for _, f := range t.Fields {
		fname, err := p.ResolveString(f.Name)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, ast.FieldDecl{Name: fname, Type: f.Type, Static: f.Static})
	}

	for _, m := range def.Methods {
		method, err := build(m.Fun)
		if err != nil {
			return nil, err
		}
		method.Static = m.Static
		method.Dynamic = m.Dynamic
		out.Methods = append(out.Methods, method)
	}

	return out, nil
}
