package loader

import (
	"fmt"
	"strings"

	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vf"
)

// Resolve turns a decoded document into a program: type notations are
// parsed, variable paths bound to declarations and field types
// instantiated for the scope they are read through.
func Resolve(doc *Document) (*model.Program, error) {
	p := model.NewProgram()
	for _, td := range doc.Types {
		ti, err := resolveType(td)
		if err != nil {
			return nil, err
		}
		p.AddType(ti)
	}
	for _, md := range doc.Methods {
		m, err := resolveMethod(p, md)
		if err != nil {
			return nil, err
		}
		if err := p.AddMethod(m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
	}
	return p, nil
}

func typeParams(names ...[]string) func(string) bool {
	set := make(map[string]bool)
	for _, ns := range names {
		for _, n := range ns {
			set[n] = true
		}
	}
	return func(n string) bool { return set[n] }
}

func parseType(s string, isTP func(string) bool) (model.Type, error) {
	t, err := model.ParseType(s, isTP)
	if err != nil {
		return model.Type{}, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return t, nil
}

func resolveType(td TypeDoc) (*model.TypeInfo, error) {
	isTP := typeParams(td.TypeParameters)
	ti := &model.TypeInfo{Name: td.Name, TypeParameters: td.TypeParameters, Immutable: td.Immutable}
	for _, s := range td.Supertypes {
		t, err := parseType(s, isTP)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", td.Name, err)
		}
		ti.Supertypes = append(ti.Supertypes, t)
	}
	for _, f := range td.Fields {
		t, err := parseType(f.Type, isTP)
		if err != nil {
			return nil, fmt.Errorf("type %s field %s: %w", td.Name, f.Name, err)
		}
		ti.Fields = append(ti.Fields, model.Field{Name: f.Name, Type: t, Static: f.Static})
	}
	return ti, nil
}

// scope resolves names inside one method body.
type scope struct {
	p    *model.Program
	isTP func(string) bool
	this model.Variable
	vars map[string]model.Variable
}

func resolveMethod(p *model.Program, md MethodDoc) (*model.Method, error) {
	fqn := md.Owner + "." + md.Name
	wrap := func(err error) error { return fmt.Errorf("method %s: %w", fqn, err) }

	var ownerTPs []string
	owner, hasOwner := p.TypeInfo(md.Owner)
	if hasOwner {
		ownerTPs = owner.TypeParameters
	}
	sc := &scope{
		p:    p,
		isTP: typeParams(ownerTPs, md.TypeParameters),
		vars: make(map[string]model.Variable),
	}

	m := &model.Method{
		Name:           md.Name,
		Owner:          md.Owner,
		TypeParameters: md.TypeParameters,
		Static:         md.Static,
		Verdicts:       md.Verdicts,
		ReturnType:     model.Void,
	}
	if md.Returns != "" {
		t, err := parseType(md.Returns, sc.isTP)
		if err != nil {
			return nil, wrap(err)
		}
		m.ReturnType = t
	}
	if !md.Static {
		sc.this = m.This(owner)
	}
	for i, d := range md.Params {
		t, err := parseType(d.Type, sc.isTP)
		if err != nil {
			return nil, wrap(err)
		}
		par := model.Parameter{Method: fqn, Index: i, Name: d.Name, VarType: t}
		m.Params = append(m.Params, par)
		if err := sc.declare(d.Name, par); err != nil {
			return nil, wrap(err)
		}
	}
	for _, d := range md.Locals {
		t, err := parseType(d.Type, sc.isTP)
		if err != nil {
			return nil, wrap(err)
		}
		l := model.Local{Name: d.Name, VarType: t}
		m.Locals = append(m.Locals, l)
		if err := sc.declare(d.Name, l); err != nil {
			return nil, wrap(err)
		}
	}

	if md.Body != nil {
		body, err := sc.block(*md.Body)
		if err != nil {
			return nil, wrap(err)
		}
		m.Body = body
	}
	return m, nil
}

func (sc *scope) declare(name string, v model.Variable) error {
	if _, ok := sc.vars[name]; ok || name == "this" {
		return fmt.Errorf("%w: %q declared twice", ErrInvalidModel, name)
	}
	sc.vars[name] = v
	return nil
}

func (sc *scope) block(stmts []StatementDoc) (*model.Block, error) {
	b := &model.Block{}
	for _, sd := range stmts {
		s, err := sc.statement(sd)
		if err != nil {
			return nil, err
		}
		b.Statements = append(b.Statements, s)
	}
	return b, nil
}

func (sc *scope) optBlock(stmts []StatementDoc) (*model.Block, error) {
	if stmts == nil {
		return nil, nil
	}
	return sc.block(stmts)
}

func (sc *scope) statement(sd StatementDoc) (model.Statement, error) {
	switch {
	case sd.Assign != nil:
		target, err := sc.variable(sd.Assign.Target)
		if err != nil {
			return nil, err
		}
		value, err := sc.expr(&sd.Assign.Value)
		if err != nil {
			return nil, err
		}
		return &model.Assign{Target: target, Value: value}, nil

	case sd.Expr != nil:
		e, err := sc.expr(sd.Expr)
		if err != nil {
			return nil, err
		}
		return &model.ExprStmt{Expr: e}, nil

	case sd.Return != nil:
		e, err := sc.expr(sd.Return.Value)
		if err != nil {
			return nil, err
		}
		return &model.Return{Value: e}, nil

	case sd.If != nil:
		cond, err := sc.expr(&sd.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := sc.block(sd.If.Then)
		if err != nil {
			return nil, err
		}
		els, err := sc.optBlock(sd.If.Else)
		if err != nil {
			return nil, err
		}
		return &model.If{Cond: cond, Then: then, Else: els}, nil

	case sd.While != nil:
		cond, err := sc.expr(sd.While.Cond)
		if err != nil {
			return nil, err
		}
		body, err := sc.block(sd.While.Body)
		if err != nil {
			return nil, err
		}
		return &model.Loop{Cond: cond, Body: body}, nil

	case sd.ForEach != nil:
		t, err := parseType(sd.ForEach.Type, sc.isTP)
		if err != nil {
			return nil, err
		}
		iterable, err := sc.expr(&sd.ForEach.Iterable)
		if err != nil {
			return nil, err
		}
		v := model.Local{Name: sd.ForEach.Var, VarType: t}
		if err := sc.declare(v.Name, v); err != nil {
			return nil, err
		}
		body, err := sc.block(sd.ForEach.Body)
		if err != nil {
			return nil, err
		}
		return &model.ForEach{Var: v, Iterable: iterable, Body: body}, nil

	case sd.Try != nil:
		body, err := sc.block(sd.Try.Body)
		if err != nil {
			return nil, err
		}
		t := &model.Try{Body: body}
		for _, c := range sd.Try.Catches {
			cb, err := sc.block(c)
			if err != nil {
				return nil, err
			}
			t.Catches = append(t.Catches, cb)
		}
		if t.Finally, err = sc.optBlock(sd.Try.Finally); err != nil {
			return nil, err
		}
		return t, nil

	case sd.Block != nil:
		return sc.block(*sd.Block)

	default:
		return nil, fmt.Errorf("%w: empty statement", ErrInvalidModel)
	}
}

func (sc *scope) exprs(eds []ExprDoc) ([]model.Expression, error) {
	out := make([]model.Expression, len(eds))
	for i := range eds {
		e, err := sc.expr(&eds[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (sc *scope) expr(ed *ExprDoc) (model.Expression, error) {
	if ed == nil {
		return nil, nil
	}
	switch {
	case ed.Var != "":
		v, err := sc.variable(ed.Var)
		if err != nil {
			return nil, err
		}
		return model.Ref(v), nil

	case ed.Const != nil:
		return &model.Constant{Value: *ed.Const}, nil

	case ed.New != nil:
		t, err := parseType(ed.New.Type, sc.isTP)
		if err != nil {
			return nil, err
		}
		args, err := sc.exprs(ed.New.Args)
		if err != nil {
			return nil, err
		}
		return &model.New{Type: t, Args: args}, nil

	case ed.Call != nil:
		obj, err := sc.expr(ed.Call.Object)
		if err != nil {
			return nil, err
		}
		args, err := sc.exprs(ed.Call.Args)
		if err != nil {
			return nil, err
		}
		return &model.Call{Method: ed.Call.Method, Object: obj, Args: args}, nil

	case ed.Cast != nil:
		t, err := parseType(ed.Cast.Type, sc.isTP)
		if err != nil {
			return nil, err
		}
		inner, err := sc.expr(&ed.Cast.Expr)
		if err != nil {
			return nil, err
		}
		return &model.Cast{Type: t, Expr: inner}, nil

	case ed.Cond != nil:
		cond, err := sc.expr(ed.Cond.If)
		if err != nil {
			return nil, err
		}
		then, err := sc.expr(&ed.Cond.Then)
		if err != nil {
			return nil, err
		}
		els, err := sc.expr(&ed.Cond.Else)
		if err != nil {
			return nil, err
		}
		return &model.Conditional{Cond: cond, Then: then, Else: els}, nil

	default:
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidModel)
	}
}

// variable resolves a path such as "this.items[0].name" or "@Config.TIMEOUT".
func (sc *scope) variable(path string) (model.Variable, error) {
	root, rest := splitRoot(path)
	var v model.Variable
	switch {
	case strings.HasPrefix(root, "@"):
		// the owner may itself be dotted; the field is the last segment
		qualified := strings.TrimPrefix(root, "@")
		i := strings.LastIndex(qualified, ".")
		if i < 0 {
			return nil, fmt.Errorf("%w: static field %q needs an owner", ErrInvalidModel, path)
		}
		owner, field := qualified[:i], qualified[i+1:]
		ti, ok := sc.p.TypeInfo(owner)
		if !ok {
			return nil, fmt.Errorf("%w: unknown type %q in %q", ErrInvalidModel, owner, path)
		}
		f, ord, ok := ti.Field(field)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q of %s", ErrInvalidModel, field, owner)
		}
		v = model.FieldReference{Owner: owner, Field: field, Ordinal: ord, VarType: f.Type}
	case root == "this":
		if sc.this == nil {
			return nil, fmt.Errorf("%w: %q used in static method", ErrInvalidModel, path)
		}
		v = sc.this
	default:
		var ok bool
		if v, ok = sc.vars[root]; !ok {
			return nil, fmt.Errorf("%w: unknown variable %q", ErrInvalidModel, root)
		}
	}

	for rest != "" {
		var err error
		switch rest[0] {
		case '.':
			name := rest[1:]
			if i := strings.IndexAny(name, ".["); i >= 0 {
				name, rest = name[:i], name[i:]
			} else {
				rest = ""
			}
			if v, err = sc.field(v, name); err != nil {
				return nil, fmt.Errorf("%q: %w", path, err)
			}
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated index in %q", ErrInvalidModel, path)
			}
			idx := rest[1:end]
			rest = rest[end+1:]
			if v.Type().Arrays == 0 {
				return nil, fmt.Errorf("%w: %q is not an array", ErrInvalidModel, v.FQN())
			}
			v = model.DependentVariable{Array: v, Index: idx, VarType: v.Type().Element()}
		default:
			return nil, fmt.Errorf("%w: malformed path %q", ErrInvalidModel, path)
		}
	}
	return v, nil
}

func splitRoot(path string) (string, string) {
	if strings.HasPrefix(path, "@") {
		// static roots run up to the first element access
		if i := strings.IndexByte(path, '['); i >= 0 {
			return path[:i], path[i:]
		}
		return path, ""
	}
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i], path[i:]
	}
	return path, ""
}

// field resolves scope.name, instantiating the declared field type with the
// scope's type arguments: reading "elements" through a List<String> yields
// String[].
func (sc *scope) field(scope model.Variable, name string) (model.Variable, error) {
	t := scope.Type()
	if t.Arrays > 0 || t.Kind != model.KindClass {
		return nil, fmt.Errorf("%w: %s has no fields", ErrInvalidModel, t)
	}
	ti, ok := sc.p.TypeInfo(t.Name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %s", ErrInvalidModel, t.Name)
	}
	f, ord, ok := ti.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q of %s", ErrInvalidModel, name, t.Name)
	}
	ft := f.Type
	if len(t.Args) == len(ti.TypeParameters) && len(t.Args) > 0 {
		tm := vf.NewTranslationMap()
		for i, tp := range ti.TypeParameters {
			tm.Put(tp, t.Args[i])
		}
		ft = tm.TranslateType(ft)
	}
	return model.FieldReference{Scope: scope, Owner: t.Name, Field: name, Ordinal: ord, VarType: ft}, nil
}
