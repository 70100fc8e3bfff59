package model

import (
	"fmt"
	"sort"
)

// Tristate is a boolean that may be unknown.
type Tristate string

const (
	Unknown Tristate = ""
	True    Tristate = "true"
	False   Tristate = "false"
)

func (t Tristate) String() string {
	if t == Unknown {
		return "unknown"
	}
	return string(t)
}

// Verdicts are the facts a shallow classifier established about a method.
// They are read-only inputs; the analysis never re-derives them.
type Verdicts struct {
	// Identity methods return their first parameter.
	Identity bool `json:"identity,omitempty"`
	// Fluent methods return their receiver.
	Fluent bool `json:"fluent,omitempty"`
	// Getter names the field returned, if any.
	Getter string `json:"getter,omitempty"`
	// Setter names the field assigned from the first parameter, if any.
	Setter string `json:"setter,omitempty"`
	// Modifying tells whether the receiver is modified.
	Modifying Tristate `json:"modifying,omitempty"`
}

// IsZero reports whether no verdict is available.
func (v Verdicts) IsZero() bool {
	return v == Verdicts{}
}

// Method is a resolved method declaration. Methods without a Body are only
// known through their verdicts.
type Method struct {
	Name           string
	Owner          string
	TypeParameters []string
	Params         []Parameter
	ReturnType     Type
	Static         bool
	Locals         []Local
	Body           *Block
	Verdicts       Verdicts
}

// FQN identifies the method in the program.
func (m *Method) FQN() string {
	return m.Owner + "." + m.Name
}

func (m *Method) HasBody() bool {
	return m.Body != nil
}

// This returns the receiver variable typed with the owner's formal type.
func (m *Method) This(owner *TypeInfo) This {
	if owner == nil {
		return This{VarType: Class(m.Owner)}
	}
	return This{VarType: owner.Formal()}
}

// Return returns the method's return variable.
func (m *Method) Return() ReturnVariable {
	return ReturnVariable{Method: m.FQN(), VarType: m.ReturnType}
}

// Program is the resolved program model handed over by the front end.
type Program struct {
	Types   map[string]*TypeInfo
	Methods map[string]*Method
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		Types:   make(map[string]*TypeInfo),
		Methods: make(map[string]*Method),
	}
}

// AddType registers a type declaration.
func (p *Program) AddType(ti *TypeInfo) {
	p.Types[ti.Name] = ti
}

// AddMethod registers a method, numbering its statements if needed.
func (p *Program) AddMethod(m *Method) error {
	if _, ok := p.Methods[m.FQN()]; ok {
		return fmt.Errorf("duplicate method %s", m.FQN())
	}
	for i := range m.Params {
		m.Params[i].Method = m.FQN()
		m.Params[i].Index = i
	}
	if m.Body != nil {
		NumberStatements(m.Body)
	}
	p.Methods[m.FQN()] = m
	return nil
}

// TypeInfo implements the type lookup used by the virtual field computer.
func (p *Program) TypeInfo(name string) (*TypeInfo, bool) {
	ti, ok := p.Types[name]
	return ti, ok
}

// Method returns a method by fully qualified name.
func (p *Program) Method(fqn string) (*Method, bool) {
	m, ok := p.Methods[fqn]
	return m, ok
}

// MethodNames returns all method names in sorted order.
func (p *Program) MethodNames() []string {
	names := make([]string, 0, len(p.Methods))
	for name := range p.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Callees returns the distinct methods called from m's body, sorted.
func (p *Program) Callees(m *Method) []string {
	seen := make(map[string]bool)
	walkExpressions(m.Body, func(e Expression) {
		if c, ok := e.(*Call); ok {
			seen[c.Method] = true
		}
	}, nil)
	return sortedKeys(seen)
}

// ReferencedTypes returns the declared types the analysis of m depends on,
// sorted: those named by its signature, its body and the signatures of its
// callees, closed over supertypes, field types and type arguments.
func (p *Program) ReferencedTypes(m *Method) []string {
	seen := make(map[string]bool)
	var addType func(t Type)
	addType = func(t Type) {
		for _, a := range t.Args {
			addType(a)
		}
		if t.Kind != KindClass || seen[t.Name] {
			return
		}
		seen[t.Name] = true
		ti, ok := p.TypeInfo(t.Name)
		if !ok {
			return
		}
		for _, st := range ti.Supertypes {
			addType(st)
		}
		for _, f := range ti.Fields {
			addType(f.Type)
		}
	}
	addVar := func(v Variable) {
		for ; v != nil; v = Scope(v) {
			addType(v.Type())
		}
	}
	addSignature := func(sig *Method) {
		addType(Class(sig.Owner))
		addType(sig.ReturnType)
		for _, prm := range sig.Params {
			addType(prm.VarType)
		}
	}

	addSignature(m)
	walkExpressions(m.Body, func(e Expression) {
		switch x := e.(type) {
		case *VarRef:
			addVar(x.Var)
		case *New:
			addType(x.Type)
		case *Cast:
			addType(x.Type)
		case *Call:
			if callee, ok := p.Method(x.Method); ok {
				addSignature(callee)
			}
		}
	}, addVar)
	return sortedKeys(seen)
}

// walkExpressions visits every expression of body, nested ones included,
// and passes the variables declared or assigned by statements to visitVar.
func walkExpressions(body *Block, visit func(Expression), visitVar func(Variable)) {
	var visitExpr func(e Expression)
	visitExpr = func(e Expression) {
		if e == nil {
			return
		}
		visit(e)
		switch x := e.(type) {
		case *Call:
			visitExpr(x.Object)
			for _, a := range x.Args {
				visitExpr(a)
			}
		case *New:
			for _, a := range x.Args {
				visitExpr(a)
			}
		case *Cast:
			visitExpr(x.Expr)
		case *Conditional:
			visitExpr(x.Cond)
			visitExpr(x.Then)
			visitExpr(x.Else)
		case *VarRef, *Constant:
		default:
			panic(fmt.Sprintf("model: unknown expression %T", e))
		}
	}
	if visitVar == nil {
		visitVar = func(Variable) {}
	}
	Walk(body, func(s Statement) {
		switch x := s.(type) {
		case *Assign:
			visitVar(x.Target)
			visitExpr(x.Value)
		case *ExprStmt:
			visitExpr(x.Expr)
		case *Return:
			visitExpr(x.Value)
		case *If:
			visitExpr(x.Cond)
		case *Loop:
			visitExpr(x.Cond)
		case *ForEach:
			visitVar(x.Var)
			visitExpr(x.Iterable)
		case *Block, *Try:
		default:
			panic(fmt.Sprintf("model: unknown statement %T", s))
		}
	})
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
