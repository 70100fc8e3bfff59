package model

// Statement is the closed set of statement kinds of a method body. Every
// statement carries a dotted index ("0", "1.0.2") locating it in the body.
type Statement interface {
	Index() string
	statement()
}

// Block is a sequence of statements.
type Block struct {
	Idx        string
	Statements []Statement
}

// Assign writes the value of an expression into a variable. Local variable
// declarations with an initializer are assignments too.
type Assign struct {
	Idx    string
	Target Variable
	Value  Expression
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	Idx  string
	Expr Expression
}

// Return ends the method, optionally with a value.
type Return struct {
	Idx   string
	Value Expression
}

// If is a two-way branch. Else may be nil.
type If struct {
	Idx  string
	Cond Expression
	Then *Block
	Else *Block
}

// Loop is a while/for loop whose body may run zero or more times.
type Loop struct {
	Idx  string
	Cond Expression
	Body *Block
}

// ForEach iterates over the elements of an array or container.
type ForEach struct {
	Idx      string
	Var      Local
	Iterable Expression
	Body     *Block
}

// Try is a try/catch/finally construct. Finally may be nil.
type Try struct {
	Idx     string
	Body    *Block
	Catches []*Block
	Finally *Block
}

func (s *Block) Index() string { return s.Idx }
func (s *Assign) Index() string { return s.Idx }
func (s *ExprStmt) Index() string { return s.Idx }
func (s *Return) Index() string { return s.Idx }
func (s *If) Index() string { return s.Idx }
func (s *Loop) Index() string { return s.Idx }
func (s *ForEach) Index() string { return s.Idx }
func (s *Try) Index() string { return s.Idx }

func (*Block) statement() {}
func (*Assign) statement() {}
func (*ExprStmt) statement() {}
func (*Return) statement() {}
func (*If) statement() {}
func (*Loop) statement() {}
func (*ForEach) statement() {}
func (*Try) statement() {}

// Expression is the closed set of expression kinds.
type Expression interface {
	expression()
}

// VarRef reads a variable.
type VarRef struct {
	Var Variable
}

// Constant is a literal without identity.
type Constant struct {
	Value string
}

// New creates an object.
type New struct {
	Type Type
	Args []Expression
}

// Call invokes a method. Object is nil for static calls.
type Call struct {
	Method string
	Object Expression
	Args   []Expression
}

// Cast changes the static type of its operand.
type Cast struct {
	Type Type
	Expr Expression
}

// Conditional is the ternary operator.
type Conditional struct {
	Cond Expression
	Then Expression
	Else Expression
}

func (*VarRef) expression() {}
func (*Constant) expression() {}
func (*New) expression() {}
func (*Call) expression() {}
func (*Cast) expression() {}
func (*Conditional) expression() {}

// Ref is shorthand for a variable read.
func Ref(v Variable) *VarRef {
	return &VarRef{Var: v}
}
