package loader

import "github.com/panbanda/linkage/pkg/model"

// Document is the serialized program model. Types are written in source
// notation ("Map<K,V[]>[]"); variables are paths rooted at "this", a
// parameter, a local or a static field ("@Owner.field"), followed by field
// accesses (".f") and element accesses ("[i]").
type Document struct {
	Types   []TypeDoc   `json:"types,omitempty"`
	Methods []MethodDoc `json:"methods,omitempty"`
}

type TypeDoc struct {
	Name           string     `json:"name"`
	TypeParameters []string   `json:"type_parameters,omitempty"`
	Supertypes     []string   `json:"supertypes,omitempty"`
	Fields         []FieldDoc `json:"fields,omitempty"`
	Immutable      bool       `json:"immutable,omitempty"`
}

type FieldDoc struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Static bool   `json:"static,omitempty"`
}

// DeclDoc declares a parameter or a local variable.
type DeclDoc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MethodDoc is a method declaration. A nil Body declares a method known
// only through its verdicts; an empty one declares an empty body.
type MethodDoc struct {
	Owner          string          `json:"owner"`
	Name           string          `json:"name"`
	Static         bool            `json:"static,omitempty"`
	TypeParameters []string        `json:"type_parameters,omitempty"`
	Params         []DeclDoc       `json:"params,omitempty"`
	Returns        string          `json:"returns,omitempty"`
	Locals         []DeclDoc       `json:"locals,omitempty"`
	Verdicts       model.Verdicts  `json:"verdicts,omitempty"`
	Body           *[]StatementDoc `json:"body,omitempty"`
}

// StatementDoc holds exactly one statement kind.
type StatementDoc struct {
	Assign  *AssignDoc      `json:"assign,omitempty"`
	Expr    *ExprDoc        `json:"expr,omitempty"`
	Return  *ReturnDoc      `json:"return,omitempty"`
	If      *IfDoc          `json:"if,omitempty"`
	While   *WhileDoc       `json:"while,omitempty"`
	ForEach *ForEachDoc     `json:"foreach,omitempty"`
	Try     *TryDoc         `json:"try,omitempty"`
	Block   *[]StatementDoc `json:"block,omitempty"`
}

type AssignDoc struct {
	Target string  `json:"target"`
	Value  ExprDoc `json:"value"`
}

type ReturnDoc struct {
	Value *ExprDoc `json:"value,omitempty"`
}

type IfDoc struct {
	Cond ExprDoc        `json:"cond"`
	Then []StatementDoc `json:"then"`
	Else []StatementDoc `json:"else,omitempty"`
}

type WhileDoc struct {
	Cond *ExprDoc       `json:"cond,omitempty"`
	Body []StatementDoc `json:"body"`
}

type ForEachDoc struct {
	Var      string         `json:"var"`
	Type     string         `json:"type"`
	Iterable ExprDoc        `json:"iterable"`
	Body     []StatementDoc `json:"body"`
}

type TryDoc struct {
	Body    []StatementDoc   `json:"body"`
	Catches [][]StatementDoc `json:"catches,omitempty"`
	Finally []StatementDoc   `json:"finally,omitempty"`
}

// ExprDoc holds exactly one expression kind.
type ExprDoc struct {
	Var   string   `json:"var,omitempty"`
	Const *string  `json:"const,omitempty"`
	New   *NewDoc  `json:"new,omitempty"`
	Call  *CallDoc `json:"call,omitempty"`
	Cast  *CastDoc `json:"cast,omitempty"`
	Cond  *CondDoc `json:"cond,omitempty"`
}

type NewDoc struct {
	Type string    `json:"type"`
	Args []ExprDoc `json:"args,omitempty"`
}

type CallDoc struct {
	Method string    `json:"method"`
	Object *ExprDoc  `json:"object,omitempty"`
	Args   []ExprDoc `json:"args,omitempty"`
}

type CastDoc struct {
	Type string  `json:"type"`
	Expr ExprDoc `json:"expr"`
}

type CondDoc struct {
	If   *ExprDoc `json:"if,omitempty"`
	Then ExprDoc  `json:"then"`
	Else ExprDoc  `json:"else"`
}
