package model

import (
	"strconv"
	"strings"
)

// CompareIndex orders dotted statement indices segment by segment,
// numerically: "1.2" < "1.10" < "2". A prefix sorts before its extensions.
// Non-numeric segments compare as strings.
func CompareIndex(a, b string) int {
	if a == b {
		return 0
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

func compareSegment(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// IndexBefore reports whether statement a precedes statement b.
func IndexBefore(a, b string) bool {
	return CompareIndex(a, b) < 0
}

// NumberStatements assigns dotted indices to every statement of a body that
// does not carry one yet. Top-level statements are numbered "0", "1", ...;
// the n-th sub-block of statement "i" numbers its statements "i.n.0", ...
func NumberStatements(body *Block) {
	numberBlock(body, "")
}

func numberBlock(b *Block, prefix string) {
	if b == nil {
		return
	}
	if b.Idx == "" && prefix != "" {
		b.Idx = strings.TrimSuffix(prefix, ".")
	}
	for i, s := range b.Statements {
		idx := prefix + strconv.Itoa(i)
		numberStatement(s, idx)
	}
}

func numberStatement(s Statement, idx string) {
	switch x := s.(type) {
	case *Assign:
		setIdx(&x.Idx, idx)
	case *ExprStmt:
		setIdx(&x.Idx, idx)
	case *Return:
		setIdx(&x.Idx, idx)
	case *Block:
		setIdx(&x.Idx, idx)
		numberBlock(x, x.Idx+".0.")
	case *If:
		setIdx(&x.Idx, idx)
		numberBlock(x.Then, x.Idx+".0.")
		numberBlock(x.Else, x.Idx+".1.")
	case *Loop:
		setIdx(&x.Idx, idx)
		numberBlock(x.Body, x.Idx+".0.")
	case *ForEach:
		setIdx(&x.Idx, idx)
		numberBlock(x.Body, x.Idx+".0.")
	case *Try:
		setIdx(&x.Idx, idx)
		numberBlock(x.Body, x.Idx+".0.")
		for i, c := range x.Catches {
			numberBlock(c, x.Idx+"."+strconv.Itoa(i+1)+".")
		}
		numberBlock(x.Finally, x.Idx+"."+strconv.Itoa(len(x.Catches)+1)+".")
	default:
		panic("model: unknown statement kind")
	}
}

func setIdx(dst *string, idx string) {
	if *dst == "" {
		*dst = idx
	}
}

// Walk visits every statement of a block depth-first in source order,
// including the statements of nested blocks.
func Walk(b *Block, visit func(Statement)) {
	if b == nil {
		return
	}
	for _, s := range b.Statements {
		visit(s)
		switch x := s.(type) {
		case *Block:
			Walk(x, visit)
		case *If:
			Walk(x.Then, visit)
			Walk(x.Else, visit)
		case *Loop:
			Walk(x.Body, visit)
		case *ForEach:
			Walk(x.Body, visit)
		case *Try:
			Walk(x.Body, visit)
			for _, c := range x.Catches {
				Walk(c, visit)
			}
			Walk(x.Finally, visit)
		case *Assign, *ExprStmt, *Return:
		default:
			panic("model: unknown statement kind")
		}
	}
}
