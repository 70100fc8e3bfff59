package model

import (
	"fmt"
	"strings"
)

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

// ParseType parses a type written as Name<Arg,...>[]..., e.g. "java.util.Map<K,V[]>[]".
// isTypeParameter decides which bare names denote type parameters.
func ParseType(s string, isTypeParameter func(string) bool) (Type, error) {
	p := &typeParser{src: strings.TrimSpace(s), isTP: isTypeParameter}
	t, err := p.parse()
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(p.src) {
		return Type{}, fmt.Errorf("parse type %q: unexpected %q at %d", s, p.src[p.pos:], p.pos)
	}
	return t, nil
}

// MustParseType is ParseType for literals known to be valid.
func MustParseType(s string, typeParameters ...string) Type {
	set := make(map[string]bool, len(typeParameters))
	for _, tp := range typeParameters {
		set[tp] = true
	}
	t, err := ParseType(s, func(n string) bool { return set[n] })
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src  string
	pos  int
	isTP func(string) bool
}

func (p *typeParser) parse() (Type, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("<>,[] ", rune(p.src[p.pos])) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return Type{}, fmt.Errorf("parse type %q: missing name at %d", p.src, start)
	}

	var t Type
	switch {
	case primitives[name]:
		t = Primitive(name)
	case p.isTP != nil && p.isTP(name):
		t = TypeParam(name)
	default:
		t = Class(name)
	}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		if t.Kind != KindClass {
			return Type{}, fmt.Errorf("parse type %q: %s cannot take arguments", p.src, name)
		}
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return Type{}, err
			}
			t.Args = append(t.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return Type{}, fmt.Errorf("parse type %q: unterminated argument list", p.src)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == '>' {
				p.pos++
				break
			}
			return Type{}, fmt.Errorf("parse type %q: unexpected %q", p.src, p.src[p.pos])
		}
	}

	for {
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "[]") {
			t.Arrays++
			p.pos += 2
			continue
		}
		break
	}
	return t, nil
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}
