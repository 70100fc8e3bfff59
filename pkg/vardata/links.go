// Package vardata holds the per-statement variable state of a method body:
// assignment and read history, current links and modification status.
package vardata

import (
	"sort"
	"strings"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
)

// Link relates a part of the primary variable (From, the primary itself or
// one of its fields) to another variable.
type Link struct {
	From model.Variable
	To   model.Variable
	LV   link.LV
}

func (l Link) String() string {
	return l.From.FQN() + " " + l.LV.String() + " " + l.To.FQN()
}

// Links is the frozen set of links of a primary variable. Build it with a
// Builder; the zero value holds no primary and no links.
type Links struct {
	primary model.Variable
	links   []Link
}

// Empty returns a value without links for primary.
func Empty(primary model.Variable) Links {
	return Links{primary: primary}
}

func (l Links) Primary() model.Variable { return l.primary }

func (l Links) Len() int { return len(l.links) }

func (l Links) IsEmpty() bool { return len(l.links) == 0 }

// Slice returns a copy of the links, ordered by target then source.
func (l Links) Slice() []Link {
	out := make([]Link, len(l.links))
	copy(out, l.links)
	return out
}

// To returns the link from the primary itself to the variable named fqn.
func (l Links) To(fqn string) (Link, bool) {
	for _, x := range l.links {
		if x.To.FQN() == fqn && x.From.FQN() == l.primary.FQN() {
			return x, true
		}
	}
	return Link{}, false
}

// HasDelays reports whether any link is DELAYED.
func (l Links) HasDelays() bool {
	for _, x := range l.links {
		if x.LV.IsDelayed() {
			return true
		}
	}
	return false
}

// StripDelays drops every DELAYED link.
func (l Links) StripDelays() Links {
	return l.Filter(func(x Link) bool { return !x.LV.IsDelayed() })
}

// Filter keeps the links for which keep returns true.
func (l Links) Filter(keep func(Link) bool) Links {
	b := NewBuilder(l.primary)
	for _, x := range l.links {
		if keep(x) {
			b.Add(x.From, x.To, x.LV)
		}
	}
	return b.Build()
}

// Map rewrites every link; links mapped to ok == false are dropped.
func (l Links) Map(primary model.Variable, f func(Link) (Link, bool)) Links {
	b := NewBuilder(primary)
	for _, x := range l.links {
		if y, ok := f(x); ok {
			b.Add(y.From, y.To, y.LV)
		}
	}
	return b.Build()
}

// Equal compares primaries and links by name and label.
func (l Links) Equal(o Links) bool {
	if fqn(l.primary) != fqn(o.primary) || len(l.links) != len(o.links) {
		return false
	}
	for i := range l.links {
		a, b := l.links[i], o.links[i]
		if a.From.FQN() != b.From.FQN() || a.To.FQN() != b.To.FQN() || !a.LV.Equal(b.LV) {
			return false
		}
	}
	return true
}

// IsRefinedBy reports whether n may replace l: every link of l that is not
// DELAYED must still be present in n with the same label. Delayed links may
// resolve to anything, or disappear.
func (l Links) IsRefinedBy(n Links) bool {
	if fqn(l.primary) != fqn(n.primary) {
		return false
	}
	have := make(map[string]link.LV, len(n.links))
	for _, x := range n.links {
		have[linkKey(x)] = x.LV
	}
	for _, x := range l.links {
		if x.LV.IsDelayed() {
			continue
		}
		got, ok := have[linkKey(x)]
		if !ok || !got.Equal(x.LV) {
			return false
		}
	}
	return true
}

// String renders "primary: from LV to, ..."; parts of the primary are
// written relative to it.
func (l Links) String() string {
	if l.IsEmpty() {
		return fqn(l.primary) + ": -"
	}
	parts := make([]string, len(l.links))
	for i, x := range l.links {
		parts[i] = x.String()
	}
	return fqn(l.primary) + ": " + strings.Join(parts, ", ")
}

func fqn(v model.Variable) string {
	if v == nil {
		return ""
	}
	return v.FQN()
}

func linkKey(x Link) string {
	return x.From.FQN() + "\x00" + x.To.FQN()
}

// Builder accumulates links. Links added twice between the same parts are
// merged with link.BestOf. A Builder must not be used after Build.
type Builder struct {
	primary model.Variable
	links   map[string]Link
}

func NewBuilder(primary model.Variable) *Builder {
	return &Builder{primary: primary, links: make(map[string]Link)}
}

// Add records from -lv-> to. Self links and INDEPENDENT links carry no
// information and are ignored.
func (b *Builder) Add(from, to model.Variable, lv link.LV) *Builder {
	if from.FQN() == to.FQN() || lv.Nature() == link.Independent {
		return b
	}
	x := Link{From: from, To: to, LV: lv}
	k := linkKey(x)
	if prev, ok := b.links[k]; ok {
		x.LV = link.BestOf(prev.LV, lv)
	}
	b.links[k] = x
	return b
}

// AddAll merges every link of l.
func (b *Builder) AddAll(l Links) *Builder {
	for _, x := range l.links {
		b.Add(x.From, x.To, x.LV)
	}
	return b
}

func (b *Builder) Build() Links {
	out := make([]Link, 0, len(b.links))
	for _, x := range b.links {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool {
		if ti, tj := out[i].To.FQN(), out[j].To.FQN(); ti != tj {
			return ti < tj
		}
		return out[i].From.FQN() < out[j].From.FQN()
	})
	return Links{primary: b.primary, links: out}
}
