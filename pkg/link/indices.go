package link

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/panbanda/linkage/pkg/model"
)

// Index is a path of positions inside a formal type: "0" is the first type
// parameter, "1.0" the first type parameter of the second one.
// Index values are never modified after construction.
type Index struct {
	path []int
}

// NewIndex builds an index from its positions.
func NewIndex(positions ...int) Index {
	p := make([]int, len(positions))
	copy(p, positions)
	return Index{path: p}
}

func (i Index) Len() int { return len(i.path) }

// At returns the position at depth d.
func (i Index) At(d int) int { return i.path[d] }

// Prefix returns the index with pos prepended.
func (i Index) Prefix(pos int) Index {
	p := make([]int, 0, len(i.path)+1)
	p = append(p, pos)
	p = append(p, i.path...)
	return Index{path: p}
}

// DropFirst removes the outermost position.
func (i Index) DropFirst() Index {
	if len(i.path) == 0 {
		return i
	}
	return NewIndex(i.path[1:]...)
}

// Concat appends the positions of o.
func (i Index) Concat(o Index) Index {
	p := make([]int, 0, len(i.path)+len(o.path))
	p = append(p, i.path...)
	p = append(p, o.path...)
	return Index{path: p}
}

// Overlaps reports whether two indices can denote the same slot: one is a
// prefix of the other.
func (i Index) Overlaps(o Index) bool {
	n := len(i.path)
	if len(o.path) < n {
		n = len(o.path)
	}
	for k := 0; k < n; k++ {
		if i.path[k] != o.path[k] {
			return false
		}
	}
	return true
}

func (i Index) Compare(o Index) int {
	for k := 0; k < len(i.path) && k < len(o.path); k++ {
		if i.path[k] != o.path[k] {
			if i.path[k] < o.path[k] {
				return -1
			}
			return 1
		}
	}
	return len(i.path) - len(o.path)
}

func (i Index) Equal(o Index) bool { return i.Compare(o) == 0 }

func (i Index) Valid() bool {
	if len(i.path) == 0 {
		return false
	}
	for _, p := range i.path {
		if p < 0 {
			return false
		}
	}
	return true
}

func (i Index) String() string {
	parts := make([]string, len(i.path))
	for k, p := range i.path {
		parts[k] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// ParseIndex parses the dotted form of an index.
func ParseIndex(s string) (Index, error) {
	parts := strings.Split(s, ".")
	p := make([]int, len(parts))
	for k, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Index{}, fmt.Errorf("%w: index %q", ErrInvalidLV, s)
		}
		p[k] = n
	}
	return Index{path: p}, nil
}

// Indices is an immutable sorted set of Index values, or the ALL wildcard
// that stands for every position.
type Indices struct {
	all     bool
	indices []Index
}

// All is the wildcard matching every position.
var All = Indices{all: true}

// Of builds a set of indices.
func Of(indices ...Index) Indices {
	out := make([]Index, 0, len(indices))
	out = append(out, indices...)
	sort.Slice(out, func(a, b int) bool { return out[a].Compare(out[b]) < 0 })
	dedup := out[:0]
	for k, idx := range out {
		if k == 0 || !idx.Equal(out[k-1]) {
			dedup = append(dedup, idx)
		}
	}
	return Indices{indices: dedup}
}

// Single is the set holding one index built from positions.
func Single(positions ...int) Indices {
	return Of(NewIndex(positions...))
}

func (s Indices) IsAll() bool { return s.all }

// IsEmpty reports whether the set holds nothing; ALL is never empty.
func (s Indices) IsEmpty() bool { return !s.all && len(s.indices) == 0 }

// Slice returns the concrete indices; nil for ALL.
func (s Indices) Slice() []Index {
	if s.all {
		return nil
	}
	out := make([]Index, len(s.indices))
	copy(out, s.indices)
	return out
}

// Prefix prepends pos to every index. ALL stays ALL.
func (s Indices) Prefix(pos int) Indices {
	if s.all {
		return s
	}
	return s.Map(func(i Index) Index { return i.Prefix(pos) })
}

// DropFirst removes the outermost position of every index. Indices that
// become empty denote the whole value, so the result is ALL.
func (s Indices) DropFirst() Indices {
	if s.all {
		return s
	}
	out := make([]Index, 0, len(s.indices))
	for _, i := range s.indices {
		d := i.DropFirst()
		if d.Len() == 0 {
			return All
		}
		out = append(out, d)
	}
	return Of(out...)
}

// Map applies f to every index. ALL stays ALL.
func (s Indices) Map(f func(Index) Index) Indices {
	if s.all {
		return s
	}
	out := make([]Index, len(s.indices))
	for k, i := range s.indices {
		out[k] = f(i)
	}
	return Of(out...)
}

// IntersectionNonEmpty reports whether the two sets may denote a common
// slot. ALL intersects everything but the empty set.
func (s Indices) IntersectionNonEmpty(o Indices) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return false
	}
	if s.all || o.all {
		return true
	}
	for _, a := range s.indices {
		for _, b := range o.indices {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

// Union merges two sets; ALL absorbs.
func (s Indices) Union(o Indices) Indices {
	if s.all || o.all {
		return All
	}
	return Of(append(s.Slice(), o.indices...)...)
}

// Append concatenates every index of s with every index of o. ALL is the
// neutral element.
func (s Indices) Append(o Indices) Indices {
	if s.all {
		return o
	}
	if o.all {
		return s
	}
	out := make([]Index, 0, len(s.indices)*len(o.indices))
	for _, a := range s.indices {
		for _, b := range o.indices {
			out = append(out, a.Concat(b))
		}
	}
	return Of(out...)
}

func (s Indices) Equal(o Indices) bool {
	if s.all != o.all || len(s.indices) != len(o.indices) {
		return false
	}
	for k := range s.indices {
		if !s.indices[k].Equal(o.indices[k]) {
			return false
		}
	}
	return true
}

func (s Indices) Compare(o Indices) int {
	switch {
	case s.all && o.all:
		return 0
	case s.all:
		return -1
	case o.all:
		return 1
	}
	for k := 0; k < len(s.indices) && k < len(o.indices); k++ {
		if c := s.indices[k].Compare(o.indices[k]); c != 0 {
			return c
		}
	}
	return len(s.indices) - len(o.indices)
}

func (s Indices) Valid() bool {
	if s.all {
		return true
	}
	if len(s.indices) == 0 {
		return false
	}
	for _, i := range s.indices {
		if !i.Valid() {
			return false
		}
	}
	return true
}

func (s Indices) String() string {
	if s.all {
		return "*"
	}
	parts := make([]string, len(s.indices))
	for k, i := range s.indices {
		parts[k] = i.String()
	}
	return strings.Join(parts, ";")
}

// ParseIndices parses "*" or a ';'-separated list of dotted indices.
func ParseIndices(s string) (Indices, error) {
	if s == "*" {
		return All, nil
	}
	if s == "" {
		return Indices{}, fmt.Errorf("%w: empty indices", ErrInvalidLV)
	}
	var out []Index
	for _, part := range strings.Split(s, ";") {
		i, err := ParseIndex(part)
		if err != nil {
			return Indices{}, err
		}
		out = append(out, i)
	}
	return Of(out...), nil
}

// AllOccurrencesOf returns the positions at which a type parameter occurs
// inside where. A bare occurrence (where is the parameter itself, possibly
// as an array) is position 0.
func AllOccurrencesOf(typeParameter string, where model.Type) Indices {
	if where.IsTypeParameter() {
		if where.Name == typeParameter {
			return Single(0)
		}
		return Indices{}
	}
	var out []Index
	var walk func(t model.Type, prefix Index)
	walk = func(t model.Type, prefix Index) {
		for pos, arg := range t.Args {
			here := prefix.Concat(NewIndex(pos))
			if arg.IsTypeParameter() && arg.Name == typeParameter {
				out = append(out, here)
				continue
			}
			walk(arg, here)
		}
	}
	walk(where, Index{})
	return Of(out...)
}
