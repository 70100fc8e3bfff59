package vardata

import (
	"sort"
	"strings"

	"github.com/panbanda/linkage/pkg/model"
)

// IndexSet is an immutable set of statement indices in statement order.
type IndexSet struct {
	indices []string
}

// NewIndexSet builds a set from indices in any order.
func NewIndexSet(indices ...string) IndexSet {
	out := make([]string, 0, len(indices))
	out = append(out, indices...)
	sort.Slice(out, func(i, j int) bool { return model.IndexBefore(out[i], out[j]) })
	dedup := out[:0]
	for i, s := range out {
		if i == 0 || s != out[i-1] {
			dedup = append(dedup, s)
		}
	}
	return IndexSet{indices: dedup}
}

func (s IndexSet) IsEmpty() bool { return len(s.indices) == 0 }

func (s IndexSet) Len() int { return len(s.indices) }

func (s IndexSet) Contains(index string) bool {
	i := sort.Search(len(s.indices), func(i int) bool { return !model.IndexBefore(s.indices[i], index) })
	return i < len(s.indices) && s.indices[i] == index
}

// Add returns the set extended with index.
func (s IndexSet) Add(index string) IndexSet {
	if s.Contains(index) {
		return s
	}
	return NewIndexSet(append(s.Slice(), index)...)
}

func (s IndexSet) Union(o IndexSet) IndexSet {
	if o.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return o
	}
	return NewIndexSet(append(s.Slice(), o.indices...)...)
}

// Latest returns the last index in statement order.
func (s IndexSet) Latest() (string, bool) {
	if len(s.indices) == 0 {
		return "", false
	}
	return s.indices[len(s.indices)-1], true
}

// Before returns the indices strictly preceding index.
func (s IndexSet) Before(index string) IndexSet {
	i := sort.Search(len(s.indices), func(i int) bool { return !model.IndexBefore(s.indices[i], index) })
	return IndexSet{indices: s.indices[:i:i]}
}

func (s IndexSet) Slice() []string {
	out := make([]string, len(s.indices))
	copy(out, s.indices)
	return out
}

func (s IndexSet) Equal(o IndexSet) bool {
	if len(s.indices) != len(o.indices) {
		return false
	}
	for i := range s.indices {
		if s.indices[i] != o.indices[i] {
			return false
		}
	}
	return true
}

func (s IndexSet) String() string {
	return "[" + strings.Join(s.indices, ", ") + "]"
}
