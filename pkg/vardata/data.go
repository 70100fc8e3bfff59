package vardata

import (
	"fmt"
	"sort"

	"github.com/panbanda/linkage/pkg/model"
)

// VariableInfo is the state of one variable at one statement.
type VariableInfo struct {
	Variable    model.Variable
	Assignments IndexSet
	Reads       IndexSet
	Modified    IndexSet
	Links       Links
	// Definite is false when some path to this statement does not assign
	// the variable.
	Definite bool
}

// IsUnmodified reports whether no modification was recorded up to here.
func (vi *VariableInfo) IsUnmodified() bool {
	return vi.Modified.IsEmpty()
}

// VariableData is the state of the variables touched by one statement.
// Untouched variables are found by falling back along the chain of
// previous statements.
type VariableData struct {
	index    string
	previous *VariableData
	infos    map[string]*VariableInfo
}

// New creates the state of the statement at index, chained to previous,
// which may be nil.
func New(index string, previous *VariableData) *VariableData {
	return &VariableData{index: index, previous: previous, infos: make(map[string]*VariableInfo)}
}

func (vd *VariableData) Index() string { return vd.index }

func (vd *VariableData) Previous() *VariableData { return vd.previous }

// Put records info at this statement. Replacing an earlier record of the
// same variable is only allowed when the new links refine the old ones.
func (vd *VariableData) Put(info *VariableInfo) error {
	key := info.Variable.FQN()
	if prev, ok := vd.infos[key]; ok && !prev.Links.IsRefinedBy(info.Links) {
		return fmt.Errorf("%w: %s at %s: %s replaced by %s",
			ErrOverwriteConflict, key, vd.index, prev.Links, info.Links)
	}
	vd.infos[key] = info
	return nil
}

// Local returns the info recorded at this statement only.
func (vd *VariableData) Local(fqn string) (*VariableInfo, bool) {
	vi, ok := vd.infos[fqn]
	return vi, ok
}

// Get returns the latest info of fqn at or before this statement.
func (vd *VariableData) Get(fqn string) (*VariableInfo, bool) {
	for cur := vd; cur != nil; cur = cur.previous {
		if vi, ok := cur.infos[fqn]; ok {
			return vi, true
		}
	}
	return nil, false
}

// Touched returns the names recorded at this statement, sorted.
func (vd *VariableData) Touched() []string {
	out := make([]string, 0, len(vd.infos))
	for k := range vd.infos {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Variables returns every name visible at this statement, sorted.
func (vd *VariableData) Variables() []string {
	seen := map[string]bool{}
	for cur := vd; cur != nil; cur = cur.previous {
		for k := range cur.infos {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// History is the per-statement state of one method body.
type History struct {
	byIndex map[string]*VariableData
	order   []string
}

func NewHistory() *History {
	return &History{byIndex: make(map[string]*VariableData)}
}

// Append records the state of a statement, chained to the last one.
func (h *History) Append(index string) *VariableData {
	return h.AppendAfter(index, h.Last())
}

// AppendAfter records the state of a statement reached from previous. In a
// branching body the previous statement in control flow is not always the
// last one recorded.
func (h *History) AppendAfter(index string, previous *VariableData) *VariableData {
	vd := New(index, previous)
	if _, ok := h.byIndex[index]; !ok {
		h.order = append(h.order, index)
	}
	h.byIndex[index] = vd
	return vd
}

// At returns the state recorded for a statement.
func (h *History) At(index string) (*VariableData, bool) {
	vd, ok := h.byIndex[index]
	return vd, ok
}

// Last returns the most recently appended state, or nil.
func (h *History) Last() *VariableData {
	if len(h.order) == 0 {
		return nil
	}
	return h.byIndex[h.order[len(h.order)-1]]
}

// Indices returns the recorded statement indices in statement order.
func (h *History) Indices() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	sort.Slice(out, func(i, j int) bool { return model.IndexBefore(out[i], out[j]) })
	return out
}

func (h *History) Len() int { return len(h.order) }
