package link

import (
	"fmt"
	"sort"
	"strings"
)

// IndexLink connects a slot set on the source side of an edge to a slot set
// on the target side. Mutable is set when the linked content can be modified
// through either side.
type IndexLink struct {
	From    Indices
	To      Indices
	Mutable bool
}

func (l IndexLink) reverse() IndexLink {
	return IndexLink{From: l.To, To: l.From, Mutable: l.Mutable}
}

func (l IndexLink) String() string {
	m := ""
	if l.Mutable {
		m = "M"
	}
	return l.From.String() + m + "-" + l.To.String() + m
}

// LV is the label of an edge in the weighted graph. DEPENDENT and
// COMMON_HIDDEN_CONTENT values carry index links; DEPENDENT values also carry
// the modification areas on both sides. LV values are immutable: every
// operation returns a new value.
type LV struct {
	nature  Nature
	links   []IndexLink
	modFrom Indices
	modTo   Indices
}

var (
	SA            = LV{nature: StaticallyAssigned, modFrom: All, modTo: All}
	AssignedLV    = LV{nature: Assigned, modFrom: All, modTo: All}
	IndependentLV = LV{nature: Independent, modFrom: All, modTo: All}
	DelayedLV     = LV{nature: Delayed, modFrom: All, modTo: All}
)

// NewLV builds a value with index links. Links are normalized: duplicates
// dropped, sorted by source then target slots.
func NewLV(n Nature, links ...IndexLink) LV {
	return NewDependentLV(n, All, All, links...)
}

// NewDependentLV builds a value with modification areas.
func NewDependentLV(n Nature, modFrom, modTo Indices, links ...IndexLink) LV {
	if !n.HasIndices() {
		return LV{nature: n, modFrom: All, modTo: All}
	}
	if n != Dependent {
		modFrom, modTo = All, All
	} else if len(links) == 0 {
		links = []IndexLink{{From: All, To: All}}
	}
	return LV{nature: n, links: normalize(links), modFrom: modFrom, modTo: modTo}
}

// ElementOf labels the edge from an element to its container: the element
// as a whole sits in the container's slot.
func ElementOf(slot Indices, mutable bool) LV {
	return NewLV(CommonHC, IndexLink{From: All, To: slot, Mutable: mutable})
}

// FieldOf labels the edge from a field to its owner: modifying the field's
// object modifies the owner in the area of the field's ordinal.
func FieldOf(ordinal int) LV {
	return NewDependentLV(Dependent, All, Single(ordinal), IndexLink{From: All, To: All})
}

func (x LV) Nature() Nature { return x.nature }

func (x LV) IsDelayed() bool { return x.nature == Delayed }

// Links returns a copy of the index links.
func (x LV) Links() []IndexLink {
	out := make([]IndexLink, len(x.links))
	copy(out, x.links)
	return out
}

func (x LV) ModFrom() Indices { return x.modFrom }
func (x LV) ModTo() Indices { return x.modTo }

// Reverse returns the label of the opposite direction. Reverse is an involution.
func (x LV) Reverse() LV {
	links := make([]IndexLink, len(x.links))
	for i, l := range x.links {
		links[i] = l.reverse()
	}
	return LV{nature: x.nature, links: normalize(links), modFrom: x.modTo, modTo: x.modFrom}
}

// Compose concatenates x (a→b) with y (b→c) into a→c. Delays win,
// STATICALLY_ASSIGNED is the identity, and the result is never stronger than
// either operand. Index links only join across the middle variable when one
// of the meeting slot sets is ALL; content that sits in one slot of b is not
// related to other content in that same slot. Modification areas must
// intersect in b for a DEPENDENT result.
func (x LV) Compose(y LV) LV {
	switch {
	case x.nature == Delayed || y.nature == Delayed:
		return DelayedLV
	case x.nature == StaticallyAssigned:
		return y
	case y.nature == StaticallyAssigned:
		return x
	case x.nature == Independent || y.nature == Independent:
		return IndependentLV
	case x.nature == Assigned && y.nature == Assigned:
		return AssignedLV
	case x.nature == Assigned:
		return y
	case y.nature == Assigned:
		return x
	}

	links := joinLinks(x.links, y.links)
	if x.nature == CommonHC || y.nature == CommonHC {
		if len(links) == 0 {
			return IndependentLV
		}
		return LV{nature: CommonHC, links: links, modFrom: All, modTo: All}
	}

	from, to, ok := joinModificationAreas(x.modFrom, x.modTo, y.modFrom, y.modTo)
	if !ok {
		return IndependentLV
	}
	return NewDependentLV(Dependent, from, to, links...)
}

func joinLinks(xs, ys []IndexLink) []IndexLink {
	var out []IndexLink
	for _, l1 := range xs {
		for _, l2 := range ys {
			if !l1.To.IsAll() && !l2.From.IsAll() {
				continue
			}
			out = append(out, IndexLink{
				From:    l1.From,
				To:      l2.To,
				Mutable: l1.Mutable && l2.Mutable && !(l1.To.IsAll() && l2.From.IsAll()),
			})
		}
	}
	return normalize(out)
}

// joinModificationAreas composes a→b (aFrom, aTo) with b→c (bFrom, bTo).
// When one side of the middle is ALL, the concrete area of the other side is
// pushed outward as a suffix.
func joinModificationAreas(aFrom, aTo, bFrom, bTo Indices) (Indices, Indices, bool) {
	switch {
	case aTo.IsAll() && bFrom.IsAll():
		return aFrom, bTo, true
	case aTo.IsAll():
		return aFrom.Append(bFrom), bTo, true
	case bFrom.IsAll():
		return aFrom, bTo.Append(aTo), true
	case aTo.IntersectionNonEmpty(bFrom):
		return aFrom, bTo, true
	default:
		return Indices{}, Indices{}, false
	}
}

// BestOf merges two labels believed to hold for the same pair: the stronger
// nature wins, equal natures union their index links. Commutative and
// idempotent.
func BestOf(x, y LV) LV {
	n := Best(x.nature, y.nature)
	switch {
	case x.nature == y.nature:
		return union(x, y)
	case n == x.nature:
		return x
	default:
		return y
	}
}

// CombineOf merges the labels of alternative branches: the weaker nature
// wins, equal natures union their index links. Delays absorb.
func CombineOf(x, y LV) LV {
	n := Combine(x.nature, y.nature)
	switch {
	case x.nature == y.nature:
		return union(x, y)
	case n == x.nature:
		return x
	case n == y.nature:
		return y
	default:
		return DelayedLV
	}
}

func union(x, y LV) LV {
	if !x.nature.HasIndices() {
		return x
	}
	links := append(x.Links(), y.links...)
	modFrom, modTo := All, All
	if x.nature == Dependent {
		modFrom = x.modFrom.Union(y.modFrom)
		modTo = x.modTo.Union(y.modTo)
	}
	return LV{nature: x.nature, links: normalize(links), modFrom: modFrom, modTo: modTo}
}

// normalize drops duplicate links and sorts them. Only links with equal
// source and target slot sets are merged, so reversing a normalized value
// and normalizing again yields the reverse link for link.
func normalize(links []IndexLink) []IndexLink {
	if len(links) == 0 {
		return nil
	}
	type pair struct{ from, to string }
	byPair := make(map[pair]IndexLink, len(links))
	for _, l := range links {
		key := pair{l.From.String(), l.To.String()}
		if prev, ok := byPair[key]; ok {
			l.Mutable = l.Mutable || prev.Mutable
		}
		byPair[key] = l
	}
	out := make([]IndexLink, 0, len(byPair))
	for _, l := range byPair {
		out = append(out, l)
	}
	sort.Slice(out, func(a, b int) bool {
		if c := out[a].From.Compare(out[b].From); c != 0 {
			return c < 0
		}
		return out[a].To.Compare(out[b].To) < 0
	})
	return out
}

// Valid rejects values that cannot describe a relationship: unknown natures,
// index links on natures that carry none, DEPENDENT or COMMON_HIDDEN_CONTENT
// values without links, and malformed slot sets.
func (x LV) Valid() bool {
	if !x.nature.Valid() {
		return false
	}
	if !x.nature.HasIndices() {
		return len(x.links) == 0
	}
	if len(x.links) == 0 {
		return false
	}
	for _, l := range x.links {
		if !l.From.Valid() || !l.To.Valid() {
			return false
		}
	}
	return x.modFrom.Valid() && x.modTo.Valid()
}

func (x LV) Equal(y LV) bool {
	if x.nature != y.nature || len(x.links) != len(y.links) {
		return false
	}
	for i := range x.links {
		if !x.links[i].From.Equal(y.links[i].From) || !x.links[i].To.Equal(y.links[i].To) ||
			x.links[i].Mutable != y.links[i].Mutable {
			return false
		}
	}
	return x.modFrom.Equal(y.modFrom) && x.modTo.Equal(y.modTo)
}

// String renders the compact notation from-nature-to|modFrom-modTo, e.g.
// "*M-4-0M" or "*-2-0|*-3.1". Multiple links are separated by ','.
func (x LV) String() string {
	if !x.nature.HasIndices() {
		return x.nature.Symbol()
	}
	var sb strings.Builder
	for i, l := range x.links {
		if i > 0 {
			sb.WriteByte(',')
		}
		m := ""
		if l.Mutable {
			m = "M"
		}
		fmt.Fprintf(&sb, "%s%s-%s-%s%s", l.From, m, x.nature.Symbol(), l.To, m)
	}
	if x.nature == Dependent && !(x.modFrom.IsAll() && x.modTo.IsAll()) {
		fmt.Fprintf(&sb, "|%s-%s", x.modFrom, x.modTo)
	}
	return sb.String()
}

// ParseLV reads the notation produced by String.
func ParseLV(s string) (LV, error) {
	switch s {
	case "0":
		return SA, nil
	case "1":
		return AssignedLV, nil
	case "5":
		return IndependentLV, nil
	case "D":
		return DelayedLV, nil
	}

	body, mods, hasMods := strings.Cut(s, "|")
	var nature Nature = -2
	var links []IndexLink
	for _, part := range strings.Split(body, ",") {
		fields := strings.Split(part, "-")
		if len(fields) != 3 {
			return LV{}, fmt.Errorf("%w: %q", ErrInvalidLV, s)
		}
		n, err := parseNature(fields[1])
		if err != nil {
			return LV{}, fmt.Errorf("%w: %q", err, s)
		}
		if nature != -2 && n != nature {
			return LV{}, fmt.Errorf("%w: mixed natures in %q", ErrInvalidLV, s)
		}
		nature = n
		fromM := strings.HasSuffix(fields[0], "M")
		toM := strings.HasSuffix(fields[2], "M")
		from, err := ParseIndices(strings.TrimSuffix(fields[0], "M"))
		if err != nil {
			return LV{}, err
		}
		to, err := ParseIndices(strings.TrimSuffix(fields[2], "M"))
		if err != nil {
			return LV{}, err
		}
		links = append(links, IndexLink{From: from, To: to, Mutable: fromM && toM})
	}
	if !nature.HasIndices() {
		return LV{}, fmt.Errorf("%w: nature %s takes no indices in %q", ErrInvalidLV, nature, s)
	}
	modFrom, modTo := All, All
	if hasMods {
		if nature != Dependent {
			return LV{}, fmt.Errorf("%w: modification areas on %s in %q", ErrInvalidLV, nature, s)
		}
		f, t, ok := strings.Cut(mods, "-")
		if !ok {
			return LV{}, fmt.Errorf("%w: %q", ErrInvalidLV, s)
		}
		var err error
		if modFrom, err = ParseIndices(f); err != nil {
			return LV{}, err
		}
		if modTo, err = ParseIndices(t); err != nil {
			return LV{}, err
		}
	}
	lv := NewDependentLV(nature, modFrom, modTo, links...)
	if !lv.Valid() {
		return LV{}, fmt.Errorf("%w: %q", ErrInvalidLV, s)
	}
	return lv, nil
}

// MustParseLV is ParseLV for literals known to be valid.
func MustParseLV(s string) LV {
	lv, err := ParseLV(s)
	if err != nil {
		panic(err)
	}
	return lv
}

func parseNature(s string) (Nature, error) {
	switch s {
	case "0":
		return StaticallyAssigned, nil
	case "1":
		return Assigned, nil
	case "2":
		return Dependent, nil
	case "4":
		return CommonHC, nil
	case "5":
		return Independent, nil
	case "D":
		return Delayed, nil
	}
	return 0, fmt.Errorf("%w: nature %q", ErrInvalidLV, s)
}

// Immutable returns the value with every index link marked immutable, for
// content whose concrete type cannot be modified.
func (x LV) Immutable() LV {
	if len(x.links) == 0 {
		return x
	}
	links := make([]IndexLink, len(x.links))
	for i, l := range x.links {
		l.Mutable = false
		links[i] = l
	}
	return LV{nature: x.nature, links: links, modFrom: x.modFrom, modTo: x.modTo}
}

func (x LV) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *LV) UnmarshalText(b []byte) error {
	lv, err := ParseLV(string(b))
	if err != nil {
		return err
	}
	*x = lv
	return nil
}
