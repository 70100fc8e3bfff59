package link

import (
	"testing"

	"github.com/panbanda/linkage/pkg/model"
)

func TestIndexOperations(t *testing.T) {
	i := NewIndex(1, 0)

	if got := i.Prefix(2).String(); got != "2.1.0" {
		t.Errorf("Prefix = %s, want 2.1.0", got)
	}
	if got := i.DropFirst().String(); got != "0" {
		t.Errorf("DropFirst = %s, want 0", got)
	}
	if !NewIndex(1).Overlaps(i) || NewIndex(0).Overlaps(i) {
		t.Error("Overlaps should hold for prefixes only")
	}
	if NewIndex(1, 2).Compare(NewIndex(1, 10)) >= 0 {
		t.Error("1.2 should sort before 1.10")
	}
}

func TestIndicesWildcard(t *testing.T) {
	concrete := Of(NewIndex(0), NewIndex(1, 2))

	if !All.IntersectionNonEmpty(concrete) || !concrete.IntersectionNonEmpty(All) {
		t.Error("ALL must intersect every concrete set")
	}
	if All.IntersectionNonEmpty(Indices{}) {
		t.Error("nothing intersects the empty set")
	}
	if !concrete.Union(All).IsAll() {
		t.Error("ALL absorbs in a union")
	}
	if got := All.Append(concrete); !got.Equal(concrete) {
		t.Errorf("ALL++x = %s, want %s", got, concrete)
	}
	if got := concrete.Append(All); !got.Equal(concrete) {
		t.Errorf("x++ALL = %s, want %s", got, concrete)
	}
	if !All.Prefix(3).IsAll() || !All.DropFirst().IsAll() {
		t.Error("prefix and dropFirst keep ALL")
	}
}

func TestIndicesSetOperations(t *testing.T) {
	a := Of(NewIndex(1), NewIndex(0), NewIndex(1))
	if a.String() != "0;1" {
		t.Errorf("Of should sort and deduplicate, got %s", a)
	}
	if got := a.Prefix(2).String(); got != "2.0;2.1" {
		t.Errorf("Prefix = %s", got)
	}
	if got := Single(0).DropFirst(); !got.IsAll() {
		t.Errorf("dropping the last position denotes the whole value, got %s", got)
	}
	if got := Of(NewIndex(3), NewIndex(4)).Append(Single(1)).String(); got != "3.1;4.1" {
		t.Errorf("Append = %s", got)
	}
	mapped := a.Map(func(i Index) Index { return NewIndex(i.At(0) + 5) })
	if mapped.String() != "5;6" {
		t.Errorf("Map = %s", mapped)
	}
	if Single(0).IntersectionNonEmpty(Single(1)) {
		t.Error("0 and 1 do not intersect")
	}
	if !Single(1).IntersectionNonEmpty(Single(1, 0)) {
		t.Error("1 contains 1.0")
	}
}

func TestParseIndices(t *testing.T) {
	for _, s := range []string{"*", "0", "0;1.2", "3.1"} {
		got, err := ParseIndices(s)
		if err != nil {
			t.Fatalf("ParseIndices(%q) error: %v", s, err)
		}
		if got.String() != s {
			t.Errorf("ParseIndices(%q) = %s", s, got)
		}
	}
	if _, err := ParseIndices(""); err == nil {
		t.Error("empty indices should fail")
	}
}

func TestAllOccurrencesOf(t *testing.T) {
	tests := []struct {
		where string
		tp    string
		want  string
	}{
		{"K", "K", "0"},
		{"K[]", "K", "0"},
		{"java.util.Map<K,V>", "V", "1"},
		{"java.util.Map<K,java.util.List<K>>", "K", "0;1.0"},
		{"java.util.List<V>", "K", ""},
	}
	for _, tt := range tests {
		where := model.MustParseType(tt.where, "K", "V")
		if got := AllOccurrencesOf(tt.tp, where).String(); got != tt.want {
			t.Errorf("AllOccurrencesOf(%s, %s) = %q, want %q", tt.tp, tt.where, got, tt.want)
		}
	}
}
