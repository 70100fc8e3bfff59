package link

import (
	"encoding/json"
	"errors"
	"testing"
)

var samples = []string{
	"0", "1", "5", "D",
	"*M-4-0M", "0M-4-*M", "*-4-1", "1-4-*", "0-4-0", "*-4-0,1-4-2",
	"0-4-*,1-4-*", "*-4-0,1-4-0", "0M-4-*M,1-4-*", "*-4-0,*-4-1",
	"*-2-0|*-1", "0-2-*|1-*", "*-2-0|*-3.1", "0-2-0|0-*", "*-2-*",
}

func sampleLVs(t *testing.T) []LV {
	t.Helper()
	out := make([]LV, len(samples))
	for i, s := range samples {
		lv, err := ParseLV(s)
		if err != nil {
			t.Fatalf("ParseLV(%q) error: %v", s, err)
		}
		out[i] = lv
	}
	return out
}

func TestParseAndString(t *testing.T) {
	for _, s := range samples {
		lv := MustParseLV(s)
		if lv.String() != s {
			t.Errorf("ParseLV(%q).String() = %q", s, lv.String())
		}
		if !lv.Valid() {
			t.Errorf("ParseLV(%q) is not valid", s)
		}
	}
}

func TestParseLVErrors(t *testing.T) {
	for _, s := range []string{"", "7", "*-4", "*-3-0", "*-4-0|*-1", "x-4-0", "*-4-0,*-2-1", "-1-4-0"} {
		_, err := ParseLV(s)
		if err == nil {
			t.Errorf("ParseLV(%q) should fail", s)
			continue
		}
		if !errors.Is(err, ErrInvalidLV) {
			t.Errorf("ParseLV(%q) error = %v, want ErrInvalidLV", s, err)
		}
	}
}

func TestReverseIsInvolution(t *testing.T) {
	for _, lv := range sampleLVs(t) {
		if got := lv.Reverse().Reverse(); !got.Equal(lv) {
			t.Errorf("reverse(reverse(%s)) = %s", lv, got)
		}
	}
}

func TestReverse(t *testing.T) {
	tests := map[string]string{
		"*M-4-0M":     "0M-4-*M",
		"*-2-0|*-1":   "0-2-*|1-*",
		"*-4-0,1-4-2": "0-4-*,2-4-1",
		"0":           "0",
	}
	for in, want := range tests {
		if got := MustParseLV(in).Reverse().String(); got != want {
			t.Errorf("reverse(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestComposeIdentity(t *testing.T) {
	for _, lv := range sampleLVs(t) {
		if got := SA.Compose(lv); !got.Equal(lv) {
			t.Errorf("SA∘%s = %s", lv, got)
		}
		if got := lv.Compose(SA); !got.Equal(lv) {
			t.Errorf("%s∘SA = %s", lv, got)
		}
	}
}

func TestComposeDelayWins(t *testing.T) {
	for _, lv := range sampleLVs(t) {
		if !DelayedLV.Compose(lv).IsDelayed() || !lv.Compose(DelayedLV).IsDelayed() {
			t.Errorf("composing %s with a delay must be delayed", lv)
		}
	}
}

func TestComposeNeverStrengthens(t *testing.T) {
	lvs := sampleLVs(t)
	for _, a := range lvs {
		for _, b := range lvs {
			for _, c := range lvs {
				if a.IsDelayed() || b.IsDelayed() || c.IsDelayed() {
					continue
				}
				left := a.Compose(b).Compose(c)
				right := a.Compose(b.Compose(c))
				for _, part := range []LV{a, b, c} {
					if left.Nature() < part.Nature() || right.Nature() < part.Nature() {
						t.Errorf("(%s,%s,%s): composition %s / %s stronger than %s", a, b, c, left, right, part)
					}
				}
			}
		}
	}
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name string
		x, y string
		want string
	}{
		{"element to element through container", "*M-4-0M", "0M-4-*M", "5"},
		{"container to container through element", "0M-4-*M", "*M-4-0M", "0-4-0"},
		{"hidden content chain", "*-4-0", "*-4-1", "*-4-1"},
		{"hidden content chain reversed", "1-4-*", "0-4-*", "1-4-*"},
		{"dependent pushes area outward", "*-2-0|*-1", "*-2-0|*-3", "*-2-0|*-3.1"},
		{"dependent reversed", "0-2-*|3-*", "0-2-*|1-*", "0-2-*|3.1-*"},
		{"dependent disjoint areas", "0-2-0|*-0", "1-2-0|1-*", "5"},
		{"assigned is transparent to links", "1", "*M-4-0M", "*M-4-0M"},
		{"assigned twice", "1", "1", "1"},
		{"independent absorbs", "5", "1", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParseLV(tt.x).Compose(MustParseLV(tt.y))
			if got.String() != tt.want {
				t.Errorf("%s∘%s = %s, want %s", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestBestOf(t *testing.T) {
	lvs := sampleLVs(t)
	for _, a := range lvs {
		if got := BestOf(a, a); !got.Equal(a) {
			t.Errorf("BestOf(%s, %s) = %s, not idempotent", a, a, got)
		}
		for _, b := range lvs {
			if !BestOf(a, b).Equal(BestOf(b, a)) {
				t.Errorf("BestOf(%s, %s) is not commutative", a, b)
			}
		}
	}

	tests := []struct{ a, b, want string }{
		{"1", "*M-4-0M", "1"},
		{"D", "0", "0"},
		{"D", "1", "D"},
		{"*-4-0", "*-4-1", "*-4-0,*-4-1"},
		{"*-4-0", "1-4-2", "*-4-0,1-4-2"},
		{"*-2-0|*-1", "*-2-0|*-2", "*-2-0|*-1;2"},
	}
	for _, tt := range tests {
		if got := BestOf(MustParseLV(tt.a), MustParseLV(tt.b)); got.String() != tt.want {
			t.Errorf("BestOf(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCombineOf(t *testing.T) {
	tests := []struct{ a, b, want string }{
		{"0", "1", "1"},
		{"0", "0", "0"},
		{"0", "*M-4-0M", "*M-4-0M"},
		{"D", "0", "D"},
		{"1", "5", "5"},
	}
	for _, tt := range tests {
		a, b := MustParseLV(tt.a), MustParseLV(tt.b)
		if got := CombineOf(a, b); got.String() != tt.want {
			t.Errorf("CombineOf(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
		if !CombineOf(a, b).Equal(CombineOf(b, a)) {
			t.Errorf("CombineOf(%s, %s) is not symmetric", tt.a, tt.b)
		}
	}
}

func TestValid(t *testing.T) {
	if NewLV(CommonHC).Valid() {
		t.Error("hidden content without links must be invalid")
	}
	if (LV{nature: Nature(3)}).Valid() {
		t.Error("unknown nature must be invalid")
	}
	bad := NewLV(CommonHC, IndexLink{From: All, To: Of(NewIndex(-1))})
	if bad.Valid() {
		t.Error("negative index must be invalid")
	}
	if !ElementOf(Single(0), true).Valid() || !FieldOf(2).Valid() {
		t.Error("constructed values must be valid")
	}
}

func TestNatureOrder(t *testing.T) {
	if Best(Assigned, CommonHC) != Assigned {
		t.Error("assigned is stronger than common hidden content")
	}
	if Combine(Assigned, CommonHC) != CommonHC {
		t.Error("either assigned or hc is hc")
	}
	if !Delayed.AtMost(StaticallyAssigned) {
		t.Error("delays pass every ceiling")
	}
	if CommonHC.AtMost(Dependent) {
		t.Error("hc is weaker than dependent")
	}
	if CommonHC.PropagatesModification() || !Dependent.PropagatesModification() {
		t.Error("only identity, assignment and dependence propagate modification")
	}
}

func TestLV_Immutable(t *testing.T) {
	if got := MustParseLV("*M-4-0M").Immutable().String(); got != "*-4-0" {
		t.Errorf("Immutable() = %s, want *-4-0", got)
	}
	if got := AssignedLV.Immutable().String(); got != "1" {
		t.Errorf("Immutable() = %s, want 1", got)
	}
}

func TestLV_TextEncoding(t *testing.T) {
	var got struct {
		LV LV `json:"lv"`
	}
	if err := json.Unmarshal([]byte(`{"lv":"*-2-0|*-3.1"}`), &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if got.LV.String() != "*-2-0|*-3.1" {
		t.Errorf("decoded %s", got.LV)
	}
	out, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != `{"lv":"*-2-0|*-3.1"}` {
		t.Errorf("Marshal = %s", out)
	}
	if err := json.Unmarshal([]byte(`{"lv":"0-7-0"}`), &got); err == nil {
		t.Error("expected error for unknown nature")
	}
}
