package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/driver"
	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/linker"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
)

func sampleReport() *driver.Report {
	c := model.Class("C")
	k := model.Parameter{Method: "C.set", Name: "k", VarType: model.Primitive("int")}
	this := model.This{VarType: c}
	rv := model.ReturnVariable{Method: "C.set", VarType: c}

	store := summary.NewStore()
	store.Put(summary.New("C.set",
		[]vardata.Links{vardata.Empty(k)},
		vardata.NewBuilder(rv).Add(rv, this, link.SA).Build(),
		[]model.Variable{this}))

	odd := summary.New("X.odd", nil, vardata.Empty(model.ReturnVariable{Method: "X.odd", VarType: c}), nil)
	odd.Unresolved = true
	store.Put(odd)

	return &driver.Report{
		Summaries: store,
		Results:   map[string]*linker.Result{"C.set": {Method: "C.set"}},
		Diagnostics: []diag.Diagnostic{
			{Kind: diag.Unresolved, Method: "X.odd", Message: "no fixpoint after 10 iterations"},
		},
		Unresolved: []string{"X.odd"},
		Components: 2,
		Waves:      1,
	}
}

func TestNewAnalysisData(t *testing.T) {
	data, err := NewAnalysisData(sampleReport())
	if err != nil {
		t.Fatalf("NewAnalysisData() error: %v", err)
	}

	if len(data.Methods) != 2 {
		t.Fatalf("got %d methods, want 2", len(data.Methods))
	}
	set := data.Methods[0]
	if set.Method != "C.set" {
		t.Errorf("Methods[0] = %s, want C.set", set.Method)
	}
	if len(set.Links) != 1 || set.Links[0] != (LinkData{From: "<return>", LV: "0", To: "this"}) {
		t.Errorf("C.set links = %+v", set.Links)
	}
	if len(set.Modified) != 1 || set.Modified[0] != "this" {
		t.Errorf("C.set modified = %v", set.Modified)
	}
	if !data.Methods[1].Unresolved {
		t.Error("X.odd should be marked unresolved")
	}

	want := StatsData{Methods: 2, Linked: 1, Components: 2, Waves: 1}
	if data.Stats != want {
		t.Errorf("Stats = %+v, want %+v", data.Stats, want)
	}
}

func TestNewAnalysisDataSelection(t *testing.T) {
	data, err := NewAnalysisData(sampleReport(), "X.odd")
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Methods) != 1 || data.Methods[0].Method != "X.odd" {
		t.Errorf("Methods = %+v, want only X.odd", data.Methods)
	}

	if _, err := NewAnalysisData(sampleReport(), "X.missing"); err == nil {
		t.Error("NewAnalysisData() should fail for an unknown method")
	}
}

func TestAnalysisReportText(t *testing.T) {
	data, _ := NewAnalysisData(sampleReport())

	var buf bytes.Buffer
	if err := AnalysisReport(data, false).RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Linkage Analysis",
		"<return> 0 this",
		"X.odd (unresolved)",
		"warning",
		"no fixpoint after 10 iterations",
		"2 summaries, 1 methods linked in 2 components over 1 waves, 0 memo hits",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestAnalysisReportData(t *testing.T) {
	data, _ := NewAnalysisData(sampleReport())
	if got := AnalysisReport(data, false).RenderData(); got != data {
		t.Errorf("RenderData() = %T, want the analysis data", got)
	}
}

func TestVariableTable(t *testing.T) {
	c := model.Class("C")
	k := model.Local{Name: "k", VarType: c}
	m := model.Local{Name: "m", VarType: c}
	vi := &vardata.VariableInfo{
		Variable:    k,
		Assignments: vardata.NewIndexSet("0", "2"),
		Modified:    vardata.NewIndexSet("1"),
		Links:       vardata.NewBuilder(k).Add(k, m, link.AssignedLV).Build(),
	}

	view := NewVariableView("X.f", "2", vi)
	if view.Variable != "k" || view.Index != "2" {
		t.Errorf("view = %+v", view)
	}

	var buf bytes.Buffer
	if err := VariableTable(view).RenderText(&buf, false); err != nil {
		t.Fatal(err)
	}
	// footers may be upper-cased by the table renderer
	out := strings.ToLower(buf.String())
	for _, want := range []string{"k in x.f at 2", "assigned 0 2", "modified 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("variable table missing %q:\n%s", want, out)
		}
	}
}
