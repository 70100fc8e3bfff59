package output

import (
	"fmt"
	"strings"

	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/driver"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
)

// LinkData is one link in serialized output.
type LinkData struct {
	From string `json:"from" toon:"from"`
	LV   string `json:"lv" toon:"lv"`
	To   string `json:"to" toon:"to"`
}

// MethodData is the serialized summary of one method.
type MethodData struct {
	Method     string     `json:"method" toon:"method"`
	Links      []LinkData `json:"links,omitempty" toon:"links,omitempty"`
	Modified   []string   `json:"modified,omitempty" toon:"modified,omitempty"`
	Unresolved bool       `json:"unresolved,omitempty" toon:"unresolved,omitempty"`
}

// StatsData counts the work done by a run.
type StatsData struct {
	Methods    int `json:"methods" toon:"methods"`
	Linked     int `json:"linked" toon:"linked"`
	Components int `json:"components" toon:"components"`
	Waves      int `json:"waves" toon:"waves"`
	MemoHits   int `json:"memo_hits" toon:"memo_hits"`
}

// AnalysisData is the serialized outcome of a run.
type AnalysisData struct {
	Methods     []MethodData      `json:"methods" toon:"methods"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" toon:"diagnostics,omitempty"`
	Unresolved  []string          `json:"unresolved,omitempty" toon:"unresolved,omitempty"`
	Stats       StatsData         `json:"stats" toon:"stats"`
}

func linkData(l vardata.Links) []LinkData {
	var out []LinkData
	for _, x := range l.Slice() {
		out = append(out, LinkData{From: x.From.FQN(), LV: x.LV.String(), To: x.To.FQN()})
	}
	return out
}

// SummaryData flattens a method summary.
func SummaryData(s *summary.MethodLinkedVariables) MethodData {
	md := MethodData{Method: s.Method, Unresolved: s.Unresolved}
	for _, p := range s.Params {
		md.Links = append(md.Links, linkData(p)...)
	}
	md.Links = append(md.Links, linkData(s.Return)...)
	for _, v := range s.Modified {
		md.Modified = append(md.Modified, v.FQN())
	}
	return md
}

// NewAnalysisData collects the summaries of the given methods, or of every
// summarized method when none are named.
func NewAnalysisData(rep *driver.Report, methods ...string) (*AnalysisData, error) {
	if len(methods) == 0 {
		methods = rep.Summaries.Methods()
	}
	data := &AnalysisData{
		Diagnostics: rep.Diagnostics,
		Unresolved:  rep.Unresolved,
		Stats: StatsData{
			Methods:    rep.Summaries.Len(),
			Linked:     len(rep.Results),
			Components: rep.Components,
			Waves:      rep.Waves,
			MemoHits:   rep.MemoHits,
		},
	}
	for _, m := range methods {
		s, ok := rep.Summary(m)
		if !ok {
			return nil, fmt.Errorf("no summary for method %q", m)
		}
		data.Methods = append(data.Methods, SummaryData(s))
	}
	return data, nil
}

func joinLinks(links []LinkData) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = l.From + " " + l.LV + " " + l.To
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// AnalysisReport renders a run as a summaries table, a diagnostics table
// and a stats line.
func AnalysisReport(data *AnalysisData, colored bool) *Report {
	var rows [][]string
	for _, m := range data.Methods {
		name := m.Method
		if m.Unresolved {
			name += " (unresolved)"
			if colored {
				name = severityColor("warning", name)
			}
		}
		rows = append(rows, []string{name, orDash(joinLinks(m.Links)), orDash(strings.Join(m.Modified, ", "))})
	}
	summaries := NewTable("Summaries", []string{"Method", "Links", "Modified"}, rows, nil, data.Methods)

	var drows [][]string
	for _, d := range data.Diagnostics {
		sev := d.Kind.Severity()
		if colored {
			sev = severityColor(sev, sev)
		}
		loc := d.Method
		if d.Index != "" {
			loc += "@" + d.Index
		}
		drows = append(drows, []string{sev, string(d.Kind), loc, d.Message})
	}
	diags := NewTable("Diagnostics", []string{"Severity", "Kind", "Method", "Message"}, drows, nil, data.Diagnostics)

	st := data.Stats
	stats := &Section{
		Title: "Stats",
		Content: fmt.Sprintf("%d summaries, %d methods linked in %d components over %d waves, %d memo hits",
			st.Methods, st.Linked, st.Components, st.Waves, st.MemoHits),
		Data: st,
	}

	return &Report{
		Title:    "Linkage Analysis",
		Sections: []Renderable{summaries, diags, stats},
		Data:     data,
	}
}

// VariableView is the serialized state of one variable at a statement.
type VariableView struct {
	Method      string     `json:"method" toon:"method"`
	Variable    string     `json:"variable" toon:"variable"`
	Index       string     `json:"index" toon:"index"`
	Assignments []string   `json:"assignments,omitempty" toon:"assignments,omitempty"`
	Modified    []string   `json:"modified,omitempty" toon:"modified,omitempty"`
	Links       []LinkData `json:"links,omitempty" toon:"links,omitempty"`
}

// NewVariableView describes vi as seen at statement index of method.
func NewVariableView(method, index string, vi *vardata.VariableInfo) *VariableView {
	return &VariableView{
		Method:      method,
		Variable:    vi.Variable.FQN(),
		Index:       index,
		Assignments: vi.Assignments.Slice(),
		Modified:    vi.Modified.Slice(),
		Links:       linkData(vi.Links),
	}
}

// VariableTable renders the links of one variable.
func VariableTable(v *VariableView) *Table {
	rows := make([][]string, len(v.Links))
	for i, l := range v.Links {
		rows[i] = []string{l.From, l.LV, l.To}
	}
	title := fmt.Sprintf("%s in %s at %s", v.Variable, v.Method, v.Index)
	footer := []string{"assigned " + orDash(strings.Join(v.Assignments, " ")), "", "modified " + orDash(strings.Join(v.Modified, " "))}
	return NewTable(title, []string{"From", "LV", "To"}, rows, footer, v)
}
