package driver

import (
	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/linker"
	"github.com/panbanda/linkage/pkg/summary"
)

// Report is the outcome of analyzing a program.
type Report struct {
	// Summaries holds every published summary, shallow ones included.
	Summaries *summary.Store
	// Results holds the final evaluation of every method linked in this run.
	// Methods served from the memo have a summary but no result.
	Results     map[string]*linker.Result
	Diagnostics []diag.Diagnostic
	// Unresolved lists the methods whose summaries did not stabilize.
	Unresolved []string
	Components int
	Waves      int
	MemoHits   int
}

// Summary returns the published summary of a method.
func (r *Report) Summary(method string) (*summary.MethodLinkedVariables, bool) {
	return r.Summaries.Get(method)
}

// HasErrors reports whether a diagnostic of error severity was raised.
func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Kind.Severity() == "error" {
			return true
		}
	}
	return false
}
