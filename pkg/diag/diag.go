// Package diag collects analysis diagnostics. Diagnostics never stop the
// analysis of other methods.
package diag

import (
	"fmt"
	"sort"
	"sync"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// Unresolved: the summaries of a cyclic component did not stabilize
	// within the iteration budget.
	Unresolved Kind = "unresolved"
	// OverwriteConflict: a finalized link was replaced by an incompatible one.
	OverwriteConflict Kind = "overwrite-conflict"
	// InvariantViolation: a logic fault aborted the analysis of a method.
	InvariantViolation Kind = "invariant-violation"
	// MissingSummary: a call target has no body, no verdicts and no summary.
	MissingSummary Kind = "missing-summary"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{InvariantViolation, OverwriteConflict, Unresolved, MissingSummary}

// Severity of a kind, for rendering.
func (k Kind) Severity() string {
	switch k {
	case InvariantViolation, OverwriteConflict:
		return "error"
	case Unresolved:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic reports a problem in one method.
type Diagnostic struct {
	Kind     Kind   `json:"kind"`
	Method   string `json:"method"`
	Variable string `json:"variable,omitempty"`
	Index    string `json:"index,omitempty"`
	Message  string `json:"message"`
}

func (d Diagnostic) Error() string {
	loc := d.Method
	if d.Index != "" {
		loc += "@" + d.Index
	}
	if d.Variable != "" {
		loc += " " + d.Variable
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, loc, d.Message)
}

// Collector gathers diagnostics from concurrent workers.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add appends a diagnostic (thread-safe).
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Addf appends a diagnostic built from a format.
func (c *Collector) Addf(kind Kind, method, format string, args ...any) {
	c.Add(Diagnostic{Kind: kind, Method: method, Message: fmt.Sprintf(format, args...)})
}

// HasErrors returns true if any diagnostic was collected.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) > 0
}

// Len returns the number of diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sorted returns the diagnostics ordered by method, kind and index.
func (c *Collector) Sorted() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Index < b.Index
	})
	return out
}

// Of returns the methods with a diagnostic of the given kind, sorted and
// without duplicates.
func (c *Collector) Of(kind Kind) []string {
	seen := map[string]bool{}
	for _, d := range c.Sorted() {
		if d.Kind == kind && !seen[d.Method] {
			seen[d.Method] = true
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Error implements the error interface.
func (c *Collector) Error() string {
	items := c.Sorted()
	switch len(items) {
	case 0:
		return "no diagnostics"
	case 1:
		return items[0].Error()
	default:
		return fmt.Sprintf("%d diagnostics (first: %v)", len(items), items[0])
	}
}
