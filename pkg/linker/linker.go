// Package linker evaluates one method body statement by statement,
// maintaining the links between its variables, and derives the method's
// summary from the state at exit.
package linker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
	"github.com/panbanda/linkage/pkg/vf"
	"github.com/panbanda/linkage/pkg/wgraph"
)

// DefaultMaxLoopIterations bounds the fixpoint of a loop body.
const DefaultMaxLoopIterations = 5

// Linker evaluates method bodies of one program. It is safe for concurrent
// use; every call to Link owns its own state.
type Linker struct {
	program          *model.Program
	fields           *vf.Computer
	cache            *wgraph.Cache
	logger           *slog.Logger
	maxLoop          int
	allowArrayOfTPar bool
}

// Option is a functional option for configuring Linker.
type Option func(*Linker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) {
		l.logger = logger
	}
}

// WithGraphCache shares shortest-path computations through c.
func WithGraphCache(c *wgraph.Cache) Option {
	return func(l *Linker) {
		l.cache = c
	}
}

// WithMaxLoopIterations bounds the loop fixpoint.
func WithMaxLoopIterations(n int) Option {
	return func(l *Linker) {
		if n > 0 {
			l.maxLoop = n
		}
	}
}

// WithAllowArrayOfTypeParameter gives arrays of type parameters hidden
// content at call sites.
func WithAllowArrayOfTypeParameter(allow bool) Option {
	return func(l *Linker) {
		l.allowArrayOfTPar = allow
	}
}

// WithVirtualFields shares a virtual field computer between linkers.
func WithVirtualFields(c *vf.Computer) Option {
	return func(l *Linker) {
		l.fields = c
	}
}

// New creates a linker for the methods of p.
func New(p *model.Program, opts ...Option) *Linker {
	l := &Linker{
		program:          p,
		logger:           slog.Default(),
		maxLoop:          DefaultMaxLoopIterations,
		allowArrayOfTPar: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fields == nil {
		l.fields = vf.NewComputer(p)
	}
	return l
}

// Result is the outcome of evaluating one method body.
type Result struct {
	Method  string
	Summary *summary.MethodLinkedVariables
	// History holds the variable state after every statement.
	History *vardata.History
	// Exit is the variable state at method exit.
	Exit *vardata.VariableData
	// Graph holds the links between all variables at method exit.
	Graph       *wgraph.Graph
	Diagnostics []diag.Diagnostic
}

// Delayed reports whether the summary still depends on unknown summaries.
func (r *Result) Delayed() bool {
	return r.Summary.HasDelays()
}

// Link evaluates the body of m, consulting callee summaries through lookup.
// Logic faults inside the evaluation are returned as errors wrapping
// ErrInvariantViolation; they concern this method only.
func (l *Linker) Link(ctx context.Context, m *model.Method, lookup summary.Lookup) (res *Result, err error) {
	if !m.HasBody() {
		return nil, fmt.Errorf("%w: %s", ErrNoBody, m.FQN())
	}
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %s: %v", ErrInvariantViolation, m.FQN(), r)
		}
	}()

	e := newEvaluator(ctx, l, m, lookup)
	exit, err := e.run()
	if err != nil {
		return nil, err
	}
	g := exit.graph()
	sp := l.cache.ShortestPath(g)
	res = &Result{
		Method:      m.FQN(),
		Summary:     e.summarize(exit, sp),
		History:     e.history,
		Exit:        exit.last,
		Graph:       g,
		Diagnostics: e.diags,
	}
	l.logger.Debug("linked method",
		"method", m.FQN(),
		"statements", e.history.Len(),
		"variables", len(exit.vars),
		"delayed", res.Delayed())
	return res, nil
}

// Immutable reports whether values of type t have no modifiable content:
// primitives and classes declared immutable.
func (l *Linker) Immutable(t model.Type) bool {
	if t.Arrays > 0 {
		return false
	}
	switch t.Kind {
	case model.KindPrimitive:
		return true
	case model.KindClass:
		ti, ok := l.program.TypeInfo(t.Name)
		return ok && ti.Immutable
	default:
		return false
	}
}
