// Package driver analyzes a whole program: it orders methods by the call
// graph so that callees are summarized before their callers, analyzes
// independent components in parallel, and iterates mutually recursive
// methods until their summaries stabilize.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/linkage/internal/metrics"
	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/linker"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/wgraph"
)

const (
	// DefaultMaxIterations bounds the fixpoint of a recursive component.
	DefaultMaxIterations = 10
	// DefaultWorkerMultiplier is applied to NumCPU for the worker count.
	DefaultWorkerMultiplier = 2
)

// SummaryComputer evaluates one method against the summaries known so far.
// *linker.Linker implements it.
type SummaryComputer interface {
	Link(ctx context.Context, m *model.Method, lookup summary.Lookup) (*linker.Result, error)
}

// ProgressFunc is called after each component, with the number of
// components done and the total.
type ProgressFunc func(done, total int)

// Driver analyzes programs.
type Driver struct {
	logger        *slog.Logger
	workers       int
	maxIterations int
	metrics       *metrics.Metrics
	memo          Memo
	onProgress    ProgressFunc
	computer      SummaryComputer
	sharedGraphs  bool
	linkerOpts    []linker.Option
}

// Option is a functional option for configuring Driver.
type Option func(*Driver)

// WithLogger sets the logger, which is also handed to the linker.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithWorkers bounds the number of components analyzed concurrently.
// Zero or less selects DefaultWorkerMultiplier x NumCPU.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		d.workers = n
	}
}

// WithMaxIterations bounds the fixpoint of recursive components.
func WithMaxIterations(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxIterations = n
		}
	}
}

// WithMetrics records instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithMemo reuses summaries stored by earlier runs.
func WithMemo(m Memo) Option {
	return func(d *Driver) {
		d.memo = m
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Driver) {
		d.onProgress = fn
	}
}

// WithSummaryComputer replaces the linker.
func WithSummaryComputer(c SummaryComputer) Option {
	return func(d *Driver) {
		d.computer = c
	}
}

// WithSharedGraphCache shares shortest-path computations between all
// methods of a run.
func WithSharedGraphCache(enabled bool) Option {
	return func(d *Driver) {
		d.sharedGraphs = enabled
	}
}

// WithLinkerOptions passes options to the linker created by Run.
func WithLinkerOptions(opts ...linker.Option) Option {
	return func(d *Driver) {
		d.linkerOpts = append(d.linkerOpts, opts...)
	}
}

// New creates a driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		logger:        slog.Default(),
		maxIterations: DefaultMaxIterations,
		sharedGraphs:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers <= 0 {
		d.workers = runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return d
}

// run holds the state of one call to Run.
type run struct {
	*Driver
	program  *model.Program
	graph    *CallGraph
	computer SummaryComputer
	store    *summary.Store
	diags    diag.Collector

	mu         sync.Mutex
	results    map[string]*linker.Result
	unresolved []string
	memoHits   int
	done       int
}

// Run analyzes every method of p. When ctx ends first, the components
// finished so far are reported together with an error wrapping
// ErrCanceled.
func (d *Driver) Run(ctx context.Context, p *model.Program) (*Report, error) {
	r := &run{
		Driver:  d,
		program: p,
		graph:   NewCallGraph(p),
		store:   summary.NewStore(),
		results: make(map[string]*linker.Result),
	}
	r.computer = d.computer
	if r.computer == nil {
		opts := []linker.Option{linker.WithLogger(d.logger)}
		if d.sharedGraphs {
			opts = append(opts, linker.WithGraphCache(wgraph.NewCache(wgraph.WithMetrics(d.metrics))))
		}
		r.computer = linker.New(p, append(opts, d.linkerOpts...)...)
	}
	r.preloadShallow()

	comps := r.graph.Components()
	waves := r.graph.Waves(comps)
	d.logger.Info("analyzing program",
		"methods", r.graph.Len(), "components", len(comps), "waves", len(waves))

	var err error
	for i, wave := range waves {
		if err = r.wave(ctx, i, wave, len(comps)); err != nil {
			break
		}
	}

	report := r.report(len(comps), len(waves))
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return report, nil
}

// preloadShallow publishes the summaries of bodiless methods derived from
// their verdicts.
func (r *run) preloadShallow() {
	for _, name := range r.program.MethodNames() {
		m, _ := r.program.Method(name)
		if m.HasBody() {
			continue
		}
		owner, _ := r.program.TypeInfo(m.Owner)
		r.store.Put(summary.Shallow(m, owner))
	}
}

func (r *run) wave(ctx context.Context, i int, wave []Component, total int) error {
	start := time.Now()
	p := pool.New().WithMaxGoroutines(r.workers).WithContext(ctx)
	for _, c := range wave {
		p.Go(func(ctx context.Context) error {
			if err := r.component(ctx, c); err != nil {
				return err
			}
			r.progress(total)
			return nil
		})
	}
	err := p.Wait()
	if r.metrics != nil {
		r.metrics.WaveDuration.Observe(time.Since(start).Seconds())
	}
	r.logger.Debug("wave analyzed", "wave", i, "components", len(wave), "elapsed", time.Since(start))
	if err == nil {
		err = ctx.Err()
	}
	return err
}

func (r *run) progress(total int) {
	r.mu.Lock()
	r.done++
	done := r.done
	r.mu.Unlock()
	if r.onProgress != nil {
		r.onProgress(done, total)
	}
}

// link evaluates one method. Context errors abort the run; any other
// failure is a fault of this method only and becomes a diagnostic.
func (r *run) link(ctx context.Context, m *model.Method, lookup summary.Lookup) (*linker.Result, error) {
	res, err := r.computer.Link(ctx, m, lookup)
	if r.metrics != nil {
		r.metrics.SummariesComputed.Inc()
	}
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	r.logger.Error("method analysis failed", "method", m.FQN(), "error", err)
	r.addDiag(diag.Diagnostic{Kind: diag.InvariantViolation, Method: m.FQN(), Message: err.Error()})
	return nil, nil
}

func (r *run) addDiag(d diag.Diagnostic) {
	r.diags.Add(d)
	if r.metrics != nil {
		r.metrics.Diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
}

// publish commits the final results of a component.
func (r *run) publish(results map[string]*linker.Result) {
	for _, res := range results {
		r.store.Put(res.Summary)
		for _, d := range res.Diagnostics {
			r.addDiag(d)
		}
	}
	r.mu.Lock()
	for name, res := range results {
		r.results[name] = res
	}
	r.mu.Unlock()
}

func (r *run) report(comps, waves int) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	unresolved := append([]string(nil), r.unresolved...)
	sort.Strings(unresolved)
	return &Report{
		Summaries:   r.store,
		Results:     r.results,
		Diagnostics: r.diags.Sorted(),
		Unresolved:  unresolved,
		Components:  comps,
		Waves:       waves,
		MemoHits:    r.memoHits,
	}
}
