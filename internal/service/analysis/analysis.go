// Package analysis wires configuration, the summary memo and the driver
// into the operations shared by the CLI and the MCP server.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panbanda/linkage/internal/cache"
	"github.com/panbanda/linkage/internal/metrics"
	"github.com/panbanda/linkage/internal/output"
	"github.com/panbanda/linkage/pkg/config"
	"github.com/panbanda/linkage/pkg/driver"
	"github.com/panbanda/linkage/pkg/linker"
	"github.com/panbanda/linkage/pkg/loader"
	"github.com/panbanda/linkage/pkg/model"
)

// Service runs analyses with one configuration.
type Service struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	memo    driver.Memo
	noMemo  bool
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLogger sets the logger handed to the driver.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records driver instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMemo replaces the on-disk memo (for testing).
func WithMemo(m driver.Memo) Option {
	return func(s *Service) {
		s.memo = m
	}
}

// WithoutMemo disables summary reuse regardless of the cache settings.
func WithoutMemo() Option {
	return func(s *Service) {
		s.noMemo = true
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Uncached returns a copy of s that links every method itself, so that
// every result is available to Explain.
func (s *Service) Uncached() *Service {
	c := *s
	c.noMemo = true
	return &c
}

// Config returns the configuration in use.
func (s *Service) Config() *config.Config { return s.config }

func (s *Service) driverOptions(onProgress driver.ProgressFunc) ([]driver.Option, error) {
	a := s.config.Analysis
	opts := []driver.Option{
		driver.WithLogger(s.logger),
		driver.WithWorkers(a.Workers),
		driver.WithMaxIterations(a.MaxSCCIterations),
		driver.WithSharedGraphCache(s.config.Cache.GraphCache),
		driver.WithLinkerOptions(
			linker.WithMaxLoopIterations(a.MaxLoopIterations),
			linker.WithAllowArrayOfTypeParameter(a.AllowArrayOfTypeParameter),
		),
	}
	if s.metrics != nil {
		opts = append(opts, driver.WithMetrics(s.metrics))
	}
	if onProgress != nil {
		opts = append(opts, driver.WithProgress(onProgress))
	}

	memo := s.memo
	if memo == nil && !s.noMemo && s.config.Cache.Enabled {
		c, err := cache.New(s.config.Cache.Dir, s.config.Cache.TTL, true)
		if err != nil {
			return nil, fmt.Errorf("open summary cache: %w", err)
		}
		memo = cache.NewMemo(c)
	}
	if memo != nil && !s.noMemo {
		opts = append(opts, driver.WithMemo(memo))
	}
	return opts, nil
}

// Analyze links every method of p.
func (s *Service) Analyze(ctx context.Context, p *model.Program, onProgress driver.ProgressFunc) (*driver.Report, error) {
	opts, err := s.driverOptions(onProgress)
	if err != nil {
		return nil, err
	}
	return driver.New(opts...).Run(ctx, p)
}

// AnalyzeFile loads the program document at path and analyzes it.
func (s *Service) AnalyzeFile(ctx context.Context, path string, onProgress driver.ProgressFunc) (*model.Program, *driver.Report, error) {
	p, err := loader.Load(path)
	if err != nil {
		return nil, nil, err
	}
	rep, err := s.Analyze(ctx, p, onProgress)
	return p, rep, err
}

// ExplainOptions selects the variable state to explain.
type ExplainOptions struct {
	Method   string
	Variable string
	// Index selects the state after a statement; empty means method exit.
	Index string
}

// Explain describes the links of one variable of a linked method.
func Explain(rep *driver.Report, opts ExplainOptions) (*output.VariableView, error) {
	res, ok := rep.Results[opts.Method]
	if !ok {
		if _, summarized := rep.Summary(opts.Method); summarized {
			return nil, fmt.Errorf("method %q was not linked in this run (no body, or served from the cache)", opts.Method)
		}
		return nil, fmt.Errorf("unknown method %q", opts.Method)
	}

	state, index := res.Exit, "exit"
	if opts.Index != "" {
		at, ok := res.History.At(opts.Index)
		if !ok {
			return nil, fmt.Errorf("method %s has no statement %q", opts.Method, opts.Index)
		}
		state, index = at, opts.Index
	}

	vi, ok := state.Get(opts.Variable)
	if !ok {
		return nil, fmt.Errorf("variable %q is not known in %s at %s; known: %v", opts.Variable, opts.Method, index, state.Variables())
	}
	return output.NewVariableView(opts.Method, index, vi), nil
}
