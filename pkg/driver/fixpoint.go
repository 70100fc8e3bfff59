package driver

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/linker"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
)

// overlay answers summary lookups during the fixpoint of one component:
// members see the latest summary computed for each other, or Pending before
// the first one; everything else comes from the published store. Delays in
// a member's latest summary are dropped, otherwise two members waiting on
// each other would hand the same delay back and forth forever.
type overlay struct {
	store   *summary.Store
	members map[string]int
	current []*summary.MethodLinkedVariables
}

func (o *overlay) Summary(method string) (*summary.MethodLinkedVariables, summary.Status) {
	if i, ok := o.members[method]; ok {
		s := o.current[i]
		switch {
		case s == nil:
			return nil, summary.Pending
		case s.HasDelays():
			return s.StripDelays(), summary.Available
		default:
			return s, summary.Available
		}
	}
	return o.store.Summary(method)
}

func (r *run) component(ctx context.Context, c Component) error {
	if !c.Recursive {
		return r.single(ctx, c.Methods[0])
	}
	return r.fixpoint(ctx, c)
}

// single analyzes a method outside any cycle. Its callees are all
// published, so one evaluation is final.
func (r *run) single(ctx context.Context, name string) error {
	m, _ := r.program.Method(name)

	var fp string
	if r.memo != nil {
		var err error
		fp, err = fingerprint(r.program, m, r.program.Callees(m), r.store)
		if err != nil {
			r.logger.Warn("fingerprint failed", "method", name, "error", err)
		} else if s, ok := r.memo.Load(name, fp); ok {
			r.store.Put(s)
			r.mu.Lock()
			r.memoHits++
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.MemoHits.Inc()
			}
			return nil
		}
	}

	res, err := r.link(ctx, m, r.store)
	if err != nil || res == nil {
		return err
	}
	r.publish(map[string]*linker.Result{name: res})
	if fp != "" {
		if err := r.memo.Save(name, fp, res.Summary); err != nil {
			r.logger.Warn("memo save failed", "method", name, "error", err)
		}
	}
	return nil
}

// fixpoint iterates the members of a recursive component in a fixed order,
// each evaluation seeing the newest summaries of the others, until an
// iteration changes no summary and no member waits on a delay. When the
// budget runs out, the remaining delays are dropped and the members
// reported unresolved.
func (r *run) fixpoint(ctx context.Context, c Component) error {
	members := make([]*model.Method, len(c.Methods))
	ov := &overlay{
		store:   r.store,
		members: make(map[string]int, len(c.Methods)),
		current: make([]*summary.MethodLinkedVariables, len(c.Methods)),
	}
	for i, name := range c.Methods {
		members[i], _ = r.program.Method(name)
		ov.members[name] = i
	}

	results := make([]*linker.Result, len(members))
	failed := roaring.New()
	unstable := roaring.New()
	iteration := 0
	for iteration < r.maxIterations {
		iteration++
		unstable.Clear()
		for i, m := range members {
			if failed.Contains(uint32(i)) {
				continue
			}
			res, err := r.link(ctx, m, ov)
			if err != nil {
				return err
			}
			if res == nil {
				failed.Add(uint32(i))
				continue
			}
			prev := ov.current[i]
			if prev != nil && !prev.HasDelays() && !prev.IsRefinedBy(res.Summary) {
				r.addDiag(diag.Diagnostic{
					Kind:    diag.OverwriteConflict,
					Method:  m.FQN(),
					Message: fmt.Sprintf("summary changed after it was final: %s -> %s", prev, res.Summary),
				})
			}
			if !prev.Equal(res.Summary) || res.Delayed() {
				unstable.Add(uint32(i))
			}
			ov.current[i] = res.Summary
			results[i] = res
		}
		r.logger.Debug("component iteration",
			"component", c.ID, "iteration", iteration, "unstable", unstable.GetCardinality())
		if unstable.IsEmpty() {
			break
		}
	}
	if r.metrics != nil {
		r.metrics.SCCIterations.Observe(float64(iteration))
	}

	final := make(map[string]*linker.Result, len(members))
	for i, res := range results {
		if res == nil {
			continue
		}
		if !unstable.IsEmpty() {
			res.Summary = res.Summary.StripDelays()
		}
		final[c.Methods[i]] = res
	}
	if !unstable.IsEmpty() {
		r.unstable(c, iteration)
	}
	r.publish(final)
	return nil
}

// unstable reports every member of a component that did not stabilize.
// The members depend on each other, so none of their summaries can be
// trusted once one of them keeps changing.
func (r *run) unstable(c Component, iterations int) {
	r.logger.Warn("component did not stabilize",
		"component", c.ID, "methods", c.Methods, "iterations", iterations)
	r.mu.Lock()
	r.unresolved = append(r.unresolved, c.Methods...)
	r.mu.Unlock()
	for _, name := range c.Methods {
		r.addDiag(diag.Diagnostic{
			Kind:    diag.Unresolved,
			Method:  name,
			Message: fmt.Sprintf("summary did not stabilize after %d iterations", iterations),
		})
		if r.metrics != nil {
			r.metrics.UnresolvedMethods.Inc()
		}
	}
}
