package summary

import (
	"sort"
	"sync"
)

// Status tells a caller what it can expect from a callee's summary.
type Status int

const (
	// Missing: the callee has no summary and none is coming.
	Missing Status = iota
	// Pending: the callee's summary is being computed in the current cycle.
	Pending
	// Available: the summary is published.
	Available
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Available:
		return "available"
	default:
		return "missing"
	}
}

// Lookup resolves callee summaries during the analysis of a method body.
type Lookup interface {
	Summary(method string) (*MethodLinkedVariables, Status)
}

// Store is the process-wide summary table. It is safe for concurrent use;
// summaries are shared read-only once stored.
type Store struct {
	mu    sync.RWMutex
	items map[string]*MethodLinkedVariables
}

func NewStore() *Store {
	return &Store{items: make(map[string]*MethodLinkedVariables)}
}

// Put publishes a summary, replacing any earlier one for the same method.
func (s *Store) Put(mlv *MethodLinkedVariables) {
	s.mu.Lock()
	s.items[mlv.Method] = mlv
	s.mu.Unlock()
}

func (s *Store) Get(method string) (*MethodLinkedVariables, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mlv, ok := s.items[method]
	return mlv, ok
}

// Summary implements Lookup.
func (s *Store) Summary(method string) (*MethodLinkedVariables, Status) {
	if mlv, ok := s.Get(method); ok {
		return mlv, Available
	}
	return nil, Missing
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Methods returns the names of the stored summaries, sorted.
func (s *Store) Methods() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.items))
	for m := range s.items {
		out = append(out, m)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
