package driver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/linkage/internal/metrics"
	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/linker"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
)

var (
	mT    = model.Class("M")
	boolT = model.Primitive("boolean")
)

func listOf(t model.Type) model.Type { return model.Class("List", t) }

// containerProgram declares List<E> with a bodiless get, and two static
// methods: X.first returns the first element of a list, X.head delegates to
// X.first.
func containerProgram(t *testing.T) *model.Program {
	t.Helper()
	p := model.NewProgram()
	p.AddType(&model.TypeInfo{
		Name:           "List",
		TypeParameters: []string{"E"},
		Fields:         []model.Field{{Name: "elements", Type: model.TypeParam("E").Array(1)}},
	})
	p.AddType(&model.TypeInfo{Name: "M"})
	require.NoError(t, p.AddMethod(&model.Method{
		Name: "get", Owner: "List",
		Params:     []model.Parameter{{Name: "index", VarType: model.Primitive("int")}},
		ReturnType: model.TypeParam("E"),
	}))

	ms := model.Parameter{Method: "X.first", Name: "ms", VarType: listOf(mT)}
	require.NoError(t, p.AddMethod(&model.Method{
		Name: "first", Owner: "X", Static: true,
		Params:     []model.Parameter{ms},
		ReturnType: mT,
		Body: &model.Block{Statements: []model.Statement{
			&model.Return{Value: &model.Call{Method: "List.get", Object: model.Ref(ms), Args: []model.Expression{&model.Constant{Value: "0"}}}},
		}},
	}))

	ls := model.Parameter{Method: "X.head", Name: "ls", VarType: listOf(mT)}
	require.NoError(t, p.AddMethod(&model.Method{
		Name: "head", Owner: "X", Static: true,
		Params:     []model.Parameter{ls},
		ReturnType: mT,
		Body: &model.Block{Statements: []model.Statement{
			&model.Return{Value: &model.Call{Method: "X.first", Args: []model.Expression{model.Ref(ls)}}},
		}},
	}))
	return p
}

// parityProgram declares X.even and X.odd, each returning its argument or
// the result of calling the other.
func parityProgram(t *testing.T) *model.Program {
	t.Helper()
	p := model.NewProgram()
	p.AddType(&model.TypeInfo{Name: "M"})
	for _, pair := range [][2]string{{"even", "odd"}, {"odd", "even"}} {
		fqn := "X." + pair[0]
		x := model.Parameter{Method: fqn, Index: 0, Name: "x", VarType: mT}
		c := model.Parameter{Method: fqn, Index: 1, Name: "c", VarType: boolT}
		require.NoError(t, p.AddMethod(&model.Method{
			Name: pair[0], Owner: "X", Static: true,
			Params:     []model.Parameter{x, c},
			ReturnType: mT,
			Body: &model.Block{Statements: []model.Statement{
				&model.If{Cond: model.Ref(c), Then: &model.Block{Statements: []model.Statement{
					&model.Return{Value: model.Ref(x)},
				}}},
				&model.Return{Value: &model.Call{Method: "X." + pair[1], Args: []model.Expression{model.Ref(x), model.Ref(c)}}},
			}},
		}))
	}
	return p
}

func twoWorkers() Option { return WithWorkers(2) }

func TestRun_CalleesBeforeCallers(t *testing.T) {
	p := containerProgram(t)

	report, err := New(twoWorkers()).Run(context.Background(), p)
	require.NoError(t, err)

	first, ok := report.Summary("X.first")
	require.True(t, ok)
	assert.Equal(t, "<return>: <return> *M-4-0M ms", first.String())

	head, ok := report.Summary("X.head")
	require.True(t, ok)
	assert.Equal(t, "<return>: <return> *M-4-0M ls", head.String())

	get, ok := report.Summary("List.get")
	require.True(t, ok, "bodiless methods get a shallow summary")
	assert.Equal(t, "<return>: <return> *M-4-0M this", get.String())

	assert.Equal(t, 2, report.Components)
	assert.Equal(t, 2, report.Waves)
	assert.Empty(t, report.Diagnostics)
	assert.Empty(t, report.Unresolved)
	assert.Contains(t, report.Results, "X.head")
}

func TestRun_MutualRecursionStabilizes(t *testing.T) {
	p := parityProgram(t)

	report, err := New(twoWorkers()).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Empty(t, report.Unresolved)
	assert.Empty(t, report.Diagnostics)
	for _, name := range []string{"X.even", "X.odd"} {
		s, ok := report.Summary(name)
		require.True(t, ok)
		assert.False(t, s.HasDelays(), name)
		assert.False(t, s.Unresolved, name)
		assert.Equal(t, "<return>: <return> 1 x", s.String(), name)
	}
}

// fakeComputer hands out summaries from a function of the method and the
// number of times it was linked.
type fakeComputer struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(ctx context.Context, m *model.Method, n int) (*summary.MethodLinkedVariables, error)
}

func newFake(fn func(ctx context.Context, m *model.Method, n int) (*summary.MethodLinkedVariables, error)) *fakeComputer {
	return &fakeComputer{calls: make(map[string]int), fn: fn}
}

func (f *fakeComputer) Link(ctx context.Context, m *model.Method, _ summary.Lookup) (*linker.Result, error) {
	f.mu.Lock()
	f.calls[m.FQN()]++
	n := f.calls[m.FQN()]
	f.mu.Unlock()
	s, err := f.fn(ctx, m, n)
	if err != nil {
		return nil, err
	}
	return &linker.Result{Method: m.FQN(), Summary: s}, nil
}

func (f *fakeComputer) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// returning builds a summary whose return value is linked to the first
// parameter with lv.
func returning(m *model.Method, lv link.LV) *summary.MethodLinkedVariables {
	params := make([]vardata.Links, len(m.Params))
	for i, p := range m.Params {
		params[i] = vardata.Empty(p)
	}
	rv := m.Return()
	ret := vardata.NewBuilder(rv).Add(rv, m.Params[0], lv).Build()
	return summary.New(m.FQN(), params, ret, nil)
}

func TestRun_NonConvergence(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, m *model.Method, n int) (*summary.MethodLinkedVariables, error)
		conflicts bool
	}{
		{
			name: "always delayed",
			fn: func(_ context.Context, m *model.Method, _ int) (*summary.MethodLinkedVariables, error) {
				return returning(m, link.DelayedLV), nil
			},
		},
		{
			name: "oscillating",
			fn: func(_ context.Context, m *model.Method, n int) (*summary.MethodLinkedVariables, error) {
				if n%2 == 0 {
					return returning(m, link.SA), nil
				}
				return returning(m, link.AssignedLV), nil
			},
			conflicts: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			fake := newFake(tt.fn)
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			report, err := New(twoWorkers(), WithMaxIterations(3), WithSummaryComputer(fake), WithMetrics(m)).
				Run(ctx, parityProgram(t))
			require.NoError(t, err)

			assert.Equal(t, []string{"X.even", "X.odd"}, report.Unresolved)
			var unresolved []string
			conflicts := 0
			for _, d := range report.Diagnostics {
				switch d.Kind {
				case diag.Unresolved:
					unresolved = append(unresolved, d.Method)
				case diag.OverwriteConflict:
					conflicts++
				}
			}
			assert.Equal(t, []string{"X.even", "X.odd"}, unresolved)
			assert.Equal(t, tt.conflicts, conflicts > 0)

			for _, name := range report.Unresolved {
				s, ok := report.Summary(name)
				require.True(t, ok)
				assert.True(t, s.Unresolved)
				assert.False(t, s.HasDelays(), "delays never reach a published summary")
			}
			assert.Equal(t, 6, fake.total(), "two members, three iterations")
			assert.Equal(t, 6.0, testutil.ToFloat64(m.SummariesComputed))
			assert.Equal(t, 2.0, testutil.ToFloat64(m.UnresolvedMethods))
		})
	}
}

func TestRun_FaultyMethodIsIsolated(t *testing.T) {
	p := containerProgram(t)
	fake := newFake(func(_ context.Context, m *model.Method, _ int) (*summary.MethodLinkedVariables, error) {
		if m.FQN() == "X.first" {
			return nil, fmt.Errorf("%w: X.first: boom", linker.ErrInvariantViolation)
		}
		return returning(m, link.SA), nil
	})

	report, err := New(twoWorkers(), WithSummaryComputer(fake)).Run(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, diag.InvariantViolation, report.Diagnostics[0].Kind)
	assert.Equal(t, "X.first", report.Diagnostics[0].Method)
	assert.True(t, report.HasErrors())

	_, ok := report.Summary("X.first")
	assert.False(t, ok)
	_, ok = report.Summary("X.head")
	assert.True(t, ok, "the caller is still analyzed")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(twoWorkers()).Run(ctx, containerProgram(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	_, ok := report.Summary("X.head")
	assert.False(t, ok)
}

func TestRun_Timeout(t *testing.T) {
	fake := newFake(func(ctx context.Context, _ *model.Method, _ int) (*summary.MethodLinkedVariables, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := New(twoWorkers(), WithSummaryComputer(fake)).Run(ctx, parityProgram(t))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCanceled)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after the deadline")
	}
}

type mapMemo struct {
	mu    sync.Mutex
	items map[string]string
	sums  map[string]*summary.MethodLinkedVariables
}

func newMapMemo() *mapMemo {
	return &mapMemo{items: map[string]string{}, sums: map[string]*summary.MethodLinkedVariables{}}
}

func (m *mapMemo) Load(method, fp string) (*summary.MethodLinkedVariables, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[method] != fp {
		return nil, false
	}
	s, ok := m.sums[method]
	return s, ok
}

func (m *mapMemo) Save(method, fp string, s *summary.MethodLinkedVariables) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[method] = fp
	m.sums[method] = s
	return nil
}

func TestRun_Memo(t *testing.T) {
	memo := newMapMemo()
	first, err := New(twoWorkers(), WithMemo(memo)).Run(context.Background(), containerProgram(t))
	require.NoError(t, err)
	assert.Zero(t, first.MemoHits)

	fake := newFake(func(_ context.Context, m *model.Method, _ int) (*summary.MethodLinkedVariables, error) {
		return returning(m, link.SA), nil
	})
	second, err := New(twoWorkers(), WithMemo(memo), WithSummaryComputer(fake)).Run(context.Background(), containerProgram(t))
	require.NoError(t, err)
	assert.Equal(t, 2, second.MemoHits)
	assert.Zero(t, fake.total())

	s1, _ := first.Summary("X.head")
	s2, _ := second.Summary("X.head")
	assert.True(t, s1.Equal(s2))

	// a changed body invalidates the method and its callers
	changed := containerProgram(t)
	first2, _ := changed.Method("X.first")
	first2.Body.Statements = append([]model.Statement{
		&model.ExprStmt{Expr: &model.Constant{Value: "1"}},
	}, first2.Body.Statements...)
	third, err := New(twoWorkers(), WithMemo(memo), WithSummaryComputer(fake)).Run(context.Background(), changed)
	require.NoError(t, err)
	assert.Zero(t, third.MemoHits)
	assert.Equal(t, 2, fake.total())
}

func TestRun_MemoInvalidatedByReferencedType(t *testing.T) {
	memo := newMapMemo()
	_, err := New(twoWorkers(), WithMemo(memo)).Run(context.Background(), containerProgram(t))
	require.NoError(t, err)

	fake := newFake(func(_ context.Context, m *model.Method, _ int) (*summary.MethodLinkedVariables, error) {
		return returning(m, link.SA), nil
	})

	// M is neither owner nor callee of X.first, only its element type
	changed := containerProgram(t)
	mInfo, ok := changed.TypeInfo("M")
	require.True(t, ok)
	mInfo.Immutable = true
	rep, err := New(twoWorkers(), WithMemo(memo), WithSummaryComputer(fake)).Run(context.Background(), changed)
	require.NoError(t, err)
	assert.Zero(t, rep.MemoHits)
	assert.Equal(t, 2, fake.total())
}

func TestFingerprint_CoversReferencedTypes(t *testing.T) {
	p := containerProgram(t)
	m, _ := p.Method("X.first")
	store := summary.NewStore()
	before, err := fingerprint(p, m, p.Callees(m), store)
	require.NoError(t, err)

	again, err := fingerprint(p, m, p.Callees(m), store)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	list, _ := p.TypeInfo("List")
	list.Fields = append(list.Fields, model.Field{Name: "size", Type: model.Primitive("int")})
	after, err := fingerprint(p, m, p.Callees(m), store)
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "a field added to a parameter type changes the fingerprint")
}

func TestRun_Progress(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	report, err := New(twoWorkers(), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, total)
		seen = append(seen, done)
	})).Run(context.Background(), containerProgram(t))
	require.NoError(t, err)
	assert.Equal(t, report.Components, len(seen))
	assert.ElementsMatch(t, []int{1, 2}, seen)
}
