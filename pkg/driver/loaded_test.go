package driver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/linkage/pkg/loader"
	"github.com/panbanda/linkage/pkg/summary"
)

func TestRun_LoadedDocument(t *testing.T) {
	p, err := loader.Load(filepath.Join("..", "loader", "testdata", "containers.json"))
	require.NoError(t, err)

	rep, err := New(twoWorkers()).Run(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, rep.HasErrors(), "%v", rep.Diagnostics)
	assert.Empty(t, rep.Unresolved)

	for _, name := range p.MethodNames() {
		_, status := rep.Summaries.Summary(name)
		assert.Equal(t, summary.Available, status, name)
	}

	share, ok := rep.Summary("X.share")
	require.True(t, ok)
	assert.Equal(t, "list1: list1 0-4-0 list2, list1 0M-4-*M m; list2: list2 0M-4-*M m; modified: list1, list2", share.String())

	pick, ok := rep.Summary("X.pick")
	require.True(t, ok)
	to, ok := pick.Return.To("ms")
	require.True(t, ok, pick.String())
	assert.Equal(t, "*M-4-0M", to.LV.String())

	setI, ok := rep.Summary("C.setI")
	require.True(t, ok)
	assert.True(t, setI.IsModified("this"), setI.String())
	assert.True(t, setI.IsModified("this.i"), setI.String())
}
