package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c := newCache(t)
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}

	c, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache", "dir")

	if _, err := New(cacheDir, 24, true); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create cache directory")
	}
}

func TestSetAndGetWithHash(t *testing.T) {
	c := newCache(t)
	data := []byte(`{"x":1}`)

	if err := c.SetWithHash("X.f", "h1", data); err != nil {
		t.Fatalf("SetWithHash() error: %v", err)
	}

	got, ok := c.GetWithHash("X.f", "h1")
	if !ok {
		t.Fatal("GetWithHash() returned false for matching hash")
	}
	if string(got) != string(data) {
		t.Errorf("GetWithHash() = %s, want %s", got, data)
	}

	if _, ok := c.GetWithHash("X.f", "h2"); ok {
		t.Error("GetWithHash() should miss on a different hash")
	}
	if _, ok := c.GetWithHash("X.g", "h1"); ok {
		t.Error("GetWithHash() should miss on a different key")
	}
}

func TestSetWithHashOverwrites(t *testing.T) {
	c := newCache(t)
	if err := c.SetWithHash("X.f", "h1", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	if err := c.SetWithHash("X.f", "h2", []byte(`2`)); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.GetWithHash("X.f", "h1"); ok {
		t.Error("old hash should no longer match")
	}
	if got, ok := c.GetWithHash("X.f", "h2"); !ok || string(got) != "2" {
		t.Errorf("GetWithHash() = %s, %v; want 2, true", got, ok)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("cache holds %d files, want 1", len(entries))
	}
}

func TestExpiredEntry(t *testing.T) {
	c := newCache(t)
	entry, _ := json.Marshal(Entry{
		Method:    "X.f",
		Hash:      "h",
		Timestamp: time.Now().Add(-48 * time.Hour),
		Data:      json.RawMessage(`1`),
	})
	path := c.keyPath("X.f")
	if err := os.WriteFile(path, entry, 0600); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.GetWithHash("X.f", "h"); ok {
		t.Error("GetWithHash() should miss an expired entry")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c, err := New(t.TempDir(), 0, true)
	if err != nil {
		t.Fatal(err)
	}
	entry, _ := json.Marshal(Entry{
		Method:    "X.f",
		Hash:      "h",
		Timestamp: time.Now().Add(-1000 * time.Hour),
		Data:      json.RawMessage(`1`),
	})
	if err := os.WriteFile(c.keyPath("X.f"), entry, 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.GetWithHash("X.f", "h"); !ok {
		t.Error("GetWithHash() should hit when ttl is zero")
	}
}

func TestCorruptEntry(t *testing.T) {
	c := newCache(t)
	if err := os.WriteFile(c.keyPath("X.f"), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.GetWithHash("X.f", "h"); ok {
		t.Error("GetWithHash() should miss a corrupt entry")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := newCache(t)
	for _, k := range []string{"X.f", "X.g"} {
		if err := c.SetWithHash(k, "h", []byte(`1`)); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Invalidate("X.f"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok := c.GetWithHash("X.f", "h"); ok {
		t.Error("invalidated entry should miss")
	}
	if err := c.Invalidate("X.f"); err != nil {
		t.Errorf("Invalidate() of a missing entry = %v, want nil", err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok := c.GetWithHash("X.g", "h"); ok {
		t.Error("cleared entry should miss")
	}
	if err := c.SetWithHash("X.g", "h", []byte(`1`)); err != nil {
		t.Errorf("SetWithHash() after Clear() = %v", err)
	}
}

func TestDisabledCache(t *testing.T) {
	c, _ := New("", 0, false)

	if err := c.SetWithHash("X.f", "h", []byte(`1`)); err != nil {
		t.Errorf("SetWithHash() on disabled cache = %v", err)
	}
	if _, ok := c.GetWithHash("X.f", "h"); ok {
		t.Error("disabled cache should never hit")
	}
	if err := c.Invalidate("X.f"); err != nil {
		t.Errorf("Invalidate() on disabled cache = %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear() on disabled cache = %v", err)
	}
}

func TestHashBytes(t *testing.T) {
	a := HashBytes([]byte("a"))
	if len(a) != 64 {
		t.Errorf("HashBytes() length = %d, want 64", len(a))
	}
	if a != HashBytes([]byte("a")) {
		t.Error("HashBytes() should be deterministic")
	}
	if a == HashBytes([]byte("b")) {
		t.Error("HashBytes() should differ for different input")
	}
}

func fluentSummary() *summary.MethodLinkedVariables {
	x := model.Class("X")
	i := model.Parameter{Method: "X.set", Name: "i", VarType: model.Primitive("int")}
	rv := model.ReturnVariable{Method: "X.set", VarType: x}
	this := model.This{VarType: x}
	return summary.New("X.set",
		[]vardata.Links{vardata.Empty(i)},
		vardata.NewBuilder(rv).Add(rv, this, link.SA).Build(),
		[]model.Variable{this})
}

func TestMemo_RoundTrip(t *testing.T) {
	m := NewMemo(newCache(t))
	want := fluentSummary()

	if err := m.Save("X.set", "fp", want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, ok := m.Load("X.set", "fp")
	if !ok {
		t.Fatal("Load() missed a saved summary")
	}
	if !got.Equal(want) {
		t.Errorf("Load() = %s, want %s", got, want)
	}

	if _, ok := m.Load("X.set", "other"); ok {
		t.Error("Load() should miss on a stale fingerprint")
	}
}

func TestMemo_RejectsForeignSummary(t *testing.T) {
	c := newCache(t)
	data, err := json.Marshal(fluentSummary())
	if err != nil {
		t.Fatal(err)
	}
	// an entry filed under one method but holding another's summary
	if err := c.SetWithHash("X.other", "fp", data); err != nil {
		t.Fatal(err)
	}

	if _, ok := NewMemo(c).Load("X.other", "fp"); ok {
		t.Error("Load() should reject a summary of a different method")
	}
}
