// Package cache persists method summaries between runs. Entries are keyed
// by method name and carry the fingerprint they were computed under, so a
// changed method or callee summary simply misses.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/panbanda/linkage/pkg/summary"
)

// Cache provides file-based caching of encoded summaries.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached summary.
type Entry struct {
	Method    string          `json:"method"`
	Hash      string          `json:"hash"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New creates a new cache instance. A ttl of zero hours never expires.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes anything.
func (c *Cache) Enabled() bool { return c.enabled }

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GetWithHash retrieves a cached entry only if the hash matches and it has
// not expired.
func (c *Cache) GetWithHash(key, hash string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Method != key || entry.Hash != hash {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	return entry.Data, true
}

// SetWithHash stores data in the cache with a hash for validation. Data
// must be a JSON document.
func (c *Cache) SetWithHash(key, hash string, data []byte) error {
	if !c.enabled {
		return nil
	}

	entryData, err := json.Marshal(Entry{
		Method:    key,
		Hash:      hash,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	// write then rename so concurrent workers never read a torn entry
	path := c.keyPath(key)
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(entryData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Invalidate removes a cache entry.
func (c *Cache) Invalidate(key string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0755)
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, HashBytes([]byte(key))+".json")
}

// Memo adapts a Cache to the driver's summary memo.
type Memo struct {
	c *Cache
}

// NewMemo wraps c.
func NewMemo(c *Cache) *Memo { return &Memo{c: c} }

// Load returns the summary stored for method under fingerprint.
func (m *Memo) Load(method, fingerprint string) (*summary.MethodLinkedVariables, bool) {
	data, ok := m.c.GetWithHash(method, fingerprint)
	if !ok {
		return nil, false
	}
	var s summary.MethodLinkedVariables
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	if s.Method != method {
		return nil, false
	}
	return &s, true
}

// Save stores s for method under fingerprint.
func (m *Memo) Save(method, fingerprint string, s *summary.MethodLinkedVariables) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.c.SetWithHash(method, fingerprint, data)
}
