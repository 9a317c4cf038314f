package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Yiling-J/theine-go"

	"github.com/roach88/dqb/internal/schema"
)

var _ schema.Cache = (*Memory)(nil)

// DefaultMaxCost bounds a Memory cache to 64 MiB of snapshot bytes.
const DefaultMaxCost = 64 << 20

// Memory is an in-process snapshot cache. Entries cost their size in bytes.
type Memory struct {
	cache *theine.Cache[string, []byte]
}

// NewMemory creates a Memory cache holding at most maxCost bytes.
// A non-positive maxCost means DefaultMaxCost.
func NewMemory(maxCost int64) (*Memory, error) {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	built, err := theine.NewBuilder[string, []byte](maxCost).Build()
	if err != nil {
		return nil, fmt.Errorf("build memory cache: %w", err)
	}
	return &Memory{cache: built}, nil
}

// Get returns the snapshot stored under name.
func (m *Memory) Get(_ context.Context, name string) ([]byte, bool, error) {
	data, ok := m.cache.Get(name)
	return data, ok, nil
}

// Save stores data under name. A non-positive ttl never expires.
// Entries larger than the whole cache are rejected.
func (m *Memory) Save(_ context.Context, name string, data []byte, ttl time.Duration) error {
	cost := int64(len(data))
	var ok bool
	if ttl <= 0 {
		ok = m.cache.Set(name, data, cost)
	} else {
		ok = m.cache.SetWithTTL(name, data, cost, ttl)
	}
	if !ok {
		return fmt.Errorf("memory cache rejected %q (%d bytes)", name, cost)
	}
	return nil
}

// Delete removes name.
func (m *Memory) Delete(_ context.Context, name string) error {
	m.cache.Delete(name)
	return nil
}

// Close releases the cache's background resources.
func (m *Memory) Close() {
	m.cache.Close()
}
