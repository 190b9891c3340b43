package rangecache

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrRejected is returned when the in-memory cache refuses an entry.
var ErrRejected = errors.New("cache entry rejected")

// Memory is an in-process cache backed by ristretto.
type Memory struct {
	cache *ristretto.Cache[string, []netip.Prefix]
}

// NewMemory creates an in-process cache sized for a handful of range lists.
func NewMemory() (*Memory, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []netip.Prefix]{
		NumCounters: 1e3,
		MaxCost:     1 << 16,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &Memory{cache: cache}, nil
}

// Get returns a copy of the cached list for key.
func (m *Memory) Get(_ context.Context, key string) ([]netip.Prefix, bool, error) {
	prefixes, ok := m.cache.Get(key)
	if !ok || len(prefixes) == 0 {
		return nil, false, nil
	}
	return clonePrefixes(prefixes), true, nil
}

// Set stores prefixes under key for ttl. A zero ttl never expires.
func (m *Memory) Set(_ context.Context, key string, prefixes []netip.Prefix, ttl time.Duration) error {
	if !m.cache.SetWithTTL(key, clonePrefixes(prefixes), int64(len(prefixes))+1, ttl) {
		return fmt.Errorf("%w: %s", ErrRejected, key)
	}
	m.cache.Wait()
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Del(key)
	return nil
}

// Metrics exposes ristretto's hit/miss statistics.
func (m *Memory) Metrics() *ristretto.Metrics {
	return m.cache.Metrics
}

// Close stops the cache's background goroutines.
func (m *Memory) Close() {
	m.cache.Close()
}

func clonePrefixes(prefixes []netip.Prefix) []netip.Prefix {
	if prefixes == nil {
		return nil
	}
	cloned := make([]netip.Prefix, len(prefixes))
	copy(cloned, prefixes)
	return cloned
}
