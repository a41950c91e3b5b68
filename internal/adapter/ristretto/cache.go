// Package ristretto implements the in-process L1 query result cache on dgraph-io/ristretto.
package ristretto

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a size-bounded in-process cache of NetBox responses.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// Stats summarizes cache effectiveness for the health endpoint.
type Stats struct {
	Hits   uint64  `json:"hits"`
	Misses uint64  `json:"misses"`
	Ratio  float64 `json:"ratio"`
}

// New creates a cache holding at most maxSizeMB megabytes of response bodies.
func New(maxSizeMB int64) (*Cache, error) {
	if maxSizeMB <= 0 {
		return nil, errors.New("ristretto: max size must be positive")
	}
	maxCost := maxSizeMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Responses average a few KiB; track ~10x the expected item count.
		NumCounters: maxCost / 4096 * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get returns a cached response body.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set admits value with the given TTL. Admission is asynchronous and may be
// refused under pressure; a refused entry is simply a later miss.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete removes a cached response.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until pending Sets have been applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Stats reports hit and miss counters.
func (c *Cache) Stats() Stats {
	m := c.c.Metrics
	return Stats{Hits: m.Hits(), Misses: m.Misses(), Ratio: m.Ratio()}
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
