// Package cache holds recently aggregated search results for a short time so
// that repeated queries skip the strategy fan-out.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// Cache stores aggregated results under a query/scope key.
type Cache interface {
	Get(key string) ([]domain.SearchResult, bool)
	Put(key string, results []domain.SearchResult, ttl time.Duration)
}

// Entry is one cached result set.
type Entry struct {
	Key       string
	Results   []domain.SearchResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config tunes a TTLCache.
type Config struct {
	// MaxEntries caps the number of live entries; zero means unbounded.
	MaxEntries int
	// MaxSweep bounds how many entries one Put inspects for expiry.
	MaxSweep int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// DefaultConfig returns the production cache settings.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1000,
		MaxSweep:   64,
		Now:        time.Now,
	}
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// TTLCache is an in-memory Cache with per-entry expiry. Expired entries are
// evicted lazily on read and by a bounded sweep on write.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	cfg     Config

	hits   atomic.Int64
	misses atomic.Int64
}

// NewTTLCache creates a TTLCache with the given config.
func NewTTLCache(cfg Config) *TTLCache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxSweep <= 0 {
		cfg.MaxSweep = DefaultConfig().MaxSweep
	}
	return &TTLCache{
		entries: make(map[string]*Entry),
		cfg:     cfg,
	}
}

// Get returns a copy of the cached results when the entry is still live.
func (c *TTLCache) Get(key string) ([]domain.SearchResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if !c.cfg.Now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return copyResults(entry.Results), true
}

// Put stores results for ttl. Empty result sets are never cached so that a
// transient failure does not suppress the next attempt.
func (c *TTLCache) Put(key string, results []domain.SearchResult, ttl time.Duration) {
	if len(results) == 0 || ttl <= 0 {
		return
	}

	now := c.cfg.Now()
	entry := &Entry{
		Key:       key,
		Results:   copyResults(results),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(now)
	if c.cfg.MaxEntries > 0 {
		if _, exists := c.entries[key]; !exists {
			for len(c.entries) >= c.cfg.MaxEntries {
				c.evictOldestLocked()
			}
		}
	}
	c.entries[key] = entry
}

// Purge drops every entry.
func (c *TTLCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit/miss counters.
func (c *TTLCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

func (c *TTLCache) sweepLocked(now time.Time) {
	inspected := 0
	for key, entry := range c.entries {
		if inspected >= c.cfg.MaxSweep {
			return
		}
		inspected++
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *TTLCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.CreatedAt
		}
	}
	if oldestKey == "" {
		return
	}
	delete(c.entries, oldestKey)
}

func copyResults(in []domain.SearchResult) []domain.SearchResult {
	out := make([]domain.SearchResult, len(in))
	copy(out, in)
	return out
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(string) ([]domain.SearchResult, bool)          { return nil, false }
func (Noop) Put(string, []domain.SearchResult, time.Duration) {}

// Key derives the cache key from the query text and the strategy scope.
func Key(query, scope string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ") + "|" + scope
}
