// Package contextcache is a bounded, time-expiring cache in front of the
// note-search capability. It deduplicates repeated lookups within one
// analysis burst and is safe for concurrent runs querying overlapping
// entity sets.
//
// InvalidateAll is part of the public contract: the owning system must
// call it whenever the underlying note index is rebuilt.
package contextcache

import (
	"container/list"
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mazdak/triaged/internal/adapters/notesearch"
	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultTTL        = 60 * time.Second
	defaultMaxEntries = 100
)

// entry is one cached search result with its expiry.
type entry struct {
	key       string
	matches   []notesearch.Match
	expiresAt time.Time
	elem      *list.Element
}

// Cache memoizes note-search results keyed by (entity set, result budget).
type Cache struct {
	searcher notesearch.Searcher

	mu         sync.Mutex
	entries    map[string]*entry
	lru        *list.List // front = most recently used
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a cache in front of the given searcher.
func New(searcher notesearch.Searcher, opts ...Option) *Cache {
	c := &Cache{
		searcher:   searcher,
		entries:    make(map[string]*entry),
		lru:        list.New(),
		ttl:        defaultTTL,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrSearch returns the cached matches for the entity set and budget, or
// performs the search on a miss and stores the result.
func (c *Cache) GetOrSearch(ctx context.Context, entities []model.Entity, budget int) ([]notesearch.Match, error) {
	key := cacheKey(entities, budget)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.expiresAt) {
			c.lru.MoveToFront(e.elem)
			matches := append([]notesearch.Match(nil), e.matches...)
			c.mu.Unlock()
			metrics.RecordContextCacheHit()
			return matches, nil
		}
		c.removeLocked(e)
	}
	c.mu.Unlock()
	metrics.RecordContextCacheMiss()

	matches, err := c.searcher.Search(ctx, entities, budget)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another run may have populated the key while the search ran; the
	// newer result wins either way.
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
	e := &entry{
		key:       key,
		matches:   append([]notesearch.Match(nil), matches...),
		expiresAt: c.now().Add(c.ttl),
	}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	for len(c.entries) > c.maxEntries {
		c.evictLocked()
	}
	metrics.UpdateContextCacheSize(len(c.entries))
	return append([]notesearch.Match(nil), matches...), nil
}

// InvalidateAll drops every entry. Called by the index rebuild notifier;
// the next lookup for any key is a miss.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lru.Init()
	metrics.RecordContextCacheInvalidation()
	metrics.UpdateContextCacheSize(0)
}

// Len returns the current number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops expired entries; called periodically by the owning service.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(e)
			removed++
		}
	}
	metrics.UpdateContextCacheSize(len(c.entries))
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is canceled.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// removeLocked drops one entry. Caller holds c.mu.
func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	c.lru.Remove(e.elem)
}

// evictLocked drops the least recently used entry. Caller holds c.mu.
func (c *Cache) evictLocked() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	c.removeLocked(back.Value.(*entry))
	metrics.RecordContextCacheEviction()
}

// cacheKey builds a stable key from the sorted entity keys and the budget.
func cacheKey(entities []model.Entity, budget int) string {
	keys := make([]string, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.Key())
	}
	sort.Strings(keys)
	return strings.Join(keys, ",") + "|" + strconv.Itoa(budget)
}
