package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// AnswerCache memoizes oracle decisions keyed by the normalized input pair.
// Keys are order-independent: asking about (A, B) and (B, A) hits the same
// entry, which is what makes warm re-runs idempotent. The cache can be
// persisted to disk so a restarted run reuses every prior answer.
type AnswerCache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Decision
}

// NewAnswerCache creates a cache, loading prior entries from path when it is
// non-empty and the file exists. A corrupt cache file is discarded, not fatal.
func NewAnswerCache(path string) *AnswerCache {
	cache := &AnswerCache{
		path:    path,
		entries: make(map[string]Decision),
	}
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var stored map[string]Decision
			if err := json.Unmarshal(data, &stored); err == nil {
				cache.entries = stored
			}
		}
	}
	return cache
}

// Key derives the order-independent cache key for a query: the question kind
// plus a hash over the sorted pair of candidate fingerprints.
func (cache *AnswerCache) Key(q Query) string {
	a := candidateFingerprint(q.A)
	b := candidateFingerprint(q.B)
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + "\x00" + b))
	return string(q.Kind) + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached decision for a query, if present.
func (cache *AnswerCache) Get(q Query) (Decision, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	d, ok := cache.entries[cache.Key(q)]
	return d, ok
}

// Put stores a decision. Declined answers are cached too: a run should not
// re-ask a question the oracle already refused.
func (cache *AnswerCache) Put(q Query, d Decision) {
	cache.mu.Lock()
	cache.entries[cache.Key(q)] = d
	cache.mu.Unlock()
}

// Len returns the number of cached answers.
func (cache *AnswerCache) Len() int {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return len(cache.entries)
}

// Save persists the cache to its path. A cache without a path saves nothing.
func (cache *AnswerCache) Save() error {
	if cache.path == "" {
		return nil
	}
	cache.mu.RLock()
	data, err := json.MarshalIndent(cache.entries, "", "  ")
	cache.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal answer cache: %w", err)
	}
	if err := os.WriteFile(cache.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write answer cache %s: %w", cache.path, err)
	}
	return nil
}

// candidateFingerprint normalizes the fields that identify a candidate for
// caching purposes.
func candidateFingerprint(c Candidate) string {
	fields := []string{
		strings.ToLower(strings.TrimSpace(c.Title)),
		strings.ToLower(strings.TrimSpace(c.Jurisdiction)),
		strings.ToLower(strings.TrimSpace(c.DocumentType)),
		strings.TrimSpace(c.Date),
		strings.ToLower(strings.TrimSpace(c.Snippet)),
	}
	return strings.Join(fields, "\x1f")
}

// CachedDecider wraps a Decider with an AnswerCache.
type CachedDecider struct {
	inner Decider
	cache *AnswerCache
}

// NewCachedDecider wraps inner so every answer, including declines, is served
// from the cache on repeat queries.
func NewCachedDecider(inner Decider, cache *AnswerCache) *CachedDecider {
	return &CachedDecider{inner: inner, cache: cache}
}

// Decide serves from the cache when possible, otherwise delegates and stores
// the result.
func (d *CachedDecider) Decide(ctx context.Context, q Query) (Decision, error) {
	if decision, ok := d.cache.Get(q); ok {
		return decision, nil
	}
	decision, err := d.inner.Decide(ctx, q)
	if err != nil {
		return decision, err
	}
	d.cache.Put(q, decision)
	return decision, nil
}
