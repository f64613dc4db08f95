// Package override implements the review/override collaborator: a registry
// of manual decisions recorded by reviewers. An override is authoritative:
// the engine skips both its heuristics and the oracle for that pair. Once
// recorded, an override is permanent until explicitly removed; a later
// automatic pass never supersedes it.
package override

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coolbeans/lexchain/pkg/oracle"
)

// Entry records one manual decision for a candidate pair.
type Entry struct {
	Kind    oracle.QuestionKind `json:"kind"`
	KeyA    string              `json:"key_a"`
	KeyB    string              `json:"key_b"`
	Answer  oracle.Answer       `json:"answer"`
	Note    string              `json:"note,omitempty"`
	AddedAt time.Time           `json:"added_at"`
}

// Registry is a persistent set of overrides, keyed order-independently.
type Registry struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// Open loads the registry at path, creating an empty one when the file does
// not exist.
func Open(path string) (*Registry, error) {
	registry := &Registry{
		path:    path,
		entries: make(map[string]Entry),
	}
	if path == "" {
		return registry, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return registry, nil
		}
		return nil, fmt.Errorf("failed to read override registry %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse override registry %s: %w", path, err)
	}
	for _, entry := range entries {
		registry.entries[pairKey(entry.Kind, entry.KeyA, entry.KeyB)] = entry
	}
	return registry, nil
}

// Add records an override and persists the registry.
func (registry *Registry) Add(entry Entry) error {
	entry.AddedAt = time.Now().UTC()
	registry.mu.Lock()
	registry.entries[pairKey(entry.Kind, entry.KeyA, entry.KeyB)] = entry
	registry.mu.Unlock()
	return registry.save()
}

// Remove deletes an override; removing a missing entry is a no-op.
func (registry *Registry) Remove(kind oracle.QuestionKind, keyA, keyB string) error {
	registry.mu.Lock()
	delete(registry.entries, pairKey(kind, keyA, keyB))
	registry.mu.Unlock()
	return registry.save()
}

// Lookup returns the recorded answer for a pair, if any. Lookup is
// order-independent in the pair keys.
func (registry *Registry) Lookup(kind oracle.QuestionKind, keyA, keyB string) (oracle.Answer, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	entry, ok := registry.entries[pairKey(kind, keyA, keyB)]
	if !ok {
		return "", false
	}
	return entry.Answer, true
}

// List returns every override, for audit output.
func (registry *Registry) List() []Entry {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	entries := make([]Entry, 0, len(registry.entries))
	for _, entry := range registry.entries {
		entries = append(entries, entry)
	}
	return entries
}

func (registry *Registry) save() error {
	if registry.path == "" {
		return nil
	}
	registry.mu.RLock()
	entries := make([]Entry, 0, len(registry.entries))
	for _, entry := range registry.entries {
		entries = append(entries, entry)
	}
	registry.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal override registry: %w", err)
	}
	if err := os.WriteFile(registry.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write override registry %s: %w", registry.path, err)
	}
	return nil
}

// pairKey normalizes and sorts the pair so (A, B) and (B, A) share one entry.
func pairKey(kind oracle.QuestionKind, a, b string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return string(kind) + "|" + a + "|" + b
}

// Decider wraps an inner decision strategy, consulting the registry first.
// A recorded override answers immediately without touching the oracle.
type Decider struct {
	registry *Registry
	inner    oracle.Decider
}

// NewDecider builds the override-aware strategy.
func NewDecider(registry *Registry, inner oracle.Decider) *Decider {
	return &Decider{registry: registry, inner: inner}
}

// Decide answers from the registry when an override exists, keyed on the
// candidates' titles; otherwise it delegates to the inner strategy.
func (d *Decider) Decide(ctx context.Context, q oracle.Query) (oracle.Decision, error) {
	if answer, ok := d.registry.Lookup(q.Kind, q.A.Title, q.B.Title); ok {
		return oracle.Decision{Answer: answer, Confidence: 1.0, Reason: "manual override"}, nil
	}
	return d.inner.Decide(ctx, q)
}
