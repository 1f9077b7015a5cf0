// Package secrets resolves named credentials (the external code-hosting
// token, the model API key) and caches resolved values in-process for a
// bounded TTL. The cache is grounded on the teacher's
// internal/cache.DedupeCache — the same mutex-guarded-map-plus-prune
// shape, repurposed to hold resolved secret values instead of a
// seen/not-seen boolean.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fieldnote/transcript-router/internal/routererr"
)

// Adapter fetches a named credential. The only operation Get needs is
// the logical secret name; backends decide how to resolve it.
type Adapter interface {
	// Get resolves name to its current value, consulting the TTL cache
	// first. Returns routererr.ErrConfig if name cannot be resolved.
	Get(ctx context.Context, name string) (string, error)

	// Invalidate evicts name from the cache, forcing the next Get to
	// re-resolve it. Callers invoke this after an auth failure is
	// reported against a cached value.
	Invalidate(name string)
}

// Backend resolves a secret name to its raw value. EnvBackend is the only
// implementation shipped in this repo; a vault-style backend would
// implement the same seam.
type Backend interface {
	Resolve(ctx context.Context, name string) (string, bool, error)
}

const defaultTTL = 15 * time.Minute

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// CachingAdapter wraps a Backend with a TTL cache under a
// reader-preferring single-writer discipline (sync.RWMutex), matching
// spec §5's description of the Secret Adapter's concurrency model.
type CachingAdapter struct {
	backend Backend
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewCachingAdapter wraps backend with the default 15-minute TTL cache.
func NewCachingAdapter(backend Backend) *CachingAdapter {
	return &CachingAdapter{backend: backend, ttl: defaultTTL, cache: make(map[string]cacheEntry)}
}

// Get resolves name, serving from cache when the entry is still within
// its TTL.
func (a *CachingAdapter) Get(ctx context.Context, name string) (string, error) {
	if value, ok := a.lookup(name); ok {
		return value, nil
	}

	value, found, err := a.backend.Resolve(ctx, name)
	if err != nil {
		return "", fmt.Errorf("secrets: resolve %q: %w", name, err)
	}
	if !found || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("secrets: %q is unresolvable: %w", name, routererr.ErrConfig)
	}

	a.store(name, value)
	return value, nil
}

func (a *CachingAdapter) lookup(name string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entry, ok := a.cache[name]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (a *CachingAdapter) store(name, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prune()
	a.cache[name] = cacheEntry{value: value, expiresAt: time.Now().Add(a.ttl)}
}

// prune drops expired entries. Called with a.mu held for writing.
func (a *CachingAdapter) prune() {
	now := time.Now()
	for k, v := range a.cache {
		if now.After(v.expiresAt) {
			delete(a.cache, k)
		}
	}
}

// Invalidate evicts name from the cache.
func (a *CachingAdapter) Invalidate(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cache, name)
}

// EnvBackend resolves secret names from environment variables. It is the
// only backend this repository ships — no vault SDK appears anywhere in
// the reference corpus for this concern, so this is a standard-library
// implementation by necessity, not preference (see DESIGN.md).
type EnvBackend struct{}

func (EnvBackend) Resolve(_ context.Context, name string) (string, bool, error) {
	value, ok := os.LookupEnv(name)
	return value, ok, nil
}
