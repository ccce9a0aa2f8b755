// Package debounce suppresses repeat notifications for the same key within a
// time window, e.g. one offer_unlock event per (user, offer) per visit.
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard decides whether an occurrence of key is the first within window
type Guard interface {
	// First reports true exactly once per key per window. A non-positive
	// window disables suppression and always reports true.
	First(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release forgets key so the next First reports true again
	Release(ctx context.Context, key string) error
}

// MemoryGuard is a process-local Guard
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryGuard creates an empty in-process guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// First implements Guard
func (g *MemoryGuard) First(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, ok := g.entries[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.entries[key] = now.Add(window)
	return true, nil
}

// Release implements Guard
func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

// Cleanup removes expired entries
func (g *MemoryGuard) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, expires := range g.entries {
		if !now.Before(expires) {
			delete(g.entries, key)
		}
	}
}

// RunCleanup calls Cleanup every interval until ctx is done
func (g *MemoryGuard) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Cleanup()
		}
	}
}

// RedisGuard shares suppression state across API replicas with SET NX PX
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisGuard creates a guard storing keys under prefix
func NewRedisGuard(client redis.UniversalClient, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

// First implements Guard
func (g *RedisGuard) First(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	return g.client.SetNX(ctx, g.prefix+key, 1, window).Result()
}

// Release implements Guard
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.prefix+key).Err()
}
