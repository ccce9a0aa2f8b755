package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryGuardFirstWithinWindow(t *testing.T) {
	g := NewMemoryGuard()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := g.First(ctx, "u1:o1", time.Minute); !ok {
		t.Fatal("first occurrence should pass")
	}
	if ok, _ := g.First(ctx, "u1:o1", time.Minute); ok {
		t.Error("repeat within window should be suppressed")
	}
	if ok, _ := g.First(ctx, "u1:o2", time.Minute); !ok {
		t.Error("a different key should pass")
	}

	now = now.Add(time.Minute)
	if ok, _ := g.First(ctx, "u1:o1", time.Minute); !ok {
		t.Error("occurrence after the window should pass again")
	}
}

func TestMemoryGuardZeroWindowNeverSuppresses(t *testing.T) {
	g := NewMemoryGuard()
	for i := 0; i < 3; i++ {
		if ok, _ := g.First(context.Background(), "k", 0); !ok {
			t.Fatalf("call %d suppressed with zero window", i+1)
		}
	}
	if len(g.entries) != 0 {
		t.Error("zero window should not record entries")
	}
}

func TestMemoryGuardConcurrentFirst(t *testing.T) {
	g := NewMemoryGuard()
	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := g.First(context.Background(), "same", time.Hour); ok {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()
	if passed.Load() != 1 {
		t.Errorf("%d callers passed, want exactly 1", passed.Load())
	}
}

func TestMemoryGuardCleanup(t *testing.T) {
	g := NewMemoryGuard()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	g.First(context.Background(), "expired", time.Second)
	g.First(context.Background(), "active", time.Hour)
	now = now.Add(time.Minute)
	g.Cleanup()

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries["expired"]; ok {
		t.Error("expired entry should have been cleaned up")
	}
	if _, ok := g.entries["active"]; !ok {
		t.Error("active entry should still exist")
	}
}

func TestMemoryGuardRelease(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	if ok, _ := g.First(ctx, "unlock:u1:o1", time.Hour); !ok {
		t.Fatal("first occurrence should pass")
	}
	if err := g.Release(ctx, "unlock:u1:o1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := g.First(ctx, "unlock:u1:o1", time.Hour); !ok {
		t.Error("a released key should pass again inside the window")
	}
	if err := g.Release(ctx, "never-claimed"); err != nil {
		t.Errorf("releasing an unknown key: %v", err)
	}
}
