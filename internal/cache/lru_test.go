package cache

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	applog "expensetracker/internal/log"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("All", 1)
	c.Set("Food", 2)
	c.Get("All")
	c.Set("Transport", 3)

	if _, ok := c.Get("Food"); ok {
		t.Fatalf("expected Food to be evicted")
	}
	if v, ok := c.Get("All"); !ok || v != 1 {
		t.Fatalf("expected All to survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUOverwriteKeepsSize(t *testing.T) {
	c := NewLRUCache[string](3, 0)
	c.Set("All", "a")
	c.Set("All", "b")
	if v, _ := c.Get("All"); v != "b" || c.Size() != 1 {
		t.Fatalf("expected single updated entry, got %q size %d", v, c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("All", 1)
	c.Set("Food", 2)
	now = now.Add(2 * time.Minute)
	c.Set("Bills", 3)

	if _, ok := c.Get("All"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry left to clean, got %d", n)
	}
	if _, ok := c.Get("Bills"); !ok {
		t.Fatalf("fresh entry should survive")
	}
}

func TestLRUPurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](4, 0)
	c.Set("All", 1)
	c.Set("Food", 2)
	c.Delete("Food")
	if c.Size() != 1 {
		t.Fatalf("expected size 1 after delete, got %d", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", c.Size())
	}
	c.Set("Health", 7)
	if v, ok := c.Get("Health"); !ok || v != 7 {
		t.Fatalf("cache unusable after purge")
	}
}

func TestJanitorSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewLRUCache[int](4, time.Second)
	a.now = func() time.Time { return now }
	b := NewLRUCache[int](4, time.Second)
	b.now = func() time.Time { return now }

	a.Set("x", 1)
	b.Set("y", 2)
	b.Set("z", 3)
	now = now.Add(time.Hour)

	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &bytes.Buffer{}})
	if n := NewJanitor(logger, a, b).Sweep(); n != 3 {
		t.Fatalf("expected 3 entries swept, got %d", n)
	}
}
