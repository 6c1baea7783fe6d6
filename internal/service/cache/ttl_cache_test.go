package cache

import (
	"testing"
	"time"
)

func TestGetFreshThenStale(t *testing.T) {
	now := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	c.Set("k", 42, time.Minute)

	v, fresh, ok := c.Get("k")
	if !ok || !fresh {
		t.Fatalf("expected fresh hit, got ok=%v fresh=%v", ok, fresh)
	}
	if v.(int) != 42 {
		t.Fatalf("value = %v, want 42", v)
	}

	now = now.Add(2 * time.Minute)
	v, fresh, ok = c.Get("k")
	if !ok || fresh {
		t.Fatalf("expected stale hit, got ok=%v fresh=%v", ok, fresh)
	}
	if v.(int) != 42 {
		t.Fatalf("stale value = %v, want 42", v)
	}
}

func TestGetMiss(t *testing.T) {
	c := NewTTLCache()
	if _, _, ok := c.Get("absent"); ok {
		t.Fatalf("expected miss")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	c.Set("k", "v", 0)
	now = now.Add(24 * time.Hour)
	if _, fresh, ok := c.Get("k"); !ok || !fresh {
		t.Fatalf("zero-ttl entry expired, ok=%v fresh=%v", ok, fresh)
	}
}

func TestInvalidate(t *testing.T) {
	c := NewTTLCache()
	c.Set("k", 1, time.Minute)
	c.Invalidate("k")
	if _, _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestPurgeDropsOnlyLongStale(t *testing.T) {
	now := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	c.Set("old", 1, time.Minute)
	now = now.Add(30 * time.Minute)
	c.Set("recent", 2, time.Minute)
	now = now.Add(2 * time.Minute)

	if n := c.Purge(10 * time.Minute); n != 1 {
		t.Fatalf("purged %d entries, want 1", n)
	}
	if _, _, ok := c.Get("old"); ok {
		t.Fatalf("long-stale entry survived purge")
	}
	if _, fresh, ok := c.Get("recent"); !ok || fresh {
		t.Fatalf("recently stale entry should remain, ok=%v fresh=%v", ok, fresh)
	}
}

func TestStats(t *testing.T) {
	now := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	now = now.Add(2 * time.Minute)
	c.Set("b", 2, time.Minute)

	s := c.Stats()
	if s.Total != 2 || s.Fresh != 1 || s.Stale != 1 {
		t.Fatalf("stats = %+v, want total=2 fresh=1 stale=1", s)
	}
}
