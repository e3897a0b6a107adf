package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", 42)

	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected a hit")
	}
	if v.(int) != 42 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected a miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected the entry to have expired")
	}
	if s := c.Stats(); s.Keys != 0 {
		t.Errorf("expired entry still counted: %d keys", s.Keys)
	}
}

func TestCacheFlush(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")

	c.Flush()

	if _, ok := c.Get("a"); ok {
		t.Fatal("flush did not drop entries")
	}
	s := c.Stats()
	if s.Keys != 0 {
		t.Errorf("keys = %d after flush, want 0", s.Keys)
	}
	if s.Hits != 1 {
		t.Errorf("hits = %d, want counters preserved across flush", s.Hits)
	}
}

func TestCacheStats(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Keys != 1 || s.Hits != 2 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 1 key, 2 hits, 1 miss", s)
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c := New(0)
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}
