package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache[string, int]()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", 10, time.Minute)
	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Fatalf("Get(a) = %d, %v; want 10, true", v, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("short", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatal("expected expired entry to miss")
	}

	c.Set("forever", 2, 0)
	if v, ok := c.Get("forever"); !ok || v != 2 {
		t.Fatalf("Get(forever) = %d, %v; want 2, true", v, ok)
	}
}

func TestTTLCachePurge(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after purge")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected miss after purge")
	}
}

func TestTTLCacheNilReceiver(t *testing.T) {
	var c *TTLCache[string, int]

	c.Set("a", 1, time.Minute)
	c.Delete("a")
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatal("nil cache should always miss")
	}
}
