package cache

import (
	"testing"
	"time"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// b is now least recently used.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	c.Set("a", "updated")
	if v, _ := c.Get("a"); v != "updated" {
		t.Errorf("Get(a) = %q after overwrite", v)
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Evictions != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestLRU_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[int](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	now = now.Add(500 * time.Millisecond)
	c.Set("z", 3)

	now = now.Add(600 * time.Millisecond)
	if _, ok := c.Get("x"); ok {
		t.Error("x should be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1 (y)", removed)
	}
	if v, ok := c.Get("z"); !ok || v != 3 {
		t.Errorf("z should survive: %v %v", v, ok)
	}
}

func TestLRU_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[int](1, 0)
	c.now = func() time.Time { return now }
	c.Set("k", 7)
	now = now.Add(24 * time.Hour)
	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("Get(k) = %v, %v", v, ok)
	}
	if c.CleanExpired() != 0 {
		t.Fatal("zero ttl entry cleaned")
	}
}

func TestLRU_DeletePurge(t *testing.T) {
	c := NewLRU[int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Len() != 1 {
		t.Fatalf("capacity 0 should hold one entry, got %d", c.Len())
	}
	c.Delete("b")
	c.Delete("missing")
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after delete", c.Len())
	}

	c.Set("a", 1)
	c.Purge()
	if _, ok := c.Get("a"); ok || c.Len() != 0 {
		t.Fatal("Purge should drop all entries")
	}
	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatal("cache unusable after purge")
	}
}

func TestSweeper(t *testing.T) {
	s := NewSweeper(nil)
	s.Stop() // never started

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[int](4, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	s.Register(c)

	now = now.Add(2 * time.Second)
	if n := s.Sweep(); n != 2 {
		t.Fatalf("Sweep() = %d, want 2", n)
	}

	s.Start(time.Hour)
	s.Start(time.Hour)
	s.Stop()
	s.Stop()
}
