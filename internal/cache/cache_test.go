// File path: internal/cache/cache_test.go
package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	store := New(time.Minute, 8)
	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected miss on empty store")
	}
	store.Set("k", 42)
	value, ok := store.Get("k")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if value.(int) != 42 {
		t.Fatalf("unexpected value: %v", value)
	}
}

func TestExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	store := New(time.Minute, 8, WithClock(func() time.Time { return current }))
	store.Set("k", "v")
	if _, ok := store.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	current = current.Add(time.Minute + time.Second)
	if _, ok := store.Get("k"); ok {
		t.Fatal("expected miss after expiry")
	}
	if store.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", store.Len())
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	current := time.Unix(1000, 0)
	store := New(time.Hour, 4, WithClock(func() time.Time { return current }))
	for i := 0; i < 6; i++ {
		store.Set(fmt.Sprintf("k%d", i), i)
		current = current.Add(time.Second)
	}
	if store.Len() > 4 {
		t.Fatalf("capacity bound exceeded, len=%d", store.Len())
	}
	if _, ok := store.Get("k0"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := store.Get("k1"); ok {
		t.Fatal("second-oldest entry should have been evicted")
	}
	if _, ok := store.Get("k5"); !ok {
		t.Fatal("newest entry should survive eviction")
	}
}

func TestPurge(t *testing.T) {
	store := New(time.Minute, 8)
	store.Set("a", 1)
	store.Set("b", 2)
	store.Purge()
	if store.Len() != 0 {
		t.Fatalf("purge left %d entries", store.Len())
	}
}

func TestNilStoreSafe(t *testing.T) {
	var store *Store
	if _, ok := store.Get("k"); ok {
		t.Fatal("nil store should miss")
	}
	store.Set("k", 1)
	if store.Len() != 0 {
		t.Fatal("nil store should report zero length")
	}
}
