package statecache

import (
	"errors"
	"sync"
	"testing"
)

func TestGetMiss(t *testing.T) {
	c := New[string, int](4, nil)

	if _, ok := c.Get("absent"); ok {
		t.Error("Get on empty cache should miss")
	}
	if got := c.Stats().Misses; got != 1 {
		t.Errorf("Misses = %d, want 1", got)
	}
}

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](4, nil)

	calls := 0
	create := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrCreate("key", create)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}

	// Second call must hit the cache.
	v, err = c.GetOrCreate("key", create)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestGetOrCreateError(t *testing.T) {
	c := New[string, int](4, nil)
	errBoom := errors.New("boom")

	if _, err := c.GetOrCreate("key", func() (int, error) {
		return 0, errBoom
	}); !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want %v", err, errBoom)
	}

	// A failed create must not leave an entry behind.
	if c.Len() != 0 {
		t.Errorf("Len = %d after failed create, want 0", c.Len())
	}
}

func TestEviction(t *testing.T) {
	var evicted []int
	c := New[int, int](2, func(v int) {
		evicted = append(evicted, v)
	})

	for i := 0; i < 3; i++ {
		i := i
		if _, err := c.GetOrCreate(i, func() (int, error) { return i * 10, nil }); err != nil {
			t.Fatalf("GetOrCreate(%d) failed: %v", i, err)
		}
	}

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if len(evicted) != 1 || evicted[0] != 0 {
		t.Errorf("evicted = %v, want [0] (oldest entry)", evicted)
	}
	// Key 0 was evicted, keys 1 and 2 remain.
	if _, ok := c.Get(0); ok {
		t.Error("evicted key 0 still present")
	}
	if _, ok := c.Get(2); !ok {
		t.Error("key 2 missing")
	}
}

func TestLRUOrder(t *testing.T) {
	c := New[string, int](2, nil)

	mustCreate := func(k string, v int) {
		t.Helper()
		if _, err := c.GetOrCreate(k, func() (int, error) { return v, nil }); err != nil {
			t.Fatalf("GetOrCreate(%q) failed: %v", k, err)
		}
	}

	mustCreate("a", 1)
	mustCreate("b", 2)
	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("key a missing")
	}
	mustCreate("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("key b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("key a should have survived")
	}
}

func TestDelete(t *testing.T) {
	var evicted []int
	c := New[string, int](4, func(v int) {
		evicted = append(evicted, v)
	})

	if _, err := c.GetOrCreate("key", func() (int, error) { return 7, nil }); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if !c.Delete("key") {
		t.Error("Delete returned false for present key")
	}
	if c.Delete("key") {
		t.Error("Delete returned true for absent key")
	}
	if len(evicted) != 1 || evicted[0] != 7 {
		t.Errorf("evicted = %v, want [7]", evicted)
	}
}

func TestClear(t *testing.T) {
	var evicted []int
	c := New[int, int](8, func(v int) {
		evicted = append(evicted, v)
	})

	for i := 0; i < 5; i++ {
		i := i
		if _, err := c.GetOrCreate(i, func() (int, error) { return i, nil }); err != nil {
			t.Fatalf("GetOrCreate(%d) failed: %v", i, err)
		}
	}

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", c.Len())
	}
	if len(evicted) != 5 {
		t.Errorf("eviction hook ran %d times, want 5", len(evicted))
	}
}

func TestRange(t *testing.T) {
	c := New[int, int](8, nil)

	for i := 0; i < 4; i++ {
		i := i
		if _, err := c.GetOrCreate(i, func() (int, error) { return i, nil }); err != nil {
			t.Fatalf("GetOrCreate(%d) failed: %v", i, err)
		}
	}

	seen := map[int]bool{}
	c.Range(func(k int) { seen[k] = true })

	if len(seen) != 4 {
		t.Fatalf("Range visited %d keys, want 4", len(seen))
	}
	for i := 0; i < 4; i++ {
		if !seen[i] {
			t.Errorf("Range skipped key %d", i)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](64, nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := i % 32
				v, err := c.GetOrCreate(k, func() (int, error) { return k * 2, nil })
				if err != nil {
					t.Errorf("GetOrCreate(%d) failed: %v", k, err)
					return
				}
				if v != k*2 {
					t.Errorf("value for %d = %d, want %d", k, v, k*2)
					return
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() != 32 {
		t.Errorf("Len = %d, want 32", c.Len())
	}
}
