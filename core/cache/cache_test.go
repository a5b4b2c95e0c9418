package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/FocuswithJustin/xmlinput/core/config"
	"github.com/FocuswithJustin/xmlinput/core/sentence"
	"github.com/FocuswithJustin/xmlinput/core/vocab"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache(Config[string, int]{MaxSize: 3})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		if v, ok := cache.Get(key); !ok || v != want {
			t.Errorf("Get(%s) = %d, %v; want %d, true", key, v, ok, want)
		}
	}

	if _, ok := cache.Get("d"); ok {
		t.Error("Get(d) should return false")
	}
	if n := cache.Len(); n != 3 {
		t.Errorf("Len() = %d; want 3", n)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	var evicted []string
	cache := NewLRUCache(Config[string, int]{
		MaxSize: 2,
		OnEvict: func(key string, _ int) { evicted = append(evicted, key) },
	})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // evicts "a"

	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after eviction")
	}

	cache.Get("b")    // "b" becomes most recent
	cache.Put("d", 4) // evicts "c"

	if _, ok := cache.Get("c"); ok {
		t.Error("Get(c) should return false after eviction")
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if len(evicted) != 2 || evicted[0] != "a" || evicted[1] != "c" {
		t.Errorf("evicted = %v; want [a c]", evicted)
	}
	if s := cache.Stats(); s.Evictions != 2 {
		t.Errorf("Evictions = %d; want 2", s.Evictions)
	}
}

func TestLRUCache_Update(t *testing.T) {
	cache := NewLRUCache(Config[string, int]{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("a", 2)

	if v, ok := cache.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}
}

func TestLRUCache_RemoveAndClear(t *testing.T) {
	cache := NewLRUCache(Config[string, int]{MaxSize: 3})
	cache.Put("a", 1)
	cache.Put("b", 2)

	cache.Remove("b")
	cache.Remove("missing")
	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after Remove")
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}

	cache.Clear()
	if n := cache.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d; want 0", n)
	}
}

func TestLRUCache_Unlimited(t *testing.T) {
	cache := NewLRUCache(Config[int, int]{MaxSize: -5})
	for i := 0; i < 1000; i++ {
		cache.Put(i, i)
	}
	if n := cache.Len(); n != 1000 {
		t.Errorf("Len() = %d; want 1000", n)
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(Config[string, int]{MaxSize: 10})
	if r := cache.Stats().HitRate(); r != 0 {
		t.Errorf("HitRate() before lookups = %v; want 0", r)
	}

	cache.Put("a", 1)
	cache.Get("a")
	cache.Get("a")
	cache.Get("a")
	cache.Get("b")

	s := cache.Stats()
	if s.Hits != 3 || s.Misses != 1 || s.Size != 1 || s.MaxSize != 10 {
		t.Errorf("Stats() = %+v", s)
	}
	if r := s.HitRate(); r != 0.75 {
		t.Errorf("HitRate() = %v; want 0.75", r)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRUCache(Config[int, int]{MaxSize: 50})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				cache.Put(g*1000+i, i)
				cache.Get(g*1000 + i/2)
			}
		}(g)
	}
	wg.Wait()

	if n := cache.Len(); n != 50 {
		t.Errorf("Len() = %d; want 50", n)
	}
}

func TestKey(t *testing.T) {
	a := Key("markup=true", "the cat")
	if len(a) != 64 {
		t.Errorf("len(Key) = %d; want 64 hex characters", len(a))
	}
	if a != Key("markup=true", "the cat") {
		t.Error("Key is not deterministic")
	}
	if a == Key("markup=false", "the cat") {
		t.Error("Key ignores the fingerprint")
	}
	if a == Key("markup=true", "the dog") {
		t.Error("Key ignores the input")
	}
	// The separator keeps the two fields apart.
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key is ambiguous across the field boundary")
	}
}

func TestSentenceCache(t *testing.T) {
	cfg := config.Default()
	fp := cfg.Fingerprint()
	s, err := sentence.CreateFromString(vocab.NewCollection(), cfg, "the cat")
	if err != nil {
		t.Fatalf("CreateFromString failed: %v", err)
	}

	c := NewSentenceCache(2)
	if !c.Enabled() {
		t.Fatal("cache should be enabled")
	}
	if _, ok := c.Get(fp, "the cat"); ok {
		t.Error("Get before Put should miss")
	}
	c.Put(fp, "the cat", s)
	if got, ok := c.Get(fp, "the cat"); !ok || got != s {
		t.Errorf("Get = %v, %v; want cached sentence", got, ok)
	}
	if _, ok := c.Get("other", "the cat"); ok {
		t.Error("Get with another fingerprint should miss")
	}

	for i := 0; i < 3; i++ {
		c.Put(fp, fmt.Sprint(i), s)
	}
	if n := c.Len(); n != 2 {
		t.Errorf("Len() = %d; want 2", n)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Evictions != 2 {
		t.Errorf("Stats() = %+v", st)
	}

	c.Clear()
	if n := c.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d; want 0", n)
	}
}

func TestSentenceCacheDisabled(t *testing.T) {
	c := NewSentenceCache(0)
	if c.Enabled() {
		t.Fatal("zero-sized cache should be disabled")
	}
	c.Put("fp", "x", nil)
	if _, ok := c.Get("fp", "x"); ok {
		t.Error("disabled cache returned a hit")
	}
	c.Clear()
	if c.Len() != 0 || c.Stats() != (Stats{}) {
		t.Error("disabled cache reports contents")
	}

	var nilCache *SentenceCache
	if nilCache.Enabled() {
		t.Error("nil cache should be disabled")
	}
}
