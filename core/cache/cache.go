// Package cache provides LRU caching for ingested sentences.
package cache

import (
	"container/list"
	"encoding/hex"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/xmlinput/core/sentence"
)

// Cache is a generic LRU cache interface.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache.
	Get(key K) (V, bool)

	// Put stores a value in the cache.
	Put(key K, value V)

	// Remove removes a value from the cache.
	Remove(key K)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config contains cache configuration options.
type Config[K comparable, V any] struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// OnEvict is called with the cache lock held when an entry is evicted
	// to make room. It must not call back into the cache.
	OnEvict func(key K, value V)
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// lruCache is a thread-safe LRU cache implementation.
type lruCache[K comparable, V any] struct {
	mu      sync.Mutex
	config  Config[K, V]
	entries map[K]*list.Element
	order   *list.List // front is most recently used
	stats   Stats
}

// NewLRUCache creates a new LRU cache with the given configuration.
func NewLRUCache[K comparable, V any](config Config[K, V]) Cache[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	return &lruCache[K, V]{
		config:  config,
		entries: make(map[K]*list.Element),
		order:   list.New(),
	}
}

func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return el.Value.(*entry[K, V]).value, true
}

func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry[K, V]).value = value
		return
	}

	c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})

	if c.config.MaxSize > 0 && c.order.Len() > c.config.MaxSize {
		oldest := c.order.Back()
		e := c.remove(oldest)
		c.stats.Evictions++
		if c.config.OnEvict != nil {
			c.config.OnEvict(e.key, e.value)
		}
	}
}

func (c *lruCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
}

func (c *lruCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.order.Init()
}

func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.order.Len()
	s.MaxSize = c.config.MaxSize
	return s
}

func (c *lruCache[K, V]) remove(el *list.Element) *entry[K, V] {
	c.order.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.entries, e.key)
	return e
}

// Key derives the cache key of input parsed under the options identified
// by fingerprint. It is the hex BLAKE3-256 digest of both.
func Key(fingerprint, input string) string {
	h := blake3.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// SentenceCache caches immutable sentences by Key.
type SentenceCache struct {
	cache Cache[string, *sentence.Sentence]
}

// NewSentenceCache creates a sentence cache holding up to maxEntries
// sentences. A cache with maxEntries <= 0 stores nothing.
func NewSentenceCache(maxEntries int) *SentenceCache {
	if maxEntries <= 0 {
		return &SentenceCache{}
	}
	return &SentenceCache{
		cache: NewLRUCache(Config[string, *sentence.Sentence]{MaxSize: maxEntries}),
	}
}

// Enabled reports whether the cache stores anything.
func (c *SentenceCache) Enabled() bool {
	return c != nil && c.cache != nil
}

// Get looks up the sentence parsed from input under fingerprint.
func (c *SentenceCache) Get(fingerprint, input string) (*sentence.Sentence, bool) {
	if !c.Enabled() {
		return nil, false
	}
	return c.cache.Get(Key(fingerprint, input))
}

// Put stores s as the result of parsing input under fingerprint.
func (c *SentenceCache) Put(fingerprint, input string, s *sentence.Sentence) {
	if !c.Enabled() {
		return
	}
	c.cache.Put(Key(fingerprint, input), s)
}

// Clear drops every cached sentence.
func (c *SentenceCache) Clear() {
	if c.Enabled() {
		c.cache.Clear()
	}
}

// Len returns the number of cached sentences.
func (c *SentenceCache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.cache.Len()
}

// Stats returns cache statistics.
func (c *SentenceCache) Stats() Stats {
	if !c.Enabled() {
		return Stats{}
	}
	return c.cache.Stats()
}
