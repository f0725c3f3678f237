// Package chunkcache implements a bounded LRU of recently decoded chunks,
// replacing an unbounded map[uint64][]byte with a fixed-size
// github.com/hashicorp/golang-lru/v2 cache.
package chunkcache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the default number of cached chunks.
const DefaultSize = 16

// Entry is a cached chunk's decoded payload plus whether it passed its
// checksum verification.
type Entry struct {
	Payload []byte
	Valid   bool
}

// Cache is a fixed-capacity LRU over chunk number -> Entry.
type Cache struct {
	lru *lru.Cache[uint64, Entry]
}

// New returns a cache holding at most size entries. size <= 0 is
// normalized to DefaultSize.
func New(size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[uint64, Entry](size)
	if err != nil {
		// Only possible for a non-positive size, which we've already
		// normalized above.
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the cached entry for chunkNumber, promoting it to
// most-recently-used.
func (c *Cache) Get(chunkNumber uint64) (Entry, bool) {
	return c.lru.Get(chunkNumber)
}

// Put inserts or replaces the entry for chunkNumber, evicting the least
// recently used entry if the cache is full.
func (c *Cache) Put(chunkNumber uint64, e Entry) {
	c.lru.Add(chunkNumber, e)
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
