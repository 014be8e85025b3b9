package extract

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache memoizes successful extraction results, bounded by entry count
// (least recently used goes first) and by age.
type Cache struct {
	lru *expirable.LRU[string, *Result]
}

// NewCache returns a cache holding at most size entries for ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, *Result](size, nil, ttl)}
}

// Get returns a private copy of the cached result.
func (c *Cache) Get(key string) (*Result, bool) {
	if c == nil {
		return nil, false
	}
	r, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Put stores a copy of r under key.
func (c *Cache) Put(key string, r *Result) {
	if c == nil || r == nil {
		return
	}
	stored := r.clone()
	stored.Cached = false
	c.lru.Add(key, stored)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// CacheKey hashes the full (images, dimensions, scale) tuple.
func CacheKey(req Request) string {
	b, _ := json.Marshal(struct {
		Images     []string   `json:"i"`
		Dimensions []PageSize `json:"d"`
		Scale      float64    `json:"s"`
	}{req.Images, req.Dimensions, req.Scale})
	h := sha256.Sum256(b)
	return fmt.Sprintf("%x", h[:])
}
