package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/causelist/models"
)

// entry holds a cached court list with its creation timestamp.
type entry struct {
	courts    []models.CourtOption
	createdAt time.Time
}

// Cache keeps fetched court lists in memory so listing courts does not open
// a browser every time. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop chan struct{}
	once sync.Once
}

// New creates a Cache holding at most maxEntries lists, each valid for ttl.
// A background goroutine evicts expired entries every ttl until Close.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key identifies a court list by portal URL and court complex.
func Key(baseURL, complexLabel string) string {
	h := sha256.New()
	h.Write([]byte(baseURL))
	h.Write([]byte("|"))
	h.Write([]byte(complexLabel))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached list if it is younger than the TTL.
// A zero TTL disables the cache.
func (c *Cache) Get(key string) ([]models.CourtOption, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return nil, false
	}
	return append([]models.CourtOption(nil), e.courts...), true
}

// Labels maps court values to labels for every cached list, expired or not.
// Stale labels are still better than none.
func (c *Cache) Labels() map[string]string {
	labels := make(map[string]string)
	if c == nil {
		return labels
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.store {
		for _, o := range e.courts {
			labels[o.Value] = o.Label
		}
	}
	return labels
}

// Set stores a list. If the cache is at capacity, an arbitrary entry is
// evicted to make room.
func (c *Cache) Set(key string, courts []models.CourtOption) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		courts:    append([]models.CourtOption(nil), courts...),
		createdAt: c.now(),
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			cutoff := c.now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
