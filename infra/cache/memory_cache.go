package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/money"
)

// MemoryCache implements cache.QuoteCache in process memory.
type MemoryCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	codes map[money.Code]map[day.Date]cacheEntry
	stop  chan struct{}
	once  sync.Once
}

type cacheEntry struct {
	rate      exchange.Rate
	expiresAt time.Time
}

// NewMemoryCache creates a cache whose entries live for ttl. Call Close to
// stop the background sweep.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		ttl:   ttl,
		codes: make(map[money.Code]map[day.Date]cacheEntry),
		stop:  make(chan struct{}),
	}
	go c.cleanup(max(ttl, time.Minute))
	return c
}

// Get returns the cached quote of code for the day.
func (c *MemoryCache) Get(_ context.Context, code money.Code, on day.Date) (exchange.Rate, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.codes[code][on]
	if !ok || time.Now().After(entry.expiresAt) {
		return exchange.Rate{}, false, nil
	}
	return entry.rate, true, nil
}

// Set caches the quote in force for code on the day.
func (c *MemoryCache) Set(_ context.Context, code money.Code, on day.Date, rate exchange.Rate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	days, ok := c.codes[code]
	if !ok {
		days = make(map[day.Date]cacheEntry)
		c.codes[code] = days
	}
	days[on] = cacheEntry{rate: rate, expiresAt: time.Now().Add(c.ttl)}
	return nil
}

// Invalidate drops every day cached for code.
func (c *MemoryCache) Invalidate(_ context.Context, code money.Code) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.codes, code)
	return nil
}

// Len reports how many entries are held, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, days := range c.codes {
		n += len(days)
	}
	return n
}

// Close stops the sweep goroutine.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup removes expired entries every interval.
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *MemoryCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for code, days := range c.codes {
		for on, entry := range days {
			if now.After(entry.expiresAt) {
				delete(days, on)
			}
		}
		if len(days) == 0 {
			delete(c.codes, code)
		}
	}
}
