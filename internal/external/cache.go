package external

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// FundDataLookup fetches a fund valuation.
type FundDataLookup interface {
	GetFundData(ctx context.Context, p domain.Position) (*domain.FundData, error)
}

type cacheEntry struct {
	data      domain.FundData
	expiresAt time.Time
}

// CachedLookup serves repeated lookups for the same ISIN from memory until the
// entry expires. Failures are never cached.
type CachedLookup struct {
	next FundDataLookup
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCachedLookup wraps next with a cache of the given TTL.
func NewCachedLookup(next FundDataLookup, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// cacheKey normalizes the ISIN, e.g. " ie00b4l5y983" => "IE00B4L5Y983".
func cacheKey(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

// GetFundData returns a cached copy when fresh and queries next otherwise.
func (c *CachedLookup) GetFundData(ctx context.Context, p domain.Position) (*domain.FundData, error) {
	key := cacheKey(p.ISIN)
	if data, ok := c.get(key); ok {
		return data, nil
	}

	data, err := c.next.GetFundData(ctx, p)
	if err != nil || data == nil || data.Current == nil {
		return data, err
	}
	c.set(key, *data)
	return copyFundData(*data), nil
}

// Invalidate drops the entry for isin.
func (c *CachedLookup) Invalidate(isin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(isin))
}

func (c *CachedLookup) get(key string) (*domain.FundData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return copyFundData(entry.data), true
}

func (c *CachedLookup) set(key string, data domain.FundData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		data:      *copyFundData(data),
		expiresAt: c.now().Add(c.ttl),
	}
}

func copyFundData(d domain.FundData) *domain.FundData {
	out := domain.FundData{History: slices.Clone(d.History)}
	if d.Current != nil {
		current := *d.Current
		out.Current = &current
	}
	return &out
}
