package cache

import (
    "context"
    "fmt"
    "sync"
    "time"

    "golang.org/x/sync/singleflight"

    "assetfeed/internal/asset"
    "assetfeed/internal/provider"
)

// entry stores one memoized result with expiry.
type entry struct {
    expiresAt time.Time
    value     any
}

// memo is a process-local TTL memo keyed by (endpoint, symbol).
// Concurrent misses for one key are coalesced so the upstream sees a
// single call; failed fetches are never stored.
type memo struct {
    ttl      time.Duration
    maxItems int

    mu    sync.RWMutex
    items map[string]entry
    sf    singleflight.Group
}

func (m *memo) getOrFetch(key string, fetch func() (any, error)) (any, error) {
    m.mu.RLock()
    e, ok := m.items[key]
    m.mu.RUnlock()
    if ok && time.Now().Before(e.expiresAt) {
        return e.value, nil
    }

    v, err, _ := m.sf.Do(key, func() (any, error) {
        // Re-check under singleflight: a concurrent caller may have
        // stored the value while we waited.
        m.mu.RLock()
        e, ok := m.items[key]
        m.mu.RUnlock()
        if ok && time.Now().Before(e.expiresAt) {
            return e.value, nil
        }
        val, err := fetch()
        if err != nil {
            return nil, err
        }
        m.store(key, val)
        return val, nil
    })
    if err != nil {
        return nil, err
    }
    return v, nil
}

func (m *memo) store(key string, val any) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.items == nil {
        m.items = make(map[string]entry)
    }
    m.items[key] = entry{expiresAt: time.Now().Add(m.ttl), value: val}
    if m.maxItems <= 0 || len(m.items) <= m.maxItems {
        return
    }
    // best-effort cap: remove expired first, then arbitrary
    now := time.Now()
    for k, v := range m.items {
        if now.After(v.expiresAt) {
            delete(m.items, k)
        }
        if len(m.items) <= m.maxItems {
            return
        }
    }
    for k := range m.items {
        if len(m.items) <= m.maxItems {
            return
        }
        delete(m.items, k)
    }
}

// Provider memoizes normalized results of the wrapped provider per
// (endpoint, symbol) for a TTL.
type Provider struct {
    p provider.Provider
    m memo
}

// Wrap returns p memoized with the given TTL and size cap. A TTL <= 0
// disables caching. Batch capability of the wrapped provider is
// preserved.
func Wrap(p provider.Provider, ttl time.Duration, maxItems int) provider.Provider {
    if ttl <= 0 {
        return p
    }
    c := &Provider{p: p, m: memo{ttl: ttl, maxItems: maxItems}}
    if b, ok := p.(provider.BatchSummarizer); ok {
        return &batchProvider{Provider: c, batch: b}
    }
    return c
}

func (c *Provider) Name() string { return c.p.Name() }

func (c *Provider) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
    v, err := c.m.getOrFetch("quote\x00"+symbol, func() (any, error) {
        return c.p.Quote(ctx, symbol)
    })
    if err != nil {
        return asset.Quote{}, err
    }
    return v.(asset.Quote), nil
}

func (c *Provider) Profile(ctx context.Context, symbol string) (asset.Profile, error) {
    v, err := c.m.getOrFetch("profile\x00"+symbol, func() (any, error) {
        return c.p.Profile(ctx, symbol)
    })
    if err != nil {
        return asset.Profile{}, err
    }
    return v.(asset.Profile), nil
}

func (c *Provider) History(ctx context.Context, symbol string, from, to time.Time) ([]asset.PricePoint, error) {
    key := fmt.Sprintf("history\x00%s\x00%s\x00%s", symbol, asset.Day(from), asset.Day(to))
    v, err := c.m.getOrFetch(key, func() (any, error) {
        return c.p.History(ctx, symbol, from, to)
    })
    if err != nil {
        return nil, err
    }
    return v.([]asset.PricePoint), nil
}

// batchProvider keeps the wrapped provider's batch capability, caching
// per symbol: cached symbols are served locally and only the missing
// ones go upstream in one call.
type batchProvider struct {
    *Provider
    batch provider.BatchSummarizer
}

func (c *batchProvider) Summaries(ctx context.Context, symbols []string) (map[string]asset.Summary, error) {
    now := time.Now()
    out := make(map[string]asset.Summary, len(symbols))
    missing := make([]string, 0, len(symbols))

    c.m.mu.RLock()
    for _, s := range symbols {
        if e, ok := c.m.items["summary\x00"+s]; ok && now.Before(e.expiresAt) {
            out[s] = e.value.(asset.Summary)
            continue
        }
        missing = append(missing, s)
    }
    c.m.mu.RUnlock()

    if len(missing) == 0 {
        return out, nil
    }

    fresh, err := c.batch.Summaries(ctx, missing)
    if err != nil {
        // Serve whatever was cached; the error still reaches the caller
        // so the missing symbols keep their real upstream cause.
        return out, err
    }
    for sym, sum := range fresh {
        c.m.store("summary\x00"+sym, sum)
        out[sym] = sum
    }
    return out, nil
}
