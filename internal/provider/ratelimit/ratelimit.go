package ratelimit

import (
    "context"
    "sync"
    "time"

    "assetfeed/internal/asset"
    "assetfeed/internal/provider"
)

// limiter gates outbound calls. wait blocks until a call is permitted or
// the context is canceled.
type limiter interface {
    wait(ctx context.Context) error
}

// minInterval enforces a minimum time between permitted calls.
type minInterval struct {
    interval time.Duration
    mu       sync.Mutex
    last     time.Time
}

func (m *minInterval) wait(ctx context.Context) error {
    if m.interval <= 0 {
        return nil
    }
    m.mu.Lock()
    wait := time.Until(m.last.Add(m.interval))
    if wait <= 0 {
        m.last = time.Now()
        m.mu.Unlock()
        return nil
    }
    m.mu.Unlock()

    t := time.NewTimer(wait)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
    }
    m.mu.Lock()
    m.last = time.Now()
    m.mu.Unlock()
    return nil
}

// Provider wraps a provider and gates every upstream operation through a
// limiter.
type Provider struct {
    p provider.Provider
    l limiter
}

// WithMinInterval gates p so consecutive calls are at least interval
// apart.
func WithMinInterval(p provider.Provider, interval time.Duration) provider.Provider {
    return wrap(p, &minInterval{interval: interval})
}

// WithTokenBucket gates p with a token bucket of the given refill rate
// (tokens per second) and burst capacity.
func WithTokenBucket(p provider.Provider, tokensPerSecond float64, burst int) provider.Provider {
    return wrap(p, NewTokenBucket(tokensPerSecond, burst))
}

func wrap(p provider.Provider, l limiter) provider.Provider {
    lp := &Provider{p: p, l: l}
    if b, ok := p.(provider.BatchSummarizer); ok {
        return &batchProvider{Provider: lp, batch: b}
    }
    return lp
}

func (r *Provider) Name() string { return r.p.Name() }

func (r *Provider) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
    if err := r.l.wait(ctx); err != nil {
        return asset.Quote{}, err
    }
    return r.p.Quote(ctx, symbol)
}

func (r *Provider) Profile(ctx context.Context, symbol string) (asset.Profile, error) {
    if err := r.l.wait(ctx); err != nil {
        return asset.Profile{}, err
    }
    return r.p.Profile(ctx, symbol)
}

func (r *Provider) History(ctx context.Context, symbol string, from, to time.Time) ([]asset.PricePoint, error) {
    if err := r.l.wait(ctx); err != nil {
        return nil, err
    }
    return r.p.History(ctx, symbol, from, to)
}

type batchProvider struct {
    *Provider
    batch provider.BatchSummarizer
}

func (r *batchProvider) Summaries(ctx context.Context, symbols []string) (map[string]asset.Summary, error) {
    if err := r.l.wait(ctx); err != nil {
        return nil, err
    }
    return r.batch.Summaries(ctx, symbols)
}
