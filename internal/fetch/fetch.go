// Package fetch is the aggregation layer: it fans per-symbol fetches out
// across the active provider, tolerating partial failure for list views
// and enforcing all-or-nothing joins for detail views.
package fetch

import (
    "context"
    "strings"
    "sync"

    "github.com/sirupsen/logrus"

    "assetfeed/internal/asset"
    "assetfeed/internal/provider"
)

// Failure records one symbol's fetch error inside a fan-out. It is data,
// not a propagated error: one symbol failing never aborts the batch.
type Failure struct {
    Symbol string
    Err    error
}

// ListResult is the outcome of a list fetch: successes in caller order,
// failures recorded per symbol.
type ListResult struct {
    Assets   []asset.Summary
    Failures []Failure
}

// Many executes fetchOne for every symbol concurrently, at most limit in
// flight (limit <= 0 means one per symbol). Results keep the
// caller-supplied symbol order; failed symbols are omitted from Assets
// and recorded in Failures.
func Many(ctx context.Context, symbols []string, limit int, fetchOne func(context.Context, string) (asset.Summary, error)) ListResult {
    if limit <= 0 || limit > len(symbols) {
        limit = len(symbols)
    }
    type slot struct {
        sum asset.Summary
        err error
    }
    slots := make([]slot, len(symbols))
    sem := make(chan struct{}, limit)
    var wg sync.WaitGroup
    for i, sym := range symbols {
        i, sym := i, sym
        wg.Add(1)
        go func() {
            defer wg.Done()
            select {
            case sem <- struct{}{}:
                defer func() { <-sem }()
            case <-ctx.Done():
                slots[i].err = ctx.Err()
                return
            }
            slots[i].sum, slots[i].err = fetchOne(ctx, sym)
        }()
    }
    wg.Wait()

    out := ListResult{Assets: make([]asset.Summary, 0, len(symbols))}
    for i, sym := range symbols {
        if slots[i].err != nil {
            out.Failures = append(out.Failures, Failure{Symbol: sym, Err: slots[i].err})
            continue
        }
        out.Assets = append(out.Assets, slots[i].sum)
    }
    return out
}

// Service is the internal boundary exposed to callers (HTTP handlers,
// CLI). It holds the active provider and the fan-out policy.
type Service struct {
    Provider       provider.Provider
    DefaultSymbols []string
    MaxConcurrency int
    HistoryDays    int
    Log            logrus.FieldLogger
}

// ListAssets fetches summaries for the given symbols (or the configured
// default set when none are given). A batch-capable provider is used
// with one upstream call; otherwise each symbol is fetched independently
// under the concurrency bound.
func (s *Service) ListAssets(ctx context.Context, symbols []string) ListResult {
    syms := NormalizeSymbols(symbols)
    if len(syms) == 0 {
        syms = NormalizeSymbols(s.DefaultSymbols)
    }
    var res ListResult
    if b, ok := s.Provider.(provider.BatchSummarizer); ok {
        res = s.listBatch(ctx, b, syms)
    } else {
        res = Many(ctx, syms, s.MaxConcurrency, s.summary)
    }
    for _, f := range res.Failures {
        s.log().WithFields(logrus.Fields{"symbol": f.Symbol, "provider": s.Provider.Name()}).
            WithError(f.Err).Warn("symbol fetch failed")
    }
    return res
}

func (s *Service) listBatch(ctx context.Context, b provider.BatchSummarizer, syms []string) ListResult {
    // A partial map alongside an error is valid: a caching wrapper may
    // serve some symbols even when the upstream call failed. Symbols the
    // map covers succeed; the rest fail with the upstream error, or with
    // a per-symbol payload error when the call itself went through.
    m, err := b.Summaries(ctx, syms)
    out := ListResult{Assets: make([]asset.Summary, 0, len(syms))}
    for _, sym := range syms {
        sum, ok := m[sym]
        if !ok {
            cause := err
            if cause == nil {
                cause = &provider.PayloadError{
                    Provider: s.Provider.Name(),
                    Endpoint: "batch",
                    Symbol:   sym,
                    Detail:   "symbol absent from batch response",
                }
            }
            out.Failures = append(out.Failures, Failure{Symbol: sym, Err: cause})
            continue
        }
        out.Assets = append(out.Assets, sum)
    }
    return out
}

// summary joins the quote and profile fragments for one symbol. Both
// fetches run concurrently; the quote error wins when both fail.
func (s *Service) summary(ctx context.Context, symbol string) (asset.Summary, error) {
    var (
        q    asset.Quote
        p    asset.Profile
        qErr error
        pErr error
        wg   sync.WaitGroup
    )
    wg.Add(2)
    go func() { defer wg.Done(); q, qErr = s.Provider.Quote(ctx, symbol) }()
    go func() { defer wg.Done(); p, pErr = s.Provider.Profile(ctx, symbol) }()
    wg.Wait()
    if qErr != nil {
        return asset.Summary{}, qErr
    }
    if pErr != nil {
        return asset.Summary{}, pErr
    }
    return asset.Join(q, p), nil
}

func (s *Service) log() logrus.FieldLogger {
    if s.Log != nil {
        return s.Log
    }
    return logrus.StandardLogger()
}

// NormalizeSymbols upper-cases, trims and de-duplicates symbols,
// preserving first-seen order.
func NormalizeSymbols(symbols []string) []string {
    out := make([]string, 0, len(symbols))
    seen := make(map[string]struct{}, len(symbols))
    for _, s := range symbols {
        s = strings.ToUpper(strings.TrimSpace(s))
        if s == "" {
            continue
        }
        if _, dup := seen[s]; dup {
            continue
        }
        seen[s] = struct{}{}
        out = append(out, s)
    }
    return out
}
