package provider

import (
    "context"
    "time"

    "assetfeed/internal/asset"
)

// Provider is one upstream market-data source. Each method issues exactly
// one logical upstream operation and returns the normalized fragment.
// Implementations do not retry; retry and batching policy belong to the
// caller.
type Provider interface {
    Name() string
    Quote(ctx context.Context, symbol string) (asset.Quote, error)
    Profile(ctx context.Context, symbol string) (asset.Profile, error)
    History(ctx context.Context, symbol string, from, to time.Time) ([]asset.PricePoint, error)
}

// BatchSummarizer is implemented by providers whose quote endpoint accepts
// multiple symbols per request. Symbols absent from the returned map are
// treated as per-symbol failures by the caller.
type BatchSummarizer interface {
    Summaries(ctx context.Context, symbols []string) (map[string]asset.Summary, error)
}
