package fetch

import (
    "context"
    "fmt"
    "sync"
    "time"

    "assetfeed/internal/asset"
)

// DefaultHistoryDays is the detail view's historical window when none is
// configured.
const DefaultHistoryDays = 30

// DetailError is the sole error of a failed detail fetch: any sub-fetch
// failing fails the whole operation.
type DetailError struct {
    Symbol string
    Cause  error
}

func (e *DetailError) Error() string {
    return fmt.Sprintf("detail %s: %v", e.Symbol, e.Cause)
}

func (e *DetailError) Unwrap() error { return e.Cause }

// AssetDetail fetches the quote, profile and historical series for one
// symbol concurrently and joins them. All three must succeed; when
// several fail the quote error is reported, then profile, then history,
// since price is the most critical field. No partially-merged detail is
// ever returned.
func (s *Service) AssetDetail(ctx context.Context, symbol string) (asset.Detail, error) {
    syms := NormalizeSymbols([]string{symbol})
    if len(syms) == 0 {
        return asset.Detail{}, &DetailError{Symbol: symbol, Cause: fmt.Errorf("empty symbol")}
    }
    sym := syms[0]

    days := s.HistoryDays
    if days <= 0 {
        days = DefaultHistoryDays
    }
    to := time.Now().UTC()
    from := to.AddDate(0, 0, -days)

    var (
        q    asset.Quote
        p    asset.Profile
        h    []asset.PricePoint
        errs [3]error
        wg   sync.WaitGroup
    )
    wg.Add(3)
    go func() { defer wg.Done(); q, errs[0] = s.Provider.Quote(ctx, sym) }()
    go func() { defer wg.Done(); p, errs[1] = s.Provider.Profile(ctx, sym) }()
    go func() { defer wg.Done(); h, errs[2] = s.Provider.History(ctx, sym, from, to) }()
    wg.Wait()

    for _, err := range errs {
        if err != nil {
            return asset.Detail{}, &DetailError{Symbol: sym, Cause: err}
        }
    }

    return asset.Detail{
        Summary:              asset.Join(q, p),
        Sector:               p.Sector,
        Industry:             p.Industry,
        PERatio:              p.PERatio,
        DividendYieldPercent: p.DividendYieldPercent,
        PriceHistory:         asset.SortHistory(h),
    }, nil
}
