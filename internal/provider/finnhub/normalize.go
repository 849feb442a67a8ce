package finnhub

import (
    "fmt"
    "strings"
    "time"

    "assetfeed/internal/asset"
    "assetfeed/internal/provider"
)

const unknown = "Unknown"

// normalizeQuote maps a Finnhub quote body onto the canonical fragment.
// Finnhub's quote carries no symbol, so identity comes from the request;
// an empty requested symbol is a schema violation. An all-null body means
// the provider does not know the symbol.
func normalizeQuote(symbol string, r quoteResponse) (asset.Quote, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    if sym == "" {
        return asset.Quote{}, &provider.SchemaError{Provider: "Finnhub", Field: "symbol"}
    }
    if r.C == nil && r.Pc == nil && r.O == nil {
        return asset.Quote{}, &provider.PayloadError{Provider: "Finnhub", Endpoint: "/quote", Symbol: sym, Detail: "no quote data"}
    }
    return asset.Quote{
        Symbol:        sym,
        Price:         deref(r.C),
        DayHigh:       deref(r.H),
        DayLow:        deref(r.L),
        DayOpen:       deref(r.O),
        PreviousClose: deref(r.Pc),
        Change:        deref(r.D),
        ChangePercent: deref(r.Dp),
    }, nil
}

// normalizeProfile applies the canonical defaults for every optional
// field. Finnhub reports market cap in millions and dividend yield
// already as a percentage.
func normalizeProfile(prof profileResponse, met metricResponse) asset.Profile {
    industry := strings.TrimSpace(prof.Industry)
    if industry == "" {
        industry = unknown
    }
    return asset.Profile{
        Name:                 strings.TrimSpace(prof.Name),
        MarketCap:            deref(prof.MarketCap) * 1e6,
        Sector:               unknown, // not exposed by profile2
        Industry:             industry,
        PERatio:              nonNegative(deref(met.Metric.PE)),
        DividendYieldPercent: nonNegative(deref(met.Metric.DividendYield)),
    }
}

// normalizeCandles zips Finnhub's parallel timestamp/close arrays into
// dated points. "no_data" is an empty series, not a failure.
func normalizeCandles(providerName, symbol string, r candleResponse) ([]asset.PricePoint, error) {
    switch r.Status {
    case "ok":
    case "no_data":
        return []asset.PricePoint{}, nil
    default:
        return nil, &provider.PayloadError{
            Provider: providerName,
            Endpoint: "/stock/candle",
            Symbol:   symbol,
            Detail:   fmt.Sprintf("status %q", r.Status),
        }
    }
    if len(r.Timestamps) != len(r.Closes) {
        return nil, &provider.PayloadError{
            Provider: providerName,
            Endpoint: "/stock/candle",
            Symbol:   symbol,
            Detail:   fmt.Sprintf("mismatched arrays: %d timestamps, %d closes", len(r.Timestamps), len(r.Closes)),
        }
    }
    points := make([]asset.PricePoint, 0, len(r.Timestamps))
    for i, ts := range r.Timestamps {
        points = append(points, asset.PricePoint{
            Date:  asset.Day(time.Unix(ts, 0)),
            Close: r.Closes[i],
        })
    }
    return asset.SortHistory(points), nil
}

func deref(v *float64) float64 {
    if v == nil { return 0 }
    return *v
}

func nonNegative(v float64) float64 {
    if v < 0 { return 0 }
    return v
}
