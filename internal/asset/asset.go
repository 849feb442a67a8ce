package asset

import (
    "sort"
    "time"
)

// DateLayout is the canonical calendar date format used throughout the
// normalized schema. Ascending date order is lexicographic.
const DateLayout = "2006-01-02"

// Summary is the normalized list-view record. Symbol is the identity key:
// two summaries with the same symbol are the same asset regardless of
// which provider produced them.
type Summary struct {
    Symbol        string  `json:"symbol"`
    Name          string  `json:"name"`
    Price         float64 `json:"price"`
    MarketCap     float64 `json:"marketCap"`
    DayHigh       float64 `json:"dayHigh"`
    DayLow        float64 `json:"dayLow"`
    DayOpen       float64 `json:"dayOpen"`
    PreviousClose float64 `json:"previousClose"`
    Change        float64 `json:"change"`
    ChangePercent float64 `json:"changePercent"`
}

// Quote is the price fragment of a summary, as normalized from a
// provider's quote endpoint.
type Quote struct {
    Symbol        string  `json:"symbol"`
    Price         float64 `json:"price"`
    DayHigh       float64 `json:"dayHigh"`
    DayLow        float64 `json:"dayLow"`
    DayOpen       float64 `json:"dayOpen"`
    PreviousClose float64 `json:"previousClose"`
    Change        float64 `json:"change"`
    ChangePercent float64 `json:"changePercent"`
}

// Profile is the descriptive fragment, as normalized from a provider's
// profile/metric endpoints. Absent upstream fields take the defaults
// ("Unknown" for strings, 0 for numerics) in the provider's normalizer.
type Profile struct {
    Name                 string  `json:"name"`
    MarketCap            float64 `json:"marketCap"`
    Sector               string  `json:"sector"`
    Industry             string  `json:"industry"`
    PERatio              float64 `json:"peRatio"`
    DividendYieldPercent float64 `json:"dividendYieldPercent"`
}

// PricePoint is one closing price on a calendar date (DateLayout).
type PricePoint struct {
    Date  string  `json:"date"`
    Close float64 `json:"close"`
}

// Detail is the full per-asset record backing a detail view. It is built
// all-or-nothing: a Detail either carries every fragment or is never
// exposed to callers.
type Detail struct {
    Summary
    Sector               string       `json:"sector"`
    Industry             string       `json:"industry"`
    PERatio              float64      `json:"peRatio"`
    DividendYieldPercent float64      `json:"dividendYieldPercent"`
    PriceHistory         []PricePoint `json:"priceHistory"`
}

// Join builds a Summary from its two fragments. Name falls back to the
// symbol when the provider does not know one.
func Join(q Quote, p Profile) Summary {
    name := p.Name
    if name == "" {
        name = q.Symbol
    }
    return Summary{
        Symbol:        q.Symbol,
        Name:          name,
        Price:         q.Price,
        MarketCap:     p.MarketCap,
        DayHigh:       q.DayHigh,
        DayLow:        q.DayLow,
        DayOpen:       q.DayOpen,
        PreviousClose: q.PreviousClose,
        Change:        q.Change,
        ChangePercent: q.ChangePercent,
    }
}

// SortHistory sorts points ascending by date and collapses duplicate
// dates, keeping the last-seen close for a date. Points with a
// non-positive close are dropped.
func SortHistory(points []PricePoint) []PricePoint {
    byDate := make(map[string]float64, len(points))
    for _, p := range points {
        if p.Close <= 0 || p.Date == "" {
            continue
        }
        byDate[p.Date] = p.Close
    }
    out := make([]PricePoint, 0, len(byDate))
    for d, c := range byDate {
        out = append(out, PricePoint{Date: d, Close: c})
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
    return out
}

// Day formats t as a canonical calendar date in UTC.
func Day(t time.Time) string { return t.UTC().Format(DateLayout) }
