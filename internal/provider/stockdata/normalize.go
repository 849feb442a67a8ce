package stockdata

import (
    "strings"

    "assetfeed/internal/asset"
    "assetfeed/internal/provider"
)

const unknown = "Unknown"

// normalizeSummary maps one batch-quote record onto the canonical
// summary. The ticker is the only required field; the absolute change is
// derived from price and previous close since the upstream only reports
// a percentage.
func normalizeSummary(rec quoteRecord) (asset.Summary, error) {
    sym := strings.ToUpper(strings.TrimSpace(rec.Ticker))
    if sym == "" {
        return asset.Summary{}, &provider.SchemaError{Provider: "StockData", Field: "ticker"}
    }
    name := strings.TrimSpace(rec.Name)
    if name == "" {
        name = sym
    }
    price := nonNegative(deref(rec.Price))
    prev := nonNegative(deref(rec.PreviousClose))
    var change float64
    if price > 0 && prev > 0 {
        change = price - prev
    }
    return asset.Summary{
        Symbol:        sym,
        Name:          name,
        Price:         price,
        MarketCap:     nonNegative(deref(rec.MarketCap)),
        DayHigh:       nonNegative(deref(rec.DayHigh)),
        DayLow:        nonNegative(deref(rec.DayLow)),
        DayOpen:       nonNegative(deref(rec.DayOpen)),
        PreviousClose: prev,
        Change:        change,
        ChangePercent: deref(rec.DayChangePct), // legitimately negative on a down day
    }, nil
}

// normalizeEOD converts the newest-first EOD rows into ascending dated
// points. Timestamps are truncated to their calendar date.
func normalizeEOD(rows []eodRecord) []asset.PricePoint {
    points := make([]asset.PricePoint, 0, len(rows))
    for _, r := range rows {
        date := r.Date
        if len(date) > len(asset.DateLayout) {
            date = date[:len(asset.DateLayout)]
        }
        points = append(points, asset.PricePoint{Date: date, Close: r.Close})
    }
    return asset.SortHistory(points)
}

func deref(v *float64) float64 {
    if v == nil { return 0 }
    return *v
}

func nonNegative(v float64) float64 {
    if v < 0 { return 0 }
    return v
}
