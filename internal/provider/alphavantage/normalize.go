package alphavantage

import (
    "strconv"
    "strings"

    "assetfeed/internal/asset"
    "assetfeed/internal/provider"
)

const unknown = "Unknown"

// normalizeQuote maps a GLOBAL_QUOTE record onto the canonical fragment.
// Only the symbol is required; every numeric field defaults to 0 when
// absent or unparseable.
func normalizeQuote(g globalQuote) (asset.Quote, error) {
    sym := strings.ToUpper(strings.TrimSpace(g.Symbol))
    if sym == "" {
        return asset.Quote{}, &provider.SchemaError{Provider: "AlphaVantage", Field: "symbol"}
    }
    price := parseFloat(g.Price)
    prev := parseFloat(g.PreviousClose)
    return asset.Quote{
        Symbol:        sym,
        Price:         price,
        DayHigh:       parseFloat(g.High),
        DayLow:        parseFloat(g.Low),
        DayOpen:       parseFloat(g.Open),
        PreviousClose: prev,
        Change:        parseFloat(g.Change),
        ChangePercent: parsePercent(g.ChangePercent),
    }, nil
}

// normalizeOverview maps an OVERVIEW record onto the canonical profile.
// Alpha Vantage reports dividend yield as a fraction; the canonical
// field is a percentage, so it is multiplied by 100 here and nowhere
// else.
func normalizeOverview(o overviewResponse) asset.Profile {
    return asset.Profile{
        Name:                 strings.TrimSpace(o.Name),
        MarketCap:            parseFloat(o.MarketCap),
        Sector:               defaultString(o.Sector),
        Industry:             defaultString(o.Industry),
        PERatio:              nonNegative(parseFloat(o.PERatio)),
        DividendYieldPercent: nonNegative(parseFloat(o.DividendYield) * 100),
    }
}

// normalizeSeries converts the date-keyed daily map into ascending
// points within [from, to]. Series dates are already canonical
// YYYY-MM-DD strings, so the window check is lexicographic.
func normalizeSeries(series map[string]dailyBar, from, to string) []asset.PricePoint {
    points := make([]asset.PricePoint, 0, len(series))
    for date, bar := range series {
        if date < from || date > to {
            continue
        }
        points = append(points, asset.PricePoint{Date: date, Close: parseFloat(bar.Close)})
    }
    return asset.SortHistory(points)
}

// parseFloat tolerates the provider's placeholders ("None", "-", "").
func parseFloat(s string) float64 {
    s = strings.TrimSpace(s)
    switch s {
    case "", "None", "none", "-":
        return 0
    }
    v, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return 0
    }
    return v
}

func parsePercent(s string) float64 {
    return parseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}

func nonNegative(v float64) float64 {
    if v < 0 {
        return 0
    }
    return v
}

func defaultString(s string) string {
    s = strings.TrimSpace(s)
    if s == "" || strings.EqualFold(s, "none") {
        return unknown
    }
    return s
}
