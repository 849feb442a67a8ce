package asset

import (
    "reflect"
    "testing"
)

func TestSortHistory_AscendingAndDeduped(t *testing.T) {
    in := []PricePoint{
        {Date: "2025-01-03", Close: 12},
        {Date: "2025-01-01", Close: 10},
        {Date: "2025-01-02", Close: 11},
        {Date: "2025-01-01", Close: 10.5}, // duplicate date, last one wins
    }
    got := SortHistory(in)
    want := []PricePoint{
        {Date: "2025-01-01", Close: 10.5},
        {Date: "2025-01-02", Close: 11},
        {Date: "2025-01-03", Close: 12},
    }
    if !reflect.DeepEqual(got, want) {
        t.Fatalf("want %+v, got %+v", want, got)
    }
}

func TestSortHistory_DropsUnusablePoints(t *testing.T) {
    in := []PricePoint{
        {Date: "2025-01-01", Close: 0},
        {Date: "", Close: 10},
        {Date: "2025-01-02", Close: -3},
        {Date: "2025-01-03", Close: 9},
    }
    got := SortHistory(in)
    if len(got) != 1 || got[0].Date != "2025-01-03" {
        t.Fatalf("unexpected: %+v", got)
    }
}

func TestJoin_NameFallsBackToSymbol(t *testing.T) {
    q := Quote{Symbol: "AAPL", Price: 190.5, PreviousClose: 189, Change: 1.5, ChangePercent: 0.79}
    s := Join(q, Profile{})
    if s.Name != "AAPL" {
        t.Fatalf("want symbol fallback, got %q", s.Name)
    }
    if s.Price != 190.5 || s.Change != 1.5 {
        t.Fatalf("quote fields lost: %+v", s)
    }

    s = Join(q, Profile{Name: "Apple Inc", MarketCap: 3e12})
    if s.Name != "Apple Inc" || s.MarketCap != 3e12 {
        t.Fatalf("profile fields lost: %+v", s)
    }
}
