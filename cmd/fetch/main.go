package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "assetfeed/internal/config"
    "assetfeed/internal/fetch"
    "assetfeed/internal/httpx"
    "assetfeed/internal/provider"
    "assetfeed/internal/provider/alphavantage"
    "assetfeed/internal/provider/cache"
    "assetfeed/internal/provider/finnhub"
    "assetfeed/internal/provider/ratelimit"
    "assetfeed/internal/provider/stockdata"
)

func main() {
    var symbolsCSV string
    var detailSymbol string
    var providerName string
    var historyDays int
    var timeout int
    var configPath string

    flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", ""), "comma-separated ticker symbols for a list fetch")
    flag.StringVar(&detailSymbol, "symbol", "", "single symbol for a detail fetch (quote+profile+history)")
    flag.StringVar(&providerName, "provider", getenv("PROVIDER", ""), "upstream provider (finnhub|alphavantage|stockdata)")
    flag.IntVar(&historyDays, "history-days", getenvInt("HISTORY_DAYS", 0), "detail history window in days")
    flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "request timeout seconds")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
    flag.Parse()

    log := logrus.New()

    // Load config (optional) and merge with flags/env
    cfg, err := config.Load(configPath)
    if err != nil { log.WithError(err).Fatal("config") }
    if providerName != "" { cfg.Provider = providerName }
    if historyDays > 0 { cfg.Fetch.HistoryDays = historyDays }
    if timeout > 0 { cfg.Server.RequestTimeoutSec = timeout }
    if err := cfg.Validate(); err != nil { log.WithError(err).Fatal("config") }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

    svc := &fetch.Service{
        Provider:       buildProvider(cfg, httpClient),
        DefaultSymbols: cfg.Fetch.Symbols,
        MaxConcurrency: cfg.Fetch.MaxConcurrency,
        HistoryDays:    cfg.Fetch.HistoryDays,
        Log:            log,
    }

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
    defer cancel()

    if detailSymbol != "" {
        detail, err := svc.AssetDetail(ctx, detailSymbol)
        if err != nil {
            log.WithError(err).Fatal("detail fetch")
        }
        printJSON(detail)
        return
    }

    res := svc.ListAssets(ctx, splitCSV(symbolsCSV))
    if len(res.Assets) == 0 && len(res.Failures) > 0 {
        log.Fatal("no data available; every symbol failed")
    }
    printJSON(toOutput(res))
}

type fetchOutput struct {
    Assets   any             `json:"assets"`
    Failures []symbolMessage `json:"failures,omitempty"`
}

type symbolMessage struct {
    Symbol  string `json:"symbol"`
    Message string `json:"message"`
}

func toOutput(res fetch.ListResult) fetchOutput {
    out := fetchOutput{Assets: res.Assets}
    for _, f := range res.Failures {
        out.Failures = append(out.Failures, symbolMessage{Symbol: f.Symbol, Message: f.Err.Error()})
    }
    return out
}

func printJSON(v any) {
    b, _ := json.MarshalIndent(v, "", "  ")
    fmt.Println(string(b))
}

// buildProvider mirrors the server wiring: selected adapter, then rate
// limit, then cache.
func buildProvider(cfg config.Config, hc *httpx.Client) provider.Provider {
    var p provider.Provider
    switch strings.ToLower(cfg.Provider) {
    case "alphavantage":
        opts := []alphavantage.Option{alphavantage.WithHTTPClient(hc.HTTP)}
        if cfg.AlphaVantage.Endpoint != "" {
            opts = append(opts, alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint))
        }
        p = alphavantage.New(cfg.AlphaVantage.APIKey, opts...)
        p = limited(p, cfg.AlphaVantage.MaxRequestsPerMinute, cfg.AlphaVantage.Burst, cfg.AlphaVantage.MinRequestIntervalSec)
    case "stockdata":
        p = stockdata.New(stockdata.Config{BaseURL: cfg.StockData.Endpoint, APIToken: cfg.StockData.APIToken}, hc)
        p = limited(p, cfg.StockData.MaxRequestsPerMinute, cfg.StockData.Burst, cfg.StockData.MinRequestIntervalSec)
    default:
        p = finnhub.New(finnhub.Config{BaseURL: cfg.Finnhub.Endpoint, APIKey: cfg.Finnhub.APIKey}, hc)
        p = limited(p, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst, cfg.Finnhub.MinRequestIntervalSec)
    }
    if cfg.Fetch.CacheTTLSeconds > 0 {
        p = cache.Wrap(p, time.Duration(cfg.Fetch.CacheTTLSeconds)*time.Second, cfg.Fetch.CacheMaxItems)
    }
    return p
}

func limited(p provider.Provider, rpm, burst, minIntervalSec int) provider.Provider {
    if rpm > 0 {
        if burst <= 0 { burst = 1 }
        return ratelimit.WithTokenBucket(p, float64(rpm)/60.0, burst)
    }
    if minIntervalSec > 0 {
        return ratelimit.WithMinInterval(p, time.Duration(minIntervalSec)*time.Second)
    }
    return p
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var x int
        _, _ = fmt.Sscanf(v, "%d", &x)
        if x != 0 { return x }
    }
    return def
}
