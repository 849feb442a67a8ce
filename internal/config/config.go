package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"

    "assetfeed/internal/provider"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

// Fetch holds the aggregation policy knobs.
type Fetch struct {
    Symbols         []string `json:"symbols"`          // default list-view symbols
    MaxConcurrency  int      `json:"max_concurrency"`  // in-flight fan-out bound
    HistoryDays     int      `json:"history_days"`     // detail-view window
    CacheTTLSeconds int      `json:"cache_ttl_sec"`    // 0 disables the memo
    CacheMaxItems   int      `json:"cache_max_items"`
}

type Finnhub struct {
    APIKey                string `json:"api_key"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
}

type AlphaVantage struct {
    APIKey                string `json:"api_key"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
}

type StockData struct {
    APIToken              string `json:"api_token"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
}

type Config struct {
    Provider     string       `json:"provider"` // finnhub | alphavantage | stockdata
    Server       Server       `json:"server"`
    Fetch        Fetch        `json:"fetch"`
    Finnhub      Finnhub      `json:"finnhub"`
    AlphaVantage AlphaVantage `json:"alphavantage"`
    StockData    StockData    `json:"stockdata"`
}

func Default() Config {
    return Config{
        Provider: "finnhub",
        Server:   Server{Port: "8080", RequestTimeoutSec: 10},
        Fetch: Fetch{
            Symbols:         []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META"},
            MaxConcurrency:  8,
            HistoryDays:     30,
            CacheTTLSeconds: 15,
            CacheMaxItems:   10000,
        },
        Finnhub: Finnhub{
            MaxRequestsPerMinute: 60,
            Burst:                10,
        },
        AlphaVantage: AlphaVantage{
            MaxRequestsPerMinute: 5,
            Burst:                1,
        },
        StockData: StockData{
            MaxRequestsPerMinute: 30,
            Burst:                5,
        },
    }
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select
// fields, keeping credentials out of the file.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

// Validate checks that the selected provider is known and carries a
// credential. A missing credential is fatal at startup, never silently
// defaulted.
func (c Config) Validate() error {
    switch strings.ToLower(c.Provider) {
    case "finnhub":
        if c.Finnhub.APIKey == "" {
            return fmt.Errorf("finnhub: %w", provider.ErrMissingAPIKey)
        }
    case "alphavantage":
        if c.AlphaVantage.APIKey == "" {
            return fmt.Errorf("alphavantage: %w", provider.ErrMissingAPIKey)
        }
    case "stockdata":
        if c.StockData.APIToken == "" {
            return fmt.Errorf("stockdata: %w", provider.ErrMissingAPIKey)
        }
    default:
        return fmt.Errorf("unknown provider %q", c.Provider)
    }
    return nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PROVIDER"); v != "" { cfg.Provider = v }
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("SYMBOLS"); v != "" { cfg.Fetch.Symbols = splitCSV(v) }
    if v := os.Getenv("MAX_CONCURRENCY"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Fetch.MaxConcurrency = x }
    }
    if v := os.Getenv("HISTORY_DAYS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Fetch.HistoryDays = x }
    }
    if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Fetch.CacheTTLSeconds = x }
    }
    if v := os.Getenv("CACHE_MAX_ITEMS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Fetch.CacheMaxItems = x }
    }

    if v := os.Getenv("FINNHUB_API_KEY"); v != "" { cfg.Finnhub.APIKey = v }
    if v := os.Getenv("FINNHUB_ENDPOINT"); v != "" { cfg.Finnhub.Endpoint = v }
    if v := os.Getenv("FINNHUB_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Finnhub.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("FINNHUB_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Finnhub.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("FINNHUB_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Finnhub.Burst = x }
    }

    if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" { cfg.AlphaVantage.APIKey = v }
    if v := os.Getenv("ALPHAVANTAGE_ENDPOINT"); v != "" { cfg.AlphaVantage.Endpoint = v }
    if v := os.Getenv("ALPHAVANTAGE_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.AlphaVantage.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("ALPHAVANTAGE_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.AlphaVantage.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("ALPHAVANTAGE_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.AlphaVantage.Burst = x }
    }

    if v := os.Getenv("STOCKDATA_API_TOKEN"); v != "" { cfg.StockData.APIToken = v }
    if v := os.Getenv("STOCKDATA_ENDPOINT"); v != "" { cfg.StockData.Endpoint = v }
    if v := os.Getenv("STOCKDATA_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.StockData.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("STOCKDATA_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.StockData.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("STOCKDATA_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.StockData.Burst = x }
    }
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
