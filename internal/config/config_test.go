package config

import (
    "errors"
    "os"
    "path/filepath"
    "reflect"
    "strings"
    "testing"

    "assetfeed/internal/provider"
)

func TestDefault(t *testing.T) {
    cfg := Default()
    if cfg.Provider != "finnhub" {
        t.Errorf("provider = %q, want finnhub", cfg.Provider)
    }
    if cfg.Fetch.MaxConcurrency <= 0 {
        t.Errorf("max concurrency = %d, want bounded fan-out", cfg.Fetch.MaxConcurrency)
    }
    if len(cfg.Fetch.Symbols) == 0 {
        t.Error("default symbol list is empty")
    }
    if cfg.Finnhub.APIKey != "" || cfg.AlphaVantage.APIKey != "" || cfg.StockData.APIToken != "" {
        t.Error("defaults must not carry credentials")
    }
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    body := `{
        "provider": "alphavantage",
        "server": {"port": "9090"},
        "fetch": {"symbols": ["IBM"], "history_days": 7}
    }`
    if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
        t.Fatal(err)
    }

    // Env wins over file for the fields it sets.
    t.Setenv("PROVIDER", "stockdata")
    t.Setenv("STOCKDATA_API_TOKEN", "tok-123")
    t.Setenv("SYMBOLS", "AAPL, msft,")
    t.Setenv("CACHE_TTL_SEC", "0")

    cfg, err := Load(path)
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Provider != "stockdata" {
        t.Errorf("provider = %q, want env override stockdata", cfg.Provider)
    }
    if cfg.Server.Port != "9090" {
        t.Errorf("port = %q, want file value 9090", cfg.Server.Port)
    }
    if cfg.Fetch.HistoryDays != 7 {
        t.Errorf("history days = %d, want file value 7", cfg.Fetch.HistoryDays)
    }
    if want := []string{"AAPL", "msft"}; !reflect.DeepEqual(cfg.Fetch.Symbols, want) {
        t.Errorf("symbols = %v, want %v", cfg.Fetch.Symbols, want)
    }
    if cfg.Fetch.CacheTTLSeconds != 0 {
        t.Errorf("cache ttl = %d, want 0 (explicitly disabled)", cfg.Fetch.CacheTTLSeconds)
    }
    if cfg.StockData.APIToken != "tok-123" {
        t.Errorf("token = %q", cfg.StockData.APIToken)
    }
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Provider != "finnhub" {
        t.Errorf("provider = %q, want default", cfg.Provider)
    }
}

func TestLoad_MalformedFile(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
        t.Fatal(err)
    }
    if _, err := Load(path); err == nil {
        t.Error("expected parse error")
    }
}

func TestValidate_MissingCredentialIsFatal(t *testing.T) {
    for _, name := range []string{"finnhub", "alphavantage", "stockdata"} {
        cfg := Default()
        cfg.Provider = name
        err := cfg.Validate()
        if !errors.Is(err, provider.ErrMissingAPIKey) {
            t.Errorf("%s: err = %v, want ErrMissingAPIKey", name, err)
        }
        if !strings.Contains(err.Error(), name) {
            t.Errorf("%s: error %q does not name the provider", name, err)
        }
    }
}

func TestValidate_KnownProviderWithCredential(t *testing.T) {
    cfg := Default()
    cfg.Provider = "Finnhub" // case-insensitive
    cfg.Finnhub.APIKey = "k"
    if err := cfg.Validate(); err != nil {
        t.Errorf("Validate: %v", err)
    }
}

func TestValidate_UnknownProvider(t *testing.T) {
    cfg := Default()
    cfg.Provider = "bloomberg"
    err := cfg.Validate()
    if err == nil || !strings.Contains(err.Error(), "bloomberg") {
        t.Errorf("err = %v, want unknown-provider error naming it", err)
    }
}

func TestSplitCSV(t *testing.T) {
    got := splitCSV(" a ,, b,c ")
    if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
        t.Errorf("splitCSV = %v, want %v", got, want)
    }
}
