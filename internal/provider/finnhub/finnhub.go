package finnhub

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "assetfeed/internal/asset"
    "assetfeed/internal/httpx"
    "assetfeed/internal/provider"
)

// Config controls the Finnhub provider behavior.
type Config struct {
    Name    string
    BaseURL string
    APIKey  string
    Headers map[string]string // optional extra headers
}

// Provider fetches quotes, company profiles and daily candles from a
// Finnhub-shaped API. The credential travels in the X-Finnhub-Token
// header, never in the URL.
type Provider struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
    if cfg.Name == "" { cfg.Name = "Finnhub" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://finnhub.io/api/v1" }
    return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
    var raw quoteResponse
    if err := p.get(ctx, "/quote", symbol, url.Values{"symbol": {symbol}}, &raw); err != nil {
        return asset.Quote{}, err
    }
    if raw.Error != "" {
        return asset.Quote{}, &provider.PayloadError{Provider: p.cfg.Name, Endpoint: "/quote", Symbol: symbol, Detail: raw.Error}
    }
    return normalizeQuote(symbol, raw)
}

func (p *Provider) Profile(ctx context.Context, symbol string) (asset.Profile, error) {
    var prof profileResponse
    if err := p.get(ctx, "/stock/profile2", symbol, url.Values{"symbol": {symbol}}, &prof); err != nil {
        return asset.Profile{}, err
    }
    if prof.Error != "" {
        return asset.Profile{}, &provider.PayloadError{Provider: p.cfg.Name, Endpoint: "/stock/profile2", Symbol: symbol, Detail: prof.Error}
    }
    var met metricResponse
    if err := p.get(ctx, "/stock/metric", symbol, url.Values{"symbol": {symbol}, "metric": {"all"}}, &met); err != nil {
        return asset.Profile{}, err
    }
    if met.Error != "" {
        return asset.Profile{}, &provider.PayloadError{Provider: p.cfg.Name, Endpoint: "/stock/metric", Symbol: symbol, Detail: met.Error}
    }
    return normalizeProfile(prof, met), nil
}

func (p *Provider) History(ctx context.Context, symbol string, from, to time.Time) ([]asset.PricePoint, error) {
    params := url.Values{
        "symbol":     {symbol},
        "resolution": {"D"},
        "from":       {strconv.FormatInt(from.Unix(), 10)},
        "to":         {strconv.FormatInt(to.Unix(), 10)},
    }
    var raw candleResponse
    if err := p.get(ctx, "/stock/candle", symbol, params, &raw); err != nil {
        return nil, err
    }
    if raw.Error != "" {
        return nil, &provider.PayloadError{Provider: p.cfg.Name, Endpoint: "/stock/candle", Symbol: symbol, Detail: raw.Error}
    }
    return normalizeCandles(p.cfg.Name, symbol, raw)
}

// get issues exactly one GET to endpoint and decodes the JSON body into v.
func (p *Provider) get(ctx context.Context, endpoint, symbol string, params url.Values, v any) error {
    if p.cfg.APIKey == "" {
        return provider.ErrMissingAPIKey
    }
    u := p.cfg.BaseURL + endpoint + "?" + params.Encode()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
    req.Header.Set("X-Finnhub-Token", p.cfg.APIKey)
    for k, val := range p.cfg.Headers { req.Header.Set(k, val) }
    resp, err := p.client.Do(ctx, req)
    if err != nil {
        return provider.WrapTransport(p.cfg.Name, endpoint, symbol, err)
    }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
        return &provider.HTTPError{
            Provider: p.cfg.Name,
            Endpoint: endpoint,
            Symbol:   symbol,
            Status:   resp.StatusCode,
            Body:     strings.TrimSpace(string(b)),
        }
    }
    if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
        return &provider.PayloadError{Provider: p.cfg.Name, Endpoint: endpoint, Symbol: symbol, Detail: fmt.Sprintf("decode: %v", err)}
    }
    return nil
}

// Wire shapes. Numeric fields are pointers: Finnhub reports null for
// change/percent outside trading hours and for unknown symbols.
type quoteResponse struct {
    C     *float64 `json:"c"`  // current price
    D     *float64 `json:"d"`  // change
    Dp    *float64 `json:"dp"` // change percent
    H     *float64 `json:"h"`
    L     *float64 `json:"l"`
    O     *float64 `json:"o"`
    Pc    *float64 `json:"pc"`
    Error string   `json:"error"`
}

type profileResponse struct {
    Name      string   `json:"name"`
    Ticker    string   `json:"ticker"`
    MarketCap *float64 `json:"marketCapitalization"` // reported in millions
    Industry  string   `json:"finnhubIndustry"`
    Error     string   `json:"error"`
}

type metricResponse struct {
    Metric struct {
        PE            *float64 `json:"peBasicExclExtraTTM"`
        DividendYield *float64 `json:"dividendYieldIndicatedAnnual"` // already a percentage
    } `json:"metric"`
    Error string `json:"error"`
}

type candleResponse struct {
    Status     string    `json:"s"`
    Timestamps []int64   `json:"t"` // epoch seconds
    Closes     []float64 `json:"c"`
    Error      string    `json:"error"`
}
