package stockdata

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"

    "assetfeed/internal/asset"
    "assetfeed/internal/httpx"
    "assetfeed/internal/provider"
)

// Config controls the StockData provider behavior.
type Config struct {
    Name     string
    BaseURL  string
    APIToken string
    Headers  map[string]string // optional extra headers
}

// Provider fetches from a StockData-shaped API. Its quote endpoint is
// batch-capable (symbols=A,B,C), so it also implements
// provider.BatchSummarizer. The api_token query parameter is redacted
// from anything the provider reports.
type Provider struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
    if cfg.Name == "" { cfg.Name = "StockData" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://api.stockdata.org/v1" }
    return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Summaries fetches quotes for all symbols in one upstream call. Symbols
// the provider does not know are simply absent from the returned map.
func (p *Provider) Summaries(ctx context.Context, symbols []string) (map[string]asset.Summary, error) {
    var raw quoteEnvelope
    params := url.Values{"symbols": {strings.Join(symbols, ",")}}
    if err := p.get(ctx, "/data/quote", strings.Join(symbols, ","), params, &raw); err != nil {
        return nil, err
    }
    if raw.Error != nil {
        return nil, &provider.PayloadError{
            Provider: p.cfg.Name,
            Endpoint: "/data/quote",
            Symbol:   strings.Join(symbols, ","),
            Detail:   raw.Error.String(),
        }
    }
    out := make(map[string]asset.Summary, len(raw.Data))
    for _, rec := range raw.Data {
        s, err := normalizeSummary(rec)
        if err != nil {
            return nil, err
        }
        out[s.Symbol] = s
    }
    return out, nil
}

func (p *Provider) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
    s, err := p.summary(ctx, symbol)
    if err != nil {
        return asset.Quote{}, err
    }
    return asset.Quote{
        Symbol:        s.Symbol,
        Price:         s.Price,
        DayHigh:       s.DayHigh,
        DayLow:        s.DayLow,
        DayOpen:       s.DayOpen,
        PreviousClose: s.PreviousClose,
        Change:        s.Change,
        ChangePercent: s.ChangePercent,
    }, nil
}

// Profile derives the descriptive fragment from the quote record; the
// upstream has no sector/industry/ratio data, so those fields take the
// canonical defaults.
func (p *Provider) Profile(ctx context.Context, symbol string) (asset.Profile, error) {
    s, err := p.summary(ctx, symbol)
    if err != nil {
        return asset.Profile{}, err
    }
    return asset.Profile{
        Name:      s.Name,
        MarketCap: s.MarketCap,
        Sector:    unknown,
        Industry:  unknown,
    }, nil
}

func (p *Provider) History(ctx context.Context, symbol string, from, to time.Time) ([]asset.PricePoint, error) {
    params := url.Values{
        "symbols":   {symbol},
        "date_from": {asset.Day(from)},
        "date_to":   {asset.Day(to)},
    }
    var raw eodEnvelope
    if err := p.get(ctx, "/data/eod", symbol, params, &raw); err != nil {
        return nil, err
    }
    if raw.Error != nil {
        return nil, &provider.PayloadError{Provider: p.cfg.Name, Endpoint: "/data/eod", Symbol: symbol, Detail: raw.Error.String()}
    }
    return normalizeEOD(raw.Data), nil
}

func (p *Provider) summary(ctx context.Context, symbol string) (asset.Summary, error) {
    m, err := p.Summaries(ctx, []string{symbol})
    if err != nil {
        return asset.Summary{}, err
    }
    s, ok := m[strings.ToUpper(strings.TrimSpace(symbol))]
    if !ok {
        return asset.Summary{}, &provider.PayloadError{Provider: p.cfg.Name, Endpoint: "/data/quote", Symbol: symbol, Detail: "symbol absent from response"}
    }
    return s, nil
}

// get issues exactly one GET and decodes the JSON body into v.
func (p *Provider) get(ctx context.Context, endpoint, symbol string, params url.Values, v any) error {
    if p.cfg.APIToken == "" {
        return provider.ErrMissingAPIKey
    }
    params.Set("api_token", p.cfg.APIToken)
    u := p.cfg.BaseURL + endpoint + "?" + params.Encode()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
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
            Body:     httpx.RedactQuery(strings.TrimSpace(string(b))),
        }
    }
    if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
        return &provider.PayloadError{Provider: p.cfg.Name, Endpoint: endpoint, Symbol: symbol, Detail: fmt.Sprintf("decode: %v", err)}
    }
    return nil
}

// Wire shapes. StockData reports errors in-band with HTTP 200 as
// {"error":{"code":...,"message":...}}.

type apiError struct {
    Code    string `json:"code"`
    Message string `json:"message"`
}

func (e *apiError) String() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

type quoteEnvelope struct {
    Data  []quoteRecord `json:"data"`
    Error *apiError     `json:"error"`
}

type quoteRecord struct {
    Ticker        string   `json:"ticker"`
    Name          string   `json:"name"`
    Price         *float64 `json:"price"`
    DayHigh       *float64 `json:"day_high"`
    DayLow        *float64 `json:"day_low"`
    DayOpen       *float64 `json:"day_open"`
    PreviousClose *float64 `json:"previous_close_price"`
    DayChangePct  *float64 `json:"day_change"` // percentage
    MarketCap     *float64 `json:"market_cap"`
}

type eodEnvelope struct {
    Data  []eodRecord `json:"data"`
    Error *apiError   `json:"error"`
}

type eodRecord struct {
    Date  string  `json:"date"` // ISO timestamp, e.g. 2024-01-02T00:00:00.000000Z
    Close float64 `json:"close"`
}
