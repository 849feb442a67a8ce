package alphavantage

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

const defaultBaseURL = "https://www.alphavantage.co/query"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=alphavantage.go HTTPClient
type HTTPClient interface {
    Do(req *http.Request) (*http.Response, error)
}

// Client is a provider backed by an Alpha Vantage-shaped API. Every
// operation is one GET against the single query endpoint, dispatched by
// the "function" parameter.
type Client struct {
    name       string
    baseURL    string
    apiKey     string
    httpClient HTTPClient
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
    return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient HTTPClient) Option {
    return func(c *Client) { c.httpClient = httpClient }
}

// New creates an Alpha Vantage client. The key is injected into each
// request as the apikey query parameter and redacted from anything the
// client reports.
func New(apiKey string, options ...Option) *Client {
    c := &Client{
        name:       "AlphaVantage",
        baseURL:    defaultBaseURL,
        apiKey:     apiKey,
        httpClient: http.DefaultClient,
    }
    for _, option := range options {
        option(c)
    }
    return c
}

func (c *Client) Name() string { return c.name }

func (c *Client) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
    var raw globalQuoteResponse
    if err := c.get(ctx, "GLOBAL_QUOTE", symbol, nil, &raw); err != nil {
        return asset.Quote{}, err
    }
    if msg := raw.inBandError(); msg != "" {
        return asset.Quote{}, &provider.PayloadError{Provider: c.name, Endpoint: "GLOBAL_QUOTE", Symbol: symbol, Detail: msg}
    }
    return normalizeQuote(raw.GlobalQuote)
}

func (c *Client) Profile(ctx context.Context, symbol string) (asset.Profile, error) {
    var raw overviewResponse
    if err := c.get(ctx, "OVERVIEW", symbol, nil, &raw); err != nil {
        return asset.Profile{}, err
    }
    if msg := raw.inBandError(); msg != "" {
        return asset.Profile{}, &provider.PayloadError{Provider: c.name, Endpoint: "OVERVIEW", Symbol: symbol, Detail: msg}
    }
    return normalizeOverview(raw), nil
}

func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) ([]asset.PricePoint, error) {
    var raw dailySeriesResponse
    if err := c.get(ctx, "TIME_SERIES_DAILY", symbol, url.Values{"outputsize": {"compact"}}, &raw); err != nil {
        return nil, err
    }
    if msg := raw.inBandError(); msg != "" {
        return nil, &provider.PayloadError{Provider: c.name, Endpoint: "TIME_SERIES_DAILY", Symbol: symbol, Detail: msg}
    }
    return normalizeSeries(raw.Series, asset.Day(from), asset.Day(to)), nil
}

func (c *Client) get(ctx context.Context, function, symbol string, extra url.Values, v any) error {
    if c.apiKey == "" {
        return provider.ErrMissingAPIKey
    }
    q := url.Values{}
    q.Set("function", function)
    q.Set("symbol", symbol)
    q.Set("apikey", c.apiKey)
    for k, vals := range extra {
        for _, val := range vals {
            q.Add(k, val)
        }
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), http.NoBody)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
    resp, err := c.httpClient.Do(req)
    if err != nil {
        return provider.WrapTransport(c.name, function, symbol, err)
    }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
        return &provider.HTTPError{
            Provider: c.name,
            Endpoint: function,
            Symbol:   symbol,
            Status:   resp.StatusCode,
            Body:     httpx.RedactQuery(strings.TrimSpace(string(b))),
        }
    }
    if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
        return &provider.PayloadError{Provider: c.name, Endpoint: function, Symbol: symbol, Detail: fmt.Sprintf("decode: %v", err)}
    }
    return nil
}

// Wire shapes. Alpha Vantage delivers everything as strings under
// numbered keys, and reports errors in-band with HTTP 200.

type inBand struct {
    Information  string `json:"Information,omitempty"`
    Note         string `json:"Note,omitempty"`
    ErrorMessage string `json:"Error Message,omitempty"`
}

func (e inBand) inBandError() string {
    switch {
    case e.ErrorMessage != "":
        return e.ErrorMessage
    case e.Information != "":
        return e.Information
    case e.Note != "":
        return e.Note
    }
    return ""
}

type globalQuoteResponse struct {
    inBand
    GlobalQuote globalQuote `json:"Global Quote"`
}

type globalQuote struct {
    Symbol        string `json:"01. symbol"`
    Open          string `json:"02. open"`
    High          string `json:"03. high"`
    Low           string `json:"04. low"`
    Price         string `json:"05. price"`
    PreviousClose string `json:"08. previous close"`
    Change        string `json:"09. change"`
    ChangePercent string `json:"10. change percent"`
}

type overviewResponse struct {
    inBand
    Symbol        string `json:"Symbol"`
    Name          string `json:"Name"`
    Sector        string `json:"Sector"`
    Industry      string `json:"Industry"`
    MarketCap     string `json:"MarketCapitalization"`
    PERatio       string `json:"PERatio"`
    DividendYield string `json:"DividendYield"` // fraction, e.g. 0.0054
}

type dailySeriesResponse struct {
    inBand
    Series map[string]dailyBar `json:"Time Series (Daily)"`
}

type dailyBar struct {
    Close string `json:"4. close"`
}
