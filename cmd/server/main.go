package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/gorilla/mux"
    "github.com/sirupsen/logrus"

    "assetfeed/internal/asset"
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

const maxSymbolsPerRequest = 100

type listResponse struct {
    Assets []asset.Summary `json:"assets"`
    Errors []symbolError   `json:"errors"`
}

type symbolError struct {
    Symbol  string `json:"symbol"`
    Message string `json:"message"`
}

type errorResponse struct {
    Error string `json:"error"`
}

func main() {
    log := logrus.New()
    log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil {
        log.WithError(err).Fatal("config")
    }
    if err := cfg.Validate(); err != nil {
        log.WithError(err).Fatal("config")
    }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

    p := buildProvider(cfg, httpClient)
    svc := &fetch.Service{
        Provider:       p,
        DefaultSymbols: cfg.Fetch.Symbols,
        MaxConcurrency: cfg.Fetch.MaxConcurrency,
        HistoryDays:    cfg.Fetch.HistoryDays,
        Log:            log,
    }

    r := mux.NewRouter()
    r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte(`{"status":"ok"}`))
    }).Methods(http.MethodGet)
    r.HandleFunc("/api/assets", handleList(svc)).Methods(http.MethodGet)
    r.HandleFunc("/api/assets/{symbol}", handleDetail(svc)).Methods(http.MethodGet)

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(r)))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.WithFields(logrus.Fields{"port": cfg.Server.Port, "provider": p.Name()}).Info("server listening")
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.WithError(err).Fatal("server")
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

// buildProvider selects the configured adapter and stacks the rate-limit
// and cache decorators around it.
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
        p = stockdata.New(stockdata.Config{
            BaseURL:  cfg.StockData.Endpoint,
            APIToken: cfg.StockData.APIToken,
        }, hc)
        p = limited(p, cfg.StockData.MaxRequestsPerMinute, cfg.StockData.Burst, cfg.StockData.MinRequestIntervalSec)
    default:
        p = finnhub.New(finnhub.Config{
            BaseURL: cfg.Finnhub.Endpoint,
            APIKey:  cfg.Finnhub.APIKey,
        }, hc)
        p = limited(p, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst, cfg.Finnhub.MinRequestIntervalSec)
    }
    if cfg.Fetch.CacheTTLSeconds > 0 {
        p = cache.Wrap(p, time.Duration(cfg.Fetch.CacheTTLSeconds)*time.Second, cfg.Fetch.CacheMaxItems)
    }
    return p
}

// limited prefers a token bucket with burst when an RPM is set, falling
// back to a minimum interval.
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

func handleList(svc *fetch.Service) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        var symbols []string
        if q := strings.TrimSpace(r.URL.Query().Get("symbols")); q != "" {
            symbols = splitCSV(q)
        }
        if len(symbols) > maxSymbolsPerRequest {
            writeError(w, http.StatusBadRequest, "too many symbols")
            return
        }
        ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
        defer cancel()

        res := svc.ListAssets(ctx, symbols)
        resp := listResponse{Assets: res.Assets, Errors: make([]symbolError, 0, len(res.Failures))}
        for _, f := range res.Failures {
            resp.Errors = append(resp.Errors, symbolError{Symbol: f.Symbol, Message: f.Err.Error()})
        }
        status := http.StatusOK
        if len(resp.Assets) == 0 && len(resp.Errors) > 0 {
            status = http.StatusBadGateway
        }
        writeJSON(w, status, resp)
    }
}

func handleDetail(svc *fetch.Service) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        symbol := mux.Vars(r)["symbol"]
        ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
        defer cancel()

        detail, err := svc.AssetDetail(ctx, symbol)
        if err != nil {
            writeError(w, statusFor(err), err.Error())
            return
        }
        writeJSON(w, http.StatusOK, detail)
    }
}

// statusFor maps the aggregation error taxonomy onto response codes.
func statusFor(err error) int {
    if errors.Is(err, provider.ErrMissingAPIKey) {
        return http.StatusInternalServerError
    }
    var he *provider.HTTPError
    if errors.As(err, &he) {
        if he.Timeout {
            return http.StatusGatewayTimeout
        }
        if he.Status == http.StatusNotFound {
            return http.StatusNotFound
        }
        return http.StatusBadGateway
    }
    var pe *provider.PayloadError
    var se *provider.SchemaError
    if errors.As(err, &pe) || errors.As(err, &se) {
        return http.StatusBadGateway
    }
    if errors.Is(err, context.DeadlineExceeded) {
        return http.StatusGatewayTimeout
    }
    return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, errorResponse{Error: msg})
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses the response when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
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
