package provider

import (
    "context"
    "errors"
    "fmt"
    "net"
    "net/url"
)

// ErrMissingAPIKey reports an absent upstream credential. Adapters return
// it before attempting any network call; callers treat it as fatal, not
// retryable.
var ErrMissingAPIKey = errors.New("missing API key")

// HTTPError is a failed upstream HTTP exchange: a non-2xx status, a
// transport failure, or a timeout (Status 0, Timeout true).
type HTTPError struct {
    Provider string
    Endpoint string
    Symbol   string
    Status   int
    Body     string
    Timeout  bool
}

func (e *HTTPError) Error() string {
    if e.Timeout {
        return fmt.Sprintf("%s %s symbol=%s: timeout", e.Provider, e.Endpoint, e.Symbol)
    }
    return fmt.Sprintf("%s %s symbol=%s: status %d: %s", e.Provider, e.Endpoint, e.Symbol, e.Status, e.Body)
}

// PayloadError is a 200-status response that cannot be used: malformed
// JSON, or a provider's in-band error field.
type PayloadError struct {
    Provider string
    Endpoint string
    Symbol   string
    Detail   string
}

func (e *PayloadError) Error() string {
    return fmt.Sprintf("%s %s symbol=%s: bad payload: %s", e.Provider, e.Endpoint, e.Symbol, e.Detail)
}

// SchemaError reports a parsed record missing a field required to
// establish identity. Only the symbol qualifies; every other field has a
// documented default.
type SchemaError struct {
    Provider string
    Field    string
}

func (e *SchemaError) Error() string {
    return fmt.Sprintf("%s: missing required field %q", e.Provider, e.Field)
}

// WrapTransport converts a transport-level error from an outbound call
// into an *HTTPError, flagging timeouts so callers can map them
// distinctly.
func WrapTransport(providerName, endpoint, symbol string, err error) error {
    he := &HTTPError{Provider: providerName, Endpoint: endpoint, Symbol: symbol}
    var ne net.Error
    if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
        he.Timeout = true
        return he
    }
    // Strip the full URL a *url.Error carries; query strings may hold the
    // credential.
    var ue *url.Error
    if errors.As(err, &ue) && ue.Err != nil {
        he.Body = ue.Err.Error()
    } else {
        he.Body = err.Error()
    }
    return he
}
