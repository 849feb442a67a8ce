package alphavantage_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"assetfeed/internal/provider"
	"assetfeed/internal/provider/alphavantage"
)

func jsonResponse(t *testing.T, body string) *http.Response {
	t.Helper()
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			require.Equal(t, "test-key", req.URL.Query().Get("apikey"))

			return jsonResponse(t, `{"Global Quote": {
                "01. symbol": "AAPL",
                "02. open": "189.00",
                "03. high": "191.20",
                "04. low": "188.10",
                "05. price": "190.50",
                "08. previous close": "189.00",
                "09. change": "1.50",
                "10. change percent": "0.7937%"
            }}`), nil
		}).
		Times(1)

	// Arrange: create a client with the mock HTTP client
	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	// Act
	q, err := client.Quote(context.Background(), "AAPL")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.InEpsilon(t, 190.50, q.Price, 0.0001)
	require.InEpsilon(t, 0.7937, q.ChangePercent, 0.0001)
	require.InEpsilon(t, 1.50, q.Change, 0.0001)
}

func TestQuote_InBandNoteFails(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// A 200 with a throttling Note must be treated as a failure.
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, `{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`), nil).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	_, err := client.Quote(context.Background(), "AAPL")
	var pe *provider.PayloadError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, pe.Detail, "rate limit")
}

func TestQuote_MissingSymbolIsSchemaError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, `{"Global Quote": {"05. price": "10.00"}}`), nil).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	_, err := client.Quote(context.Background(), "AAPL")
	var se *provider.SchemaError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "symbol", se.Field)
}

func TestProfile_DividendYieldFractionToPercent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "OVERVIEW", req.URL.Query().Get("function"))
			return jsonResponse(t, `{
                "Symbol": "AAPL",
                "Name": "Apple Inc",
                "Sector": "TECHNOLOGY",
                "Industry": "ELECTRONIC COMPUTERS",
                "MarketCapitalization": "2900000000000",
                "PERatio": "28.3",
                "DividendYield": "0.0055"
            }`), nil
		}).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	p, err := client.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "Apple Inc", p.Name)
	require.Equal(t, "TECHNOLOGY", p.Sector)
	// upstream fraction, canonical percentage
	require.InEpsilon(t, 0.55, p.DividendYieldPercent, 0.0001)
	require.InEpsilon(t, 28.3, p.PERatio, 0.0001)
}

func TestProfile_NegativeRatiosClampedToZero(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, `{
            "Symbol": "AAPL",
            "PERatio": "-4.5",
            "DividendYield": "-0.01"
        }`), nil).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	p, err := client.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Zero(t, p.PERatio)
	require.Zero(t, p.DividendYieldPercent)
}

func TestProfile_DefaultsForAbsentFields(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, `{"Symbol": "AAPL", "PERatio": "None"}`), nil).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	p, err := client.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "Unknown", p.Sector)
	require.Equal(t, "Unknown", p.Industry)
	require.Zero(t, p.PERatio)
	require.Zero(t, p.DividendYieldPercent)
}

func TestHistory_WindowedAndAscending(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	to := time.Now().UTC()
	recent := to.AddDate(0, 0, -2).Format("2006-01-02")
	older := to.AddDate(0, 0, -5).Format("2006-01-02")
	outside := to.AddDate(0, 0, -60).Format("2006-01-02")

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, `{"Time Series (Daily)": {
            "`+recent+`": {"4. close": "102.00"},
            "`+older+`": {"4. close": "100.00"},
            "`+outside+`": {"4. close": "90.00"}
        }}`), nil).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	points, err := client.History(context.Background(), "AAPL", to.AddDate(0, 0, -30), to)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, older, points[0].Date)
	require.Equal(t, recent, points[1].Date)
}

func TestMissingAPIKey_NoCallAttempted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: no network call is ever attempted without a credential.
	httpClient.EXPECT().
		Do(gomock.Any()).
		Times(0)

	client := alphavantage.New("", alphavantage.WithHTTPClient(httpClient))

	_, err := client.Quote(context.Background(), "AAPL")
	require.ErrorIs(t, err, provider.ErrMissingAPIKey)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	baseURL := "http://localhost:8080/query"

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, len(req.URL.String()) >= len(baseURL) && req.URL.String()[:len(baseURL)] == baseURL,
				"expected url to start with base url, received: %s", req.URL.String())
			return jsonResponse(t, `{"Global Quote": {"01. symbol": "AAPL"}}`), nil
		}).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient), alphavantage.WithBaseURL(baseURL))

	_, err := client.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
}

func TestQuote_HTTPStatusError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(bytes.NewBufferString("maintenance")),
		}, nil).
		Times(1)

	client := alphavantage.New("test-key", alphavantage.WithHTTPClient(httpClient))

	_, err := client.Quote(context.Background(), "AAPL")
	var he *provider.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusServiceUnavailable, he.Status)
	require.Contains(t, he.Body, "maintenance")
}

func TestHTTPError_BodyRedacted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// An upstream error body echoing the request URL must not leak the
	// apikey query value into the error string.
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusForbidden,
			Body: io.NopCloser(bytes.NewBufferString(
				`rejected: https://www.alphavantage.co/query?apikey=sk-123&function=GLOBAL_QUOTE&symbol=AAPL`)),
		}, nil).
		Times(1)

	client := alphavantage.New("sk-123", alphavantage.WithHTTPClient(httpClient))

	_, err := client.Quote(context.Background(), "AAPL")
	var he *provider.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Status)
	require.NotContains(t, err.Error(), "sk-123")
}
