package finance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-02, 2024-01-03 and 2024-01-04 at the 09:30 New York open.
const chartBody = `{"chart":{"result":[{
	"meta":{"symbol":"%s","currency":"USD","exchangeTimezoneName":"America/New_York"},
	"timestamp":[1704205800,1704292200,1704378600],
	"indicators":{
		"quote":[{"close":[101,102,103]}],
		"adjclose":[{"adjclose":[%s]}]
	}}],"error":null}}`

func newTestClient(urls ...string) *YahooClient {
	return NewYahooClient(
		WithBaseURLs(urls...),
		WithInitialBackoff(time.Millisecond),
		WithMaxTries(3),
	)
}

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetchDailyPrefersAdjustedCloseAndDropsNulls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/SPY", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprintf(w, chartBody, "SPY", "100,null,102")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	asset, err := c.fetchDaily(context.Background(), "spy", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, "SPY", asset.Symbol)
	assert.Equal(t, []time.Time{utcDay(2024, 1, 2), utcDay(2024, 1, 4)}, asset.Dates)
	assert.Equal(t, []float64{100, 102}, asset.Prices)
}

func TestFetchDailyFallsBackToClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{},"timestamp":[1704205800,1704292200],
			"indicators":{"quote":[{"close":[10.5,11]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	asset, err := newTestClient(srv.URL).fetchDaily(context.Background(), "X", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 11}, asset.Prices)
	assert.Equal(t, utcDay(2024, 1, 2), asset.Dates[0])
}

func TestFetchDailyUnknownSymbolIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).fetchDaily(context.Background(), "NOPE", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDailyChartErrorInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).fetchDaily(context.Background(), "NOPE", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestFetchDailyRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, "Edge: Too Many Requests")
			return
		}
		fmt.Fprintf(w, chartBody, "SPY", "100,101,102")
	}))
	defer srv.Close()

	asset, err := newTestClient(srv.URL).fetchDaily(context.Background(), "SPY", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)
	assert.Len(t, asset.Prices, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDailyRotatesHosts(t *testing.T) {
	var badCalls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, chartBody, "SPY", "100,101,102")
	}))
	defer good.Close()

	asset, err := newTestClient(bad.URL, good.URL).fetchDaily(context.Background(), "SPY", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)
	assert.Len(t, asset.Prices, 3)
	assert.Equal(t, int32(1), badCalls.Load())
}

func TestFetchDailyGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).fetchDaily(context.Background(), "SPY", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDailyEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, chartBody, "SPY", "null,null,null")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).fetchDaily(context.Background(), "SPY", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFetchPricesAlignsSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/AAA"):
			fmt.Fprintf(w, chartBody, "AAA", "10,11,12")
		case strings.HasSuffix(r.URL.Path, "/BBB"):
			fmt.Fprintf(w, chartBody, "BBB", "20,null,22")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	table, err := newTestClient(srv.URL).FetchPrices(context.Background(), []string{"BBB", "AAA"}, utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, []string{"BBB", "AAA"}, table.Tickers)
	require.Equal(t, 3, table.Rows())
	assert.Equal(t, []float64{20, 10}, table.Closes[0])
	assert.True(t, math.IsNaN(table.Closes[1][0]))
	assert.Equal(t, 11.0, table.Closes[1][1])
	assert.Equal(t, []float64{22, 12}, table.Closes[2])
}

func TestFetchPricesUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/AAA") {
			fmt.Fprintf(w, chartBody, "AAA", "10,11,12")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPrices(context.Background(), []string{"AAA", "ZZZ"}, utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "ZZZ")
}

func TestFetchPricesKeepsRequestedSymbolCase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAA" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, chartBody, "AAA", "10,11,12")
	}))
	defer srv.Close()

	table, err := newTestClient(srv.URL).FetchPrices(context.Background(), []string{"aaa"}, utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa"}, table.Tickers)
	assert.Equal(t, 3, table.Rows())
}

func TestWithBaseURLsEmptyKeepsDefaults(t *testing.T) {
	c := NewYahooClient(WithBaseURLs())
	assert.Equal(t, defaultYahooHosts, c.baseURLs)
}

func TestFetchDailyWithoutHosts(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	c.baseURLs = nil

	asset, err := c.fetchDaily(context.Background(), "SPY", utcDay(2024, 1, 1), utcDay(2024, 1, 5))
	require.Error(t, err)
	assert.Empty(t, asset.Symbol)
	assert.Contains(t, err.Error(), "no hosts")
}

func TestFetchPricesNoSymbols(t *testing.T) {
	_, err := NewYahooClient().FetchPrices(context.Background(), nil, time.Time{}, time.Time{})
	assert.Error(t, err)
}
