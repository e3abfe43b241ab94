package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrNoData        = errors.New("no price data")

	errNoHosts = errors.New("yahoo: no hosts configured")
)

const (
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

	DefaultMaxTries    = 4
	DefaultConcurrency = 4
)

var defaultYahooHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

// YahooClient loads adjusted daily closes from the Yahoo v8 chart API.
type YahooClient struct {
	httpClient     *http.Client
	baseURLs       []string
	maxTries       uint
	initialBackoff time.Duration
	concurrency    int
	logger         *zap.Logger
}

type YahooOption func(*YahooClient)

func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *YahooClient) { y.httpClient = c }
}

// WithBaseURLs replaces the Yahoo hosts; each is tried in order per attempt.
// An empty list keeps the defaults.
func WithBaseURLs(urls ...string) YahooOption {
	return func(y *YahooClient) {
		if len(urls) > 0 {
			y.baseURLs = urls
		}
	}
}

func WithMaxTries(n uint) YahooOption {
	return func(y *YahooClient) {
		if n > 0 {
			y.maxTries = n
		}
	}
}

func WithInitialBackoff(d time.Duration) YahooOption {
	return func(y *YahooClient) {
		if d > 0 {
			y.initialBackoff = d
		}
	}
}

func WithConcurrency(n int) YahooOption {
	return func(y *YahooClient) {
		if n > 0 {
			y.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) YahooOption {
	return func(y *YahooClient) {
		if l != nil {
			y.logger = l
		}
	}
}

func NewYahooClient(opts ...YahooOption) *YahooClient {
	y := &YahooClient{
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		baseURLs:       defaultYahooHosts,
		maxTries:       DefaultMaxTries,
		initialBackoff: 200 * time.Millisecond,
		concurrency:    DefaultConcurrency,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(y)
	}
	y.logger = y.logger.Named("yahoo")
	return y
}

// fetchDaily fetches daily closes for one symbol, rotating hosts and retrying
// transient failures with exponential backoff. Unknown symbols fail at once.
func (c *YahooClient) fetchDaily(ctx context.Context, symbol string, start, end time.Time) (AssetData, error) {
	if len(c.baseURLs) == 0 {
		return AssetData{}, errNoHosts
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxInterval = c.initialBackoff * 10

	notify := func(err error, d time.Duration) {
		c.logger.Info("retrying price fetch", zap.String("symbol", symbol), zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() (AssetData, error) {
		var lastErr error
		for _, base := range c.baseURLs {
			asset, err := c.fetchChart(ctx, base, symbol, start, end)
			if err == nil {
				return asset, nil
			}
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return AssetData{}, err
			}
			lastErr = err
		}
		return AssetData{}, lastErr
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(notify))
}

func (c *YahooClient) fetchChart(ctx context.Context, base, symbol string, start, end time.Time) (AssetData, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	// period2 is exclusive; include the end date's bar.
	q.Set("period2", strconv.FormatInt(end.Add(24*time.Hour).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(base, "/"), url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return AssetData{}, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", symbol))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AssetData{}, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return AssetData{}, fmt.Errorf("failed to read yahoo response: %w", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return AssetData{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol))
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return AssetData{}, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", req.URL.Host)
	case resp.StatusCode >= 500:
		return AssetData{}, fmt.Errorf("yahoo %s returned %d: %s", req.URL.Host, resp.StatusCode, preview(body))
	case resp.StatusCode != http.StatusOK:
		return AssetData{}, backoff.Permanent(fmt.Errorf("yahoo %s returned %d: %s", req.URL.Host, resp.StatusCode, preview(body)))
	}
	if strings.HasPrefix(string(body), "<") {
		return AssetData{}, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}

	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return AssetData{}, fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	if e := yc.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return AssetData{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol))
		}
		return AssetData{}, backoff.Permanent(fmt.Errorf("yahoo error for %s: %s: %s", symbol, e.Code, e.Description))
	}
	if len(yc.Chart.Result) == 0 {
		return AssetData{}, backoff.Permanent(fmt.Errorf("%w for %s", ErrNoData, symbol))
	}

	res := yc.Chart.Result[0]
	var closes []*float64
	if len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = res.Indicators.AdjClose[0].AdjClose
	} else if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}
	ts, cl := filterObserved(res.Timestamp, closes)
	if len(ts) == 0 {
		return AssetData{}, backoff.Permanent(fmt.Errorf("%w for %s between %s and %s", ErrNoData, symbol,
			start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	loc := exchangeLocation(res.Meta.ExchangeTimezoneName)
	asset := AssetData{
		Symbol: symbol,
		Dates:  make([]time.Time, len(ts)),
		Prices: cl,
	}
	for i, t := range ts {
		asset.Dates[i] = tradingDay(t, loc)
	}
	return asset, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
