package finance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"telegramRiskBot/internal/risk"
)

// DefaultWindow is the lookback used when none is given.
const DefaultWindow = "1y"

var _ risk.PriceProvider = (*YahooClient)(nil)

// WindowRange converts a lookback such as 10d, 3w, 6m or 2y into a date
// range ending at now.
func WindowRange(window string, now time.Time) (time.Time, time.Time, error) {
	window = strings.ToLower(strings.TrimSpace(window))
	if window == "" {
		window = DefaultWindow
	}
	if len(window) < 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 5d, 3w, 6m, 1y)", window)
	}
	n, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || n <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 5d, 3w, 6m, 1y)", window)
	}

	end := dayKey(now)
	var start time.Time
	switch window[len(window)-1] {
	case 'd':
		start = end.AddDate(0, 0, -n)
	case 'w':
		start = end.AddDate(0, 0, -7*n)
	case 'm':
		start = end.AddDate(0, -n, 0)
	case 'y':
		start = end.AddDate(-n, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 5d, 3w, 6m, 1y)", window)
	}
	return start, end, nil
}

// normalizeRange fills a zero end with today and a zero start with one year
// before end.
func normalizeRange(start, end, now time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = now
	}
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}
	return dayKey(start), dayKey(end)
}

// FetchPrices loads every ticker concurrently and aligns them into one table.
func (c *YahooClient) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*risk.PriceTable, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	start, end = normalizeRange(start, end, time.Now())

	assets := make([]AssetData, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, symbol := range tickers {
		g.Go(func() error {
			asset, err := c.fetchDaily(gctx, symbol, start, end)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", symbol, err)
			}
			// columns keep the caller's spelling so Select matches the request
			asset.Symbol = symbol
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table, err := buildPriceTable(assets)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("price table built",
		zap.Strings("symbols", tickers),
		zap.Int("rows", table.Rows()),
		zap.Time("start", start),
		zap.Time("end", end))
	return table, nil
}

// buildPriceTable aligns assets on the union of their trading days. A day on
// which an asset has no bar is left as NaN for the return statistics to fill.
func buildPriceTable(assets []AssetData) (*risk.PriceTable, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets provided")
	}

	unified := make(map[int64]time.Time)
	priceMaps := make([]map[int64]float64, len(assets))
	for i, asset := range assets {
		if len(asset.Dates) != len(asset.Prices) {
			return nil, fmt.Errorf("asset %s has %d dates and %d prices", asset.Symbol, len(asset.Dates), len(asset.Prices))
		}
		mp := make(map[int64]float64, len(asset.Dates))
		for j, d := range asset.Dates {
			key := d.Unix()
			unified[key] = d
			// Yahoo may append an intraday bar for the current session; the last one wins.
			mp[key] = asset.Prices[j]
		}
		priceMaps[i] = mp
	}
	if len(unified) == 0 {
		return nil, fmt.Errorf("no timestamps found for %s", symbolsOf(assets))
	}

	keys := make([]int64, 0, len(unified))
	for k := range unified {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	table := &risk.PriceTable{
		Dates:   make([]time.Time, len(keys)),
		Tickers: make([]string, len(assets)),
		Closes:  make([][]float64, len(keys)),
	}
	for i, asset := range assets {
		table.Tickers[i] = asset.Symbol
	}
	for r, k := range keys {
		table.Dates[r] = unified[k]
		row := make([]float64, len(assets))
		for i, mp := range priceMaps {
			if p, ok := mp[k]; ok {
				row[i] = p
			} else {
				row[i] = math.NaN()
			}
		}
		table.Closes[r] = row
	}
	return table, nil
}

func symbolsOf(assets []AssetData) string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Symbol
	}
	return strings.Join(out, ", ")
}
