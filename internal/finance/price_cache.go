package finance

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"telegramRiskBot/internal/risk"
	"telegramRiskBot/internal/storage"
)

// DefaultPriceCacheTTL bounds how old a cached fetch may be before Yahoo is asked again.
const DefaultPriceCacheTTL = 12 * time.Hour

// CachedProvider serves daily closes from SQLite when every requested symbol
// was fetched recently enough, and falls back to the upstream provider otherwise.
type CachedProvider struct {
	upstream risk.PriceProvider
	store    *storage.Store
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

var _ risk.PriceProvider = (*CachedProvider)(nil)

func NewCachedProvider(upstream risk.PriceProvider, store *storage.Store, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultPriceCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		upstream: upstream,
		store:    store,
		ttl:      ttl,
		logger:   logger.Named("price_cache"),
		now:      time.Now,
	}
}

func (c *CachedProvider) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*risk.PriceTable, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	now := c.now()
	start, end = normalizeRange(start, end, now)

	if table, ok := c.fromCache(tickers, start, end, now); ok {
		c.logger.Debug("price cache hit", zap.Strings("symbols", tickers))
		return table, nil
	}

	table, err := c.upstream.FetchPrices(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}
	c.save(table, start, end, now)
	return table, nil
}

func (c *CachedProvider) fromCache(tickers []string, start, end, now time.Time) (*risk.PriceTable, bool) {
	since := now.Add(-c.ttl)
	assets := make([]AssetData, len(tickers))
	for i, symbol := range tickers {
		covered, err := c.store.CoveredSince(symbol, start, end, since)
		if err != nil {
			c.logger.Warn("price cache lookup failed", zap.String("symbol", symbol), zap.Error(err))
			return nil, false
		}
		if !covered {
			return nil, false
		}
		points, err := c.store.LoadPrices(symbol, start, end)
		if err != nil {
			c.logger.Warn("price cache load failed", zap.String("symbol", symbol), zap.Error(err))
			return nil, false
		}
		if len(points) == 0 {
			return nil, false
		}
		asset := AssetData{Symbol: symbol, Dates: make([]time.Time, len(points)), Prices: make([]float64, len(points))}
		for j, p := range points {
			asset.Dates[j] = p.Day
			asset.Prices[j] = p.Close
		}
		assets[i] = asset
	}
	table, err := buildPriceTable(assets)
	if err != nil {
		return nil, false
	}
	return table, true
}

// save stores every observed close of the table. Failures are logged only.
func (c *CachedProvider) save(table *risk.PriceTable, start, end, now time.Time) {
	for col, symbol := range table.Tickers {
		points := make([]storage.PricePoint, 0, len(table.Dates))
		for r, d := range table.Dates {
			p := table.Closes[r][col]
			if math.IsNaN(p) || math.IsInf(p, 0) {
				continue
			}
			points = append(points, storage.PricePoint{Day: d, Close: p})
		}
		if err := c.store.SavePrices(symbol, points); err != nil {
			c.logger.Warn("price cache save failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if err := c.store.RecordFetch(symbol, start, end, now); err != nil {
			c.logger.Warn("price cache record failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
