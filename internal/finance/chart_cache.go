package finance

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"telegramRiskBot/internal/risk"
)

var (
	chartCache   = map[string]chartCacheEntry{}
	chartCacheMu sync.Mutex
)

func cacheGet(key string) ([]byte, bool) {
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()
	entry, ok := chartCache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.createdAt) >= chartCacheTTL {
		delete(chartCache, key)
		return nil, false
	}
	img := make([]byte, len(entry.image))
	copy(img, entry.image)
	return img, true
}

func cacheSet(key string, img []byte) {
	stored := make([]byte, len(img))
	copy(stored, img)
	now := time.Now()
	chartCacheMu.Lock()
	defer chartCacheMu.Unlock()
	for k, entry := range chartCache {
		if now.Sub(entry.createdAt) >= chartCacheTTL {
			delete(chartCache, k)
		}
	}
	chartCache[key] = chartCacheEntry{createdAt: now, image: stored}
}

// reportCacheKey identifies the rendered image of a report.
func reportCacheKey(r *risk.Report) string {
	weights := make([]string, len(r.Weights))
	for i, w := range r.Weights {
		weights[i] = fmt.Sprintf("%.4f", w)
	}
	days := make([]string, len(r.Horizon))
	for i, p := range r.Horizon {
		days[i] = strconv.Itoa(p.Day)
	}
	return fmt.Sprintf("var-%s-%s-%s-%s-%.4f-%.2f-%.6f-%s",
		strings.Join(r.Tickers, ","), strings.Join(weights, ","),
		r.Start.Format("20060102"), r.End.Format("20060102"),
		r.OneDay.Confidence, r.Portfolio.Notional, r.OneDay.VaR, strings.Join(days, ","))
}
