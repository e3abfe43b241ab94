package finance

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegramRiskBot/internal/risk"
	"telegramRiskBot/internal/storage"
)

type countingProvider struct {
	table *risk.PriceTable
	err   error
	calls int
}

func (p *countingProvider) FetchPrices(_ context.Context, _ []string, _, _ time.Time) (*risk.PriceTable, error) {
	p.calls++
	return p.table, p.err
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.OpenSQLite("file:" + filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitSchema(db))
	return storage.NewStore(db)
}

func upstreamTable() *risk.PriceTable {
	return &risk.PriceTable{
		Dates:   []time.Time{utcDay(2024, 1, 2), utcDay(2024, 1, 3), utcDay(2024, 1, 4)},
		Tickers: []string{"AAA", "BBB"},
		Closes:  [][]float64{{10, 20}, {11, math.NaN()}, {12, 22}},
	}
}

func TestCachedProviderServesRepeatFromStore(t *testing.T) {
	up := &countingProvider{table: upstreamTable()}
	cp := NewCachedProvider(up, newTestStore(t), time.Hour, nil)
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	cp.now = func() time.Time { return now }

	start, end := utcDay(2024, 1, 1), utcDay(2024, 1, 5)
	first, err := cp.FetchPrices(context.Background(), []string{"AAA", "BBB"}, start, end)
	require.NoError(t, err)
	assert.Same(t, up.table, first)
	assert.Equal(t, 1, up.calls)

	second, err := cp.FetchPrices(context.Background(), []string{"AAA", "BBB"}, start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, first.Dates, second.Dates)
	assert.Equal(t, first.Tickers, second.Tickers)
	assert.Equal(t, []float64{10, 20}, second.Closes[0])
	assert.Equal(t, 11.0, second.Closes[1][0])
	assert.True(t, math.IsNaN(second.Closes[1][1]))
	assert.Equal(t, []float64{12, 22}, second.Closes[2])

	// a narrower window is still covered
	_, err = cp.FetchPrices(context.Background(), []string{"BBB"}, utcDay(2024, 1, 3), end)
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
}

func TestCachedProviderRefetchesWhenStale(t *testing.T) {
	up := &countingProvider{table: upstreamTable()}
	cp := NewCachedProvider(up, newTestStore(t), time.Hour, nil)
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	cp.now = func() time.Time { return now }

	start, end := utcDay(2024, 1, 1), utcDay(2024, 1, 5)
	_, err := cp.FetchPrices(context.Background(), []string{"AAA", "BBB"}, start, end)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = cp.FetchPrices(context.Background(), []string{"AAA", "BBB"}, start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}

func TestCachedProviderMissOnUncoveredSymbol(t *testing.T) {
	up := &countingProvider{table: upstreamTable()}
	cp := NewCachedProvider(up, newTestStore(t), time.Hour, nil)

	start, end := utcDay(2024, 1, 1), utcDay(2024, 1, 5)
	_, err := cp.FetchPrices(context.Background(), []string{"AAA", "BBB"}, start, end)
	require.NoError(t, err)
	_, err = cp.FetchPrices(context.Background(), []string{"AAA", "CCC"}, start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}

func TestCachedProviderPassesUpstreamError(t *testing.T) {
	boom := errors.New("boom")
	cp := NewCachedProvider(&countingProvider{err: boom}, newTestStore(t), 0, nil)

	_, err := cp.FetchPrices(context.Background(), []string{"AAA"}, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, boom)

	_, err = cp.FetchPrices(context.Background(), nil, time.Time{}, time.Time{})
	assert.Error(t, err)
}
