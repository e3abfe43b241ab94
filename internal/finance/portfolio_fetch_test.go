package finance

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		window string
		start  time.Time
	}{
		{"10d", utcDay(2024, 6, 5)},
		{"2w", utcDay(2024, 6, 1)},
		{"6m", utcDay(2023, 12, 15)},
		{"1y", utcDay(2023, 6, 15)},
		{"3Y", utcDay(2021, 6, 15)},
		{"", utcDay(2023, 6, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.window, func(t *testing.T) {
			start, end, err := WindowRange(tt.window, now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, utcDay(2024, 6, 15), end)
		})
	}

	for _, bad := range []string{"y", "0d", "-1m", "5x", "abc"} {
		_, _, err := WindowRange(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestNormalizeRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

	start, end := normalizeRange(time.Time{}, time.Time{}, now)
	assert.Equal(t, utcDay(2023, 6, 15), start)
	assert.Equal(t, utcDay(2024, 6, 15), end)

	start, end = normalizeRange(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), utcDay(2024, 3, 1), now)
	assert.Equal(t, utcDay(2024, 1, 2), start)
	assert.Equal(t, utcDay(2024, 3, 1), end)
}

func TestBuildPriceTable(t *testing.T) {
	assets := []AssetData{
		{Symbol: "AAA", Dates: []time.Time{utcDay(2024, 1, 2), utcDay(2024, 1, 3), utcDay(2024, 1, 4)}, Prices: []float64{1, 2, 3}},
		{Symbol: "BBB", Dates: []time.Time{utcDay(2024, 1, 4), utcDay(2024, 1, 2)}, Prices: []float64{30, 10}},
	}

	table, err := buildPriceTable(assets)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, table.Tickers)
	assert.Equal(t, []time.Time{utcDay(2024, 1, 2), utcDay(2024, 1, 3), utcDay(2024, 1, 4)}, table.Dates)
	assert.Equal(t, []float64{1, 10}, table.Closes[0])
	assert.Equal(t, 2.0, table.Closes[1][0])
	assert.True(t, math.IsNaN(table.Closes[1][1]))
	assert.Equal(t, []float64{3, 30}, table.Closes[2])
}

func TestBuildPriceTableLastBarWins(t *testing.T) {
	table, err := buildPriceTable([]AssetData{
		{Symbol: "AAA", Dates: []time.Time{utcDay(2024, 1, 2), utcDay(2024, 1, 2)}, Prices: []float64{1, 1.5}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, table.Rows())
	assert.Equal(t, 1.5, table.Closes[0][0])
}

func TestBuildPriceTableErrors(t *testing.T) {
	_, err := buildPriceTable(nil)
	assert.Error(t, err)

	_, err = buildPriceTable([]AssetData{{Symbol: "AAA", Dates: []time.Time{utcDay(2024, 1, 2)}}})
	assert.Error(t, err)

	_, err = buildPriceTable([]AssetData{{Symbol: "AAA"}, {Symbol: "BBB"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AAA, BBB")
}
