package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegramRiskBot/internal/config"
	"telegramRiskBot/internal/risk"
)

type fixtureProvider struct {
	calls      int
	start, end time.Time
	err        error
}

func (p *fixtureProvider) FetchPrices(_ context.Context, tickers []string, start, end time.Time) (*risk.PriceTable, error) {
	p.calls++
	p.start, p.end = start, end
	if p.err != nil {
		return nil, p.err
	}
	a := []float64{100, 101, 99.5, 102, 103.1, 101.7, 104.2, 105, 103.9, 106.3}
	b := []float64{50, 50.2, 50.9, 50.4, 49.8, 50.6, 51.1, 50.7, 51.5, 51.2}
	t := &risk.PriceTable{Tickers: []string{"AAA", "BBB"}}
	for i := range a {
		t.Dates = append(t.Dates, time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC))
		t.Closes = append(t.Closes, []float64{a[i], b[i]})
	}
	return t, nil
}

func TestRunPrintsSummary(t *testing.T) {
	p := &fixtureProvider{}
	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--tickers", "aaa,bbb", "--weights", "60%,40%",
		"--start", "2024-01-01", "--end", "2024-01-31",
		"--horizon", "10",
	}, &out, p)
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.start)
	assert.Contains(t, out.String(), "Portfolio: AAA 60.0%, BBB 40.0%")
	assert.Contains(t, out.String(), "10-day VaR")
}

func TestRunJSONAndChart(t *testing.T) {
	png := filepath.Join(t.TempDir(), "var.png")
	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-t", "AAA,BBB", "-w", "0.5,0.5", "--json", "-o", png,
		"--confidence", "0.01", "--notional", "2500",
	}, &out, &fixtureProvider{})
	require.NoError(t, err)

	var report risk.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 0.01, report.OneDay.Confidence)
	assert.Equal(t, 2500.0, report.Portfolio.Notional)
	assert.Len(t, report.Horizon, config.DefaultHorizonDays)

	img, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		calls int
	}{
		{"no tickers", []string{"--weights", "1"}, 0},
		{"bad weight", []string{"-t", "AAA", "-w", "abc"}, 0},
		{"weights do not sum", []string{"-t", "AAA,BBB", "-w", "0.5,0.4"}, 0},
		{"confidence", []string{"-t", "AAA", "--confidence", "1.2"}, 0},
		{"bad date", []string{"-t", "AAA", "--start", "2024/01/01"}, 0},
		{"unknown flag", []string{"--nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fixtureProvider{}
			err := run(context.Background(), tt.args, &bytes.Buffer{}, p)
			assert.Error(t, err)
			assert.Equal(t, tt.calls, p.calls)
		})
	}
}

func TestRunProviderError(t *testing.T) {
	boom := errors.New("network down")
	err := run(context.Background(), []string{"-t", "AAA,BBB", "-w", "0.5,0.5"}, &bytes.Buffer{}, &fixtureProvider{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, risk.ErrProvider)
}

func TestRunFailureLeavesNoChartFile(t *testing.T) {
	png := filepath.Join(t.TempDir(), "var.png")
	boom := errors.New("network down")

	err := run(context.Background(), []string{"-t", "AAA,BBB", "-w", "0.5,0.5", "-o", png}, &bytes.Buffer{}, &fixtureProvider{err: boom})
	require.ErrorIs(t, err, boom)
	assert.NoFileExists(t, png)
}

func TestRunCancelledBeforeChartLeavesNoFile(t *testing.T) {
	png := filepath.Join(t.TempDir(), "var.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, []string{"-t", "AAA,BBB", "-w", "0.5,0.5", "-o", png}, &bytes.Buffer{}, &fixtureProvider{})
	require.Error(t, err)
	assert.NoFileExists(t, png)
}

func TestBuildRequestSingleTickerDefaultsWeight(t *testing.T) {
	cfg := &config.Config{Confidence: 0.05, Notional: 1000, HorizonDays: 3, Window: "6m"}
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	req, err := buildRequest(options{tickers: []string{"spy"}}, cfg, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, req.Tickers)
	assert.Equal(t, []float64{1}, req.Weights)
	assert.Equal(t, []int{1, 2, 3}, req.Horizon)
	assert.Equal(t, time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), req.End)
}
