package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// PriceTable holds daily closes indexed by date (rows) and ticker (columns).
// A missing observation is stored as NaN.
type PriceTable struct {
	Dates   []time.Time
	Tickers []string
	Closes  [][]float64 // Closes[row][col]
}

// Rows returns the number of dates in the table.
func (t *PriceTable) Rows() int { return len(t.Dates) }

// Select returns a copy of the table with columns reordered to match tickers.
func (t *PriceTable) Select(tickers []string) (*PriceTable, error) {
	idx := make(map[string]int, len(t.Tickers))
	for i, s := range t.Tickers {
		idx[s] = i
	}
	cols := make([]int, len(tickers))
	for i, s := range tickers {
		c, ok := idx[s]
		if !ok {
			return nil, fmt.Errorf("%w: ticker %s missing from price table", ErrDimensionMismatch, s)
		}
		cols[i] = c
	}
	out := &PriceTable{
		Dates:   append([]time.Time(nil), t.Dates...),
		Tickers: append([]string(nil), tickers...),
		Closes:  make([][]float64, len(t.Closes)),
	}
	for r, row := range t.Closes {
		if len(row) != len(t.Tickers) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, r, len(row), len(t.Tickers))
		}
		nr := make([]float64, len(cols))
		for i, c := range cols {
			nr[i] = row[c]
		}
		out.Closes[r] = nr
	}
	return out, nil
}

// ReturnStats is the per-asset return summary derived from a PriceTable.
type ReturnStats struct {
	Tickers []string
	Dates   []time.Time // date of each return row (the later of the two prices)
	Returns *mat.Dense  // rows = periods, cols = tickers
	Mean    []float64
	Cov     *mat.SymDense
}

// Observations returns the number of return periods.
func (s *ReturnStats) Observations() int {
	r, _ := s.Returns.Dims()
	return r
}

// PortfolioStats aggregates per-asset statistics under a fixed weight vector.
type PortfolioStats struct {
	Notional         float64 `json:"notional"`
	MeanReturn       float64 `json:"mean_return"`
	Variance         float64 `json:"variance"`
	StdDev           float64 `json:"std_dev"`
	ExpectedValue    float64 `json:"expected_value"`
	InvestmentStdDev float64 `json:"investment_std_dev"`
}

// VaRResult is the one-period parametric VaR.
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	Cutoff     float64 `json:"cutoff"` // alpha-quantile of the investment value
	VaR        float64 `json:"var"`
}

// HorizonPoint is the VaR scaled to a holding period of Day trading days.
type HorizonPoint struct {
	Day int     `json:"day"`
	VaR float64 `json:"var"`
}

// PriceProvider returns a fully materialized price table for the given
// tickers and date range.
type PriceProvider interface {
	FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*PriceTable, error)
}

// Sink consumes a finished report, e.g. to render a chart.
type Sink interface {
	Publish(ctx context.Context, r *Report) error
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
