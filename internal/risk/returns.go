package risk

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinPriceRows is the shortest usable history: the sample covariance
// needs at least two return observations.
const MinPriceRows = 3

// ComputeReturnStats derives simple daily returns, their column means and
// their sample covariance matrix (N-1 denominator) from a price table.
//
// Gaps (NaN cells) are forward-filled from the last observed close of the
// same ticker. Leading rows in which some ticker has not traded yet are
// dropped.
func ComputeReturnStats(table *PriceTable) (*ReturnStats, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: price table is nil", ErrInvalidInput)
	}
	numAssets := len(table.Tickers)
	if numAssets == 0 {
		return nil, fmt.Errorf("%w: price table has no tickers", ErrInvalidInput)
	}
	if len(table.Closes) != len(table.Dates) {
		return nil, fmt.Errorf("%w: %d price rows for %d dates", ErrDimensionMismatch, len(table.Closes), len(table.Dates))
	}

	dates, prices, err := fillGaps(table)
	if err != nil {
		return nil, err
	}
	if len(prices) < MinPriceRows {
		return nil, fmt.Errorf("%w: %d usable price rows, need at least %d", ErrInsufficientHistory, len(prices), MinPriceRows)
	}

	numPeriods := len(prices) - 1
	returns := mat.NewDense(numPeriods, numAssets, nil)
	for t := 1; t < len(prices); t++ {
		for j := 0; j < numAssets; j++ {
			returns.Set(t-1, j, prices[t][j]/prices[t-1][j]-1)
		}
	}

	mean := make([]float64, numAssets)
	col := make([]float64, numPeriods)
	for j := 0; j < numAssets; j++ {
		mat.Col(col, j, returns)
		mean[j] = stat.Mean(col, nil)
	}

	cov := &mat.SymDense{}
	stat.CovarianceMatrix(cov, returns, nil)

	return &ReturnStats{
		Tickers: append([]string(nil), table.Tickers...),
		Dates:   dates[1:],
		Returns: returns,
		Mean:    mean,
		Cov:     cov,
	}, nil
}

// fillGaps validates the table and forward-fills missing closes.
func fillGaps(table *PriceTable) ([]time.Time, [][]float64, error) {
	numAssets := len(table.Tickers)
	last := make([]float64, numAssets)
	for j := range last {
		last[j] = math.NaN()
	}
	seen := 0 // tickers with at least one observed close

	var (
		dates  []time.Time
		prices [][]float64
	)
	for i, row := range table.Closes {
		if len(row) != numAssets {
			return nil, nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(row), numAssets)
		}
		if i > 0 && !table.Dates[i].After(table.Dates[i-1]) {
			return nil, nil, fmt.Errorf("%w: dates not strictly ascending at row %d (%s)", ErrInvalidInput, i, table.Dates[i].Format("2006-01-02"))
		}
		for j, p := range row {
			if math.IsNaN(p) {
				continue
			}
			if p <= 0 || math.IsInf(p, 0) {
				return nil, nil, fmt.Errorf("%w: %s on %s: %v", ErrNonPositivePrice, table.Tickers[j], table.Dates[i].Format("2006-01-02"), p)
			}
			if math.IsNaN(last[j]) {
				seen++
			}
			last[j] = p
		}
		if seen < numAssets {
			continue
		}
		dates = append(dates, table.Dates[i])
		prices = append(prices, append([]float64(nil), last...))
	}
	return dates, prices, nil
}
