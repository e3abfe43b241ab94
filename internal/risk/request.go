package risk

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// WeightSumTolerance bounds how far the weights may drift from 1.
const WeightSumTolerance = 1e-6

// Request describes one VaR run.
type Request struct {
	Tickers    []string
	Weights    []float64
	Notional   float64
	Confidence float64 // lower-tail probability, e.g. 0.05 for 95%
	Start      time.Time
	End        time.Time
	Horizon    []int // holding periods in trading days; defaults to 1..30
}

// HorizonDays returns the requested horizon or the default 1..30 sequence.
func (r Request) HorizonDays() []int {
	if len(r.Horizon) == 0 {
		return HorizonRange(1, DefaultHorizonDays)
	}
	return r.Horizon
}

// Validate checks every parameter that can be checked before prices are
// fetched.
func (r Request) Validate() error {
	if math.IsNaN(r.Confidence) || r.Confidence <= 0 || r.Confidence >= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidConfidence, r.Confidence)
	}
	if !isFinite(r.Notional) || r.Notional <= 0 {
		return fmt.Errorf("%w: notional must be positive, got %v", ErrInvalidInput, r.Notional)
	}
	if len(r.Tickers) == 0 {
		return fmt.Errorf("%w: no tickers", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(r.Tickers))
	for i, s := range r.Tickers {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: empty ticker at position %d", ErrInvalidInput, i+1)
		}
		if seen[s] {
			return fmt.Errorf("%w: duplicate ticker %s", ErrInvalidInput, s)
		}
		seen[s] = true
	}
	if len(r.Weights) != len(r.Tickers) {
		return fmt.Errorf("%w: %d weights for %d tickers", ErrDimensionMismatch, len(r.Weights), len(r.Tickers))
	}
	sum := 0.0
	for i, w := range r.Weights {
		if !isFinite(w) {
			return fmt.Errorf("%w: weight for %s is %v", ErrInvalidInput, r.Tickers[i], w)
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightSumTolerance {
		return fmt.Errorf("%w: got %.6f", ErrWeightSum, sum)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidInput,
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	for i, d := range r.Horizon {
		if d < 1 {
			return fmt.Errorf("%w: horizon day %d at position %d must be >= 1", ErrInvalidInput, d, i)
		}
	}
	return nil
}
