package risk

import (
	"fmt"
	"math"
)

// DefaultHorizonDays is the longest holding period plotted by default.
const DefaultHorizonDays = 30

// HorizonRange returns the inclusive day sequence from..to.
func HorizonRange(from, to int) []int {
	if to < from {
		return nil
	}
	days := make([]int, 0, to-from+1)
	for d := from; d <= to; d++ {
		days = append(days, d)
	}
	return days
}

// ScaleHorizon projects a one-day VaR across holding periods using the
// square-root-of-time rule (i.i.d. daily returns).
func ScaleHorizon(oneDay float64, days []int) ([]HorizonPoint, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty horizon", ErrInvalidInput)
	}
	if !isFinite(oneDay) {
		return nil, fmt.Errorf("%w: one-day VaR is %v", ErrInvalidInput, oneDay)
	}
	out := make([]HorizonPoint, len(days))
	for i, d := range days {
		if d < 1 {
			return nil, fmt.Errorf("%w: horizon day %d at position %d must be >= 1", ErrInvalidInput, d, i)
		}
		out[i] = HorizonPoint{Day: d, VaR: oneDay * math.Sqrt(float64(d))}
	}
	return out, nil
}
