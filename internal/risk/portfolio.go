package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AggregatePortfolio combines per-asset mean returns and their covariance
// with a weight vector into portfolio-level statistics for the given notional.
func AggregatePortfolio(mean []float64, cov mat.Symmetric, weights []float64, notional float64) (PortfolioStats, error) {
	if cov == nil {
		return PortfolioStats{}, fmt.Errorf("%w: covariance matrix is nil", ErrInvalidInput)
	}
	n := len(weights)
	if n == 0 {
		return PortfolioStats{}, fmt.Errorf("%w: empty weight vector", ErrInvalidInput)
	}
	if len(mean) != n {
		return PortfolioStats{}, fmt.Errorf("%w: %d mean returns for %d weights", ErrDimensionMismatch, len(mean), n)
	}
	if d := cov.SymmetricDim(); d != n {
		return PortfolioStats{}, fmt.Errorf("%w: %dx%d covariance for %d weights", ErrDimensionMismatch, d, d, n)
	}
	if !isFinite(notional) || notional <= 0 {
		return PortfolioStats{}, fmt.Errorf("%w: notional must be positive, got %v", ErrInvalidInput, notional)
	}

	w := mat.NewVecDense(n, append([]float64(nil), weights...))
	meanReturn := floats.Dot(weights, mean)
	variance := mat.Inner(w, cov, w)
	if math.IsNaN(variance) {
		return PortfolioStats{}, fmt.Errorf("%w: portfolio variance is NaN", ErrInvalidInput)
	}
	if variance < 0 {
		return PortfolioStats{}, fmt.Errorf("%w: %g", ErrNegativeVariance, variance)
	}
	stdDev := math.Sqrt(variance)

	return PortfolioStats{
		Notional:         notional,
		MeanReturn:       meanReturn,
		Variance:         variance,
		StdDev:           stdDev,
		ExpectedValue:    (1 + meanReturn) * notional,
		InvestmentStdDev: notional * stdDev,
	}, nil
}
