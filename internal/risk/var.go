package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// EstimateVaR returns the one-period parametric VaR of an investment whose
// value is modelled as N(expectedValue, sigma). The cutoff is the
// confidence-quantile of that distribution (confidence 0.05 means 95%) and
// VaR is the notional minus the cutoff.
func EstimateVaR(confidence, notional, expectedValue, sigma float64) (VaRResult, error) {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return VaRResult{}, fmt.Errorf("%w: got %v", ErrInvalidConfidence, confidence)
	}
	if math.IsNaN(sigma) || sigma <= 0 {
		return VaRResult{}, fmt.Errorf("%w: got %v", ErrNonPositiveStdDev, sigma)
	}
	if !isFinite(notional) || !isFinite(expectedValue) || math.IsInf(sigma, 0) {
		return VaRResult{}, fmt.Errorf("%w: non-finite notional %v, mean %v or sigma %v", ErrInvalidInput, notional, expectedValue, sigma)
	}

	dist := distuv.Normal{Mu: expectedValue, Sigma: sigma}
	cutoff := dist.Quantile(confidence)
	return VaRResult{
		Confidence: confidence,
		Cutoff:     cutoff,
		VaR:        notional - cutoff,
	}, nil
}
