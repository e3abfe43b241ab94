package risk

import "errors"

var (
	// Data errors
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrNonPositivePrice    = errors.New("non-positive price")

	// Parameter errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidConfidence = errors.New("confidence level must be in (0, 1)")
	ErrNonPositiveStdDev = errors.New("standard deviation must be positive")
	ErrNegativeVariance  = errors.New("portfolio variance is negative")
	ErrWeightSum         = errors.New("weights must sum to 1")

	// Provider errors
	ErrProvider = errors.New("price provider failed")
)
