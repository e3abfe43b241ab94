package finance

import "time"

// AssetData represents daily price data for a single asset
type AssetData struct {
	Symbol string
	Dates  []time.Time // trading day, midnight UTC
	Prices []float64
}

// WeightedAsset represents an asset with its target weight in the portfolio
type WeightedAsset struct {
	Symbol string
	Weight float64
}

// VaRCommand is a parsed /var request.
type VaRCommand struct {
	Assets []WeightedAsset
	Window string // lookback such as 6m or 1y
}

// Symbols returns the tickers in command order.
func (c VaRCommand) Symbols() []string {
	out := make([]string, len(c.Assets))
	for i, a := range c.Assets {
		out[i] = a.Symbol
	}
	return out
}

// Weights returns the weights in command order.
func (c VaRCommand) Weights() []float64 {
	out := make([]float64, len(c.Assets))
	for i, a := range c.Assets {
		out[i] = a.Weight
	}
	return out
}
