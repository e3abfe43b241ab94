package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/mat"
)

// Report carries every derived output of a single VaR run.
type Report struct {
	Tickers      []string       `json:"tickers"`
	Weights      []float64      `json:"weights"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	Observations int            `json:"observations"`
	MeanReturns  []float64      `json:"mean_returns"`
	Covariance   [][]float64    `json:"covariance"`
	Portfolio    PortfolioStats `json:"portfolio"`
	OneDay       VaRResult      `json:"one_day"`
	Horizon      []HorizonPoint `json:"horizon"`
}

// Compute runs the statistical pipeline on an already loaded price table.
// It has no side effects and returns identical output for identical input.
func Compute(table *PriceTable, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("%w: price table is nil", ErrInvalidInput)
	}
	ordered, err := table.Select(req.Tickers)
	if err != nil {
		return nil, err
	}

	stats, err := ComputeReturnStats(ordered)
	if err != nil {
		return nil, err
	}
	port, err := AggregatePortfolio(stats.Mean, stats.Cov, req.Weights, req.Notional)
	if err != nil {
		return nil, err
	}
	oneDay, err := EstimateVaR(req.Confidence, req.Notional, port.ExpectedValue, port.InvestmentStdDev)
	if err != nil {
		return nil, err
	}
	horizon, err := ScaleHorizon(oneDay.VaR, req.HorizonDays())
	if err != nil {
		return nil, err
	}

	return &Report{
		Tickers:      append([]string(nil), req.Tickers...),
		Weights:      append([]float64(nil), req.Weights...),
		Start:        stats.Dates[0],
		End:          stats.Dates[len(stats.Dates)-1],
		Observations: stats.Observations(),
		MeanReturns:  stats.Mean,
		Covariance:   symToRows(stats.Cov),
		Portfolio:    port,
		OneDay:       oneDay,
		Horizon:      horizon,
	}, nil
}

// At returns the scaled VaR for the given holding period.
func (r *Report) At(day int) (float64, bool) {
	for _, p := range r.Horizon {
		if p.Day == day {
			return p.VaR, true
		}
	}
	return 0, false
}

// Summary renders the report as short plain text.
func (r *Report) Summary() string {
	var b strings.Builder
	comp := make([]string, len(r.Tickers))
	for i, s := range r.Tickers {
		comp[i] = fmt.Sprintf("%s %.1f%%", s, r.Weights[i]*100)
	}
	fmt.Fprintf(&b, "Portfolio: %s\n", strings.Join(comp, ", "))
	fmt.Fprintf(&b, "Window: %s → %s (%d returns)\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.Observations)
	fmt.Fprintf(&b, "Notional: $%s | Mean daily return: %.4f%% | Daily vol: %.4f%%\n",
		humanize.CommafWithDigits(r.Portfolio.Notional, 2), r.Portfolio.MeanReturn*100, r.Portfolio.StdDev*100)
	fmt.Fprintf(&b, "1-day VaR @ %.1f%%: $%s", (1-r.OneDay.Confidence)*100, humanize.CommafWithDigits(r.OneDay.VaR, 2))
	if len(r.Horizon) > 0 {
		last := r.Horizon[len(r.Horizon)-1]
		fmt.Fprintf(&b, " | %d-day VaR: $%s", last.Day, humanize.CommafWithDigits(last.VaR, 2))
	}
	return b.String()
}

func symToRows(s *mat.SymDense) [][]float64 {
	n := s.SymmetricDim()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = s.At(i, j)
		}
	}
	return rows
}
