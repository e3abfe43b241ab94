package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine runs the VaR pipeline against an injected price provider.
type Engine struct {
	provider PriceProvider
	logger   *zap.Logger
}

func NewEngine(provider PriceProvider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{provider: provider, logger: logger.Named("risk")}
}

// Run validates the request, fetches prices once and computes the report.
// Provider failures are returned wrapped, never retried here.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	log := e.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.Strings("tickers", req.Tickers),
	)
	if err := req.Validate(); err != nil {
		log.Warn("rejected var request", zap.Error(err))
		return nil, err
	}
	if e.provider == nil {
		return nil, fmt.Errorf("%w: no price provider configured", ErrProvider)
	}

	started := time.Now()
	table, err := e.provider.FetchPrices(ctx, req.Tickers, req.Start, req.End)
	if err != nil {
		log.Error("price fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if table == nil {
		log.Error("provider returned no table")
		return nil, fmt.Errorf("%w: provider returned no table", ErrProvider)
	}
	log.Debug("prices loaded", zap.Int("rows", table.Rows()), zap.Duration("took", time.Since(started)))

	report, err := Compute(table, req)
	if err != nil {
		log.Warn("var computation failed", zap.Error(err))
		return nil, err
	}
	log.Info("var computed",
		zap.Int("observations", report.Observations),
		zap.Float64("confidence", report.OneDay.Confidence),
		zap.Float64("one_day_var", report.OneDay.VaR),
		zap.Float64("std_dev", report.Portfolio.StdDev),
	)
	return report, nil
}

// Publish hands a report to each sink in order, stopping at the first error
// or when ctx is done.
func Publish(ctx context.Context, r *Report, sinks ...Sink) error {
	for _, s := range sinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
