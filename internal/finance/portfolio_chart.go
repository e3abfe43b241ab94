package finance

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"telegramRiskBot/internal/risk"
)

// RenderHorizonChart draws the VaR horizon of a report as a PNG line chart.
func RenderHorizonChart(r *risk.Report) ([]byte, error) {
	if r == nil || len(r.Horizon) == 0 {
		return nil, fmt.Errorf("no horizon data to plot")
	}

	cacheKey := reportCacheKey(r)
	if img, found := cacheGet(cacheKey); found {
		return img, nil
	}

	xLabels := make([]string, len(r.Horizon))
	values := make([]float64, len(r.Horizon))
	minVal, maxVal := r.Horizon[0].VaR, r.Horizon[0].VaR
	for i, p := range r.Horizon {
		xLabels[i] = strconv.Itoa(p.Day)
		values[i] = p.VaR
		if p.VaR < minVal {
			minVal = p.VaR
		}
		if p.VaR > maxVal {
			maxVal = p.VaR
		}
	}

	// Calculate Y-axis range with padding
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	if minVal >= 0 && yMin < 0 {
		yMin = 0
	}
	yMax := maxVal + padding

	var composition []string
	for i, symbol := range r.Tickers {
		weight := r.Weights[i]
		if weight >= 0 {
			composition = append(composition, fmt.Sprintf("%s %.1f%%", symbol, weight*100))
		} else {
			composition = append(composition, fmt.Sprintf("%s %.1f%% SHORT", symbol, -weight*100))
		}
	}

	title := fmt.Sprintf("Parametric VaR @ %.1f%% by horizon (days)", (1-r.OneDay.Confidence)*100)
	subtitle := fmt.Sprintf("%s | Notional %.0f | 1-day VaR %.2f", strings.Join(composition, ", "), r.Portfolio.Notional, r.OneDay.VaR)

	// Determine split number for x-axis based on data points
	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"VaR"},
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	cacheSet(cacheKey, buf)
	return buf, nil
}

// PNGSink writes the horizon chart of each published report to W.
type PNGSink struct {
	W io.Writer
}

func (s PNGSink) Publish(_ context.Context, r *risk.Report) error {
	img, err := RenderHorizonChart(r)
	if err != nil {
		return err
	}
	_, err = s.W.Write(img)
	return err
}

var _ risk.Sink = PNGSink{}
