package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"telegramRiskBot/internal/config"
	"telegramRiskBot/internal/finance"
	"telegramRiskBot/internal/logger"
	"telegramRiskBot/internal/risk"
	"telegramRiskBot/internal/storage"
)

const dateLayout = "2006-01-02"

type options struct {
	configPath string
	tickers    []string
	weights    []string
	start, end string
	out        string
	asJSON     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, nil)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "varcalc:", err)
		os.Exit(1)
	}
}

func newFlagSet(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("varcalc", pflag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", os.Getenv("CONFIG_PATH"), "config file (yaml, json or toml)")
	fs.StringSliceVarP(&o.tickers, "tickers", "t", nil, "comma separated tickers, e.g. SPY,TLT")
	fs.StringSliceVarP(&o.weights, "weights", "w", nil, "comma separated weights in ticker order, e.g. 0.6,0.4 or 60%,40%")
	fs.StringVar(&o.start, "start", "", "first date YYYY-MM-DD (overrides --window)")
	fs.StringVar(&o.end, "end", "", "last date YYYY-MM-DD (default today)")
	fs.StringVarP(&o.out, "out", "o", "", "write the horizon chart PNG to this file")
	fs.BoolVar(&o.asJSON, "json", false, "print the full report as JSON")

	// bound into config
	fs.String("window", finance.DefaultWindow, "lookback when --start is not set: 5d, 3w, 6m, 2y")
	fs.Float64("confidence", config.DefaultConfidence, "lower-tail probability, 0.05 means 95%")
	fs.Float64("notional", config.DefaultNotional, "investment amount")
	fs.Int("horizon", config.DefaultHorizonDays, "longest holding period in days")
	fs.Bool("cache", true, "use the SQLite price cache")
	fs.String("db", config.DefaultDBPath, "SQLite path for the price cache")
	fs.String("log-file", "", "also write JSON logs to this file")
	fs.Bool("debug", false, "debug logging")
	return fs
}

// run executes one VaR calculation. A nil provider means Yahoo, cached
// according to config.
func run(ctx context.Context, args []string, stdout io.Writer, provider risk.PriceProvider) error {
	var o options
	fs := newFlagSet(&o)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath, fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.LogDevelopment
	logCfg.Stderr = true
	log, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	req, err := buildRequest(o, cfg, time.Now())
	if err != nil {
		return err
	}

	if provider == nil {
		var closeDB func()
		provider, closeDB = defaultProvider(cfg, log)
		defer closeDB()
	}

	report, err := risk.NewEngine(provider, log).Run(ctx, req)
	if err != nil {
		return err
	}

	// the file is written only once every sink has succeeded
	var chart bytes.Buffer
	var sinks []risk.Sink
	if o.out != "" {
		sinks = append(sinks, finance.PNGSink{W: &chart})
	}
	if err := risk.Publish(ctx, report, sinks...); err != nil {
		return err
	}
	if o.out != "" {
		if err := os.WriteFile(o.out, chart.Bytes(), 0o644); err != nil {
			return err
		}
	}

	if o.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err = fmt.Fprintln(stdout, report.Summary())
	return err
}

func buildRequest(o options, cfg *config.Config, now time.Time) (risk.Request, error) {
	req := risk.Request{
		Notional:   cfg.Notional,
		Confidence: cfg.Confidence,
		Horizon:    risk.HorizonRange(1, cfg.HorizonDays),
	}
	for _, t := range o.tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			req.Tickers = append(req.Tickers, t)
		}
	}
	if len(req.Tickers) == 0 {
		return req, errors.New("--tickers is required")
	}
	if len(o.weights) == 0 && len(req.Tickers) == 1 {
		req.Weights = []float64{1}
	}
	for _, s := range o.weights {
		s = strings.TrimSpace(s)
		w, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return req, fmt.Errorf("invalid weight %q", s)
		}
		if strings.HasSuffix(s, "%") {
			w /= 100
		}
		req.Weights = append(req.Weights, w)
	}

	var err error
	if req.Start, req.End, err = finance.WindowRange(cfg.Window, now); err != nil {
		return req, err
	}
	if o.start != "" {
		if req.Start, err = time.Parse(dateLayout, o.start); err != nil {
			return req, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if o.end != "" {
		if req.End, err = time.Parse(dateLayout, o.end); err != nil {
			return req, fmt.Errorf("invalid --end: %w", err)
		}
	}
	return req, nil
}

func defaultProvider(cfg *config.Config, log *zap.Logger) (risk.PriceProvider, func()) {
	yahoo := finance.NewYahooClient(
		finance.WithMaxTries(uint(cfg.YahooMaxTries)),
		finance.WithConcurrency(cfg.YahooConcurrency),
		finance.WithLogger(log),
	)
	if !cfg.PriceCache {
		return yahoo, func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Warn("price cache disabled", zap.Error(err))
		return yahoo, func() {}
	}
	db, err := storage.OpenSQLite("file:" + cfg.DBPath)
	if err == nil {
		err = storage.InitSchema(db)
	}
	if err != nil {
		log.Warn("price cache disabled", zap.String("path", cfg.DBPath), zap.Error(err))
		if db != nil {
			db.Close()
		}
		return yahoo, func() {}
	}
	return finance.NewCachedProvider(yahoo, storage.NewStore(db), cfg.PriceCacheTTL, log), func() { db.Close() }
}
