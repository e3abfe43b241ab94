package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"telegramRiskBot/internal/config"
	"telegramRiskBot/internal/finance"
	"telegramRiskBot/internal/logger"
	"telegramRiskBot/internal/openai"
	"telegramRiskBot/internal/risk"
	"telegramRiskBot/internal/server"
	"telegramRiskBot/internal/storage"
	"telegramRiskBot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"), nil)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.LogDevelopment
	log, err := logger.New(logCfg)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		return err
	}
	defer logger.Sync(log)

	if err := cfg.ValidateBot(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return err
	}

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Error("init schema failed", zap.Error(err))
		return err
	}
	log.Info("db: schema ensured", zap.String("path", cfg.DBPath))
	store := storage.NewStore(db)

	var provider risk.PriceProvider = finance.NewYahooClient(
		finance.WithMaxTries(uint(cfg.YahooMaxTries)),
		finance.WithConcurrency(cfg.YahooConcurrency),
		finance.WithLogger(log),
	)
	if cfg.PriceCache {
		provider = finance.NewCachedProvider(provider, store, cfg.PriceCacheTTL, log)
	}
	engine := risk.NewEngine(provider, log)

	deps := telegram.Deps{
		Engine: engine,
		Store:  store,
		Defaults: telegram.Defaults{
			Confidence:  cfg.Confidence,
			Notional:    cfg.Notional,
			HorizonDays: cfg.HorizonDays,
		},
		Logger: log,
	}
	if cfg.OpenAIKey != "" {
		deps.Commentator = openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel)
	} else {
		log.Info("openai: no api key, commentary disabled")
	}

	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps)
	if err != nil {
		log.Error("telegram init failed", zap.Error(err))
		return err
	}

	api := server.NewVarHandler(engine, server.VarDefaults{
		Confidence:  cfg.Confidence,
		Notional:    cfg.Notional,
		HorizonDays: cfg.HorizonDays,
		Window:      cfg.Window,
	}, log)
	mux := server.NewHTTPMux(tg.WebhookHandler, api)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, ":"+cfg.Port, mux, log); err != nil {
		log.Error("server error", zap.Error(err))
		return err
	}
	log.Info("bye")
	return nil
}
