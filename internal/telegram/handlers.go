package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"telegramRiskBot/internal/finance"
	"telegramRiskBot/internal/risk"
	"telegramRiskBot/internal/storage"
)

var (
	// /var SYM W [SYM W ...] [window]
	reVar = regexp.MustCompile(`^/var(?:@[\w_]+)?(?:\s+.*)?$`)
	// /usage [days]
	reUsage = regexp.MustCompile(`^/usage(?:@[\w_]+)?(?:\s+(\d+))?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const (
	defaultUsageDays = 7
	maxUsageDays     = 90
	runTimeout       = 60 * time.Second
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type explainer interface {
	Explain(ctx context.Context, r *risk.Report) (string, error)
}

type usageStore interface {
	RecordUsage(command string, chatID int64, ts time.Time) error
	UsageStats(since time.Time) (map[string]*storage.UsageStats, error)
}

// Defaults are the run parameters a /var command does not carry.
type Defaults struct {
	Confidence  float64
	Notional    float64
	HorizonDays int
}

type Deps struct {
	Engine      *risk.Engine
	Store       usageStore // optional
	Commentator explainer  // optional
	Defaults    Defaults
	Logger      *zap.Logger
}

type Handlers struct {
	api         sender
	engine      *risk.Engine
	store       usageStore
	commentator explainer
	usage       *finance.UsageAnalytics
	defaults    Defaults
	logger      *zap.Logger
	now         func() time.Time
}

func NewHandlers(api sender, d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Defaults.HorizonDays < 1 {
		d.Defaults.HorizonDays = risk.DefaultHorizonDays
	}
	return &Handlers{
		api:         api,
		engine:      d.Engine,
		store:       d.Store,
		commentator: d.Commentator,
		usage:       finance.NewUsageAnalytics(),
		defaults:    d.Defaults,
		logger:      d.Logger.Named("telegram"),
		now:         time.Now,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	txt := strings.TrimSpace(m.Text)
	chatID := m.Chat.ID

	switch {
	case reVar.MatchString(txt):
		h.record("var", chatID)
		h.handleVaR(chatID, txt)

	case reUsage.MatchString(txt):
		h.record("usage", chatID)
		days := defaultUsageDays
		if g := reUsage.FindStringSubmatch(txt); len(g) == 2 && g[1] != "" {
			days, _ = strconv.Atoi(g[1])
			if days < 1 {
				days = 1
			}
			if days > maxUsageDays {
				days = maxUsageDays
			}
		}
		h.handleUsage(chatID, days)

	case reHelp.MatchString(txt):
		h.record("help", chatID)
		h.handleHelp(chatID)
	}
}

func (h *Handlers) record(command string, chatID int64) {
	if h.store == nil {
		return
	}
	if err := h.store.RecordUsage(command, chatID, h.now()); err != nil {
		h.logger.Warn("record usage failed", zap.String("command", command), zap.Error(err))
	}
}

func (h *Handlers) handleVaR(chatID int64, txt string) {
	cmd, err := finance.ParseVaRCommand(txt)
	if err != nil {
		h.reply(chatID, "Couldn’t parse command: "+err.Error()+"\nExample: /var SPY 0.6 TLT 0.4 1y")
		return
	}
	start, end, err := finance.WindowRange(cmd.Window, h.now())
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := h.engine.Run(ctx, risk.Request{
		Tickers:    cmd.Symbols(),
		Weights:    cmd.Weights(),
		Notional:   h.defaults.Notional,
		Confidence: h.defaults.Confidence,
		Start:      start,
		End:        end,
		Horizon:    risk.HorizonRange(1, h.defaults.HorizonDays),
	})
	if err != nil {
		h.reply(chatID, "VaR failed: "+err.Error())
		return
	}

	if err := risk.Publish(ctx, report, photoSink{api: h.api, chatID: chatID}); err != nil {
		h.logger.Warn("chart publish failed", zap.Error(err))
		h.reply(chatID, report.Summary())
	}

	if h.commentator == nil {
		return
	}
	note, err := h.commentator.Explain(ctx, report)
	if err != nil {
		h.logger.Warn("commentary failed", zap.Error(err))
		return
	}
	h.reply(chatID, note)
}

func (h *Handlers) handleUsage(chatID int64, days int) {
	if h.store == nil {
		h.reply(chatID, "Usage analytics are not enabled.")
		return
	}
	stats, err := h.store.UsageStats(h.now().AddDate(0, 0, -days))
	if err != nil {
		h.reply(chatID, "Usage failed: "+err.Error())
		return
	}
	text := h.usage.FormatUsageStatsText(stats, days)
	if len(stats) == 0 {
		h.reply(chatID, text)
		return
	}
	img, err := h.usage.MakeUsageChart(stats, days)
	if err != nil {
		h.logger.Warn("usage chart failed", zap.Error(err))
		h.reply(chatID, text)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: fmt.Sprintf("usage_%dd.png", days), Bytes: img})
	photo.Caption = text
	h.send(photo)
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /var SYM W [SYM W ...] [window] - Parametric VaR of a fixed-weight portfolio, e.g. /var SPY 0.6 TLT 0.4 1y\n" +
		"  Weights must sum to 1 (60% style works too); negative weights are shorts. Window: 5d, 3w, 6m, 2y (default 1y)\n" +
		"- /usage [days] - Command usage over the last N days (default: 7, max: 90)\n" +
		fmt.Sprintf("\nRuns at %.1f%% confidence on a $%.0f notional over 1..%d day horizons. Prices are Yahoo adjusted daily closes.",
			(1-h.defaults.Confidence)*100, h.defaults.Notional, h.defaults.HorizonDays)
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.logger.Warn("telegram send failed", zap.Error(err))
	}
}

// photoSink posts the horizon chart of a report with its summary as caption.
type photoSink struct {
	api    sender
	chatID int64
}

func (s photoSink) Publish(_ context.Context, r *risk.Report) error {
	img, err := finance.RenderHorizonChart(r)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(s.chatID, tgbotapi.FileBytes{Name: strings.Join(r.Tickers, "_") + "_var.png", Bytes: img})
	photo.Caption = r.Summary()
	_, err = s.api.Send(photo)
	return err
}
