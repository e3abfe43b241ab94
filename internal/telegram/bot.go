package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	h      *Handlers
	logger *zap.Logger
}

// NewBot connects to Telegram, registers webhookURL and wires the command
// handlers to the bot API.
func NewBot(token, webhookURL string, d Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}

	h := NewHandlers(api, d)
	h.logger.Info("webhook set", zap.String("url", webhookURL), zap.String("bot", api.Self.UserName))

	return &Bot{api: api, h: h, logger: h.logger}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		b.logger.Debug("non-message update received", zap.Int("update_id", update.UpdateID))
		w.WriteHeader(http.StatusOK)
		return
	}
	fields := []zap.Field{zap.Int64("chat_id", update.Message.Chat.ID), zap.String("text", update.Message.Text)}
	if update.Message.From != nil {
		fields = append(fields, zap.Int64("from", update.Message.From.ID))
	}
	b.logger.Debug("webhook message", fields...)

	go b.h.HandleMessage(update.Message)
	w.WriteHeader(http.StatusOK)
}
