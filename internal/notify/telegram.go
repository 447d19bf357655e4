// Package notify delivers best-effort plaintext job summaries over
// Telegram. Missing credentials disable delivery without failing the
// run, matching the append-then-notify contract of every job.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calebmsmith/vrpdesk/internal/config"
)

// Telegram sends summaries to a single configured chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram builds a notifier from configuration. An empty token or
// chat id returns a disabled notifier whose Send is a logged no-op.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	logger := log.With().Str("component", "notify").Logger()

	if cfg.BotToken == "" || cfg.ChatID == 0 {
		logger.Info().Msg("No Telegram credentials, notifications disabled")
		return &Telegram{logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: logger}, nil
}

// Send delivers text to the configured chat. Delivery failures are
// logged and returned, but callers treat them as best-effort.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.bot == nil {
		t.logger.Debug().Msg("Notification skipped, no credentials")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Msg("Failed to send notification")
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}
