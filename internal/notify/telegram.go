// Package notify posts ingestion run summaries to Telegram.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"healthfeed/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends a short message to a fixed chat after each run.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates a Telegram notifier. It returns nil (no notifier)
// when token or chatID is unset, so callers can wire it unconditionally.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// NotifyRun posts the run summary. Send failures are logged, not
// propagated; notification is best effort.
func (t *Telegram) NotifyRun(result model.IngestResult, took time.Duration) {
	text := fmt.Sprintf("Ingestion run finished: %d entries scraped, %d new articles saved in %s.",
		result.Scraped, result.Saved, took.Round(time.Second))

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send run summary", "error", err)
	}
}
