package messages

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends and edits plain-text chat messages.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{bot: bot}
}

// Send posts text and returns the new message id.
func (t *Telegram) Send(_ context.Context, chatID int64, text string) (int, error) {
	const op = "messages.Telegram.Send"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	m, err := t.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return m.MessageID, nil
}

// Edit replaces the text of a message sent earlier. Telegram rejects edits
// that change nothing; those count as success.
func (t *Telegram) Edit(_ context.Context, chatID int64, messageID int, text string) error {
	const op = "messages.Telegram.Edit"

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.DisableWebPagePreview = true
	if _, err := t.bot.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
