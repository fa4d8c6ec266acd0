package handlers

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"

	"schedule-sync-bot/internal/calsync"
	"schedule-sync-bot/internal/lib/logger/sl"
	"schedule-sync-bot/internal/schedule"
	"schedule-sync-bot/internal/storage"
)

// AuthLinker builds the consent link that starts the calendar connection.
// The OAuth callback itself lives outside the bot.
type AuthLinker interface {
	AuthCodeURL(state string) string
}

type Handler struct {
	Bot      *tgbotapi.BotAPI
	DB       *storage.DB
	Schedule *schedule.Loader
	Calendar *calsync.Engine
	Auth     AuthLinker

	log       *slog.Logger
	clock     clockwork.Clock
	defaultTZ string
}

func NewHandler(log *slog.Logger, bot *tgbotapi.BotAPI, db *storage.DB, loader *schedule.Loader,
	cal *calsync.Engine, auth AuthLinker, clock clockwork.Clock, defaultTZ string) *Handler {
	return &Handler{
		Bot:       bot,
		DB:        db,
		Schedule:  loader,
		Calendar:  cal,
		Auth:      auth,
		log:       log,
		clock:     clock,
		defaultTZ: defaultTZ,
	}
}

// Listen consumes updates until ctx is cancelled.
func (h *Handler) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := h.Bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			h.Bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.handleUpdate(ctx, upd)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("update handler panicked", slog.Int("update_id", upd.UpdateID), slog.Any("panic", r))
		}
	}()

	switch {
	case upd.Message != nil:
		h.HandleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.HandleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		h.HandleCommand(ctx, msg)
		return
	}
	h.HandleText(ctx, msg)
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := h.Bot.Send(msg); err != nil {
		h.log.Warn("send failed", sl.ChatID(chatID), sl.Err(err))
	}
}

func (h *Handler) sendWith(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = markup
	if _, err := h.Bot.Send(msg); err != nil {
		h.log.Warn("send failed", sl.ChatID(chatID), sl.Err(err))
	}
}

func (h *Handler) edit(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	e := tgbotapi.NewEditMessageText(chatID, msgID, text)
	e.DisableWebPagePreview = true
	e.ReplyMarkup = kb
	if _, err := h.Bot.Send(e); err != nil {
		// stale menus cannot be edited; send a fresh one
		h.log.Debug("edit failed", sl.ChatID(chatID), sl.Err(err))
		if kb != nil {
			h.sendWith(chatID, text, *kb)
		} else {
			h.send(chatID, text)
		}
	}
}

func (h *Handler) fail(chatID int64, op string, err error) {
	h.log.Error("request failed", slog.String("op", op), sl.ChatID(chatID), sl.Err(err))
	h.send(chatID, fmt.Sprintf("%s Попробуйте позже.", txtError))
}
