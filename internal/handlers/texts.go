package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HandleText serves reply keyboard buttons and answers to a pending
// question (group or timezone).
func (h *Handler) HandleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch text {
	case btnToday:
		h.showDay(ctx, chatID, 0)
		return
	case btnTomorrow:
		h.showDay(ctx, chatID, 1)
		return
	case btnCalendar:
		h.showCalendar(ctx, chatID, 0)
		return
	}

	state, err := h.DB.GetUserState(ctx, chatID)
	if err != nil {
		h.fail(chatID, "handlers.HandleText", err)
		return
	}

	switch state {
	case stateWaitGroup:
		h.setGroup(ctx, chatID, text)
	case stateWaitTZ:
		h.setTZ(ctx, chatID, text)
	default:
		h.send(chatID, txtHelp)
	}
}
