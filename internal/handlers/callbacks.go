package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"schedule-sync-bot/internal/calsync"
	"schedule-sync-bot/internal/lib/logger/sl"
	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/utils"
)

const separateCalendarTitle = "Расписание"

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := cq.Data

	// always answer callback
	_, _ = h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))

	if !strings.HasPrefix(data, "gcal:") {
		return
	}
	if data == cbOpen {
		h.showCalendar(ctx, chatID, msgID)
		return
	}

	u, err := h.DB.GetUser(ctx, chatID)
	if err != nil {
		h.userError(chatID, "handlers.HandleCallback", err)
		return
	}
	if !u.Calendar.Connected {
		h.showCalendar(ctx, chatID, msgID)
		return
	}

	switch {
	case data == cbSyncToday:
		h.runSync(ctx, chatID, msgID, u, "Сегодня", func() (calsync.Result, error) {
			return h.Calendar.SyncToday(ctx, u)
		})
	case data == cbSyncWeek:
		h.runSync(ctx, chatID, msgID, u, "Эта неделя", func() (calsync.Result, error) {
			return h.Calendar.SyncWeek(ctx, u, 0)
		})
	case data == cbSyncNextWeek:
		h.runSync(ctx, chatID, msgID, u, "Следующая неделя", func() (calsync.Result, error) {
			return h.Calendar.SyncWeek(ctx, u, 1)
		})
	case data == cbSyncDays:
		h.runSync(ctx, chatID, msgID, u, "7 дней", func() (calsync.Result, error) {
			return h.Calendar.SyncNextNDays(ctx, u, 7)
		})
	case data == cbChooseCal:
		h.chooseCalendar(ctx, chatID, msgID, u)
	case data == cbCalPrimary:
		h.selectCalendar(ctx, chatID, msgID, u, "primary")
	case strings.HasPrefix(data, cbCalSetPrefix):
		h.selectListedCalendar(ctx, chatID, msgID, u, strings.TrimPrefix(data, cbCalSetPrefix))
	case data == cbCalCreate:
		h.createCalendar(ctx, chatID, msgID, u)
	case data == cbDisconnect:
		h.edit(chatID, msgID, "Отключить Google Calendar?", &disconnectKB)
	case data == cbDiscKeep, data == cbDiscPurge:
		h.disconnect(ctx, chatID, msgID, u, data == cbDiscPurge)
	}
}

// showCalendar sends the calendar screen, or edits msgID in place when set.
func (h *Handler) showCalendar(ctx context.Context, chatID int64, msgID int) {
	u, err := h.DB.GetUser(ctx, chatID)
	if err != nil {
		h.userError(chatID, "handlers.showCalendar", err)
		return
	}
	h.renderCalendar(chatID, msgID, u, "")
}

func (h *Handler) renderCalendar(chatID int64, msgID int, u *models.User, note string) {
	link := ""
	if h.Auth != nil && !u.Calendar.Connected {
		link = h.Auth.AuthCodeURL(strconv.FormatInt(chatID, 10))
	}
	text := gcalStatus(u, utils.Location(u.TZ, h.defaultTZ))
	if note != "" {
		text += "\n\n" + note
	}
	kb := gcalKeyboard(u, link)

	if msgID > 0 {
		h.edit(chatID, msgID, text, kb)
		return
	}
	if kb != nil {
		h.sendWith(chatID, text, *kb)
		return
	}
	h.send(chatID, text)
}

func (h *Handler) runSync(ctx context.Context, chatID int64, msgID int, u *models.User, what string,
	run func() (calsync.Result, error)) {
	if u.Group == "" {
		h.send(chatID, txtNoGroup)
		return
	}
	res, err := run()
	if err != nil {
		h.calendarError(ctx, chatID, msgID, "handlers.runSync", err)
		return
	}
	if fresh, err := h.DB.GetUser(ctx, chatID); err == nil {
		u = fresh
	}
	h.renderCalendar(chatID, msgID, u, resultText(what, res))
}

func (h *Handler) chooseCalendar(ctx context.Context, chatID int64, msgID int, u *models.User) {
	cals, err := h.Calendar.ListCalendars(ctx, u)
	if err != nil {
		h.calendarError(ctx, chatID, msgID, "handlers.chooseCalendar", err)
		return
	}
	kb := chooseCalendarKeyboard(cals, calendarName(u))
	h.edit(chatID, msgID, "Выберите календарь для синхронизации:", &kb)
}

// selectListedCalendar resolves the button index against a fresh listing;
// calendar ids do not fit into callback data.
func (h *Handler) selectListedCalendar(ctx context.Context, chatID int64, msgID int, u *models.User, idx string) {
	i, err := strconv.Atoi(idx)
	if err != nil {
		return
	}
	cals, err := h.Calendar.ListCalendars(ctx, u)
	if err != nil {
		h.calendarError(ctx, chatID, msgID, "handlers.selectListedCalendar", err)
		return
	}
	if i < 0 || i >= len(cals) {
		h.chooseCalendar(ctx, chatID, msgID, u)
		return
	}
	id := cals[i].ID
	if cals[i].Primary {
		id = "primary"
	}
	h.selectCalendar(ctx, chatID, msgID, u, id)
}

func (h *Handler) selectCalendar(ctx context.Context, chatID int64, msgID int, u *models.User, id string) {
	if err := h.Calendar.SelectCalendar(ctx, u, id); err != nil {
		h.fail(chatID, "handlers.selectCalendar", err)
		return
	}
	h.renderCalendar(chatID, msgID, u, "Календарь выбран.")
}

func (h *Handler) createCalendar(ctx context.Context, chatID int64, msgID int, u *models.User) {
	title := separateCalendarTitle
	if u.Group != "" {
		title += " " + u.Group
	}
	cal, err := h.Calendar.CreateCalendar(ctx, u, title)
	if err != nil {
		h.calendarError(ctx, chatID, msgID, "handlers.createCalendar", err)
		return
	}
	h.renderCalendar(chatID, msgID, u, "Создан календарь «"+cal.Summary+"».")
}

func (h *Handler) disconnect(ctx context.Context, chatID int64, msgID int, u *models.User, purge bool) {
	if err := h.Calendar.Disconnect(ctx, u, purge); err != nil {
		h.fail(chatID, "handlers.disconnect", err)
		return
	}
	note := "Google Calendar отключён."
	if purge {
		note = "События бота удалены, Google Calendar отключён."
	}
	h.renderCalendar(chatID, msgID, u, note)
}

func (h *Handler) calendarError(ctx context.Context, chatID int64, msgID int, op string, err error) {
	if !calsync.IsNotConnected(err) {
		h.fail(chatID, op, err)
		return
	}
	h.log.Warn("calendar authorization lost", sl.ChatID(chatID), sl.Err(err))
	// drop dead tokens so the screen offers the connect link again
	if cerr := h.DB.ClearCalendar(ctx, chatID); cerr != nil {
		h.log.Error("failed to clear calendar", sl.ChatID(chatID), sl.Err(cerr))
	}
	if u, gerr := h.DB.GetUser(ctx, chatID); gerr == nil {
		h.renderCalendar(chatID, msgID, u, txtNotConnected)
		return
	}
	h.send(chatID, txtNotConnected)
}
