package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"schedule-sync-bot/internal/messages"
	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/parity"
	"schedule-sync-bot/internal/schedule"
	"schedule-sync-bot/internal/storage"
	"schedule-sync-bot/internal/utils"
)

const maxGroupsShown = 40

func (h *Handler) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		h.HandleStart(ctx, msg)
	case "help":
		h.send(chatID, txtHelp)
	case "group":
		h.handleGroup(ctx, chatID, args)
	case "tz":
		h.handleTZ(ctx, chatID, args)
	case "today":
		h.showDay(ctx, chatID, 0)
	case "tomorrow":
		h.showDay(ctx, chatID, 1)
	case "autosend":
		h.handleAutosend(ctx, chatID, args)
	case "gcal":
		h.showCalendar(ctx, chatID, 0)
	case "autosync":
		h.handleAutosync(ctx, chatID, args)
	case "refresh":
		h.handleRefresh(ctx, chatID)
	case "reset":
		h.handleReset(ctx, chatID)
	default:
		h.send(chatID, txtHelp)
	}
}

// ---------------- /start --------------------
func (h *Handler) HandleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}

	u, err := h.DB.EnsureUser(ctx, chatID, username, h.defaultTZ)
	if err != nil {
		h.fail(chatID, "handlers.HandleStart", err)
		return
	}

	h.sendWith(chatID, "Привет! Я присылаю расписание и синхронизирую его с Google Calendar.\n\n"+txtHelp, mainKeyboard)
	if u.Group == "" {
		h.askGroup(ctx, chatID)
	}
}

func (h *Handler) askGroup(ctx context.Context, chatID int64) {
	if err := h.DB.SetUserState(ctx, chatID, stateWaitGroup); err != nil {
		h.fail(chatID, "handlers.askGroup", err)
		return
	}
	text := txtAskGroup
	if groups, err := h.Schedule.Groups(ctx, ""); err == nil && len(groups) > 0 {
		if len(groups) > maxGroupsShown {
			groups = groups[:maxGroupsShown]
		}
		text += "\n\nГруппы: " + strings.Join(groups, ", ")
	}
	h.send(chatID, text)
}

// ---------------- /group --------------------
func (h *Handler) handleGroup(ctx context.Context, chatID int64, args string) {
	if args == "" {
		h.askGroup(ctx, chatID)
		return
	}
	h.setGroup(ctx, chatID, args)
}

func (h *Handler) setGroup(ctx context.Context, chatID int64, input string) {
	const op = "handlers.setGroup"

	all, err := h.Schedule.Lessons(ctx)
	if err != nil {
		h.fail(chatID, op, err)
		return
	}
	groups, err := h.Schedule.Groups(ctx, "")
	if err != nil {
		h.fail(chatID, op, err)
		return
	}

	group, course, ok := resolveGroup(strings.TrimSpace(input), groups, all)
	if !ok {
		h.send(chatID, fmt.Sprintf("Группа %q не найдена в расписании. %s", input, txtAskGroup))
		return
	}
	if err := h.DB.SetGroup(ctx, chatID, course, group); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.send(chatID, "Сначала /start")
			return
		}
		h.fail(chatID, op, err)
		return
	}
	_ = h.DB.SetUserState(ctx, chatID, "")
	h.send(chatID, "Группа сохранена: "+group)
}

// resolveGroup matches user input against the sheet's group codes and finds
// the course of the group.
func resolveGroup(input string, groups []string, all []models.Lesson) (group, course string, ok bool) {
	for _, g := range groups {
		if strings.EqualFold(g, input) {
			group, ok = g, true
			break
		}
	}
	if !ok {
		return "", "", false
	}
	for _, l := range all {
		if l.Group == group && l.Course != "" {
			return group, l.Course, true
		}
	}
	return group, "", true
}

// ---------------- /tz --------------------
func (h *Handler) handleTZ(ctx context.Context, chatID int64, args string) {
	if args == "" {
		if err := h.DB.SetUserState(ctx, chatID, stateWaitTZ); err != nil {
			h.fail(chatID, "handlers.handleTZ", err)
			return
		}
		h.send(chatID, txtAskTZ)
		return
	}
	h.setTZ(ctx, chatID, args)
}

func (h *Handler) setTZ(ctx context.Context, chatID int64, tz string) {
	tz = strings.TrimSpace(tz)
	if _, err := time.LoadLocation(tz); err != nil || tz == "" {
		h.send(chatID, "Неизвестный часовой пояс. "+txtAskTZ)
		return
	}
	if err := h.DB.SetTimezone(ctx, chatID, tz); err != nil {
		h.fail(chatID, "handlers.setTZ", err)
		return
	}
	_ = h.DB.SetUserState(ctx, chatID, "")
	h.send(chatID, "Часовой пояс: "+tz)
}

// ---------------- /today /tomorrow --------------------
func (h *Handler) showDay(ctx context.Context, chatID int64, offset int) {
	const op = "handlers.showDay"

	u, err := h.DB.GetUser(ctx, chatID)
	if err != nil {
		h.userError(chatID, op, err)
		return
	}
	if u.Group == "" {
		h.send(chatID, txtNoGroup)
		return
	}

	all, err := h.Schedule.Lessons(ctx)
	if err != nil {
		h.fail(chatID, op, err)
		return
	}
	day := h.clock.Now().In(utils.Location(u.TZ, h.defaultTZ)).AddDate(0, 0, offset)
	ls := schedule.Day(all, u.Group, day)
	h.send(chatID, messages.Day(u.Group, models.WeekdayOf(day), parity.For(day), ls))
}

// ---------------- /autosend --------------------
func (h *Handler) handleAutosend(ctx context.Context, chatID int64, args string) {
	const op = "handlers.handleAutosend"

	u, err := h.DB.GetUser(ctx, chatID)
	if err != nil {
		h.userError(chatID, op, err)
		return
	}
	if args == "" {
		h.send(chatID, "Автоотправка: "+autosendLabel(u.Autosend)+"\n\n/autosend off | daily ЧЧ:ММ | live ЧЧ:ММ")
		return
	}

	a, err := parseAutosend(args)
	if err != nil {
		h.send(chatID, usageText(err, "/autosend off | daily ЧЧ:ММ | live ЧЧ:ММ"))
		return
	}

	state := u.Autosend
	if a.mode == nil {
		state.Enabled = false
	} else {
		state = models.AutosendState{Enabled: true, Mode: *a.mode, SendTime: a.at}
	}
	if state.Mode == "" {
		state.Mode = models.AutosendDigest
	}
	if err := h.DB.SetAutosend(ctx, chatID, state.Enabled, state.Mode, state.SendTime); err != nil {
		h.fail(chatID, op, err)
		return
	}
	if state.Enabled && u.Group == "" {
		h.send(chatID, "Автоотправка включена, но группа не выбрана. "+txtNoGroup)
		return
	}
	h.send(chatID, "Автоотправка: "+autosendLabel(state))
}

// ---------------- /autosync --------------------
func (h *Handler) handleAutosync(ctx context.Context, chatID int64, args string) {
	const op = "handlers.handleAutosync"

	u, err := h.DB.GetUser(ctx, chatID)
	if err != nil {
		h.userError(chatID, op, err)
		return
	}
	if args == "" {
		h.send(chatID, "Автосинхронизация: "+autosyncLabel(u.Calendar.Autosync)+"\n\n"+autosyncUsage)
		return
	}

	a, err := parseAutosync(args)
	if err != nil {
		h.send(chatID, usageText(err, autosyncUsage))
		return
	}
	if !a.Enabled {
		a = u.Calendar.Autosync
		a.Enabled = false
	}
	if a.Mode == "" {
		a.Mode = models.AutosyncDaily
	}
	if err := h.DB.SetAutosync(ctx, chatID, a); err != nil {
		h.fail(chatID, op, err)
		return
	}

	text := "Автосинхронизация: " + autosyncLabel(a)
	if a.Enabled && !u.Calendar.Connected {
		text += "\n" + txtNotConnected
	}
	h.send(chatID, text)
}

// ---------------- /refresh --------------------
func (h *Handler) handleRefresh(ctx context.Context, chatID int64) {
	h.Schedule.Invalidate()
	all, err := h.Schedule.Lessons(ctx)
	if err != nil {
		h.fail(chatID, "handlers.handleRefresh", err)
		return
	}
	h.send(chatID, fmt.Sprintf("Расписание перечитано, занятий в таблице: %d", len(all)))
}

// ---------------- /reset --------------------
func (h *Handler) handleReset(ctx context.Context, chatID int64) {
	const op = "handlers.handleReset"

	u, err := h.DB.GetUser(ctx, chatID)
	if err != nil {
		h.userError(chatID, op, err)
		return
	}
	if u.Calendar.Connected {
		// removes bot events and revokes the grant before tokens are dropped
		if err := h.Calendar.Disconnect(ctx, u, true); err != nil {
			h.fail(chatID, op, err)
			return
		}
	}
	if err := h.DB.ResetUser(ctx, chatID); err != nil {
		h.fail(chatID, op, err)
		return
	}
	h.send(chatID, "Настройки сброшены, Google Calendar отключён. Выберите группу: /group")
}

const autosyncUsage = "/autosync off | daily ЧЧ:ММ | weekly ЧЧ:ММ [пн..вс] | weekly2 ЧЧ:ММ [пн..вс] | rolling7 ЧЧ:ММ"

func usageText(err error, usage string) string {
	if errors.Is(err, errTime) {
		return "Время в формате ЧЧ:ММ, например 07:30."
	}
	return "Формат: " + usage
}

func (h *Handler) userError(chatID int64, op string, err error) {
	if errors.Is(err, storage.ErrUserNotFound) {
		h.send(chatID, "Сначала /start")
		return
	}
	h.fail(chatID, op, err)
}
