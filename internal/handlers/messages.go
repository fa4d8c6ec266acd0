package handlers

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"schedule-sync-bot/internal/calsync"
	"schedule-sync-bot/internal/models"
)

const (
	btnToday    = "Сегодня"
	btnTomorrow = "Завтра"
	btnCalendar = "Google Calendar"

	stateWaitGroup = "wait_group"
	stateWaitTZ    = "wait_tz"

	txtError        = "Что-то пошло не так."
	txtAskGroup     = "Введите код своей группы, например ИВТ-11."
	txtAskTZ        = "Введите часовой пояс в формате IANA, например Europe/Moscow."
	txtNoGroup      = "Сначала выберите группу: /group"
	txtNotConnected = "Google Calendar не подключён. Подключите его заново: /gcal"
	txtHelp         = `Команды:
/today, /tomorrow: расписание на день
/group КОД: выбрать группу
/tz ЗОНА: часовой пояс
/autosend off | daily ЧЧ:ММ | live ЧЧ:ММ
/gcal: Google Calendar
/autosync off | daily ЧЧ:ММ | weekly ЧЧ:ММ [пн] | weekly2 ЧЧ:ММ [пн] | rolling7 ЧЧ:ММ
/refresh: перечитать таблицу
/reset: сбросить настройки`
)

const (
	cbOpen         = "gcal:open"
	cbSyncToday    = "gcal:sync:today"
	cbSyncWeek     = "gcal:sync:week"
	cbSyncNextWeek = "gcal:sync:next"
	cbSyncDays     = "gcal:sync:days"
	cbChooseCal    = "gcal:cal:choose"
	cbCalPrimary   = "gcal:cal:primary"
	cbCalCreate    = "gcal:cal:create"
	cbCalSetPrefix = "gcal:cal:set:"
	cbDisconnect   = "gcal:disconnect"
	cbDiscKeep     = "gcal:disconnect:keep"
	cbDiscPurge    = "gcal:disconnect:purge"
)

var mainKeyboard = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnToday),
		tgbotapi.NewKeyboardButton(btnTomorrow),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnCalendar),
	),
)

var disconnectKB = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Удалить события бота и отключить", cbDiscPurge),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Отключить, события оставить", cbDiscKeep),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Назад", cbOpen),
	),
)

func gcalKeyboard(u *models.User, link string) *tgbotapi.InlineKeyboardMarkup {
	if !u.Calendar.Connected {
		if link == "" {
			return nil
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Подключить Google Calendar", link)),
		)
		return &kb
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Синхронизировать сегодня", cbSyncToday)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Эта неделя", cbSyncWeek),
			tgbotapi.NewInlineKeyboardButtonData("Следующая неделя", cbSyncNextWeek),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Ближайшие 7 дней", cbSyncDays)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Календарь: "+calendarName(u), cbChooseCal)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Отключить", cbDisconnect)),
	)
	return &kb
}

func chooseCalendarKeyboard(cals []calsync.CalendarInfo, current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range cals {
		title := c.Summary
		if c.Primary {
			title += " (основной)"
		}
		if c.ID == current || (c.Primary && current == "primary") {
			title = "• " + title
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, fmt.Sprintf("%s%d", cbCalSetPrefix, i)),
		))
	}
	if len(cals) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Основной", cbCalPrimary)))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Создать отдельный календарь", cbCalCreate)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Назад", cbOpen)),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func calendarName(u *models.User) string {
	if u.Calendar.CalendarID == "" {
		return "primary"
	}
	return u.Calendar.CalendarID
}

// gcalStatus renders the calendar screen; times are shown in loc.
func gcalStatus(u *models.User, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Google Calendar\n")
	if !u.Calendar.Connected {
		b.WriteString("Статус: не подключён\n\nНажмите «Подключить Google Calendar», затем вернитесь в бота.")
		return b.String()
	}

	last := "—"
	if u.Calendar.LastSyncAt != nil {
		last = u.Calendar.LastSyncAt.In(loc).Format("2006-01-02 15:04")
	}
	fmt.Fprintf(&b, "Статус: подключён\nКалендарь: %s\nПоследняя синхронизация: %s\n", calendarName(u), last)
	fmt.Fprintf(&b, "Автосинхронизация: %s", autosyncLabel(u.Calendar.Autosync))
	return b.String()
}

func autosyncLabel(a models.Autosync) string {
	if !a.Enabled {
		return "выкл"
	}
	switch a.Mode {
	case models.AutosyncWeekly:
		return fmt.Sprintf("раз в неделю, %s %s", weekdayShort[a.Weekday], a.Time)
	case models.AutosyncWeeklyTwo:
		return fmt.Sprintf("две недели вперёд, %s %s", weekdayShort[a.Weekday], a.Time)
	case models.AutosyncRolling7:
		return "7 дней вперёд, ежедневно в " + a.Time
	default:
		return "сегодняшний день, ежедневно в " + a.Time
	}
}

func autosendLabel(a models.AutosendState) string {
	if !a.Enabled {
		return "выкл"
	}
	if a.Mode == models.AutosendLive {
		return "карточка ближайшей пары с " + a.SendTime
	}
	return "расписание дня в " + a.SendTime
}

func resultText(what string, r calsync.Result) string {
	return fmt.Sprintf("%s: добавлено/обновлено %d, ошибок %d.", what, r.OK, r.Failed)
}
