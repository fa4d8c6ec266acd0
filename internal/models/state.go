package models

import (
	"strings"
	"time"
)

type AutosendMode string

const (
	AutosendDigest AutosendMode = "DAILY_DIGEST"
	AutosendLive   AutosendMode = "LIVE_NEXT_LESSON"
)

type AutosyncMode string

const (
	AutosyncDaily     AutosyncMode = "DAILY"
	AutosyncWeekly    AutosyncMode = "WEEKLY"
	AutosyncWeeklyTwo AutosyncMode = "WEEKLY_TWO"
	AutosyncRolling7  AutosyncMode = "ROLLING7"
)

type Parity string

const (
	ParityOdd  Parity = "ODD"
	ParityEven Parity = "EVEN"
)

// Label is the russian name shown to users.
func (p Parity) Label() string {
	if p == ParityEven {
		return "Чётная неделя"
	}
	return "Нечётная неделя"
}

type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var ruDays = map[string]Weekday{
	"ПОНЕДЕЛЬНИК": Monday,
	"ВТОРНИК":     Tuesday,
	"СРЕДА":       Wednesday,
	"ЧЕТВЕРГ":     Thursday,
	"ПЯТНИЦА":     Friday,
	"СУББОТА":     Saturday,
	"ВОСКРЕСЕНЬЕ": Sunday,
}

var ruNames = map[Weekday]string{
	Monday:    "Понедельник",
	Tuesday:   "Вторник",
	Wednesday: "Среда",
	Thursday:  "Четверг",
	Friday:    "Пятница",
	Saturday:  "Суббота",
	Sunday:    "Воскресенье",
}

// ParseWeekday maps a day header of the sheet ("ПОНЕДЕЛЬНИК", "вторник")
// to a Weekday.
func ParseWeekday(s string) (Weekday, bool) {
	d, ok := ruDays[strings.ToUpper(strings.TrimSpace(s))]
	return d, ok
}

func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

func (d Weekday) Russian() string { return ruNames[d] }
