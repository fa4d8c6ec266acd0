package handlers

import (
	"errors"
	"strconv"
	"strings"

	"schedule-sync-bot/internal/models"
	"schedule-sync-bot/internal/utils"
)

var (
	errUsage = errors.New("usage")
	errTime  = errors.New("bad time")
)

var weekdayShort = [7]string{"пн", "вт", "ср", "чт", "пт", "сб", "вс"}

var weekdayAliases = map[string]int{
	"пн": 0, "вт": 1, "ср": 2, "чт": 3, "пт": 4, "сб": 5, "вс": 6,
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// autosendArgs is the parsed "/autosend" command. A nil mode means "off".
type autosendArgs struct {
	mode *models.AutosendMode
	at   string
}

func parseAutosend(args string) (autosendArgs, error) {
	f := strings.Fields(strings.ToLower(args))
	if len(f) == 1 && f[0] == "off" {
		return autosendArgs{}, nil
	}
	if len(f) != 2 {
		return autosendArgs{}, errUsage
	}

	var mode models.AutosendMode
	switch f[0] {
	case "daily", "digest":
		mode = models.AutosendDigest
	case "live":
		mode = models.AutosendLive
	default:
		return autosendArgs{}, errUsage
	}
	at, ok := utils.ParseHHMM(f[1])
	if !ok {
		return autosendArgs{}, errTime
	}
	return autosendArgs{mode: &mode, at: at}, nil
}

// parseAutosync reads "/autosync" arguments. "off" returns a disabled
// schedule with zero fields; the caller keeps the previous ones.
func parseAutosync(args string) (models.Autosync, error) {
	f := strings.Fields(strings.ToLower(args))
	if len(f) == 1 && f[0] == "off" {
		return models.Autosync{}, nil
	}
	if len(f) < 2 || len(f) > 3 {
		return models.Autosync{}, errUsage
	}

	a := models.Autosync{Enabled: true}
	weekly := false
	switch f[0] {
	case "daily":
		a.Mode = models.AutosyncDaily
	case "weekly":
		a.Mode, weekly = models.AutosyncWeekly, true
	case "weekly2", "weekly_two":
		a.Mode, weekly = models.AutosyncWeeklyTwo, true
	case "rolling7", "rolling":
		a.Mode = models.AutosyncRolling7
	default:
		return models.Autosync{}, errUsage
	}

	at, ok := utils.ParseHHMM(f[1])
	if !ok {
		return models.Autosync{}, errTime
	}
	a.Time = at

	if len(f) == 3 {
		if !weekly {
			return models.Autosync{}, errUsage
		}
		wd, ok := parseWeekday(f[2])
		if !ok {
			return models.Autosync{}, errUsage
		}
		a.Weekday = wd
	}
	return a, nil
}

func parseWeekday(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0 && n <= 6
	}
	wd, ok := weekdayAliases[s]
	return wd, ok
}
