package utils

import (
	"log"
	"regexp"
	"time"
	_ "time/tzdata"
)

var hhmmRx = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

func Must(e error) {
	if e != nil {
		log.Fatal(e)
	}
}

// Location loads tz, falling back to def and then to UTC.
func Location(tz, def string) *time.Location {
	for _, name := range []string{tz, def} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// HHMM formats the wall clock of t, e.g. "07:05".
func HHMM(t time.Time) string {
	return t.Format("15:04")
}

// DateKey formats the civil date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseHHMM validates "H:MM" / "HH:MM" and returns it zero-padded.
func ParseHHMM(s string) (string, bool) {
	m := hhmmRx.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if len(m[1]) == 1 {
		return "0" + m[1] + ":" + m[2], true
	}
	return m[1] + ":" + m[2], true
}

// MinuteOfDay returns minutes since local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
