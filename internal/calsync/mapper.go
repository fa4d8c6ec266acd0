package calsync

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"schedule-sync-bot/internal/lessons"
	"schedule-sync-bot/internal/models"
)

const (
	subjectSlugLen = 18
	defaultSummary = "Занятие"
	remoteLocation = "Zoom"
)

// SchedKey identifies the event of one lesson slot:
// YYYYMMDDTHHMM-<group>-<subject slug>.
func SchedKey(date time.Time, l models.Lesson) string {
	return fmt.Sprintf("%sT%s-%s-%s",
		date.Format("20060102"),
		strings.ReplaceAll(lessons.Clock(l.Range.Start), ":", ""),
		strings.ToLower(l.Group),
		subjectSlug(l))
}

func subjectSlug(l models.Lesson) string {
	subj := l.Subject
	if subj == "" {
		subj = l.SubjectText
	}
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(subj) {
		if n == subjectSlugLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			n++
		}
	}
	if n == 0 {
		return "subj"
	}
	return b.String()
}

// BuildEvent maps a lesson on the given date to the event this bot owns.
func BuildEvent(date time.Time, l models.Lesson, tz string) (Event, error) {
	if !l.Range.Valid {
		return Event{}, fmt.Errorf("%w: %q", ErrBadTime, l.Time)
	}

	day := date.Format("2006-01-02")
	ev := Event{
		Summary:  l.Subject,
		Start:    day + "T" + lessons.Clock(l.Range.Start) + ":00",
		End:      day + "T" + lessons.Clock(l.Range.End) + ":00",
		TimeZone: tz,
		Private: map[string]string{
			propBot:   "1",
			propKey:   SchedKey(date, l),
			propGroup: l.Group,
		},
	}
	if ev.Summary == "" {
		ev.Summary = defaultSummary
	}

	var desc []string
	if len(l.Teachers) > 0 {
		desc = append(desc, "Преподаватель: "+strings.Join(l.Teachers, ", "))
	}
	if l.RoomRemote && l.RemoteLink != nil {
		desc = append(desc, "Ссылка: "+*l.RemoteLink)
	}
	ev.Description = strings.Join(desc, "\n")

	switch {
	case l.IsSpecial:
	case l.RoomRemote:
		ev.Location = remoteLocation
	default:
		ev.Location = l.Room
	}
	return ev, nil
}
