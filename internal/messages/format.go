package messages

import (
	"fmt"
	"strings"

	"schedule-sync-bot/internal/models"
)

var sep = strings.Repeat("-", 40)

const (
	noLessons   = "Пар нет — можно отдыхать 🎉"
	dayFinished = "На сегодня пары закончились ✅"
	specialNote = "⚠️ Проверьте детали в приложении"
)

// Day renders a digest of one day. Repeated special lessons with the same
// subject are shown once.
func Day(group string, day models.Weekday, parity models.Parity, ls []models.Lesson) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Группа %s • %s • %s\n%s", group, parity.Label(), day.Russian(), sep)

	if len(ls) == 0 {
		b.WriteString("\n" + noLessons)
		return b.String()
	}

	shown := make(map[string]bool)
	for _, l := range ls {
		if l.IsSpecial {
			key := strings.ToLower(l.Subject)
			if shown[key] {
				continue
			}
			shown[key] = true
		}
		b.WriteString("\n" + lessonBlock(l) + "\n" + sep)
	}
	return b.String()
}

// LiveCard renders the single editable "next lesson" message. l is nil when
// the day is over.
func LiveCard(group string, day models.Weekday, parity models.Parity, l *models.Lesson) string {
	head := fmt.Sprintf("🔔 Группа %s • %s • %s", group, parity.Label(), day.Russian())
	if l == nil {
		return head + "\n" + dayFinished
	}
	return head + "\nБлижайшая пара:\n" + lessonBlock(*l)
}

// LiveKey identifies what a live card shows; the card is edited only when
// the key changes.
func LiveKey(date string, l *models.Lesson) string {
	if l == nil {
		return date + "|NONE"
	}
	return date + "|" + l.Time + "|" + l.SubjectText
}

func lessonBlock(l models.Lesson) string {
	lines := []string{"⏰ " + l.Time}

	subj := "📚 " + l.Subject
	if len(l.Teachers) > 0 {
		subj += " — " + strings.Join(l.Teachers, ", ")
	}
	lines = append(lines, subj)

	switch {
	case l.IsSpecial:
		lines = append(lines, specialNote)
	case l.Room != "":
		lines = append(lines, "📍 "+l.Room)
	}
	if l.RoomRemote && l.RemoteLink != nil {
		lines = append(lines, "🔗 Zoom: "+*l.RemoteLink)
	}
	return strings.Join(lines, "\n")
}
