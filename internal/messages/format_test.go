package messages

import (
	"strings"
	"testing"

	"schedule-sync-bot/internal/models"
)

func TestDay(t *testing.T) {
	link := "https://zoom.us/j/1"
	ls := []models.Lesson{
		{Time: "9:00-10:30", Subject: "Физика", Teachers: []string{"Иванов И.И."}, Room: "312"},
		{Time: "10:40-12:10", Subject: "История", IsSpecial: true, Room: "⚠️ см. прилож."},
		{Time: "12:40-14:10", Subject: "История", IsSpecial: true, Room: "⚠️ см. прилож."},
		{Time: "14:20-15:50", Subject: "Информатика", Room: "Zoom", RoomRemote: true, RemoteLink: &link},
	}

	got := Day("ИВТ-11", models.Monday, models.ParityOdd, ls)

	for _, want := range []string{
		"Группа ИВТ-11 • Нечётная неделя • Понедельник",
		"📚 Физика — Иванов И.И.",
		"📍 312",
		specialNote,
		"🔗 Zoom: https://zoom.us/j/1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in\n%s", want, got)
		}
	}
	if n := strings.Count(got, "📚 История"); n != 1 {
		t.Errorf("special lesson shown %d times", n)
	}
}

func TestDayEmpty(t *testing.T) {
	got := Day("ИВТ-11", models.Sunday, models.ParityEven, nil)
	if !strings.Contains(got, noLessons) || !strings.Contains(got, "Чётная неделя") {
		t.Errorf("got %q", got)
	}
}

func TestLiveCardAndKey(t *testing.T) {
	l := &models.Lesson{Time: "9:00-10:30", Subject: "Физика", SubjectText: "Физика Иванов И.И.", Room: "312"}

	if got := LiveKey("2025-09-01", l); got != "2025-09-01|9:00-10:30|Физика Иванов И.И." {
		t.Errorf("key = %q", got)
	}
	if got := LiveKey("2025-09-01", nil); got != "2025-09-01|NONE" {
		t.Errorf("key = %q", got)
	}
	if got := LiveCard("ИВТ-11", models.Monday, models.ParityOdd, nil); !strings.Contains(got, dayFinished) {
		t.Errorf("card = %q", got)
	}
	if got := LiveCard("ИВТ-11", models.Monday, models.ParityOdd, l); !strings.Contains(got, "📍 312") {
		t.Errorf("card = %q", got)
	}
}
