package lessons

import (
	"reflect"
	"testing"

	"schedule-sync-bot/internal/grid"
	"schedule-sync-bot/internal/models"
)

func header() grid.Matrix {
	return grid.Matrix{
		{"", "", "", "1 курс", "1 курс", "2 курс"},
		{"", "", "", "нечёт", "неч", "чёт"},
		{"", "", "", "ИВТ-11", "ИВТ-12", "ИВТ-21"},
	}
}

func TestExtractRoomAndTeacher(t *testing.T) {
	m := append(header(),
		[]string{"ПОНЕДЕЛЬНИК", "1", "9:00-10:30", "Физика Иванов И.И.", "", ""},
		[]string{"ПОНЕДЕЛЬНИК", "1", "9:00-10:30", "312", "", ""},
	)

	got := New(DefaultOptions()).Extract(m, nil)
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1: %+v", len(got), got)
	}

	l := got[0]
	if l.Group != "ИВТ-11" || l.Day != models.Monday || l.Parity != models.ParityOdd {
		t.Errorf("unexpected keys: %+v", l)
	}
	if l.Room != "312" || l.IsSpecial || l.RoomRemote {
		t.Errorf("unexpected room: %+v", l)
	}
	if l.Subject != "Физика" {
		t.Errorf("subject = %q", l.Subject)
	}
	if !reflect.DeepEqual(l.Teachers, []string{"Иванов И.И."}) {
		t.Errorf("teachers = %v", l.Teachers)
	}
	want := models.TimeRange{Start: 540, End: 630, Valid: true}
	if l.Range != want {
		t.Errorf("range = %+v, want %+v", l.Range, want)
	}
	if l.Course != "1 курс" {
		t.Errorf("course = %q", l.Course)
	}
}

func TestExtractSpecialWhenRoomRepeatsLecture(t *testing.T) {
	m := append(header(),
		[]string{"ВТОРНИК", "2", "10:40-12:10", "", "История России", ""},
		[]string{"ВТОРНИК", "2", "10:40-12:10", "", "История  России", ""},
	)

	got := New(DefaultOptions()).Extract(m, nil)
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1", len(got))
	}
	if !got[0].IsSpecial || got[0].Room != DefaultOptions().SpecialRoomLabel {
		t.Errorf("want special lesson with placeholder room, got %+v", got[0])
	}
}

func TestExtractDropsLessonWithoutRoom(t *testing.T) {
	m := append(header(),
		[]string{"СРЕДА", "1", "9:00-10:30", "", "", "Химия"},
		[]string{"СРЕДА", "1", "9:00-10:30", "", "", ""},
	)

	if got := New(DefaultOptions()).Extract(m, nil); len(got) != 0 {
		t.Fatalf("want no lessons, got %+v", got)
	}
}

func TestExtractRemoteRoom(t *testing.T) {
	m := append(header(),
		[]string{"ЧЕТВЕРГ", "3", "12:40-14:10", "Информатика", "Информатика", ""},
		[]string{"ЧЕТВЕРГ", "3", "12:40-14:10", "ZOOM", "онлайн", ""},
	)
	links := grid.Matrix{
		nil, nil, nil, nil,
		{"", "", "", "https://example.org/j/1", "https://us02web.zoom.us/j/2"},
	}

	got := New(DefaultOptions()).Extract(m, links)
	if len(got) != 2 {
		t.Fatalf("got %d lessons, want 2", len(got))
	}
	for _, l := range got {
		if !l.RoomRemote || l.RemoteLink == nil {
			t.Errorf("want remote lesson with link, got %+v", l)
		}
	}
	if *got[1].RemoteLink != "https://us02web.zoom.us/j/2" {
		t.Errorf("link = %q", *got[1].RemoteLink)
	}
}

func TestExtractHyperlinkedRoomIsRemote(t *testing.T) {
	m := append(header(),
		[]string{"ПЯТНИЦА", "2", "10:45-12:15", "Физика", "Физика", ""},
		[]string{"ПЯТНИЦА", "2", "10:45-12:15", "Онлайн", "ауд. 305", ""},
	)
	links := grid.Matrix{
		nil, nil, nil, nil,
		{"", "", "", "https://meet.google.com/abc"},
	}

	got := New(DefaultOptions()).Extract(m, links)
	if len(got) != 2 {
		t.Fatalf("got %d lessons, want 2", len(got))
	}
	if !got[0].RoomRemote || got[0].RemoteLink == nil || *got[0].RemoteLink != "https://meet.google.com/abc" {
		t.Errorf("linked room: %+v", got[0])
	}
	if got[0].Room != "Онлайн" {
		t.Errorf("room = %q", got[0].Room)
	}
	if got[1].RoomRemote || got[1].RemoteLink != nil {
		t.Errorf("plain room marked remote: %+v", got[1])
	}
}

func TestExtractSkipsBadRows(t *testing.T) {
	m := grid.Matrix{
		{"", "", "", "1 курс", "1 курс"},
		{"", "", "", "неч", "каждая"},
		{"", "", "", "ИВТ-11", "ИВТ-12"},
		{"", "1", "9:00-10:30", "Физика", "Физика"},
		{"", "1", "9:00-10:30", "101", "101"},
		{"ПЯТНИЦА", "2", "", "Физика", "Физика"},
		{"ПЯТНИЦА", "2", "", "101", "101"},
		{"ПЯТНИЦА", "3", "по договорённости", "Физика", "Физика"},
		{"ПЯТНИЦА", "3", "по договорённости", "101", "101"},
	}

	got := New(DefaultOptions()).Extract(m, nil)
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1: %+v", len(got), got)
	}
	if got[0].Range.Valid {
		t.Errorf("want invalid range, got %+v", got[0].Range)
	}
}

func TestExtractDeterministic(t *testing.T) {
	m := append(header(),
		[]string{"ПОНЕДЕЛЬНИК", "1", "9:00-10:30", "Физика", "Алгебра", "Химия"},
		[]string{"ПОНЕДЕЛЬНИК", "1", "9:00-10:30", "312", "210", "Б-1"},
	)

	e := New(DefaultOptions())
	a := e.Extract(m, nil)
	b := e.Extract(m, nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("extraction is not deterministic")
	}
}

func TestParseParity(t *testing.T) {
	cases := map[string]models.Parity{
		"нечётная": models.ParityOdd,
		"НЕЧ":      models.ParityOdd,
		"чётная":   models.ParityEven,
		"Чет":      models.ParityEven,
	}
	for in, want := range cases {
		got, ok := ParseParity(in)
		if !ok || got != want {
			t.Errorf("ParseParity(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseParity("обе"); ok {
		t.Error("unknown header parsed")
	}
}

func TestGroups(t *testing.T) {
	m := grid.Matrix{
		{"", "", "", "1 курс", "1 курс", "1 курс", "2 курс"},
		{},
		{"", "", "", "ИВТ-112", "ИВТ-11", "ИВТ-11", "ИВТ-21"},
	}

	got := Groups(m, "1")
	want := []string{"ИВТ-11", "ИВТ-112"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectAndCurrentOrNext(t *testing.T) {
	all := []models.Lesson{
		{Group: "ИВТ-11", Day: models.Monday, Parity: models.ParityOdd, Range: ParseTimeRange("12:00-13:30"), SubjectText: "b"},
		{Group: "ИВТ-11", Day: models.Monday, Parity: models.ParityOdd, Range: ParseTimeRange("9:00-10:30"), SubjectText: "a"},
		{Group: "ИВТ-11", Day: models.Monday, Parity: models.ParityOdd, Range: ParseTimeRange("когда-нибудь"), SubjectText: "z"},
		{Group: "ИВТ-11", Day: models.Monday, Parity: models.ParityEven, Range: ParseTimeRange("8:00-9:00"), SubjectText: "even"},
		{Group: "ИВТ-12", Day: models.Monday, Parity: models.ParityOdd, Range: ParseTimeRange("8:00-9:00"), SubjectText: "other"},
	}

	day := Select(all, "ивт-11", models.Monday, models.ParityOdd)
	if len(day) != 3 || day[0].SubjectText != "a" || day[1].SubjectText != "b" || day[2].SubjectText != "z" {
		t.Fatalf("unexpected selection: %+v", day)
	}

	cases := []struct {
		minute int
		want   string
	}{
		{minute: 8 * 60, want: "a"},
		{minute: 10*60 + 29, want: "a"},
		{minute: 10*60 + 30, want: "b"},
		{minute: 13*60 + 29, want: "b"},
	}
	for _, tc := range cases {
		got := CurrentOrNext(day, tc.minute)
		if got == nil || got.SubjectText != tc.want {
			t.Errorf("minute %d: got %+v, want %q", tc.minute, got, tc.want)
		}
	}
	if got := CurrentOrNext(day, 13*60+30); got != nil {
		t.Errorf("want no lesson after the last one, got %+v", got)
	}
}
