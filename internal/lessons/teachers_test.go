package lessons

import (
	"reflect"
	"testing"
)

func TestParseSubject(t *testing.T) {
	cases := []struct {
		in       string
		subject  string
		teachers []string
	}{
		{in: "Физика Иванов И.И.", subject: "Физика", teachers: []string{"Иванов И.И."}},
		{in: "Химия И.И. Петров", subject: "Химия", teachers: []string{"Петров И.И."}},
		{in: "Мат. анализ доц. Сидорова А. Б.", subject: "Мат. анализ", teachers: []string{"Сидорова А.Б."}},
		{in: "Физика лаб. Салтыкова Д", subject: "Физика лаб.", teachers: []string{"Салтыкова Д."}},
		{in: "Программирование лек. Кузнецов", subject: "Программирование", teachers: []string{"Кузнецов"}},
		{in: "Алгебра, преп. Смирнов Олег Петрович", subject: "Алгебра", teachers: []string{"Смирнов О.П."}},
		{in: "Экономика Орлов А.А., Белова Н.В.", subject: "Экономика", teachers: []string{"Орлов А.А.", "Белова Н.В."}},
		{in: "История России", subject: "История России", teachers: []string{}},
	}

	for _, tc := range cases {
		subject, teachers := ParseSubject(tc.in)
		if subject != tc.subject {
			t.Errorf("%q: subject = %q, want %q", tc.in, subject, tc.subject)
		}
		if !reflect.DeepEqual(teachers, tc.teachers) {
			t.Errorf("%q: teachers = %v, want %v", tc.in, teachers, tc.teachers)
		}
	}
}

func TestTeachersPreferRicherInitials(t *testing.T) {
	_, got := ParseSubject("Физика Иванов И. / Иванов И.П. / Иванов А.А.")
	want := []string{"Иванов И.П.", "Иванов А.А."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end int
		ok         bool
	}{
		{"8:30-10:00", 510, 600, true},
		{" 08.30 – 10.00 ", 510, 600, true},
		{"13:00—14:30", 780, 870, true},
		{"25:00-26:00", 0, 0, false},
		{"утро", 0, 0, false},
	}
	for _, tc := range cases {
		got := ParseTimeRange(tc.in)
		if got.Valid != tc.ok || (tc.ok && (got.Start != tc.start || got.End != tc.end)) {
			t.Errorf("ParseTimeRange(%q) = %+v", tc.in, got)
		}
	}
	if SortKey(ParseTimeRange("x")) <= SortKey(ParseTimeRange("23:00-23:59")) {
		t.Error("invalid range must sort last")
	}
}
