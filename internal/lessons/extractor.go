// Package lessons reads lesson records out of a normalized timetable grid.
package lessons

import (
	"regexp"
	"sort"
	"strings"

	"schedule-sync-bot/internal/grid"
	"schedule-sync-bot/internal/models"
)

// Sheet layout.
const (
	rowCourse    = 0
	rowParity    = 1
	rowGroup     = 2
	rowDataStart = 3

	colDay        = 0
	colTime       = 2
	colFirstGroup = 3
)

var wsRx = regexp.MustCompile(`\s+`)

type Options struct {
	// SpecialKeywords mark subjects that keep a slot even without a room.
	SpecialKeywords []string
	// RemoteKeywords mark online rooms by their text. A hyperlinked room is always remote.
	RemoteKeywords []string
	// SpecialRoomLabel replaces the room of a special lesson.
	SpecialRoomLabel string
}

func DefaultOptions() Options {
	return Options{
		SpecialKeywords:  []string{"истор", "англ"},
		RemoteKeywords:   []string{"zoom", "зуум"},
		SpecialRoomLabel: "⚠️ см. прилож.",
	}
}

type Extractor struct {
	special []string
	remote  []string
	label   string
}

func New(opts Options) *Extractor {
	e := &Extractor{label: opts.SpecialRoomLabel}
	for _, k := range opts.SpecialKeywords {
		if k = norm(k); k != "" {
			e.special = append(e.special, k)
		}
	}
	for _, k := range opts.RemoteKeywords {
		if k = norm(k); k != "" {
			e.remote = append(e.remote, k)
		}
	}
	return e
}

// Extract walks the lecture/room row pairs of an already normalized grid.
// links may be nil. The result is in grid order; no filtering by group,
// day or parity is applied.
func (e *Extractor) Extract(values, links grid.Matrix) []models.Lesson {
	var out []models.Lesson

	width := values.Width()
	for r := rowDataStart; r < len(values); r += 2 {
		dayCell := strings.TrimSpace(values.Cell(r, colDay))
		timeCell := oneLine(values.Cell(r, colTime))
		if dayCell == "" || timeCell == "" {
			continue
		}
		day, ok := models.ParseWeekday(dayCell)
		if !ok {
			continue
		}
		tr := ParseTimeRange(timeCell)

		for c := colFirstGroup; c < width; c++ {
			group := strings.TrimSpace(values.Cell(rowGroup, c))
			if group == "" {
				continue
			}
			lecture := oneLine(values.Cell(r, c))
			if lecture == "" {
				continue
			}
			parity, ok := ParseParity(values.Cell(rowParity, c))
			if !ok {
				continue
			}

			l := models.Lesson{
				Group:       group,
				Course:      strings.TrimSpace(values.Cell(rowCourse, c)),
				Day:         day,
				Time:        timeCell,
				Range:       tr,
				Parity:      parity,
				SubjectText: lecture,
			}

			room := oneLine(values.Cell(r+1, c))
			if room == "" || norm(room) == norm(lecture) {
				if !e.IsSpecial(lecture) {
					continue
				}
				l.IsSpecial = true
				l.Room = e.label
			} else {
				l.Room = room
				link := strings.TrimSpace(links.Cell(r+1, c))
				// a hyperlinked room cell is a remote class whatever its text
				l.RoomRemote = e.isRemote(room) || link != ""
				if link != "" {
					l.RemoteLink = &link
				}
			}

			l.Subject, l.Teachers = ParseSubject(lecture)
			if l.Subject == "" {
				l.Subject = lecture
			}

			out = append(out, l)
		}
	}

	return out
}

// IsSpecial reports whether a subject is in the special list.
func (e *Extractor) IsSpecial(subject string) bool {
	return containsAny(norm(subject), e.special)
}

func (e *Extractor) isRemote(s string) bool {
	return containsAny(norm(s), e.remote)
}

// ParseParity reads a parity header. "неч" is checked first since it
// contains "чет".
func ParseParity(s string) (models.Parity, bool) {
	n := norm(s)
	switch {
	case strings.Contains(n, "неч"):
		return models.ParityOdd, true
	case strings.Contains(n, "чет"):
		return models.ParityEven, true
	}
	return "", false
}

// Groups lists group codes under course headers containing course, ordered
// by length then value.
func Groups(values grid.Matrix, course string) []string {
	seen := make(map[string]struct{})
	var out []string
	for c := colFirstGroup; c < values.Width(); c++ {
		g := strings.TrimSpace(values.Cell(rowGroup, c))
		if g == "" {
			continue
		}
		if course != "" && !strings.Contains(values.Cell(rowCourse, c), course) {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func norm(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ё", "е")
	return strings.TrimSpace(wsRx.ReplaceAllString(s, " "))
}

func oneLine(s string) string {
	return strings.TrimSpace(wsRx.ReplaceAllString(s, " "))
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
