package lessons

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"schedule-sync-bot/internal/models"
)

var timeRx = regexp.MustCompile(`^\s*(\d{1,2})[:.](\d{2})\s*[-–—]\s*(\d{1,2})[:.](\d{2})\s*$`)

// ParseTimeRange reads "8:30-10:00", "08.30 – 10.00" and similar.
func ParseTimeRange(s string) models.TimeRange {
	m := timeRx.FindStringSubmatch(s)
	if m == nil {
		return models.TimeRange{}
	}

	n := make([]int, 4)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	if n[0] > 23 || n[2] > 23 || n[1] > 59 || n[3] > 59 {
		return models.TimeRange{}
	}

	return models.TimeRange{
		Start: n[0]*60 + n[1],
		End:   n[2]*60 + n[3],
		Valid: true,
	}
}

// SortKey orders lessons by start minute; unparsable times go last.
func SortKey(tr models.TimeRange) int {
	if !tr.Valid {
		return math.MaxInt32
	}
	return tr.Start
}

// Clock formats minutes since midnight as HH:MM.
func Clock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
