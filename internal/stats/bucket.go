package stats

import (
	"time"

	"github.com/tjfontaine/evalgate/internal/domain"
)

// dayKeyFormat is the calendar-day key layout shared by trend bucketing
// and the admission quota window. All day math is done in UTC so the two
// never disagree about what "today" means.
const dayKeyFormat = "2006-01-02"

// DayKey returns the UTC calendar-day key for t.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyFormat)
}

// StartOfDay returns midnight UTC of the calendar day containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EnumerateDays returns exactly windowDays calendar-day keys, oldest
// first, ending with DayKey(now). The output is a pure function of now
// and windowDays, so dense grids can always be built by joining a sparse
// series against it.
func EnumerateDays(windowDays int, now time.Time) []string {
	if windowDays <= 0 {
		return nil
	}
	keys := make([]string, windowDays)
	day := StartOfDay(now)
	for i := windowDays - 1; i >= 0; i-- {
		keys[i] = day.Format(dayKeyFormat)
		day = day.AddDate(0, 0, -1)
	}
	return keys
}

// Dense joins a sparse trend series onto the given day grid, filling
// missing days with zero. Days present in the series but absent from the
// grid are dropped.
func Dense(series []domain.TrendPoint, days []string) []domain.TrendPoint {
	byDay := make(map[string]float64, len(series))
	for _, p := range series {
		byDay[p.Date] = p.Value
	}
	out := make([]domain.TrendPoint, len(days))
	for i, d := range days {
		out[i] = domain.TrendPoint{Date: d, Value: byDay[d]}
	}
	return out
}
