package menu

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "20060102"

// weekdayLabels is indexed by time.Weekday.
var weekdayLabels = [7]string{"日", "月", "火", "水", "木", "金", "土"}

// Weekday converts a YYYYMMDD string into its single-character weekday
// label. Anything that is not exactly eight digits yields "".
//
// Out-of-range days roll over into the following month, so "20260230"
// is read as March 2nd.
func Weekday(dateStr string) string {
	if len(dateStr) != 8 {
		return ""
	}
	year, err := strconv.Atoi(dateStr[0:4])
	if err != nil {
		return ""
	}
	month, err := strconv.Atoi(dateStr[4:6])
	if err != nil {
		return ""
	}
	day, err := strconv.Atoi(dateStr[6:8])
	if err != nil {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return weekdayLabels[t.Weekday()]
}

// WeekStart returns midnight of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekKey is the storage key of the week containing t.
func WeekKey(t time.Time) string {
	return WeekStart(t).Format(dateLayout)
}

// ParseDate parses a YYYYMMDD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYYMMDD", s)
	}
	return t, nil
}

// WeekURLs builds the daily menu URLs for `days` consecutive days starting
// on the Monday of the given week.
func WeekURLs(baseURL string, week time.Time, days int) []string {
	base := strings.TrimRight(baseURL, "/")
	monday := WeekStart(week)

	urls := make([]string, 0, days)
	for i := 0; i < days; i++ {
		d := monday.AddDate(0, 0, i).Format(dateLayout)
		urls = append(urls, fmt.Sprintf("%s/recipe/kondate/detail/k%s/", base, d))
	}
	return urls
}

// BatchWeekKey keys a batch of menus by the week of its first successful,
// dated menu, or by the week of now when there is none.
func BatchWeekKey(menus []DayMenu, now time.Time) string {
	for _, m := range menus {
		if m.Status != StatusSuccess {
			continue
		}
		if d, err := ParseDate(m.Date); err == nil {
			return WeekKey(d)
		}
	}
	return WeekKey(now)
}
