package demand

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var isoWeekRegex = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// Week is an ISO 8601 week: [Start, End) from Monday 00:00 UTC to the next Monday.
type Week struct {
	Year  int
	Num   int
	Start time.Time
	End   time.Time
}

func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Num)
}

func (w Week) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End)
}

// ParseWeek parses `YYYY-Www`.
func ParseWeek(s string) (Week, error) {
	m := isoWeekRegex.FindStringSubmatch(s)
	if m == nil {
		return Week{}, fmt.Errorf("invalid week %q, expected YYYY-Www", s)
	}
	year, _ := strconv.Atoi(m[1])
	num, _ := strconv.Atoi(m[2])
	if num < 1 || num > weeksInYear(year) {
		return Week{}, fmt.Errorf("week %d out of range for %d", num, year)
	}

	start := week1Monday(year).AddDate(0, 0, (num-1)*7)
	return Week{Year: year, Num: num, Start: start, End: start.AddDate(0, 0, 7)}, nil
}

// WeekOf returns the ISO week t falls in.
func WeekOf(t time.Time) Week {
	year, num := t.UTC().ISOWeek()
	start := week1Monday(year).AddDate(0, 0, (num-1)*7)
	return Week{Year: year, Num: num, Start: start, End: start.AddDate(0, 0, 7)}
}

// week1Monday returns the Monday of the week holding January 4th.
func week1Monday(year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	return jan4.AddDate(0, 0, -offset)
}

func weeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}
