package shared

import (
	"errors"
	"fmt"
	"time"
)

// Week identifies one ISO-8601 calendar week. Weeks start on Monday and
// week 1 is the week containing January 4th, so a date near a year
// boundary can belong to the previous or following ISO year.
type Week struct {
	Year int
	Week int
}

// ErrInvalidWeek indicates an out-of-range week number.
var ErrInvalidWeek = errors.New("invalid iso week")

// WeekOf maps a calendar date to its ISO week.
func WeekOf(t time.Time) Week {
	year, week := t.ISOWeek()
	return Week{Year: year, Week: week}
}

// ParseWeek validates a year/week pair.
func ParseWeek(year, week int) (Week, error) {
	if year < 2000 || year > 2100 {
		return Week{}, fmt.Errorf("%w: year %d", ErrInvalidWeek, year)
	}
	if week < 1 || week > 53 {
		return Week{}, fmt.Errorf("%w: week %d", ErrInvalidWeek, week)
	}
	w := Week{Year: year, Week: week}
	// Week 53 only exists in long years.
	if week == 53 && WeekOf(w.Monday()) != w {
		return Week{}, fmt.Errorf("%w: year %d has no week 53", ErrInvalidWeek, year)
	}
	return w, nil
}

// Monday returns the first day of the week.
func (w Week) Monday() time.Time {
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (w.Week-1)*7)
}

// Sunday returns the last day of the week.
func (w Week) Sunday() time.Time {
	return w.Monday().AddDate(0, 0, 6)
}

// Contains reports whether the date falls within the week.
func (w Week) Contains(t time.Time) bool {
	return WeekOf(t) == w
}

// String renders the German/Slovak calendar-week notation used across
// exports, e.g. "KW 42/2025".
func (w Week) String() string {
	return fmt.Sprintf("KW %d/%d", w.Week, w.Year)
}
