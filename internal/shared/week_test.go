package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeekOfYearBoundary(t *testing.T) {
	// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
	w := WeekOf(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	require.Equal(t, Week{Year: 2025, Week: 1}, w)

	// 2027-01-01 is a Friday belonging to ISO week 53 of 2026.
	w = WeekOf(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, Week{Year: 2026, Week: 53}, w)
}

func TestWeekBounds(t *testing.T) {
	w, err := ParseWeek(2025, 42)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC), w.Monday())
	require.Equal(t, time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC), w.Sunday())
	require.Equal(t, time.Monday, w.Monday().Weekday())
	require.Equal(t, time.Sunday, w.Sunday().Weekday())
}

func TestWeekContains(t *testing.T) {
	w, err := ParseWeek(2025, 42)
	require.NoError(t, err)
	require.True(t, w.Contains(time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)))
	require.True(t, w.Contains(time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)))
}

func TestParseWeekRejectsMissingWeek53(t *testing.T) {
	_, err := ParseWeek(2025, 53)
	require.ErrorIs(t, err, ErrInvalidWeek)

	// 2026 is a long year.
	_, err = ParseWeek(2026, 53)
	require.NoError(t, err)
}

func TestWeekString(t *testing.T) {
	w := Week{Year: 2025, Week: 42}
	require.Equal(t, "KW 42/2025", w.String())
}
