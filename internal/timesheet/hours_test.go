package timesheet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkedHoursSingleBreak(t *testing.T) {
	hours, err := WorkedHours("07:00", "16:00", Break{Start: "12:00", End: "12:30"})
	require.NoError(t, err)
	require.Equal(t, 8.5, hours)
}

func TestWorkedHoursTwoBreaks(t *testing.T) {
	hours, err := WorkedHours("06:30", "17:00",
		Break{Start: "09:00", End: "09:15"},
		Break{Start: "12:00", End: "12:45"})
	require.NoError(t, err)
	require.Equal(t, 9.5, hours)
}

func TestWorkedHoursNoBreaks(t *testing.T) {
	hours, err := WorkedHours("08:00", "12:15")
	require.NoError(t, err)
	require.Equal(t, 4.25, hours)
}

func TestWorkedHoursIncompleteBreakIgnored(t *testing.T) {
	hours, err := WorkedHours("07:00", "15:00", Break{Start: "12:00"})
	require.NoError(t, err)
	require.Equal(t, 8.0, hours)
}

func TestWorkedHoursInvertedBreakIgnored(t *testing.T) {
	// A break ending before it starts must not add time back.
	hours, err := WorkedHours("07:00", "15:00", Break{Start: "12:30", End: "12:00"})
	require.NoError(t, err)
	require.Equal(t, 8.0, hours)
}

func TestWorkedHoursNegativeClampedAndReported(t *testing.T) {
	hours, err := WorkedHours("16:00", "07:00")
	require.ErrorIs(t, err, ErrNegativeDuration)
	require.Equal(t, 0.0, hours)

	// Breaks can also push the total below zero.
	hours, err = WorkedHours("09:00", "10:00", Break{Start: "08:00", End: "11:00"})
	require.ErrorIs(t, err, ErrNegativeDuration)
	require.Equal(t, 0.0, hours)
}

func TestWorkedHoursRounding(t *testing.T) {
	hours, err := WorkedHours("08:00", "16:20")
	require.NoError(t, err)
	require.Equal(t, 8.33, hours)
}

func TestWorkedHoursDeterministic(t *testing.T) {
	first, err := WorkedHours("07:00", "16:00", Break{Start: "12:00", End: "12:30"})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := WorkedHours("07:00", "16:00", Break{Start: "12:00", End: "12:30"})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestWorkedHoursMalformedClock(t *testing.T) {
	_, err := WorkedHours("7h00", "16:00")
	require.Error(t, err)
	_, err = WorkedHours("07:00", "24:00")
	require.Error(t, err)
	_, err = WorkedHours("07:00", "16:60")
	require.Error(t, err)
}
