package timesheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Break is one optional pause inside a working day. A break only counts
// when both ends are present.
type Break struct {
	Start string
	End   string
}

// ErrNegativeDuration indicates the end time precedes the start time once
// breaks are subtracted. The result is clamped to zero; callers decide
// whether to reject the entry.
var ErrNegativeDuration = errors.New("timesheet: negative working duration")

// WorkedHours computes worked hours from wall-clock times on one calendar
// day. Breaks with a missing end contribute nothing; a break whose end
// precedes its start contributes nothing rather than adding time back.
// The result is rounded to two decimals.
func WorkedHours(start, end string, breaks ...Break) (float64, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return 0, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return 0, err
	}

	worked := endMin - startMin
	for _, br := range breaks {
		if br.Start == "" || br.End == "" {
			continue
		}
		bs, err := parseClock(br.Start)
		if err != nil {
			return 0, err
		}
		be, err := parseClock(br.End)
		if err != nil {
			return 0, err
		}
		if d := be - bs; d > 0 {
			worked -= d
		}
	}

	if worked < 0 {
		return 0, ErrNegativeDuration
	}
	return round2(float64(worked) / 60), nil
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(v string) (int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock value %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed clock value %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed clock value %q", v)
	}
	return h*60 + m, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
