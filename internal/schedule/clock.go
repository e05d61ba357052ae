package schedule

import (
	"fmt"
	"strconv"
	"time"
)

// MinutesPerDay is the number of distinct Clock values.
const MinutesPerDay = 24 * 60

// Clock is a wall-clock time of day with minute precision, stored as minutes
// since midnight.
type Clock int

// NewClock builds a Clock from hour and minute. It panics on out of range
// values; use ParseClock for untrusted input.
func NewClock(hour, minute int) Clock {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic(fmt.Sprintf("schedule: invalid clock %d:%d", hour, minute))
	}
	return Clock(hour*60 + minute)
}

// ParseClock parses a strict "HH:mm" string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' || !digits(s[:2]) || !digits(s[3:]) {
		return 0, fmt.Errorf("schedule: %q is not HH:mm", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("schedule: bad hour in %q", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("schedule: bad minute in %q", s)
	}
	return Clock(h*60 + m), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ClockOf returns the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is an inclusive time-of-day range. A window whose End is earlier
// than its Start wraps past midnight.
type Window struct {
	Start Clock
	End   Clock
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool { return w.End < w.Start }

// Contains reports membership of t with both boundaries inclusive.
func (w Window) Contains(t Clock) bool {
	if w.Wraps() {
		return t >= w.Start || t <= w.End
	}
	return t >= w.Start && t <= w.End
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
