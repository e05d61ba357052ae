// Package schedule decides whether the store is accepting orders at a given
// moment. Everything here is pure: no I/O, no clock reads, no logging.
package schedule

import (
	"sync"
	"time"
)

// Mode selects between the manual overrides and the time-window computation.
type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeOpen   Mode = "OPEN"
	ModeClosed Mode = "CLOSED"
)

// Default boundaries used when a configured value is missing or malformed.
var (
	DefaultWorkStart  = NewClock(9, 0)
	DefaultWorkEnd    = NewClock(23, 59)
	DefaultBreakStart = NewClock(20, 0)
	DefaultBreakEnd   = NewClock(22, 0)
)

// Config is the store availability configuration as read from settings.
// Boundaries stay raw strings so that parsing failures are handled here.
type Config struct {
	Mode         Mode
	WorkStart    string
	WorkEnd      string
	BreakStart   string
	BreakEnd     string
	ContactPhone string
	// Timezone is an IANA name. Empty means the location of the supplied now.
	Timezone string
}

// Reason classifies a verdict.
type Reason string

const (
	ReasonOpen          Reason = "open"
	ReasonManualClosed  Reason = "manual_closed"
	ReasonOutsideHours  Reason = "outside_hours"
	ReasonBreak         Reason = "break"
	ReasonMisconfigured Reason = "misconfigured"
)

// Verdict is the outcome of Resolve.
type Verdict struct {
	IsOpen     bool   `json:"is_open"`
	Reason     Reason `json:"reason"`
	Message    string `json:"message"`
	Mode       Mode   `json:"mode"`
	NextChange *Clock `json:"next_change"`
	// Degraded is set when at least one boundary fell back to its default.
	Degraded bool `json:"degraded,omitempty"`
}

// Resolve computes the availability verdict for now. It never panics and
// fails closed on an unknown mode or time zone.
func Resolve(cfg Config, now time.Time) Verdict {
	switch cfg.Mode {
	case ModeOpen:
		return Verdict{IsOpen: true, Reason: ReasonOpen, Message: "open", Mode: ModeOpen}
	case ModeClosed:
		return Verdict{IsOpen: false, Reason: ReasonManualClosed, Message: "temporarily closed", Mode: ModeClosed}
	case ModeAuto:
	default:
		return misconfigured(cfg.Mode)
	}

	if cfg.Timezone != "" {
		loc, err := loadLocation(cfg.Timezone)
		if err != nil {
			return misconfigured(ModeAuto)
		}
		now = now.In(loc)
	}
	current := ClockOf(now)

	work, workDegraded := window(cfg.WorkStart, cfg.WorkEnd, DefaultWorkStart, DefaultWorkEnd)
	brk, breakDegraded := window(cfg.BreakStart, cfg.BreakEnd, DefaultBreakStart, DefaultBreakEnd)
	degraded := workDegraded || breakDegraded

	allDay := work.Start == work.End
	if !allDay && !work.Contains(current) {
		next := work.Start
		return Verdict{
			IsOpen:     false,
			Reason:     ReasonOutsideHours,
			Message:    "working hours are " + work.String(),
			Mode:       ModeAuto,
			NextChange: &next,
			Degraded:   degraded,
		}
	}

	if brk.Start != brk.End && brk.Contains(current) {
		next := brk.End
		return Verdict{
			IsOpen:     false,
			Reason:     ReasonBreak,
			Message:    "on break until " + brk.End.String(),
			Mode:       ModeAuto,
			NextChange: &next,
			Degraded:   degraded,
		}
	}

	v := Verdict{IsOpen: true, Reason: ReasonOpen, Message: "open", Mode: ModeAuto, Degraded: degraded}
	if !allDay {
		next := work.End
		v.NextChange = &next
	}
	return v
}

func misconfigured(mode Mode) Verdict {
	return Verdict{
		IsOpen:  false,
		Reason:  ReasonMisconfigured,
		Message: "store configuration is invalid",
		Mode:    mode,
	}
}

// window parses both boundaries, substituting the defaults for any that do
// not parse.
func window(start, end string, defStart, defEnd Clock) (Window, bool) {
	degraded := false
	s, err := parseOr(start, defStart)
	if err != nil {
		degraded = true
	}
	e, err := parseOr(end, defEnd)
	if err != nil {
		degraded = true
	}
	return Window{Start: s, End: e}, degraded
}

// parseOr returns def for an empty string without reporting an error; an
// unset key is not corruption.
func parseOr(raw string, def Clock) (Clock, error) {
	if raw == "" {
		return def, nil
	}
	c, err := ParseClock(raw)
	if err != nil {
		return def, err
	}
	return c, nil
}

var locations sync.Map // name -> *time.Location

func loadLocation(name string) (*time.Location, error) {
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locations.Store(name, loc)
	return loc, nil
}
