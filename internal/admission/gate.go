// Package admission decides whether a new order may be created right now.
//
// The gate is called by the order service inside the same database
// transaction that creates the order, with the configuration loaded through
// that transaction. A concurrent settings change committed after the check
// but before the order commit is not seen: at most one order can slip in
// after closing. That race is accepted; nothing reconciles it afterwards.
package admission

import (
	"time"

	"github.com/Aidin1998/foodhub/internal/schedule"
	"github.com/Aidin1998/foodhub/pkg/errors"
)

// Admit returns nil when orders are being accepted at now. Otherwise it
// returns an errors.StoreClosed error whose message is the human readable
// reason and whose "next_change" detail is the HH:mm at which the store is
// expected to reopen, or nil when the closure is indefinite.
func Admit(cfg schedule.Config, now time.Time) error {
	v := schedule.Resolve(cfg, now)
	if v.IsOpen {
		return nil
	}
	return Rejection(v)
}

// Rejection converts a closed verdict into the error surfaced to clients.
func Rejection(v schedule.Verdict) *errors.Error {
	var next any
	if v.NextChange != nil {
		next = v.NextChange.String()
	}
	return errors.StoreClosed.
		Explain("%s", v.Message).
		WithDetail("reason", string(v.Reason)).
		WithDetail("next_change", next)
}

// Unavailable is returned when the configuration could not be loaded at all.
// Orders are refused rather than admitted blindly.
func Unavailable(cause error) *errors.Error {
	return errors.StoreClosed.
		Explain("store availability could not be determined").
		WithDetail("reason", string(schedule.ReasonMisconfigured)).
		WithDetail("next_change", nil).
		Wrap(cause)
}
