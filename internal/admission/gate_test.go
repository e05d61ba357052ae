package admission

import (
	"fmt"
	"testing"
	"time"

	"github.com/Aidin1998/foodhub/internal/schedule"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var breakCfg = schedule.Config{
	Mode:       schedule.ModeAuto,
	WorkStart:  "09:00",
	WorkEnd:    "23:59",
	BreakStart: "20:00",
	BreakEnd:   "22:00",
}

func TestAdmitOpen(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, Admit(breakCfg, now))
}

func TestAdmitRejectsDuringBreak(t *testing.T) {
	now := time.Date(2025, 5, 1, 21, 0, 0, 0, time.UTC)
	err := Admit(breakCfg, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.StoreClosed))

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "on break until 22:00", e.Message)
	assert.Equal(t, "22:00", e.Details["next_change"])
	assert.Equal(t, "break", e.Details["reason"])
}

func TestAdmitManualCloseHasNoNextChange(t *testing.T) {
	err := Admit(schedule.Config{Mode: schedule.ModeClosed}, time.Now())
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Nil(t, e.Details["next_change"])
}

func TestUnavailableFailsClosed(t *testing.T) {
	err := Unavailable(fmt.Errorf("db down"))
	assert.True(t, errors.Is(err, errors.StoreClosed))
}
