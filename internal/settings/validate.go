package settings

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/foodhub/internal/schedule"
	"github.com/Aidin1998/foodhub/pkg/errors"
)

// Editable lists the keys operators may change through the API.
var Editable = []string{
	KeyStoreMode, KeyWorkStart, KeyWorkEnd, KeyBreakStart, KeyBreakEnd,
	KeyPhone, KeyTimezone, KeyDeliveryPrice, KeyFreeDeliveryFrom, KeyMinOrder,
}

// Normalize validates value for key and returns the form to store. Writes
// are strict even though reads tolerate corruption: a value that would make
// the store fail closed is refused here.
func Normalize(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	invalid := func(msg string) error {
		return errors.Invalid.Explain("%s: %s", key, msg).WithField("invalid", "value", msg)
	}

	switch key {
	case KeyStoreMode:
		mode := schedule.Mode(strings.ToUpper(value))
		switch mode {
		case schedule.ModeAuto, schedule.ModeOpen, schedule.ModeClosed:
			return string(mode), nil
		}
		return "", invalid("must be AUTO, OPEN or CLOSED")
	case KeyWorkStart, KeyWorkEnd, KeyBreakStart, KeyBreakEnd:
		c, err := schedule.ParseClock(value)
		if err != nil {
			return "", invalid("must be HH:mm")
		}
		return c.String(), nil
	case KeyTimezone:
		if _, err := time.LoadLocation(value); err != nil || value == "" {
			return "", invalid("unknown time zone")
		}
		return value, nil
	case KeyDeliveryPrice, KeyFreeDeliveryFrom, KeyMinOrder:
		if value == "" && key != KeyDeliveryPrice {
			return "", nil
		}
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return "", invalid("must be a non-negative amount")
		}
		return d.String(), nil
	case KeyPhone:
		if value == "" {
			return "", invalid("must not be empty")
		}
		return value, nil
	}
	return "", errors.NotFound.Explain("unknown setting %q", key)
}
