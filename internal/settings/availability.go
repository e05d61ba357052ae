package settings

import (
	"context"
	"strings"

	"github.com/Aidin1998/foodhub/internal/schedule"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultContactPhone is shown on the status page when no phone is configured.
const DefaultContactPhone = "+998901234567"

var availabilityKeys = []string{
	KeyStoreMode, KeyWorkStart, KeyWorkEnd, KeyBreakStart, KeyBreakEnd, KeyPhone, KeyTimezone,
}

// LoadAvailability hydrates the store availability configuration. A missing
// store_mode means AUTO; a missing time zone falls back to defaultTZ.
// Malformed values are passed through untouched: the schedule resolver owns
// the fallback and fail-closed rules.
func LoadAvailability(ctx context.Context, g Getter, defaultTZ string) (schedule.Config, error) {
	vals, err := g.GetSettings(ctx, availabilityKeys...)
	if err != nil {
		return schedule.Config{}, err
	}

	cfg := schedule.Config{
		Mode:         schedule.ModeAuto,
		WorkStart:    strings.TrimSpace(vals[KeyWorkStart]),
		WorkEnd:      strings.TrimSpace(vals[KeyWorkEnd]),
		BreakStart:   strings.TrimSpace(vals[KeyBreakStart]),
		BreakEnd:     strings.TrimSpace(vals[KeyBreakEnd]),
		ContactPhone: vals[KeyPhone],
		Timezone:     defaultTZ,
	}
	if m, ok := vals[KeyStoreMode]; ok && m != "" {
		cfg.Mode = schedule.Mode(strings.ToUpper(strings.TrimSpace(m)))
	}
	if tz, ok := vals[KeyTimezone]; ok && tz != "" {
		cfg.Timezone = strings.TrimSpace(tz)
	}
	if cfg.ContactPhone == "" {
		cfg.ContactPhone = DefaultContactPhone
	}
	return cfg, nil
}

// Pricing holds the fee-related settings snapshotted into a new order.
type Pricing struct {
	DeliveryPrice decimal.Decimal
	// FreeDeliveryFrom waives the fee when the item subtotal reaches it.
	FreeDeliveryFrom *decimal.Decimal
	// MinOrder is the smallest accepted item subtotal.
	MinOrder *decimal.Decimal
}

// LoadPricing reads delivery fee settings. A missing delivery_price means no
// fee. A value that does not parse as a non-negative amount is configuration
// corruption and yields errors.Unavailable.
func LoadPricing(ctx context.Context, g Getter) (Pricing, error) {
	vals, err := g.GetSettings(ctx, KeyDeliveryPrice, KeyFreeDeliveryFrom, KeyMinOrder)
	if err != nil {
		return Pricing{}, err
	}

	p := Pricing{DeliveryPrice: decimal.Zero}
	if raw, ok := vals[KeyDeliveryPrice]; ok && strings.TrimSpace(raw) != "" {
		d, err := parseAmount(KeyDeliveryPrice, raw)
		if err != nil {
			return Pricing{}, err
		}
		p.DeliveryPrice = d
	}
	if raw, ok := vals[KeyFreeDeliveryFrom]; ok && strings.TrimSpace(raw) != "" {
		d, err := parseAmount(KeyFreeDeliveryFrom, raw)
		if err != nil {
			return Pricing{}, err
		}
		p.FreeDeliveryFrom = &d
	}
	if raw, ok := vals[KeyMinOrder]; ok && strings.TrimSpace(raw) != "" {
		d, err := parseAmount(KeyMinOrder, raw)
		if err != nil {
			return Pricing{}, err
		}
		p.MinOrder = &d
	}
	return p, nil
}

func parseAmount(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero, errors.Unavailable.
			Explain("setting %s has an invalid amount", key).
			Wrap(err)
	}
	return d, nil
}
