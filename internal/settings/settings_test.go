package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/foodhub/internal/schedule"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/testutil"
)

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewTestDB(t))

	_, ok, err := repo.GetSetting(ctx, KeyStoreMode)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Set(ctx, KeyStoreMode, "CLOSED")
	require.NoError(t, err)
	_, err = repo.Set(ctx, KeyStoreMode, "OPEN")
	require.NoError(t, err)

	v, ok, err := repo.GetSetting(ctx, KeyStoreMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "OPEN", v)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.Set(ctx, "", "x")
	assert.True(t, errors.Is(err, errors.Invalid))
}

func TestLoadAvailabilityDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewTestDB(t))

	cfg, err := LoadAvailability(ctx, repo, "Asia/Tashkent")
	require.NoError(t, err)
	assert.Equal(t, schedule.ModeAuto, cfg.Mode)
	assert.Equal(t, "Asia/Tashkent", cfg.Timezone)
	assert.Equal(t, DefaultContactPhone, cfg.ContactPhone)
}

func TestLoadAvailabilityFromSettings(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewTestDB(t))
	for k, v := range map[string]string{
		KeyStoreMode:  "closed",
		KeyWorkStart:  "10:00",
		KeyWorkEnd:    "02:00",
		KeyBreakStart: " 15:00 ",
		KeyBreakEnd:   "16:00",
		KeyPhone:      "+998711234567",
		KeyTimezone:   "UTC",
	} {
		_, err := repo.Set(ctx, k, v)
		require.NoError(t, err)
	}

	cfg, err := LoadAvailability(ctx, repo, "Asia/Tashkent")
	require.NoError(t, err)
	assert.Equal(t, schedule.ModeClosed, cfg.Mode)
	assert.Equal(t, "10:00", cfg.WorkStart)
	assert.Equal(t, "02:00", cfg.WorkEnd)
	assert.Equal(t, "15:00", cfg.BreakStart)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "+998711234567", cfg.ContactPhone)
}

func TestLoadPricing(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewTestDB(t))

	p, err := LoadPricing(ctx, repo)
	require.NoError(t, err)
	assert.True(t, p.DeliveryPrice.IsZero())
	assert.Nil(t, p.FreeDeliveryFrom)
	assert.Nil(t, p.MinOrder)

	_, err = repo.Set(ctx, KeyDeliveryPrice, "15000")
	require.NoError(t, err)
	_, err = repo.Set(ctx, KeyMinOrder, "20000")
	require.NoError(t, err)

	p, err = LoadPricing(ctx, repo)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15000).Equal(p.DeliveryPrice))
	require.NotNil(t, p.MinOrder)
	assert.True(t, decimal.NewFromInt(20000).Equal(*p.MinOrder))
}

func TestLoadPricingMalformedFailsClosed(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testutil.NewTestDB(t))

	_, err := repo.Set(ctx, KeyDeliveryPrice, "fifteen")
	require.NoError(t, err)
	_, err = LoadPricing(ctx, repo)
	assert.True(t, errors.Is(err, errors.Unavailable))

	_, err = repo.Set(ctx, KeyDeliveryPrice, "-1")
	require.NoError(t, err)
	_, err = LoadPricing(ctx, repo)
	assert.True(t, errors.Is(err, errors.Unavailable))
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		key, in, out string
		ok           bool
	}{
		{KeyStoreMode, "closed", "CLOSED", true},
		{KeyStoreMode, "SOMETIMES", "", false},
		{KeyWorkStart, "09:00", "09:00", true},
		{KeyWorkStart, "9am", "", false},
		{KeyBreakEnd, "24:00", "", false},
		{KeyTimezone, "UTC", "UTC", true},
		{KeyTimezone, "Mars/Olympus", "", false},
		{KeyDeliveryPrice, "15000.00", "15000", true},
		{KeyDeliveryPrice, "-5", "", false},
		{KeyMinOrder, "", "", true},
		{KeyPhone, "+998711234567", "+998711234567", true},
	}
	for _, c := range cases {
		got, err := Normalize(c.key, c.in)
		if c.ok {
			assert.NoError(t, err, "%s=%s", c.key, c.in)
			assert.Equal(t, c.out, got)
		} else {
			assert.True(t, errors.Is(err, errors.Invalid), "%s=%s", c.key, c.in)
		}
	}

	_, err := Normalize("secret_key", "x")
	assert.True(t, errors.Is(err, errors.NotFound))
}
