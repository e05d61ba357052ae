package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/pkg/errors"
)

type captureSender struct{ codes map[string]string }

func (c *captureSender) Send(_ context.Context, phone, code string) error {
	c.codes[phone] = code
	return nil
}

func newOTP(t *testing.T) (*OTPService, *captureSender, *fakeClock) {
	t.Helper()
	store, clock := newTestStore(16)
	sender := &captureSender{codes: map[string]string{}}
	svc := NewOTPService(store, sender, OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3}, zap.NewNop())
	svc.now = clock.now
	return svc, sender, clock
}

func TestOTPVerifiesOnce(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newOTP(t)
	phone := "+998901112233"

	require.NoError(t, svc.Issue(ctx, phone))
	code := sender.codes[phone]
	require.Len(t, code, 6)

	require.NoError(t, svc.Verify(ctx, phone, code))
	err := svc.Verify(ctx, phone, code)
	assert.True(t, errors.Is(err, errors.Unauthorized))
}

func TestOTPConcurrentVerifyAcceptsOnce(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newOTP(t)
	phone := "+998901112233"

	for run := 0; run < 20; run++ {
		require.NoError(t, svc.Issue(ctx, phone))
		code := sender.codes[phone]

		errs := make([]error, 8)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = svc.Verify(ctx, phone, code)
			}(i)
		}
		wg.Wait()

		accepted := 0
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.True(t, errors.Is(err, errors.Unauthorized))
		}
		require.Equal(t, 1, accepted, "run %d", run)
	}
}

func TestOTPExpires(t *testing.T) {
	ctx := context.Background()
	svc, sender, clock := newOTP(t)
	phone := "+998901112233"

	require.NoError(t, svc.Issue(ctx, phone))
	clock.t = clock.t.Add(6 * time.Minute)

	err := svc.Verify(ctx, phone, sender.codes[phone])
	assert.True(t, errors.Is(err, errors.Unauthorized))
}

func TestOTPAttemptsExhausted(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newOTP(t)
	phone := "+998901112233"

	require.NoError(t, svc.Issue(ctx, phone))
	good := sender.codes[phone]
	bad := "000000"
	if bad == good {
		bad = "111111"
	}
	for i := 0; i < 3; i++ {
		assert.Error(t, svc.Verify(ctx, phone, bad))
	}
	assert.True(t, errors.Is(svc.Verify(ctx, phone, good), errors.Unauthorized))
}

func TestOTPCodeMatchesTOTP(t *testing.T) {
	ctx := context.Background()
	svc, sender, clock := newOTP(t)
	phone := "+998900000000"
	require.NoError(t, svc.Issue(ctx, phone))

	secret, ok, err := svc.store.Get(ctx, secretKey(phone))
	require.NoError(t, err)
	require.True(t, ok)
	valid, err := totp.ValidateCustom(sender.codes[phone], string(secret), clock.t, svc.validateOpts())
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens(JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpirationHours: 1})

	signed, expires, err := tokens.Issue(Identity{Subject: "+998901112233", Role: RoleCustomer, Phone: "+998901112233"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, id.Role)
	assert.Equal(t, "+998901112233", id.Phone)
	assert.False(t, id.IsOperator())
}

func TestTokensRejectForeignAndExpired(t *testing.T) {
	a := NewTokens(JWTConfig{Secret: "0123456789abcdef0123456789abcdef"})
	b := NewTokens(JWTConfig{Secret: "another-secret-entirely-0123456789"})

	signed, _, err := a.Issue(Identity{Subject: "admin", Role: RoleOperator})
	require.NoError(t, err)
	_, err = b.Parse(signed)
	assert.True(t, errors.Is(err, errors.Unauthorized))

	a.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, _, err := a.Issue(Identity{Subject: "admin", Role: RoleOperator})
	require.NoError(t, err)
	_, err = a.Parse(expired)
	assert.True(t, errors.Is(err, errors.Unauthorized))
	a.now = time.Now

	noPhone, _, err := a.Issue(Identity{Subject: "someone", Role: RoleCustomer})
	require.NoError(t, err)
	_, err = a.Parse(noPhone)
	assert.True(t, errors.Is(err, errors.Unauthorized))

	_, err = a.Parse("not-a-token")
	assert.True(t, errors.Is(err, errors.Unauthorized))
}

func TestOperatorLogin(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	ops := NewOperators(OperatorConfig{Username: "admin", PasswordHash: hash})

	id, err := ops.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.True(t, id.IsOperator())

	_, err = ops.Login("admin", "wrong")
	assert.True(t, errors.Is(err, errors.Unauthorized))
	_, err = ops.Login("root", "s3cret")
	assert.True(t, errors.Is(err, errors.Unauthorized))
}
