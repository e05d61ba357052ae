package identity

import (
	"context"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/pkg/errors"
)

// OTPConfig configures phone verification codes.
type OTPConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	Capacity    int           `mapstructure:"capacity"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// Sender delivers a code to a phone. Transport is outside this service.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log, for development.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, phone, code string) error {
	s.Logger.Info("OTP issued", zap.String("phone", phone), zap.String("code", code))
	return nil
}

// OTPService issues and verifies single-use phone codes.
type OTPService struct {
	store  Store
	sender Sender
	cfg    OTPConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewOTPService(store Store, sender Sender, cfg OTPConfig, logger *zap.Logger) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OTPService{store: store, sender: sender, cfg: cfg, logger: logger.Named("otp"), now: time.Now}
}

func (s *OTPService) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.cfg.TTL / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Issue generates a fresh secret for phone and sends the current code.
// A previous pending code for the same phone is replaced.
func (s *OTPService) Issue(ctx context.Context, phone string) error {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "foodhub",
		AccountName: phone,
		Period:      uint(s.cfg.TTL / time.Second),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return errors.Wrap(err).Explain("failed to generate code")
	}
	code, err := totp.GenerateCodeCustom(key.Secret(), s.now(), s.validateOpts())
	if err != nil {
		return errors.Wrap(err).Explain("failed to generate code")
	}
	if err := s.store.Set(ctx, secretKey(phone), []byte(key.Secret()), s.cfg.TTL); err != nil {
		return errors.Wrap(err).Explain("failed to store code")
	}
	_ = s.store.Delete(ctx, attemptsKey(phone))
	if err := s.sender.Send(ctx, phone, code); err != nil {
		return errors.Unavailable.Explain("failed to deliver code").Wrap(err)
	}
	return nil
}

// Verify consumes the pending code for phone. A code verifies at most once,
// even when the same code is submitted concurrently.
func (s *OTPService) Verify(ctx context.Context, phone, code string) error {
	secret, ok, err := s.store.Get(ctx, secretKey(phone))
	if err != nil {
		return errors.Wrap(err).Explain("failed to read code")
	}
	if !ok {
		return errors.Unauthorized.Explain("code expired or was never issued")
	}

	valid, err := totp.ValidateCustom(code, string(secret), s.now(), s.validateOpts())
	if err != nil || !valid {
		if s.recordFailure(ctx, phone) >= s.cfg.MaxAttempts {
			_ = s.store.Delete(ctx, secretKey(phone))
			s.logger.Warn("OTP attempts exhausted", zap.String("phone", phone))
		}
		return errors.Unauthorized.Explain("invalid code")
	}

	// Only the caller that removes the secret wins.
	if _, taken, err := s.store.Take(ctx, secretKey(phone)); err != nil {
		return errors.Wrap(err).Explain("failed to consume code")
	} else if !taken {
		return errors.Unauthorized.Explain("code already used")
	}
	_ = s.store.Delete(ctx, attemptsKey(phone))
	return nil
}

func (s *OTPService) recordFailure(ctx context.Context, phone string) int {
	n, err := s.store.Incr(ctx, attemptsKey(phone), s.cfg.TTL)
	if err != nil {
		s.logger.Error("Failed to record OTP attempt", zap.String("phone", phone), zap.Error(err))
		return s.cfg.MaxAttempts
	}
	return int(n)
}

func secretKey(phone string) string   { return "otp:secret:" + phone }
func attemptsKey(phone string) string { return "otp:attempts:" + phone }
