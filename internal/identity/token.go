package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Aidin1998/foodhub/pkg/errors"
)

const tokenIssuer = "foodhub"

var tokenAudience = []string{"foodhub-api"}

// JWTConfig configures token signing.
type JWTConfig struct {
	Secret          string `mapstructure:"secret" validate:"required,min=32"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	Role  Role   `json:"role"`
	Phone string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// accessClaims are the private claims checked on every verified token.
type accessClaims struct {
	Role  Role   `json:"role"`
	Phone string `json:"phone,omitempty"`
}

func (c *accessClaims) Validate(context.Context) error {
	switch c.Role {
	case RoleOperator:
		return nil
	case RoleCustomer:
		if c.Phone == "" {
			return fmt.Errorf("customer token without phone")
		}
		return nil
	default:
		return fmt.Errorf("unknown role %q", c.Role)
	}
}

// Tokens issues and verifies HS256 identity tokens.
type Tokens struct {
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
	validator *validator.Validator
}

func NewTokens(cfg JWTConfig) *Tokens {
	hours := cfg.ExpirationHours
	if hours <= 0 {
		hours = 24
	}
	t := &Tokens{secret: []byte(cfg.Secret), ttl: time.Duration(hours) * time.Hour, now: time.Now}

	v, err := validator.New(
		func(context.Context) (interface{}, error) { return t.secret, nil },
		validator.HS256,
		tokenIssuer,
		tokenAudience,
		validator.WithAllowedClockSkew(30*time.Second),
		validator.WithCustomClaims(func() validator.CustomClaims { return &accessClaims{} }),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to set up the token validator: %v", err))
	}
	t.validator = v
	return t
}

// Issue signs a token for id.
func (t *Tokens) Issue(id Identity) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := TokenClaims{
		Role:  id.Role,
		Phone: id.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings(tokenAudience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err).Explain("failed to sign token")
	}
	return signed, expires, nil
}

// ValidateToken verifies signature, issuer, audience, lifetime and role
// claims. Its signature matches jwtmiddleware.ValidateToken.
func (t *Tokens) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	return t.validator.ValidateToken(ctx, token)
}

// Parse verifies a token and returns the identity it carries.
func (t *Tokens) Parse(token string) (*Identity, error) {
	claims, err := t.ValidateToken(context.Background(), token)
	if err != nil {
		return nil, errors.Unauthorized.Explain("invalid token").Wrap(err)
	}
	return FromClaims(claims)
}

// FromClaims converts the result of ValidateToken to an Identity.
func FromClaims(v interface{}) (*Identity, error) {
	claims, ok := v.(*validator.ValidatedClaims)
	if !ok || claims == nil {
		return nil, errors.Unauthorized.Explain("invalid token claims")
	}
	custom, ok := claims.CustomClaims.(*accessClaims)
	if !ok {
		return nil, errors.Unauthorized.Explain("invalid token claims")
	}
	return &Identity{Subject: claims.RegisteredClaims.Subject, Role: custom.Role, Phone: custom.Phone}, nil
}
