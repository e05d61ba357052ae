package identity

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/Aidin1998/foodhub/pkg/errors"
)

// OperatorConfig is the single console account.
type OperatorConfig struct {
	Username string `mapstructure:"username" validate:"required"`
	// PasswordHash is a bcrypt hash.
	PasswordHash string `mapstructure:"password_hash" validate:"required"`
}

// Operators checks console credentials.
type Operators struct {
	cfg OperatorConfig
}

func NewOperators(cfg OperatorConfig) *Operators {
	return &Operators{cfg: cfg}
}

// Login returns the operator identity for valid credentials.
func (o *Operators) Login(username, password string) (*Identity, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(o.cfg.Username)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(o.cfg.PasswordHash), []byte(password))
	if !userOK || err != nil {
		return nil, errors.Unauthorized.Explain("invalid credentials")
	}
	return &Identity{Subject: username, Role: RoleOperator}, nil
}

// HashPassword produces a hash suitable for OperatorConfig.PasswordHash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
