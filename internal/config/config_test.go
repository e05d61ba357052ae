package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/foodhub/internal/orders"
)

func setRequired(t *testing.T) {
	t.Setenv("FOODHUB_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("FOODHUB_OPERATOR_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "Asia/Tashkent", cfg.Orders.Timezone)
	assert.Equal(t, orders.UnresolvedSkip, cfg.Orders.UnresolvedProducts)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 256, cfg.Realtime.QueueSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FOODHUB_SERVER_PORT", "9090")
	t.Setenv("FOODHUB_DATABASE_DRIVER", "sqlite")
	t.Setenv("FOODHUB_ORDERS_UNRESOLVED_PRODUCTS", "reject")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, orders.UnresolvedReject, cfg.Orders.UnresolvedProducts)
}

func TestLoadFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "foodhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
realtime:
  queue_size: 32
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 32, cfg.Realtime.QueueSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	setRequired(t)
	t.Setenv("FOODHUB_ORDERS_UNRESOLVED_PRODUCTS", "ignore")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("FOODHUB_ORDERS_UNRESOLVED_PRODUCTS", "skip")
	t.Setenv("FOODHUB_JWT_SECRET", "short")
	_, err = Load("")
	assert.Error(t, err)
}
