// Package config loads the service configuration from an optional YAML
// file and FOODHUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Aidin1998/foodhub/internal/database"
	"github.com/Aidin1998/foodhub/internal/identity"
	"github.com/Aidin1998/foodhub/internal/orders"
	"github.com/Aidin1998/foodhub/internal/realtime"
)

// Config is the full service configuration.
type Config struct {
	LogLevel string                  `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Server   ServerConfig            `mapstructure:"server"`
	Database database.Config         `mapstructure:"database"`
	Redis    RedisConfig             `mapstructure:"redis"`
	Kafka    realtime.KafkaConfig    `mapstructure:"kafka"`
	Realtime realtime.Options        `mapstructure:"realtime"`
	JWT      identity.JWTConfig      `mapstructure:"jwt"`
	Operator identity.OperatorConfig `mapstructure:"operator"`
	OTP      identity.OTPConfig      `mapstructure:"otp"`
	Orders   orders.Config           `mapstructure:"orders"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// RedisConfig enables the Redis-backed identity store.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=foodhub port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_queries", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "foodhub.orders")
	v.SetDefault("kafka.write_timeout", 5*time.Second)

	v.SetDefault("realtime.queue_size", 256)
	v.SetDefault("realtime.max_overflow", 256)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)

	v.SetDefault("operator.username", "admin")
	v.SetDefault("operator.password_hash", "")

	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.capacity", 10000)
	v.SetDefault("otp.max_attempts", 5)

	v.SetDefault("orders.timezone", "Asia/Tashkent")
	v.SetDefault("orders.unresolved_products", string(orders.UnresolvedSkip))

	v.SetDefault("tracing.enabled", false)
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("FOODHUB")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
