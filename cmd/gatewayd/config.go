package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/backoff"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/shopspring/decimal"
)

// Config is the gatewayd environment configuration.
type Config struct {
	EnvName     string `env:"ENV_NAME"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogEncoding string `env:"LOG_ENCODING"`

	ServerAddress          string `env:"SERVER_ADDRESS"`
	BodyLimitBytes         int64  `env:"HTTP_BODY_LIMIT_BYTES"`
	ShutdownTimeoutSeconds int64  `env:"SHUTDOWN_TIMEOUT_SECONDS"`

	OtelServiceName       string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelLibraryName       string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceVersion    string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv     string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelCollectorEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry       bool   `env:"ENABLE_TELEMETRY"`

	LedgerDecimals       int64  `env:"LEDGER_DECIMALS"`
	AuthorizedIdentities string `env:"AUTHORIZED_IDENTITIES"`
	ReserveOperations    bool   `env:"ENABLE_RESERVE_OPERATIONS"`
	ReserveTreasury      string `env:"RESERVE_TREASURY_IDENTITY"`
	ReserveSeedBalances  string `env:"RESERVE_SEED_BALANCES"`

	RedisAddress          string `env:"REDIS_ADDRESS"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int64  `env:"REDIS_DB"`
	IdempotencyTTLSeconds int64  `env:"IDEMPOTENCY_TTL_SECONDS"`

	RabbitMQURI      string `env:"RABBITMQ_URI"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE"`

	DependencyConnectAttempts int64 `env:"DEPENDENCY_CONNECT_ATTEMPTS"`

	SystemMetricsIntervalSeconds int64 `env:"SYSTEM_METRICS_INTERVAL_SECONDS"`
}

// LoadConfig reads Config from the environment, loading .env first when
// ENV_NAME is local, and applies defaults.
func LoadConfig() (*Config, error) {
	gated.InitLocalEnvConfig()

	cfg := &Config{}
	if err := gated.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.EnvName, "development")
	setDefault(&c.LogLevel, "info")
	setDefault(&c.ServerAddress, ":8080")
	setDefault(&c.OtelServiceName, "gatewayd")
	setDefault(&c.OtelLibraryName, "github.com/LerianStudio/lib-gated")
	setDefault(&c.OtelServiceVersion, gated.GetenvOrDefault("VERSION", "0.0.0"))
	setDefault(&c.OtelDeploymentEnv, c.EnvName)

	// Zero is a valid precision, so only an unset variable takes the default.
	if strings.TrimSpace(os.Getenv("LEDGER_DECIMALS")) == "" {
		c.LedgerDecimals = int64(constant.DefaultDecimals)
	}

	if c.ShutdownTimeoutSeconds <= 0 {
		c.ShutdownTimeoutSeconds = 30
	}

	if c.DependencyConnectAttempts <= 0 {
		c.DependencyConnectAttempts = 5
	}

	if c.SystemMetricsIntervalSeconds <= 0 {
		c.SystemMetricsIntervalSeconds = 15
	}
}

// Validate rejects configurations gatewayd cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.LedgerDecimals < 0 || c.LedgerDecimals > int64(constant.MaxDecimals) {
		errs = append(errs, fmt.Errorf("LEDGER_DECIMALS must be between 0 and %d", constant.MaxDecimals))
	}

	if c.EnableTelemetry && c.OtelCollectorEndpoint == "" {
		errs = append(errs, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when ENABLE_TELEMETRY is true"))
	}

	if _, err := c.Authorized(); err != nil {
		errs = append(errs, err)
	}

	if c.ReserveOperations && strings.TrimSpace(c.ReserveTreasury) == "" {
		errs = append(errs, errors.New("RESERVE_TREASURY_IDENTITY is required when ENABLE_RESERVE_OPERATIONS is true"))
	}

	if _, err := c.Treasury(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.SeedBalances(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Authorized parses AUTHORIZED_IDENTITIES, a comma-separated list of
// identities granted at startup.
func (c *Config) Authorized() ([]gated.Identity, error) {
	var ids []gated.Identity

	for _, raw := range strings.Split(c.AuthorizedIdentities, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		id, err := gated.ParseIdentity(raw)
		if err != nil {
			return nil, fmt.Errorf("AUTHORIZED_IDENTITIES: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Treasury parses RESERVE_TREASURY_IDENTITY. It is empty when unset.
func (c *Config) Treasury() (gated.Identity, error) {
	if strings.TrimSpace(c.ReserveTreasury) == "" {
		return "", nil
	}

	id, err := gated.ParseIdentity(c.ReserveTreasury)
	if err != nil {
		return "", fmt.Errorf("RESERVE_TREASURY_IDENTITY: %w", err)
	}

	return id, nil
}

// SeedBalances parses RESERVE_SEED_BALANCES, a comma-separated list of
// identity=amount pairs in base units credited to the in-process value source
// at startup.
func (c *Config) SeedBalances() (map[gated.Identity]decimal.Decimal, error) {
	seeds := make(map[gated.Identity]decimal.Decimal)

	for _, pair := range strings.Split(c.ReserveSeedBalances, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}

		rawID, rawAmount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("RESERVE_SEED_BALANCES: %q is not identity=amount", pair)
		}

		id, err := gated.ParseIdentity(rawID)
		if err != nil {
			return nil, fmt.Errorf("RESERVE_SEED_BALANCES: %w", err)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
		if err != nil || !amount.IsPositive() || !gated.AmountWithinBounds(amount) || !amount.IsInteger() {
			return nil, fmt.Errorf("RESERVE_SEED_BALANCES: %s must be a positive whole number of base units", id)
		}

		if _, dup := seeds[id]; dup {
			return nil, fmt.Errorf("RESERVE_SEED_BALANCES: %s is listed twice", id)
		}

		seeds[id] = amount
	}

	return seeds, nil
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// IdempotencyTTL returns the idempotency record lifetime; zero selects the store default.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLSeconds) * time.Second
}

// ConnectPolicy bounds the startup connection retries to Redis and RabbitMQ.
func (c *Config) ConnectPolicy() backoff.Policy {
	return backoff.Policy{
		Attempts: int(c.DependencyConnectAttempts),
		Base:     200 * time.Millisecond,
		Max:      5 * time.Second,
	}
}

// SystemMetricsInterval returns the host metrics sampling period.
func (c *Config) SystemMetricsInterval() time.Duration {
	return time.Duration(c.SystemMetricsIntervalSeconds) * time.Second
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
