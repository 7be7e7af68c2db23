// Package config loads the faucet configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	defaultListenAddr     = ":8080"
	defaultCORSOrigin     = "*"
	defaultETHAmountWei   = "100000000000000000" // 0.1 ether
	defaultETHCooldown    = 24 * time.Hour
	defaultConfirmTimeout = 90 * time.Second
	defaultRateLimitRPM   = 60
	defaultRateLimitBurst = 10
)

// Config holds everything the faucet process needs to start. All on-chain
// credentials are required; the process refuses to start without them.
type Config struct {
	// Chain.
	RPCURL          string
	PrivateKey      string // hex, with or without 0x prefix
	ContractAddress common.Address
	ChainID         int64 // 0 = ask the node
	ConfirmTimeout  time.Duration

	// Faucet defaults. The contract remains authoritative at claim time;
	// these feed the display layer and the ETH cooldown check.
	ETHAmountWei *big.Int
	ETHCooldown  time.Duration

	// Auth.
	JWTSecret    string
	AdminAddress common.Address

	// HTTP.
	ListenAddr     string
	MetricsAddr    string
	CORSOrigin     string
	RateLimitRPM   int
	RateLimitBurst int

	// Observability.
	SentryDSN   string
	Environment string

	// Optional durable store. History and registry fall back to in-memory
	// stores when unset.
	Postgres *PostgresConfig
}

// PostgresConfig holds the optional durable-store connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// ConnString returns a pgx-compatible connection string.
func (c *PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// Load reads configuration from the environment, loading a .env file first
// when one exists in the working directory.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:      os.Getenv("RPC_URL"),
		PrivateKey:  strings.TrimPrefix(os.Getenv("FAUCET_PRIVATE_KEY"), "0x"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ListenAddr:  envOr("LISTEN_ADDR", defaultListenAddr),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		CORSOrigin:  envOr("CORS_ORIGIN", defaultCORSOrigin),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: envOr("ENVIRONMENT", "development"),
	}

	if v := os.Getenv("FAUCET_CONTRACT_ADDRESS"); v != "" {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("FAUCET_CONTRACT_ADDRESS is not a valid address: %q", v)
		}
		cfg.ContractAddress = common.HexToAddress(v)
	}
	if v := os.Getenv("ADMIN_ADDRESS"); v != "" {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("ADMIN_ADDRESS is not a valid address: %q", v)
		}
		cfg.AdminAddress = common.HexToAddress(v)
	}

	var err error
	if cfg.ChainID, err = envInt64("CHAIN_ID", 0); err != nil {
		return nil, err
	}
	if cfg.ConfirmTimeout, err = envDuration("CONFIRM_TIMEOUT", defaultConfirmTimeout); err != nil {
		return nil, err
	}
	if cfg.ETHCooldown, err = envDuration("FAUCET_ETH_COOLDOWN", defaultETHCooldown); err != nil {
		return nil, err
	}

	amount := envOr("FAUCET_ETH_AMOUNT", defaultETHAmountWei)
	wei, ok := new(big.Int).SetString(amount, 10)
	if !ok || wei.Sign() <= 0 {
		return nil, fmt.Errorf("FAUCET_ETH_AMOUNT must be a positive wei amount: %q", amount)
	}
	cfg.ETHAmountWei = wei

	if cfg.RateLimitRPM, err = envInt("RATE_LIMIT_RPM", defaultRateLimitRPM); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}

	if db := os.Getenv("POSTGRES_DB"); db != "" {
		cfg.Postgres = &PostgresConfig{
			Host:     envOr("POSTGRES_HOST", "localhost"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			Database: db,
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and fills defaults.
func (cfg *Config) Validate() error {
	if cfg.RPCURL == "" {
		return errors.New("RPC_URL is required")
	}
	if cfg.PrivateKey == "" {
		return errors.New("FAUCET_PRIVATE_KEY is required")
	}
	if cfg.ContractAddress == (common.Address{}) {
		return errors.New("FAUCET_CONTRACT_ADDRESS is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if cfg.AdminAddress == (common.Address{}) {
		return errors.New("ADMIN_ADDRESS is required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.ETHAmountWei == nil || cfg.ETHAmountWei.Sign() <= 0 {
		return errors.New("ETH amount must be positive")
	}
	if cfg.ETHCooldown <= 0 {
		return errors.New("ETH cooldown must be positive")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.RateLimitRPM <= 0 {
		cfg.RateLimitRPM = defaultRateLimitRPM
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	if cfg.Postgres != nil {
		if cfg.Postgres.Username == "" {
			return errors.New("POSTGRES_USER is required when POSTGRES_DB is set")
		}
		if cfg.Postgres.Password == "" {
			return errors.New("POSTGRES_PASSWORD is required when POSTGRES_DB is set")
		}
	}
	return nil
}

// Production reports whether the process runs in a production environment.
// Error responses include detail only outside production.
func (cfg *Config) Production() bool {
	return strings.EqualFold(cfg.Environment, "production")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, v)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, v)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 24h): %q", key, v)
	}
	return d, nil
}
