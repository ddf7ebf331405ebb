package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// defaultJWTSecret is only acceptable outside production.
const defaultJWTSecret = "secret"

// Storage backends
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageRedis    = "redis"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret               string        `env:"JWT_SECRET" envDefault:"secret"`
	JWTTTL                  time.Duration `env:"JWT_TTL" envDefault:"72h"`
	FirebaseCredentialsPath string        `env:"FIREBASE_CREDENTIALS_PATH"`
	AdminEmails             []string      `env:"ADMIN_EMAILS" envSeparator:","`

	PostgresURL   string `env:"POSTGRES_CONN_STR"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"voxmarket"`
	RedisURL      string `env:"REDIS_URL"`

	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"memory"`
	StorageItemMax  int64  `env:"STORAGE_MAX_ITEM_BYTES" envDefault:"1572864"`
	StorageTotalMax int64  `env:"STORAGE_MAX_TOTAL_BYTES" envDefault:"4194304"`
	RedisKeyPrefix  string `env:"REDIS_KEY_PREFIX" envDefault:"voxmarket:"`

	RelayEndpoints  []string      `env:"RELAY_ENDPOINTS" envSeparator:","`
	RelayToken      string        `env:"RELAY_TOKEN"`
	RelayTimeout    time.Duration `env:"RELAY_TIMEOUT" envDefault:"5s"`
	BreakerFailures uint32        `env:"RELAY_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"RELAY_BREAKER_COOLDOWN" envDefault:"30s"`
	SweepSchedule   string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1m"`

	GatewayDelay   time.Duration `env:"ESCROW_GATEWAY_DELAY" envDefault:"1500ms"`
	SendRatePerSec float64       `env:"SEND_RATE_PER_SEC" envDefault:"1"`
	SendBurst      int           `env:"SEND_BURST" envDefault:"5"`
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set to a non-default value when ENV is %q", c.Env)
	}
	switch c.StorageBackend {
	case StorageMemory, StoragePostgres:
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI must be set for the %s storage backend", c.StorageBackend)
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set for the %s storage backend", c.StorageBackend)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	// users always live in postgres
	if c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
