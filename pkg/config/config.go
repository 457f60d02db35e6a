package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is shared by every SPHIRE_* environment variable.
const EnvPrefix = "SPHIRE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Storage driver names accepted by SPHIRE_STORAGE_DRIVER.
const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
	StorageDriverMemory = "memory"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Storage StorageConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Mock    MockConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SPHIRE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SPHIRE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPHIRE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"SPHIRE_API_BASE_URL" default:"http://localhost:8080/api"`
	Timeout time.Duration `envconfig:"SPHIRE_API_TIMEOUT" default:"15s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing SPHIRE_API_BASE_URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("SPHIRE_API_BASE_URL must be an http(s) URL, got %q", a.BaseURL)
	}
	return nil
}

type StorageConfig struct {
	Driver     string `envconfig:"SPHIRE_STORAGE_DRIVER" default:"file"`
	Dir        string `envconfig:"SPHIRE_STORAGE_DIR" default:".sphire"`
	SQLitePath string `envconfig:"SPHIRE_STORAGE_SQLITE_PATH" default:".sphire/snapshots.db"`
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case StorageDriverFile, StorageDriverSQLite, StorageDriverRedis, StorageDriverMemory:
		return nil
	}
	return fmt.Errorf("unknown storage driver %q", s.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"SPHIRE_REDIS_URL"`
	Address      string        `envconfig:"SPHIRE_REDIS_ADDR"`
	Password     string        `envconfig:"SPHIRE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPHIRE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPHIRE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPHIRE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPHIRE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPHIRE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPHIRE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type AuthConfig struct {
	// RequireAdmin gates sessions to admin-role users. Used by the dashboard
	// build of the CLI; a business rule, not a security boundary.
	RequireAdmin bool `envconfig:"SPHIRE_AUTH_REQUIRE_ADMIN" default:"false"`
}

type MockConfig struct {
	Port              string `envconfig:"SPHIRE_MOCK_PORT" default:"8080"`
	JWTSecret         string `envconfig:"SPHIRE_MOCK_JWT_SECRET" default:"dev-secret"`
	JWTExpiryMinutes  int    `envconfig:"SPHIRE_MOCK_JWT_EXPIRATION_MINUTES" default:"1440"`
	SeedDemoCatalog   bool   `envconfig:"SPHIRE_MOCK_SEED_DEMO_CATALOG" default:"true"`
	SeedAdminEmail    string `envconfig:"SPHIRE_MOCK_SEED_ADMIN_EMAIL" default:"admin@sphire.dev"`
	SeedAdminPassword string `envconfig:"SPHIRE_MOCK_SEED_ADMIN_PASSWORD" default:"admin123"`
}

// JWTExpiry returns the mock server token TTL.
func (m MockConfig) JWTExpiry() time.Duration {
	if m.JWTExpiryMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(m.JWTExpiryMinutes) * time.Minute
}
