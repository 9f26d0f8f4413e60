package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// minSecretLength is the shortest HS256 signing key accepted.
const minSecretLength = 32

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	CORSOrigins     []string      `env:"CORS_ORIGINS"`
	BodyLimit       string        `env:"BODY_LIMIT,       default=1M"`
	StoreTimeout    time.Duration `env:"STORE_TIMEOUT,    default=5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Auth     AuthConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Audit    AuditConfig
}

type AuthConfig struct {
	JWTSecret          string        `env:"JWT_SECRET,          required"`
	TokenTTL           time.Duration `env:"TOKEN_TTL,           default=1h"`
	BcryptCost         int           `env:"BCRYPT_COST,         default=10"`
	PasswordMinLength  int           `env:"PASSWORD_MIN_LENGTH, default=5"`
	SuperAdminEmail    string        `env:"SUPERADMIN_EMAIL,    default=superadmin@gmail.com"`
	SuperAdminPassword string        `env:"SUPERADMIN_PASSWORD"`
	SuperAdminPhone    string        `env:"SUPERADMIN_PHONE"`
	CredentialRate     float64       `env:"CREDENTIAL_RATE,     default=1"`
	CredentialBurst    int           `env:"CREDENTIAL_BURST,    default=5"`
}

type PostgresConfig struct {
	URL             string        `env:"DATABASE_URL,         required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,    default=20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,    default=10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
}

// RedisConfig is optional: an empty Addr disables token revocation.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// MongoConfig is optional: an empty URI disables the audit trail.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=admin_access"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads a .env file when present, then the process environment. Real
// environment variables take precedence over .env entries.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith processes configuration from an explicit lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Auth.PasswordMinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be at least 1"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.Postgres.MaxOpenConns < 1 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be at least 1"))
	}
	if c.Audit.Workers < 1 {
		errs = append(errs, errors.New("AUDIT_WORKERS must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
