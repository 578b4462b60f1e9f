package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env               string        `env:"APP_ENV" env-default:"local"`
	HTTPAddr          string        `env:"HTTP_ADDR" env-default:"0.0.0.0:8080"`
	StorageDriver     string        `env:"STORAGE_DRIVER" env-default:"postgres"`
	Postgres          Postgres
	JWTSecret         string        `env:"JWT_SECRET" env-required:"true"`
	DedupMode         string        `env:"VOTE_DEDUP_MODE" env-default:"combined"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" env-default:"false"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
	AnalyticsTimeout  time.Duration `env:"ANALYTICS_TIMEOUT" env-default:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

type Postgres struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	DB       string `env:"POSTGRES_DB" env-default:"polls"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// DSN renders the connection URL understood by lib/pq and golang-migrate.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvLocal, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvLocal, EnvProduction, c.Env))
	}

	switch c.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StorageDriver))
	}

	if _, err := domain.ParseDedupMode(c.DedupMode); err != nil {
		errs = append(errs, fmt.Errorf("VOTE_DEDUP_MODE: %w", err))
	}

	// A wildcard cannot carry the access_token cookie across origins.
	if c.Env == EnvProduction && slices.Contains(c.AllowedOrigins, "*") {
		errs = append(errs, errors.New(`ALLOWED_ORIGINS must list explicit origins in production, not "*"`))
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.AnalyticsTimeout <= 0 {
		errs = append(errs, errors.New("ANALYTICS_TIMEOUT must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) Ledger() domain.Ledger {
	mode, _ := domain.ParseDedupMode(c.DedupMode)
	return domain.NewLedger(mode)
}

// OriginAllowed reports whether origin may call the API or open a live
// connection.
func (c *Config) OriginAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ReadPostgres loads only the database settings, for tools that do not serve
// HTTP.
func ReadPostgres(pg *Postgres) error {
	if err := cleanenv.ReadEnv(pg); err != nil {
		return fmt.Errorf("cannot read database config: %w", err)
	}
	return nil
}
