// Package config loads process configuration from a .env file and the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database driver names accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MinSessionSecretLength is the shortest SESSION_SECRET accepted in production.
const MinSessionSecretLength = 32

var (
	ErrMissingPostgres      = errors.New("postgres requires DB_HOST, DB_USER, DB_PASSWORD and DB_NAME")
	ErrMissingSessionSecret = errors.New("SESSION_SECRET must be set to at least 32 bytes in production")
	ErrMissingCSRFKey       = errors.New("CSRF_KEY must be set in production")
	ErrInvalidCSRFKey       = errors.New("CSRF_KEY must be 64 hex characters")
)

// Database holds connection settings for either supported driver.
type Database struct {
	Driver     string `validate:"required,oneof=sqlite postgres"`
	SQLitePath string
	Host       string
	Port       int `validate:"min=1,max=65535"`
	User       string
	Password   string
	Name       string
	SSLMode    string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// PostgresDSN builds a lib/pq connection URL. Credentials are escaped.
func (d Database) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Config is the fully resolved process configuration.
type Config struct {
	Env      string `validate:"oneof=development production"`
	Port     int    `validate:"min=1,max=65535"`
	LogLevel slog.Level
	Database Database

	SessionSecret []byte
	CSRFKey       []byte
	SessionTTL    time.Duration `validate:"min=1m"`
	SecureCookies bool

	ResendAPIKey  string
	EmailFrom     string
	PublicBaseURL string `validate:"omitempty,url"`

	ManagerEmail    string `validate:"omitempty,email"`
	ManagerPassword string

	SlowQueryMs        int `validate:"min=1"`
	SlowRequestMs      int `validate:"min=1"`
	LoginRatePerMinute int `validate:"min=1"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr returns the listen address for net/http.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load reads .env (if present) and the environment into a validated Config.
// Values already present in the environment win over the .env file.
// PRE: none
// POST: returns a Config with every required secret set, or an error naming the missing one
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function.
// Tests pass a map-backed lookup instead of mutating the process environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	var errs []error
	getInt := func(key string, fallback int) int {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return n
	}

	cfg := &Config{
		Env:  get("APP_ENV", EnvDevelopment),
		Port: getInt("PORT", 3000),
		Database: Database{
			Driver:     get("DB_DRIVER", DriverSQLite),
			SQLitePath: get("SQLITE_PATH", "ellarises.db"),
			Host:       get("DB_HOST", ""),
			Port:       getInt("DB_PORT", 5432),
			User:       get("DB_USER", ""),
			Password:   get("DB_PASSWORD", ""),
			Name:       get("DB_NAME", ""),
			SSLMode:    get("DB_SSLMODE", "require"),
		},
		ResendAPIKey:       get("RESEND_API_KEY", ""),
		EmailFrom:          get("EMAIL_FROM", ""),
		PublicBaseURL:      strings.TrimRight(get("PUBLIC_BASE_URL", ""), "/"),
		ManagerEmail:       get("MANAGER_EMAIL", ""),
		ManagerPassword:    get("MANAGER_PASSWORD", ""),
		SlowQueryMs:        getInt("SLOW_QUERY_MS", 50),
		SlowRequestMs:      getInt("SLOW_REQUEST_MS", 200),
		LoginRatePerMinute: getInt("LOGIN_RATE_PER_MINUTE", 10),
	}

	ttl, err := time.ParseDuration(get("SESSION_TTL", "24h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SESSION_TTL: %w", err))
		ttl = 24 * time.Hour
	}
	cfg.SessionTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	secure, err := strconv.ParseBool(get("SECURE_COOKIES", strconv.FormatBool(cfg.Env == EnvProduction)))
	if err != nil {
		errs = append(errs, fmt.Errorf("SECURE_COOKIES: %w", err))
	}
	cfg.SecureCookies = secure

	if err := validator.New().Struct(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Database.check(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.loadSecrets(get); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (d Database) check() error {
	if d.Driver != DriverPostgres {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Password == "" || d.Name == "" {
		return ErrMissingPostgres
	}
	return nil
}

// loadSecrets resolves SESSION_SECRET and CSRF_KEY. Development falls back to
// random per-process keys, which invalidates sessions on restart.
func (c *Config) loadSecrets(get func(string, string) string) error {
	secret := get("SESSION_SECRET", "")
	switch {
	case len(secret) >= MinSessionSecretLength:
		c.SessionSecret = []byte(secret)
	case c.IsProduction():
		return ErrMissingSessionSecret
	default:
		slog.Warn("config_ephemeral_secret", "key", "SESSION_SECRET")
		c.SessionSecret = randomBytes(32)
	}

	rawKey := get("CSRF_KEY", "")
	if rawKey == "" {
		if c.IsProduction() {
			return ErrMissingCSRFKey
		}
		slog.Warn("config_ephemeral_secret", "key", "CSRF_KEY")
		c.CSRFKey = randomBytes(32)
		return nil
	}
	key, err := hex.DecodeString(rawKey)
	if err != nil || len(key) != 32 {
		return ErrInvalidCSRFKey
	}
	c.CSRFKey = key
	return nil
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}
