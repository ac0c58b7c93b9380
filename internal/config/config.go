// Package config reads the EcoFood server settings from the environment,
// optionally seeded by configs/.env.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const Release = "release"

type DatabaseOptions struct {
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"5432"`
	User         string        `env:"DB_USER" envDefault:"postgres"`
	Password     string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name         string        `env:"DB_NAME" envDefault:"ecofood"`
	SSLMode      string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN builds a postgres URL, escaping credentials.
func (d *DatabaseOptions) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type AuthOptions struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	LoginRate    string        `env:"LOGIN_RATE_LIMIT" envDefault:"10-M"`
}

// BootstrapOptions describes the principal admin created on first start.
type BootstrapOptions struct {
	AdminName     string `env:"BOOTSTRAP_ADMIN_NAME" envDefault:"Administrador"`
	AdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

func (b BootstrapOptions) Enabled() bool {
	return b.AdminEmail != "" && b.AdminPassword != ""
}

type Config struct {
	Database  DatabaseOptions
	Auth      AuthOptions
	Bootstrap BootstrapOptions

	Port              string        `env:"PORT" envDefault:"8080"`
	GinMode           string        `env:"GIN_MODE" envDefault:"debug"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"text"`
	MetricsPath       string        `env:"METRICS_PATH" envDefault:"/metrics"`
	ExpiringSoonDays  int           `env:"EXPIRING_SOON_DAYS" envDefault:"3"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
}

// Load reads the given .env files when present and parses the process environment.
func Load(log logrus.FieldLogger, envFiles ...string) (*Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		log.WithField("tried", envFiles).Info("no .env file found, using process environment")
	} else if err := godotenv.Load(existing...); err != nil {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, cfg.Validate()
}

// Parse builds a Config from an explicit variable set instead of the process environment.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.GinMode == Release && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in release mode")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.ExpiringSoonDays < 0 {
		return fmt.Errorf("EXPIRING_SOON_DAYS must be non-negative, got %d", c.ExpiringSoonDays)
	}
	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		return errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Secret returns the signing secret, falling back to a development value outside release mode.
func (c *Config) Secret() string {
	if c.Auth.JWTSecret == "" {
		return "ecofood-dev-secret"
	}
	return c.Auth.JWTSecret
}
