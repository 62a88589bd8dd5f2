// Package config provides service configuration loaded from environment
// variables. Every variable may be prefixed with the service name
// (INVOICES_PORT, WORKORDERS_PORT); the unprefixed name is the fallback.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Service names, also used as environment prefixes.
const (
	ServiceInvoices   = "invoices"
	ServiceWorkOrders = "workorders"
)

// Config holds all configuration of one service.
type Config struct {
	Service string `ignored:"true"`

	ServerConfig
	DatabaseConfig
	AuthConfig
	LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `envconfig:"PORT"`
	ReadTimeout  int    `envconfig:"SERVER_READ_TIMEOUT" default:"15"`  // seconds
	WriteTimeout int    `envconfig:"SERVER_WRITE_TIMEOUT" default:"15"` // seconds
	IdleTimeout  int    `envconfig:"SERVER_IDLE_TIMEOUT" default:"60"`  // seconds
	CORSOrigin   string `envconfig:"CORS_ORIGIN" default:"*"`
}

// DatabaseConfig holds store connection settings. DSN wins over the
// individual postgres fields when set.
type DatabaseConfig struct {
	Driver     string `envconfig:"DB_DRIVER" default:"postgres"`
	DSN        string `envconfig:"DATABASE_DSN"`
	Name       string `envconfig:"DATABASE_NAME"`
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	User       string `envconfig:"DB_USER" default:"postgres"`
	Password   string `envconfig:"DB_PASSWORD"`
	SSLMode    string `envconfig:"DB_SSLMODE" default:"disable"`
	Debug      bool   `envconfig:"DB_DEBUG"`
	Migrations bool   `envconfig:"MIGRATIONS"`
	Retries    int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" default:"secret"`
	// ServiceURL points at the token issuer. Verification is local, so it
	// is only reported at startup.
	ServiceURL string `envconfig:"AUTH_SERVICE_URL" default:"http://localhost:8001"`
}

// LogConfig selects the log level and output format (text or json).
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads the configuration of service from the environment.
func Load(service string) (*Config, error) {
	cfg := &Config{Service: service}
	switch service {
	case ServiceInvoices:
		cfg.Port = "5000"
		cfg.Name = "billing_db"
	case ServiceWorkOrders:
		cfg.Port = "5001"
		cfg.Name = "orders_db"
	default:
		return nil, errors.Errorf("unknown service %q", service)
	}
	if err := envconfig.Process(strings.ToUpper(service), cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ConnString returns the driver connection string.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "sqlite" {
		return fmt.Sprintf("file:%s.db?_foreign_keys=on", d.Name)
	}
	parts := []string{
		"host=" + d.Host,
		fmt.Sprintf("port=%d", d.DBPort),
		"user=" + d.User,
	}
	// an empty "password=" would swallow the next pair
	if d.Password != "" {
		parts = append(parts, "password="+d.Password)
	}
	parts = append(parts, "dbname="+d.Name, "sslmode="+d.SSLMode)
	return strings.Join(parts, " ")
}
