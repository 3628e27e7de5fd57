package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds database connection settings.
// URL takes precedence over the discrete fields when set.
type Config struct {
	URL            string `yaml:"url" envconfig:"DATABASE_URL"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Validate checks that enough connection data is present and fills defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" && (c.Host == "" || c.Name == "") {
		return fmt.Errorf("database: DATABASE_URL or DB_HOST and DB_NAME are required")
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
	return nil
}

// URLString returns the connection string in URL form, as golang-migrate expects it.
func (c Config) URLString() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Target describes the server for logs without credentials.
func (c Config) Target() (host, port, name string) {
	if u, err := url.Parse(strings.TrimSpace(c.URL)); err == nil && u.Host != "" {
		return u.Hostname(), u.Port(), strings.TrimPrefix(u.Path, "/")
	}
	return c.Host, c.Port, c.Name
}
