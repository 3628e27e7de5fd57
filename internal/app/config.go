// Package app wires the referral bot: configuration, infrastructure and Telegram routes.
package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coredatabase "github.com/m3rciful/refbot/core/database"
)

const (
	// StoragePostgres keeps all records in Postgres.
	StoragePostgres = "postgres"
	// StorageMemory keeps records in process memory; they are lost on restart.
	StorageMemory = "memory"
)

// ProgramConfig holds the referral program rules.
type ProgramConfig struct {
	MinWithdrawal   int64  `yaml:"min_withdrawal" envconfig:"MIN_WITHDRAWAL"`
	Currency        string `yaml:"currency" envconfig:"CURRENCY"`
	CodeMaxAttempts int    `yaml:"code_max_attempts" envconfig:"CODE_MAX_ATTEMPTS"`
	SupportContact  string `yaml:"support_contact" envconfig:"SUPPORT_CONTACT"`
}

// Config is the full application configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Program  ProgramConfig       `yaml:"program"`
	Storage  string              `yaml:"storage" envconfig:"STORAGE"`
}

// CoreConfig exposes the embedded core configuration to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// LoadConfig reads path (optional), .env and the environment, then validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.ReadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills program defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Core); err != nil {
		return err
	}

	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case "":
		c.Storage = StoragePostgres
		fallthrough
	case StoragePostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage %q; allowed: postgres, memory", c.Storage)
	}

	p := &c.Program
	if p.MinWithdrawal < 0 {
		return fmt.Errorf("program.min_withdrawal must be >= 0")
	}
	if p.MinWithdrawal == 0 {
		p.MinWithdrawal = 100
	}
	if p.Currency = strings.TrimSpace(p.Currency); p.Currency == "" {
		p.Currency = "birr"
	}
	if p.CodeMaxAttempts < 0 {
		return fmt.Errorf("program.code_max_attempts must be >= 0")
	}
	p.SupportContact = strings.TrimSpace(p.SupportContact)
	return nil
}
