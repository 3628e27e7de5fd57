package app

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/refbot/core/bootstrap"
	corecmd "github.com/m3rciful/refbot/core/cmd"
	coredatabase "github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/state"
	"github.com/m3rciful/refbot/internal/conversation"
	"github.com/m3rciful/refbot/internal/refcode"
	"github.com/m3rciful/refbot/internal/storage/memstore"
	"github.com/m3rciful/refbot/internal/storage/postgres"
)

// Store is the persistence the bot runs on.
type Store interface {
	conversation.Store
	refcode.Checker
}

// App holds the long-lived components shared by every update.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	store    Store
	sessions state.Manager
}

// New assembles an App over an existing store. Bootstrap is the production entry point.
func New(cfg *Config, store Store) *App {
	return &App{cfg: cfg, store: store, sessions: state.NewMemoryManager()}
}

// Bootstrap initializes logging and storage for cfg.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	opts := bootstrap.Options{Config: &cfg.Core, Database: cfg.Database}
	if cfg.Storage == StorageMemory {
		opts.Connect = func(coredatabase.Config) (*sqlx.DB, error) { return nil, nil }
		opts.Migrate = func(coredatabase.Config) error { return nil }
	}
	infra, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	var store Store
	if infra.DB != nil {
		store = postgres.New(infra.DB)
	} else {
		store = memstore.New()
	}
	logger.Component("app").Info("storage ready",
		slog.String("event", "storage"),
		slog.String("kind", cfg.Storage),
	)

	a := New(cfg, store)
	a.infra = infra
	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	return a.infra.Close()
}
