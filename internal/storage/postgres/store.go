// Package postgres implements the persistence gateway on sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	coredatabase "github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/internal/domain"
)

const uniqueViolation = "23505"

// Store is the Postgres persistence gateway.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// mapUnique translates unique violations into domain errors by constraint name.
func mapUnique(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	logger.DB.Debug("unique violation",
		slog.String("event", "db.unique"),
		slog.String("constraint", pqErr.Constraint),
	)
	switch pqErr.Constraint {
	case "users_referral_code_key":
		return domain.ErrDuplicateCode
	case "users_telegram_id_key":
		return domain.ErrAlreadyRegistered
	}
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return coredatabase.WithTx(ctx, s.db, fn)
}
