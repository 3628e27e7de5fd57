package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/refbot/internal/domain"
)

const withdrawalColumns = `id, user_id, amount, status, proof_file_id, requested_at, processed_at`

const payoutSelect = `
	SELECT w.id, w.user_id, w.amount, w.status, w.proof_file_id, w.requested_at, w.processed_at,
	       u.telegram_id AS telegram_id, u.first_name AS first_name, u.username AS username,
	       u.payment_method AS payment_method,
	       u.payment_account_name AS payment_account_name,
	       u.payment_account_number AS payment_account_number
	FROM withdrawal_requests w
	JOIN users u ON u.id = w.user_id`

// CreateWithdrawal debits amount from the user and records a pending request in one
// transaction. The debit only applies when the balance covers it.
func (s *Store) CreateWithdrawal(ctx context.Context, userID, amount int64) (domain.WithdrawalRequest, error) {
	if amount <= 0 {
		return domain.WithdrawalRequest{}, domain.Invalid("amount", "must be positive")
	}
	var w domain.WithdrawalRequest
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET balance = balance - $2
			WHERE id = $1 AND balance >= $2`, userID, amount)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
				return err
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrInsufficientBalance
		}
		return tx.GetContext(ctx, &w, `
			INSERT INTO withdrawal_requests (user_id, amount, status, requested_at)
			VALUES ($1, $2, $3, $4)
			RETURNING `+withdrawalColumns, userID, amount, domain.WithdrawalPending, s.now())
	})
	if err != nil {
		return domain.WithdrawalRequest{}, fmt.Errorf("create withdrawal for user %d: %w", userID, err)
	}
	return w, nil
}

// WithdrawalByID returns a request with its requester's payout details.
func (s *Store) WithdrawalByID(ctx context.Context, id int64) (domain.PayoutEntry, error) {
	var p domain.PayoutEntry
	if err := s.db.GetContext(ctx, &p, payoutSelect+` WHERE w.id = $1`, id); err != nil {
		return domain.PayoutEntry{}, fmt.Errorf("withdrawal %d: %w", id, notFound(err))
	}
	return p, nil
}

// ListPendingWithdrawals returns pending requests, oldest first.
func (s *Store) ListPendingWithdrawals(ctx context.Context) ([]domain.PayoutEntry, error) {
	var out []domain.PayoutEntry
	err := s.db.SelectContext(ctx, &out, payoutSelect+` WHERE w.status = $1 ORDER BY w.requested_at ASC, w.id ASC`,
		domain.WithdrawalPending)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	return out, nil
}

// MarkWithdrawalPaid moves a pending request to paid with its proof.
func (s *Store) MarkWithdrawalPaid(ctx context.Context, id int64, proofFileID string, at time.Time) (domain.WithdrawalRequest, error) {
	if proofFileID == "" {
		return domain.WithdrawalRequest{}, domain.Invalid("proof", "photo is required")
	}
	var w domain.WithdrawalRequest
	err := s.db.GetContext(ctx, &w, `
		UPDATE withdrawal_requests
		SET status = $2, proof_file_id = $3, processed_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+withdrawalColumns, id, domain.WithdrawalPaid, proofFileID, at, domain.WithdrawalPending)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.WithdrawalRequest{}, fmt.Errorf("mark withdrawal %d paid: %w", id, err)
	}
	if _, lookupErr := s.WithdrawalByID(ctx, id); lookupErr != nil {
		return domain.WithdrawalRequest{}, fmt.Errorf("mark withdrawal %d paid: %w", id, domain.ErrNotFound)
	}
	return domain.WithdrawalRequest{}, fmt.Errorf("mark withdrawal %d paid: %w", id, domain.ErrAlreadyProcessed)
}
