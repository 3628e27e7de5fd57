package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/refbot/internal/domain"
)

const referralEntrySelect = `
	SELECT r.id, r.referrer_id, r.new_customer_name, r.new_customer_phone, r.status,
	       r.reward_amount, r.created_at,
	       u.first_name AS referrer_name, u.telegram_id AS referrer_telegram_id
	FROM referrals r
	JOIN users u ON u.id = r.referrer_id`

// CreateReferral inserts r as Pending and fills its id and creation time.
func (s *Store) CreateReferral(ctx context.Context, r *domain.Referral) error {
	r.Status = domain.ReferralPending
	r.RewardAmount = nil
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO referrals (referrer_id, new_customer_name, new_customer_phone, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		r.ReferrerID, r.CustomerName, r.CustomerPhone, r.Status,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

// ReferralByID returns a referral with its referrer.
func (s *Store) ReferralByID(ctx context.Context, id int64) (domain.ReferralEntry, error) {
	return getReferral(ctx, s.db, id)
}

func getReferral(ctx context.Context, q sqlx.QueryerContext, id int64) (domain.ReferralEntry, error) {
	var e domain.ReferralEntry
	if err := sqlx.GetContext(ctx, q, &e, referralEntrySelect+` WHERE r.id = $1`, id); err != nil {
		return domain.ReferralEntry{}, fmt.Errorf("referral %d: %w", id, notFound(err))
	}
	return e, nil
}

// ListReferrals returns all referrals newest first, or the Pending ones oldest first.
func (s *Store) ListReferrals(ctx context.Context, filter domain.ReferralFilter) ([]domain.ReferralEntry, error) {
	query := referralEntrySelect + ` ORDER BY r.created_at DESC, r.id DESC`
	var args []any
	if filter == domain.PendingReferrals {
		query = referralEntrySelect + ` WHERE r.status = $1 ORDER BY r.created_at ASC, r.id ASC`
		args = append(args, domain.ReferralPending)
	}
	var out []domain.ReferralEntry
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return out, nil
}

// ReferralStats counts the referrals of referrerID by status.
func (s *Store) ReferralStats(ctx context.Context, referrerID int64) (domain.ReferralStats, error) {
	var st domain.ReferralStats
	err := s.db.GetContext(ctx, &st, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'Done')     AS done,
		       COUNT(*) FILTER (WHERE status = 'Pending')  AS pending,
		       COUNT(*) FILTER (WHERE status = 'Rejected') AS rejected
		FROM referrals WHERE referrer_id = $1`, referrerID)
	if err != nil {
		return domain.ReferralStats{}, fmt.Errorf("referral stats %d: %w", referrerID, err)
	}
	return st, nil
}

// UpdateReferralStatus moves a referral from one status to another without touching balances.
func (s *Store) UpdateReferralStatus(ctx context.Context, id int64, from, to domain.ReferralStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE referrals SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update referral %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return missingOrProcessed(ctx, s.db, id)
	}
	return nil
}

// CompleteReferral marks a Pending referral Done with reward and credits the referrer
// in the same transaction.
func (s *Store) CompleteReferral(ctx context.Context, id, reward int64) (domain.ReferralEntry, error) {
	if reward <= 0 {
		return domain.ReferralEntry{}, domain.Invalid("reward", "must be positive")
	}
	var entry domain.ReferralEntry
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var referrerID int64
		err := tx.GetContext(ctx, &referrerID, `
			UPDATE referrals SET status = $2, reward_amount = $3
			WHERE id = $1 AND status = $4
			RETURNING referrer_id`, id, domain.ReferralDone, reward, domain.ReferralPending)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return missingOrProcessed(ctx, tx, id)
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = balance + $2 WHERE id = $1`, referrerID, reward); err != nil {
			return err
		}
		entry, err = getReferral(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.ReferralEntry{}, fmt.Errorf("complete referral %d: %w", id, err)
	}
	return entry, nil
}

// missingOrProcessed runs on q so callers inside a transaction reuse its connection.
func missingOrProcessed(ctx context.Context, q sqlx.QueryerContext, id int64) error {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM referrals WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyProcessed
}
