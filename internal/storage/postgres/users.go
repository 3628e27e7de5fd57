package postgres

import (
	"context"
	"fmt"

	"github.com/m3rciful/refbot/internal/domain"
)

const userColumns = `id, telegram_id, first_name, last_name, username, referral_code, balance,
	payment_method, payment_account_name, payment_account_number, created_at`

// UserByTelegramID looks a user up by Telegram id.
func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return domain.User{}, fmt.Errorf("user by telegram id %d: %w", telegramID, notFound(err))
	}
	return u, nil
}

// UserByID looks a user up by primary key.
func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %d: %w", id, notFound(err))
	}
	return u, nil
}

// UserByReferralCode looks a user up by referral code.
func (s *Store) UserByReferralCode(ctx context.Context, code string) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("user by code %q: %w", code, notFound(err))
	}
	return u, nil
}

// ReferralCodeExists reports whether code is assigned to any user.
func (s *Store) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE referral_code = $1)`, code); err != nil {
		return false, fmt.Errorf("referral code exists: %w", err)
	}
	return exists, nil
}

// CreateUser inserts u and fills its id, balance and creation time.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	rows, err := s.db.NamedQueryContext(ctx, `
		INSERT INTO users (telegram_id, first_name, last_name, username, referral_code)
		VALUES (:telegram_id, :first_name, :last_name, :username, :referral_code)
		RETURNING id, balance, created_at`, u)
	if err != nil {
		return fmt.Errorf("create user: %w", mapUnique(err))
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&u.ID, &u.Balance, &u.CreatedAt); err != nil {
			return fmt.Errorf("create user: scan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("create user: %w", mapUnique(err))
	}
	return nil
}

// UpdateProfile refreshes the display data of a user and returns the stored row.
func (s *Store) UpdateProfile(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `
		UPDATE users SET first_name = $2, last_name = $3, username = $4
		WHERE telegram_id = $1
		RETURNING `+userColumns, telegramID, firstName, lastName, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("update profile %d: %w", telegramID, notFound(err))
	}
	return u, nil
}

// SetPaymentProfile stores the three payment columns in one statement.
func (s *Store) SetPaymentProfile(ctx context.Context, userID int64, p domain.PaymentProfile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET payment_method = $2, payment_account_name = $3, payment_account_number = $4
		WHERE id = $1`, userID, string(p.Method), p.AccountName, p.AccountNumber)
	if err != nil {
		return fmt.Errorf("set payment profile %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set payment profile %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
