package domain

import "time"

// WithdrawalStatus is the state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalPending WithdrawalStatus = "pending"
	WithdrawalPaid    WithdrawalStatus = "paid"
)

// WithdrawalRequest is a debit already applied to the balance, awaiting manual payout.
type WithdrawalRequest struct {
	ID          int64            `db:"id"`
	UserID      int64            `db:"user_id"`
	Amount      int64            `db:"amount"`
	Status      WithdrawalStatus `db:"status"`
	ProofFileID *string          `db:"proof_file_id"`
	RequestedAt time.Time        `db:"requested_at"`
	ProcessedAt *time.Time       `db:"processed_at"`
}

// PayoutEntry is a withdrawal request joined with the requester's payout details.
type PayoutEntry struct {
	WithdrawalRequest
	TelegramID           int64   `db:"telegram_id"`
	FirstName            string  `db:"first_name"`
	Username             *string `db:"username"`
	PaymentMethod        *string `db:"payment_method"`
	PaymentAccountName   *string `db:"payment_account_name"`
	PaymentAccountNumber *string `db:"payment_account_number"`
}
