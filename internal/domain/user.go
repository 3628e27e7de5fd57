package domain

import (
	"strings"
	"time"
)

// PaymentMethod is a payout rail a user can be paid through.
type PaymentMethod string

const (
	PaymentTelebirr PaymentMethod = "Telebirr"
	PaymentCBE      PaymentMethod = "CBE"
)

var paymentCodes = map[string]PaymentMethod{
	"TE": PaymentTelebirr,
	"CB": PaymentCBE,
}

// PaymentMethodByCode resolves the short code typed by a user (TE, CB).
func PaymentMethodByCode(code string) (PaymentMethod, bool) {
	m, ok := paymentCodes[strings.ToUpper(strings.TrimSpace(code))]
	return m, ok
}

// PaymentProfile is the payout destination of a user.
type PaymentProfile struct {
	Method        PaymentMethod
	AccountName   string
	AccountNumber string
}

// User is a registered referrer.
type User struct {
	ID                   int64     `db:"id"`
	TelegramID           int64     `db:"telegram_id"`
	FirstName            string    `db:"first_name"`
	LastName             *string   `db:"last_name"`
	Username             *string   `db:"username"`
	ReferralCode         string    `db:"referral_code"`
	Balance              int64     `db:"balance"`
	PaymentMethod        *string   `db:"payment_method"`
	PaymentAccountName   *string   `db:"payment_account_name"`
	PaymentAccountNumber *string   `db:"payment_account_number"`
	CreatedAt            time.Time `db:"created_at"`
}

// HasPaymentMethod reports whether a complete payout destination is stored.
func (u User) HasPaymentMethod() bool {
	return nonEmpty(u.PaymentMethod) && nonEmpty(u.PaymentAccountName) && nonEmpty(u.PaymentAccountNumber)
}

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName)
	if nonEmpty(u.LastName) {
		name = strings.TrimSpace(name + " " + *u.LastName)
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

func nonEmpty(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}
