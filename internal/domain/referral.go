package domain

import (
	"strings"
	"time"
)

// ReferralStatus is the lifecycle state of a referral.
type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "Pending"
	ReferralDone     ReferralStatus = "Done"
	ReferralRejected ReferralStatus = "Rejected"
)

// ReferralStatuses lists every status in keyboard order.
func ReferralStatuses() []ReferralStatus {
	return []ReferralStatus{ReferralDone, ReferralRejected, ReferralPending}
}

// ParseReferralStatus matches s case-insensitively against the known statuses.
func ParseReferralStatus(s string) (ReferralStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range ReferralStatuses() {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// Referral is a customer lead attributed to a referrer.
type Referral struct {
	ID            int64          `db:"id"`
	ReferrerID    int64          `db:"referrer_id"`
	CustomerName  *string        `db:"new_customer_name"`
	CustomerPhone *string        `db:"new_customer_phone"`
	Status        ReferralStatus `db:"status"`
	RewardAmount  *int64         `db:"reward_amount"`
	CreatedAt     time.Time      `db:"created_at"`
}

// ReferralEntry is a referral joined with its referrer.
type ReferralEntry struct {
	Referral
	ReferrerName       string `db:"referrer_name"`
	ReferrerTelegramID int64  `db:"referrer_telegram_id"`
}

// ReferralFilter selects the referral listing.
type ReferralFilter int

const (
	// AllReferrals lists every referral, newest first.
	AllReferrals ReferralFilter = iota
	// PendingReferrals lists Pending referrals, oldest first.
	PendingReferrals
)

// ReferralStats counts a referrer's referrals by status.
type ReferralStats struct {
	Total    int `db:"total"`
	Done     int `db:"done"`
	Pending  int `db:"pending"`
	Rejected int `db:"rejected"`
}
