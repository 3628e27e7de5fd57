// Package memstore is an in-process persistence gateway with the same contract as the
// Postgres store. It backs tests and local runs without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/refbot/internal/domain"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	users       map[int64]*domain.User
	referrals   map[int64]*domain.Referral
	withdrawals map[int64]*domain.WithdrawalRequest
	seq         int64

	now      func() time.Time
	failNext error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[int64]*domain.User),
		referrals:   make(map[int64]*domain.Referral),
		withdrawals: make(map[int64]*domain.WithdrawalRequest),
		now:         time.Now,
	}
}

// SetClock replaces the time source used for creation timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// stamp returns strictly increasing timestamps so orderings are deterministic.
func (s *Store) stamp() time.Time {
	return s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

// FailNext makes the next mutating call return err without changing anything.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Store) injected() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) userByTelegram(telegramID int64) *domain.User {
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			return u
		}
	}
	return nil
}

// UserByTelegramID looks a user up by Telegram id.
func (s *Store) UserByTelegramID(_ context.Context, telegramID int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByTelegram(telegramID); u != nil {
		return *u, nil
	}
	return domain.User{}, fmt.Errorf("user by telegram id %d: %w", telegramID, domain.ErrNotFound)
}

// UserByID looks a user up by id.
func (s *Store) UserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return *u, nil
	}
	return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
}

// UserByReferralCode looks a user up by referral code.
func (s *Store) UserByReferralCode(_ context.Context, code string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ReferralCode == code {
			return *u, nil
		}
	}
	return domain.User{}, fmt.Errorf("user by code %q: %w", code, domain.ErrNotFound)
}

// ReferralCodeExists reports whether code is assigned.
func (s *Store) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

// CreateUser inserts u and fills its id, balance and creation time.
func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	for _, existing := range s.users {
		if existing.TelegramID == u.TelegramID {
			return fmt.Errorf("create user: %w", domain.ErrAlreadyRegistered)
		}
		if existing.ReferralCode == u.ReferralCode {
			return fmt.Errorf("create user: %w", domain.ErrDuplicateCode)
		}
	}
	u.ID = s.nextID()
	u.Balance = 0
	u.CreatedAt = s.stamp()
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

// UpdateProfile refreshes display data; the referral code is never touched.
func (s *Store) UpdateProfile(_ context.Context, telegramID int64, firstName string, lastName, username *string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(); err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	u := s.userByTelegram(telegramID)
	if u == nil {
		return domain.User{}, fmt.Errorf("update profile %d: %w", telegramID, domain.ErrNotFound)
	}
	u.FirstName, u.LastName, u.Username = firstName, lastName, username
	return *u, nil
}

// SetPaymentProfile stores the payout destination.
func (s *Store) SetPaymentProfile(_ context.Context, userID int64, p domain.PaymentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(); err != nil {
		return fmt.Errorf("set payment profile: %w", err)
	}
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("set payment profile %d: %w", userID, domain.ErrNotFound)
	}
	method, name, number := string(p.Method), p.AccountName, p.AccountNumber
	u.PaymentMethod, u.PaymentAccountName, u.PaymentAccountNumber = &method, &name, &number
	return nil
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// CreateReferral inserts r as Pending.
func (s *Store) CreateReferral(_ context.Context, r *domain.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(); err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	if _, ok := s.users[r.ReferrerID]; !ok {
		return fmt.Errorf("create referral: referrer %d: %w", r.ReferrerID, domain.ErrNotFound)
	}
	r.ID = s.nextID()
	r.Status = domain.ReferralPending
	r.RewardAmount = nil
	r.CreatedAt = s.stamp()
	stored := *r
	s.referrals[r.ID] = &stored
	return nil
}

func (s *Store) entry(r *domain.Referral) domain.ReferralEntry {
	e := domain.ReferralEntry{Referral: *r}
	if u, ok := s.users[r.ReferrerID]; ok {
		e.ReferrerName = u.FirstName
		e.ReferrerTelegramID = u.TelegramID
	}
	return e
}

// ReferralByID returns a referral with its referrer.
func (s *Store) ReferralByID(_ context.Context, id int64) (domain.ReferralEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.referrals[id]
	if !ok {
		return domain.ReferralEntry{}, fmt.Errorf("referral %d: %w", id, domain.ErrNotFound)
	}
	return s.entry(r), nil
}

// ListReferrals returns all referrals newest first, or the Pending ones oldest first.
func (s *Store) ListReferrals(_ context.Context, filter domain.ReferralFilter) ([]domain.ReferralEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReferralEntry
	for _, r := range s.referrals {
		if filter == domain.PendingReferrals && r.Status != domain.ReferralPending {
			continue
		}
		out = append(out, s.entry(r))
	}
	if filter == domain.PendingReferrals {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return out, nil
}

// ReferralStats counts the referrals of referrerID by status.
func (s *Store) ReferralStats(_ context.Context, referrerID int64) (domain.ReferralStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st domain.ReferralStats
	for _, r := range s.referrals {
		if r.ReferrerID != referrerID {
			continue
		}
		st.Total++
		switch r.Status {
		case domain.ReferralDone:
			st.Done++
		case domain.ReferralPending:
			st.Pending++
		case domain.ReferralRejected:
			st.Rejected++
		}
	}
	return st, nil
}

// UpdateReferralStatus moves a referral from one status to another.
func (s *Store) UpdateReferralStatus(_ context.Context, id int64, from, to domain.ReferralStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(); err != nil {
		return fmt.Errorf("update referral %d status: %w", id, err)
	}
	r, ok := s.referrals[id]
	if !ok {
		return fmt.Errorf("update referral %d status: %w", id, domain.ErrNotFound)
	}
	if r.Status != from {
		return fmt.Errorf("update referral %d status: %w", id, domain.ErrAlreadyProcessed)
	}
	r.Status = to
	return nil
}

// CompleteReferral marks a Pending referral Done and credits the referrer.
func (s *Store) CompleteReferral(_ context.Context, id, reward int64) (domain.ReferralEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reward <= 0 {
		return domain.ReferralEntry{}, domain.Invalid("reward", "must be positive")
	}
	if err := s.injected(); err != nil {
		return domain.ReferralEntry{}, fmt.Errorf("complete referral %d: %w", id, err)
	}
	r, ok := s.referrals[id]
	if !ok {
		return domain.ReferralEntry{}, fmt.Errorf("complete referral %d: %w", id, domain.ErrNotFound)
	}
	if r.Status != domain.ReferralPending {
		return domain.ReferralEntry{}, fmt.Errorf("complete referral %d: %w", id, domain.ErrAlreadyProcessed)
	}
	u, ok := s.users[r.ReferrerID]
	if !ok {
		return domain.ReferralEntry{}, fmt.Errorf("complete referral %d: referrer: %w", id, domain.ErrNotFound)
	}
	r.Status = domain.ReferralDone
	r.RewardAmount = &reward
	u.Balance += reward
	return s.entry(r), nil
}

// CreateWithdrawal debits the balance and records a pending request atomically.
func (s *Store) CreateWithdrawal(_ context.Context, userID, amount int64) (domain.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount <= 0 {
		return domain.WithdrawalRequest{}, domain.Invalid("amount", "must be positive")
	}
	if err := s.injected(); err != nil {
		return domain.WithdrawalRequest{}, fmt.Errorf("create withdrawal: %w", err)
	}
	u, ok := s.users[userID]
	if !ok {
		return domain.WithdrawalRequest{}, fmt.Errorf("create withdrawal for user %d: %w", userID, domain.ErrNotFound)
	}
	if u.Balance < amount {
		return domain.WithdrawalRequest{}, fmt.Errorf("create withdrawal for user %d: %w", userID, domain.ErrInsufficientBalance)
	}
	u.Balance -= amount
	w := domain.WithdrawalRequest{
		ID:          s.nextID(),
		UserID:      userID,
		Amount:      amount,
		Status:      domain.WithdrawalPending,
		RequestedAt: s.stamp(),
	}
	stored := w
	s.withdrawals[w.ID] = &stored
	return w, nil
}

func (s *Store) payout(w *domain.WithdrawalRequest) domain.PayoutEntry {
	p := domain.PayoutEntry{WithdrawalRequest: *w}
	if u, ok := s.users[w.UserID]; ok {
		p.TelegramID = u.TelegramID
		p.FirstName = u.FirstName
		p.Username = u.Username
		p.PaymentMethod = u.PaymentMethod
		p.PaymentAccountName = u.PaymentAccountName
		p.PaymentAccountNumber = u.PaymentAccountNumber
	}
	return p
}

// WithdrawalByID returns a request with its requester's payout details.
func (s *Store) WithdrawalByID(_ context.Context, id int64) (domain.PayoutEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return domain.PayoutEntry{}, fmt.Errorf("withdrawal %d: %w", id, domain.ErrNotFound)
	}
	return s.payout(w), nil
}

// ListPendingWithdrawals returns pending requests, oldest first.
func (s *Store) ListPendingWithdrawals(_ context.Context) ([]domain.PayoutEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PayoutEntry
	for _, w := range s.withdrawals {
		if w.Status == domain.WithdrawalPending {
			out = append(out, s.payout(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MarkWithdrawalPaid moves a pending request to paid with its proof.
func (s *Store) MarkWithdrawalPaid(_ context.Context, id int64, proofFileID string, at time.Time) (domain.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if proofFileID == "" {
		return domain.WithdrawalRequest{}, domain.Invalid("proof", "photo is required")
	}
	if err := s.injected(); err != nil {
		return domain.WithdrawalRequest{}, fmt.Errorf("mark withdrawal %d paid: %w", id, err)
	}
	w, ok := s.withdrawals[id]
	if !ok {
		return domain.WithdrawalRequest{}, fmt.Errorf("mark withdrawal %d paid: %w", id, domain.ErrNotFound)
	}
	if w.Status != domain.WithdrawalPending {
		return domain.WithdrawalRequest{}, fmt.Errorf("mark withdrawal %d paid: %w", id, domain.ErrAlreadyProcessed)
	}
	proof := proofFileID
	w.Status = domain.WithdrawalPaid
	w.ProofFileID = &proof
	w.ProcessedAt = &at
	return *w, nil
}

// Snapshot returns copies of all rows; tests use it to assert nothing changed.
func (s *Store) Snapshot() (users []domain.User, referrals []domain.Referral, withdrawals []domain.WithdrawalRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		users = append(users, *u)
	}
	for _, r := range s.referrals {
		referrals = append(referrals, *r)
	}
	for _, w := range s.withdrawals {
		withdrawals = append(withdrawals, *w)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	sort.Slice(referrals, func(i, j int) bool { return referrals[i].ID < referrals[j].ID })
	sort.Slice(withdrawals, func(i, j int) bool { return withdrawals[i].ID < withdrawals[j].ID })
	return users, referrals, withdrawals
}
