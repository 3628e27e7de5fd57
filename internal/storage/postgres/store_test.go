package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/internal/domain"
)

// setupStore connects to REFBOT_TEST_DATABASE_URL (optionally from ../../../.env),
// applies the migrations and empties the tables. Tests are skipped without it.
func setupStore(t *testing.T) *Store {
	t.Helper()
	_ = godotenv.Load("../../../.env")
	url := os.Getenv("REFBOT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("REFBOT_TEST_DATABASE_URL not set")
	}

	cfg := coredatabase.Config{URL: url, MigrationsDir: "../../../migrations"}
	require.NoError(t, coredatabase.RunMigrations(cfg))
	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`TRUNCATE withdrawal_requests, referrals, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return New(db)
}

func createUser(t *testing.T, s *Store, telegramID int64, code string) domain.User {
	t.Helper()
	u := domain.User{TelegramID: telegramID, FirstName: "User", ReferralCode: code}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return u
}

func credit(t *testing.T, s *Store, referrerID, amount int64) {
	t.Helper()
	ctx := context.Background()
	r := domain.Referral{ReferrerID: referrerID}
	require.NoError(t, s.CreateReferral(ctx, &r))
	_, err := s.CompleteReferral(ctx, r.ID, amount)
	require.NoError(t, err)
}

func TestUsers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	u := createUser(t, s, 100, "AB-001")
	require.NotZero(t, u.ID)
	require.Zero(t, u.Balance)

	dup := domain.User{TelegramID: 101, FirstName: "Dup", ReferralCode: "AB-001"}
	require.ErrorIs(t, s.CreateUser(ctx, &dup), domain.ErrDuplicateCode)
	again := domain.User{TelegramID: 100, FirstName: "Again", ReferralCode: "AB-002"}
	require.ErrorIs(t, s.CreateUser(ctx, &again), domain.ErrAlreadyRegistered)

	exists, err := s.ReferralCodeExists(ctx, "AB-001")
	require.NoError(t, err)
	require.True(t, exists)

	byCode, err := s.UserByReferralCode(ctx, "AB-001")
	require.NoError(t, err)
	require.Equal(t, u.ID, byCode.ID)

	_, err = s.UserByTelegramID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrNotFound)

	last := "Kebede"
	updated, err := s.UpdateProfile(ctx, 100, "Abebe", &last, nil)
	require.NoError(t, err)
	require.Equal(t, "Abebe Kebede", updated.DisplayName())
	require.Equal(t, "AB-001", updated.ReferralCode)

	profile := domain.PaymentProfile{Method: domain.PaymentCBE, AccountName: "Abebe", AccountNumber: "1000"}
	require.NoError(t, s.SetPaymentProfile(ctx, u.ID, profile))
	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.HasPaymentMethod())

	_, err = s.db.Exec(`UPDATE users SET referral_code = 'ZZ-999' WHERE id = $1`, u.ID)
	require.Error(t, err, "referral code must be immutable")

	createUser(t, s, 200, "CD-002")
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, int64(200), users[0].TelegramID)
}

func TestReferralLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := createUser(t, s, 100, "AB-001")

	name := "Customer"
	first := domain.Referral{ReferrerID: u.ID, CustomerName: &name}
	require.NoError(t, s.CreateReferral(ctx, &first))
	second := domain.Referral{ReferrerID: u.ID}
	require.NoError(t, s.CreateReferral(ctx, &second))

	pending, err := s.ListReferrals(ctx, domain.PendingReferrals)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)

	all, err := s.ListReferrals(ctx, domain.AllReferrals)
	require.NoError(t, err)
	require.Equal(t, second.ID, all[0].ID)
	require.Equal(t, "User", all[0].ReferrerName)

	entry, err := s.CompleteReferral(ctx, first.ID, 50)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralDone, entry.Status)
	require.Equal(t, int64(50), *entry.RewardAmount)

	_, err = s.CompleteReferral(ctx, first.ID, 50)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	_, err = s.CompleteReferral(ctx, 9999, 50)
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), got.Balance)

	require.NoError(t, s.UpdateReferralStatus(ctx, second.ID, domain.ReferralPending, domain.ReferralRejected))
	require.ErrorIs(t, s.UpdateReferralStatus(ctx, second.ID, domain.ReferralPending, domain.ReferralRejected),
		domain.ErrAlreadyProcessed)

	stats, err := s.ReferralStats(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStats{Total: 2, Done: 1, Rejected: 1}, stats)

	empty, err := s.ReferralStats(ctx, 12345)
	require.NoError(t, err)
	require.Zero(t, empty.Total)
}

func TestCompleteReferralConcurrentCreditsOnce(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := createUser(t, s, 100, "AB-001")
	r := domain.Referral{ReferrerID: u.ID}
	require.NoError(t, s.CreateReferral(ctx, &r))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CompleteReferral(ctx, r.ID, 30)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
		}
	}
	require.Equal(t, 1, ok)
	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(30), got.Balance)
}

func TestWithdrawals(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := createUser(t, s, 100, "AB-001")
	credit(t, s, u.ID, 300)

	_, err := s.CreateWithdrawal(ctx, u.ID, 301)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	w, err := s.CreateWithdrawal(ctx, u.ID, 120)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalPending, w.Status)

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(180), got.Balance)

	pending, err := s.ListPendingWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(100), pending[0].TelegramID)

	at := time.Now().UTC().Truncate(time.Second)
	paid, err := s.MarkWithdrawalPaid(ctx, w.ID, "photo-1", at)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalPaid, paid.Status)
	require.Equal(t, "photo-1", *paid.ProofFileID)

	_, err = s.MarkWithdrawalPaid(ctx, w.ID, "photo-2", at)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	_, err = s.MarkWithdrawalPaid(ctx, 9999, "photo-2", at)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.CreateWithdrawal(ctx, 9999, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectionsOnSingleConnectionPool(t *testing.T) {
	s := setupStore(t)
	s.db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u := createUser(t, s, 100, "AB-001")
	_, err := s.CreateWithdrawal(ctx, u.ID, 10)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	_, err = s.CreateWithdrawal(ctx, 9999, 10)
	require.ErrorIs(t, err, domain.ErrNotFound)

	r := domain.Referral{ReferrerID: u.ID}
	require.NoError(t, s.CreateReferral(ctx, &r))
	_, err = s.CompleteReferral(ctx, r.ID, 30)
	require.NoError(t, err)
	_, err = s.CompleteReferral(ctx, r.ID, 30)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	_, err = s.CompleteReferral(ctx, 9999, 30)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, ctx.Err())
}
