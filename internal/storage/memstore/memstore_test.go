package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/refbot/internal/domain"
)

func seedUser(t *testing.T, s *Store, telegramID int64, code string, balance int64) domain.User {
	t.Helper()
	ctx := context.Background()
	u := domain.User{TelegramID: telegramID, FirstName: "User", ReferralCode: code}
	require.NoError(t, s.CreateUser(ctx, &u))
	if balance > 0 {
		r := domain.Referral{ReferrerID: u.ID}
		require.NoError(t, s.CreateReferral(ctx, &r))
		_, err := s.CompleteReferral(ctx, r.ID, balance)
		require.NoError(t, err)
		u.Balance = balance
	}
	return u
}

func TestCreateUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, 1, "AB-001", 0)

	dup := domain.User{TelegramID: 2, ReferralCode: "AB-001"}
	require.ErrorIs(t, s.CreateUser(ctx, &dup), domain.ErrDuplicateCode)
	again := domain.User{TelegramID: 1, ReferralCode: "AB-002"}
	require.ErrorIs(t, s.CreateUser(ctx, &again), domain.ErrAlreadyRegistered)

	exists, err := s.ReferralCodeExists(ctx, "AB-001")
	require.NoError(t, err)
	require.True(t, exists)

	_, err = s.UserByReferralCode(ctx, "ZZ-000")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteReferralOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, 1, "AB-001", 0)
	r := domain.Referral{ReferrerID: u.ID}
	require.NoError(t, s.CreateReferral(ctx, &r))

	e, err := s.CompleteReferral(ctx, r.ID, 50)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralDone, e.Status)
	require.Equal(t, int64(1), e.ReferrerTelegramID)

	_, err = s.CompleteReferral(ctx, r.ID, 50)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), got.Balance)

	_, err = s.CompleteReferral(ctx, r.ID, 0)
	require.True(t, domain.IsValidation(err))
}

func TestListOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, 1, "AB-001", 0)
	var ids []int64
	for i := 0; i < 3; i++ {
		r := domain.Referral{ReferrerID: u.ID}
		require.NoError(t, s.CreateReferral(ctx, &r))
		ids = append(ids, r.ID)
	}
	require.NoError(t, s.UpdateReferralStatus(ctx, ids[1], domain.ReferralPending, domain.ReferralRejected))

	all, err := s.ListReferrals(ctx, domain.AllReferrals)
	require.NoError(t, err)
	require.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{all[0].ID, all[1].ID, all[2].ID})

	pending, err := s.ListReferrals(ctx, domain.PendingReferrals)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, ids[0], pending[0].ID)

	stats, err := s.ReferralStats(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReferralStats{Total: 3, Pending: 2, Rejected: 1}, stats)
}

func TestWithdrawalFlow(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, 1, "AB-001", 200)

	_, err := s.CreateWithdrawal(ctx, u.ID, 201)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	w, err := s.CreateWithdrawal(ctx, u.ID, 150)
	require.NoError(t, err)
	got, _ := s.UserByID(ctx, u.ID)
	require.Equal(t, int64(50), got.Balance)

	pending, err := s.ListPendingWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(1), pending[0].TelegramID)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	paid, err := s.MarkWithdrawalPaid(ctx, w.ID, "file-1", at)
	require.NoError(t, err)
	require.Equal(t, domain.WithdrawalPaid, paid.Status)
	require.Equal(t, at, *paid.ProcessedAt)

	_, err = s.MarkWithdrawalPaid(ctx, w.ID, "file-2", at)
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}

func TestFailNextLeavesStateUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, 1, "AB-001", 100)
	users, refs, ws := s.Snapshot()

	boom := errors.New("boom")
	s.FailNext(boom)
	_, err := s.CreateWithdrawal(ctx, u.ID, 100)
	require.ErrorIs(t, err, boom)

	users2, refs2, ws2 := s.Snapshot()
	require.Equal(t, users, users2)
	require.Equal(t, refs, refs2)
	require.Equal(t, ws, ws2)

	_, err = s.CreateWithdrawal(ctx, u.ID, 100)
	require.NoError(t, err)
}
