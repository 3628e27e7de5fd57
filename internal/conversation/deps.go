package conversation

import (
	"context"
	"time"

	"github.com/m3rciful/refbot/core/telegram/state"
	"github.com/m3rciful/refbot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// Request is one inbound message or button press, detached from the transport.
type Request struct {
	Ctx     context.Context
	ChatID  int64
	Sender  Sender
	Text    string
	PhotoID string
}

func (r Request) ctx() context.Context {
	if r.Ctx == nil {
		return context.Background()
	}
	return r.Ctx
}

// Messenger answers in the chat the request came from.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, opts *tele.SendOptions) error
}

// Notifier delivers best-effort side messages.
type Notifier interface {
	Group(ctx context.Context, text string)
	GroupPhoto(ctx context.Context, fileID, caption string)
	User(ctx context.Context, chatID int64, text string)
	UserPhoto(ctx context.Context, chatID int64, fileID, caption string)
	Admin(ctx context.Context, text string)
}

// CodeGenerator produces unused referral codes.
type CodeGenerator interface {
	Generate(ctx context.Context, firstName, lastName string) (string, error)
}

// UserStore is the persistence used by the user dialogues.
type UserStore interface {
	UserByTelegramID(ctx context.Context, telegramID int64) (domain.User, error)
	UserByID(ctx context.Context, id int64) (domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateProfile(ctx context.Context, telegramID int64, firstName string, lastName, username *string) (domain.User, error)
	SetPaymentProfile(ctx context.Context, userID int64, p domain.PaymentProfile) error
	ReferralStats(ctx context.Context, referrerID int64) (domain.ReferralStats, error)
	CreateWithdrawal(ctx context.Context, userID, amount int64) (domain.WithdrawalRequest, error)
}

// AdminStore is the persistence used by the admin dialogues.
type AdminStore interface {
	UserByReferralCode(ctx context.Context, code string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateReferral(ctx context.Context, r *domain.Referral) error
	ReferralByID(ctx context.Context, id int64) (domain.ReferralEntry, error)
	ListReferrals(ctx context.Context, filter domain.ReferralFilter) ([]domain.ReferralEntry, error)
	UpdateReferralStatus(ctx context.Context, id int64, from, to domain.ReferralStatus) error
	CompleteReferral(ctx context.Context, id, reward int64) (domain.ReferralEntry, error)
	WithdrawalByID(ctx context.Context, id int64) (domain.PayoutEntry, error)
	ListPendingWithdrawals(ctx context.Context) ([]domain.PayoutEntry, error)
	MarkWithdrawalPaid(ctx context.Context, id int64, proofFileID string, at time.Time) (domain.WithdrawalRequest, error)
}

// Store is everything both engines need.
type Store interface {
	UserStore
	AdminStore
}

// Settings are the program rules shown to and enforced on users.
type Settings struct {
	AdminID        int64
	MinWithdrawal  int64
	Currency       string
	SupportContact string
}

func (s Settings) withDefaults() Settings {
	if s.MinWithdrawal <= 0 {
		s.MinWithdrawal = 100
	}
	if s.Currency == "" {
		s.Currency = "birr"
	}
	return s
}

// Deps wires an engine.
type Deps struct {
	Store    Store
	Codes    CodeGenerator
	Sessions state.Manager
	Out      Messenger
	Notify   Notifier
	Settings Settings
	// Now stamps payouts; defaults to time.Now.
	Now func() time.Time
}
