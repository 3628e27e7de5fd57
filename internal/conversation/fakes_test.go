package conversation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/refbot/core/telegram/state"
	"github.com/m3rciful/refbot/internal/domain"
	"github.com/m3rciful/refbot/internal/storage/memstore"

	tele "gopkg.in/telebot.v4"
)

const adminID int64 = 1000

type outMsg struct {
	chatID  int64
	text    string
	photoID string
	markup  *tele.ReplyMarkup
}

type recordingMessenger struct {
	mu   sync.Mutex
	msgs []outMsg
	err  error
}

func (m *recordingMessenger) SendText(_ context.Context, chatID int64, text string, opts *tele.SendOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := outMsg{chatID: chatID, text: text}
	if opts != nil {
		msg.markup = opts.ReplyMarkup
	}
	m.msgs = append(m.msgs, msg)
	return m.err
}

func (m *recordingMessenger) SendPhoto(_ context.Context, chatID int64, fileID, caption string, _ *tele.SendOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, outMsg{chatID: chatID, text: caption, photoID: fileID})
	return m.err
}

func (m *recordingMessenger) last(t *testing.T) outMsg {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.msgs, "no message sent")
	return m.msgs[len(m.msgs)-1]
}

func (m *recordingMessenger) reset() {
	m.mu.Lock()
	m.msgs = nil
	m.mu.Unlock()
}

type note struct {
	kind    string
	chatID  int64
	text    string
	photoID string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) add(x note) {
	n.mu.Lock()
	n.notes = append(n.notes, x)
	n.mu.Unlock()
}

func (n *recordingNotifier) Group(_ context.Context, text string) {
	n.add(note{kind: "group", text: text})
}

func (n *recordingNotifier) GroupPhoto(_ context.Context, fileID, caption string) {
	n.add(note{kind: "group_photo", text: caption, photoID: fileID})
}

func (n *recordingNotifier) User(_ context.Context, chatID int64, text string) {
	n.add(note{kind: "user", chatID: chatID, text: text})
}

func (n *recordingNotifier) UserPhoto(_ context.Context, chatID int64, fileID, caption string) {
	n.add(note{kind: "user_photo", chatID: chatID, text: caption, photoID: fileID})
}

func (n *recordingNotifier) Admin(_ context.Context, text string) {
	n.add(note{kind: "admin", text: text})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notes))
	for _, x := range n.notes {
		out = append(out, x.kind)
	}
	return out
}

// queuedCodes hands out codes in order, then fails.
type queuedCodes struct {
	codes []string
	err   error
}

func (q *queuedCodes) Generate(context.Context, string, string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	if len(q.codes) == 0 {
		return "", domain.ErrCodeExhausted
	}
	code := q.codes[0]
	q.codes = q.codes[1:]
	return code, nil
}

type harness struct {
	t        *testing.T
	store    *memstore.Store
	sessions state.Manager
	out      *recordingMessenger
	notes    *recordingNotifier
	codes    *queuedCodes
	svc      *Service
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		store:    memstore.New(),
		sessions: state.NewMemoryManager(),
		out:      &recordingMessenger{},
		notes:    &recordingNotifier{},
		codes:    &queuedCodes{codes: []string{"AB-001", "AB-002", "AB-003"}},
		now:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(Deps{
		Store:    h.store,
		Codes:    h.codes,
		Sessions: h.sessions,
		Out:      h.out,
		Notify:   h.notes,
		Settings: Settings{AdminID: adminID, MinWithdrawal: 100, Currency: "birr", SupportContact: "@support"},
		Now:      func() time.Time { return h.now },
	})
	return h
}

func (h *harness) req(chatID int64, text string) Request {
	return Request{
		Ctx:    context.Background(),
		ChatID: chatID,
		Sender: Sender{ID: chatID, FirstName: "Abebe", LastName: "Kebede", Username: "abebe_k"},
		Text:   text,
	}
}

func (h *harness) admin(text string) Request {
	r := h.req(adminID, text)
	r.Sender.FirstName = "Admin"
	return r
}

func (h *harness) photo(chatID int64, fileID string) Request {
	r := h.req(chatID, "")
	r.PhotoID = fileID
	return r
}

// seedUser registers a user directly and credits balance through a completed referral.
func (h *harness) seedUser(telegramID int64, code string, balance int64, withPayment bool) domain.User {
	h.t.Helper()
	ctx := context.Background()
	u := domain.User{TelegramID: telegramID, FirstName: "Abebe", ReferralCode: code}
	require.NoError(h.t, h.store.CreateUser(ctx, &u))
	if withPayment {
		require.NoError(h.t, h.store.SetPaymentProfile(ctx, u.ID, domain.PaymentProfile{
			Method: domain.PaymentTelebirr, AccountName: "Abebe K", AccountNumber: "0911000000",
		}))
	}
	if balance > 0 {
		r := domain.Referral{ReferrerID: u.ID}
		require.NoError(h.t, h.store.CreateReferral(ctx, &r))
		_, err := h.store.CompleteReferral(ctx, r.ID, balance)
		require.NoError(h.t, err)
	}
	got, err := h.store.UserByID(ctx, u.ID)
	require.NoError(h.t, err)
	return got
}

func (h *harness) seedReferral(referrerID int64, customer string) domain.Referral {
	h.t.Helper()
	r := domain.Referral{ReferrerID: referrerID, CustomerName: strPtr(customer)}
	require.NoError(h.t, h.store.CreateReferral(context.Background(), &r))
	return r
}

func (h *harness) user(telegramID int64) domain.User {
	h.t.Helper()
	u, err := h.store.UserByTelegramID(context.Background(), telegramID)
	require.NoError(h.t, err)
	return u
}

func (h *harness) continueAll(chatID int64, texts ...string) {
	h.t.Helper()
	for _, text := range texts {
		var r Request
		if chatID == adminID {
			r = h.admin(text)
		} else {
			r = h.req(chatID, text)
		}
		require.NoError(h.t, h.svc.Continue(r), "step %q", text)
	}
}

var errBoom = errors.New("boom")

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (h *harness) seedWithdrawalFor(userID, amount int64) domain.WithdrawalRequest {
	h.t.Helper()
	w, err := h.store.CreateWithdrawal(context.Background(), userID, amount)
	require.NoError(h.t, err)
	return w
}
