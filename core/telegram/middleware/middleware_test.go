package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
}

func newFakeContext(userID, chatID int64, upd tele.Update) *fakeContext {
	if upd.Message == nil && upd.Callback == nil {
		upd.Message = &tele.Message{Text: "hi"}
	}
	if upd.Message != nil {
		upd.Message.Sender = &tele.User{ID: userID}
		upd.Message.Chat = &tele.Chat{ID: chatID}
	}
	if upd.Callback != nil {
		upd.Callback.Sender = &tele.User{ID: userID}
	}
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}
func (f *fakeContext) Sender() *tele.User {
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	return nil
}
func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }

func TestRateLimitMiddleware(t *testing.T) {
	clock := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return clock },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(1, 1, tele.Update{ID: 1}))
	_ = h(newFakeContext(1, 1, tele.Update{ID: 2}))
	_ = h(newFakeContext(2, 2, tele.Update{ID: 3}))
	_ = h(newFakeContext(1, 1, tele.Update{ID: 4, Callback: &tele.Callback{Data: "x"}}))
	clock = clock.Add(2 * time.Second)
	_ = h(newFakeContext(1, 1, tele.Update{ID: 5}))

	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
	if limited != 1 {
		t.Fatalf("limited = %d, want 1", limited)
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  99,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(99, 99, tele.Update{ID: 10}))
	_ = h(newFakeContext(5, 5, tele.Update{ID: 11}))

	if calls != 1 || rejected != 1 {
		t.Fatalf("calls=%d rejected=%d", calls, rejected)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, 1, tele.Update{ID: 20}))
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}

	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	if err := h(newFakeContext(1, 1, tele.Update{ID: 21})); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newFakeContext(7, 8, tele.Update{ID: 30})
	_ = LoggerMiddleware(func(tele.Context) error { return nil })(c)
	if rid, _ := c.Get("rid").(string); rid != "30:8:7" {
		t.Fatalf("rid = %q", rid)
	}
}
