package app

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	coretelegram "github.com/m3rciful/refbot/core/telegram"
	tgsender "github.com/m3rciful/refbot/core/telegram/sender"
	"github.com/m3rciful/refbot/internal/conversation"
	"github.com/m3rciful/refbot/internal/storage/memstore"

	tele "gopkg.in/telebot.v4"
)

type recordingBot struct {
	to   []string
	what []any
}

func (b *recordingBot) Send(to tele.Recipient, what any, _ ...any) (*tele.Message, error) {
	b.to = append(b.to, to.Recipient())
	b.what = append(b.what, what)
	return &tele.Message{}, nil
}

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Token: "test", Offline: true})
	require.NoError(t, err)
	return bot
}

func TestRegistryWiresMenuLabels(t *testing.T) {
	h := &handlers{}
	reg, err := h.registry()
	require.NoError(t, err)

	cases := map[string]struct {
		command string
		admin   bool
	}{
		conversation.LabelMyAccount:     {"/account", false},
		conversation.LabelUpdate:        {"/update", false},
		conversation.LabelHowItWorks:    {"/howitworks", false},
		conversation.LabelWithdraw:      {"/withdraw", false},
		conversation.LabelNewReferral:   {"/newreferral", true},
		conversation.LabelViewReferrals: {"/referrals", true},
		conversation.LabelUpdateStatus:  {"/status", true},
		conversation.LabelPayout:        {"/payout", true},
		conversation.LabelViewUsers:     {"/users", true},
		"/start@refbot":                 {"/start", false},
	}
	for text, want := range cases {
		name, cmd, ok := reg.LookupCommand(text)
		require.True(t, ok, text)
		require.Equal(t, want.command, name, text)
		require.Equal(t, want.admin, cmd.AdminOnly, text)
	}

	require.ElementsMatch(t, []string{
		conversation.CallbackAddPaymentMethod,
		conversation.CallbackPaymentMethod,
		conversation.CallbackCancel,
	}, reg.ListCallbacks())

	visible := reg.ListCommands(true)
	for _, c := range visible {
		require.NotEqual(t, "payout", c.Text, "admin commands stay out of the public menu")
	}
}

func TestRequestFromMessage(t *testing.T) {
	bot := offlineBot(t)
	c := bot.NewContext(tele.Update{ID: 9, Message: &tele.Message{
		Text:   "  hello ",
		Chat:   &tele.Chat{ID: 555},
		Sender: &tele.User{ID: 77, FirstName: "Abebe", LastName: "Kebede", Username: "abebe_k"},
		Photo:  &tele.Photo{File: tele.File{FileID: "big-photo"}},
	}})

	r := requestFrom(c)
	require.Equal(t, int64(555), r.ChatID)
	require.Equal(t, conversation.Sender{ID: 77, FirstName: "Abebe", LastName: "Kebede", Username: "abebe_k"}, r.Sender)
	require.Equal(t, "big-photo", r.PhotoID)
	require.NotNil(t, r.Ctx)
}

func TestRequestFromCallbackUsesPayload(t *testing.T) {
	bot := offlineBot(t)
	c := bot.NewContext(tele.Update{ID: 10, Callback: &tele.Callback{
		Data:    "\f" + conversation.CallbackPaymentMethod + "|CB",
		Sender:  &tele.User{ID: 77, FirstName: "Abebe"},
		Message: &tele.Message{Text: "Choose your payment method.", Chat: &tele.Chat{ID: 555}},
	}})

	r := requestFrom(c)
	require.Equal(t, "CB", r.Text)
	require.Equal(t, int64(555), r.ChatID)
	require.Empty(t, r.PhotoID)
}

func TestServiceRegistersWithGeneratedCode(t *testing.T) {
	store := memstore.New()
	a := New(validConfig(), store)
	bot := &recordingBot{}
	svc := a.service(tgsender.NewOutbox(bot), nil)

	err := svc.User.Start(conversation.Request{
		Ctx:    context.Background(),
		ChatID: 77,
		Sender: conversation.Sender{ID: 77, FirstName: "Abebe", LastName: "Kebede"},
	})
	require.NoError(t, err)

	u, err := store.UserByTelegramID(context.Background(), 77)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^AK-\d{3}$`), u.ReferralCode)
	require.Equal(t, []string{"77"}, bot.to)
	require.Contains(t, bot.what[0], u.ReferralCode)
}

func TestTelegramRunOptions(t *testing.T) {
	a := New(validConfig(), memstore.New())
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.Same(t, &a.cfg.Core, opts.Config)
	require.NotNil(t, opts.Registry)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	require.Contains(t, names, "chat_lock")

	routes := opts.Routes(coretelegram.Runtime{Bot: offlineBot(t), Registry: opts.Registry})
	endpoints := map[any]bool{}
	for _, r := range routes {
		require.NotNil(t, r.Handler)
		endpoints[r.Endpoint] = true
	}
	for _, ep := range []any{"/start", "/payout", "/cancel", tele.OnText, tele.OnPhoto, tele.OnMedia, tele.OnLocation, tele.OnContact, tele.OnCallback} {
		require.True(t, endpoints[ep], "missing route %v", ep)
	}
}
