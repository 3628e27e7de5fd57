package app

import (
	"time"

	coretelegram "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/callbacks"
	"github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/router"
	tgsender "github.com/m3rciful/refbot/core/telegram/sender"
	"github.com/m3rciful/refbot/internal/conversation"
	"github.com/m3rciful/refbot/internal/notify"
	"github.com/m3rciful/refbot/internal/refcode"

	tele "gopkg.in/telebot.v4"
)

const (
	msgAdminOnly   = "⛔ This action is available to the admin only."
	msgRateLimited = "⏳ Too many requests. Please wait a moment."
)

// handlers adapts telebot updates to the conversation service. svc is set once the
// runtime exists, before the first update is served.
type handlers struct {
	svc *conversation.Service
}

func (h *handlers) on(fn func(r conversation.Request) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(requestFrom(c))
	}
}

// InProgress implements router.FSM.
func (h *handlers) InProgress(chatID int64) bool {
	return h.svc != nil && h.svc.InProgress(chatID)
}

// Continue implements router.FSM.
func (h *handlers) Continue(c tele.Context) error {
	return h.svc.Continue(requestFrom(c))
}

// requestFrom extracts what the dialogues need from an update. Callback payloads become
// the request text; photos carry the largest size, which telebot keeps in Message.Photo.
func requestFrom(c tele.Context) conversation.Request {
	r := conversation.Request{
		Ctx:    helpers.BuildContext(c),
		ChatID: helpers.ChatID(c),
		Text:   c.Text(),
	}
	if u := c.Sender(); u != nil {
		r.Sender = conversation.Sender{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
	}
	if c.Callback() != nil {
		r.Text = callbacks.Payload(c)
		return r
	}
	if m := c.Message(); m != nil && m.Photo != nil {
		r.PhotoID = m.Photo.FileID
	}
	return r
}

func (h *handlers) registry() (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	commands := []struct {
		name string
		cmd  coretelegram.Command
	}{
		{"/start", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.User.Start(r) }),
			Description: "Join the referral program",
		}},
		{"/account", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.User.Account(r) }),
			Description: "Show your code, balance and referrals",
			Aliases:     []string{conversation.LabelMyAccount},
		}},
		{"/update", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.User.Update(r) }),
			Description: "Refresh your name from Telegram",
			Aliases:     []string{conversation.LabelUpdate},
		}},
		{"/howitworks", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.User.HowItWorks(r) }),
			Description: "How the referral program works",
			Aliases:     []string{conversation.LabelHowItWorks},
		}},
		{"/withdraw", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.User.Withdraw(r) }),
			Description: "Request a withdrawal",
			Aliases:     []string{conversation.LabelWithdraw},
		}},
		{"/cancel", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Cancel(r) }),
			Description: "Cancel the current action",
		}},
		{"/admin", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Admin.Menu(r) }),
			Description: "Show the admin menu",
			AdminOnly:   true,
		}},
		{"/newreferral", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Admin.NewReferral(r) }),
			Description: "Record a new referral",
			AdminOnly:   true,
			Aliases:     []string{conversation.LabelNewReferral},
		}},
		{"/referrals", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Admin.ViewReferrals(r) }),
			Description: "List all referrals",
			AdminOnly:   true,
			Aliases:     []string{conversation.LabelViewReferrals},
		}},
		{"/status", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Admin.UpdateStatus(r) }),
			Description: "Review a pending referral",
			AdminOnly:   true,
			Aliases:     []string{conversation.LabelUpdateStatus},
		}},
		{"/payout", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Admin.Payout(r) }),
			Description: "Mark a withdrawal as paid",
			AdminOnly:   true,
			Aliases:     []string{conversation.LabelPayout},
		}},
		{"/users", coretelegram.Command{
			Handler:     h.on(func(r conversation.Request) error { return h.svc.Admin.ViewUsers(r) }),
			Description: "List all users",
			AdminOnly:   true,
			Aliases:     []string{conversation.LabelViewUsers},
		}},
	}
	for _, c := range commands {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return nil, err
		}
	}

	cbs := map[string]tele.HandlerFunc{
		conversation.CallbackAddPaymentMethod: h.on(func(r conversation.Request) error { return h.svc.User.AddPaymentMethod(r) }),
		conversation.CallbackPaymentMethod:    h.on(func(r conversation.Request) error { return h.svc.User.ChoosePaymentMethod(r) }),
		conversation.CallbackCancel:           h.on(func(r conversation.Request) error { return h.svc.Cancel(r) }),
	}
	for key, fn := range cbs {
		if err := reg.RegisterCallback(key, fn); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// TelegramRunOptions builds the registry, middlewares and routes for the shared runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	h := &handlers{}
	reg, err := h.registry()
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	core := &a.cfg.Core
	adminID := core.Telegram.AdminID
	reject := func(c tele.Context) error { return c.Send(msgAdminOnly) }
	limited := func(c tele.Context) error { return c.Send(msgRateLimited) }

	return coretelegram.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			QueueSize:    256,
			Workers:      4,
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
			MaxDuration:  30 * time.Second,
		},
		Middlewares: coretelegram.DefaultMiddlewares(core, limited),
		Routes: func(rt coretelegram.Runtime) []coretelegram.Route {
			h.svc = a.service(tgsender.NewOutbox(rt.Bot), rt.Dispatcher)

			routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: adminID, OnAdminReject: reject})
			routes = append(routes, router.TextRoutes(h, reg, router.TextOptions{
				CancelTexts:   []string{conversation.LabelCancel},
				OnCancel:      h.on(func(r conversation.Request) error { return h.svc.Cancel(r) }),
				AdminID:       adminID,
				OnAdminReject: reject,
				UnknownText:   h.on(func(r conversation.Request) error { return h.svc.Unknown(r) }),
			})...)
			return append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
		},
	}, nil
}

// service builds the dialogue service over out. Notifications go through disp when set.
func (a *App) service(out conversation.Messenger, disp *tgsender.Dispatcher) *conversation.Service {
	tg, program := a.cfg.Core.Telegram, a.cfg.Program
	var codeOpts []refcode.Option
	if program.CodeMaxAttempts > 0 {
		codeOpts = append(codeOpts, refcode.WithMaxAttempts(program.CodeMaxAttempts))
	}
	return conversation.NewService(conversation.Deps{
		Store:    a.store,
		Codes:    refcode.New(a.store, codeOpts...),
		Sessions: a.sessions,
		Out:      out,
		Notify:   notify.New(out, disp, tg.GroupID, tg.AdminID),
		Settings: conversation.Settings{
			AdminID:        tg.AdminID,
			MinWithdrawal:  program.MinWithdrawal,
			Currency:       program.Currency,
			SupportContact: program.SupportContact,
		},
	})
}
