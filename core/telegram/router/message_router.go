package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the dialogue driver consulted before the command vocabulary.
type FSM interface {
	InProgress(chatID int64) bool
	Continue(c tele.Context) error
}

// TextOptions controls routing of text and every non-text message kind.
type TextOptions struct {
	// CancelTexts are checked before anything else; a match calls OnCancel.
	CancelTexts []string
	OnCancel    tele.HandlerFunc

	AdminID       int64
	OnAdminReject tele.HandlerFunc

	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

func (o TextOptions) isCancel(text string) bool {
	text = strings.TrimSpace(text)
	for _, ct := range o.CancelTexts {
		if strings.EqualFold(text, ct) {
			return true
		}
	}
	return false
}

// TextRoutes routes inbound messages: cancel first, then an open dialogue, then
// commands and their aliases, then the fallbacks.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	cmdOpts := CommandRouteOptions{AdminID: opts.AdminID, OnAdminReject: opts.OnAdminReject}

	text := func(c tele.Context) error {
		start := time.Now()
		chatID := c.Chat().ID

		if opts.OnCancel != nil && opts.isCancel(c.Text()) {
			return handleWithSummary(c, "cancel", start, func() error { return opts.OnCancel(c) })
		}
		if fsm != nil && fsm.InProgress(chatID) {
			return handleWithSummary(c, "fsm", start, func() error { return fsm.Continue(c) })
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				h := wrapCommand(cmd, cmdOpts)
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error { return h(c) })
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error { return fb(c) })
			}
		}
		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error { return opts.UnknownText(c) })
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	media := func(c tele.Context) error {
		start := time.Now()
		if fsm != nil && fsm.InProgress(c.Chat().ID) {
			return handleWithSummary(c, "fsm_media", start, func() error { return fsm.Continue(c) })
		}
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, func() error { return opts.UnknownMedia(c) })
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnPhoto, Handler: wrap(media)},
		{Endpoint: tele.OnDocument, Handler: wrap(media)},
		{Endpoint: tele.OnSticker, Handler: wrap(media)},
		{Endpoint: tele.OnMedia, Handler: wrap(media)},
		{Endpoint: tele.OnLocation, Handler: wrap(media)},
		{Endpoint: tele.OnVenue, Handler: wrap(media)},
		{Endpoint: tele.OnContact, Handler: wrap(media)},
	}
}
