package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/callbacks"
	"github.com/m3rciful/refbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every inline-button callback through the registry by unique key.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Parse(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		h, ok := reg.GetCallback(key)
		if !ok {
			h = reg.CallbackNotFound()
			if h == nil {
				h = opts.NotFound
			}
			extras = append(extras, slog.String("err_code", "not_found"))
		} else {
			// Stop the client-side spinner; the handler answers in the chat.
			_ = c.Respond()
		}
		if h == nil {
			logHandlerSummary(c, name, start, "skip", nil, extras...)
			return nil
		}
		return handleWithSummary(c, name, start, func() error { return h(c) }, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
