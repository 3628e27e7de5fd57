package middleware

import (
	"log/slog"

	"github.com/m3rciful/refbot/core/logger"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the update author is the configured admin.
func (o AdminOptions) IsAdmin(c tele.Context) bool {
	return o.AdminID != 0 && tghelpers.SenderID(c) == o.AdminID
}

// AdminOnlyMiddleware lets only the admin reach next. Everyone else gets OnReject, if set.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !opts.IsAdmin(c) {
				logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "access.denied",
					slog.String("status", "rejected"),
				)
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
