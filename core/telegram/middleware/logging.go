package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recent remembers update ids for a short while so the receipt line is logged once
// even when the middleware wraps both the bot and individual routes.
var recent = struct {
	sync.Mutex
	seen map[int]time.Time
}{seen: make(map[int]time.Time)}

const keepFor = 10 * time.Second

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recent.Lock()
	defer recent.Unlock()
	for id, ts := range recent.seen {
		if now.Sub(ts) > keepFor {
			delete(recent.seen, id)
		}
	}
	if _, ok := recent.seen[updateID]; ok {
		return true
	}
	recent.seen[updateID] = now
	return false
}

// LoggerMiddleware assigns the rid, caches the logging context and emits a sampled
// update.received debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		chatID, userID := tghelpers.ChatID(c), tghelpers.SenderID(c)

		if _, ok := c.Get("rid").(string); !ok {
			rid := logger.BuildRID(upd.ID, chatID, userID)
			c.Set("rid", rid)
			ctx := logger.WithRID(context.Background(), rid)
			ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
			ctx = logger.WithLogger(ctx, logger.TG)
			tghelpers.StoreContext(c, ctx)
		}

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", UpdateKind(upd)),
			}
			if user := c.Sender(); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.Parse(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
				if upd.Message.Photo != nil {
					attrs = append(attrs, slog.Bool("photo", true))
				}
			}
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelDebug, "update.received", attrs...)
		}
		return next(c)
	}
}
