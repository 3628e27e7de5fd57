// Package notify sends best-effort messages to the group, the admin and referrers.
// Failures are logged and never returned.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Sender delivers messages synchronously.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, opts *tele.SendOptions) error
}

// Notifier queues notifications on the async dispatcher when one is configured.
// A nil *Notifier drops everything.
type Notifier struct {
	out     Sender
	disp    *sender.Dispatcher
	groupID int64
	adminID int64
}

// New returns a Notifier. disp may be nil, in which case sends run inline.
func New(out Sender, disp *sender.Dispatcher, groupID, adminID int64) *Notifier {
	return &Notifier{out: out, disp: disp, groupID: groupID, adminID: adminID}
}

func markdown() *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown}
}

// Group posts text to the broadcast chat.
func (n *Notifier) Group(ctx context.Context, text string) {
	if n == nil {
		return
	}
	n.dispatch(ctx, "notify.group", n.groupID, func() error {
		return n.out.SendText(ctx, n.groupID, text, markdown())
	})
}

// GroupPhoto posts a photo with caption to the broadcast chat.
func (n *Notifier) GroupPhoto(ctx context.Context, fileID, caption string) {
	if n == nil {
		return
	}
	n.dispatch(ctx, "notify.group_photo", n.groupID, func() error {
		return n.out.SendPhoto(ctx, n.groupID, fileID, caption, markdown())
	})
}

// User messages a user's private chat.
func (n *Notifier) User(ctx context.Context, chatID int64, text string) {
	if n == nil {
		return
	}
	n.dispatch(ctx, "notify.user", chatID, func() error {
		return n.out.SendText(ctx, chatID, text, markdown())
	})
}

// UserPhoto sends a photo with caption to a user's private chat.
func (n *Notifier) UserPhoto(ctx context.Context, chatID int64, fileID, caption string) {
	if n == nil {
		return
	}
	n.dispatch(ctx, "notify.user_photo", chatID, func() error {
		return n.out.SendPhoto(ctx, chatID, fileID, caption, markdown())
	})
}

// Admin messages the admin.
func (n *Notifier) Admin(ctx context.Context, text string) {
	if n == nil {
		return
	}
	n.dispatch(ctx, "notify.admin", n.adminID, func() error {
		return n.out.SendText(ctx, n.adminID, text, markdown())
	})
}

func (n *Notifier) dispatch(ctx context.Context, action string, target int64, run func() error) {
	if n == nil || n.out == nil || target == 0 {
		return
	}
	if n.disp != nil {
		err := n.disp.Enqueue(ctx, action, target, run)
		if err == nil {
			return
		}
		if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
			n.logFailure(ctx, action, target, err)
			return
		}
		logger.LogEvent(ctx, logger.Notify, slog.LevelDebug, "notify.inline",
			slog.String("op", action),
			slog.String("reason", err.Error()),
		)
	}
	if err := run(); err != nil {
		n.logFailure(ctx, action, target, err)
	}
}

func (n *Notifier) logFailure(ctx context.Context, action string, target int64, err error) {
	logger.LogEvent(ctx, logger.Notify, slog.LevelWarn, "notify.fail",
		slog.String("op", action),
		slog.Int64("target", target),
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
}
