package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/refbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// BotAPI is the part of *tele.Bot used for outbound messages.
type BotAPI interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Outbox sends text and photos to chats by id.
type Outbox struct {
	bot BotAPI
}

// NewOutbox wraps bot.
func NewOutbox(bot BotAPI) *Outbox {
	return &Outbox{bot: bot}
}

// SendText sends text to chatID. opts may be nil.
func (o *Outbox) SendText(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) error {
	return o.send(ctx, "send_text", chatID, text, opts)
}

// SendPhoto sends an already uploaded photo with a caption.
func (o *Outbox) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, opts *tele.SendOptions) error {
	photo := &tele.Photo{File: tele.File{FileID: fileID}, Caption: caption}
	return o.send(ctx, "send_photo", chatID, photo, opts)
}

func (o *Outbox) send(ctx context.Context, op string, chatID int64, what any, opts *tele.SendOptions) error {
	start := time.Now()
	var err error
	if opts != nil {
		_, err = o.bot.Send(tele.ChatID(chatID), what, opts)
	} else {
		_, err = o.bot.Send(tele.ChatID(chatID), what)
	}
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.Int64("target", chatID),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", sanitizeErrorMessage(err)), slog.String("err_code", classifyError(err)))
	}
	logger.LogEvent(ctx, logger.Component("tg.sender"), level, "send.outbox", attrs...)
	return err
}
