package conversation

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/format"
	"github.com/m3rciful/refbot/core/telegram/state"
	"github.com/m3rciful/refbot/internal/domain"

	tele "gopkg.in/telebot.v4"
)

// step handles one message for the state it is registered under.
type step func(r Request) error

// abortError closes the dialogue and tells the chat why.
type abortError struct {
	msg string
}

func (e *abortError) Error() string { return "dialogue aborted: " + e.msg }

// Code implements the router's error-code lookup.
func (e *abortError) Code() string { return "ABORTED" }

func abort(format string, args ...any) error {
	return &abortError{msg: fmt.Sprintf(format, args...)}
}

// dialog is the plumbing shared by both engines.
type dialog struct {
	deps  Deps
	flow  string
	log   *slog.Logger
	steps state.Table[step]
	menu  func() *tele.ReplyMarkup
}

func newDialog(deps Deps, flow string, log *slog.Logger, menu func() *tele.ReplyMarkup) dialog {
	deps.Settings = deps.Settings.withDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return dialog{deps: deps, flow: flow, log: log, steps: state.Table[step]{}, menu: menu}
}

// Owns reports whether st is one of this engine's states.
func (d *dialog) Owns(st state.State) bool {
	return d.steps.Owns(st)
}

func (d *dialog) reply(r Request, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	return d.deps.Out.SendText(r.ctx(), r.ChatID, text, opts)
}

// begin opens a dialogue at st, or tells the chat another one is still open.
func (d *dialog) begin(r Request, st state.State) (bool, error) {
	err := d.deps.Sessions.Begin(r.ChatID, st)
	if errors.Is(err, state.ErrConversationOpen) {
		d.event(r, slog.LevelInfo, "dialog.busy", slog.String("step", string(d.deps.Sessions.GetState(r.ChatID))))
		return false, d.reply(r, msgConversationOpen, nil)
	}
	if err != nil {
		return false, err
	}
	d.event(r, slog.LevelDebug, "dialog.begin", slog.String("step", string(st)))
	return true, nil
}

// busy reports an open dialogue before work that would be wasted on a refused begin.
func (d *dialog) busy(r Request) (bool, error) {
	if !d.deps.Sessions.InProgress(r.ChatID) {
		return false, nil
	}
	return true, d.reply(r, msgConversationOpen, nil)
}

// advance moves the open dialogue to st and prompts for the next answer.
func (d *dialog) advance(r Request, st state.State, prompt string, markup *tele.ReplyMarkup) error {
	d.deps.Sessions.SetState(r.ChatID, st)
	return d.reply(r, prompt, markup)
}

// finish closes the dialogue and answers with the engine menu.
func (d *dialog) finish(r Request, text string) error {
	d.deps.Sessions.Clear(r.ChatID)
	return d.reply(r, text, d.menu())
}

// complete closes the dialogue after its change was persisted. A failed reply is only
// logged so the chat is not told that a stored change failed.
func (d *dialog) complete(r Request, text string) {
	if err := d.finish(r, text); err != nil {
		d.event(r, slog.LevelWarn, "reply.fail", slog.String("err", err.Error()))
	}
}

// continueDialog runs the handler of the chat's current state and applies the outcome rules.
func (d *dialog) continueDialog(r Request) error {
	st := d.deps.Sessions.GetState(r.ChatID)
	h, ok := d.steps.Lookup(st)
	if !ok {
		d.deps.Sessions.Clear(r.ChatID)
		d.event(r, slog.LevelWarn, "dialog.orphan", slog.String("step", string(st)))
		return nil
	}
	return d.conclude(r, st, h(r))
}

func (d *dialog) conclude(r Request, st state.State, err error) error {
	attrs := []slog.Attr{slog.String("step", string(st))}
	if err == nil {
		d.event(r, slog.LevelDebug, "dialog.step", append(attrs, slog.String("outcome", "ok"))...)
		return nil
	}

	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		d.event(r, slog.LevelInfo, "dialog.step",
			append(attrs, slog.String("outcome", "reprompt"), slog.String("field", invalid.Field))...)
		return d.reply(r, invalid.Message, nil)
	}

	var aborted *abortError
	if errors.As(err, &aborted) {
		d.event(r, slog.LevelInfo, "dialog.step",
			append(attrs, slog.String("outcome", "cancelled"), slog.String("reason", aborted.msg))...)
		return d.finish(r, aborted.msg)
	}

	d.event(r, slog.LevelError, "dialog.step",
		append(attrs, slog.String("outcome", "fail"), slog.String("err", err.Error()))...)
	if sendErr := d.finish(r, msgGenericFailure); sendErr != nil {
		err = errors.Join(err, sendErr)
	}
	return fmt.Errorf("%s step %s: %w", d.flow, st, err)
}

// failure answers a menu action that broke outside a dialogue.
func (d *dialog) failure(r Request, op string, err error) error {
	d.event(r, slog.LevelError, "action.fail", slog.String("op", op), slog.String("err", err.Error()))
	if sendErr := d.reply(r, msgGenericFailure, d.menu()); sendErr != nil {
		err = errors.Join(err, sendErr)
	}
	return fmt.Errorf("%s %s: %w", d.flow, op, err)
}

func (d *dialog) event(r Request, level slog.Level, event string, attrs ...slog.Attr) {
	ctx := logger.WithFlow(r.ctx(), d.flow)
	attrs = append([]slog.Attr{slog.Int64("telegram_id", r.Sender.ID)}, attrs...)
	logger.LogEvent(ctx, d.log, level, event, attrs...)
}

// sendPages sends entries under header, split at the Telegram message limit.
func (d *dialog) sendPages(r Request, header string, entries []string, footer string, markup *tele.ReplyMarkup) error {
	if footer != "" {
		entries = append(entries[:len(entries):len(entries)], footer)
	}
	pages := format.Paginate(header, entries, format.MaxMessageLen)
	for i, page := range pages {
		var m *tele.ReplyMarkup
		if i == len(pages)-1 {
			m = markup
		}
		if err := d.reply(r, page, m); err != nil {
			return err
		}
	}
	d.event(r, slog.LevelDebug, "list.sent", slog.Int("count", len(entries)), slog.Int("pages", len(pages)))
	return nil
}

func textAnswer(r Request, field string) (string, error) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return "", domain.Invalid(field, msgSendText)
	}
	return text, nil
}

func parseID(r Request, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Text), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(field, msgNotANumber)
	}
	return id, nil
}

func parseAmount(r Request, field, message string) (int64, error) {
	amount, err := strconv.ParseInt(strings.TrimSpace(r.Text), 10, 64)
	if err != nil || amount <= 0 {
		return 0, domain.Invalid(field, message)
	}
	return amount, nil
}

func isSkip(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), SkipWord)
}

func strPtr(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
