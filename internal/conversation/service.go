package conversation

import (
	"log/slog"

	"github.com/m3rciful/refbot/core/logger"
)

// Service routes dialogue messages to the engine owning the chat's state.
type Service struct {
	deps  Deps
	User  *UserEngine
	Admin *AdminEngine
}

// NewService builds both engines over the same session store.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, User: NewUserEngine(deps), Admin: NewAdminEngine(deps)}
}

// IsAdmin reports whether the request comes from the configured admin.
func (s *Service) IsAdmin(r Request) bool {
	return r.Sender.ID != 0 && r.Sender.ID == s.deps.Settings.AdminID
}

// InProgress reports whether chatID has an open dialogue.
func (s *Service) InProgress(chatID int64) bool {
	return s.deps.Sessions.InProgress(chatID)
}

// Continue hands r to the engine that owns the open dialogue.
func (s *Service) Continue(r Request) error {
	st := s.deps.Sessions.GetState(r.ChatID)
	switch {
	case s.Admin.Owns(st) && s.IsAdmin(r):
		return s.Admin.Continue(r)
	case s.User.Owns(st):
		return s.User.Continue(r)
	}
	// An admin state reached by another sender (a shared chat) or an unknown state.
	s.deps.Sessions.Clear(r.ChatID)
	logger.LogEvent(r.ctx(), logger.Component("conversation"), slog.LevelWarn, "dialog.orphan",
		slog.String("step", string(st)),
		slog.Int64("telegram_id", r.Sender.ID),
	)
	return nil
}

// Cancel closes the open dialogue of the chat with the sender's menu.
func (s *Service) Cancel(r Request) error {
	if s.IsAdmin(r) {
		return s.Admin.Cancel(r)
	}
	return s.User.Cancel(r)
}

// Unknown answers a message that is neither a dialogue answer nor a command.
func (s *Service) Unknown(r Request) error {
	if s.IsAdmin(r) {
		return s.Admin.reply(r, msgUnknown, s.Admin.menu())
	}
	return s.User.reply(r, msgUnknown, s.User.menu())
}
