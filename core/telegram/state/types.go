package state

import "errors"

// State identifies one step of a dialogue.
type State string

// StateIdle means no dialogue is open for the chat.
const StateIdle State = "idle"

// ErrConversationOpen is returned by Begin when the chat already has an open dialogue.
var ErrConversationOpen = errors.New("state: conversation already open")

// Session holds the current step and the answers collected so far.
type Session struct {
	State    State
	TempData map[string]any
}

// Manager stores one Session per chat.
type Manager interface {
	// Begin opens a dialogue at st. It fails with ErrConversationOpen instead of
	// discarding a dialogue that is still in progress.
	Begin(chatID int64, st State) error
	GetState(chatID int64) State
	SetState(chatID int64, st State)

	SetTemp(chatID int64, key string, value any)
	GetTemp(chatID int64, key string) (any, bool)
	GetTempInt64(chatID int64, key string) (int64, bool)
	GetTempString(chatID int64, key string) (string, bool)

	// Clear removes the session and reports whether one existed.
	Clear(chatID int64) bool
	InProgress(chatID int64) bool
}
