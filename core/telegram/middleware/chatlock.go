package middleware

import (
	"sync"

	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ChatLocks hands out one mutex per chat. Entries are dropped once nobody holds or waits on them.
type ChatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewChatLocks returns an empty lock set.
func NewChatLocks() *ChatLocks {
	return &ChatLocks{locks: make(map[int64]*chatLock)}
}

// Lock blocks until chatID is free and returns the matching unlock func.
func (l *ChatLocks) Lock(chatID int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[chatID]
	if !ok {
		cl = &chatLock{}
		l.locks[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, chatID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of chats currently tracked.
func (l *ChatLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// ChatLockMiddleware processes updates of one chat strictly one at a time while
// different chats still run concurrently. Dialogue state reads and writes for a
// chat therefore never interleave.
func ChatLockMiddleware(locks *ChatLocks) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chatID := tghelpers.ChatID(c)
			if chatID == 0 {
				return next(c)
			}
			unlock := locks.Lock(chatID)
			defer unlock()
			return next(c)
		}
	}
}
