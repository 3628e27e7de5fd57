package state

import "sync"

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryManager returns a process-local Manager. Sessions do not expire.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]*Session)}
}

func (m *memoryManager) Begin(chatID int64, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok && s.State != StateIdle {
		return ErrConversationOpen
	}
	m.sessions[chatID] = &Session{State: st, TempData: make(map[string]any)}
	return nil
}

func (m *memoryManager) GetState(chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.State
	}
	return StateIdle
}

func (m *memoryManager) SetState(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionLocked(chatID).State = st
}

func (m *memoryManager) SetTemp(chatID int64, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionLocked(chatID).TempData[key] = value
}

func (m *memoryManager) GetTemp(chatID int64, key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, false
	}
	v, ok := s.TempData[key]
	return v, ok
}

func (m *memoryManager) GetTempInt64(chatID int64, key string) (int64, bool) {
	v, _ := m.GetTemp(chatID, key)
	n, ok := v.(int64)
	return n, ok
}

func (m *memoryManager) GetTempString(chatID int64, key string) (string, bool) {
	v, _ := m.GetTemp(chatID, key)
	s, ok := v.(string)
	return s, ok
}

func (m *memoryManager) Clear(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatID]
	delete(m.sessions, chatID)
	return ok
}

func (m *memoryManager) InProgress(chatID int64) bool {
	return m.GetState(chatID) != StateIdle
}

func (m *memoryManager) sessionLocked(chatID int64) *Session {
	s, ok := m.sessions[chatID]
	if !ok {
		s = &Session{State: StateIdle, TempData: make(map[string]any)}
		m.sessions[chatID] = s
	}
	return s
}
