package services

import (
	"maps"
	"sync"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
)

// Ensure SessionHolder implements the interface.
var _ driving.SessionService = (*SessionHolder)(nil)

// SessionHolder holds the active session context in memory.
// Set replaces the whole session; the last writer wins.
type SessionHolder struct {
	mu      sync.RWMutex
	current *domain.SessionContext
}

// NewSessionHolder creates an empty holder.
func NewSessionHolder() *SessionHolder {
	return &SessionHolder{}
}

// Set validates and stores session.
func (h *SessionHolder) Set(session domain.SessionContext) error {
	if err := session.Validate(); err != nil {
		return err
	}
	c := copySession(session)
	h.mu.Lock()
	h.current = &c
	h.mu.Unlock()
	return nil
}

// Current returns a copy of the active session.
// Returns domain.ErrNoSession if none is set.
func (h *SessionHolder) Current() (domain.SessionContext, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return domain.SessionContext{}, domain.ErrNoSession
	}
	return copySession(*h.current), nil
}

// Clear drops the active session.
func (h *SessionHolder) Clear() {
	h.mu.Lock()
	h.current = nil
	h.mu.Unlock()
}

func copySession(s domain.SessionContext) domain.SessionContext {
	s.Cookies = maps.Clone(s.Cookies)
	s.Headers = maps.Clone(s.Headers)
	return s
}
