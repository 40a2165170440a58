package driving

import "github.com/custodia-labs/chartrail/internal/core/domain"

// SessionService holds the active session context in memory.
type SessionService interface {
	// Set validates and replaces the active session.
	Set(session domain.SessionContext) error

	// Current returns the active session or domain.ErrNoSession.
	Current() (domain.SessionContext, error)

	// Clear drops the active session.
	Clear()
}
