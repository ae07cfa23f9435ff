package registration

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mamadbah2/nogal/internal/domain/wizard"
)

// ErrSessionNotFound is returned for unknown or finished wizard sessions.
var ErrSessionNotFound = errors.New("wizard session not found")

// SessionManager holds the wizards in progress.
type SessionManager struct {
	sessions map[string]*wizard.Wizard
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*wizard.Wizard),
	}
}

// GetSession returns a copy of a wizard.
func (sm *SessionManager) GetSession(id string) (*wizard.Wizard, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	w, exists := sm.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return clone(w), nil
}

// PutSession stores a wizard.
func (sm *SessionManager) PutSession(w *wizard.Wizard) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[w.ID] = clone(w)
}

// UpdateSession applies fn to a wizard under the session lock and returns a
// copy of the result. The wizard is left untouched when fn fails.
func (sm *SessionManager) UpdateSession(id string, fn func(*wizard.Wizard) error) (*wizard.Wizard, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	current, exists := sm.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	next := clone(current)
	if err := fn(next); err != nil {
		return clone(current), err
	}
	sm.sessions[id] = next
	return clone(next), nil
}

// ClearSession removes a wizard.
func (sm *SessionManager) ClearSession(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}

// Len returns the number of wizards in progress.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func clone(w *wizard.Wizard) *wizard.Wizard {
	out := *w
	out.Draft.Quantities = make(map[string]float64, len(w.Draft.Quantities))
	for k, v := range w.Draft.Quantities {
		out.Draft.Quantities[k] = v
	}
	out.Draft.SelectedMonteIDs = append([]string(nil), w.Draft.SelectedMonteIDs...)
	out.Draft.Lines = append([]wizard.LedgerLine(nil), w.Draft.Lines...)
	return &out
}
