package services

import "sync"

// EditSession tracks which transaction the form is editing. At most one
// transaction is in edit at a time; starting a new edit replaces the
// previous one.
type EditSession struct {
	mu        sync.Mutex
	editingID int64
	active    bool
}

func NewEditSession() *EditSession {
	return &EditSession{}
}

// Start puts the session into edit mode for the given transaction.
func (s *EditSession) Start(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = id
	s.active = true
}

// End returns the session to idle.
func (s *EditSession) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = 0
	s.active = false
}

// Editing reports the transaction under edit, if any.
func (s *EditSession) Editing() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID, s.active
}
