package draft

import (
	"strings"

	"github.com/example/governance-console/internal/application"
)

// AddInvitee appends a convoked attendee. A blank name or email is a no-op so
// half-filled entry rows never land in the draft.
func (s *Store) AddInvitee(name, email string) bool {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.invitees = append(s.invitees, application.Invitee{Name: name, Email: email})
	s.dirty = true
	return true
}

// RemoveInvitee deletes the invitee at the index. Out-of-range indexes are
// ignored.
func (s *Store) RemoveInvitee(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.invitees) {
		return
	}
	s.invitees = append(s.invitees[:index], s.invitees[index+1:]...)
	s.dirty = true
}

// Invitees returns a copy of the current invitee list.
func (s *Store) Invitees() []application.Invitee {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]application.Invitee, len(s.invitees))
	copy(out, s.invitees)
	return out
}
