// Package draft holds the in-progress convocation a user is authoring before
// it is submitted. The store tracks edits across the basic info, invitee, and
// agenda sections and guards navigation away from unsaved work.
package draft

import (
	"sync"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/notify"
)

// Confirmer decides whether the user accepts discarding unsaved work. The
// decision is injected so callers control the interaction instead of the
// store reaching for a global prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// leavePrompt is shown when navigating away from a dirty draft.
const leavePrompt = "Hay cambios sin guardar. ¿Desea salir de todos modos?"

// BasicInfo is the first editor section: what kind of session and where.
type BasicInfo struct {
	Type     application.SessionType
	Date     string
	Time     string
	Modality application.Modality
	Platform string
	Location string
	BoardID  string
	LeaderID string
}

// Store is the mutable convocation draft. Every mutator marks the draft dirty;
// only a successful submit or an explicit reset clears the flag.
type Store struct {
	mu            sync.Mutex
	info          BasicInfo
	invitees      []application.Invitee
	agenda        []application.AgendaItem
	notifications notify.Settings
	dirty         bool
}

// NewStore returns an empty draft.
func NewStore() *Store {
	return &Store{
		info: BasicInfo{
			Type:     application.SessionOrdinary,
			Modality: application.ModalityInPerson,
		},
	}
}

// SetBasicInfo replaces the basic info section.
func (s *Store) SetBasicInfo(info BasicInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
	s.dirty = true
}

// BasicInfo returns the current basic info section.
func (s *Store) BasicInfo() BasicInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SetNotificationSettings replaces the delivery choices for the convocation.
func (s *Store) SetNotificationSettings(settings notify.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = settings
	s.dirty = true
}

// NotificationSettings returns the current delivery choices.
func (s *Store) NotificationSettings() notify.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications
}

// Dirty reports whether the draft has edits not yet submitted.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Leave reports whether navigation away from the draft may proceed. A clean
// draft always allows it; a dirty draft asks the confirmer.
func (s *Store) Leave(confirm Confirmer) bool {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()

	if !dirty {
		return true
	}
	if confirm == nil {
		return false
	}
	return confirm.Confirm(leavePrompt)
}

// MarkSaved clears the dirty flag after a successful submit.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// Reset discards the draft entirely.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = BasicInfo{
		Type:     application.SessionOrdinary,
		Modality: application.ModalityInPerson,
	}
	s.invitees = nil
	s.agenda = nil
	s.notifications = notify.Settings{}
	s.dirty = false
}

// Snapshot assembles the draft into submission input. Agenda order is the
// slice order at the moment of the call.
func (s *Store) Snapshot() application.SessionInput {
	s.mu.Lock()
	defer s.mu.Unlock()

	invitees := make([]application.Invitee, len(s.invitees))
	copy(invitees, s.invitees)
	agenda := make([]application.AgendaItem, len(s.agenda))
	copy(agenda, s.agenda)

	return application.SessionInput{
		Type:     s.info.Type,
		Date:     s.info.Date,
		Time:     s.info.Time,
		Modality: s.info.Modality,
		Platform: s.info.Platform,
		Location: s.info.Location,
		BoardID:  s.info.BoardID,
		LeaderID: s.info.LeaderID,
		Invitees: invitees,
		Agenda:   agenda,
	}
}
