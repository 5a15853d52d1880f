package draft

import (
	"strconv"
	"strings"

	"github.com/example/governance-console/internal/application"
)

// AddItem appends a new agenda item with editor defaults and returns its
// index.
func (s *Store) AddItem() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A fresh item starts at zero minutes; the duration field is typed in by
	// the user and coerced on input.
	s.agenda = append(s.agenda, application.AgendaItem{
		Type: application.ItemInformation,
	})
	s.dirty = true
	return len(s.agenda) - 1
}

// RemoveItem deletes the item at the index. Out-of-range indexes are ignored.
func (s *Store) RemoveItem(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.agenda) {
		return
	}
	s.agenda = append(s.agenda[:index], s.agenda[index+1:]...)
	s.dirty = true
}

// MoveItem relocates the item at from to the to position. Either index out of
// range leaves the agenda untouched. The slice order is the only order
// authority; no numbering is adjusted here.
func (s *Store) MoveItem(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 || from >= len(s.agenda) || to < 0 || to >= len(s.agenda) {
		return
	}
	if from == to {
		return
	}

	item := s.agenda[from]
	rest := append(s.agenda[:from:from], s.agenda[from+1:]...)
	s.agenda = append(rest[:to:to], append([]application.AgendaItem{item}, rest[to:]...)...)
	s.dirty = true
}

// Agenda returns a copy of the current agenda in slice order.
func (s *Store) Agenda() []application.AgendaItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]application.AgendaItem, len(s.agenda))
	copy(out, s.agenda)
	return out
}

// SetItemTitle updates the title of the item at the index.
func (s *Store) SetItemTitle(index int, title string) {
	s.updateItem(index, func(item *application.AgendaItem) {
		item.Title = title
	})
}

// SetItemPresenter updates the presenter of the item at the index.
func (s *Store) SetItemPresenter(index int, presenter string) {
	s.updateItem(index, func(item *application.AgendaItem) {
		item.Presenter = presenter
	})
}

// SetItemType updates the classification of the item at the index. Unknown
// types are ignored.
func (s *Store) SetItemType(index int, itemType application.ItemType) {
	if !itemType.Valid() {
		return
	}
	s.updateItem(index, func(item *application.AgendaItem) {
		item.Type = itemType
	})
}

// ToggleVoteRequired flips the item between votable and informational.
func (s *Store) ToggleVoteRequired(index int) {
	s.updateItem(index, func(item *application.AgendaItem) {
		if item.Type.Votable() {
			item.Type = application.ItemInformation
		} else {
			item.Type = application.ItemVote
		}
	})
}

// SetItemDuration updates the estimated minutes from free-text input.
// Non-numeric or negative input coerces to zero.
func (s *Store) SetItemDuration(index int, raw string) {
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || minutes < 0 {
		minutes = 0
	}
	s.updateItem(index, func(item *application.AgendaItem) {
		item.Duration = minutes
	})
}

// SetItemLink updates the supporting document link of the item at the index.
func (s *Store) SetItemLink(index int, url, label string) {
	s.updateItem(index, func(item *application.AgendaItem) {
		item.LinkURL = url
		item.LinkLabel = label
	})
}

func (s *Store) updateItem(index int, apply func(*application.AgendaItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.agenda) {
		return
	}
	apply(&s.agenda[index])
	s.dirty = true
}
