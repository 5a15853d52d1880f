package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

type sessionRepoStub struct {
	session    Session
	created    Session
	createErr  error
	getErr     error
	list       []Session
	listErr    error
	stateCalls []SessionState
	attendance []string
	updateErr  error
	items      map[string]AgendaItem
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.created = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, id string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	if s.session.ID == "" {
		return Session{}, persistence.ErrNotFound
	}
	return s.session, nil
}

func (s *sessionRepoStub) UpdateSessionState(ctx context.Context, id string, state SessionState, updatedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.stateCalls = append(s.stateCalls, state)
	return nil
}

func (s *sessionRepoStub) UpdateAttendance(ctx context.Context, id string, presentEmails []string, updatedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.attendance = presentEmails
	return nil
}

func (s *sessionRepoStub) ListSessions(ctx context.Context) ([]Session, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Session, len(s.list))
	copy(out, s.list)
	return out, nil
}

func (s *sessionRepoStub) GetAgendaItem(ctx context.Context, itemID string) (AgendaItem, error) {
	item, ok := s.items[itemID]
	if !ok {
		return AgendaItem{}, persistence.ErrNotFound
	}
	return item, nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func validInput() SessionInput {
	return SessionInput{
		Type:     SessionOrdinary,
		Date:     "2025-06-10",
		Time:     "10:00",
		Modality: ModalityVirtual,
		Platform: "Meet",
		Invitees: []Invitee{
			{Name: "Ana", Email: "ana@example.com"},
			{Name: "Beto", Email: "beto@example.com"},
		},
		Agenda: []AgendaItem{
			{Title: "Informe", Presenter: "Ana", Type: ItemInformation, Duration: 10},
			{Title: "Presupuesto", Presenter: "Beto", Type: ItemVote, Duration: 20},
		},
	}
}

func TestSessionServiceCreateSession(t *testing.T) {
	t.Run("derives agenda order from slice position", func(t *testing.T) {
		repo := &sessionRepoStub{}
		service := NewSessionService(repo, nil, sequentialIDs("id"), fixedNow)

		session, err := service.CreateSession(context.Background(), CreateSessionParams{Input: validInput()})
		if err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
		if session.State != StateScheduled {
			t.Fatalf("expected scheduled state, got %q", session.State)
		}
		for i, item := range session.Agenda {
			if item.Order != i+1 {
				t.Fatalf("expected order %d at position %d, got %d", i+1, i, item.Order)
			}
			if item.ID == "" {
				t.Fatalf("expected generated item id at position %d", i)
			}
		}
		if repo.created.ID != session.ID {
			t.Fatalf("expected persisted session, got %+v", repo.created)
		}
	})

	t.Run("rejects a convocation without invitees before touching persistence", func(t *testing.T) {
		repo := &sessionRepoStub{createErr: errors.New("repository must not be called")}
		service := NewSessionService(repo, nil, sequentialIDs("id"), fixedNow)

		input := validInput()
		input.Invitees = nil

		_, err := service.CreateSession(context.Background(), CreateSessionParams{Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.FieldErrors["invitados"] != "at least one invitee is required" {
			t.Fatalf("unexpected field errors: %v", vErr.FieldErrors)
		}
		if vErr.FocusSection != SectionInvitees {
			t.Fatalf("expected focus %q, got %q", SectionInvitees, vErr.FocusSection)
		}
	})

	t.Run("invitee failures take focus precedence over agenda failures", func(t *testing.T) {
		service := NewSessionService(&sessionRepoStub{}, nil, sequentialIDs("id"), fixedNow)

		input := validInput()
		input.Invitees[0].Email = "not-an-address"
		input.Agenda = nil

		_, err := service.CreateSession(context.Background(), CreateSessionParams{Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.FocusSection != SectionInvitees {
			t.Fatalf("expected invitee focus to win, got %q", vErr.FocusSection)
		}
		if _, ok := vErr.FieldErrors["agenda"]; !ok {
			t.Fatal("expected agenda error to be collected as well")
		}
	})

	t.Run("collects field-level agenda errors", func(t *testing.T) {
		service := NewSessionService(&sessionRepoStub{}, nil, sequentialIDs("id"), fixedNow)

		input := validInput()
		input.Agenda = []AgendaItem{
			{Title: "", Presenter: "", Type: ItemType("desconocido"), Duration: -5, LinkURL: "::bad::"},
		}

		_, err := service.CreateSession(context.Background(), CreateSessionParams{Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{
			"agenda[0].titulo",
			"agenda[0].expositor",
			"agenda[0].tipo",
			"agenda[0].duracion",
			"agenda[0].enlace",
		} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected error for %s, got %v", field, vErr.FieldErrors)
			}
		}
		if vErr.FocusSection != SectionAgenda {
			t.Fatalf("expected agenda focus, got %q", vErr.FocusSection)
		}
	})

	t.Run("maps duplicate persistence errors to ErrAlreadyExists", func(t *testing.T) {
		repo := &sessionRepoStub{createErr: persistence.ErrDuplicate}
		service := NewSessionService(repo, nil, sequentialIDs("id"), fixedNow)

		_, err := service.CreateSession(context.Background(), CreateSessionParams{Input: validInput()})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestSessionServiceListSessions(t *testing.T) {
	repo := &sessionRepoStub{
		list: []Session{
			{ID: "a", Date: "2025-06-01"},
			{ID: "c", Date: "2025-06-15"},
			{ID: "b", Date: "2025-06-15"},
		},
	}
	service := NewSessionService(repo, nil, nil, fixedNow)

	sessions, err := service.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}

	gotIDs := make([]string, 0, len(sessions))
	for _, session := range sessions {
		gotIDs = append(gotIDs, session.ID)
	}
	wantIDs := []string{"b", "c", "a"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("expected order %v, got %v", wantIDs, gotIDs)
		}
	}
}

func TestSessionServiceRegisterAttendance(t *testing.T) {
	session := Session{
		ID:    "ses-1",
		State: StateScheduled,
		Invitees: []Invitee{
			{Name: "Ana", Email: "ana@example.com"},
			{Name: "Beto", Email: "beto@example.com"},
			{Name: "Cari", Email: "cari@example.com"},
			{Name: "Dario", Email: "dario@example.com"},
		},
	}

	tests := []struct {
		name       string
		present    []string
		wantCount  int
		wantQuorum bool
	}{
		{
			name:       "majority reaches quorum",
			present:    []string{"ANA@example.com", " beto@example.com "},
			wantCount:  2,
			wantQuorum: true,
		},
		{
			name:       "minority lacks quorum",
			present:    []string{"ana@example.com"},
			wantCount:  1,
			wantQuorum: false,
		},
		{
			name:       "unknown addresses are ignored",
			present:    []string{"nadie@example.com"},
			wantCount:  0,
			wantQuorum: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &sessionRepoStub{session: session}
			service := NewSessionService(repo, nil, nil, fixedNow)

			result, err := service.RegisterAttendance(context.Background(), AttendanceParams{
				SessionID: "ses-1",
				Present:   tc.present,
			})
			if err != nil {
				t.Fatalf("RegisterAttendance returned error: %v", err)
			}
			if result.Present != tc.wantCount {
				t.Fatalf("expected %d present, got %d", tc.wantCount, result.Present)
			}
			if result.HasQuorum != tc.wantQuorum {
				t.Fatalf("expected quorum=%v, got %v", tc.wantQuorum, result.HasQuorum)
			}
			if result.Invited != len(session.Invitees) {
				t.Fatalf("expected %d invited, got %d", len(session.Invitees), result.Invited)
			}
		})
	}

	t.Run("missing session maps to ErrNotFound", func(t *testing.T) {
		service := NewSessionService(&sessionRepoStub{}, nil, nil, fixedNow)

		_, err := service.RegisterAttendance(context.Background(), AttendanceParams{SessionID: "nope"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestHasQuorum(t *testing.T) {
	tests := []struct {
		invited int
		present int
		want    bool
	}{
		{invited: 0, present: 0, want: false},
		{invited: 1, present: 1, want: true},
		{invited: 2, present: 1, want: true},
		{invited: 3, present: 1, want: false},
		{invited: 3, present: 2, want: true},
		{invited: 4, present: 2, want: true},
		{invited: 5, present: 2, want: false},
	}
	for _, tc := range tests {
		if got := HasQuorum(tc.invited, tc.present); got != tc.want {
			t.Fatalf("HasQuorum(%d, %d) = %v, want %v", tc.invited, tc.present, got, tc.want)
		}
	}
}

func TestSessionServiceCloseSession(t *testing.T) {
	t.Run("closing twice is a no-op", func(t *testing.T) {
		repo := &sessionRepoStub{session: Session{ID: "ses-1", State: StateClosed}}
		service := NewSessionService(repo, nil, nil, fixedNow)

		if err := service.CloseSession(context.Background(), Principal{UserID: "u"}, "ses-1"); err != nil {
			t.Fatalf("CloseSession returned error: %v", err)
		}
		if len(repo.stateCalls) != 0 {
			t.Fatalf("expected no state update for already closed session, got %v", repo.stateCalls)
		}
	})

	t.Run("transitions a scheduled session to closed", func(t *testing.T) {
		repo := &sessionRepoStub{session: Session{ID: "ses-1", State: StateScheduled}}
		service := NewSessionService(repo, nil, nil, fixedNow)

		if err := service.CloseSession(context.Background(), Principal{UserID: "u"}, "ses-1"); err != nil {
			t.Fatalf("CloseSession returned error: %v", err)
		}
		if len(repo.stateCalls) != 1 || repo.stateCalls[0] != StateClosed {
			t.Fatalf("expected one close transition, got %v", repo.stateCalls)
		}
	})
}
