package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

// Editor section identifiers surfaced with validation failures so the
// authoring UI can switch to the tab that needs attention.
const (
	SectionBasicInfo = "info"
	SectionInvitees  = "convocados"
	SectionAgenda    = "agenda"
)

// SessionRepository captures the persistence interactions needed by the service.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSessionState(ctx context.Context, id string, state SessionState, updatedAt time.Time) error
	UpdateAttendance(ctx context.Context, id string, presentEmails []string, updatedAt time.Time) error
	ListSessions(ctx context.Context) ([]Session, error)
	GetAgendaItem(ctx context.Context, itemID string) (AgendaItem, error)
}

// MemberDirectory exposes the board membership lookups the service needs.
type MemberDirectory interface {
	ListMembers(ctx context.Context) ([]Member, error)
}

// SessionService orchestrates validation and persistence for governance sessions.
type SessionService struct {
	sessions    SessionRepository
	members     MemberDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, members MemberDirectory, idGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, members, idGenerator, now, nil)
}

// NewSessionServiceWithLogger constructs a SessionService with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, members MemberDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		members:     members,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates the convocation before delegating to persistence.
// Agenda items are renumbered from slice position: the slice order is the only
// order authority, and the stored Order field is derived from it.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (session Session, err error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateSession",
		"session_type", string(input.Type),
		"invitees", len(input.Invitees),
		"agenda_items", len(input.Agenda),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session created")
	}()

	vErr := &ValidationError{}
	validateSessionCore(input, vErr)
	validateConvocation(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	session = Session{
		ID:        s.idGenerator(),
		Type:      input.Type,
		Date:      input.Date,
		Time:      input.Time,
		Modality:  input.Modality,
		Platform:  strings.TrimSpace(input.Platform),
		Location:  strings.TrimSpace(input.Location),
		BoardID:   strings.TrimSpace(input.BoardID),
		LeaderID:  strings.TrimSpace(input.LeaderID),
		State:     StateScheduled,
		Invitees:  cloneInvitees(input.Invitees),
		Agenda:    renumberAgenda(input.Agenda, s.idGenerator),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if s.sessions == nil {
		return session, nil
	}

	persisted, perr := s.sessions.CreateSession(ctx, session)
	if perr != nil {
		err = mapSessionRepoError(perr)
		session = Session{}
		return
	}

	session = persisted
	return
}

// GetSession returns one session with its convocation and agenda.
func (s *SessionService) GetSession(ctx context.Context, id string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}
	return session, nil
}

// GetAgendaItem looks up one agenda item by identity, used when the minutes
// composer seeds resolutions.
func (s *SessionService) GetAgendaItem(ctx context.Context, itemID string) (AgendaItem, error) {
	if s == nil {
		return AgendaItem{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return AgendaItem{}, fmt.Errorf("session repository not configured")
	}

	item, err := s.sessions.GetAgendaItem(ctx, itemID)
	if err != nil {
		return AgendaItem{}, mapSessionRepoError(err)
	}
	return item, nil
}

// ListSessions enumerates sessions ordered by start, newest first.
func (s *SessionService) ListSessions(ctx context.Context) ([]Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date == ordered[j].Date {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Date > ordered[j].Date
	})
	return ordered, nil
}

// CloseSession marks a session as closed. Closed sessions reject acta edits.
func (s *SessionService) CloseSession(ctx context.Context, principal Principal, sessionID string) error {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return mapSessionRepoError(err)
	}
	if session.State == StateClosed {
		return nil
	}
	return mapSessionRepoError(s.sessions.UpdateSessionState(ctx, sessionID, StateClosed, s.now()))
}

// RegisterAttendance records which invitees were present and reports quorum:
// a simple majority of the convoked attendees.
func (s *SessionService) RegisterAttendance(ctx context.Context, params AttendanceParams) (AttendanceResult, error) {
	if s == nil {
		return AttendanceResult{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return AttendanceResult{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return AttendanceResult{}, mapSessionRepoError(err)
	}

	present := make(map[string]struct{}, len(params.Present))
	for _, email := range params.Present {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			present[email] = struct{}{}
		}
	}

	presentCount := 0
	presentEmails := make([]string, 0, len(present))
	for _, invitee := range session.Invitees {
		if _, ok := present[strings.ToLower(invitee.Email)]; ok {
			presentCount++
			presentEmails = append(presentEmails, invitee.Email)
		}
	}

	if err := s.sessions.UpdateAttendance(ctx, params.SessionID, presentEmails, s.now()); err != nil {
		return AttendanceResult{}, mapSessionRepoError(err)
	}

	total := len(session.Invitees)
	return AttendanceResult{
		Invited:   total,
		Present:   presentCount,
		HasQuorum: HasQuorum(total, presentCount),
	}, nil
}

// HasQuorum reports whether the present count reaches a simple majority of
// the invited count. Zero invitees never have quorum.
func HasQuorum(invited, present int) bool {
	if invited <= 0 {
		return false
	}
	return present >= (invited+1)/2
}

func validateSessionCore(input SessionInput, vErr *ValidationError) {
	switch input.Type {
	case SessionOrdinary, SessionExtraordinary:
	default:
		vErr.add("tipo", "session type is invalid")
		vErr.focus(SectionBasicInfo)
	}

	if strings.TrimSpace(input.Date) == "" {
		vErr.add("fecha", "date is required")
		vErr.focus(SectionBasicInfo)
	} else if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		vErr.add("fecha", "date is invalid")
		vErr.focus(SectionBasicInfo)
	}

	if strings.TrimSpace(input.Time) == "" {
		vErr.add("hora", "time is required")
		vErr.focus(SectionBasicInfo)
	} else if _, err := time.Parse("15:04", input.Time); err != nil {
		vErr.add("hora", "time is invalid")
		vErr.focus(SectionBasicInfo)
	}

	switch input.Modality {
	case ModalityInPerson, ModalityVirtual, ModalityHybrid:
	default:
		vErr.add("modalidad", "modality is invalid")
		vErr.focus(SectionBasicInfo)
	}
}

// validateConvocation enforces the minimum content contract: at least one
// invitee, at least one agenda item, and a presenter on every item. Invitees
// are checked before the agenda so a failed submit lands on that tab first.
func validateConvocation(input SessionInput, vErr *ValidationError) {
	if len(input.Invitees) == 0 {
		vErr.add("invitados", "at least one invitee is required")
		vErr.focus(SectionInvitees)
	}
	for i, invitee := range input.Invitees {
		if strings.TrimSpace(invitee.Name) == "" {
			vErr.add(fmt.Sprintf("invitados[%d].nombre", i), "invitee name is required")
			vErr.focus(SectionInvitees)
		}
		if strings.TrimSpace(invitee.Email) == "" {
			vErr.add(fmt.Sprintf("invitados[%d].correo", i), "invitee email is required")
			vErr.focus(SectionInvitees)
		} else if _, err := mail.ParseAddress(invitee.Email); err != nil {
			vErr.add(fmt.Sprintf("invitados[%d].correo", i), "invitee email is invalid")
			vErr.focus(SectionInvitees)
		}
	}

	if len(input.Agenda) == 0 {
		vErr.add("agenda", "at least one agenda item is required")
		vErr.focus(SectionAgenda)
	}
	for i, item := range input.Agenda {
		if strings.TrimSpace(item.Title) == "" {
			vErr.add(fmt.Sprintf("agenda[%d].titulo", i), "agenda item title is required")
			vErr.focus(SectionAgenda)
		}
		if strings.TrimSpace(item.Presenter) == "" {
			vErr.add(fmt.Sprintf("agenda[%d].expositor", i), "agenda item presenter is required")
			vErr.focus(SectionAgenda)
		}
		if !item.Type.Valid() {
			vErr.add(fmt.Sprintf("agenda[%d].tipo", i), "agenda item type is invalid")
			vErr.focus(SectionAgenda)
		}
		if item.Duration < 0 {
			vErr.add(fmt.Sprintf("agenda[%d].duracion", i), "agenda item duration must not be negative")
			vErr.focus(SectionAgenda)
		}
		if item.LinkURL != "" {
			if _, err := url.ParseRequestURI(item.LinkURL); err != nil {
				vErr.add(fmt.Sprintf("agenda[%d].enlace", i), "agenda item link must be a valid URL")
				vErr.focus(SectionAgenda)
			}
		}
	}
}

// renumberAgenda derives Order from slice position and assigns identities to
// items that lack one.
func renumberAgenda(items []AgendaItem, idGenerator func() string) []AgendaItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]AgendaItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].Order = i + 1
		out[i].Title = strings.TrimSpace(out[i].Title)
		out[i].Presenter = strings.TrimSpace(out[i].Presenter)
		if out[i].ID == "" && idGenerator != nil {
			out[i].ID = idGenerator()
		}
	}
	return out
}

func cloneInvitees(invitees []Invitee) []Invitee {
	if len(invitees) == 0 {
		return nil
	}
	out := make([]Invitee, len(invitees))
	copy(out, invitees)
	for i := range out {
		out[i].Name = strings.TrimSpace(out[i].Name)
		out[i].Email = strings.TrimSpace(out[i].Email)
	}
	return out
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("sesion", "related records are missing")
		return vErr
	}
	return err
}
