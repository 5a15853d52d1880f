package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/governance-console/internal/document"
)

// MinutesRepository captures the persistence interactions for actas.
type MinutesRepository interface {
	SaveMinutes(ctx context.Context, minutes Minutes) (Minutes, error)
	GetMinutes(ctx context.Context, sessionID string) (Minutes, error)
}

// MinutesService orchestrates acta drafting: it gates edits by session state,
// seeds one resolution template per agenda item, and renders the
// printable documents.
type MinutesService struct {
	minutes     MinutesRepository
	sessions    SessionRepository
	documents   *documentCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMinutesService wires dependencies for acta operations.
func NewMinutesService(minutes MinutesRepository, sessions SessionRepository, idGenerator func() string, now func() time.Time) *MinutesService {
	return NewMinutesServiceWithLogger(minutes, sessions, idGenerator, now, nil)
}

// NewMinutesServiceWithLogger constructs a MinutesService with a specified logger.
func NewMinutesServiceWithLogger(minutes MinutesRepository, sessions SessionRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MinutesService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MinutesService{
		minutes:     minutes,
		sessions:    sessions,
		documents:   newDocumentCache(5*time.Minute, 64, now),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MinutesService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MinutesService", operation, attrs...)
}

// CanDraft reports whether an acta may be drafted for the session: the session
// must still be open (scheduled or pending) and carry at least one agenda
// item. ErrMinutesLocked is returned otherwise.
func CanDraft(session Session) error {
	if session.State != StateScheduled && session.State != StatePending {
		return ErrMinutesLocked
	}
	if len(session.Agenda) == 0 {
		return ErrMinutesLocked
	}
	return nil
}

// SeedResolutions builds one empty resolution template per agenda item,
// preserving agenda order. Non-votable items get a template too; their tallies
// stay zero through save-time coercion. Items are re-read from persistence
// concurrently; any lookup failure aborts the whole seed so the composer never
// opens with a partial set.
func (s *MinutesService) SeedResolutions(ctx context.Context, sessionID string) ([]Resolution, error) {
	if s == nil {
		return nil, fmt.Errorf("MinutesService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapSessionRepoError(err)
	}
	if err := CanDraft(session); err != nil {
		return nil, err
	}

	items := make([]AgendaItem, len(session.Agenda))
	errs := make([]error, len(session.Agenda))
	var wg sync.WaitGroup
	for i, item := range session.Agenda {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			items[i], errs[i] = s.sessions.GetAgendaItem(ctx, id)
		}(i, item.ID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, mapSessionRepoError(err)
		}
	}

	seeded := make([]Resolution, len(items))
	for i, item := range items {
		seeded[i] = Resolution{AgendaItemID: item.ID}
	}
	return seeded, nil
}

// SaveMinutes validates and persists the acta draft. Vote counts arrive as
// free text and are coerced: anything that does not parse as a non-negative
// integer becomes zero, and non-votable items always store zero tallies.
func (s *MinutesService) SaveMinutes(ctx context.Context, params SaveMinutesParams) (minutes Minutes, err error) {
	if s == nil {
		return Minutes{}, fmt.Errorf("MinutesService is nil")
	}
	if s.minutes == nil || s.sessions == nil {
		return Minutes{}, fmt.Errorf("minutes repository not configured")
	}

	logger := s.loggerWith(ctx, "SaveMinutes",
		"session_id", params.SessionID,
		"resolutions", len(params.Resolutions),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "acta save failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("acta_id", minutes.ID).InfoContext(ctx, "acta saved")
	}()

	if strings.TrimSpace(params.SessionID) == "" {
		vErr := &ValidationError{}
		vErr.add("sesion", "session id is required")
		err = vErr
		return
	}

	session, serr := s.sessions.GetSession(ctx, params.SessionID)
	if serr != nil {
		err = mapSessionRepoError(serr)
		return
	}
	if gerr := CanDraft(session); gerr != nil {
		err = gerr
		return
	}

	byItem := make(map[string]AgendaItem, len(session.Agenda))
	for _, item := range session.Agenda {
		byItem[item.ID] = item
	}

	vErr := &ValidationError{}
	resolutions := make([]Resolution, 0, len(params.Resolutions))
	for i, input := range params.Resolutions {
		item, ok := byItem[input.AgendaItemID]
		if !ok {
			vErr.add(fmt.Sprintf("resoluciones[%d].punto", i), "resolution references an unknown agenda item")
			continue
		}
		resolution := Resolution{
			AgendaItemID: item.ID,
			Summary:      strings.TrimSpace(input.Summary),
			Responsible:  strings.TrimSpace(input.Responsible),
		}
		if item.Type.Votable() {
			resolution.VotesFor = coerceVote(input.VotesFor)
			resolution.VotesAgainst = coerceVote(input.VotesAgainst)
			resolution.Abstentions = coerceVote(input.Abstentions)
		}
		resolutions = append(resolutions, resolution)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	justifications := make([]AbsenceJustification, 0, len(params.Justifications))
	for _, j := range params.Justifications {
		justifications = append(justifications, AbsenceJustification{
			Informer: strings.TrimSpace(j.Informer),
			Absentee: strings.TrimSpace(j.Absentee),
			Reason:   strings.TrimSpace(j.Reason),
		})
	}

	savedAt := s.now()
	draft := Minutes{
		ID:             s.idGenerator(),
		SessionID:      params.SessionID,
		Content:        params.Content,
		Resolutions:    resolutions,
		Justifications: justifications,
		CreatedBy:      params.Principal.UserID,
		CreatedAt:      savedAt,
		UpdatedAt:      savedAt,
	}

	persisted, perr := s.minutes.SaveMinutes(ctx, draft)
	if perr != nil {
		err = mapSessionRepoError(perr)
		return
	}

	s.documents.InvalidateSession(params.SessionID)
	minutes = persisted
	return
}

// GetMinutes returns the acta stored for a session.
func (s *MinutesService) GetMinutes(ctx context.Context, sessionID string) (Minutes, error) {
	if s == nil {
		return Minutes{}, fmt.Errorf("MinutesService is nil")
	}
	if s.minutes == nil {
		return Minutes{}, fmt.Errorf("minutes repository not configured")
	}

	minutes, err := s.minutes.GetMinutes(ctx, sessionID)
	if err != nil {
		return Minutes{}, mapSessionRepoError(err)
	}
	return minutes, nil
}

// ActaDocument renders the acta PDF for a session, reusing a cached copy while
// the underlying records are unchanged.
func (s *MinutesService) ActaDocument(ctx context.Context, sessionID string) (document.File, error) {
	if s == nil {
		return document.File{}, fmt.Errorf("MinutesService is nil")
	}
	if s.minutes == nil || s.sessions == nil {
		return document.File{}, fmt.Errorf("minutes repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return document.File{}, mapSessionRepoError(err)
	}
	minutes, err := s.minutes.GetMinutes(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		mapped := mapSessionRepoError(err)
		if !errors.Is(mapped, ErrNotFound) {
			return document.File{}, mapped
		}
		minutes = Minutes{}
	}

	key := documentCacheKey(sessionID, "acta", minutes.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if file, ok := s.documents.Get(key); ok {
		return file, nil
	}

	file := document.RenderActa(buildActaData(session, minutes))
	if file.Empty() {
		return document.File{}, fmt.Errorf("acta document rendering produced no output")
	}
	s.documents.Store(key, file)
	return file, nil
}

// ConvocationDocument renders the convocation PDF for a session.
func (s *MinutesService) ConvocationDocument(ctx context.Context, sessionID string) (document.File, error) {
	if s == nil {
		return document.File{}, fmt.Errorf("MinutesService is nil")
	}
	if s.sessions == nil {
		return document.File{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return document.File{}, mapSessionRepoError(err)
	}

	key := documentCacheKey(sessionID, "convocatoria", session.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if file, ok := s.documents.Get(key); ok {
		return file, nil
	}

	file := document.RenderConvocation(buildConvocationData(session))
	if file.Empty() {
		return document.File{}, fmt.Errorf("convocation document rendering produced no output")
	}
	s.documents.Store(key, file)
	return file, nil
}

// coerceVote parses free-text vote input. Non-numeric or negative input
// becomes zero rather than an error.
func coerceVote(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func buildActaData(session Session, minutes Minutes) document.ActaData {
	byItem := make(map[string]Resolution, len(minutes.Resolutions))
	for _, r := range minutes.Resolutions {
		byItem[r.AgendaItemID] = r
	}

	items := make([]document.Item, 0, len(session.Agenda))
	for _, item := range session.Agenda {
		entry := document.Item{
			Title:     item.Title,
			Presenter: item.Presenter,
			Duration:  item.Duration,
			Votable:   item.Type.Votable(),
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		}
		if r, ok := byItem[item.ID]; ok {
			entry.Summary = r.Summary
			entry.Responsible = r.Responsible
			entry.VotesFor = r.VotesFor
			entry.VotesAgainst = r.VotesAgainst
			entry.Abstentions = r.Abstentions
		}
		items = append(items, entry)
	}

	justifications := make([]document.Justification, 0, len(minutes.Justifications))
	for _, j := range minutes.Justifications {
		justifications = append(justifications, document.Justification{
			Informer: j.Informer,
			Absentee: j.Absentee,
			Reason:   j.Reason,
		})
	}

	return document.ActaData{
		SessionID:      session.ID,
		SessionType:    string(session.Type),
		Date:           session.Date,
		Time:           session.Time,
		Modality:       string(session.Modality),
		Platform:       session.Platform,
		Location:       session.Location,
		Content:        minutes.Content,
		Items:          items,
		Justifications: justifications,
	}
}

func buildConvocationData(session Session) document.ConvocationData {
	items := make([]document.Item, 0, len(session.Agenda))
	for _, item := range session.Agenda {
		items = append(items, document.Item{
			Title:     item.Title,
			Presenter: item.Presenter,
			Duration:  item.Duration,
			Votable:   item.Type.Votable(),
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		})
	}
	return document.ConvocationData{
		SessionID:   session.ID,
		SessionType: string(session.Type),
		Date:        session.Date,
		Time:        session.Time,
		Modality:    string(session.Modality),
		Platform:    session.Platform,
		Location:    session.Location,
		Items:       items,
	}
}
