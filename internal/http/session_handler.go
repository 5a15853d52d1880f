package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/document"
	"github.com/example/governance-console/internal/notify"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.Session, error)
	GetSession(ctx context.Context, id string) (application.Session, error)
	ListSessions(ctx context.Context) ([]application.Session, error)
	CloseSession(ctx context.Context, principal application.Principal, sessionID string) error
	RegisterAttendance(ctx context.Context, params application.AttendanceParams) (application.AttendanceResult, error)
}

type convocationDocuments interface {
	ConvocationDocument(ctx context.Context, sessionID string) (document.File, error)
}

type memberDirectory interface {
	MemberEmails(ctx context.Context) ([]string, error)
}

type mailboxDeliverer interface {
	Deliver(ctx context.Context, userID, subject, content string) (application.Notification, error)
}

type dispatchScheduler interface {
	Schedule(at time.Time, task func(ctx context.Context))
}

type draftDiscarder interface {
	DiscardDraft(userID string)
}

// SessionHandler serves the session scheduling and attendance endpoints, and
// orchestrates convocation delivery after a session is created.
type SessionHandler struct {
	service    sessionService
	documents  convocationDocuments
	members    memberDirectory
	dispatcher *notify.Dispatcher
	scheduler  dispatchScheduler
	drafts     draftDiscarder
	mailbox    mailboxDeliverer
	now        func() time.Time
	responder  responder
	logger     *slog.Logger
}

// NewSessionHandler wires the handler. documents, members, dispatcher,
// scheduler, drafts, and mailbox may be nil; convocation delivery, deferred
// sends, and draft cleanup are skipped for whichever is absent.
func NewSessionHandler(service sessionService, documents convocationDocuments, members memberDirectory, dispatcher *notify.Dispatcher, scheduler dispatchScheduler, drafts draftDiscarder, mailbox mailboxDeliverer, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{
		service:    service,
		documents:  documents,
		members:    members,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		drafts:     drafts,
		mailbox:    mailbox,
		now:        time.Now,
		responder:  newResponder(base),
		logger:     base,
	}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// List returns all sessions ordered by start time.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list sessions", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toSessionDTO(session))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

// Get returns a single session with its convocation details.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "session_id", id).ErrorContext(r.Context(), "failed to load session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Create persists a new session and, when requested, dispatches the
// convocation notices right away.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "type", req.Type, "date", req.Date)

	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger = logger.With("session_id", session.ID)
	logger.InfoContext(r.Context(), "session created")

	if h.drafts != nil {
		h.drafts.DiscardDraft(principal.UserID)
	}

	settings := req.Notifications.toSettings()
	summary := h.deliverConvocation(r.Context(), logger, principal, session, settings)

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createSessionResponse{
		Session:  toSessionDTO(session),
		Dispatch: summary,
	})
}

// deliverConvocation resolves the notification plan for a freshly created
// session. Immediate sends go out before the response is written; reminder and
// scheduled sends are handed to the scheduler to fire at their planned time.
// Delivery failures never fail the create: the summary reports them instead.
func (h *SessionHandler) deliverConvocation(ctx context.Context, logger *slog.Logger, principal application.Principal, session application.Session, settings notify.Settings) string {
	plan := notify.Plan(settings, session.StartsAt(), h.now())
	if len(plan) == 0 {
		return ""
	}

	immediate := false
	for _, send := range plan {
		if send.Kind == notify.SendImmediate {
			immediate = true
			continue
		}
		h.scheduleSend(ctx, logger, principal, session, send)
	}
	if !immediate || h.dispatcher == nil {
		return ""
	}

	announcement, err := h.buildAnnouncement(ctx, session)
	if err != nil {
		logger.ErrorContext(ctx, "failed to assemble convocation", "error", err)
		return "la convocatoria no pudo enviarse: " + err.Error()
	}

	report := h.dispatcher.Dispatch(ctx, notify.Build(announcement))
	summary := report.Summary()
	logger.InfoContext(ctx, "convocation dispatched", "summary", summary)

	if h.mailbox != nil {
		subject := fmt.Sprintf("Convocatoria enviada: sesión del %s", session.Date)
		if _, err := h.mailbox.Deliver(ctx, principal.UserID, subject, summary); err != nil {
			logger.ErrorContext(ctx, "failed to record dispatch report", "error", err)
		}
	}
	return summary
}

// scheduleSend defers one planned send. Without a scheduler or dispatcher the
// send is only logged. The announcement is assembled when the timer fires, so
// the attached document reflects the session at send time.
func (h *SessionHandler) scheduleSend(ctx context.Context, logger *slog.Logger, principal application.Principal, session application.Session, send notify.PlannedSend) {
	if h.scheduler == nil || h.dispatcher == nil {
		logger.InfoContext(ctx, "convocation send planned without scheduler",
			"kind", string(send.Kind), "at", send.At.UTC().Format(time.RFC3339))
		return
	}

	logger.InfoContext(ctx, "convocation send scheduled",
		"kind", string(send.Kind), "at", send.At.UTC().Format(time.RFC3339))

	kind := send.Kind
	h.scheduler.Schedule(send.At, func(taskCtx context.Context) {
		if taskCtx.Err() != nil {
			return
		}
		announcement, err := h.buildAnnouncement(taskCtx, session)
		if err != nil {
			logger.ErrorContext(taskCtx, "failed to assemble deferred convocation",
				"kind", string(kind), "error", err)
			return
		}
		if kind == notify.SendReminder {
			announcement.Subject = "Recordatorio - " + announcement.Subject
		}

		report := h.dispatcher.Dispatch(taskCtx, notify.Build(announcement))
		summary := report.Summary()
		logger.InfoContext(taskCtx, "deferred convocation dispatched",
			"kind", string(kind), "summary", summary)

		if h.mailbox != nil {
			subject := fmt.Sprintf("Convocatoria enviada: sesión del %s", session.Date)
			if _, err := h.mailbox.Deliver(taskCtx, principal.UserID, subject, summary); err != nil {
				logger.ErrorContext(taskCtx, "failed to record dispatch report", "error", err)
			}
		}
	})
}

func (h *SessionHandler) buildAnnouncement(ctx context.Context, session application.Session) (notify.Announcement, error) {
	announcement := notify.Announcement{
		Subject:   fmt.Sprintf("Convocatoria: sesión %s del %s", strings.ToLower(string(session.Type)), session.Date),
		Greeting:  "Estimado miembro de la junta directiva:",
		StartsAt:  session.StartsAt(),
		DateLabel: session.Date,
		TimeLabel: session.Time,
	}
	for _, invitee := range session.Invitees {
		announcement.Invitees = append(announcement.Invitees, notify.Invitee{
			Name:  invitee.Name,
			Email: invitee.Email,
		})
	}
	for _, item := range session.Agenda {
		announcement.Items = append(announcement.Items, notify.AgendaItem{
			Title:     item.Title,
			Presenter: item.Presenter,
			Duration:  item.Duration,
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		})
	}

	if h.members != nil {
		emails, err := h.members.MemberEmails(ctx)
		if err != nil {
			return notify.Announcement{}, fmt.Errorf("failed to resolve board addresses: %w", err)
		}
		announcement.MemberEmails = emails
	}

	if h.documents != nil {
		file, err := h.documents.ConvocationDocument(ctx, session.ID)
		if err != nil {
			return notify.Announcement{}, fmt.Errorf("failed to render convocation document: %w", err)
		}
		announcement.Attachment = notify.Attachment{
			Name:   file.Name,
			Base64: file.Base64,
		}
	}
	return announcement, nil
}

// RegisterAttendance stores the present invitees and reports quorum.
func (h *SessionHandler) RegisterAttendance(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "RegisterAttendance", "session_id", id)
	result, err := h.service.RegisterAttendance(r.Context(), application.AttendanceParams{
		Principal: principal,
		SessionID: id,
		Present:   req.Present,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to register attendance", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "attendance registered", "present", result.Present, "quorum", result.HasQuorum)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{
		Invited:   result.Invited,
		Present:   result.Present,
		HasQuorum: result.HasQuorum,
	})
}

// Close transitions a session to the closed state.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Close", "session_id", id)
	if err := h.service.CloseSession(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to close session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session closed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type createSessionRequest struct {
	Type          string                      `json:"tipo"`
	Date          string                      `json:"fecha"`
	Time          string                      `json:"hora"`
	Modality      string                      `json:"modalidad"`
	Platform      string                      `json:"plataforma"`
	Location      string                      `json:"lugar"`
	BoardID       string                      `json:"junta_id"`
	LeaderID      string                      `json:"lider_id"`
	Invitees      []inviteeDTO                `json:"invitados"`
	Agenda        []agendaItemRequest         `json:"agenda"`
	Notifications notificationSettingsRequest `json:"notificaciones"`
}

func (req createSessionRequest) toInput() application.SessionInput {
	input := application.SessionInput{
		Type:     application.SessionType(req.Type),
		Date:     req.Date,
		Time:     req.Time,
		Modality: application.Modality(req.Modality),
		Platform: req.Platform,
		Location: req.Location,
		BoardID:  req.BoardID,
		LeaderID: req.LeaderID,
	}
	for _, invitee := range req.Invitees {
		input.Invitees = append(input.Invitees, application.Invitee{
			Name:  invitee.Name,
			Email: invitee.Email,
		})
	}
	for _, item := range req.Agenda {
		input.Agenda = append(input.Agenda, application.AgendaItem{
			Title:     item.Title,
			Presenter: item.Presenter,
			Type:      application.ItemType(item.Type),
			Duration:  item.Duration,
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		})
	}
	return input
}

type notificationSettingsRequest struct {
	SendNow     bool   `json:"enviar_ahora"`
	Reminder24h bool   `json:"recordatorio_24h"`
	ScheduledAt string `json:"programada,omitempty"`
}

func (req notificationSettingsRequest) toSettings() notify.Settings {
	settings := notify.Settings{
		SendNow:     req.SendNow,
		Reminder24h: req.Reminder24h,
	}
	if at, err := time.Parse(time.RFC3339, req.ScheduledAt); err == nil {
		settings.ScheduledAt = &at
	}
	return settings
}

type inviteeDTO struct {
	Name    string `json:"nombre"`
	Email   string `json:"correo"`
	Present bool   `json:"presente,omitempty"`
}

type agendaItemRequest struct {
	Title     string `json:"titulo"`
	Presenter string `json:"expositor"`
	Type      string `json:"tipo"`
	Duration  int    `json:"duracion"`
	LinkURL   string `json:"enlace_url,omitempty"`
	LinkLabel string `json:"enlace_etiqueta,omitempty"`
}

type agendaItemDTO struct {
	ID        string `json:"id"`
	Title     string `json:"titulo"`
	Order     int    `json:"orden"`
	Presenter string `json:"expositor"`
	Type      string `json:"tipo"`
	Duration  int    `json:"duracion"`
	LinkURL   string `json:"enlace_url,omitempty"`
	LinkLabel string `json:"enlace_etiqueta,omitempty"`
}

type sessionDTO struct {
	ID        string          `json:"id"`
	Type      string          `json:"tipo"`
	Date      string          `json:"fecha"`
	Time      string          `json:"hora"`
	Modality  string          `json:"modalidad"`
	Platform  string          `json:"plataforma,omitempty"`
	Location  string          `json:"lugar,omitempty"`
	BoardID   string          `json:"junta_id"`
	LeaderID  string          `json:"lider_id"`
	State     string          `json:"estado"`
	Invitees  []inviteeDTO    `json:"invitados"`
	Agenda    []agendaItemDTO `json:"agenda"`
	CreatedAt string          `json:"creada_en"`
	UpdatedAt string          `json:"actualizada_en"`
}

type createSessionResponse struct {
	Session  sessionDTO `json:"sesion"`
	Dispatch string     `json:"envio,omitempty"`
}

type attendanceRequest struct {
	Present []string `json:"presentes"`
}

type attendanceResponse struct {
	Invited   int  `json:"convocados"`
	Present   int  `json:"presentes"`
	HasQuorum bool `json:"quorum"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:        session.ID,
		Type:      string(session.Type),
		Date:      session.Date,
		Time:      session.Time,
		Modality:  string(session.Modality),
		Platform:  session.Platform,
		Location:  session.Location,
		BoardID:   session.BoardID,
		LeaderID:  session.LeaderID,
		State:     string(session.State),
		Invitees:  make([]inviteeDTO, 0, len(session.Invitees)),
		Agenda:    make([]agendaItemDTO, 0, len(session.Agenda)),
		CreatedAt: session.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, invitee := range session.Invitees {
		dto.Invitees = append(dto.Invitees, inviteeDTO{
			Name:    invitee.Name,
			Email:   invitee.Email,
			Present: invitee.Present,
		})
	}
	for _, item := range session.Agenda {
		dto.Agenda = append(dto.Agenda, agendaItemDTO{
			ID:        item.ID,
			Title:     item.Title,
			Order:     item.Order,
			Presenter: item.Presenter,
			Type:      string(item.Type),
			Duration:  item.Duration,
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		})
	}
	return dto
}
