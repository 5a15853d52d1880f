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

type minutesService interface {
	SeedResolutions(ctx context.Context, sessionID string) ([]application.Resolution, error)
	SaveMinutes(ctx context.Context, params application.SaveMinutesParams) (application.Minutes, error)
	GetMinutes(ctx context.Context, sessionID string) (application.Minutes, error)
	ActaDocument(ctx context.Context, sessionID string) (document.File, error)
	ConvocationDocument(ctx context.Context, sessionID string) (document.File, error)
}

type sessionReader interface {
	GetSession(ctx context.Context, id string) (application.Session, error)
}

// ActaHandler serves the minutes endpoints: drafting, persistence, and the
// generated PDF documents. After a successful save it distributes the acta to
// the board and the convoked invitees.
type ActaHandler struct {
	service    minutesService
	sessions   sessionReader
	members    memberDirectory
	dispatcher *notify.Dispatcher
	mailbox    mailboxDeliverer
	responder  responder
	logger     *slog.Logger
}

// NewActaHandler wires the handler. sessions, members, dispatcher, and mailbox
// may be nil; acta distribution is skipped for whichever is absent.
func NewActaHandler(service minutesService, sessions sessionReader, members memberDirectory, dispatcher *notify.Dispatcher, mailbox mailboxDeliverer, logger *slog.Logger) *ActaHandler {
	base := defaultLogger(logger)
	return &ActaHandler{
		service:    service,
		sessions:   sessions,
		members:    members,
		dispatcher: dispatcher,
		mailbox:    mailbox,
		responder:  newResponder(base),
		logger:     base,
	}
}

func (h *ActaHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ActaHandler", operation, attrs...)
}

func sessionIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["id"])
}

// Get returns the stored acta for a session.
func (h *ActaHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := sessionIDFromRequest(r)
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	minutes, err := h.service.GetMinutes(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "session_id", id).ErrorContext(r.Context(), "failed to load acta", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMinutesDTO(minutes))
}

// Seed returns one empty resolution per agenda item, in agenda order.
func (h *ActaHandler) Seed(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFromRequest(r)
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	resolutions, err := h.service.SeedResolutions(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Seed", "session_id", id).ErrorContext(r.Context(), "failed to seed resolutions", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]resolutionDTO, 0, len(resolutions))
	for _, resolution := range resolutions {
		dtos = append(dtos, toResolutionDTO(resolution))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

// Save persists the acta draft for a session.
func (h *ActaHandler) Save(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id := sessionIDFromRequest(r)
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req saveActaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Save", "session_id", id).ErrorContext(r.Context(), "failed to decode acta request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.SaveMinutesParams{
		Principal: principal,
		SessionID: id,
		Content:   req.Content,
	}
	for _, resolution := range req.Resolutions {
		params.Resolutions = append(params.Resolutions, application.ResolutionInput{
			AgendaItemID: resolution.AgendaItemID,
			Summary:      resolution.Summary,
			VotesFor:     resolution.VotesFor,
			VotesAgainst: resolution.VotesAgainst,
			Abstentions:  resolution.Abstentions,
			Responsible:  resolution.Responsible,
		})
	}
	for _, justification := range req.Justifications {
		params.Justifications = append(params.Justifications, application.AbsenceJustification{
			Informer: justification.Informer,
			Absentee: justification.Absentee,
			Reason:   justification.Reason,
		})
	}

	logger := h.log(r.Context(), "Save", "session_id", id)
	minutes, err := h.service.SaveMinutes(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to save acta", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger = logger.With("acta_id", minutes.ID)
	logger.InfoContext(r.Context(), "acta saved")

	summary := h.deliverActa(r.Context(), logger, principal, id)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, saveActaResponse{
		Minutes:  toMinutesDTO(minutes),
		Dispatch: summary,
	})
}

// deliverActa renders the saved acta and mails it to the board plus the
// convoked invitees. The save is already durable at this point: a delivery
// failure is reported in the summary, never as a request error.
func (h *ActaHandler) deliverActa(ctx context.Context, logger *slog.Logger, principal application.Principal, sessionID string) string {
	if h.dispatcher == nil || h.sessions == nil {
		return ""
	}

	session, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load session for acta delivery", "error", err)
		return "el acta no pudo enviarse: " + err.Error()
	}

	file, err := h.service.ActaDocument(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render acta document", "error", err)
		return "el acta no pudo enviarse: " + err.Error()
	}

	recipients := make([]string, 0, len(session.Invitees))
	if h.members != nil {
		emails, err := h.members.MemberEmails(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve board addresses", "error", err)
			return "el acta no pudo enviarse: " + err.Error()
		}
		recipients = append(recipients, emails...)
	}
	for _, invitee := range session.Invitees {
		recipients = append(recipients, invitee.Email)
	}

	subject := fmt.Sprintf("Acta: sesión del %s", session.Date)
	body := fmt.Sprintf("Estimado miembro de la junta directiva:\n\nSe adjunta el acta de la sesión del %s a las %s.\n", session.Date, session.Time)
	notices := notify.BuildDocumentNotices(subject, body, recipients, notify.Attachment{
		Name:   file.Name,
		Base64: file.Base64,
	})

	report := h.dispatcher.Dispatch(ctx, notices)
	summary := report.Summary()
	logger.InfoContext(ctx, "acta dispatched", "summary", summary)

	if h.mailbox != nil {
		mailboxSubject := fmt.Sprintf("Acta enviada: sesión del %s", session.Date)
		if _, err := h.mailbox.Deliver(ctx, principal.UserID, mailboxSubject, summary); err != nil {
			logger.ErrorContext(ctx, "failed to record acta dispatch report", "error", err)
		}
	}
	return summary
}

// ActaPDF streams the rendered minutes document.
func (h *ActaHandler) ActaPDF(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, "ActaPDF", h.service.ActaDocument)
}

// ConvocationPDF streams the rendered convocation document.
func (h *ActaHandler) ConvocationPDF(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, "ConvocationPDF", h.service.ConvocationDocument)
}

func (h *ActaHandler) servePDF(w http.ResponseWriter, r *http.Request, operation string, render func(context.Context, string) (document.File, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := sessionIDFromRequest(r)
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	file, err := render(r.Context(), id)
	if err != nil {
		h.log(r.Context(), operation, "session_id", id).ErrorContext(r.Context(), "failed to render document", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Bytes); err != nil {
		h.log(r.Context(), operation, "session_id", id).ErrorContext(r.Context(), "failed to stream document", "error", err)
	}
}

type resolutionDTO struct {
	AgendaItemID string `json:"punto_id"`
	Summary      string `json:"resumen"`
	VotesFor     int    `json:"votos_favor"`
	VotesAgainst int    `json:"votos_contra"`
	Abstentions  int    `json:"abstenciones"`
	Responsible  string `json:"responsable,omitempty"`
}

type resolutionRequest struct {
	AgendaItemID string `json:"punto_id"`
	Summary      string `json:"resumen"`
	VotesFor     string `json:"votos_favor"`
	VotesAgainst string `json:"votos_contra"`
	Abstentions  string `json:"abstenciones"`
	Responsible  string `json:"responsable"`
}

type justificationDTO struct {
	Informer string `json:"informante"`
	Absentee string `json:"ausente"`
	Reason   string `json:"motivo"`
}

type saveActaRequest struct {
	Content        string              `json:"contenido"`
	Resolutions    []resolutionRequest `json:"resoluciones"`
	Justifications []justificationDTO  `json:"justificaciones"`
}

type saveActaResponse struct {
	Minutes  minutesDTO `json:"acta"`
	Dispatch string     `json:"envio,omitempty"`
}

type minutesDTO struct {
	ID             string             `json:"id"`
	SessionID      string             `json:"sesion_id"`
	Content        string             `json:"contenido"`
	Resolutions    []resolutionDTO    `json:"resoluciones"`
	Justifications []justificationDTO `json:"justificaciones"`
	CreatedBy      string             `json:"creada_por"`
	CreatedAt      string             `json:"creada_en"`
	UpdatedAt      string             `json:"actualizada_en"`
}

func toResolutionDTO(resolution application.Resolution) resolutionDTO {
	return resolutionDTO{
		AgendaItemID: resolution.AgendaItemID,
		Summary:      resolution.Summary,
		VotesFor:     resolution.VotesFor,
		VotesAgainst: resolution.VotesAgainst,
		Abstentions:  resolution.Abstentions,
		Responsible:  resolution.Responsible,
	}
}

func toMinutesDTO(minutes application.Minutes) minutesDTO {
	dto := minutesDTO{
		ID:             minutes.ID,
		SessionID:      minutes.SessionID,
		Content:        minutes.Content,
		Resolutions:    make([]resolutionDTO, 0, len(minutes.Resolutions)),
		Justifications: make([]justificationDTO, 0, len(minutes.Justifications)),
		CreatedBy:      minutes.CreatedBy,
		CreatedAt:      minutes.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      minutes.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, resolution := range minutes.Resolutions {
		dto.Resolutions = append(dto.Resolutions, toResolutionDTO(resolution))
	}
	for _, justification := range minutes.Justifications {
		dto.Justifications = append(dto.Justifications, justificationDTO{
			Informer: justification.Informer,
			Absentee: justification.Absentee,
			Reason:   justification.Reason,
		})
	}
	return dto
}
