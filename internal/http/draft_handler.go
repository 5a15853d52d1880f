package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/draft"
)

// DraftHandler serves the per-user convocation draft so an interrupted
// authoring session survives a page reload. Drafts live in memory only; a
// submitted session is the durable artifact.
type DraftHandler struct {
	mu        sync.Mutex
	drafts    map[string]*draft.Store
	responder responder
	logger    *slog.Logger
}

// NewDraftHandler wires the handler with an empty draft registry.
func NewDraftHandler(logger *slog.Logger) *DraftHandler {
	base := defaultLogger(logger)
	return &DraftHandler{
		drafts:    make(map[string]*draft.Store),
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *DraftHandler) storeFor(userID string) *draft.Store {
	h.mu.Lock()
	defer h.mu.Unlock()

	store, ok := h.drafts[userID]
	if !ok {
		store = draft.NewStore()
		h.drafts[userID] = store
	}
	return store
}

// DiscardDraft drops the user's draft unconditionally. Called after the draft
// has been submitted as a real session, so no confirmation applies.
func (h *DraftHandler) DiscardDraft(userID string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	delete(h.drafts, userID)
	h.mu.Unlock()
}

// Get returns the caller's current draft, empty defaults included.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	store := h.storeFor(principal.UserID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDraftResponse(store))
}

// Put replaces the caller's draft with the submitted sections.
func (h *DraftHandler) Put(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	store := h.storeFor(principal.UserID)
	req.apply(store)

	logger := handlerLogger(r.Context(), h.logger, "DraftHandler", "Put", "user_id", principal.UserID)
	logger.InfoContext(r.Context(), "draft stored",
		"invitees", len(store.Invitees()), "agenda_items", len(store.Agenda()))

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDraftResponse(store))
}

// Discard drops the caller's draft. A dirty draft is only discarded when the
// client confirms with ?confirmar=true; the confirmation decision is passed to
// the store rather than decided here.
func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	confirmed := r.URL.Query().Get("confirmar") == "true"
	store := h.storeFor(principal.UserID)
	if !store.Leave(draft.ConfirmerFunc(func(string) bool { return confirmed })) {
		h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "DRAFT_DIRTY",
			Message:   "Hay cambios sin guardar. Confirme para descartar el borrador.",
		})
		return
	}

	h.mu.Lock()
	delete(h.drafts, principal.UserID)
	h.mu.Unlock()

	handlerLogger(r.Context(), h.logger, "DraftHandler", "Discard", "user_id", principal.UserID).
		InfoContext(r.Context(), "draft discarded")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type draftRequest struct {
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

// apply rebuilds the store through its editor operations so the same rules
// hold as for interactive edits: blank invitees are dropped and unknown item
// types keep the editor default.
func (req draftRequest) apply(store *draft.Store) {
	store.Reset()
	store.SetBasicInfo(draft.BasicInfo{
		Type:     application.SessionType(req.Type),
		Date:     req.Date,
		Time:     req.Time,
		Modality: application.Modality(req.Modality),
		Platform: req.Platform,
		Location: req.Location,
		BoardID:  req.BoardID,
		LeaderID: req.LeaderID,
	})
	for _, invitee := range req.Invitees {
		store.AddInvitee(invitee.Name, invitee.Email)
	}
	for _, item := range req.Agenda {
		index := store.AddItem()
		store.SetItemTitle(index, item.Title)
		store.SetItemPresenter(index, item.Presenter)
		store.SetItemType(index, application.ItemType(item.Type))
		store.SetItemDuration(index, strconv.Itoa(item.Duration))
		store.SetItemLink(index, item.LinkURL, item.LinkLabel)
	}
	store.SetNotificationSettings(req.Notifications.toSettings())
}

type draftResponse struct {
	Type          string                      `json:"tipo"`
	Date          string                      `json:"fecha"`
	Time          string                      `json:"hora"`
	Modality      string                      `json:"modalidad"`
	Platform      string                      `json:"plataforma,omitempty"`
	Location      string                      `json:"lugar,omitempty"`
	BoardID       string                      `json:"junta_id,omitempty"`
	LeaderID      string                      `json:"lider_id,omitempty"`
	Invitees      []inviteeDTO                `json:"invitados"`
	Agenda        []agendaItemRequest         `json:"agenda"`
	Notifications notificationSettingsRequest `json:"notificaciones"`
	Dirty         bool                        `json:"pendiente"`
}

func toDraftResponse(store *draft.Store) draftResponse {
	input := store.Snapshot()
	settings := store.NotificationSettings()

	resp := draftResponse{
		Type:     string(input.Type),
		Date:     input.Date,
		Time:     input.Time,
		Modality: string(input.Modality),
		Platform: input.Platform,
		Location: input.Location,
		BoardID:  input.BoardID,
		LeaderID: input.LeaderID,
		Invitees: make([]inviteeDTO, 0, len(input.Invitees)),
		Agenda:   make([]agendaItemRequest, 0, len(input.Agenda)),
		Notifications: notificationSettingsRequest{
			SendNow:     settings.SendNow,
			Reminder24h: settings.Reminder24h,
		},
		Dirty: store.Dirty(),
	}
	if settings.ScheduledAt != nil {
		resp.Notifications.ScheduledAt = settings.ScheduledAt.UTC().Format(time.RFC3339)
	}
	for _, invitee := range input.Invitees {
		resp.Invitees = append(resp.Invitees, inviteeDTO{Name: invitee.Name, Email: invitee.Email})
	}
	for _, item := range input.Agenda {
		resp.Agenda = append(resp.Agenda, agendaItemRequest{
			Title:     item.Title,
			Presenter: item.Presenter,
			Type:      string(item.Type),
			Duration:  item.Duration,
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		})
	}
	return resp
}
