package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/notify"
)

type mailboxService interface {
	List(ctx context.Context, principal application.Principal) ([]application.Notification, error)
	MarkRead(ctx context.Context, principal application.Principal, id string) error
	Delete(ctx context.Context, principal application.Principal, id string) error
}

// MailboxHandler serves the in-app notification mailbox and its live push
// channel.
type MailboxHandler struct {
	service   mailboxService
	hub       *notify.Hub
	responder responder
	logger    *slog.Logger
}

// NewMailboxHandler wires the handler. hub may be nil; the websocket endpoint
// then rejects subscriptions.
func NewMailboxHandler(service mailboxService, hub *notify.Hub, logger *slog.Logger) *MailboxHandler {
	base := defaultLogger(logger)
	return &MailboxHandler{
		service:   service,
		hub:       hub,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *MailboxHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MailboxHandler", operation, attrs...)
}

// List returns the principal's notifications, newest first.
func (h *MailboxHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	notifications, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list notifications", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]notificationDTO, 0, len(notifications))
	for _, notification := range notifications {
		dtos = append(dtos, toNotificationDTO(notification))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

// MarkRead flags one notification as read.
func (h *MailboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	logger := h.log(r.Context(), "MarkRead", "notification_id", id)
	if err := h.service.MarkRead(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to mark notification read", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Delete removes one notification from the mailbox.
func (h *MailboxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	logger := h.log(r.Context(), "Delete", "notification_id", id)
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete notification", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Subscribe upgrades the connection and streams mailbox events until the
// client disconnects.
func (h *MailboxHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	logger := h.log(r.Context(), "Subscribe", "user_id", principal.UserID)
	if err := h.hub.Subscribe(w, r, principal.UserID); err != nil {
		logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "subscription closed")
}

type notificationDTO struct {
	ID        string `json:"id"`
	Subject   string `json:"asunto"`
	Content   string `json:"contenido"`
	Read      bool   `json:"leido"`
	CreatedAt string `json:"creada_en"`
}

func toNotificationDTO(notification application.Notification) notificationDTO {
	return notificationDTO{
		ID:        notification.ID,
		Subject:   notification.Subject,
		Content:   notification.Content,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
