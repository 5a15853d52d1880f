package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/governance-console/internal/application"
)

type memberService interface {
	ListMembers(ctx context.Context) ([]application.Member, error)
}

// MemberHandler serves the read-only board directory.
type MemberHandler struct {
	service   memberService
	responder responder
	logger    *slog.Logger
}

// NewMemberHandler wires the handler.
func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	base := defaultLogger(logger)
	return &MemberHandler{
		service:   service,
		responder: newResponder(base),
		logger:    base,
	}
}

// List returns the board members sorted by last name.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "MemberHandler", "List").
			ErrorContext(r.Context(), "failed to list members", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]memberDTO, 0, len(members))
	for _, member := range members {
		dtos = append(dtos, memberDTO{
			ID:       member.ID,
			Name:     member.Name,
			LastName: member.LastName,
			Email:    member.Email,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}

type memberDTO struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	LastName string `json:"apellido"`
	Email    string `json:"correo"`
}
