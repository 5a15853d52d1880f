package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/governance-console/internal/application"
)

var (
	errBadRequestBody      = errors.New("El formato de la solicitud no es válido.")
	errInvalidSessionID    = errors.New("El identificador de la sesión no es válido.")
	errMissingSessionToken = errors.New("Debe proporcionar un token de autenticación.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "No tiene permisos para realizar esta operación.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "Correo o contraseña incorrectos.",
		})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_ACCOUNT_DISABLED",
			Message:   "La cuenta está deshabilitada.",
		})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "La sesión ha expirado. Inicie sesión nuevamente.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "El recurso solicitado no existe."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "El recurso ya existe."})
	case errors.Is(err, application.ErrMinutesLocked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ACTA_LOCKED",
			Message:   "El acta no puede editarse: la sesión está cerrada o no tiene agenda.",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "Los datos ingresados contienen errores.",
				Errors:  localizeValidationErrors(vErr),
				Focus:   vErr.FocusSection,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Ocurrió un error interno en el servidor."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "La solicitud no es correcta."
	case http.StatusUnauthorized:
		return "Se requiere autenticación."
	case http.StatusForbidden:
		return "No tiene permisos para realizar esta operación."
	case http.StatusNotFound:
		return "El recurso solicitado no existe."
	case http.StatusConflict:
		return "La solicitud entra en conflicto con el estado actual del recurso."
	case http.StatusUnprocessableEntity:
		return "Los datos ingresados contienen errores."
	default:
		return "Ocurrió un error interno en el servidor."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "El correo es obligatorio."
	case "email is invalid":
		return "El formato del correo no es válido."
	case "name is required":
		return "El nombre es obligatorio."
	case "date is required":
		return "La fecha es obligatoria."
	case "date is invalid":
		return "El formato de la fecha no es válido."
	case "time is required":
		return "La hora es obligatoria."
	case "time is invalid":
		return "El formato de la hora no es válido."
	case "session type is invalid":
		return "El tipo de sesión no es válido."
	case "modality is invalid":
		return "La modalidad no es válida."
	case "at least one invitee is required":
		return "Debe convocar al menos a un invitado."
	case "invitee name is required":
		return "El nombre del invitado es obligatorio."
	case "invitee email is required":
		return "El correo del invitado es obligatorio."
	case "invitee email is invalid":
		return "El correo del invitado no es válido."
	case "at least one agenda item is required":
		return "La agenda debe tener al menos un punto."
	case "agenda item title is required":
		return "El título del punto es obligatorio."
	case "agenda item presenter is required":
		return "El expositor del punto es obligatorio."
	case "agenda item type is invalid":
		return "El tipo del punto no es válido."
	case "agenda item duration must not be negative":
		return "La duración del punto no puede ser negativa."
	case "agenda item link must be a valid URL":
		return "El enlace del punto debe ser una URL válida."
	case "session id is required":
		return "El identificador de la sesión es obligatorio."
	case "resolution references an unknown agenda item":
		return "La resolución hace referencia a un punto inexistente."
	case "subject is required":
		return "El asunto es obligatorio."
	case "user id is required":
		return "El identificador del usuario es obligatorio."
	default:
		if strings.HasPrefix(message, "password must be at least") {
			return "La contraseña es demasiado corta."
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	// Focus names the editor section the client should re-activate when
	// validation fails.
	Focus string `json:"focus,omitempty"`
}
