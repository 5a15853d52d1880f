package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/notify"
)

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	ChangePassword(ctx context.Context, params application.ChangePasswordParams) error
	RequestPasswordReset(ctx context.Context, email string) (application.ResetToken, error)
	ResetPassword(ctx context.Context, params application.ResetPasswordParams) error
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error)
	RevokeSession(ctx context.Context, token string) error
}

// AuthHandler serves login, registration, and account recovery endpoints.
type AuthHandler struct {
	service   authService
	mailer    notify.Mailer
	baseURL   string
	responder responder
	logger    *slog.Logger
}

// NewAuthHandler wires the handler. The mailer is optional: without one,
// recovery tokens are only logged.
func NewAuthHandler(service authService, mailer notify.Mailer, baseURL string, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{
		service:   service,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login authenticates credentials and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(r.Context(), "Login", "email", email)

	result, err := h.service.Authenticate(r.Context(), application.AuthenticateParams{
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "authentication failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt)
	w.Header().Set("X-Session-Token", result.Session.Token)

	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "user authenticated")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		User:      toUserDTO(result.User),
	})
}

// Logout revokes the current session token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(r)
	if token == "" {
		h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	logger := h.log(r.Context(), "Logout", "token_present", true)
	if err := h.service.RevokeSession(r.Context(), token); err != nil {
		logger.ErrorContext(r.Context(), "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	logger.InfoContext(r.Context(), "session revoked")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Register creates a new console account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register", "email", strings.ToLower(strings.TrimSpace(req.Email)))

	user, err := h.service.Register(r.Context(), application.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		LastName: req.LastName,
		Password: req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "account created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toUserDTO(user))
}

// ChangePassword updates the acting principal's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	err := h.service.ChangePassword(r.Context(), application.ChangePasswordParams{
		Principal:       principal,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// RequestReset issues a recovery token and mails the recovery link.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(r.Context(), "RequestReset", "email", email)

	token, err := h.service.RequestPasswordReset(r.Context(), email)
	if err != nil {
		// An unknown address gets the same response as a known one so the
		// endpoint cannot be used to enumerate accounts.
		if errors.Is(err, application.ErrNotFound) {
			logger.InfoContext(r.Context(), "reset requested for unknown address")
			h.responder.writeJSON(r.Context(), w, http.StatusAccepted, resetResponse{Message: "Si el correo existe, recibirá instrucciones para restablecer su contraseña."})
			return
		}
		logger.ErrorContext(r.Context(), "reset request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.mailer != nil {
		link := fmt.Sprintf("%s/restablecer?token=%s", h.baseURL, token.Token)
		err := h.mailer.Send(r.Context(), notify.Message{
			To:      email,
			Subject: "Restablecimiento de contraseña",
			Body:    fmt.Sprintf("Para restablecer su contraseña visite:\n%s\n\nEl enlace vence en una hora.", link),
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "reset mail delivery failed", "error", err)
		}
	}

	logger.InfoContext(r.Context(), "reset token issued")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, resetResponse{Message: "Si el correo existe, recibirá instrucciones para restablecer su contraseña."})
}

// ConfirmReset redeems a recovery token and sets the new password.
func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	err := h.service.ResetPassword(r.Context(), application.ResetPasswordParams{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// UpdateProfile stores profile field changes for the acting principal.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), application.UpdateProfileParams{
		Principal: principal,
		Name:      req.Name,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

type loginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expira_en"`
	User      userDTO `json:"usuario"`
}

type registerRequest struct {
	Email    string `json:"correo"`
	Name     string `json:"nombre"`
	LastName string `json:"apellido"`
	Password string `json:"contrasena"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"contrasena_actual"`
	NewPassword     string `json:"contrasena_nueva"`
}

type resetRequest struct {
	Email string `json:"correo"`
}

type resetResponse struct {
	Message string `json:"message"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"contrasena_nueva"`
}

type profileRequest struct {
	Name     string `json:"nombre"`
	LastName string `json:"apellido"`
	Email    string `json:"correo"`
}

type userDTO struct {
	ID       string `json:"id"`
	Email    string `json:"correo"`
	Name     string `json:"nombre"`
	LastName string `json:"apellido"`
	IsAdmin  bool   `json:"es_admin"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		LastName: user.LastName,
		IsAdmin:  user.IsAdmin,
	}
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}
