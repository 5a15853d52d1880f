package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// minPasswordLength is the shortest password accepted at registration and on
// any password change.
const minPasswordLength = 8

// resetTokenTTL bounds how long a recovery token can be redeemed.
const resetTokenTTL = time.Hour

// AccountRepository exposes the account lookups and updates the auth service needs.
type AccountRepository interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
}

// AuthSessionRepository captures the persistence interactions for issued sessions.
type AuthSessionRepository interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error
}

// ResetTokenRepository stores single-use password recovery tokens.
type ResetTokenRepository interface {
	CreateResetToken(ctx context.Context, token ResetToken) error
	ConsumeResetToken(ctx context.Context, token string, reference time.Time) (ResetToken, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// PasswordHasher derives a storable hash from a plain password.
type PasswordHasher func(password string) (string, error)

// AuthService coordinates account flows: login, registration, session
// validation, and password recovery.
type AuthService struct {
	accounts       AccountRepository
	sessions       AuthSessionRepository
	resetTokens    ResetTokenRepository
	verifyPassword PasswordVerifier
	hashPassword   PasswordHasher
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts AccountRepository, sessions AuthSessionRepository, resetTokens ResetTokenRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(accounts, sessions, resetTokens, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(accounts AccountRepository, sessions AuthSessionRepository, resetTokens ResetTokenRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:       accounts,
		sessions:       sessions,
		resetTokens:    resetTokens,
		verifyPassword: VerifyPassword,
		hashPassword: func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		},
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

// WithPasswordFuncs overrides the hash and verify functions, used by tests to
// avoid argon2id cost.
func (s *AuthService) WithPasswordFuncs(hash PasswordHasher, verify PasswordVerifier) *AuthService {
	if s == nil {
		return nil
	}
	if hash != nil {
		s.hashPassword = hash
	}
	if verify != nil {
		s.verifyPassword = verify
	}
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"email", email,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.accounts.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapSessionRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		return
	}

	if creds.Disabled {
		err = ErrAccountDisabled
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	id := s.tokenGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	session := AuthSession{
		ID:        id,
		UserID:    creds.User.ID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredAuthSessions(ctx, now); err != nil {
			return
		}

		var persisted AuthSession
		persisted, err = s.sessions.CreateAuthSession(ctx, session)
		if err != nil {
			return
		}
		session = persisted
	}

	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

// Register creates a new account and stores its password hash.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "registration succeeded")
	}()

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("correo", "email is required")
	} else if _, perr := mail.ParseAddress(email); perr != nil {
		vErr.add("correo", "email is invalid")
	}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("nombre", "name is required")
	}
	if len(params.Password) < minPasswordLength {
		vErr.add("contrasena", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	candidate := User{
		ID:        s.tokenGenerator(),
		Email:     email,
		Name:      strings.TrimSpace(params.Name),
		LastName:  strings.TrimSpace(params.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err = s.accounts.CreateUser(ctx, candidate, hash)
	if err != nil {
		err = mapSessionRepoError(err)
		user = User{}
		return
	}
	return
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.accounts == nil {
		return fmt.Errorf("account repository not configured")
	}

	logger := s.loggerWith(ctx, "ChangePassword", "user_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	if len(params.NewPassword) < minPasswordLength {
		vErr := &ValidationError{}
		vErr.add("contrasena", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		err = vErr
		return
	}

	var user User
	user, err = s.accounts.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	var creds UserCredentials
	creds, err = s.accounts.GetUserCredentialsByEmail(ctx, user.Email)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.CurrentPassword); err != nil {
		err = ErrInvalidCredentials
		return
	}

	var hash string
	hash, err = s.hashPassword(params.NewPassword)
	if err != nil {
		return
	}
	err = mapSessionRepoError(s.accounts.UpdatePasswordHash(ctx, user.ID, hash, s.now()))
	return
}

// RequestPasswordReset issues a single-use recovery token for the account.
// The token is returned for the caller to deliver out of band.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (token ResetToken, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil || s.resetTokens == nil {
		err = fmt.Errorf("reset token repository not configured")
		return
	}

	email = strings.TrimSpace(strings.ToLower(email))
	logger := s.loggerWith(ctx, "RequestPasswordReset", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reset request failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reset token issued")
	}()

	if email == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.accounts.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}
	if creds.Disabled {
		err = ErrAccountDisabled
		return
	}

	now := s.now()
	token = ResetToken{
		Token:     s.tokenGenerator(),
		UserID:    creds.User.ID,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}
	if err = s.resetTokens.CreateResetToken(ctx, token); err != nil {
		token = ResetToken{}
	}
	return
}

// ResetPassword redeems a recovery token and stores the new password hash.
func (s *AuthService) ResetPassword(ctx context.Context, params ResetPasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.accounts == nil || s.resetTokens == nil {
		return fmt.Errorf("reset token repository not configured")
	}

	logger := s.loggerWith(ctx, "ResetPassword", "token_provided", strings.TrimSpace(params.Token) != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password reset")
	}()

	if strings.TrimSpace(params.Token) == "" {
		err = ErrInvalidCredentials
		return
	}
	if len(params.NewPassword) < minPasswordLength {
		vErr := &ValidationError{}
		vErr.add("contrasena", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		err = vErr
		return
	}

	var token ResetToken
	token, err = s.resetTokens.ConsumeResetToken(ctx, strings.TrimSpace(params.Token), s.now())
	if err != nil {
		if errors.Is(mapSessionRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	var hash string
	hash, err = s.hashPassword(params.NewPassword)
	if err != nil {
		return
	}
	err = mapSessionRepoError(s.accounts.UpdatePasswordHash(ctx, token.UserID, hash, s.now()))
	return
}

// UpdateProfile stores profile field changes for the acting principal.
func (s *AuthService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "user_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	vErr := &ValidationError{}
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		vErr.add("correo", "email is required")
	} else if _, perr := mail.ParseAddress(email); perr != nil {
		vErr.add("correo", "email is invalid")
	}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("nombre", "name is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var current User
	current, err = s.accounts.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	current.Email = email
	current.Name = strings.TrimSpace(params.Name)
	current.LastName = strings.TrimSpace(params.LastName)
	current.UpdatedAt = s.now()

	user, err = s.accounts.UpdateUser(ctx, current)
	if err != nil {
		err = mapSessionRepoError(err)
		user = User{}
	}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")

	if _, err := s.sessions.RevokeAuthSession(ctx, trimmed, s.now()); err != nil {
		if errors.Is(mapSessionRepoError(err), ErrNotFound) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredAuthSessions(ctx, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active
// session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).InfoContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session AuthSession
	session, err = s.sessions.GetAuthSession(ctx, trimmed)
	if err != nil {
		if errors.Is(mapSessionRepoError(err), ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.accounts.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(mapSessionRepoError(err), ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, IsAdmin: user.IsAdmin}
	return
}
