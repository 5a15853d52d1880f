package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

type accountRepoStub struct {
	creds        UserCredentials
	credsErr     error
	user         User
	userErr      error
	created      User
	createdHash  string
	createErr    error
	updated      User
	passwordHash string
	hashUserID   string
}

func (a *accountRepoStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if a.credsErr != nil {
		return UserCredentials{}, a.credsErr
	}
	if a.creds.User.ID == "" {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return a.creds, nil
}

func (a *accountRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	if a.userErr != nil {
		return User{}, a.userErr
	}
	if a.user.ID == "" {
		return User{}, persistence.ErrNotFound
	}
	return a.user, nil
}

func (a *accountRepoStub) CreateUser(ctx context.Context, user User, passwordHash string) (User, error) {
	if a.createErr != nil {
		return User{}, a.createErr
	}
	a.created = user
	a.createdHash = passwordHash
	return user, nil
}

func (a *accountRepoStub) UpdateUser(ctx context.Context, user User) (User, error) {
	a.updated = user
	return user, nil
}

func (a *accountRepoStub) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	a.hashUserID = userID
	a.passwordHash = passwordHash
	return nil
}

type authSessionRepoStub struct {
	session    AuthSession
	getErr     error
	created    AuthSession
	revoked    string
	revokeErr  error
	deletedRef time.Time
}

func (a *authSessionRepoStub) CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error) {
	a.created = session
	return session, nil
}

func (a *authSessionRepoStub) GetAuthSession(ctx context.Context, token string) (AuthSession, error) {
	if a.getErr != nil {
		return AuthSession{}, a.getErr
	}
	if a.session.Token == "" {
		return AuthSession{}, persistence.ErrNotFound
	}
	return a.session, nil
}

func (a *authSessionRepoStub) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error) {
	if a.revokeErr != nil {
		return AuthSession{}, a.revokeErr
	}
	a.revoked = token
	return a.session, nil
}

func (a *authSessionRepoStub) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	a.deletedRef = reference
	return nil
}

type resetTokenRepoStub struct {
	created  ResetToken
	stored   ResetToken
	consumed string
	err      error
}

func (r *resetTokenRepoStub) CreateResetToken(ctx context.Context, token ResetToken) error {
	if r.err != nil {
		return r.err
	}
	r.created = token
	return nil
}

func (r *resetTokenRepoStub) ConsumeResetToken(ctx context.Context, token string, reference time.Time) (ResetToken, error) {
	if r.err != nil {
		return ResetToken{}, r.err
	}
	if r.stored.Token == "" || r.stored.Token != token {
		return ResetToken{}, persistence.ErrNotFound
	}
	r.consumed = token
	return r.stored, nil
}

func plainPasswordFuncs() (PasswordHasher, PasswordVerifier) {
	hash := func(password string) (string, error) { return "hash:" + password, nil }
	verify := func(hashedPassword, password string) error {
		if hashedPassword != "hash:"+password {
			return errors.New("password mismatch")
		}
		return nil
	}
	return hash, verify
}

func newTestAuthService(accounts *accountRepoStub, sessions *authSessionRepoStub, tokens *resetTokenRepoStub) *AuthService {
	hash, verify := plainPasswordFuncs()
	return NewAuthService(accounts, sessions, tokens, sequentialIDs("tok"), fixedNow, time.Hour).
		WithPasswordFuncs(hash, verify)
}

func TestAuthServiceAuthenticate(t *testing.T) {
	creds := UserCredentials{
		User:         User{ID: "user-1", Email: "ana@example.com", IsAdmin: true},
		PasswordHash: "hash:secreta123",
	}

	t.Run("issues a session on matching credentials", func(t *testing.T) {
		sessions := &authSessionRepoStub{}
		service := newTestAuthService(&accountRepoStub{creds: creds}, sessions, nil)

		result, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    " Ana@Example.com ",
			Password: "secreta123",
		})
		if err != nil {
			t.Fatalf("Authenticate returned error: %v", err)
		}
		if result.User.ID != "user-1" {
			t.Fatalf("unexpected user: %+v", result.User)
		}
		if result.Session.Token == "" {
			t.Fatal("expected issued token")
		}
		if !result.Session.ExpiresAt.Equal(fixedNow().Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", result.Session.ExpiresAt)
		}
		if sessions.created.Token != result.Session.Token {
			t.Fatal("expected session persisted")
		}
		if sessions.deletedRef.IsZero() {
			t.Fatal("expected expired sessions pruned")
		}
	})

	t.Run("wrong password maps to ErrInvalidCredentials", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{creds: creds}, &authSessionRepoStub{}, nil)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "ana@example.com",
			Password: "equivocada",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown account maps to ErrInvalidCredentials", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{}, &authSessionRepoStub{}, nil)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "nadie@example.com",
			Password: "cualquiera",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("disabled account maps to ErrAccountDisabled", func(t *testing.T) {
		disabled := creds
		disabled.Disabled = true
		service := newTestAuthService(&accountRepoStub{creds: disabled}, &authSessionRepoStub{}, nil)

		_, err := service.Authenticate(context.Background(), AuthenticateParams{
			Email:    "ana@example.com",
			Password: "secreta123",
		})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})
}

func TestAuthServiceRegister(t *testing.T) {
	t.Run("creates the account with a hashed password", func(t *testing.T) {
		accounts := &accountRepoStub{}
		service := newTestAuthService(accounts, nil, nil)

		user, err := service.Register(context.Background(), RegisterParams{
			Email:    "Nueva@Example.com",
			Name:     " Nueva ",
			LastName: "Socia",
			Password: "segura123",
		})
		if err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
		if user.Email != "nueva@example.com" || user.Name != "Nueva" {
			t.Fatalf("unexpected user: %+v", user)
		}
		if accounts.createdHash != "hash:segura123" {
			t.Fatalf("expected derived hash, got %q", accounts.createdHash)
		}
	})

	t.Run("short passwords fail validation", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{}, nil, nil)

		_, err := service.Register(context.Background(), RegisterParams{
			Email:    "ana@example.com",
			Name:     "Ana",
			Password: "corta",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, ok := vErr.FieldErrors["contrasena"]; !ok {
			t.Fatalf("expected password error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("duplicate address maps to ErrAlreadyExists", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{createErr: persistence.ErrDuplicate}, nil, nil)

		_, err := service.Register(context.Background(), RegisterParams{
			Email:    "ana@example.com",
			Name:     "Ana",
			Password: "segura123",
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestAuthServicePasswordReset(t *testing.T) {
	creds := UserCredentials{
		User:         User{ID: "user-1", Email: "ana@example.com"},
		PasswordHash: "hash:vieja1234",
	}

	t.Run("request issues a token bound to the account", func(t *testing.T) {
		tokens := &resetTokenRepoStub{}
		service := newTestAuthService(&accountRepoStub{creds: creds}, nil, tokens)

		token, err := service.RequestPasswordReset(context.Background(), "ana@example.com")
		if err != nil {
			t.Fatalf("RequestPasswordReset returned error: %v", err)
		}
		if token.UserID != "user-1" || token.Token == "" {
			t.Fatalf("unexpected token: %+v", token)
		}
		if !token.ExpiresAt.Equal(fixedNow().Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", token.ExpiresAt)
		}
		if tokens.created.Token != token.Token {
			t.Fatal("expected token persisted")
		}
	})

	t.Run("unknown address maps to ErrNotFound", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{}, nil, &resetTokenRepoStub{})

		_, err := service.RequestPasswordReset(context.Background(), "nadie@example.com")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reset redeems the token and stores the new hash", func(t *testing.T) {
		accounts := &accountRepoStub{creds: creds}
		tokens := &resetTokenRepoStub{stored: ResetToken{Token: "tok-1", UserID: "user-1"}}
		service := newTestAuthService(accounts, nil, tokens)

		err := service.ResetPassword(context.Background(), ResetPasswordParams{
			Token:       "tok-1",
			NewPassword: "nueva1234",
		})
		if err != nil {
			t.Fatalf("ResetPassword returned error: %v", err)
		}
		if tokens.consumed != "tok-1" {
			t.Fatal("expected token consumed")
		}
		if accounts.hashUserID != "user-1" || accounts.passwordHash != "hash:nueva1234" {
			t.Fatalf("expected new hash stored, got %q for %q", accounts.passwordHash, accounts.hashUserID)
		}
	})

	t.Run("consumed or unknown token maps to ErrInvalidCredentials", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{creds: creds}, nil, &resetTokenRepoStub{})

		err := service.ResetPassword(context.Background(), ResetPasswordParams{
			Token:       "tok-viejo",
			NewPassword: "nueva1234",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthServiceChangePassword(t *testing.T) {
	accounts := &accountRepoStub{
		user: User{ID: "user-1", Email: "ana@example.com"},
		creds: UserCredentials{
			User:         User{ID: "user-1", Email: "ana@example.com"},
			PasswordHash: "hash:actual123",
		},
	}
	service := newTestAuthService(accounts, nil, nil)

	t.Run("requires the current password", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), ChangePasswordParams{
			Principal:       Principal{UserID: "user-1"},
			CurrentPassword: "equivocada",
			NewPassword:     "nueva1234",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("stores the new hash on success", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), ChangePasswordParams{
			Principal:       Principal{UserID: "user-1"},
			CurrentPassword: "actual123",
			NewPassword:     "nueva1234",
		})
		if err != nil {
			t.Fatalf("ChangePassword returned error: %v", err)
		}
		if accounts.passwordHash != "hash:nueva1234" {
			t.Fatalf("expected new hash stored, got %q", accounts.passwordHash)
		}
	})
}

func TestAuthServiceValidateSession(t *testing.T) {
	user := User{ID: "user-1", Email: "ana@example.com", IsAdmin: true}

	t.Run("active session resolves the principal", func(t *testing.T) {
		sessions := &authSessionRepoStub{session: AuthSession{
			Token:     "token-1",
			UserID:    "user-1",
			ExpiresAt: fixedNow().Add(time.Hour),
		}}
		service := newTestAuthService(&accountRepoStub{user: user}, sessions, nil)

		principal, err := service.ValidateSession(context.Background(), "token-1")
		if err != nil {
			t.Fatalf("ValidateSession returned error: %v", err)
		}
		if principal.UserID != "user-1" || !principal.IsAdmin {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	})

	t.Run("expired session maps to ErrSessionExpired", func(t *testing.T) {
		sessions := &authSessionRepoStub{session: AuthSession{
			Token:     "token-1",
			UserID:    "user-1",
			ExpiresAt: fixedNow().Add(-time.Minute),
		}}
		service := newTestAuthService(&accountRepoStub{user: user}, sessions, nil)

		_, err := service.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("revoked session maps to ErrSessionRevoked", func(t *testing.T) {
		revokedAt := fixedNow().Add(-time.Minute)
		sessions := &authSessionRepoStub{session: AuthSession{
			Token:     "token-1",
			UserID:    "user-1",
			ExpiresAt: fixedNow().Add(time.Hour),
			RevokedAt: &revokedAt,
		}}
		service := newTestAuthService(&accountRepoStub{user: user}, sessions, nil)

		_, err := service.ValidateSession(context.Background(), "token-1")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("unknown token maps to ErrUnauthorized", func(t *testing.T) {
		service := newTestAuthService(&accountRepoStub{user: user}, &authSessionRepoStub{}, nil)

		_, err := service.ValidateSession(context.Background(), "token-fantasma")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthServiceRevokeSession(t *testing.T) {
	t.Run("revokes an existing token", func(t *testing.T) {
		sessions := &authSessionRepoStub{session: AuthSession{Token: "token-1", UserID: "user-1"}}
		service := newTestAuthService(&accountRepoStub{}, sessions, nil)

		if err := service.RevokeSession(context.Background(), " token-1 "); err != nil {
			t.Fatalf("RevokeSession returned error: %v", err)
		}
		if sessions.revoked != "token-1" {
			t.Fatalf("expected trimmed token revoked, got %q", sessions.revoked)
		}
	})

	t.Run("unknown token maps to ErrInvalidCredentials", func(t *testing.T) {
		sessions := &authSessionRepoStub{revokeErr: persistence.ErrNotFound}
		service := newTestAuthService(&accountRepoStub{}, sessions, nil)

		if err := service.RevokeSession(context.Background(), "token-x"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthServiceDefaultPasswordFuncs(t *testing.T) {
	// Uses the service as constructed for production: argon2id hashing and
	// verification, no overrides.
	accounts := &accountRepoStub{}
	sessions := &authSessionRepoStub{}
	service := NewAuthService(accounts, sessions, &resetTokenRepoStub{}, sequentialIDs("tok"), fixedNow, time.Hour)

	registered, err := service.Register(context.Background(), RegisterParams{
		Email:    "ana@example.com",
		Name:     "Ana",
		LastName: "Pérez",
		Password: "secreta123",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !strings.HasPrefix(accounts.createdHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash stored, got %q", accounts.createdHash)
	}

	accounts.creds = UserCredentials{User: registered, PasswordHash: accounts.createdHash}

	if _, err := service.Authenticate(context.Background(), AuthenticateParams{
		Email:    "ana@example.com",
		Password: "secreta123",
	}); err != nil {
		t.Fatalf("Authenticate with stored hash returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), AuthenticateParams{
		Email:    "ana@example.com",
		Password: "equivocada",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
}
