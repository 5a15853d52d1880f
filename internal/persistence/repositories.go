package persistence

import "context"
import "time"

// UserRepository exposes CRUD operations for console accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// AuthSessionRepository stores bearer session state.
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

// MemberRepository stores the board roster.
type MemberRepository interface {
	UpsertMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// SessionRepository stores governance sessions with their invitees and agenda.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	UpdateSessionState(ctx context.Context, id, state string, updatedAt time.Time) error
	UpdateAttendance(ctx context.Context, id string, presentEmails []string, updatedAt time.Time) error
	GetAgendaItem(ctx context.Context, itemID string) (AgendaItem, error)
}

// ActaRepository stores minutes documents. One acta exists per session; saving
// again replaces the resolutions and justifications wholesale.
type ActaRepository interface {
	SaveActa(ctx context.Context, acta Acta) (Acta, error)
	GetActaBySession(ctx context.Context, sessionID string) (Acta, error)
}

// MailboxRepository stores in-app notifications per user.
type MailboxRepository interface {
	CreateNotification(ctx context.Context, notification Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	DeleteNotification(ctx context.Context, id, userID string) error
}
