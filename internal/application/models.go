package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// SessionType distinguishes ordinary from extraordinary sessions.
type SessionType string

const (
	SessionOrdinary      SessionType = "ORDINARIA"
	SessionExtraordinary SessionType = "EXTRAORDINARIA"
)

// Modality identifies how a session is held.
type Modality string

const (
	ModalityInPerson Modality = "presencial"
	ModalityVirtual  Modality = "virtual"
	ModalityHybrid   Modality = "hibrida"
)

// SessionState tracks the lifecycle of a governance session. Minutes may only
// be drafted while the session is scheduled or pending.
type SessionState string

const (
	StateScheduled SessionState = "programada"
	StatePending   SessionState = "pendiente"
	StateClosed    SessionState = "cerrada"
)

// ItemType classifies an agenda item. Vote tallies are only meaningful for
// votable types; everything else carries a summary only.
type ItemType string

const (
	ItemInformation ItemType = "informacion"
	ItemVote        ItemType = "votacion"
	ItemStrategic   ItemType = "estrategica"
	ItemOther       ItemType = "otro"
)

// Votable reports whether resolutions for this item type carry vote tallies.
func (t ItemType) Votable() bool {
	return t == ItemVote || t == ItemStrategic
}

// Valid reports whether the item type is one of the known classifications.
func (t ItemType) Valid() bool {
	switch t {
	case ItemInformation, ItemVote, ItemStrategic, ItemOther:
		return true
	}
	return false
}

// Invitee is an ad hoc attendee convoked to a single session.
type Invitee struct {
	Name    string
	Email   string
	Present bool
}

// AgendaItem is one discrete topic scheduled within a session. Slice position
// is the authoritative presentation order; Order is derived from it (1-based)
// and never edited independently.
type AgendaItem struct {
	ID        string
	Title     string
	Order     int
	Presenter string
	Type      ItemType
	Duration  int
	LinkURL   string
	LinkLabel string
}

// Member is read-only board membership reference data.
type Member struct {
	ID       string
	Name     string
	LastName string
	Email    string
}

// Session represents a persisted governance session with its convocation.
type Session struct {
	ID        string
	Type      SessionType
	Date      string
	Time      string
	Modality  Modality
	Platform  string
	Location  string
	BoardID   string
	LeaderID  string
	State     SessionState
	Invitees  []Invitee
	Agenda    []AgendaItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StartsAt combines the session date and time fields into a timestamp. The
// zero time is returned when either field is missing or malformed.
func (s Session) StartsAt() time.Time {
	if s.Date == "" || s.Time == "" {
		return time.Time{}
	}
	ts, err := time.Parse("2006-01-02 15:04", s.Date+" "+s.Time)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// SessionInput captures caller provided session fields.
type SessionInput struct {
	Type     SessionType
	Date     string
	Time     string
	Modality Modality
	Platform string
	Location string
	BoardID  string
	LeaderID string
	Invitees []Invitee
	Agenda   []AgendaItem
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// AttendanceParams records which invitees were present at a session.
type AttendanceParams struct {
	Principal Principal
	SessionID string
	Present   []string
}

// AttendanceResult reports the quorum outcome after registering attendance.
type AttendanceResult struct {
	Invited   int
	Present   int
	HasQuorum bool
}

// ResolutionInput carries caller provided resolution fields. Vote fields are
// strings on purpose: non-numeric input is coerced to zero at save time.
type ResolutionInput struct {
	AgendaItemID string
	Summary      string
	VotesFor     string
	VotesAgainst string
	Abstentions  string
	Responsible  string
}

// Resolution is the recorded outcome for one agenda item.
type Resolution struct {
	AgendaItemID string
	Summary      string
	VotesFor     int
	VotesAgainst int
	Abstentions  int
	Responsible  string
}

// AbsenceJustification records why an invitee missed the session.
type AbsenceJustification struct {
	Informer string
	Absentee string
	Reason   string
}

// Minutes is the acta drafted for a session.
type Minutes struct {
	ID             string
	SessionID      string
	Content        string
	Resolutions    []Resolution
	Justifications []AbsenceJustification
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SaveMinutesParams wraps the data required to persist an acta.
type SaveMinutesParams struct {
	Principal      Principal
	SessionID      string
	Content        string
	Resolutions    []ResolutionInput
	Justifications []AbsenceJustification
}

// Notification is one mailbox entry owned by a user.
type Notification struct {
	ID        string
	UserID    string
	Subject   string
	Content   string
	Read      bool
	CreatedAt time.Time
}

// User represents an account able to sign in to the console.
type User struct {
	ID        string
	Email     string
	Name      string
	LastName  string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
	Disabled     bool
}

// AuthSession represents an authenticated session issued to a user.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// ResetToken is a single-use credential for recovering account access.
type ResetToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User    User
	Session AuthSession
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Email    string
	Name     string
	LastName string
	Password string
}

// ChangePasswordParams captures a password change for the acting principal.
type ChangePasswordParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string
}

// ResetPasswordParams consumes a reset token to set a new password.
type ResetPasswordParams struct {
	Token       string
	NewPassword string
}

// UpdateProfileParams captures profile field updates for the acting principal.
type UpdateProfileParams struct {
	Principal Principal
	Name      string
	LastName  string
	Email     string
}
