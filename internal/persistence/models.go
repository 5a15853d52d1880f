package persistence

import "time"

// User is a stored console account including authentication attributes.
type User struct {
	ID           string
	Email        string
	Name         string
	LastName     string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthSession is a stored bearer session issued at login.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResetToken is a stored single-use password recovery token.
type ResetToken struct {
	Token      string
	UserID     string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Member is a stored board member.
type Member struct {
	ID       string
	Name     string
	LastName string
	Email    string
}

// Invitee is a stored convoked attendee for one session.
type Invitee struct {
	SessionID string
	Name      string
	Email     string
	Present   bool
}

// AgendaItem is a stored agenda entry. Position is 1-based and mirrors the
// order the items were submitted in.
type AgendaItem struct {
	ID        string
	SessionID string
	Position  int
	Title     string
	Presenter string
	Type      string
	Duration  int
	LinkURL   string
	LinkLabel string
}

// Session is a stored governance session with its convocation.
type Session struct {
	ID        string
	Type      string
	Date      string
	Time      string
	Modality  string
	Platform  string
	Location  string
	BoardID   string
	LeaderID  string
	State     string
	Invitees  []Invitee
	Agenda    []AgendaItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resolution is a stored agenda item outcome belonging to one acta.
type Resolution struct {
	ID           string
	ActaID       string
	AgendaItemID string
	Summary      string
	VotesFor     int
	VotesAgainst int
	Abstentions  int
	Responsible  string
}

// Justification is a stored absence record belonging to one acta.
type Justification struct {
	ID       string
	ActaID   string
	Informer string
	Absentee string
	Reason   string
}

// Acta is the stored minutes document for one session.
type Acta struct {
	ID             string
	SessionID      string
	Content        string
	CreatedBy      string
	Resolutions    []Resolution
	Justifications []Justification
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Notification is a stored mailbox entry owned by a user.
type Notification struct {
	ID        string
	UserID    string
	Subject   string
	Content   string
	Read      bool
	CreatedAt time.Time
}
