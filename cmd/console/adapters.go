package main

import (
	"context"
	"time"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/notify"
	"github.com/example/governance-console/internal/persistence"
)

// The adapters below bridge the persistence records to the application
// models so neither package imports the other.

type accountRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newAccountRepositoryAdapter(repo persistence.UserRepository) *accountRepositoryAdapter {
	return &accountRepositoryAdapter{repo: repo}
}

func (a *accountRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
		Disabled:     stored.Disabled,
	}, nil
}

func (a *accountRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *accountRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash, false, false)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *accountRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash, current.IsAdmin, current.Disabled)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *accountRepositoryAdapter) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	return a.repo.UpdatePasswordHash(ctx, userID, passwordHash, updatedAt)
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		LastName:  user.LastName,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string, isAdmin, disabled bool) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		LastName:     user.LastName,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		Disabled:     disabled,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

type authSessionRepositoryAdapter struct {
	repo persistence.AuthSessionRepository
}

func newAuthSessionRepositoryAdapter(repo persistence.AuthSessionRepository) *authSessionRepositoryAdapter {
	return &authSessionRepositoryAdapter{repo: repo}
}

func (a *authSessionRepositoryAdapter) CreateAuthSession(ctx context.Context, session application.AuthSession) (application.AuthSession, error) {
	stored, err := a.repo.CreateAuthSession(ctx, toPersistenceAuthSession(session))
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *authSessionRepositoryAdapter) GetAuthSession(ctx context.Context, token string) (application.AuthSession, error) {
	stored, err := a.repo.GetAuthSession(ctx, token)
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *authSessionRepositoryAdapter) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (application.AuthSession, error) {
	stored, err := a.repo.RevokeAuthSession(ctx, token, revokedAt)
	if err != nil {
		return application.AuthSession{}, err
	}
	return toApplicationAuthSession(stored), nil
}

func (a *authSessionRepositoryAdapter) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredAuthSessions(ctx, reference)
}

func toApplicationAuthSession(session persistence.AuthSession) application.AuthSession {
	return application.AuthSession{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: session.RevokedAt,
	}
}

func toPersistenceAuthSession(session application.AuthSession) persistence.AuthSession {
	return persistence.AuthSession{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: session.RevokedAt,
	}
}

type resetTokenRepositoryAdapter struct {
	repo persistence.ResetTokenRepository
}

func newResetTokenRepositoryAdapter(repo persistence.ResetTokenRepository) *resetTokenRepositoryAdapter {
	return &resetTokenRepositoryAdapter{repo: repo}
}

func (a *resetTokenRepositoryAdapter) CreateResetToken(ctx context.Context, token application.ResetToken) error {
	return a.repo.CreateResetToken(ctx, persistence.ResetToken{
		Token:     token.Token,
		UserID:    token.UserID,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	})
}

func (a *resetTokenRepositoryAdapter) ConsumeResetToken(ctx context.Context, token string, reference time.Time) (application.ResetToken, error) {
	stored, err := a.repo.ConsumeResetToken(ctx, token, reference)
	if err != nil {
		return application.ResetToken{}, err
	}
	return application.ResetToken{
		Token:     stored.Token,
		UserID:    stored.UserID,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

type memberRepositoryAdapter struct {
	repo persistence.MemberRepository
}

func newMemberRepositoryAdapter(repo persistence.MemberRepository) *memberRepositoryAdapter {
	return &memberRepositoryAdapter{repo: repo}
}

func (a *memberRepositoryAdapter) ListMembers(ctx context.Context) ([]application.Member, error) {
	models, err := a.repo.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	members := make([]application.Member, 0, len(models))
	for _, model := range models {
		members = append(members, toApplicationMember(model))
	}
	return members, nil
}

func (a *memberRepositoryAdapter) GetMember(ctx context.Context, id string) (application.Member, error) {
	stored, err := a.repo.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, err
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) UpsertMember(ctx context.Context, member application.Member) error {
	return a.repo.UpsertMember(ctx, persistence.Member{
		ID:       member.ID,
		Name:     member.Name,
		LastName: member.LastName,
		Email:    member.Email,
	})
}

func toApplicationMember(member persistence.Member) application.Member {
	return application.Member{
		ID:       member.ID,
		Name:     member.Name,
		LastName: member.LastName,
		Email:    member.Email,
	}
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context) ([]application.Session, error) {
	models, err := a.repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions, nil
}

func (a *sessionRepositoryAdapter) UpdateSessionState(ctx context.Context, id string, state application.SessionState, updatedAt time.Time) error {
	return a.repo.UpdateSessionState(ctx, id, string(state), updatedAt)
}

func (a *sessionRepositoryAdapter) UpdateAttendance(ctx context.Context, id string, presentEmails []string, updatedAt time.Time) error {
	return a.repo.UpdateAttendance(ctx, id, presentEmails, updatedAt)
}

func (a *sessionRepositoryAdapter) GetAgendaItem(ctx context.Context, itemID string) (application.AgendaItem, error) {
	stored, err := a.repo.GetAgendaItem(ctx, itemID)
	if err != nil {
		return application.AgendaItem{}, err
	}
	return toApplicationAgendaItem(stored), nil
}

func toPersistenceSession(session application.Session) persistence.Session {
	stored := persistence.Session{
		ID:        session.ID,
		Type:      string(session.Type),
		Date:      session.Date,
		Time:      session.Time,
		Modality:  string(session.Modality),
		Platform:  session.Platform,
		Location:  session.Location,
		BoardID:   session.BoardID,
		LeaderID:  session.LeaderID,
		State:     string(session.State),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	for _, invitee := range session.Invitees {
		stored.Invitees = append(stored.Invitees, persistence.Invitee{
			SessionID: session.ID,
			Name:      invitee.Name,
			Email:     invitee.Email,
			Present:   invitee.Present,
		})
	}
	for _, item := range session.Agenda {
		stored.Agenda = append(stored.Agenda, persistence.AgendaItem{
			ID:        item.ID,
			SessionID: session.ID,
			Position:  item.Order,
			Title:     item.Title,
			Presenter: item.Presenter,
			Type:      string(item.Type),
			Duration:  item.Duration,
			LinkURL:   item.LinkURL,
			LinkLabel: item.LinkLabel,
		})
	}
	return stored
}

func toApplicationSession(session persistence.Session) application.Session {
	out := application.Session{
		ID:        session.ID,
		Type:      application.SessionType(session.Type),
		Date:      session.Date,
		Time:      session.Time,
		Modality:  application.Modality(session.Modality),
		Platform:  session.Platform,
		Location:  session.Location,
		BoardID:   session.BoardID,
		LeaderID:  session.LeaderID,
		State:     application.SessionState(session.State),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	for _, invitee := range session.Invitees {
		out.Invitees = append(out.Invitees, application.Invitee{
			Name:    invitee.Name,
			Email:   invitee.Email,
			Present: invitee.Present,
		})
	}
	for _, item := range session.Agenda {
		out.Agenda = append(out.Agenda, toApplicationAgendaItem(item))
	}
	return out
}

func toApplicationAgendaItem(item persistence.AgendaItem) application.AgendaItem {
	return application.AgendaItem{
		ID:        item.ID,
		Title:     item.Title,
		Order:     item.Position,
		Presenter: item.Presenter,
		Type:      application.ItemType(item.Type),
		Duration:  item.Duration,
		LinkURL:   item.LinkURL,
		LinkLabel: item.LinkLabel,
	}
}

// minutesRepositoryAdapter assigns child row identities on write: the
// application layer treats resolutions and justifications as value objects.
type minutesRepositoryAdapter struct {
	repo        persistence.ActaRepository
	idGenerator func() string
}

func newMinutesRepositoryAdapter(repo persistence.ActaRepository, idGenerator func() string) *minutesRepositoryAdapter {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &minutesRepositoryAdapter{repo: repo, idGenerator: idGenerator}
}

func (a *minutesRepositoryAdapter) SaveMinutes(ctx context.Context, minutes application.Minutes) (application.Minutes, error) {
	acta := persistence.Acta{
		ID:        minutes.ID,
		SessionID: minutes.SessionID,
		Content:   minutes.Content,
		CreatedBy: minutes.CreatedBy,
		CreatedAt: minutes.CreatedAt,
		UpdatedAt: minutes.UpdatedAt,
	}
	for _, resolution := range minutes.Resolutions {
		acta.Resolutions = append(acta.Resolutions, persistence.Resolution{
			ID:           a.idGenerator(),
			ActaID:       acta.ID,
			AgendaItemID: resolution.AgendaItemID,
			Summary:      resolution.Summary,
			VotesFor:     resolution.VotesFor,
			VotesAgainst: resolution.VotesAgainst,
			Abstentions:  resolution.Abstentions,
			Responsible:  resolution.Responsible,
		})
	}
	for _, justification := range minutes.Justifications {
		acta.Justifications = append(acta.Justifications, persistence.Justification{
			ID:       a.idGenerator(),
			ActaID:   acta.ID,
			Informer: justification.Informer,
			Absentee: justification.Absentee,
			Reason:   justification.Reason,
		})
	}

	stored, err := a.repo.SaveActa(ctx, acta)
	if err != nil {
		return application.Minutes{}, err
	}
	return toApplicationMinutes(stored), nil
}

func (a *minutesRepositoryAdapter) GetMinutes(ctx context.Context, sessionID string) (application.Minutes, error) {
	stored, err := a.repo.GetActaBySession(ctx, sessionID)
	if err != nil {
		return application.Minutes{}, err
	}
	return toApplicationMinutes(stored), nil
}

func toApplicationMinutes(acta persistence.Acta) application.Minutes {
	minutes := application.Minutes{
		ID:        acta.ID,
		SessionID: acta.SessionID,
		Content:   acta.Content,
		CreatedBy: acta.CreatedBy,
		CreatedAt: acta.CreatedAt,
		UpdatedAt: acta.UpdatedAt,
	}
	for _, resolution := range acta.Resolutions {
		minutes.Resolutions = append(minutes.Resolutions, application.Resolution{
			AgendaItemID: resolution.AgendaItemID,
			Summary:      resolution.Summary,
			VotesFor:     resolution.VotesFor,
			VotesAgainst: resolution.VotesAgainst,
			Abstentions:  resolution.Abstentions,
			Responsible:  resolution.Responsible,
		})
	}
	for _, justification := range acta.Justifications {
		minutes.Justifications = append(minutes.Justifications, application.AbsenceJustification{
			Informer: justification.Informer,
			Absentee: justification.Absentee,
			Reason:   justification.Reason,
		})
	}
	return minutes
}

type mailboxRepositoryAdapter struct {
	repo persistence.MailboxRepository
}

func newMailboxRepositoryAdapter(repo persistence.MailboxRepository) *mailboxRepositoryAdapter {
	return &mailboxRepositoryAdapter{repo: repo}
}

func (a *mailboxRepositoryAdapter) CreateNotification(ctx context.Context, notification application.Notification) (application.Notification, error) {
	stored, err := a.repo.CreateNotification(ctx, persistence.Notification{
		ID:        notification.ID,
		UserID:    notification.UserID,
		Subject:   notification.Subject,
		Content:   notification.Content,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	})
	if err != nil {
		return application.Notification{}, err
	}
	return toApplicationNotification(stored), nil
}

func (a *mailboxRepositoryAdapter) ListNotifications(ctx context.Context, userID string) ([]application.Notification, error) {
	models, err := a.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	notifications := make([]application.Notification, 0, len(models))
	for _, model := range models {
		notifications = append(notifications, toApplicationNotification(model))
	}
	return notifications, nil
}

func (a *mailboxRepositoryAdapter) MarkNotificationRead(ctx context.Context, id, userID string) error {
	return a.repo.MarkNotificationRead(ctx, id, userID)
}

func (a *mailboxRepositoryAdapter) DeleteNotification(ctx context.Context, id, userID string) error {
	return a.repo.DeleteNotification(ctx, id, userID)
}

func toApplicationNotification(notification persistence.Notification) application.Notification {
	return application.Notification{
		ID:        notification.ID,
		UserID:    notification.UserID,
		Subject:   notification.Subject,
		Content:   notification.Content,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

// hubPusherAdapter mirrors persisted notifications onto the websocket hub.
type hubPusherAdapter struct {
	hub *notify.Hub
}

func newHubPusherAdapter(hub *notify.Hub) *hubPusherAdapter {
	return &hubPusherAdapter{hub: hub}
}

func (a *hubPusherAdapter) Push(userID string, notification application.Notification) {
	if a == nil || a.hub == nil {
		return
	}
	a.hub.Publish(userID, notify.Event{
		ID:      notification.ID,
		Subject: notification.Subject,
		Content: notification.Content,
		Read:    notification.Read,
	})
}
