package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// MailboxRepository captures the persistence interactions for the in-app
// notification mailbox.
type MailboxRepository interface {
	CreateNotification(ctx context.Context, notification Notification) (Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	DeleteNotification(ctx context.Context, id, userID string) error
}

// NotificationPusher delivers live updates to connected clients. A nil pusher
// disables push without affecting the mailbox itself.
type NotificationPusher interface {
	Push(userID string, notification Notification)
}

// MailboxService owns each user's notification mailbox and mirrors new
// entries to the live push channel.
type MailboxService struct {
	mailbox     MailboxRepository
	pusher      NotificationPusher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMailboxService wires dependencies for mailbox operations.
func NewMailboxService(mailbox MailboxRepository, pusher NotificationPusher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MailboxService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MailboxService{
		mailbox:     mailbox,
		pusher:      pusher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MailboxService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MailboxService", operation, attrs...)
}

// Deliver stores a notification in the user's mailbox and pushes it to any
// live connection. Push failures are invisible here: the mailbox row is the
// durable record.
func (s *MailboxService) Deliver(ctx context.Context, userID, subject, content string) (Notification, error) {
	if s == nil {
		return Notification{}, fmt.Errorf("MailboxService is nil")
	}
	if s.mailbox == nil {
		return Notification{}, fmt.Errorf("mailbox repository not configured")
	}

	logger := s.loggerWith(ctx, "Deliver", "user_id", userID)

	if strings.TrimSpace(userID) == "" {
		vErr := &ValidationError{}
		vErr.add("usuario", "user id is required")
		return Notification{}, vErr
	}
	if strings.TrimSpace(subject) == "" {
		vErr := &ValidationError{}
		vErr.add("asunto", "subject is required")
		return Notification{}, vErr
	}

	notification := Notification{
		ID:        s.idGenerator(),
		UserID:    userID,
		Subject:   strings.TrimSpace(subject),
		Content:   content,
		CreatedAt: s.now(),
	}

	persisted, err := s.mailbox.CreateNotification(ctx, notification)
	if err != nil {
		logger.ErrorContext(ctx, "notification delivery failed", "error", err, "error_kind", ErrorKind(err))
		return Notification{}, mapSessionRepoError(err)
	}

	if s.pusher != nil {
		s.pusher.Push(userID, persisted)
	}
	logger.With("notification_id", persisted.ID).InfoContext(ctx, "notification delivered")
	return persisted, nil
}

// List returns the user's mailbox, newest first.
func (s *MailboxService) List(ctx context.Context, principal Principal) ([]Notification, error) {
	if s == nil {
		return nil, fmt.Errorf("MailboxService is nil")
	}
	if s.mailbox == nil {
		return nil, fmt.Errorf("mailbox repository not configured")
	}

	notifications, err := s.mailbox.ListNotifications(ctx, principal.UserID)
	if err != nil {
		return nil, mapSessionRepoError(err)
	}

	ordered := make([]Notification, len(notifications))
	copy(ordered, notifications)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID > ordered[j].ID
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	return ordered, nil
}

// MarkRead flags one notification as read. Ownership is enforced by the
// repository: a foreign id yields ErrNotFound.
func (s *MailboxService) MarkRead(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("MailboxService is nil")
	}
	if s.mailbox == nil {
		return fmt.Errorf("mailbox repository not configured")
	}
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return mapSessionRepoError(s.mailbox.MarkNotificationRead(ctx, id, principal.UserID))
}

// Delete removes one notification from the user's mailbox.
func (s *MailboxService) Delete(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("MailboxService is nil")
	}
	if s.mailbox == nil {
		return fmt.Errorf("mailbox repository not configured")
	}
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return mapSessionRepoError(s.mailbox.DeleteNotification(ctx, id, principal.UserID))
}
