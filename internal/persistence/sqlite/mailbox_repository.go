package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

// MailboxRepository implements persistence.MailboxRepository using SQLite.
type MailboxRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMailboxRepository creates a new SQLite mailbox repository.
func NewMailboxRepository(pool *ConnectionPool) *MailboxRepository {
	return &MailboxRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateNotification stores a new mailbox entry.
func (r *MailboxRepository) CreateNotification(ctx context.Context, notification persistence.Notification) (persistence.Notification, error) {
	if notification.ID == "" || notification.UserID == "" || strings.TrimSpace(notification.Subject) == "" {
		return persistence.Notification{}, persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO buzon_notificaciones (id, user_id, asunto, contenido, leido, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		notification.ID,
		notification.UserID,
		notification.Subject,
		notification.Content,
		boolToInt(notification.Read),
		notification.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
			return persistence.Notification{}, persistence.ErrDuplicate
		}
		if containsAny(err.Error(), []string{"FOREIGN KEY constraint failed"}) {
			return persistence.Notification{}, persistence.ErrForeignKeyViolation
		}
		return persistence.Notification{}, r.mapper.MapError(err)
	}

	return notification, nil
}

// ListNotifications returns a user's mailbox, newest first.
func (r *MailboxRepository) ListNotifications(ctx context.Context, userID string) ([]persistence.Notification, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, user_id, asunto, contenido, leido, created_at
		FROM buzon_notificaciones
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var notifications []persistence.Notification
	for rows.Next() {
		var notification persistence.Notification
		var leido int
		var createdAtStr string
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Subject,
			&notification.Content,
			&leido,
			&createdAtStr,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		notification.Read = leido != 0
		if notification.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags one entry as read. Ownership is part of the
// predicate: a foreign id yields ErrNotFound.
func (r *MailboxRepository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE buzon_notificaciones SET leido = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffectedOrNotFound(result)
}

// DeleteNotification removes one entry from a user's mailbox.
func (r *MailboxRepository) DeleteNotification(ctx context.Context, id, userID string) error {
	result, err := r.helper.Exec(ctx,
		`DELETE FROM buzon_notificaciones WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return rowsAffectedOrNotFound(result)
}
