package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

// ResetTokenRepository implements persistence.ResetTokenRepository using SQLite.
type ResetTokenRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewResetTokenRepository creates a new SQLite reset token repository.
func NewResetTokenRepository(pool *ConnectionPool) *ResetTokenRepository {
	return &ResetTokenRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateResetToken stores a new recovery token.
func (r *ResetTokenRepository) CreateResetToken(ctx context.Context, token persistence.ResetToken) error {
	if strings.TrimSpace(token.Token) == "" || token.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO reset_tokens (token, user_id, expires_at, consumed_at, created_at)
		 VALUES (?, ?, ?, NULL, ?)`,
		strings.TrimSpace(token.Token),
		token.UserID,
		token.ExpiresAt.UTC().Format(time.RFC3339),
		token.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
			return persistence.ErrDuplicate
		}
		if containsAny(err.Error(), []string{"FOREIGN KEY constraint failed"}) {
			return persistence.ErrForeignKeyViolation
		}
		return r.mapper.MapError(err)
	}
	return nil
}

// ConsumeResetToken atomically redeems an unconsumed, unexpired token. A
// missing, already consumed, or expired token yields ErrNotFound.
func (r *ResetTokenRepository) ConsumeResetToken(ctx context.Context, token string, reference time.Time) (persistence.ResetToken, error) {
	normalized := strings.TrimSpace(token)
	if normalized == "" {
		return persistence.ResetToken{}, persistence.ErrNotFound
	}

	var out persistence.ResetToken
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var expiresAtStr, createdAtStr string
		var consumedAt sql.NullString

		err := r.helper.QueryRowTx(tx,
			`SELECT token, user_id, expires_at, consumed_at, created_at
			 FROM reset_tokens WHERE token = ?`,
			normalized,
		).Scan(&out.Token, &out.UserID, &expiresAtStr, &consumedAt, &createdAtStr)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		if out.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
			return fmt.Errorf("failed to parse expires_at: %w", err)
		}
		if out.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return fmt.Errorf("failed to parse created_at: %w", err)
		}
		if consumedAt.Valid {
			return persistence.ErrNotFound
		}
		if !out.ExpiresAt.After(reference.UTC()) {
			return persistence.ErrNotFound
		}

		stamp := reference.UTC().Format(time.RFC3339)
		result, err := r.helper.ExecTx(tx,
			`UPDATE reset_tokens SET consumed_at = ? WHERE token = ? AND consumed_at IS NULL`,
			stamp, normalized,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := rowsAffectedOrNotFound(result); err != nil {
			return err
		}
		consumed := reference.UTC()
		out.ConsumedAt = &consumed
		return nil
	})
	if err != nil {
		return persistence.ResetToken{}, err
	}
	return out, nil
}
