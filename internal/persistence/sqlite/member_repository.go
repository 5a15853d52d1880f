package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/governance-console/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite.
type MemberRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository.
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertMember inserts or replaces one roster entry, used when seeding the
// board directory.
func (r *MemberRepository) UpsertMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" || strings.TrimSpace(member.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO members (id, name, last_name, email) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, last_name = excluded.last_name, email = excluded.email`,
		member.ID,
		member.Name,
		member.LastName,
		strings.ToLower(strings.TrimSpace(member.Email)),
	)
	if err != nil {
		if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
			return persistence.ErrDuplicate
		}
		return r.mapper.MapError(err)
	}
	return nil
}

// GetMember retrieves one roster entry by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	var member persistence.Member
	err := r.helper.QueryRow(ctx,
		`SELECT id, name, last_name, email FROM members WHERE id = ?`, id,
	).Scan(&member.ID, &member.Name, &member.LastName, &member.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Member{}, persistence.ErrNotFound
		}
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// ListMembers returns the full roster ordered by last name.
func (r *MemberRepository) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, name, last_name, email FROM members ORDER BY last_name, name`,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		var member persistence.Member
		if err := rows.Scan(&member.ID, &member.Name, &member.LastName, &member.Email); err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}
