package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite. A
// session row owns its invitados and agenda_items children; writes touching
// children run inside one transaction.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession stores a session together with its invitees and agenda.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.Type == "" || session.State == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, `
			INSERT INTO sesiones (id, tipo, fecha, hora, modalidad, plataforma, lugar, junta_id, lider_id, estado, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			session.ID,
			session.Type,
			session.Date,
			session.Time,
			session.Modality,
			session.Platform,
			session.Location,
			session.BoardID,
			session.LeaderID,
			session.State,
			session.CreatedAt.UTC().Format(time.RFC3339),
			session.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return r.mapSessionError(err)
		}

		for _, invitee := range session.Invitees {
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO invitados (sesion_id, nombre, correo, presente)
				VALUES (?, ?, ?, ?)
			`,
				session.ID,
				invitee.Name,
				strings.ToLower(strings.TrimSpace(invitee.Email)),
				boolToInt(invitee.Present),
			)
			if err != nil {
				return r.mapSessionError(err)
			}
		}

		for _, item := range session.Agenda {
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO agenda_items (id, sesion_id, posicion, titulo, expositor, tipo, duracion, enlace_url, enlace_etiqueta)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				item.ID,
				session.ID,
				item.Position,
				item.Title,
				item.Presenter,
				item.Type,
				item.Duration,
				item.LinkURL,
				item.LinkLabel,
			)
			if err != nil {
				return r.mapSessionError(err)
			}
		}

		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}

	return r.GetSession(ctx, session.ID)
}

// GetSession retrieves one session with its invitees and agenda.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var session persistence.Session
	var createdAtStr, updatedAtStr string

	err := r.helper.QueryRow(ctx, `
		SELECT id, tipo, fecha, hora, modalidad, plataforma, lugar, junta_id, lider_id, estado, created_at, updated_at
		FROM sesiones
		WHERE id = ?
	`, id).Scan(
		&session.ID,
		&session.Type,
		&session.Date,
		&session.Time,
		&session.Modality,
		&session.Platform,
		&session.Location,
		&session.BoardID,
		&session.LeaderID,
		&session.State,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if session.Invitees, err = r.listInvitees(ctx, session.ID); err != nil {
		return persistence.Session{}, err
	}
	if session.Agenda, err = r.listAgenda(ctx, session.ID); err != nil {
		return persistence.Session{}, err
	}

	return session, nil
}

// ListSessions returns every session with its children.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]persistence.Session, error) {
	rows, err := r.helper.Query(ctx, `SELECT id FROM sesiones ORDER BY fecha DESC, hora DESC, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	sessions := make([]persistence.Session, 0, len(ids))
	for _, id := range ids {
		session, err := r.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// UpdateSessionState transitions the session lifecycle state.
func (r *SessionRepository) UpdateSessionState(ctx context.Context, id, state string, updatedAt time.Time) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(state) == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx,
		`UPDATE sesiones SET estado = ?, updated_at = ? WHERE id = ?`,
		state,
		updatedAt.UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return r.mapSessionError(err)
	}
	return rowsAffectedOrNotFound(result)
}

// UpdateAttendance flags the listed invitee emails as present and everyone
// else as absent.
func (r *SessionRepository) UpdateAttendance(ctx context.Context, id string, presentEmails []string, updatedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return persistence.ErrConstraintViolation
	}

	present := make(map[string]struct{}, len(presentEmails))
	for _, email := range presentEmails {
		present[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx,
			`UPDATE sesiones SET updated_at = ? WHERE id = ?`,
			updatedAt.UTC().Format(time.RFC3339), id,
		)
		if err != nil {
			return r.mapSessionError(err)
		}
		if err := rowsAffectedOrNotFound(result); err != nil {
			return err
		}

		if _, err := r.helper.ExecTx(tx,
			`UPDATE invitados SET presente = 0 WHERE sesion_id = ?`, id,
		); err != nil {
			return r.mapSessionError(err)
		}

		for email := range present {
			if email == "" {
				continue
			}
			if _, err := r.helper.ExecTx(tx,
				`UPDATE invitados SET presente = 1 WHERE sesion_id = ? AND correo = ?`,
				id, email,
			); err != nil {
				return r.mapSessionError(err)
			}
		}
		return nil
	})
}

// GetAgendaItem retrieves one agenda entry by its identity.
func (r *SessionRepository) GetAgendaItem(ctx context.Context, itemID string) (persistence.AgendaItem, error) {
	if strings.TrimSpace(itemID) == "" {
		return persistence.AgendaItem{}, persistence.ErrNotFound
	}

	var item persistence.AgendaItem
	err := r.helper.QueryRow(ctx, `
		SELECT id, sesion_id, posicion, titulo, expositor, tipo, duracion, enlace_url, enlace_etiqueta
		FROM agenda_items
		WHERE id = ?
	`, itemID).Scan(
		&item.ID,
		&item.SessionID,
		&item.Position,
		&item.Title,
		&item.Presenter,
		&item.Type,
		&item.Duration,
		&item.LinkURL,
		&item.LinkLabel,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.AgendaItem{}, persistence.ErrNotFound
		}
		return persistence.AgendaItem{}, r.mapper.MapError(err)
	}
	return item, nil
}

func (r *SessionRepository) listInvitees(ctx context.Context, sessionID string) ([]persistence.Invitee, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT sesion_id, nombre, correo, presente FROM invitados WHERE sesion_id = ? ORDER BY rowid`,
		sessionID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var invitees []persistence.Invitee
	for rows.Next() {
		var invitee persistence.Invitee
		var presente int
		if err := rows.Scan(&invitee.SessionID, &invitee.Name, &invitee.Email, &presente); err != nil {
			return nil, r.mapper.MapError(err)
		}
		invitee.Present = presente != 0
		invitees = append(invitees, invitee)
	}
	return invitees, rows.Err()
}

func (r *SessionRepository) listAgenda(ctx context.Context, sessionID string) ([]persistence.AgendaItem, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, sesion_id, posicion, titulo, expositor, tipo, duracion, enlace_url, enlace_etiqueta
		FROM agenda_items
		WHERE sesion_id = ?
		ORDER BY posicion
	`, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var items []persistence.AgendaItem
	for rows.Next() {
		var item persistence.AgendaItem
		if err := rows.Scan(
			&item.ID,
			&item.SessionID,
			&item.Position,
			&item.Title,
			&item.Presenter,
			&item.Type,
			&item.Duration,
			&item.LinkURL,
			&item.LinkLabel,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SessionRepository) mapSessionError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}
	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}
	return r.mapper.MapError(err)
}
