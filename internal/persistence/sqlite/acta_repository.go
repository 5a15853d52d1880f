package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

// ActaRepository implements persistence.ActaRepository using SQLite. Saving an
// acta replaces its resolutions and justifications wholesale inside one
// transaction so readers never see a half-written draft.
type ActaRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewActaRepository creates a new SQLite acta repository.
func NewActaRepository(pool *ConnectionPool) *ActaRepository {
	return &ActaRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// SaveActa inserts or replaces the acta for a session.
func (r *ActaRepository) SaveActa(ctx context.Context, acta persistence.Acta) (persistence.Acta, error) {
	if acta.ID == "" || strings.TrimSpace(acta.SessionID) == "" {
		return persistence.Acta{}, persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// One acta per session: reuse the existing row identity when present
		// so child rows keep a stable parent.
		var existingID string
		var createdAtStr string
		err := r.helper.QueryRowTx(tx,
			`SELECT id, created_at FROM actas WHERE sesion_id = ?`, acta.SessionID,
		).Scan(&existingID, &createdAtStr)
		switch {
		case err == sql.ErrNoRows:
			_, err = r.helper.ExecTx(tx, `
				INSERT INTO actas (id, sesion_id, contenido, created_by, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
				acta.ID,
				acta.SessionID,
				acta.Content,
				acta.CreatedBy,
				acta.CreatedAt.UTC().Format(time.RFC3339),
				acta.UpdatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapActaError(err)
			}
		case err != nil:
			return r.mapper.MapError(err)
		default:
			acta.ID = existingID
			if acta.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
				return fmt.Errorf("failed to parse created_at: %w", err)
			}
			_, err = r.helper.ExecTx(tx,
				`UPDATE actas SET contenido = ?, updated_at = ? WHERE id = ?`,
				acta.Content,
				acta.UpdatedAt.UTC().Format(time.RFC3339),
				acta.ID,
			)
			if err != nil {
				return r.mapActaError(err)
			}
			if _, err := r.helper.ExecTx(tx, `DELETE FROM resoluciones WHERE acta_id = ?`, acta.ID); err != nil {
				return r.mapActaError(err)
			}
			if _, err := r.helper.ExecTx(tx, `DELETE FROM justificaciones WHERE acta_id = ?`, acta.ID); err != nil {
				return r.mapActaError(err)
			}
		}

		for _, res := range acta.Resolutions {
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO resoluciones (id, acta_id, agenda_item_id, resumen, votos_favor, votos_contra, abstenciones, responsable)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				res.ID,
				acta.ID,
				res.AgendaItemID,
				res.Summary,
				res.VotesFor,
				res.VotesAgainst,
				res.Abstentions,
				res.Responsible,
			)
			if err != nil {
				return r.mapActaError(err)
			}
		}

		for _, just := range acta.Justifications {
			_, err := r.helper.ExecTx(tx, `
				INSERT INTO justificaciones (id, acta_id, informante, ausente, motivo)
				VALUES (?, ?, ?, ?, ?)
			`,
				just.ID,
				acta.ID,
				just.Informer,
				just.Absentee,
				just.Reason,
			)
			if err != nil {
				return r.mapActaError(err)
			}
		}

		return nil
	})
	if err != nil {
		return persistence.Acta{}, err
	}

	return r.GetActaBySession(ctx, acta.SessionID)
}

// GetActaBySession retrieves the acta recorded for a session.
func (r *ActaRepository) GetActaBySession(ctx context.Context, sessionID string) (persistence.Acta, error) {
	if strings.TrimSpace(sessionID) == "" {
		return persistence.Acta{}, persistence.ErrNotFound
	}

	var acta persistence.Acta
	var createdAtStr, updatedAtStr string

	err := r.helper.QueryRow(ctx, `
		SELECT id, sesion_id, contenido, created_by, created_at, updated_at
		FROM actas
		WHERE sesion_id = ?
	`, sessionID).Scan(
		&acta.ID,
		&acta.SessionID,
		&acta.Content,
		&acta.CreatedBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Acta{}, persistence.ErrNotFound
		}
		return persistence.Acta{}, r.mapper.MapError(err)
	}

	if acta.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Acta{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if acta.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Acta{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if acta.Resolutions, err = r.listResolutions(ctx, acta.ID); err != nil {
		return persistence.Acta{}, err
	}
	if acta.Justifications, err = r.listJustifications(ctx, acta.ID); err != nil {
		return persistence.Acta{}, err
	}

	return acta, nil
}

func (r *ActaRepository) listResolutions(ctx context.Context, actaID string) ([]persistence.Resolution, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT r.id, r.acta_id, r.agenda_item_id, r.resumen, r.votos_favor, r.votos_contra, r.abstenciones, r.responsable
		FROM resoluciones r
		JOIN agenda_items a ON a.id = r.agenda_item_id
		WHERE r.acta_id = ?
		ORDER BY a.posicion
	`, actaID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var resolutions []persistence.Resolution
	for rows.Next() {
		var res persistence.Resolution
		if err := rows.Scan(
			&res.ID,
			&res.ActaID,
			&res.AgendaItemID,
			&res.Summary,
			&res.VotesFor,
			&res.VotesAgainst,
			&res.Abstentions,
			&res.Responsible,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}

func (r *ActaRepository) listJustifications(ctx context.Context, actaID string) ([]persistence.Justification, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, acta_id, informante, ausente, motivo FROM justificaciones WHERE acta_id = ? ORDER BY rowid`,
		actaID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var justifications []persistence.Justification
	for rows.Next() {
		var just persistence.Justification
		if err := rows.Scan(&just.ID, &just.ActaID, &just.Informer, &just.Absentee, &just.Reason); err != nil {
			return nil, r.mapper.MapError(err)
		}
		justifications = append(justifications, just)
	}
	return justifications, rows.Err()
}

func (r *ActaRepository) mapActaError(err error) error {
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
	return r.mapper.MapError(err)
}
