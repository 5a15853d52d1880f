package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration pairs a monotonically increasing version with the statements that
// bring the schema to it. Applied versions are recorded in schema_migrations
// so reruns are no-ops.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				last_name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				is_admin INTEGER NOT NULL DEFAULT 0,
				disabled INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS auth_sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				revoked_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS reset_tokens (
				token TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				expires_at TEXT NOT NULL,
				consumed_at TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS members (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				last_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS sesiones (
				id TEXT PRIMARY KEY,
				tipo TEXT NOT NULL,
				fecha TEXT NOT NULL,
				hora TEXT NOT NULL,
				modalidad TEXT NOT NULL,
				plataforma TEXT NOT NULL DEFAULT '',
				lugar TEXT NOT NULL DEFAULT '',
				junta_id TEXT NOT NULL DEFAULT '',
				lider_id TEXT NOT NULL DEFAULT '',
				estado TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS invitados (
				sesion_id TEXT NOT NULL REFERENCES sesiones(id) ON DELETE CASCADE,
				nombre TEXT NOT NULL,
				correo TEXT NOT NULL,
				presente INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (sesion_id, correo)
			)`,
			`CREATE TABLE IF NOT EXISTS agenda_items (
				id TEXT PRIMARY KEY,
				sesion_id TEXT NOT NULL REFERENCES sesiones(id) ON DELETE CASCADE,
				posicion INTEGER NOT NULL,
				titulo TEXT NOT NULL,
				expositor TEXT NOT NULL DEFAULT '',
				tipo TEXT NOT NULL,
				duracion INTEGER NOT NULL DEFAULT 0,
				enlace_url TEXT NOT NULL DEFAULT '',
				enlace_etiqueta TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS actas (
				id TEXT PRIMARY KEY,
				sesion_id TEXT NOT NULL UNIQUE REFERENCES sesiones(id) ON DELETE CASCADE,
				contenido TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS resoluciones (
				id TEXT PRIMARY KEY,
				acta_id TEXT NOT NULL REFERENCES actas(id) ON DELETE CASCADE,
				agenda_item_id TEXT NOT NULL REFERENCES agenda_items(id) ON DELETE CASCADE,
				resumen TEXT NOT NULL DEFAULT '',
				votos_favor INTEGER NOT NULL DEFAULT 0,
				votos_contra INTEGER NOT NULL DEFAULT 0,
				abstenciones INTEGER NOT NULL DEFAULT 0,
				responsable TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS justificaciones (
				id TEXT PRIMARY KEY,
				acta_id TEXT NOT NULL REFERENCES actas(id) ON DELETE CASCADE,
				informante TEXT NOT NULL DEFAULT '',
				ausente TEXT NOT NULL DEFAULT '',
				motivo TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS buzon_notificaciones (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				asunto TEXT NOT NULL,
				contenido TEXT NOT NULL DEFAULT '',
				leido INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_agenda_items_sesion ON agenda_items(sesion_id, posicion)`,
			`CREATE INDEX IF NOT EXISTS idx_buzon_user ON buzon_notificaciones(user_id, created_at)`,
		},
	},
}

// Migrate brings the schema up to the latest version.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if pool == nil {
		return fmt.Errorf("sqlite: connection pool is nil")
	}

	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(ctx, pool, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d failed: %w", m.version, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				m.version,
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func migrationApplied(ctx context.Context, pool *ConnectionPool, version int) (bool, error) {
	var count int
	err := pool.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}
