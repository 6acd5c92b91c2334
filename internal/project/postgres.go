package project

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct{ db *sql.DB }

// NewPostgresStore creates a Postgres-backed project store.
func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureSchema creates the projects table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dashboard_projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			url        TEXT NOT NULL,
			category   TEXT NOT NULL,
			color      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure projects schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, category, color
		FROM dashboard_projects
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.Category, &p.Color); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, category, color
		FROM dashboard_projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.URL, &p.Category, &p.Color)
	if err == sql.ErrNoRows {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dashboard_projects (id, name, url, category, color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			category = EXCLUDED.category,
			color = EXCLUDED.color,
			updated_at = NOW()
	`, p.ID, p.Name, p.URL, p.Category, p.Color)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dashboard_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, ps []Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace projects: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dashboard_projects`); err != nil {
		return fmt.Errorf("replace projects: clear: %w", err)
	}
	for _, p := range ps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dashboard_projects (id, name, url, category, color)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, p.Name, p.URL, p.Category, p.Color); err != nil {
			return fmt.Errorf("replace projects: insert %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}
