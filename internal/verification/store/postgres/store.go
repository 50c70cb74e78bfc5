// Package postgres provides a PostgreSQL-backed verification store for
// deployments that already run Postgres and prefer it over the bundled
// SQLite file.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"warden/internal/verification/models"
	"warden/pkg/requestcontext"
)

const schema = `
CREATE TABLE IF NOT EXISTS verified_subjects (
	subject_id TEXT NOT NULL,
	realm_id   TEXT NOT NULL,
	verified_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (subject_id, realm_id)
);

CREATE TABLE IF NOT EXISTS pending_affordances (
	id          TEXT PRIMARY KEY,
	message_ref TEXT NOT NULL,
	channel_ref TEXT NOT NULL,
	realm_id    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
`

// Store persists verification state in PostgreSQL. This store is pure I/O;
// retry policy and state transitions belong in the service.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with the given DSN and applies the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing handle; used by integration tests.
func NewFromDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) MarkVerified(ctx context.Context, subjectID, realmID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verified_subjects (subject_id, realm_id, verified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id, realm_id) DO NOTHING
	`, subjectID, realmID, requestcontext.Now(ctx).UTC())
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *Store) IsVerified(ctx context.Context, subjectID, realmID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM verified_subjects WHERE subject_id = $1 AND realm_id = $2
	`, subjectID, realmID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is verified: %w", err)
	}
	return true, nil
}

func (s *Store) SaveAffordance(ctx context.Context, affordance models.PendingAffordance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_affordances (id, message_ref, channel_ref, realm_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			message_ref = EXCLUDED.message_ref,
			channel_ref = EXCLUDED.channel_ref,
			realm_id = EXCLUDED.realm_id
	`, affordance.ID, affordance.MessageRef, affordance.ChannelRef, affordance.RealmID,
		affordance.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save affordance: %w", err)
	}
	return nil
}

func (s *Store) DeleteAffordance(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_affordances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete affordance: %w", err)
	}
	return nil
}

func (s *Store) ListAffordances(ctx context.Context) ([]models.PendingAffordance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_ref, channel_ref, realm_id, created_at
		FROM pending_affordances
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list affordances: %w", err)
	}
	defer rows.Close()

	var out []models.PendingAffordance
	for rows.Next() {
		var a models.PendingAffordance
		if err := rows.Scan(&a.ID, &a.MessageRef, &a.ChannelRef, &a.RealmID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan affordance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affordances: %w", err)
	}
	return out, nil
}
