// Package sqlite provides the default durable verification store backed by a
// single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"warden/internal/verification/models"
	"warden/pkg/requestcontext"
)

const schema = `
CREATE TABLE IF NOT EXISTS verified_subjects (
	subject_id TEXT NOT NULL,
	realm_id   TEXT NOT NULL,
	verified_at INTEGER NOT NULL,
	PRIMARY KEY (subject_id, realm_id)
);

CREATE TABLE IF NOT EXISTS pending_affordances (
	id          TEXT PRIMARY KEY,
	message_ref TEXT NOT NULL,
	channel_ref TEXT NOT NULL,
	realm_id    TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
`

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store persists verification state in SQLite. Writes go through single
// statements, so each record write is atomic.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the SQLite store at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) MarkVerified(ctx context.Context, subjectID, realmID string) error {
	now := requestcontext.Now(ctx).UTC().UnixMilli()
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO verified_subjects (subject_id, realm_id, verified_at)
		VALUES (?, ?, ?)
		ON CONFLICT (subject_id, realm_id) DO NOTHING
	`, subjectID, realmID, now)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *Store) IsVerified(ctx context.Context, subjectID, realmID string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT 1 FROM verified_subjects WHERE subject_id = ? AND realm_id = ?
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
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO pending_affordances (id, message_ref, channel_ref, realm_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			message_ref = excluded.message_ref,
			channel_ref = excluded.channel_ref,
			realm_id = excluded.realm_id
	`, affordance.ID, affordance.MessageRef, affordance.ChannelRef, affordance.RealmID,
		affordance.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save affordance: %w", err)
	}
	return nil
}

func (s *Store) DeleteAffordance(ctx context.Context, id string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pending_affordances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete affordance: %w", err)
	}
	return nil
}

func (s *Store) ListAffordances(ctx context.Context) ([]models.PendingAffordance, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
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
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.MessageRef, &a.ChannelRef, &a.RealmID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan affordance: %w", err)
		}
		a.CreatedAt = fromMillis(createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affordances: %w", err)
	}
	return out, nil
}
