// Package history persists finished round outcomes in SQLite, off the
// critical path of round resolution.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JJ-Intelligence/RPS-Arena-Backend/pkg/room"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS round_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	round INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_round_results_outcome
	ON round_results (outcome, created_at);
`

// Store persists round results in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the SQLite store at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
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

// SaveRoundResults inserts one row per participant outcome.
func (s *Store) SaveRoundResults(ctx context.Context, results []room.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, result := range results {
		createdAt := result.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO round_results (room_id, participant_id, outcome, round, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			result.RoomID, result.ParticipantID, result.Outcome, result.Round, createdAt.UTC().UnixMilli())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert round result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit round results: %w", err)
	}
	return nil
}

// RecentWinners returns the most recent winning results, newest first.
func (s *Store) RecentWinners(ctx context.Context, limit int) ([]room.Result, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT room_id, participant_id, outcome, round, created_at
		 FROM round_results
		 WHERE outcome = 'win'
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent winners: %w", err)
	}
	defer rows.Close()

	var results []room.Result
	for rows.Next() {
		var result room.Result
		var createdAt int64
		if err := rows.Scan(&result.RoomID, &result.ParticipantID, &result.Outcome, &result.Round, &createdAt); err != nil {
			return nil, fmt.Errorf("scan recent winner: %w", err)
		}
		result.CreatedAt = time.UnixMilli(createdAt).UTC()
		results = append(results, result)
	}
	return results, rows.Err()
}
