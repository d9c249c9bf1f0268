// File: internal/store/history.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// History is the local, append-only record of every post attempt, backed by
// an embedded sqlite database in the application data directory.
type History struct {
	db  *sql.DB
	log *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS post_history (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id    TEXT NOT NULL,
    platform      TEXT NOT NULL,
    profile_name  TEXT NOT NULL DEFAULT '',
    success       INTEGER NOT NULL,
    post_url      TEXT NOT NULL DEFAULT '',
    url_captured  INTEGER NOT NULL DEFAULT 0,
    user_confirmed INTEGER NOT NULL DEFAULT 0,
    error_code    TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_post_history_account ON post_history(account_id, created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &History{db: db, log: logger.Named("history")}, nil
}

// Record appends one result. Recording failures are logged, not propagated:
// history is best-effort and must never fail a post action after the fact.
func (h *History) Record(ctx context.Context, res schemas.PostResult) {
	_, err := h.db.ExecContext(ctx, `
        INSERT INTO post_history
            (account_id, platform, profile_name, success, post_url,
             url_captured, user_confirmed, error_code, error_message, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.AccountID, res.Platform, res.ProfileName, res.Success, res.PostURL,
		res.URLCaptured, res.UserConfirmed, res.ErrorCode, res.ErrorMessage, res.Timestamp,
	)
	if err != nil {
		h.log.Warn("Failed to record post history", zap.Error(err))
	}
}

// RecordAll appends a batch of results.
func (h *History) RecordAll(ctx context.Context, results []schemas.PostResult) {
	for _, res := range results {
		h.Record(ctx, res)
	}
}

// Recent returns up to limit results, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]schemas.PostResult, error) {
	rows, err := h.db.QueryContext(ctx, `
        SELECT account_id, platform, profile_name, success, post_url,
               url_captured, user_confirmed, error_code, error_message, created_at
        FROM post_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query post history: %w", err)
	}
	defer rows.Close()

	var results []schemas.PostResult
	for rows.Next() {
		var res schemas.PostResult
		if err := rows.Scan(
			&res.AccountID, &res.Platform, &res.ProfileName, &res.Success, &res.PostURL,
			&res.URLCaptured, &res.UserConfirmed, &res.ErrorCode, &res.ErrorMessage, &res.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
