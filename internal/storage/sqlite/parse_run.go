package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"flat_watcher/internal/domain"
)

type ParseRunStore struct {
	db *sqlx.DB
}

func NewParseRunStore(db *sqlx.DB) *ParseRunStore {
	return &ParseRunStore{db: db}
}

// Append records one scrape execution. The log is append-only; rows are
// never updated or deleted.
func (s *ParseRunStore) Append(ctx context.Context, listingsFound int, status domain.ParseRunStatus) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"INSERT INTO parse_runs (ran_at, listings_found, status) VALUES (?, ?, ?)",
		time.Now().UTC(), listingsFound, status,
	)
	return err
}

// Last returns the most recent parse run, or nil when none exists yet.
func (s *ParseRunStore) Last(ctx context.Context) (*domain.ParseRun, error) {
	var run domain.ParseRun
	query := `SELECT id, ran_at, listings_found, status FROM parse_runs
		ORDER BY id DESC LIMIT 1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &run, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
