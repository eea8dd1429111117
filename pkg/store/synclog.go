package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
)

// SyncLogStatus is the lifecycle state of a knowledge-base sync run.
type SyncLogStatus string

const (
	SyncLogRunning   SyncLogStatus = "running"
	SyncLogCompleted SyncLogStatus = "completed"
	SyncLogFailed    SyncLogStatus = "failed"
)

// SyncLog is one run of the knowledge-base sync pipeline (spec.md §3
// SyncLog, §4.2 step 8 partial-failure accounting).
type SyncLog struct {
	ID          uuid.UUID
	StartedAt   time.Time
	CompletedAt sql.NullTime
	Status      SyncLogStatus
	Processed   int
	Updated     int
	Deleted     int
	Failed      int
}

// SyncLogStore persists knowledge-base sync run records.
type SyncLogStore struct {
	db *sql.DB
}

// Start inserts a new running sync log entry.
func (s *SyncLogStore) Start(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, status) VALUES ($1, $2)`, id, SyncLogRunning)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, "start sync log", err)
	}
	return id, nil
}

// Finish closes out a sync log entry with final counters. A run with
// failed > 0 but processed > failed is still "completed" (spec.md
// §4.2 step 8: partial failures don't abort the whole sync).
func (s *SyncLogStore) Finish(ctx context.Context, id uuid.UUID, status SyncLogStatus, processed, updated, deleted, failed int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_log SET completed_at = now(), status = $2, processed = $3, updated = $4, deleted = $5, failed = $6
		WHERE id = $1`, id, status, processed, updated, deleted, failed)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "finish sync log", err)
	}
	return nil
}

// Latest returns the most recent sync log entry, used by the
// kb.stats RPC (spec.md §6).
func (s *SyncLogStore) Latest(ctx context.Context) (SyncLog, error) {
	var l SyncLog
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, status, processed, updated, deleted, failed
		FROM sync_log ORDER BY started_at DESC LIMIT 1`,
	).Scan(&l.ID, &l.StartedAt, &l.CompletedAt, &l.Status, &l.Processed, &l.Updated, &l.Deleted, &l.Failed)
	if err == sql.ErrNoRows {
		return SyncLog{}, apperr.New(apperr.KindNotFound, "no sync runs yet")
	}
	if err != nil {
		return SyncLog{}, apperr.Wrap(apperr.KindInternal, "get latest sync log", err)
	}
	return l, nil
}

// CountByStatus returns how many sync runs have reached each terminal
// status, used by the kb.stats RPC's successful/failed run counters.
func (s *SyncLogStore) CountByStatus(ctx context.Context) (successful, failed int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed')
		FROM sync_log`,
	).Scan(&successful, &failed)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.KindInternal, "count sync log statuses", err)
	}
	return successful, failed, nil
}
