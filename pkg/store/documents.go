package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/docprovider"
	"github.com/google/uuid"
)

// Document is the persisted row for one synced knowledge-base document.
type Document struct {
	ID             uuid.UUID
	ExternalID     string
	Title          string
	FolderPath     string
	MimeKind       docprovider.MimeKind
	FullText       string
	IsContextFile  bool
	TokenCount     int
	Status         string
	LastSyncedAt   sql.NullTime
	SyncError      sql.NullString
	ExternalMtime  sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentStore persists documents and serializes sync writes per
// external_id via a transaction-scoped advisory lock, matching spec.md
// §4.2 step 7 ("concurrent syncs of the same document serialize").
type DocumentStore struct {
	db *sql.DB
}

// WithExternalIDLock runs fn inside a transaction holding a
// pg_advisory_xact_lock keyed on externalID's hash, so two concurrent
// syncs of the same document never interleave their writes. The lock
// is released automatically when the transaction ends.
func (s *DocumentStore) WithExternalIDLock(ctx context.Context, externalID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin document sync transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, externalID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "acquire document sync lock", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit document sync transaction", err)
	}
	return nil
}

// Upsert inserts or updates a document keyed on external_id, within an
// already-locked transaction (see WithExternalIDLock).
func (s *DocumentStore) Upsert(ctx context.Context, tx *sql.Tx, d Document) (uuid.UUID, error) {
	if d.ExternalID == "" {
		return uuid.Nil, apperr.New(apperr.KindInvalidInput, "external_id is required")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO documents (id, external_id, title, folder_path, mime_kind, full_text,
			is_context_file, token_count, status, last_synced_at, sync_error, external_mtime, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			folder_path = EXCLUDED.folder_path,
			mime_kind = EXCLUDED.mime_kind,
			full_text = EXCLUDED.full_text,
			is_context_file = EXCLUDED.is_context_file,
			token_count = EXCLUDED.token_count,
			status = EXCLUDED.status,
			last_synced_at = EXCLUDED.last_synced_at,
			sync_error = EXCLUDED.sync_error,
			external_mtime = EXCLUDED.external_mtime,
			updated_at = now()
		RETURNING id`,
		d.ID, d.ExternalID, d.Title, d.FolderPath, string(d.MimeKind), d.FullText,
		d.IsContextFile, d.TokenCount, d.Status, d.LastSyncedAt, d.SyncError, d.ExternalMtime,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("upsert document %s", d.ExternalID), err)
	}
	return id, nil
}

// MarkFailed records a sync failure against an existing document
// without touching its last-known-good full_text or chunks.
func (s *DocumentStore) MarkFailed(ctx context.Context, tx *sql.Tx, externalID, syncErr string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = 'failed', sync_error = $2, updated_at = now()
		WHERE external_id = $1`, externalID, syncErr)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("mark document %s failed", externalID), err)
	}
	return nil
}

// GetByExternalID fetches a document by its provider-side external id,
// used by the sync pipeline to decide whether a document is new and to
// read its last_synced_at for the skip-if-unchanged check.
func (s *DocumentStore) GetByExternalID(ctx context.Context, externalID string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, title, folder_path, mime_kind, full_text, is_context_file,
			token_count, status, last_synced_at, sync_error, external_mtime, created_at, updated_at
		FROM documents WHERE external_id = $1`, externalID)
	return scanDocument(row)
}

// Get fetches a document by id.
func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, title, folder_path, mime_kind, full_text, is_context_file,
			token_count, status, last_synced_at, sync_error, external_mtime, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// List returns all documents, optionally restricted to context files.
func (s *DocumentStore) List(ctx context.Context, contextOnly bool) ([]Document, error) {
	query := `
		SELECT id, external_id, title, folder_path, mime_kind, full_text, is_context_file,
			token_count, status, last_synced_at, sync_error, external_mtime, created_at, updated_at
		FROM documents`
	if contextOnly {
		query += ` WHERE is_context_file = true`
	}
	query += ` ORDER BY title`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list documents", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteMissing removes documents whose external_id is not in keep,
// matching spec.md §4.2 step 6 ("documents removed upstream are
// deleted locally, cascading to their chunks"). Returns count deleted.
func (s *DocumentStore) DeleteMissing(ctx context.Context, keep []string) (int, error) {
	if len(keep) == 0 {
		res, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
		if err != nil {
			return 0, apperr.Wrap(apperr.KindInternal, "delete all documents", err)
		}
		n, _ := res.RowsAffected()
		return int(n), nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE NOT (external_id = ANY($1))`, keep)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "delete missing documents", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var d Document
	var mimeKind string
	err := row.Scan(&d.ID, &d.ExternalID, &d.Title, &d.FolderPath, &mimeKind, &d.FullText,
		&d.IsContextFile, &d.TokenCount, &d.Status, &d.LastSyncedAt, &d.SyncError, &d.ExternalMtime,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, apperr.ErrDocumentNotFound
	}
	if err != nil {
		return Document{}, apperr.Wrap(apperr.KindInternal, "scan document", err)
	}
	d.MimeKind = docprovider.MimeKind(mimeKind)
	return d, nil
}
