package kb

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/docprovider"
	"github.com/commandcenter/commandcenter/pkg/embedding"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var documentCols = []string{
	"id", "external_id", "title", "folder_path", "mime_kind", "full_text", "is_context_file",
	"token_count", "status", "last_synced_at", "sync_error", "external_mtime", "created_at", "updated_at",
}

func drainSync(ch <-chan ProgressEvent) ProgressEvent {
	var final ProgressEvent
	for ev := range ch {
		final = ev
	}
	return final
}

// errListProvider fails ListDocuments outright, for the "can't even
// start a sync" path.
type errListProvider struct{ err error }

func (p errListProvider) ListDocuments(ctx context.Context, rootFolderID string, contextOnly bool) ([]docprovider.DocumentMeta, error) {
	return nil, p.err
}

func (p errListProvider) FetchText(ctx context.Context, externalID string, kind docprovider.MimeKind) (string, error) {
	return "", nil
}

func TestSync_NewDocument_PersistsEmbeddedChunks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	provider := docprovider.NewFake()
	provider.Add(docprovider.FakeDoc{
		Meta: docprovider.DocumentMeta{ExternalID: "ext-1", Title: "Battery Policy", FolderPath: "docs", MimeKind: docprovider.MimeDoc, ModifiedAt: time.Now()},
		Text: "The battery should stay above 20% state of charge overnight.",
	})
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedding.NewFake(4), Config{ChunkSize: 1000, ChunkOverlap: 0, EmbedMaxAttempts: 1}, nil)

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs("ext-1").WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO documents`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectExec(`DELETE FROM chunks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO chunks`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(`DELETE FROM documents WHERE NOT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.True(t, final.Done)
	require.Equal(t, 1, final.Updated)
	require.Equal(t, 0, final.Failed)
	require.Equal(t, int64(1), svc.KBVersion())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSync_UnchangedDocument_SkippedWithoutEmbedding(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	modifiedAt := time.Now().Add(-time.Hour)
	provider := docprovider.NewFake()
	provider.Add(docprovider.FakeDoc{
		Meta: docprovider.DocumentMeta{ExternalID: "ext-1", Title: "Battery Policy", FolderPath: "docs", MimeKind: docprovider.MimeDoc, ModifiedAt: modifiedAt},
		Text: "unchanged",
	})
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedding.NewFake(4), Config{ChunkSize: 1000, EmbedMaxAttempts: 1}, nil)

	docID := uuid.New()
	existingRow := sqlmock.NewRows(documentCols).AddRow(
		docID, "ext-1", "Battery Policy", "docs", "doc", "unchanged", false, 2, "ok",
		time.Now(), nil, modifiedAt, time.Now().Add(-24*time.Hour), time.Now().Add(-time.Hour))

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs("ext-1").WillReturnRows(existingRow)

	mock.ExpectExec(`DELETE FROM documents WHERE NOT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.Equal(t, 0, final.Updated)
	require.Equal(t, 0, final.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSync_ForceBypassesUnchangedSkip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	modifiedAt := time.Now().Add(-time.Hour)
	provider := docprovider.NewFake()
	provider.Add(docprovider.FakeDoc{
		Meta: docprovider.DocumentMeta{ExternalID: "ext-1", Title: "Battery Policy", FolderPath: "docs", MimeKind: docprovider.MimeDoc, ModifiedAt: modifiedAt},
		Text: "re-embed me",
	})
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedding.NewFake(4), Config{ChunkSize: 1000, EmbedMaxAttempts: 1}, nil)

	docID := uuid.New()
	existingRow := sqlmock.NewRows(documentCols).AddRow(
		docID, "ext-1", "Battery Policy", "docs", "doc", "re-embed me", false, 2, "ok",
		time.Now(), nil, modifiedAt, time.Now().Add(-24*time.Hour), time.Now().Add(-time.Hour))

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs("ext-1").WillReturnRows(existingRow)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO documents`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(docID))
	mock.ExpectExec(`DELETE FROM chunks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO chunks`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(`DELETE FROM documents WHERE NOT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), true)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.Equal(t, 1, final.Updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSync_EmbedFailure_MarksDocumentFailedAndCountsIt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	text := "this chunk will never embed"
	provider := docprovider.NewFake()
	provider.Add(docprovider.FakeDoc{
		Meta: docprovider.DocumentMeta{ExternalID: "ext-1", Title: "Generator Manual", FolderPath: "docs", MimeKind: docprovider.MimeDoc, ModifiedAt: time.Now()},
		Text: text,
	})
	embedder := embedding.NewFake(4)
	embedder.Fail[text] = errors.New("embedding service unavailable")
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedder, Config{ChunkSize: 1000, EmbedMaxAttempts: 1}, nil)

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs("ext-1").WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents SET status = 'failed'`).WithArgs("ext-1", "embed chunk after 1 attempts: embedding service unavailable").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	mock.ExpectExec(`DELETE FROM documents WHERE NOT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.Equal(t, 0, final.Updated)
	require.Equal(t, 1, final.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestSync_FetchNotFound_ExistingDocumentMarkedNotFound covers spec.md
// §8's named boundary: a document listed this run but removed upstream
// before FetchText runs is marked sync_error=not_found on its existing
// row and counted as failed, not retried within the same run.
func TestSync_FetchNotFound_ExistingDocumentMarkedNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	oldSync := time.Now().Add(-48 * time.Hour)
	newModified := time.Now()
	provider := docprovider.NewFake()
	provider.Add(docprovider.FakeDoc{
		Meta: docprovider.DocumentMeta{ExternalID: "ext-1", Title: "Removed Doc", FolderPath: "docs", MimeKind: docprovider.MimeDoc, ModifiedAt: newModified},
	})
	provider.FetchErr["ext-1"] = docprovider.ErrNotFound
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedding.NewFake(4), Config{ChunkSize: 1000, EmbedMaxAttempts: 1}, nil)

	docID := uuid.New()
	existingRow := sqlmock.NewRows(documentCols).AddRow(
		docID, "ext-1", "Removed Doc", "docs", "doc", "old text", false, 2, "ok",
		oldSync, nil, oldSync, time.Now().Add(-72*time.Hour), oldSync)

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs("ext-1").WillReturnRows(existingRow)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE documents SET status = 'failed'`).WithArgs("ext-1", "not_found").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(`DELETE FROM documents WHERE NOT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.Equal(t, 0, final.Updated)
	require.Equal(t, 1, final.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSync_FetchNotFound_NeverSyncedDocument_NoMarkFailedCall(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	provider := docprovider.NewFake()
	provider.Add(docprovider.FakeDoc{
		Meta: docprovider.DocumentMeta{ExternalID: "ext-new", Title: "Never Synced", FolderPath: "docs", MimeKind: docprovider.MimeDoc, ModifiedAt: time.Now()},
	})
	provider.FetchErr["ext-new"] = docprovider.ErrNotFound
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedding.NewFake(4), Config{ChunkSize: 1000, EmbedMaxAttempts: 1}, nil)

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs("ext-new").WillReturnError(sql.ErrNoRows)
	// No WithExternalIDLock/MarkFailed expected: there is no existing row to mark.
	mock.ExpectExec(`DELETE FROM documents WHERE NOT`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.Equal(t, 1, final.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSync_DeleteMissing_RemovesDocumentsNoLongerListed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	provider := docprovider.NewFake() // empty: nothing listed this run
	svc := New(st.Documents, st.Chunks, st.SyncLog, provider, embedding.NewFake(4), Config{ChunkSize: 1000, EmbedMaxAttempts: 1}, nil)

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM documents$`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.NoError(t, final.Err)
	require.Equal(t, 3, final.Deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSync_ListDocumentsFails_ReportsErrAndMarksLogFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db)

	listErr := errors.New("document provider unreachable")
	svc := New(st.Documents, st.Chunks, st.SyncLog, errListProvider{err: listErr}, embedding.NewFake(4), Config{ChunkSize: 1000}, nil)

	mock.ExpectExec(`INSERT INTO sync_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sync_log SET completed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	ch := svc.Sync(context.Background(), false)
	final := drainSync(ch)

	require.Error(t, final.Err)
	require.True(t, final.Done)
	require.Equal(t, int64(0), svc.KBVersion())
	require.NoError(t, mock.ExpectationsWereMet())
}
