package kb

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/embedding"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSearch_ZeroChunksReturnsEmptyNotError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	st := store.New(db)
	svc := New(st.Documents, st.Chunks, st.SyncLog, nil, embedding.NewFake(8), Config{SimilarityDefault: 0.3, SearchDefaultTopK: 5}, nil)

	mock.ExpectQuery(`SELECT id, document_id, order_index, text, token_count`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "order_index", "text", "token_count", "similarity"}))

	results, err := svc.Search(context.Background(), "what is the battery SOC", 5, 0.3)
	require.NoError(t, err)
	require.Empty(t, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_RanksAndJoinsDocumentTitle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	st := store.New(db)
	svc := New(st.Documents, st.Chunks, st.SyncLog, nil, embedding.NewFake(8), Config{}, nil)

	docID := uuid.New()
	chunkRows := sqlmock.NewRows([]string{"id", "document_id", "order_index", "text", "token_count", "similarity"}).
		AddRow(uuid.New(), docID, 0, "battery SOC is the state of charge", 8, 0.91)
	mock.ExpectQuery(`SELECT id, document_id, order_index, text, token_count`).WillReturnRows(chunkRows)

	docRows := sqlmock.NewRows([]string{
		"id", "external_id", "title", "folder_path", "mime_kind", "full_text", "is_context_file",
		"token_count", "status", "last_synced_at", "sync_error", "external_mtime", "created_at", "updated_at",
	}).AddRow(docID, "ext-1", "Battery Policy", "context", "doc", "full text", true, 100, "ok", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT id, external_id, title, folder_path`).WithArgs(docID).WillReturnRows(docRows)

	results, err := svc.Search(context.Background(), "battery soc", 5, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Battery Policy", results[0].DocumentTitle)
	require.InDelta(t, 0.91, results[0].Similarity, 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}
