package conversation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	return New(st.Conversations, st.Messages), mock
}

func TestEnsureSession_GeneratesIDWhenNil(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO conversations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, title, agent_role, status, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "agent_role", "status", "created_at", "updated_at"}).
			AddRow(uuid.New(), nil, nil, "active", time.Now(), time.Now()))

	id, err := svc.EnsureSession(context.Background(), uuid.Nil)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_RejectsEmptyContent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Append(context.Background(), uuid.New(), store.MessageRoleUser, "   ")
	require.Error(t, err)
}

func TestAppend_RejectsNilSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Append(context.Background(), uuid.Nil, store.MessageRoleUser, "hello")
	require.Error(t, err)
}

func TestAppend_UserMessageInfersTitle(t *testing.T) {
	svc, mock := newTestService(t)
	sessionID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("UPDATE conversations SET updated_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("UPDATE conversations SET title").
		WithArgs(sessionID, "what is my current battery state of charge?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Append(context.Background(), sessionID, store.MessageRoleUser, "what is my current battery state of charge?")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_AssistantMessageDoesNotSetTitle(t *testing.T) {
	svc, mock := newTestService(t)
	sessionID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("UPDATE conversations SET updated_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.Append(context.Background(), sessionID, store.MessageRoleAssistant, "the SOC is 82%.",
		WithAgentRole("status"), WithDurationMs(120), WithTokens(512), WithCacheHit(true), WithQueryType("system"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_ZeroLimitReturnsNilWithoutQuerying(t *testing.T) {
	svc, mock := newTestService(t)

	out, err := svc.Recent(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	require.Nil(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListConversations_DefaultsLimitAndMapsSummaries(t *testing.T) {
	svc, mock := newTestService(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT c.id, c.title, c.agent_role, c.status, c.created_at, c.updated_at").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "agent_role", "status", "created_at", "updated_at", "message_count",
		}).AddRow(id, "battery question", "status", "active", time.Now(), time.Now(), 4))

	out, err := svc.ListConversations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, id, out[0].ID)
	require.Equal(t, "battery question", out[0].Title)
	require.Equal(t, 4, out[0].MessageCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ReturnsConversationAndMessages(t *testing.T) {
	svc, mock := newTestService(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT id, title, agent_role, status, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "agent_role", "status", "created_at", "updated_at"}).
			AddRow(id, "battery question", "status", "active", now, now))
	mock.ExpectQuery("SELECT id, conversation_id, role, content, agent_role, duration_ms, tokens, cache_hit, query_type, created_at").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "role", "content", "agent_role", "duration_ms", "tokens", "cache_hit", "query_type", "created_at",
		}).AddRow(uuid.New(), id, store.MessageRoleUser, "what is my SOC", nil, nil, nil, nil, nil, now))

	c, msgs, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
	require.Len(t, msgs, 1)
	require.Equal(t, "what is my SOC", msgs[0].Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFoundPropagatesError(t *testing.T) {
	svc, mock := newTestService(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, title, agent_role, status, created_at, updated_at").
		WillReturnError(sql.ErrNoRows)

	_, _, err := svc.Get(context.Background(), id)
	require.Error(t, err)
}

func TestInferTitle_TruncatesOnWordBoundary(t *testing.T) {
	long := "what is the expected battery runtime tonight given current load and weather forecast conditions"
	title := inferTitle(long)
	require.LessOrEqual(t, len(title), 82)
	require.NotEqual(t, long, title)
}

func TestInferTitle_ShortContentPassesThrough(t *testing.T) {
	require.Equal(t, "what is my SOC", inferTitle("what is my SOC"))
}
