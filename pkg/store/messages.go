package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
)

// MessageRole is the role of a persisted conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one persisted conversation turn (spec.md §3 Message).
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           MessageRole
	Content        string
	AgentRole      sql.NullString
	DurationMs     sql.NullInt32
	Tokens         sql.NullInt32
	CacheHit       sql.NullBool
	QueryType      sql.NullString
	CreatedAt      time.Time
}

// MessageStore persists conversation messages.
type MessageStore struct {
	db *sql.DB
}

// Append inserts a message and bumps the parent conversation's
// updated_at, matching spec.md §4.5 append.
func (s *MessageStore) Append(ctx context.Context, m Message) (Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, apperr.Wrap(apperr.KindInternal, "begin append message transaction", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, agent_role, duration_ms, tokens, cache_hit, query_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		m.ID, m.ConversationID, string(m.Role), m.Content, m.AgentRole, m.DurationMs, m.Tokens, m.CacheHit, m.QueryType,
	).Scan(&m.CreatedAt)
	if err != nil {
		return Message{}, apperr.Wrap(apperr.KindInternal, "insert message", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1 AND updated_at < $2`,
		m.ConversationID, m.CreatedAt); err != nil {
		return Message{}, apperr.Wrap(apperr.KindInternal, "touch conversation on append", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, apperr.Wrap(apperr.KindInternal, "commit append message transaction", err)
	}
	return m, nil
}

// Recent returns the last n messages of a conversation in chronological
// order, matching spec.md §4.5 recent (used to build the conversation
// window for the context bundle).
func (s *MessageStore) Recent(ctx context.Context, conversationID uuid.UUID, n int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, agent_role, duration_ms, tokens, cache_hit, query_type, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, conversationID, n)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "query recent messages", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// FirstUserMessage returns the earliest user-role message of a
// conversation, used to infer a title (spec.md §4.5).
func (s *MessageStore) FirstUserMessage(ctx context.Context, conversationID uuid.UUID) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, role, content, agent_role, duration_ms, tokens, cache_hit, query_type, created_at
		FROM messages WHERE conversation_id = $1 AND role = 'user'
		ORDER BY created_at ASC, id ASC LIMIT 1`, conversationID)
	return scanMessage(row)
}

func scanMessage(row scanner) (Message, error) {
	var m Message
	var role string
	err := row.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.AgentRole, &m.DurationMs,
		&m.Tokens, &m.CacheHit, &m.QueryType, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, apperr.ErrMessageNotFound
	}
	if err != nil {
		return Message{}, apperr.Wrap(apperr.KindInternal, "scan message", err)
	}
	m.Role = MessageRole(role)
	return m, nil
}
