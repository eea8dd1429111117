package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
)

// Conversation is a persisted chat session (spec.md §3 Conversation).
type Conversation struct {
	ID        uuid.UUID
	Title     sql.NullString
	AgentRole sql.NullString
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationStore persists conversations.
type ConversationStore struct {
	db *sql.DB
}

// EnsureSession returns the conversation for id, creating it with
// status "active" if it does not already exist (spec.md §4.5
// ensure_session: idempotent, safe to call on every turn).
func (s *ConversationStore) EnsureSession(ctx context.Context, id uuid.UUID) (Conversation, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return Conversation{}, apperr.Wrap(apperr.KindInternal, "ensure conversation session", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a conversation by id.
func (s *ConversationStore) Get(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var c Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, agent_role, status, created_at, updated_at
		FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.AgentRole, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, apperr.ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, apperr.Wrap(apperr.KindInternal, "get conversation", err)
	}
	return c, nil
}

// SetTitle sets a conversation's title if it is not already set,
// matching spec.md §4.5's "title inferred from the first ~80
// characters of the first user message, set once."
func (s *ConversationStore) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = $2, updated_at = now()
		WHERE id = $1 AND title IS NULL`, id, title)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "set conversation title", err)
	}
	return nil
}

// Touch bumps updated_at to the latest message's created_at, matching
// spec.md §3's "updated_at = max(message created_at)" invariant.
func (s *ConversationStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1 AND updated_at < $2`, id, at)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "touch conversation", err)
	}
	return nil
}

// List returns conversations ordered most-recently-updated first
// (spec.md §4.5 list_conversations), for the conversations.list RPC.
func (s *ConversationStore) List(ctx context.Context, limit, offset int) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, agent_role, status, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list conversations", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.AgentRole, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan conversation", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConversationSummary is a Conversation with its message count, the
// shape conversations.list returns (spec.md §6).
type ConversationSummary struct {
	Conversation
	MessageCount int
}

// ListWithMessageCounts is List plus a per-conversation message count
// in a single query.
func (s *ConversationStore) ListWithMessageCounts(ctx context.Context, limit, offset int) ([]ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.agent_role, c.status, c.created_at, c.updated_at,
			count(m.id) AS message_count
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list conversations with message counts", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var cs ConversationSummary
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.AgentRole, &cs.Status, &cs.CreatedAt, &cs.UpdatedAt, &cs.MessageCount); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan conversation summary", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
