// Package conversation implements the conversation store operations
// of spec.md §4.5: ensure_session, append, recent, list_conversations.
// Ordering and updated_at bookkeeping are enforced at the store layer;
// this package validates input and adds title inference.
package conversation

import (
	"context"
	"strings"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/google/uuid"
)

const titleMaxChars = 80

// Service is the public conversation store surface used by the agent
// orchestrator and the HTTP API.
type Service struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
}

// New builds a Service over the given repositories.
func New(conversations *store.ConversationStore, messages *store.MessageStore) *Service {
	return &Service{conversations: conversations, messages: messages}
}

// EnsureSession creates the conversation if absent and returns its id,
// matching spec.md §4.5 ensure_session. Safe to call on every turn.
func (s *Service) EnsureSession(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	c, err := s.conversations.EnsureSession(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

// Append persists a message and, for the first user message of a
// conversation, infers a title from its first ~80 characters (spec.md
// §4.5: "title inferred from the first user message, set once").
func (s *Service) Append(ctx context.Context, sessionID uuid.UUID, role store.MessageRole, content string, opts ...MessageOption) (store.Message, error) {
	if sessionID == uuid.Nil {
		return store.Message{}, apperr.New(apperr.KindInvalidInput, "session id is required")
	}
	if strings.TrimSpace(content) == "" {
		return store.Message{}, apperr.New(apperr.KindInvalidInput, "message content is required")
	}

	m := store.Message{ConversationID: sessionID, Role: role, Content: content}
	for _, opt := range opts {
		opt(&m)
	}

	saved, err := s.messages.Append(ctx, m)
	if err != nil {
		return store.Message{}, err
	}

	if role == store.MessageRoleUser {
		if ierr := s.inferTitleIfUnset(ctx, sessionID, content); ierr != nil {
			return store.Message{}, ierr
		}
	}

	return saved, nil
}

// inferTitleIfUnset sets the conversation's title the first time a user
// message arrives. SetTitle is a no-op once title is already set, so this
// is safe to call on every user message without an extra round trip.
func (s *Service) inferTitleIfUnset(ctx context.Context, sessionID uuid.UUID, content string) error {
	return s.conversations.SetTitle(ctx, sessionID, inferTitle(content))
}

// inferTitle truncates content to titleMaxChars, snapping to the last
// whole word so the title never ends mid-word.
func inferTitle(content string) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	runes := []rune(content)
	if len(runes) <= titleMaxChars {
		return content
	}
	cut := titleMaxChars
	if i := strings.LastIndexByte(string(runes[:cut]), ' '); i > 0 {
		cut = i
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}

// Recent returns the conversation's last n messages in created_at order
// with a stable id tiebreaker, matching spec.md §4.5 recent. Used by the
// agent orchestrator to build the conversation window of a context bundle.
func (s *Service) Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]store.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.messages.Recent(ctx, sessionID, n)
}

// maxSessionMessages bounds conversations.get's message list. A session
// accumulating more than this is a deployment anomaly worth truncating
// rather than shipping an unbounded response.
const maxSessionMessages = 2000

// Get returns a conversation and its full message history in created_at
// order, matching spec.md §6 conversations.get.
func (s *Service) Get(ctx context.Context, sessionID uuid.UUID) (store.Conversation, []store.Message, error) {
	c, err := s.conversations.Get(ctx, sessionID)
	if err != nil {
		return store.Conversation{}, nil, err
	}
	msgs, err := s.messages.Recent(ctx, sessionID, maxSessionMessages)
	if err != nil {
		return store.Conversation{}, nil, err
	}
	return c, msgs, nil
}

// SessionSummary is the conversations.list RPC response shape (spec.md §6).
type SessionSummary struct {
	ID           uuid.UUID
	Title        string
	AgentRole    string
	Status       string
	MessageCount int
}

// ListConversations returns the most recently updated conversations,
// matching spec.md §4.5 list_conversations.
func (s *Service) ListConversations(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conversations.ListWithMessageCounts(ctx, limit, 0)
	if err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, SessionSummary{
			ID:           r.ID,
			Title:        r.Title.String,
			AgentRole:    r.AgentRole.String,
			Status:       r.Status,
			MessageCount: r.MessageCount,
		})
	}
	return out, nil
}
