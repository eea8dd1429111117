package api

import (
	"net/http"
	"strconv"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
)

// timeFormat is RFC3339, matching the teacher's JSON timestamp convention.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// conversationSummary is one entry of the conversations.list RPC
// response (spec.md §6).
type conversationSummary struct {
	ID           string `json:"id"`
	AgentRole    string `json:"agent_role"`
	Status       string `json:"status"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
}

// listConversationsHandler handles GET /api/v1/conversations?limit=.
func (s *Server) listConversationsHandler(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, apperr.New(apperr.KindInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	summaries, err := s.conversation.ListConversations(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]conversationSummary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, conversationSummary{
			ID:           sum.ID.String(),
			AgentRole:    sum.AgentRole,
			Status:       sum.Status,
			Title:        sum.Title,
			MessageCount: sum.MessageCount,
		})
	}
	c.JSON(http.StatusOK, out)
}

// messageView is one message of the conversations.get RPC response.
type messageView struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	AgentRole  string `json:"agent_role,omitempty"`
	DurationMs int32  `json:"duration_ms,omitempty"`
	Tokens     int32  `json:"tokens,omitempty"`
	CacheHit   bool   `json:"cache_hit,omitempty"`
	QueryType  string `json:"query_type,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// conversationView is the `session` half of the conversations.get
// RPC response (spec.md §6).
type conversationView struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	AgentRole string `json:"agent_role,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type getConversationResponse struct {
	Session  conversationView `json:"session"`
	Messages []messageView    `json:"messages"`
}

// getConversationHandler handles GET /api/v1/conversations/:id.
func (s *Server) getConversationHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, apperr.New(apperr.KindInvalidInput, "id is not a valid uuid"))
		return
	}

	conv, msgs, err := s.conversation.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := getConversationResponse{
		Session: conversationView{
			ID:        conv.ID.String(),
			Title:     conv.Title.String,
			AgentRole: conv.AgentRole.String,
			Status:    conv.Status,
			CreatedAt: conv.CreatedAt.Format(timeFormat),
			UpdatedAt: conv.UpdatedAt.Format(timeFormat),
		},
		Messages: make([]messageView, 0, len(msgs)),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageView{
			ID:         m.ID.String(),
			Role:       string(m.Role),
			Content:    m.Content,
			AgentRole:  m.AgentRole.String,
			DurationMs: m.DurationMs.Int32,
			Tokens:     m.Tokens.Int32,
			CacheHit:   m.CacheHit.Bool,
			QueryType:  m.QueryType.String,
			CreatedAt:  m.CreatedAt.Format(timeFormat),
		})
	}
	c.JSON(http.StatusOK, resp)
}
