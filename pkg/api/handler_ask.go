package api

import (
	"net/http"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
)

// askRequest is the `ask` RPC input (spec.md §6).
type askRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// askResponse is the `ask` RPC output contract (spec.md §6, §4.3).
type askResponse struct {
	Response      string `json:"response"`
	AgentRole     string `json:"agent_role"`
	DurationMs    int64  `json:"duration_ms"`
	SessionID     string `json:"session_id"`
	ContextTokens int    `json:"context_tokens"`
	CacheHit      bool   `json:"cache_hit"`
	QueryType     string `json:"query_type"`
}

// askHandler handles POST /api/v1/ask.
func (s *Server) askHandler(c *gin.Context) {
	// 1. Parse and validate the request.
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err))
		return
	}
	if req.Message == "" {
		writeError(c, apperr.New(apperr.KindInvalidInput, "message is required"))
		return
	}

	var sessionID uuid.UUID
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(c, apperr.New(apperr.KindInvalidInput, "session_id is not a valid uuid"))
			return
		}
		sessionID = id
	}

	// 2. Run the query through the agent orchestrator.
	result, err := s.orchestrator.Ask(c.Request.Context(), req.Message, sessionID, req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	// 3. Map to the output contract.
	c.JSON(http.StatusOK, askResponse{
		Response:      result.Response,
		AgentRole:     result.AgentRole,
		DurationMs:    result.DurationMs,
		SessionID:     result.SessionID.String(),
		ContextTokens: result.ContextTokens,
		CacheHit:      result.CacheHit,
		QueryType:     string(result.QueryType),
	})
}
