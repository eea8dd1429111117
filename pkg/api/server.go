// Package api provides the HTTP surface over CommandCenter's RPC
// contract (spec.md §6). Routes are grouped under /api/v1 and mapped
// one-to-one onto the RPC table; field names in request/response
// bodies are normative per the spec, transport is ours to choose.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/commandcenter/commandcenter/pkg/agent"
	"github.com/commandcenter/commandcenter/pkg/conversation"
	"github.com/commandcenter/commandcenter/pkg/kb"
	"github.com/commandcenter/commandcenter/pkg/observability"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/gin-gonic/gin"
)

// Server is CommandCenter's HTTP API.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	orchestrator *agent.Orchestrator
	conversation *conversation.Service
	kb           *kb.Service
	telemetry    *store.TelemetryStore
	observability *observability.Service

	apiKey string
}

// NewServer builds a Server and registers every route. apiKey, if
// non-empty, gates every route but /health behind header matching
// (spec.md §6 API_KEY).
func NewServer(
	orchestrator *agent.Orchestrator,
	conv *conversation.Service,
	kbSvc *kb.Service,
	telemetry *store.TelemetryStore,
	obs *observability.Service,
	apiKey string,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery(), securityHeaders())

	s := &Server{
		engine:        e,
		orchestrator:  orchestrator,
		conversation:  conv,
		kb:            kbSvc,
		telemetry:     telemetry,
		observability: obs,
		apiKey:        apiKey,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	if s.apiKey != "" {
		v1.Use(s.requireAPIKey())
	}

	v1.POST("/ask", s.askHandler)

	v1.GET("/conversations", s.listConversationsHandler)
	v1.GET("/conversations/:id", s.getConversationHandler)

	v1.POST("/kb/sync", s.kbSyncHandler)
	v1.POST("/kb/search", s.kbSearchHandler)
	v1.GET("/kb/stats", s.kbStatsHandler)

	v1.GET("/telemetry/:vendor/latest", s.telemetryLatestHandler)
	v1.GET("/telemetry/:vendor/history", s.telemetryHistoryHandler)

	v1.GET("/agents/health", s.agentsHealthHandler)
}

// Start runs the HTTP server on addr (blocking). Use with a goroutine
// and Shutdown for graceful teardown, matching the teacher's
// Start/Shutdown pair.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// requireAPIKey enforces spec.md §6's API_KEY option: every non-health
// RPC must present a matching X-API-Key header when one is configured.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != s.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid or missing API key"})
			return
		}
		c.Next()
	}
}
