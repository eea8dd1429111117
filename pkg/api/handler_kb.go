package api

import (
	"encoding/json"
	"net/http"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// kbSyncRequest is the `kb.sync` RPC input (spec.md §6).
type kbSyncRequest struct {
	Mode  string `json:"mode"`
	Force bool   `json:"force"`
}

// kbSyncEvent is one line of the `kb.sync` NDJSON progress stream.
type kbSyncEvent struct {
	Processed    int    `json:"processed,omitempty"`
	Total        int    `json:"total,omitempty"`
	CurrentTitle string `json:"current_title,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Done         bool   `json:"done,omitempty"`
	Summary      *kbSyncSummary `json:"summary,omitempty"`
	Error        string `json:"error,omitempty"`
}

type kbSyncSummary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed"`
}

// kbSyncHandler handles POST /api/v1/kb/sync, streaming newline-delimited
// JSON progress records (spec.md §6: "stream of {processed, total,
// current_title, phase} then {done, summary}"). A consumer disconnect
// cancels the request context, which Sync observes and stops on
// (spec.md §5).
func (s *Server) kbSyncHandler(c *gin.Context) {
	var req kbSyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err))
			return
		}
	}

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	events := s.kb.Sync(c.Request.Context(), req.Force)
	flusher, canFlush := c.Writer.(http.Flusher)

	for ev := range events {
		out := kbSyncEvent{
			Processed:    ev.Processed,
			Total:        ev.Total,
			CurrentTitle: ev.CurrentTitle,
			Phase:        string(ev.Phase),
			Done:         ev.Done,
		}
		if ev.Err != nil {
			out.Error = ev.Err.Error()
		}
		if ev.Done && ev.Err == nil {
			out.Summary = &kbSyncSummary{Processed: ev.Processed, Updated: ev.Updated, Deleted: ev.Deleted, Failed: ev.Failed}
		}
		if err := enc.Encode(out); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// kbSearchRequest is the `kb.search` RPC input (spec.md §6).
type kbSearchRequest struct {
	Query     string  `json:"query"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

// kbSearchResult is one entry of the `kb.search` RPC output.
type kbSearchResult struct {
	Title      string  `json:"title"`
	Folder     string  `json:"folder"`
	ChunkText  string  `json:"chunk_text"`
	Similarity float64 `json:"similarity"`
}

// kbSearchHandler handles POST /api/v1/kb/search.
func (s *Server) kbSearchHandler(c *gin.Context) {
	var req kbSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err))
		return
	}
	if req.Query == "" {
		writeError(c, apperr.New(apperr.KindInvalidInput, "query is required"))
		return
	}

	results, err := s.kb.Search(c.Request.Context(), req.Query, req.TopK, req.Threshold)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]kbSearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, kbSearchResult{Title: r.DocumentTitle, Folder: r.Folder, ChunkText: r.ChunkText, Similarity: r.Similarity})
	}
	c.JSON(http.StatusOK, out)
}

// kbStatsResponse is the `kb.stats` RPC response (spec.md §6).
type kbStatsResponse struct {
	Documents       int    `json:"documents"`
	Chunks          int    `json:"chunks"`
	ContextFiles    int    `json:"context_files"`
	TotalTokens     int    `json:"total_tokens"`
	LastSyncTime    string `json:"last_sync_time,omitempty"`
	SuccessfulSyncs int    `json:"successful_syncs"`
	FailedSyncs     int    `json:"failed_syncs"`
}

// kbStatsHandler handles GET /api/v1/kb/stats.
func (s *Server) kbStatsHandler(c *gin.Context) {
	stats, err := s.kb.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, kbStatsResponse{
		Documents:       stats.Documents,
		Chunks:          stats.Chunks,
		ContextFiles:    stats.ContextFiles,
		TotalTokens:     stats.TotalTokens,
		LastSyncTime:    stats.LastSyncTime,
		SuccessfulSyncs: stats.SuccessfulSyncs,
		FailedSyncs:     stats.FailedSyncs,
	})
}
