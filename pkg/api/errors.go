package api

import (
	"log/slog"
	"net/http"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// errorResponse is the RPC-status error envelope of spec.md §6/§7:
// "system errors are returned as RPC status + error field; response is
// omitted."
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps err's apperr.Kind to an HTTP status and writes the
// error envelope, matching spec.md §7's taxonomy-to-status table.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		slog.Error("unexpected request error", "error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUpstreamTransient:
		return http.StatusServiceUnavailable
	case apperr.KindUpstreamPermanent:
		return http.StatusBadGateway
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
