package telemetry

import (
	"database/sql"
	"errors"
)

// ErrRateLimited is returned by a VendorClient when the vendor API
// responds with HTTP 429, distinct from other upstream failures so the
// poller can reconcile its token bucket (spec.md §4.4).
var ErrRateLimited = errors.New("vendor rate limit exceeded")

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
