package contextmgr

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/commandcenter/commandcenter/pkg/config"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeQuery lower-cases and collapses runs of whitespace, the
// exact transform spec.md §4.1's cache key requires.
func normalizeQuery(query string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(query), " "))
}

// CacheKey computes the fingerprint hash of
// {classified_type, query_normalized, session_id, user_id, kb_version}
// (spec.md §4.1 Caching). Two calls with identical inputs — including
// the same kb_version — always produce the same key, so a resync
// naturally invalidates prior entries once kb_version increments.
func CacheKey(queryType config.QueryType, query, sessionID, userID string, kbVersion int64) string {
	h := sha256.New()
	h.Write([]byte(queryType))
	h.Write([]byte{0})
	h.Write([]byte(normalizeQuery(query)))
	h.Write([]byte{0})
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte{byte(kbVersion), byte(kbVersion >> 8), byte(kbVersion >> 16), byte(kbVersion >> 24)})
	return hex.EncodeToString(h.Sum(nil))
}
