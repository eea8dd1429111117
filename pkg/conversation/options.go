package conversation

import "github.com/commandcenter/commandcenter/pkg/store"

// MessageOption sets optional metadata on an appended message (spec.md
// §4.5 append's metadata argument), matching the AgentExecution fields
// recorded alongside each assistant turn.
type MessageOption func(*store.Message)

// WithAgentRole tags the message with the agent role that produced it.
func WithAgentRole(role string) MessageOption {
	return func(m *store.Message) { m.AgentRole.String, m.AgentRole.Valid = role, role != "" }
}

// WithDurationMs records how long the turn took to produce.
func WithDurationMs(ms int32) MessageOption {
	return func(m *store.Message) { m.DurationMs.Int32, m.DurationMs.Valid = ms, true }
}

// WithTokens records the context tokens consumed by the turn.
func WithTokens(tokens int32) MessageOption {
	return func(m *store.Message) { m.Tokens.Int32, m.Tokens.Valid = tokens, true }
}

// WithCacheHit records whether the context bundle was served from cache.
func WithCacheHit(hit bool) MessageOption {
	return func(m *store.Message) { m.CacheHit.Bool, m.CacheHit.Valid = hit, true }
}

// WithQueryType records the classified query type of the turn.
func WithQueryType(queryType string) MessageOption {
	return func(m *store.Message) { m.QueryType.String, m.QueryType.Valid = queryType, queryType != "" }
}
