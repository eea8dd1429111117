// Package store is the hand-written repository layer over the schema
// in pkg/database/migrations. It replaces the teacher's ent-generated
// client (codegen is unavailable in this build) with parameterized SQL
// via database/sql + the pgx stdlib driver, following the same
// validate-then-query-then-wrap shape as the teacher's pkg/services.
package store

import (
	"database/sql"
)

// Store bundles every repository over a single *sql.DB. Callers
// typically construct one Store at startup and pass it (or its
// individual repositories) to higher-level packages.
type Store struct {
	Documents     *DocumentStore
	Chunks        *ChunkStore
	Conversations *ConversationStore
	Messages      *MessageStore
	Telemetry     *TelemetryStore
	SyncLog       *SyncLogStore
	Executions    *ExecutionStore
	Preferences   *PreferenceStore
}

// New constructs a Store with every repository wired to db.
func New(db *sql.DB) *Store {
	return &Store{
		Documents:     &DocumentStore{db: db},
		Chunks:        &ChunkStore{db: db},
		Conversations: &ConversationStore{db: db},
		Messages:      &MessageStore{db: db},
		Telemetry:     &TelemetryStore{db: db},
		SyncLog:       &SyncLogStore{db: db},
		Executions:    &ExecutionStore{db: db},
		Preferences:   &PreferenceStore{db: db},
	}
}
