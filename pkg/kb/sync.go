package kb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/commandcenter/commandcenter/pkg/docprovider"
	"github.com/commandcenter/commandcenter/pkg/embedding"
	"github.com/commandcenter/commandcenter/pkg/store"
)

// Phase is the current stage of a running sync (spec.md §4.2
// progress stream).
type Phase string

const (
	PhaseListing    Phase = "listing"
	PhaseFetching   Phase = "fetching"
	PhaseChunking   Phase = "chunking"
	PhaseEmbedding  Phase = "embedding"
	PhaseFinalizing Phase = "finalizing"
)

// ProgressEvent is one update emitted on the sync progress stream. The
// final event of a run has Done set and, on success, Updated/Deleted/
// Failed filled in as the kb.sync RPC's closing summary (spec.md §6);
// Err is non-nil only if the whole run failed outright.
type ProgressEvent struct {
	Processed    int
	Total        int
	CurrentTitle string
	Phase        Phase
	Done         bool
	Updated      int
	Deleted      int
	Failed       int
	Err          error
}

// Service runs the knowledge-base sync pipeline and semantic search
// (spec.md §4.2), grounded on the teacher's queue.Worker lifecycle for
// the "long job reporting progress to a channel" shape.
type Service struct {
	docs      *store.DocumentStore
	chunks    *store.ChunkStore
	syncLog   *store.SyncLogStore
	provider  docprovider.Provider
	embedder  embedding.Embedder
	cfg       Config
	logger    *slog.Logger
	kbVersion *atomic.Int64
}

// Config holds the sync/search tunables (mirrors config.KBConfig).
type Config struct {
	RootFolderID      string
	ContextFolderName string
	ChunkSize         int
	ChunkOverlap      int
	EmbedMaxAttempts  int
	SimilarityDefault float64
	SearchDefaultTopK int
}

// New constructs a Service.
func New(docs *store.DocumentStore, chunks *store.ChunkStore, syncLog *store.SyncLogStore, provider docprovider.Provider, embedder embedding.Embedder, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		docs: docs, chunks: chunks, syncLog: syncLog, provider: provider, embedder: embedder,
		cfg: cfg, logger: logger, kbVersion: &atomic.Int64{},
	}
}

// KBVersion returns the current knowledge-base version counter, bumped
// on every successful sync. pkg/contextmgr folds this into its cache
// key fingerprint so a resync invalidates stale cached responses
// (spec.md §4.3 cache key, §9 Open Question resolution).
func (s *Service) KBVersion() int64 {
	return s.kbVersion.Load()
}

// Sync runs the full sync protocol and streams progress on the
// returned channel, which is closed after the final event. force
// bypasses the external_mtime skip check.
func (s *Service) Sync(ctx context.Context, force bool) <-chan ProgressEvent {
	out := make(chan ProgressEvent, 8)
	go s.run(ctx, force, out)
	return out
}

func (s *Service) run(ctx context.Context, force bool, out chan<- ProgressEvent) {
	defer close(out)

	emit := func(processed, total int, title string, phase Phase) {
		select {
		case out <- ProgressEvent{Processed: processed, Total: total, CurrentTitle: title, Phase: phase}:
		case <-ctx.Done():
		}
	}

	logID, err := s.syncLog.Start(ctx)
	if err != nil {
		out <- ProgressEvent{Done: true, Err: err}
		return
	}

	emit(0, 0, "", PhaseListing)
	metas, err := s.provider.ListDocuments(ctx, s.cfg.RootFolderID, false)
	if err != nil {
		_ = s.syncLog.Finish(ctx, logID, store.SyncLogFailed, 0, 0, 0, 0)
		out <- ProgressEvent{Done: true, Err: err}
		return
	}

	total := len(metas)
	var processed, updated, failed int
	keep := make([]string, 0, total)
	chunker := NewChunker(s.cfg.ChunkSize, s.cfg.ChunkOverlap)

	for i, meta := range metas {
		select {
		case <-ctx.Done():
			_ = s.syncLog.Finish(ctx, logID, store.SyncLogFailed, processed, updated, 0, failed)
			out <- ProgressEvent{Done: true, Err: ctx.Err()}
			return
		default:
		}

		keep = append(keep, meta.ExternalID)
		processed = i + 1
		emit(processed, total, meta.Title, PhaseFetching)

		didUpdate, syncErr := s.syncOne(ctx, meta, force, chunker, func(phase Phase) {
			emit(processed, total, meta.Title, phase)
		})
		if syncErr != nil {
			failed++
			s.logger.WarnContext(ctx, "document sync failed", "external_id", meta.ExternalID, "error", syncErr)
			continue
		}
		if didUpdate {
			updated++
		}
	}

	emit(processed, total, "", PhaseFinalizing)
	deleted, err := s.docs.DeleteMissing(ctx, keep)
	if err != nil {
		_ = s.syncLog.Finish(ctx, logID, store.SyncLogFailed, processed, updated, 0, failed)
		out <- ProgressEvent{Done: true, Err: err}
		return
	}

	status := store.SyncLogCompleted
	if err := s.syncLog.Finish(ctx, logID, status, processed, updated, deleted, failed); err != nil {
		out <- ProgressEvent{Done: true, Err: err}
		return
	}
	s.kbVersion.Add(1)
	out <- ProgressEvent{
		Processed: processed, Total: total, Phase: PhaseFinalizing, Done: true,
		Updated: updated, Deleted: deleted, Failed: failed,
	}
}

// syncOne processes a single document end to end. didUpdate is false
// when the document was skipped because it is unchanged since its
// last sync.
func (s *Service) syncOne(ctx context.Context, meta docprovider.DocumentMeta, force bool, chunker *Chunker, onPhase func(Phase)) (didUpdate bool, err error) {
	existing, err := s.docs.GetByExternalID(ctx, meta.ExternalID)
	hasExisting := !errors.Is(err, apperr.ErrDocumentNotFound)
	if err != nil && hasExisting {
		return false, err
	}

	if hasExisting && !force && !meta.ModifiedAt.After(existing.LastSyncedAt.Time) {
		return false, nil
	}

	text, err := s.provider.FetchText(ctx, meta.ExternalID, meta.MimeKind)
	if err != nil {
		if hasExisting && errors.Is(err, docprovider.ErrNotFound) {
			// Document was listed but vanished upstream before we could
			// fetch it; record the boundary on the existing row instead
			// of leaving its last-known-good sync_error stale. Not
			// retried within this run (spec.md §8 named boundary).
			if markErr := s.docs.WithExternalIDLock(ctx, meta.ExternalID, func(tx *sql.Tx) error {
				return s.docs.MarkFailed(ctx, tx, meta.ExternalID, "not_found")
			}); markErr != nil {
				return false, markErr
			}
		}
		return false, err
	}
	text = strings.TrimSpace(text)

	onPhase(PhaseChunking)
	pieces := chunker.Split(text)

	onPhase(PhaseEmbedding)
	chunks := make([]store.Chunk, 0, len(pieces))
	for _, p := range pieces {
		vec, embErr := embedWithRetry(ctx, s.embedder, p.Text, s.cfg.EmbedMaxAttempts)
		if embErr != nil {
			if markErr := s.docs.WithExternalIDLock(ctx, meta.ExternalID, func(tx *sql.Tx) error {
				return s.docs.MarkFailed(ctx, tx, meta.ExternalID, embErr.Error())
			}); markErr != nil {
				return false, markErr
			}
			return false, embErr
		}
		chunks = append(chunks, store.Chunk{
			OrderIndex: p.OrderIndex,
			Text:       p.Text,
			TokenCount: p.TokenCount,
			Embedding:  vec,
		})
	}

	isContext := s.cfg.ContextFolderName != "" && strings.Contains(meta.FolderPath, s.cfg.ContextFolderName)
	docID := existing.ID

	now := time.Now()
	return true, s.docs.WithExternalIDLock(ctx, meta.ExternalID, func(tx *sql.Tx) error {
		id, err := s.docs.Upsert(ctx, tx, store.Document{
			ID:            docID,
			ExternalID:    meta.ExternalID,
			Title:         meta.Title,
			FolderPath:    meta.FolderPath,
			MimeKind:      meta.MimeKind,
			FullText:      text,
			IsContextFile: isContext,
			TokenCount:    estimateTokens(text),
			Status:        "ok",
			LastSyncedAt:  sql.NullTime{Time: now, Valid: true},
			ExternalMtime: sql.NullTime{Time: meta.ModifiedAt, Valid: !meta.ModifiedAt.IsZero()},
		})
		if err != nil {
			return err
		}
		return s.chunks.ReplaceForDocument(ctx, tx, id, chunks)
	})
}
