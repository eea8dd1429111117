package kb

import (
	"context"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
)

// SearchResult is one ranked hit from Search (spec.md §4.2 search).
type SearchResult struct {
	DocumentTitle string
	Folder        string
	ChunkText     string
	Similarity    float64
}

// Search embeds text with the same provider used at sync time, ranks
// chunks by cosine similarity, filters below threshold and caps at
// topK. A knowledge base with zero chunks returns an empty slice, not
// an error (spec.md §8 "vector store with zero chunks" property).
func (s *Service) Search(ctx context.Context, text string, topK int, threshold float64) ([]SearchResult, error) {
	if topK <= 0 {
		topK = s.cfg.SearchDefaultTopK
	}
	if threshold <= 0 {
		threshold = s.cfg.SimilarityDefault
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, apperr.WrapContext(apperr.KindUpstreamTransient, "embed search query", err)
	}

	scored, err := s.chunks.Search(ctx, vec, topK, threshold)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(scored))
	for _, sc := range scored {
		doc, err := s.docs.Get(ctx, sc.DocumentID)
		if err != nil {
			continue
		}
		out = append(out, SearchResult{
			DocumentTitle: doc.Title,
			Folder:        doc.FolderPath,
			ChunkText:     sc.Text,
			Similarity:    sc.Similarity,
		})
	}
	return out, nil
}

// Stats is the kb.stats RPC response shape (spec.md §6).
type Stats struct {
	Documents       int
	Chunks          int
	ContextFiles    int
	TotalTokens     int
	LastSyncTime    string
	SuccessfulSyncs int
	FailedSyncs     int
}

// GetStats aggregates the kb.stats RPC response (spec.md §6): document
// and chunk counts, the context-file subset, total stored tokens, and
// sync-run history. A store with no sync runs yet reports a zero
// LastSyncTime rather than erroring.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	docs, err := s.docs.List(ctx, false)
	if err != nil {
		return Stats{}, err
	}

	var contextFiles, totalTokens int
	for _, d := range docs {
		if d.IsContextFile {
			contextFiles++
		}
		totalTokens += d.TokenCount
	}

	chunkCount, err := s.chunks.TotalCount(ctx)
	if err != nil {
		return Stats{}, err
	}

	successful, failed, err := s.syncLog.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Documents:       len(docs),
		Chunks:          chunkCount,
		ContextFiles:    contextFiles,
		TotalTokens:     totalTokens,
		SuccessfulSyncs: successful,
		FailedSyncs:     failed,
	}

	if latest, err := s.syncLog.Latest(ctx); err == nil {
		stats.LastSyncTime = latest.StartedAt.Format(time.RFC3339)
	}

	return stats, nil
}

// AlwaysOnDocuments returns the full text of every document flagged
// as a context file, used to populate the context-files section of
// the context bundle (spec.md §4.1 step 5, §4.2 "always-on documents").
func (s *Service) AlwaysOnDocuments(ctx context.Context) ([]SearchResult, error) {
	docs, err := s.docs.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, SearchResult{DocumentTitle: d.Title, Folder: d.FolderPath, ChunkText: d.FullText})
	}
	return out, nil
}
