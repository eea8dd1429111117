package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/commandcenter/commandcenter/pkg/apperr"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Chunk is one embedded slice of a document's full text (spec.md §3
// Chunk, §4.2 step 4).
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	OrderIndex int
	Text       string
	TokenCount int
	Embedding  []float32
}

// ScoredChunk is a Chunk returned from a similarity search, carrying
// its cosine similarity against the query embedding.
type ScoredChunk struct {
	Chunk
	Similarity float64
}

// ChunkStore persists chunks and their pgvector embeddings.
type ChunkStore struct {
	db *sql.DB
}

// ReplaceForDocument deletes any existing chunks for documentID and
// inserts chunks in a single transaction, keeping order_index stable
// (spec.md §4.2 step 4: re-sync fully replaces a document's chunks).
func (s *ChunkStore) ReplaceForDocument(ctx context.Context, tx *sql.Tx, documentID uuid.UUID, chunks []Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete existing chunks", err)
	}
	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, order_index, text, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, documentID, c.OrderIndex, c.Text, c.TokenCount, pgvector.NewVector(c.Embedding))
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("insert chunk %d for document %s", c.OrderIndex, documentID), err)
		}
	}
	return nil
}

// Search performs a cosine-similarity nearest-neighbor search over all
// chunks (spec.md §4.4 KB search: embed query, rank by cosine
// similarity, filter by threshold, cap at topK).
func (s *ChunkStore) Search(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) ([]ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, order_index, text, token_count,
			1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(queryEmbedding), threshold, topK)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "search chunks", err)
	}
	defer rows.Close()

	var out []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.DocumentID, &sc.OrderIndex, &sc.Text, &sc.TokenCount, &sc.Similarity); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan scored chunk", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// CountForDocument returns how many chunks exist for a document.
func (s *ChunkStore) CountForDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count chunks", err)
	}
	return n, nil
}

// TotalCount returns the total number of chunks across all documents,
// used by pkg/kb's stats operation.
func (s *ChunkStore) TotalCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count all chunks", err)
	}
	return n, nil
}
