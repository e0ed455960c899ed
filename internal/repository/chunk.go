package repository

import (
	"context"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists chunk records and performs nearest-neighbor
// retrieval. Ranking happens server-side with pgvector's cosine-distance
// operator; the score returned to callers is cosine similarity (1 - distance),
// matching domain.CosineSimilarity.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Insert persists one chunk. Not idempotent: retrying with a fresh id writes
// a duplicate row.
func (r *ChunkRepository) Insert(ctx context.Context, c *domain.Chunk) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chunks (id, document_id, sequence_number, text, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.DocumentID, c.SequenceNumber, c.Text, pgvector.NewVector(c.Embedding), c.CreatedAt,
	)
	return err
}

// Nearest returns the topK chunks most similar to the query vector across the
// whole corpus, ordered by non-increasing cosine similarity.
func (r *ChunkRepository) Nearest(ctx context.Context, embedding []float32, topK int) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, sequence_number, text, embedding,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredChunks(rows, topK)
}

// NearestByDocument restricts the search to one document's chunks. The
// metadata probe uses this so neighboring documents never leak into a
// document's own metadata.
func (r *ChunkRepository) NearestByDocument(ctx context.Context, documentID string, embedding []float32, topK int) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, sequence_number, text, embedding,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 WHERE document_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(embedding), documentID, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredChunks(rows, topK)
}

func scanScoredChunks(rows pgx.Rows, topK int) ([]domain.ScoredChunk, error) {
	results := make([]domain.ScoredChunk, 0, topK)
	for rows.Next() {
		var sc domain.ScoredChunk
		var vec pgvector.Vector
		if err := rows.Scan(&sc.Chunk.ID, &sc.Chunk.DocumentID, &sc.Chunk.SequenceNumber,
			&sc.Chunk.Text, &vec, &sc.Score); err != nil {
			return nil, err
		}
		sc.Chunk.Embedding = vec.Slice()
		results = append(results, sc)
	}
	return results, rows.Err()
}
