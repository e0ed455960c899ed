//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const embeddingDims = 1536

// unitVector builds a 1536-dim unit vector pointing along the given axis.
// Cosine distances between axis vectors are exact, which keeps ranking
// assertions deterministic.
func unitVector(axis int) []float32 {
	v := make([]float32, embeddingDims)
	v[axis] = 1
	return v
}

// blendVector leans mostly along axis a with a small component along axis b.
func blendVector(a, b int) []float32 {
	v := make([]float32, embeddingDims)
	v[a] = 0.9
	v[b] = 0.1
	return v
}

func insertChunk(ctx context.Context, t *testing.T, repo *ChunkRepository, documentID string, seq int, text string, embedding []float32) *domain.Chunk {
	chunk := domain.NewChunk(uuid.NewString(), documentID, seq, text, embedding,
		time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Insert(ctx, chunk))
	return chunk
}

func TestChunkRepository_InsertAndNearest(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	documents := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)

	doc := newTestDocument("documents/d1/paper.pdf")
	require.NoError(t, documents.Create(ctx, doc))

	insertChunk(ctx, t, chunks, doc.ID, 0, "exact match", unitVector(0))
	insertChunk(ctx, t, chunks, doc.ID, 1, "close match", blendVector(0, 1))
	insertChunk(ctx, t, chunks, doc.ID, 2, "unrelated", unitVector(2))

	scored, err := chunks.Nearest(ctx, unitVector(0), 2)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.Equal(t, "exact match", scored[0].Chunk.Text)
	assert.Equal(t, "close match", scored[1].Chunk.Text)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-4)
	assert.Greater(t, scored[0].Score, scored[1].Score)
	assert.Len(t, scored[0].Chunk.Embedding, embeddingDims)
}

func TestChunkRepository_Nearest_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chunks := NewChunkRepository(pool)

	scored, err := chunks.Nearest(ctx, unitVector(0), 5)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestChunkRepository_NearestByDocument_ScopesToDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	documents := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)

	mine := newTestDocument("documents/mine/paper.pdf")
	require.NoError(t, documents.Create(ctx, mine))
	other := newTestDocument("documents/other/paper.pdf")
	require.NoError(t, documents.Create(ctx, other))

	insertChunk(ctx, t, chunks, mine.ID, 0, "my chunk", blendVector(0, 1))
	// A perfect match lives in the other document.
	insertChunk(ctx, t, chunks, other.ID, 0, "foreign chunk", unitVector(0))

	scored, err := chunks.NearestByDocument(ctx, mine.ID, unitVector(0), 5)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "my chunk", scored[0].Chunk.Text)
	assert.Equal(t, mine.ID, scored[0].Chunk.DocumentID)
}

func TestChunkRepository_Nearest_TopKLimitsResults(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	documents := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)

	doc := newTestDocument("documents/d1/paper.pdf")
	require.NoError(t, documents.Create(ctx, doc))

	for i := 0; i < 8; i++ {
		insertChunk(ctx, t, chunks, doc.ID, i, "chunk", blendVector(0, i+1))
	}

	scored, err := chunks.Nearest(ctx, unitVector(0), 3)
	require.NoError(t, err)
	assert.Len(t, scored, 3)

	// Non-positive topK falls back to the default of 5.
	scored, err = chunks.Nearest(ctx, unitVector(0), 0)
	require.NoError(t, err)
	assert.Len(t, scored, 5)
}
