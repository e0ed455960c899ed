package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ingestionFixture struct {
	blobs     *MockBlobStore
	extractor *MockTextExtractor
	embedder  *MockEmbeddingClient
	documents *MockDocumentRepository
	chunks    *MockChunkRepository
	metadata  *MockMetadataExtractor
	service   *IngestionService
}

func newIngestionFixture(chunkSize int) *ingestionFixture {
	f := &ingestionFixture{
		blobs:     new(MockBlobStore),
		extractor: new(MockTextExtractor),
		embedder:  new(MockEmbeddingClient),
		documents: new(MockDocumentRepository),
		chunks:    new(MockChunkRepository),
		metadata:  new(MockMetadataExtractor),
	}
	f.service = NewIngestionServiceWithOptions(
		f.blobs, f.extractor, f.embedder, f.documents, f.chunks, f.metadata,
		&seqUUIDGenerator{}, chunkSize,
	)
	return f
}

func TestIngest_Success(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	pdfBytes := []byte("%PDF-1.4 fake")
	pageText := strings.Repeat("a", 1024)
	embedding := []float32{0.1, 0.2, 0.3}

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/a.pdf").Return(pdfBytes, nil)
	f.extractor.On("Pages", ctx, pdfBytes).Return([]string{pageText}, nil)
	f.embedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return(embedding, nil)
	f.chunks.On("Insert", ctx, mock.AnythingOfType("*domain.Chunk")).Return(nil)
	f.metadata.On("Extract", ctx, "uuid-1").Return(domain.Metadata{Title: "A Paper"}, nil)
	f.documents.On("UpdateMetadata", ctx, "uuid-1", domain.Metadata{Title: "A Paper"}).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusReady).Return(nil)

	doc, err := f.service.Ingest(ctx, "papers/a.pdf")

	require.NoError(t, err)
	assert.Equal(t, "uuid-1", doc.ID)
	assert.Equal(t, domain.DocumentStatusReady, doc.Status)
	assert.Equal(t, "A Paper", doc.Title)

	// 1024 characters at size 512 yields exactly two chunks in sequence order.
	f.chunks.AssertNumberOfCalls(t, "Insert", 2)
	inserted := make([]*domain.Chunk, 0, 2)
	for _, call := range f.chunks.Calls {
		if call.Method == "Insert" {
			inserted = append(inserted, call.Arguments.Get(1).(*domain.Chunk))
		}
	}
	require.Len(t, inserted, 2)
	assert.Equal(t, 0, inserted[0].SequenceNumber)
	assert.Equal(t, 1, inserted[1].SequenceNumber)
	assert.Equal(t, pageText, inserted[0].Text+inserted[1].Text)
}

func TestIngest_EmptyObjectKey(t *testing.T) {
	f := newIngestionFixture(512)

	_, err := f.service.Ingest(context.Background(), "  ")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	f.blobs.AssertNotCalled(t, "FetchObject", mock.Anything, mock.Anything)
}

func TestIngest_DuplicateObjectKeyProducesDistinctDocuments(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("domain.DocumentStatus")).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/a.pdf").Return([]byte("pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return([]string{"some page text"}, nil)
	f.embedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return([]float32{0.1}, nil)
	f.chunks.On("Insert", ctx, mock.AnythingOfType("*domain.Chunk")).Return(nil)
	f.metadata.On("Extract", ctx, mock.AnythingOfType("string")).Return(domain.Metadata{}, nil)
	f.documents.On("UpdateMetadata", ctx, mock.AnythingOfType("string"), domain.Metadata{}).Return(nil)

	first, err := f.service.Ingest(ctx, "papers/a.pdf")
	require.NoError(t, err)
	second, err := f.service.Ingest(ctx, "papers/a.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestIngest_EmptyDocumentStillExtractsMetadata(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/empty.pdf").Return([]byte("pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return([]string{"", ""}, nil)
	f.metadata.On("Extract", ctx, "uuid-1").Return(domain.Metadata{}, nil)
	f.documents.On("UpdateMetadata", ctx, "uuid-1", domain.Metadata{}).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusReady).Return(nil)

	doc, err := f.service.Ingest(ctx, "papers/empty.pdf")

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusReady, doc.Status)
	f.chunks.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	f.metadata.AssertCalled(t, "Extract", ctx, "uuid-1")
}

func TestIngest_ObjectNotFound(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/missing.pdf").Return(nil, domain.ErrObjectNotFound)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed).Return(nil)

	_, err := f.service.Ingest(ctx, "papers/missing.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
	f.documents.AssertCalled(t, "UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed)
}

func TestIngest_UnreadablePDF(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/broken.pdf").Return([]byte("not a pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return(nil, errors.New("malformed xref table"))
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed).Return(nil)

	_, err := f.service.Ingest(ctx, "papers/broken.pdf")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnreadable, domainErr.Code)
}

func TestIngest_EmbeddingFailureAborts(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/a.pdf").Return([]byte("pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return([]string{"page text"}, nil)
	f.embedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return(nil, errors.New("rate limited"))
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed).Return(nil)

	_, err := f.service.Ingest(ctx, "papers/a.pdf")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUpstream, domainErr.Code)
	f.chunks.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.metadata.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestIngest_ChunkInsertFailureAborts(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/a.pdf").Return([]byte("pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return([]string{"page text"}, nil)
	f.embedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return([]float32{0.1}, nil)
	f.chunks.On("Insert", ctx, mock.AnythingOfType("*domain.Chunk")).Return(errors.New("connection reset"))
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed).Return(nil)

	_, err := f.service.Ingest(ctx, "papers/a.pdf")

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}

func TestIngest_MetadataUpstreamFailureAborts(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("Create", ctx, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/a.pdf").Return([]byte("pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return([]string{"page text"}, nil)
	f.embedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return([]float32{0.1}, nil)
	f.chunks.On("Insert", ctx, mock.AnythingOfType("*domain.Chunk")).Return(nil)
	f.metadata.On("Extract", ctx, "uuid-1").
		Return(domain.Metadata{}, domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "completion service failed", errors.New("timeout")))
	f.documents.On("UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed).Return(nil)

	_, err := f.service.Ingest(ctx, "papers/a.pdf")

	require.Error(t, err)
	f.documents.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
	f.documents.AssertCalled(t, "UpdateStatus", ctx, "uuid-1", domain.DocumentStatusFailed)
}

func TestIngestByID_Success(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	doc := domain.NewDocument("d1", "papers/a.pdf", "a.pdf", testTime())
	f.documents.On("GetByID", ctx, "d1").Return(doc, nil)
	f.documents.On("UpdateStatus", ctx, "d1", domain.DocumentStatusProcessing).Return(nil)
	f.blobs.On("FetchObject", ctx, "papers/a.pdf").Return([]byte("pdf"), nil)
	f.extractor.On("Pages", ctx, mock.Anything).Return([]string{"page text"}, nil)
	f.embedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return([]float32{0.1}, nil)
	f.chunks.On("Insert", ctx, mock.AnythingOfType("*domain.Chunk")).Return(nil)
	f.metadata.On("Extract", ctx, "d1").Return(domain.Metadata{}, nil)
	f.documents.On("UpdateMetadata", ctx, "d1", domain.Metadata{}).Return(nil)
	f.documents.On("UpdateStatus", ctx, "d1", domain.DocumentStatusReady).Return(nil)

	err := f.service.IngestByID(ctx, "d1")

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusReady, doc.Status)
}

func TestIngestByID_DocumentNotFound(t *testing.T) {
	f := newIngestionFixture(512)
	ctx := context.Background()

	f.documents.On("GetByID", ctx, "unknown").Return(nil, domain.ErrDocumentNotFound)

	err := f.service.IngestByID(ctx, "unknown")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "one\ntwo", joinPages([]string{"one", "", "two"}))
	assert.Equal(t, "", joinPages([]string{"", ""}))
	assert.Equal(t, "", joinPages(nil))
}
