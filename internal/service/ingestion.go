package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/telemetry"
	"github.com/google/uuid"
)

// BlobStore fetches raw document bytes by object key. Implementations return
// domain.ErrObjectNotFound (possibly wrapped) when the key does not exist.
type BlobStore interface {
	FetchObject(ctx context.Context, key string) ([]byte, error)
}

// TextExtractor turns document bytes into ordered per-page plain text.
// A page without extractable text is an empty string, not an error.
type TextExtractor interface {
	Pages(ctx context.Context, data []byte) ([]string, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel defines the interface for language-model completions
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	FindByObjectKey(ctx context.Context, objectKey string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	UpdateMetadata(ctx context.Context, id string, m domain.Metadata) error
}

// ChunkRepositoryInterface defines the chunk store: inserts plus cosine
// nearest-neighbor retrieval. Insert is not idempotent; a retried insert with
// a fresh id duplicates the row. Nearest results come back ordered by
// non-increasing similarity, at most topK of them.
type ChunkRepositoryInterface interface {
	Insert(ctx context.Context, c *domain.Chunk) error
	Nearest(ctx context.Context, embedding []float32, topK int) ([]domain.ScoredChunk, error)
	NearestByDocument(ctx context.Context, documentID string, embedding []float32, topK int) ([]domain.ScoredChunk, error)
}

// MetadataExtractorInterface infers bibliographic fields for an ingested document
type MetadataExtractorInterface interface {
	Extract(ctx context.Context, documentID string) (domain.Metadata, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestionService runs the ingestion pipeline for one document: fetch bytes,
// extract page text, chunk, embed and store each chunk in sequence order, then
// extract and persist metadata. Chunk inserts are independent operations with
// no transaction around them; a mid-loop failure leaves the earlier chunks
// persisted.
type IngestionService struct {
	blobs     BlobStore
	extractor TextExtractor
	embedder  EmbeddingClient
	documents DocumentRepositoryInterface
	chunks    ChunkRepositoryInterface
	metadata  MetadataExtractorInterface
	uuidGen   UUIDGenerator
	chunkSize int
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	blobs BlobStore,
	extractor TextExtractor,
	embedder EmbeddingClient,
	documents DocumentRepositoryInterface,
	chunks ChunkRepositoryInterface,
	metadata MetadataExtractorInterface,
) *IngestionService {
	return &IngestionService{
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		documents: documents,
		chunks:    chunks,
		metadata:  metadata,
		uuidGen:   &DefaultUUIDGenerator{},
		chunkSize: DefaultChunkSize,
	}
}

// NewIngestionServiceWithOptions creates an IngestionService with a custom
// UUID generator and chunk size (for testing and configuration).
func NewIngestionServiceWithOptions(
	blobs BlobStore,
	extractor TextExtractor,
	embedder EmbeddingClient,
	documents DocumentRepositoryInterface,
	chunks ChunkRepositoryInterface,
	metadata MetadataExtractorInterface,
	uuidGen UUIDGenerator,
	chunkSize int,
) *IngestionService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &IngestionService{
		blobs:     blobs,
		extractor: extractor,
		embedder:  embedder,
		documents: documents,
		chunks:    chunks,
		metadata:  metadata,
		uuidGen:   uuidGen,
		chunkSize: chunkSize,
	}
}

// Ingest creates a new document record for the object key and runs the full
// pipeline against it. Two calls with the same object key produce two
// independent documents with independent chunk sets; there is no uniqueness
// constraint on object keys.
func (s *IngestionService) Ingest(ctx context.Context, objectKey string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		ObjectKey: objectKey,
	})
	defer span.End()

	if strings.TrimSpace(objectKey) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "object key is required")
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), objectKey, "", time.Now().UTC())
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to create document record", err)
	}

	if err := s.IngestDocument(ctx, doc); err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// IngestByID loads a document record and runs the pipeline against it. The
// background worker uses this entry point for queued uploads.
func (s *IngestionService) IngestByID(ctx context.Context, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	return s.IngestDocument(ctx, doc)
}

// IngestDocument runs the pipeline for an already-created document record.
// On a hard failure the document is marked failed (best effort) and the
// error carries the failing stage's category.
func (s *IngestionService) IngestDocument(ctx context.Context, doc *domain.Document) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestDocument", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		ObjectKey:  doc.ObjectKey,
	})
	defer span.End()

	if err := s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to update document status", err)
	}
	doc.Status = domain.DocumentStatusProcessing

	if err := s.run(ctx, doc); err != nil {
		span.SetError(err)
		if statusErr := s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed); statusErr != nil {
			log.Printf("failed to mark document %s as failed: %v", doc.ID, statusErr)
		}
		doc.Status = domain.DocumentStatusFailed
		return err
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusReady); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to update document status", err)
	}
	doc.Status = domain.DocumentStatusReady
	return nil
}

func (s *IngestionService) run(ctx context.Context, doc *domain.Document) error {
	data, err := s.blobs.FetchObject(ctx, doc.ObjectKey)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			return err
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to fetch document bytes", err)
	}

	pages, err := s.extractor.Pages(ctx, data)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnreadable, "failed to extract document text", err)
	}

	text := joinPages(pages)
	chunks := chunkText(text, s.chunkSize)

	createdAt := time.Now().UTC()
	for i, chunk := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "embedding service failed", err)
		}

		entry := domain.NewChunk(s.uuidGen.NewString(), doc.ID, i, chunk, embedding, createdAt)
		if err := s.chunks.Insert(ctx, entry); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to store chunk", err)
		}
	}

	// Metadata parse failures degrade to empty fields inside the extractor;
	// an error here means an upstream call failed and the pipeline aborts.
	meta, err := s.metadata.Extract(ctx, doc.ID)
	if err != nil {
		return err
	}

	if err := s.documents.UpdateMetadata(ctx, doc.ID, meta); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to persist document metadata", err)
	}
	doc.ApplyMetadata(meta)

	return nil
}

// joinPages concatenates per-page text with a newline separator, skipping
// pages that yielded no text.
func joinPages(pages []string) string {
	nonEmpty := make([]string, 0, len(pages))
	for _, page := range pages {
		if page != "" {
			nonEmpty = append(nonEmpty, page)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
