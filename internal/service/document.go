package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/pagination"
)

// StorageClientInterface covers the presigned-URL operations the document
// service needs from the blob store.
type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// IngestJobRepositoryInterface defines the repository interface for ingest job persistence
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// DocumentListRepositoryInterface adds cursor listing to the document repository
type DocumentListRepositoryInterface interface {
	DocumentRepositoryInterface
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
}

// DocumentPageResult is one page of a cursor-paginated document listing
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DocumentService handles the upload surface and document reads: presigned
// uploads, queued ingestion on upload completion, listing, and downloads.
type DocumentService struct {
	documents  DocumentListRepositoryInterface
	storage    StorageClientInterface
	ingestJobs IngestJobRepositoryInterface
	uuidGen    UUIDGenerator
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	documents DocumentListRepositoryInterface,
	storage StorageClientInterface,
	ingestJobs IngestJobRepositoryInterface,
) *DocumentService {
	return &DocumentService{
		documents:  documents,
		storage:    storage,
		ingestJobs: ingestJobs,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewDocumentServiceWithUUIDGen creates a DocumentService with a custom UUID generator (for testing)
func NewDocumentServiceWithUUIDGen(
	documents DocumentListRepositoryInterface,
	storage StorageClientInterface,
	ingestJobs IngestJobRepositoryInterface,
	uuidGen UUIDGenerator,
) *DocumentService {
	return &DocumentService{
		documents:  documents,
		storage:    storage,
		ingestJobs: ingestJobs,
		uuidGen:    uuidGen,
	}
}

// InitUploadInput represents the input for starting an upload
type InitUploadInput struct {
	Filename    string
	ContentType string
}

// InitUploadResult carries the presigned URL and the created document record
type InitUploadResult struct {
	DocumentID string
	ObjectKey  string
	UploadURL  string
}

// InitUpload creates a pending document record and a presigned PUT URL the
// caller uploads the PDF to.
func (s *DocumentService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if s.storage == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInternalError, "object storage not configured")
	}
	if strings.TrimSpace(input.Filename) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}

	documentID := s.uuidGen.NewString()
	objectKey := buildObjectKey(documentID, input.Filename)

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	uploadURL, err := s.storage.GenerateUploadURL(ctx, objectKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	doc := domain.NewDocument(documentID, objectKey, path.Base(input.Filename), time.Now().UTC())
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	return &InitUploadResult{
		DocumentID: documentID,
		ObjectKey:  objectKey,
		UploadURL:  uploadURL,
	}, nil
}

// CompleteUpload enqueues an ingest job for a previously initialized upload.
// The background worker picks the job up and runs the pipeline.
func (s *DocumentService) CompleteUpload(ctx context.Context, documentID string) (*domain.IngestJob, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if doc.Status != domain.DocumentStatusPending {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("document is %s, only pending documents can be queued", doc.Status))
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), doc.ID, time.Now().UTC())
	if err := s.ingestJobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue ingest job: %w", err)
	}

	return job, nil
}

// GetByID returns one document with its metadata and status
func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.GetByID(ctx, id)
}

// ListInput represents the input for listing documents
type ListInput struct {
	Cursor string
	Limit  int
}

// ListOutput is one page of documents
type ListOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// List returns documents ordered by recency with cursor pagination
func (s *DocumentService) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	page, err := s.documents.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// DownloadURL returns a presigned GET URL for the document's stored PDF
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	if s.storage == nil {
		return "", domain.NewDomainError(domain.ErrCodeInternalError, "object storage not configured")
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.storage.GenerateDownloadURL(ctx, doc.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return url, nil
}

// buildObjectKey namespaces stored objects by document id. The filename keeps
// only its base to avoid path traversal through user input.
func buildObjectKey(documentID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return fmt.Sprintf("documents/%s/%s", documentID, base)
}
