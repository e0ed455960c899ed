package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the ingestion state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents one uploaded PDF and its extracted bibliographic metadata.
// Metadata fields stay empty until the extraction pass at the end of ingestion
// fills them in; a failed extraction leaves them empty without failing the
// document.
type Document struct {
	ID          string
	ObjectKey   string
	Filename    string
	Status      DocumentStatus
	Title       string
	Authors     string
	JournalName string
	Year        *int
	DOI         string
	Abstract    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDocument creates a new Document instance in the pending state
func NewDocument(id, objectKey, filename string, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		ObjectKey: objectKey,
		Filename:  filename,
		Status:    DocumentStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ApplyMetadata copies the extracted metadata fields onto the document.
func (d *Document) ApplyMetadata(m Metadata) {
	d.Title = m.Title
	d.Authors = m.Authors
	d.JournalName = m.JournalName
	d.Year = m.Year
	d.DOI = m.DOI
	d.Abstract = m.Abstract
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.ObjectKey == "" {
		return fmt.Errorf("document ObjectKey is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
