package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDocument(t *testing.T) {
	now := time.Now()
	doc := NewDocument("d1", "papers/attention.pdf", "attention.pdf", now)

	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "papers/attention.pdf", doc.ObjectKey)
	assert.Equal(t, "attention.pdf", doc.Filename)
	assert.Equal(t, DocumentStatusPending, doc.Status)
	assert.Equal(t, now, doc.CreatedAt)
	assert.Equal(t, now, doc.UpdatedAt)
	assert.Empty(t, doc.Title)
	assert.Nil(t, doc.Year)
}

func TestDocumentStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   DocumentStatus
		expected string
	}{
		{"Pending", DocumentStatusPending, "pending"},
		{"Processing", DocumentStatusProcessing, "processing"},
		{"Ready", DocumentStatusReady, "ready"},
		{"Failed", DocumentStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestApplyMetadata(t *testing.T) {
	doc := NewDocument("d1", "papers/attention.pdf", "attention.pdf", time.Now())
	year := 2017
	doc.ApplyMetadata(Metadata{
		Title:       "Attention Is All You Need",
		Authors:     "Vaswani et al.",
		JournalName: "NeurIPS",
		Year:        &year,
		DOI:         "10.5555/3295222",
	})

	assert.Equal(t, "Attention Is All You Need", doc.Title)
	assert.Equal(t, "Vaswani et al.", doc.Authors)
	assert.Equal(t, "NeurIPS", doc.JournalName)
	assert.Equal(t, 2017, *doc.Year)
	assert.Equal(t, "10.5555/3295222", doc.DOI)
	assert.Empty(t, doc.Abstract)
}

func TestValidateDocument(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		doc     *Document
		wantErr string
	}{
		{
			name: "valid document",
			doc:  NewDocument("d1", "papers/a.pdf", "a.pdf", now),
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: "document cannot be nil",
		},
		{
			name:    "missing ID",
			doc:     &Document{ObjectKey: "papers/a.pdf", Status: DocumentStatusPending},
			wantErr: "document ID is required",
		},
		{
			name:    "missing object key",
			doc:     &Document{ID: "d1", Status: DocumentStatusPending},
			wantErr: "document ObjectKey is required",
		},
		{
			name:    "invalid status",
			doc:     &Document{ID: "d1", ObjectKey: "papers/a.pdf", Status: "archived"},
			wantErr: "document Status is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
