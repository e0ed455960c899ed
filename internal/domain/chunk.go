package domain

import (
	"fmt"
	"time"
)

// Chunk represents one fixed-size slice of a document's extracted text.
// Chunks are immutable after creation; concatenating a document's chunks in
// SequenceNumber order reproduces the extracted text.
type Chunk struct {
	ID             string
	DocumentID     string
	SequenceNumber int
	Text           string
	Embedding      []float32
	CreatedAt      time.Time
}

// NewChunk creates a new Chunk instance
func NewChunk(id, documentID string, sequenceNumber int, text string, embedding []float32, createdAt time.Time) *Chunk {
	return &Chunk{
		ID:             id,
		DocumentID:     documentID,
		SequenceNumber: sequenceNumber,
		Text:           text,
		Embedding:      embedding,
		CreatedAt:      createdAt,
	}
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.SequenceNumber < 0 {
		return fmt.Errorf("chunk SequenceNumber cannot be negative")
	}

	if len(c.Embedding) == 0 {
		return fmt.Errorf("chunk Embedding is required")
	}

	return nil
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}
