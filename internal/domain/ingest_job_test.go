package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIngestJob(t *testing.T) {
	now := time.Now()
	job := NewIngestJob("j1", "d1", now)

	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, "d1", job.DocumentID)
	assert.Equal(t, IngestJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Empty(t, job.Error)
	assert.Equal(t, now, job.CreatedAt)
	assert.Nil(t, job.ProcessedAt)
}

func TestIngestJobStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   IngestJobStatus
		expected string
	}{
		{"Pending", IngestJobStatusPending, "pending"},
		{"Processing", IngestJobStatusProcessing, "processing"},
		{"Completed", IngestJobStatusCompleted, "completed"},
		{"Failed", IngestJobStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestValidateIngestJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *IngestJob
		wantErr string
	}{
		{
			name: "valid job",
			job:  NewIngestJob("j1", "d1", now),
		},
		{
			name:    "nil job",
			job:     nil,
			wantErr: "ingest job cannot be nil",
		},
		{
			name:    "missing ID",
			job:     &IngestJob{DocumentID: "d1", Status: IngestJobStatusPending},
			wantErr: "ingest job ID is required",
		},
		{
			name:    "missing document ID",
			job:     &IngestJob{ID: "j1", Status: IngestJobStatusPending},
			wantErr: "ingest job DocumentID is required",
		},
		{
			name:    "invalid status",
			job:     &IngestJob{ID: "j1", DocumentID: "d1", Status: "queued"},
			wantErr: "ingest job Status is invalid",
		},
		{
			name:    "negative retries",
			job:     &IngestJob{ID: "j1", DocumentID: "d1", Status: IngestJobStatusPending, Retries: -1},
			wantErr: "ingest job Retries cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestJob(tt.job)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
