package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/brainnote/paperbase/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed ingest job.
	MaxRetries = 3

	// ClaimBatchSize caps how many jobs one polling pass claims.
	ClaimBatchSize = 10
)

// IngestJobRepository defines the persistence operations the worker needs.
type IngestJobRepository interface {
	// ClaimPending atomically claims up to limit pending jobs.
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus moves a job to a new status, recording an error message
	// for failed jobs.
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	// RequeueForRetry puts a failed job back in the pending queue and bumps
	// its retry count.
	RequeueForRetry(ctx context.Context, id string, errMsg string) error
}

// DocumentIngester runs the ingestion pipeline for a stored document.
type DocumentIngester interface {
	IngestByID(ctx context.Context, documentID string) error
}

// IngestWorker drains the ingest job queue, running the pipeline for each
// claimed job.
type IngestWorker struct {
	repo     IngestJobRepository
	ingester DocumentIngester
}

func NewIngestWorker(repo IngestJobRepository, ingester DocumentIngester) *IngestWorker {
	return &IngestWorker{
		repo:     repo,
		ingester: ingester,
	}
}

// ProcessJobs implements the JobProcessor interface.
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	if err := w.ingester.IngestByID(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.RequeueForRetry(ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue job for retry: %w", err)
	}

	return nil
}
