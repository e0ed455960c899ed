package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/brainnote/paperbase/internal/api"
	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	CompleteUpload(ctx context.Context, documentID string) (*domain.IngestJob, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, input service.ListInput) (*service.ListOutput, error)
	DownloadURL(ctx context.Context, id string) (string, error)
}

type IngestionRunner interface {
	Ingest(ctx context.Context, objectKey string) (*domain.Document, error)
}

type DocumentHandler struct {
	svc      DocumentService
	ingester IngestionRunner
}

func NewDocumentHandler(svc DocumentService, ingester IngestionRunner) *DocumentHandler {
	return &DocumentHandler{svc: svc, ingester: ingester}
}

type IngestRequest struct {
	ObjectKey string `json:"object_key"`
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type InitUploadResponse struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	UploadURL  string `json:"upload_url"`
}

type CompleteUploadRequest struct {
	DocumentID string `json:"document_id"`
}

type CompleteUploadResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type DocumentResponse struct {
	ID          string `json:"id"`
	ObjectKey   string `json:"object_key"`
	Filename    string `json:"filename,omitempty"`
	Status      string `json:"status"`
	Title       string `json:"title,omitempty"`
	Authors     string `json:"authors,omitempty"`
	JournalName string `json:"journal_name,omitempty"`
	Year        *int   `json:"year,omitempty"`
	DOI         string `json:"doi,omitempty"`
	Abstract    string `json:"abstract,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		ObjectKey:   d.ObjectKey,
		Filename:    d.Filename,
		Status:      string(d.Status),
		Title:       d.Title,
		Authors:     d.Authors,
		JournalName: d.JournalName,
		Year:        d.Year,
		DOI:         d.DOI,
		Abstract:    d.Abstract,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
	}
}

// Ingest runs the full ingestion pipeline synchronously for an object that
// already exists in the bucket.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ObjectKey == "" {
		api.Error(w, http.StatusBadRequest, "object_key is required")
		return
	}

	doc, err := h.ingester.Ingest(r.Context(), req.ObjectKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

// InitUpload creates a pending document and returns a presigned PUT URL.
func (h *DocumentHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, InitUploadResponse{
		DocumentID: result.DocumentID,
		ObjectKey:  result.ObjectKey,
		UploadURL:  result.UploadURL,
	})
}

// CompleteUpload enqueues an ingest job for an uploaded document.
func (h *DocumentHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DocumentID == "" {
		api.Error(w, http.StatusBadRequest, "document_id is required")
		return
	}

	job, err := h.svc.CompleteUpload(r.Context(), req.DocumentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, CompleteUploadResponse{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
		Status:     string(job.Status),
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListInput{
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(output.Items))
	for i, d := range output.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

type DownloadResponse struct {
	DownloadURL string `json:"download_url"`
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadResponse{DownloadURL: url})
}
