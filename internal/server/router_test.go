package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brainnote/paperbase/internal/api/handlers"
	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "pb_0123456789abcdef0123456789abcdef"

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitUploadResult), args.Error(1)
}

func (m *MockDocumentService) CompleteUpload(ctx context.Context, documentID string) (*domain.IngestJob, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestJob), args.Error(1)
}

func (m *MockDocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, input service.ListInput) (*service.ListOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListOutput), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type MockIngestionRunner struct {
	mock.Mock
}

func (m *MockIngestionRunner) Ingest(ctx context.Context, objectKey string) (*domain.Document, error) {
	args := m.Called(ctx, objectKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Answer(ctx context.Context, question string) (string, error) {
	args := m.Called(ctx, question)
	return args.String(0), args.Error(1)
}

func setupRouter(apiKey string) (http.Handler, *MockDocumentService, *MockIngestionRunner, *MockAnswerService) {
	documentSvc := new(MockDocumentService)
	runner := new(MockIngestionRunner)
	answerSvc := new(MockAnswerService)

	cfg := RouterConfig{
		APIKey:          apiKey,
		DocumentHandler: handlers.NewDocumentHandler(documentSvc, runner),
		AskHandler:      handlers.NewAskHandler(answerSvc),
	}

	return NewRouter(cfg), documentSvc, runner, answerSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter(testAPIKey)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, _, _, _ := setupRouter(testAPIKey)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents/ingest"},
		{http.MethodPost, "/documents/upload/init"},
		{http.MethodPost, "/documents/upload/complete"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/123"},
		{http.MethodGet, "/documents/123/download"},
		{http.MethodPost, "/ask"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router, documentSvc, _, _ := setupRouter(testAPIKey)

	expectedDoc := &domain.Document{
		ID:        "doc-123",
		ObjectKey: "documents/doc-123/paper.pdf",
		Status:    domain.DocumentStatusReady,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	documentSvc.On("GetByID", mock.Anything, "doc-123").Return(expectedDoc, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-123", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	documentSvc.AssertExpectations(t)
}

func TestRouter_NoAPIKeyConfigured_RunsOpen(t *testing.T) {
	router, _, _, answerSvc := setupRouter("")

	answerSvc.On("Answer", mock.Anything, "What is attention?").Return("An answer.", nil)

	body := `{"question":"What is attention?"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	answerSvc.AssertExpectations(t)
}
