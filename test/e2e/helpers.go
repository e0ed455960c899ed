//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brainnote/paperbase/internal/api/handlers"
	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/jobs"
	"github.com/brainnote/paperbase/internal/repository"
	"github.com/brainnote/paperbase/internal/server"
	"github.com/brainnote/paperbase/internal/service"
	"github.com/brainnote/paperbase/internal/storage"
	"github.com/brainnote/paperbase/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testAPIKey guards the e2e server so auth enforcement is exercised too.
const testAPIKey = "pb_e2e_0123456789abcdef"

// embeddingDims matches the vector(1536) column in the schema.
const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	WorkerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	Chat         *fakeChat
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment: containers, migrated
// schema, object store, and the HTTP server plus background worker wired
// with deterministic fakes for the AI and PDF boundaries.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	chat := &fakeChat{}
	serverURL, serverCloser, workerCloser := startServer(t, pool, s3Client, chat, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		WorkerCloser: workerCloser,
		S3Client:     s3Client,
		Chat:         chat,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.WorkerCloser != nil {
		e.WorkerCloser()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the paperbase and paperbased binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "paperbase-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "paperbased"), "./cmd/paperbased")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build paperbased: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "paperbase"), "./cmd/paperbase")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build paperbase: %v\n%s", err, out)
	}
}

// RunPaperbase runs the paperbase CLI against the test server
func (e *E2ETestEnv) RunPaperbase(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "paperbase"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("PAPERBASE_API_KEY=%s", testAPIKey),
		fmt.Sprintf("PAPERBASE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadFile uploads content to a presigned URL
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequest("PUT", uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	return nil
}

// DownloadFile downloads content from a presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// WaitForDocumentStatus polls GET /documents/{id} until the document reaches
// the wanted status or the timeout expires.
func (e *E2ETestEnv) WaitForDocumentStatus(documentID, want string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	var last string
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/"+documentID, testAPIKey)
		if err == nil {
			var doc struct {
				Status string `json:"status"`
			}
			if json.Unmarshal(resp.Data, &doc) == nil {
				last = doc.Status
				if doc.Status == want {
					return
				}
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	e.T.Fatalf("document %s did not reach status %q within %v (last seen %q)", documentID, want, timeout, last)
}

// startServer wires the full pipeline with fakes at the AI and PDF
// boundaries and starts the HTTP server plus the ingest worker.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, chat *fakeChat, port int) (string, func(), func()) {
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)

	blobs := &s3BlobAdapter{client: s3Client}
	embedder := &fakeEmbedder{}
	extractor := &textExtractor{}

	metadataExtractor := service.NewMetadataExtractor(embedder, chunkRepo, chat)
	ingestionSvc := service.NewIngestionService(blobs, extractor, embedder, documentRepo, chunkRepo, metadataExtractor)
	querySvc := service.NewQueryService(embedder, chunkRepo, chat)
	documentSvc := service.NewDocumentService(documentRepo, blobs, ingestJobRepo)

	router := server.NewRouter(server.RouterConfig{
		APIKey:          testAPIKey,
		DocumentHandler: handlers.NewDocumentHandler(documentSvc, ingestionSvc),
		AskHandler:      handlers.NewAskHandler(querySvc),
	})

	ingestWorker := jobs.NewIngestWorker(ingestJobRepo, ingestionSvc)
	worker := jobs.NewWorker(ingestWorker, 200*time.Millisecond)
	go worker.Start(context.Background())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	serverCloser := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return serverURL, serverCloser, worker.Stop
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// s3BlobAdapter adapts S3Client to the service interfaces
type s3BlobAdapter struct {
	client *storage.S3Client
}

func (a *s3BlobAdapter) FetchObject(ctx context.Context, key string) ([]byte, error) {
	data, err := a.client.FetchObject(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, domain.ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (a *s3BlobAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *s3BlobAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

// textExtractor treats stored bytes as plain UTF-8 text, one page. Real PDF
// parsing is out of scope here; the pipeline under test starts at extracted
// text.
type textExtractor struct{}

func (e *textExtractor) Pages(ctx context.Context, data []byte) ([]string, error) {
	return []string{string(data)}, nil
}

// fakeEmbedder produces a deterministic unit-length vector from a hash of
// the text, so identical texts always land at the same point and retrieval
// is reproducible.
type fakeEmbedder struct{}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, embeddingDims)
	// Spread the digest over a handful of axes; leave the rest zero.
	for i := 0; i < 8; i++ {
		axis := binary.BigEndian.Uint16(sum[i*2:]) % embeddingDims
		v[axis] += 1
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	scale := float32(1 / math.Sqrt(norm+1e-9))
	for i := range v {
		v[i] *= scale
	}
	return v, nil
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeChat answers metadata prompts with a canned JSON object and question
// prompts with a recognizable markdown answer.
type fakeChat struct {
	LastPrompt string
}

func (f *fakeChat) Complete(ctx context.Context, prompt string) (string, error) {
	f.LastPrompt = prompt
	if strings.Contains(prompt, "bibliographic information") {
		return `{"title": "E2E Test Paper", "authors": "Doe, Roe", "journal_name": "Journal of Testing", "year": "2024", "doi": "10.1000/e2e"}`, nil
	}
	return "## Answer\n\nThe corpus says: tests pass.", nil
}
