package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brainnote/paperbase/internal/api/handlers"
	"github.com/brainnote/paperbase/internal/config"
	"github.com/brainnote/paperbase/internal/database"
	"github.com/brainnote/paperbase/internal/domain"
	"github.com/brainnote/paperbase/internal/extract"
	"github.com/brainnote/paperbase/internal/jobs"
	paperopenai "github.com/brainnote/paperbase/internal/openai"
	"github.com/brainnote/paperbase/internal/repository"
	"github.com/brainnote/paperbase/internal/server"
	"github.com/brainnote/paperbase/internal/service"
	"github.com/brainnote/paperbase/internal/storage"
	"github.com/brainnote/paperbase/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the paperbase API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)

	var storageAdapter *S3StorageAdapter
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageAdapter = &S3StorageAdapter{client: s3Client}
	}

	var ingestionRunner handlers.IngestionRunner = &NoOpIngestionRunner{}
	var answerSvc handlers.AnswerService = &NoOpAnswerService{}
	var ingestWorker *jobs.Worker

	if cfg.HasOpenAI() && storageAdapter != nil {
		llmClient := paperopenai.NewClientWithConfig(paperopenai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: openai.EmbeddingModel(cfg.OpenAIEmbeddingModel),
			ChatModel:      cfg.OpenAIChatModel,
		})

		metadataExtractor := service.NewMetadataExtractorWithProfile(
			llmClient, chunkRepo, llmClient,
			domain.MetadataProfile(cfg.MetadataProfile), cfg.RetrievalTopK,
		)
		ingestionSvc := service.NewIngestionServiceWithOptions(
			storageAdapter, extract.NewPDFExtractor(), llmClient,
			documentRepo, chunkRepo, metadataExtractor,
			nil, cfg.ChunkSize,
		)
		ingestionRunner = ingestionSvc
		answerSvc = service.NewQueryServiceWithOptions(
			llmClient, chunkRepo, llmClient,
			cfg.RetrievalTopK, cfg.FallbackLanguage,
		)

		ingestProcessor := jobs.NewIngestWorker(ingestJobRepo, ingestionSvc)
		ingestWorker = jobs.NewWorker(ingestProcessor, 10*time.Second)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	} else {
		log.Println("ingestion pipeline disabled: OPENAI_API_KEY and S3 settings required")
	}

	var storageClient service.StorageClientInterface
	if storageAdapter != nil {
		storageClient = storageAdapter
	}
	documentSvc := service.NewDocumentService(documentRepo, storageClient, ingestJobRepo)

	routerCfg := server.RouterConfig{
		APIKey:          cfg.APIKey,
		DocumentHandler: handlers.NewDocumentHandler(documentSvc, ingestionRunner),
		AskHandler:      handlers.NewAskHandler(answerSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// S3StorageAdapter bridges the storage client to the service interfaces,
// translating the storage sentinel into the domain's not-found error.
type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) FetchObject(ctx context.Context, key string) ([]byte, error) {
	data, err := a.client.FetchObject(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, domain.ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (a *S3StorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *S3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

type NoOpIngestionRunner struct{}

func (s *NoOpIngestionRunner) Ingest(ctx context.Context, objectKey string) (*domain.Document, error) {
	return nil, domain.NewDomainError(domain.ErrCodeInternalError, "ingestion not configured: OPENAI_API_KEY and S3_ENDPOINT required")
}

type NoOpAnswerService struct{}

func (s *NoOpAnswerService) Answer(ctx context.Context, question string) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeInternalError, "query pipeline not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
