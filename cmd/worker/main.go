package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/clients/media"
	"github.com/docsight/docsight-backend/internal/clients/openai"
	"github.com/docsight/docsight-backend/internal/clients/pinecone"
	"github.com/docsight/docsight-backend/internal/data/db"
	"github.com/docsight/docsight-backend/internal/data/repos/documents"
	"github.com/docsight/docsight-backend/internal/docrun"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/platform/observability"
	"github.com/docsight/docsight-backend/internal/realtime/bus"
	"github.com/docsight/docsight-backend/internal/services"
	"github.com/docsight/docsight-backend/internal/sse"
	"github.com/docsight/docsight-backend/internal/temporalx"
	"github.com/docsight/docsight-backend/internal/temporalx/temporalworker"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if stopTracing := observability.InitTracing(ctx, log, observability.Config{
		ServiceName: "docsight-worker",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	}); stopTracing != nil {
		defer stopTracing(context.Background())
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	gdb := postgresService.DB()

	// Repos
	docRepo := documents.NewDocumentRepo(gdb, log)
	segmentRepo := documents.NewSegmentRepo(gdb, log)
	eventRepo := documents.NewDocumentEventRepo(gdb, log)

	// Realtime. The worker publishes to the bus; API processes forward to
	// their SSE clients. Without Redis the local hub is the only audience.
	sseHub := sse.NewSSEHub(log)
	eventBus, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis bus unavailable; status events stay process-local", "error", err)
		eventBus = nil
	}
	if eventBus != nil {
		defer eventBus.Close()
	}

	// Clients
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init bucket service", "error", err)
		os.Exit(1)
	}
	extractionClient, err := extraction.NewService(log)
	if err != nil {
		log.Error("Could not init extraction client", "error", err)
		os.Exit(1)
	}
	defer extractionClient.Close()
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.New(log, pinecone.ConfigFromEnv())
	if err != nil {
		log.Error("Could not init Pinecone client", "error", err)
		os.Exit(1)
	}
	vectorStore, err := pinecone.NewVectorStore(log, pineconeClient)
	if err != nil {
		log.Error("Could not init vector store", "error", err)
		os.Exit(1)
	}

	mediaTools := media.New(log)
	if err := mediaTools.AssertReady(ctx); err != nil {
		log.Warn("media tools unavailable; video segments run without frames", "error", err)
	}

	// Services
	notifier := services.NewDocumentNotifier(log, sseHub, eventBus)
	documentService := services.NewDocumentService(log, docRepo, segmentRepo, eventRepo, bucketService, notifier)
	pdfTextService := services.NewPDFTextService(log, bucketService, aiClient, vectorStore)
	analyzer := services.NewSegmentAnalyzer(log, aiClient, bucketService)
	finalizer := services.NewSegmentFinalizer(log, aiClient, vectorStore)
	summarizer := services.NewDocumentSummarizer(log, aiClient, vectorStore)
	frameService := services.NewFrameService(log, bucketService, mediaTools)

	// Temporal worker
	cfg := docrun.LoadConfig(log)
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal client init failed", "error", err)
		os.Exit(1)
	}
	if tc == nil {
		log.Error("Temporal is required for the worker; set TEMPORAL_ADDRESS")
		os.Exit(1)
	}
	defer tc.Close()

	acts := &docrun.Activities{
		Log:        log,
		Docs:       docRepo,
		Segments:   segmentRepo,
		Documents:  documentService,
		PDFText:    pdfTextService,
		Analyzer:   analyzer,
		Finalizer:  finalizer,
		Summarizer: summarizer,
		Extraction: extractionClient,
		Bucket:     bucketService,
		Frames:     frameService,
		Gate:       docrun.NewGate(cfg.MaxParallelSegments),
		Config:     cfg,
	}

	runner, err := temporalworker.NewRunner(log, tc, acts, cfg)
	if err != nil {
		log.Error("Could not init Temporal worker", "error", err)
		os.Exit(1)
	}
	if err := runner.Start(ctx); err != nil {
		log.Error("Temporal worker failed to start", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("Worker shutting down")
}
