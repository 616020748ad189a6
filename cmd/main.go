package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/data/db"
	"github.com/docsight/docsight-backend/internal/data/repos/documents"
	"github.com/docsight/docsight-backend/internal/docrun"
	httpserver "github.com/docsight/docsight-backend/internal/http"
	httpH "github.com/docsight/docsight-backend/internal/http/handlers"
	"github.com/docsight/docsight-backend/internal/platform/envutil"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/platform/observability"
	"github.com/docsight/docsight-backend/internal/realtime/bus"
	"github.com/docsight/docsight-backend/internal/services"
	"github.com/docsight/docsight-backend/internal/sse"
	"github.com/docsight/docsight-backend/internal/temporalx"
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

	if stop := observability.InitTracing(context.Background(), log, observability.Config{
		ServiceName: "docsight-api",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	}); stop != nil {
		defer stop(context.Background())
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

	// Realtime: the hub serves this process's SSE clients; with a bus
	// configured, worker-side transitions reach the hub through the
	// forwarder.
	sseHub := sse.NewSSEHub(log)
	eventBus, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis bus unavailable; realtime limited to this process", "error", err)
		eventBus = nil
	} else {
		defer eventBus.Close()
		if err := eventBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Redis bus forwarder failed to start", "error", err)
		}
	}

	// Storage
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init bucket service", "error", err)
		os.Exit(1)
	}

	// Services
	notifier := services.NewDocumentNotifier(log, sseHub, eventBus)
	documentService := services.NewDocumentService(log, docRepo, segmentRepo, eventRepo, bucketService, notifier)

	// Temporal
	cfg := docrun.LoadConfig(log)
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Temporal client init failed", "error", err)
		os.Exit(1)
	}
	if tc == nil {
		log.Error("Temporal is required for the API; set TEMPORAL_ADDRESS")
		os.Exit(1)
	}
	defer tc.Close()

	starter, err := docrun.NewStarter(log, tc, docrun.NewRegistry(), cfg)
	if err != nil {
		log.Error("Could not init run starter", "error", err)
		os.Exit(1)
	}

	// HTTP
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:   httpH.NewHealthHandler(),
		DocumentHandler: httpH.NewDocumentHandler(log, documentService, starter),
		RealtimeHandler: httpH.NewRealtimeHandler(log, sseHub),
	})

	port := envutil.GetEnv("PORT", "8080", log)
	log.Info("API listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
