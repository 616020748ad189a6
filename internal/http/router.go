package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/docsight/docsight-backend/internal/http/handlers"
	httpMW "github.com/docsight/docsight-backend/internal/http/middleware"
)

type RouterConfig struct {
	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	// A no-op span when tracing is disabled; the global provider decides.
	r.Use(otelgin.Middleware("docsight-api"))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.DocumentHandler != nil {
			api.POST("/documents", cfg.DocumentHandler.Upload)
			api.GET("/documents", cfg.DocumentHandler.ListByIndex)
			api.GET("/documents/:id", cfg.DocumentHandler.Get)
			api.POST("/documents/:id/process", cfg.DocumentHandler.Process)
			api.GET("/documents/:id/segments", cfg.DocumentHandler.Segments)
			api.GET("/documents/:id/events", cfg.DocumentHandler.Events)
		}
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
