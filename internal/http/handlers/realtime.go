package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/http/response"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/sse"
)

// RealtimeHandler serves the status stream. A client subscribes to one
// document, one index, or both via query params; every pipeline transition
// for those channels is pushed as an SSE message.
type RealtimeHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

func (h *RealtimeHandler) Stream(c *gin.Context) {
	client := h.hub.NewSSEClient()
	subscribed := false

	if v := c.Query("document_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
			return
		}
		h.hub.AddChannel(client, sse.DocumentChannel(id))
		subscribed = true
	}
	if v := c.Query("index_id"); v != "" {
		h.hub.AddChannel(client, sse.IndexChannel(v))
		subscribed = true
	}
	if !subscribed {
		response.RespondError(c, http.StatusBadRequest, "no_channel", nil)
		return
	}

	defer h.hub.RemoveClient(client)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
