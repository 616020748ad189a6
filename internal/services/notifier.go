package services

import (
	"context"

	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/realtime/bus"
	"github.com/docsight/docsight-backend/internal/sse"
)

// DocumentNotifier pushes status changes to subscribers. Messages go to the
// document channel and the owning index channel; when a bus is configured the
// message also crosses process boundaries so every API replica sees it.
type DocumentNotifier interface {
	StatusChanged(ctx context.Context, doc *domain.Document)
	SummaryReady(ctx context.Context, doc *domain.Document)
}

type documentNotifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus bus.Bus
}

func NewDocumentNotifier(log *logger.Logger, hub *sse.SSEHub, b bus.Bus) DocumentNotifier {
	return &documentNotifier{
		log: log.With("service", "DocumentNotifier"),
		hub: hub,
		bus: b,
	}
}

func (n *documentNotifier) StatusChanged(ctx context.Context, doc *domain.Document) {
	if doc == nil {
		return
	}
	data := map[string]any{
		"document_id": doc.ID,
		"file_name":   doc.FileName,
		"new_status":  domain.FoldStatus(doc.Status),
		"progress":    domain.ProgressPercent(doc.Status),
	}
	if doc.StatusDetail != "" {
		data["detail"] = doc.StatusDetail
	}
	n.emit(ctx, sse.SSEEventDocumentStatus, doc, data)
}

func (n *documentNotifier) SummaryReady(ctx context.Context, doc *domain.Document) {
	if doc == nil {
		return
	}
	n.emit(ctx, sse.SSEEventDocumentSummary, doc, map[string]any{
		"document_id": doc.ID,
		"file_name":   doc.FileName,
		"summary":     doc.Summary,
	})
}

func (n *documentNotifier) emit(ctx context.Context, event sse.SSEEvent, doc *domain.Document, data map[string]any) {
	channels := []string{sse.DocumentChannel(doc.ID)}
	if doc.IndexID != "" {
		channels = append(channels, sse.IndexChannel(doc.IndexID))
	}
	for _, ch := range channels {
		msg := sse.SSEMessage{Channel: ch, Event: event, Data: data}
		// With a bus the local hub hears the message through its forwarder;
		// broadcasting directly too would double-deliver.
		if n.bus != nil {
			if err := n.bus.Publish(ctx, msg); err != nil {
				n.log.Warn("event bus publish failed", "channel", ch, "error", err)
			}
			continue
		}
		if n.hub != nil {
			n.hub.Broadcast(msg)
		}
	}
}
