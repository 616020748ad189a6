package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestHubBroadcastRouting(t *testing.T) {
	hub := NewSSEHub(testLogger(t))

	docID := uuid.New()
	sub := hub.NewSSEClient()
	other := hub.NewSSEClient()
	hub.AddChannel(sub, DocumentChannel(docID))
	hub.AddChannel(other, IndexChannel("idx-1"))

	hub.Broadcast(SSEMessage{
		Channel: DocumentChannel(docID),
		Event:   SSEEventDocumentStatus,
		Data:    map[string]any{"new_status": "summarizing"},
	})

	select {
	case msg := <-sub.Outbound:
		if msg.Event != SSEEventDocumentStatus {
			t.Fatalf("event = %q", msg.Event)
		}
	default:
		t.Fatal("subscriber did not receive message")
	}

	select {
	case msg := <-other.Outbound:
		t.Fatalf("unexpected message on other client: %+v", msg)
	default:
	}
}

func TestHubRemoveClient(t *testing.T) {
	hub := NewSSEHub(testLogger(t))

	sub := hub.NewSSEClient()
	ch := IndexChannel("idx-2")
	hub.AddChannel(sub, ch)
	hub.RemoveClient(sub)

	hub.Broadcast(SSEMessage{Channel: ch, Event: SSEEventDocumentStatus})
	select {
	case msg := <-sub.Outbound:
		t.Fatalf("message after removal: %+v", msg)
	default:
	}
}
