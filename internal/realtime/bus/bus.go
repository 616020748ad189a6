package bus

import (
	"context"

	"github.com/docsight/docsight-backend/internal/sse"
)

// Bus fans SSE messages across processes. The worker publishes status
// changes; each API replica forwards them into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg sse.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error
	Close() error
}
