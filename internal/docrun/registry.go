package docrun

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
)

// Registry tracks which documents have a run in flight in this process, so
// the trigger can refuse a duplicate start before touching Temporal. The
// WorkflowID gives the same guarantee cluster-wide; this is the cheap local
// fast path.
type Registry struct {
	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{inflight: make(map[uuid.UUID]struct{})}
}

// Acquire claims the document with create-if-absent semantics. A second
// Acquire before Release returns ErrAlreadyProcessing.
func (r *Registry) Acquire(documentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[documentID]; ok {
		return fmt.Errorf("document %s: %w", documentID, pkgerrors.ErrAlreadyProcessing)
	}
	r.inflight[documentID] = struct{}{}
	return nil
}

// Release is safe to call for a document that was never acquired.
func (r *Registry) Release(documentID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, documentID)
}

func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}
