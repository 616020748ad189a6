package docrun

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate is the process-wide admission control for segment analysis. Many
// documents fan out at once; the ceiling is shared across all of them, not
// per document, so the worker's model/API pressure stays bounded no matter
// how many runs are in ParallelAnalysis simultaneously.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate(ceiling int) *Gate {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(ceiling))}
}

// Acquire blocks until a slot frees or the context ends.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

func (g *Gate) Release() {
	g.sem.Release(1)
}
