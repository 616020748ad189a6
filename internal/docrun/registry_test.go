package docrun

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
)

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()

	if err := r.Acquire(id); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := r.Acquire(id); !errors.Is(err, pkgerrors.ErrAlreadyProcessing) {
		t.Fatalf("second Acquire = %v, want ErrAlreadyProcessing", err)
	}

	r.Release(id)
	if err := r.Acquire(id); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	if n := r.InFlight(); n != 1 {
		t.Fatalf("InFlight = %d, want 1", n)
	}
}

func TestRegistryReleaseUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Release(uuid.New())
	if n := r.InFlight(); n != 0 {
		t.Fatalf("InFlight = %d, want 0", n)
	}
}

func TestRegistryConcurrentAcquire(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()

	var wg sync.WaitGroup
	won := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Acquire(id) == nil {
				won <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(won)

	winners := 0
	for range won {
		winners++
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}
