package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestFinalizeUpsertsSegmentVector(t *testing.T) {
	ai := &fakeAI{
		jsonSteps: []map[string]any{
			{
				"summary":  "segment covers intake valves",
				"findings": []any{"valve clearances listed"},
				"entities": []any{"intake valve"},
				"topics":   []any{"maintenance"},
			},
		},
	}
	vs := newFakeVectorStore()
	finalizer := NewSegmentFinalizer(testLogger(t), ai, vs)

	docID := uuid.New()
	res, err := finalizer.Finalize(context.Background(), FinalizeInput{
		DocumentID:   docID,
		IndexID:      "idx-9",
		SegmentID:    uuid.New(),
		SegmentIndex: 7,
		Analysis:     datatypes.JSON([]byte(`{"findings":["raw note"]}`)),
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Summary != "segment covers intake valves" {
		t.Fatalf("summary = %q", res.Summary)
	}

	vecs := vs.upserts["idx-9"]
	if len(vecs) != 1 {
		t.Fatalf("upserts = %d, want 1", len(vecs))
	}
	wantID := fmt.Sprintf("doc:%s:segment:7", docID)
	if vecs[0].ID != wantID {
		t.Fatalf("vector id = %q, want %q", vecs[0].ID, wantID)
	}
}

func TestFinalizeEmptyAnalysisFails(t *testing.T) {
	finalizer := NewSegmentFinalizer(testLogger(t), &fakeAI{}, newFakeVectorStore())
	if _, err := finalizer.Finalize(context.Background(), FinalizeInput{
		DocumentID: uuid.New(),
		SegmentID:  uuid.New(),
	}); err == nil {
		t.Fatal("want error for empty analysis")
	}
}

func TestFinalizeMissingSummaryFails(t *testing.T) {
	ai := &fakeAI{
		jsonSteps: []map[string]any{
			{"summary": "  ", "findings": []any{}, "entities": []any{}, "topics": []any{}},
		},
	}
	finalizer := NewSegmentFinalizer(testLogger(t), ai, newFakeVectorStore())
	if _, err := finalizer.Finalize(context.Background(), FinalizeInput{
		DocumentID: uuid.New(),
		SegmentID:  uuid.New(),
		Analysis:   datatypes.JSON([]byte(`{"findings":["x"]}`)),
	}); err == nil {
		t.Fatal("want error for blank summary")
	}
}
