package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/docsight/docsight-backend/internal/clients/openai"
	"github.com/docsight/docsight-backend/internal/clients/pinecone"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type FinalizeInput struct {
	DocumentID   uuid.UUID
	IndexID      string
	SegmentID    uuid.UUID
	SegmentIndex int
	Analysis     datatypes.JSON
}

type FinalizeResult struct {
	Analysis datatypes.JSON
	Summary  string
}

// SegmentFinalizer condenses the raw iteration output into the record that
// gets persisted and indexed: one structured analysis plus an embedding of
// its summary in the vector store.
type SegmentFinalizer interface {
	Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error)
}

type segmentFinalizer struct {
	log *logger.Logger
	ai  openai.Client
	vs  pinecone.VectorStore
}

func NewSegmentFinalizer(log *logger.Logger, ai openai.Client, vs pinecone.VectorStore) SegmentFinalizer {
	return &segmentFinalizer{
		log: log.With("service", "SegmentFinalizer"),
		ai:  ai,
		vs:  vs,
	}
}

const finalizerSystemPrompt = `You consolidate iterative analysis notes about one segment into a final record.
Keep only findings that survived scrutiny, deduplicate aggressively, and write a summary a reader can use without the source.`

var finalAnalysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":  map[string]any{"type": "string"},
		"findings": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"entities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"topics":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required":             []string{"summary", "findings", "entities", "topics"},
	"additionalProperties": false,
}

func (s *segmentFinalizer) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	var out FinalizeResult
	if len(in.Analysis) == 0 {
		return out, fmt.Errorf("nothing to finalize for segment %s", in.SegmentID)
	}

	final, err := s.ai.GenerateJSON(ctx, finalizerSystemPrompt,
		"Analysis notes:\n"+string(in.Analysis), "segment_final_analysis", finalAnalysisSchema)
	if err != nil {
		return out, fmt.Errorf("finalize segment: %w", err)
	}

	summary, _ := final["summary"].(string)
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return out, fmt.Errorf("finalized analysis missing summary")
	}

	vecs, err := s.ai.Embed(ctx, []string{summary})
	if err != nil {
		return out, fmt.Errorf("embed segment summary: %w", err)
	}
	err = s.vs.Upsert(ctx, in.IndexID, []pinecone.Vector{{
		ID:     fmt.Sprintf("doc:%s:segment:%d", in.DocumentID, in.SegmentIndex),
		Values: vecs[0],
		Metadata: map[string]any{
			"document_id":   in.DocumentID.String(),
			"segment_index": in.SegmentIndex,
			"kind":          "segment_summary",
		},
	}})
	if err != nil {
		return out, fmt.Errorf("upsert segment vector: %w", err)
	}

	raw, err := json.Marshal(final)
	if err != nil {
		return out, err
	}
	out.Analysis = datatypes.JSON(raw)
	out.Summary = summary
	return out, nil
}
