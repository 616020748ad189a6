package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docsight/docsight-backend/internal/clients/openai"
	"github.com/docsight/docsight-backend/internal/clients/pinecone"
	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

// DocumentSummarizer rolls the completed segment summaries up into one
// document-level summary and indexes it. Failed segments simply drop out of
// the corpus; the roll-up works with whatever completed.
type DocumentSummarizer interface {
	Summarize(ctx context.Context, doc *domain.Document, segments []*domain.Segment) (string, error)
}

type documentSummarizer struct {
	log *logger.Logger
	ai  openai.Client
	vs  pinecone.VectorStore
}

func NewDocumentSummarizer(log *logger.Logger, ai openai.Client, vs pinecone.VectorStore) DocumentSummarizer {
	return &documentSummarizer{
		log: log.With("service", "DocumentSummarizer"),
		ai:  ai,
		vs:  vs,
	}
}

const summarizerSystemPrompt = `You write the single document-level summary from per-segment summaries.
Order matters: segments appear in document order. Produce prose, not a list, and do not mention segments.`

func (s *documentSummarizer) Summarize(ctx context.Context, doc *domain.Document, segments []*domain.Segment) (string, error) {
	corpus := summaryCorpus(segments)
	if corpus == "" {
		return "", fmt.Errorf("no completed segments to summarize for document %s", doc.ID)
	}

	user := fmt.Sprintf("File: %s\n\nSegment summaries in order:\n%s", doc.FileName, corpus)
	summary, err := s.ai.GenerateText(ctx, summarizerSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("summarize document: %w", err)
	}
	summary = strings.TrimSpace(summary)

	vecs, err := s.ai.Embed(ctx, []string{summary})
	if err != nil {
		return "", fmt.Errorf("embed document summary: %w", err)
	}
	err = s.vs.Upsert(ctx, doc.IndexID, []pinecone.Vector{{
		ID:     fmt.Sprintf("doc:%s:summary", doc.ID),
		Values: vecs[0],
		Metadata: map[string]any{
			"document_id": doc.ID.String(),
			"file_name":   doc.FileName,
			"kind":        "document_summary",
		},
	}})
	if err != nil {
		return "", fmt.Errorf("upsert summary vector: %w", err)
	}

	s.log.Info("document summarized", "document_id", doc.ID, "segments_used", strings.Count(corpus, "\n")+1)
	return summary, nil
}

// summaryCorpus joins completed segment summaries in segment order.
func summaryCorpus(segments []*domain.Segment) string {
	ordered := make([]*domain.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg != nil && seg.Status == domain.SegmentStatusCompleted && strings.TrimSpace(seg.Summary) != "" {
			ordered = append(ordered, seg)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SegmentIndex < ordered[j].SegmentIndex })

	lines := make([]string, 0, len(ordered))
	for _, seg := range ordered {
		lines = append(lines, fmt.Sprintf("%d. %s", seg.SegmentIndex+1, strings.TrimSpace(seg.Summary)))
	}
	return strings.Join(lines, "\n")
}
