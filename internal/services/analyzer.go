package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/clients/openai"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type AnalyzeInput struct {
	DocumentID    uuid.UUID
	IndexID       string
	SegmentID     uuid.UUID
	SegmentIndex  int
	FileName      string
	MediaType     string
	PageText      string
	ImageURI      string
	StartTimecode string
	MaxIterations int
}

type AnalysisResult struct {
	Analysis   datatypes.JSON
	Summary    string
	Iterations int
}

// SegmentAnalyzer runs the iterative reason-and-act loop over one segment.
// Each iteration asks the model to extend its findings and decide whether
// another pass is worthwhile; the loop is capped so a model that never
// settles cannot run away.
type SegmentAnalyzer interface {
	Analyze(ctx context.Context, in AnalyzeInput) (AnalysisResult, error)
}

type segmentAnalyzer struct {
	log    *logger.Logger
	ai     openai.Client
	bucket gcp.BucketService
}

func NewSegmentAnalyzer(log *logger.Logger, ai openai.Client, bucket gcp.BucketService) SegmentAnalyzer {
	return &segmentAnalyzer{
		log:    log.With("service", "SegmentAnalyzer"),
		ai:     ai,
		bucket: bucket,
	}
}

const analyzerSystemPrompt = `You are an analyst working through one segment of a larger document or recording.
Each turn, reason about what the segment contains, extend the findings, and set done=true once another pass would add nothing.
Findings must be specific and self-contained; never repeat a finding already listed.`

var analysisStepSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"thought":  map[string]any{"type": "string"},
		"findings": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"summary":  map[string]any{"type": "string"},
		"done":     map[string]any{"type": "boolean"},
	},
	"required":             []string{"thought", "findings", "summary", "done"},
	"additionalProperties": false,
}

func (s *segmentAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) (AnalysisResult, error) {
	var out AnalysisResult
	if in.MaxIterations <= 0 {
		in.MaxIterations = 5
	}

	var (
		findings []string
		summary  string
		thoughts []string
	)

	for iteration := 1; iteration <= in.MaxIterations; iteration++ {
		user := buildAnalysisPrompt(in, findings)

		var (
			step map[string]any
			err  error
		)
		if in.ImageURI != "" && in.PageText == "" {
			// Frame-only segments: describe the frame first, then reason over
			// the description so the structured step stays text-based.
			desc, derr := s.ai.GenerateTextWithImages(ctx, analyzerSystemPrompt,
				"Describe everything relevant in this frame.", []openai.ImageInput{{ImageURL: in.ImageURI, Detail: "high"}})
			if derr != nil {
				return out, fmt.Errorf("describe frame: %w", derr)
			}
			in.PageText = desc
			user = buildAnalysisPrompt(in, findings)
		}
		step, err = s.ai.GenerateJSON(ctx, analyzerSystemPrompt, user, "segment_analysis_step", analysisStepSchema)
		if err != nil {
			return out, fmt.Errorf("analysis iteration %d: %w", iteration, err)
		}

		findings = mergeFindings(findings, stepFindings(step))
		if v, ok := step["summary"].(string); ok && strings.TrimSpace(v) != "" {
			summary = strings.TrimSpace(v)
		}
		if v, ok := step["thought"].(string); ok && strings.TrimSpace(v) != "" {
			thoughts = append(thoughts, strings.TrimSpace(v))
		}
		out.Iterations = iteration

		key := fmt.Sprintf("artifacts/%s/%d/iteration_%d.json", in.DocumentID, in.SegmentIndex, iteration)
		if err := s.bucket.WriteJSON(ctx, key, step); err != nil {
			s.log.Warn("iteration artifact write failed", "key", key, "error", err)
		}

		if stepDone(step) {
			break
		}
	}

	if len(findings) == 0 {
		return out, fmt.Errorf("analysis produced no findings after %d iterations", out.Iterations)
	}
	if summary == "" {
		summary = findings[0]
	}

	raw, err := json.Marshal(map[string]any{
		"findings":   findings,
		"thoughts":   thoughts,
		"summary":    summary,
		"iterations": out.Iterations,
	})
	if err != nil {
		return out, err
	}
	out.Analysis = datatypes.JSON(raw)
	out.Summary = summary
	return out, nil
}

func buildAnalysisPrompt(in AnalyzeInput, findings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\nMedia type: %s\nSegment index: %d\n", in.FileName, in.MediaType, in.SegmentIndex)
	if in.StartTimecode != "" {
		fmt.Fprintf(&b, "Segment start: %s\n", in.StartTimecode)
	}
	if in.PageText != "" {
		fmt.Fprintf(&b, "\nSegment content:\n%s\n", in.PageText)
	}
	if len(findings) > 0 {
		b.WriteString("\nFindings so far:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\nExtend these findings. Set done=true if nothing new remains.\n")
	}
	return b.String()
}

func stepFindings(step map[string]any) []string {
	raw, ok := step["findings"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func stepDone(step map[string]any) bool {
	done, ok := step["done"].(bool)
	return ok && done
}

func mergeFindings(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[strings.ToLower(f)] = true
	}
	out := existing
	for _, f := range fresh {
		if !seen[strings.ToLower(f)] {
			seen[strings.ToLower(f)] = true
			out = append(out, f)
		}
	}
	return out
}
