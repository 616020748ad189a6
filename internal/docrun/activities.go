package docrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/data/repos/documents"
	"github.com/docsight/docsight-backend/internal/domain"
	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/services"
)

// Activities is the side-effecting half of the run. Every method is invoked
// by registered name from the workflow; none of them hold state across
// calls, so a retried or re-driven invocation observes only the database.
type Activities struct {
	Log *logger.Logger

	Docs     documents.DocumentRepo
	Segments documents.SegmentRepo

	Documents  services.DocumentService
	PDFText    services.PDFTextService
	Analyzer   services.SegmentAnalyzer
	Finalizer  services.SegmentFinalizer
	Summarizer services.DocumentSummarizer

	Extraction extraction.Client
	Bucket     gcp.BucketService
	Frames     services.FrameService

	Gate   *Gate
	Config Config

	// heartbeatEvery overrides the heartbeat cadence; zero means the
	// default. Only tests set it.
	heartbeatEvery time.Duration
}

// RecordStatus persists one lifecycle transition. Writes into a document
// that already reached a terminal status are treated as settled, not as
// errors; a late transition from a slow sub-task must not fail the run.
func (a *Activities) RecordStatus(ctx context.Context, in RecordStatusInput) error {
	err := a.Documents.RecordStatus(ctx, in.DocumentID, in.Status, in.Detail)
	if err == nil {
		return nil
	}
	if errors.Is(err, pkgerrors.ErrTerminalStatus) {
		if a.Log != nil {
			a.Log.Warn("status write after terminal, ignoring",
				"document_id", in.DocumentID, "status", in.Status)
		}
		return nil
	}
	return err
}

func (a *Activities) SubmitExtraction(ctx context.Context, in StartInput) (extraction.JobHandle, error) {
	h, err := a.Extraction.Submit(ctx, extraction.SubmitInput{
		DocumentID:     in.DocumentID,
		FileURI:        in.FileURI,
		FileType:       in.FileType,
		ProcessingType: in.ProcessingType,
	})
	if err != nil {
		return extraction.JobHandle{}, err
	}
	if err := a.Docs.SetMediaType(dbctx.New(ctx), in.DocumentID, h.MediaType); err != nil {
		if a.Log != nil {
			a.Log.Warn("media type write failed", "document_id", in.DocumentID, "error", err)
		}
	}
	return h, nil
}

func (a *Activities) PollExtraction(ctx context.Context, h extraction.JobHandle) (extraction.PollResult, error) {
	return a.Extraction.Poll(ctx, h)
}

// ExtractText pulls native PDF text, indexes it, and records the page count
// on the document row.
func (a *Activities) ExtractText(ctx context.Context, in ExtractTextInput) (ExtractTextResult, error) {
	stop := a.startHeartbeat(ctx)
	defer stop()

	res, err := a.PDFText.ExtractAndIndex(ctx, in.DocumentID.String(), in.IndexID, in.FileURI)
	if err != nil {
		return ExtractTextResult{}, err
	}
	if err := a.Docs.SetPageCount(dbctx.New(ctx), in.DocumentID, res.PageCount); err != nil {
		return ExtractTextResult{}, err
	}
	return ExtractTextResult{PageCount: res.PageCount}, nil
}

// ListSegments materializes the segment rows for a document and returns
// them in index order. Creation is create-if-absent, so a re-driven run
// reuses the rows from the previous attempt.
func (a *Activities) ListSegments(ctx context.Context, in ListSegmentsInput) ([]SegmentRef, error) {
	dbc := dbctx.New(ctx)

	var rows []*domain.Segment
	switch {
	case len(in.Shots) > 0:
		var frameURIs map[int]string
		if a.Frames != nil {
			var err error
			frameURIs, err = a.Frames.ShotFrames(ctx, in.DocumentID, in.FileURI, in.Shots)
			if err != nil && a.Log != nil {
				a.Log.Warn("shot frames unavailable, segments continue without images",
					"document_id", in.DocumentID, "error", err)
			}
		}
		for _, shot := range in.Shots {
			rows = append(rows, &domain.Segment{
				ID:            uuid.New(),
				DocumentID:    in.DocumentID,
				SegmentIndex:  shot.Index,
				Status:        domain.SegmentStatusPending,
				ImageURI:      frameURIs[shot.Index],
				FileURI:       in.FileURI,
				StartTimecode: shot.StartTimecode,
			})
		}
	default:
		doc, err := a.Docs.GetByID(dbc, in.DocumentID)
		if err != nil {
			return nil, err
		}
		count := doc.PageCount
		if count < 1 {
			count = 1
		}
		// A still image is its own single segment; the source object doubles
		// as the analyzer's frame.
		imageURI := ""
		if in.MediaType == domain.MediaTypeImage {
			imageURI = in.FileURI
			if a.Bucket != nil {
				if _, key, err := gcp.ParseURI(in.FileURI); err == nil {
					imageURI = a.Bucket.GetPublicURL(key)
				}
			}
		}
		for i := 0; i < count; i++ {
			rows = append(rows, &domain.Segment{
				ID:           uuid.New(),
				DocumentID:   in.DocumentID,
				SegmentIndex: i,
				Status:       domain.SegmentStatusPending,
				ImageURI:     imageURI,
				FileURI:      in.FileURI,
			})
		}
	}

	if err := a.Segments.CreateIfAbsent(dbc, rows); err != nil {
		return nil, err
	}
	stored, err := a.Segments.ListByDocumentID(dbc, in.DocumentID)
	if err != nil {
		return nil, err
	}

	refs := make([]SegmentRef, 0, len(stored))
	for _, s := range stored {
		refs = append(refs, SegmentRef{
			SegmentID:     s.ID,
			SegmentIndex:  s.SegmentIndex,
			ImageURI:      s.ImageURI,
			FileURI:       s.FileURI,
			StartTimecode: s.StartTimecode,
		})
	}
	return refs, nil
}

// AnalyzeSegment runs the iterative analysis for one segment under the
// process-wide admission gate. Queueing for a slot counts against the
// sub-task timeout, which is what keeps a saturated worker from silently
// hoarding hundreds of pending segments.
func (a *Activities) AnalyzeSegment(ctx context.Context, in AnalyzeSegmentInput) (AnalyzeSegmentResult, error) {
	// Heartbeat starts before the gate: the gate is shared across documents,
	// so an activity can queue here for minutes and must stay visibly alive
	// the whole time.
	stop := a.startHeartbeat(ctx)
	defer stop()

	if err := a.Gate.Acquire(ctx); err != nil {
		return AnalyzeSegmentResult{}, fmt.Errorf("admission gate: %w", err)
	}
	defer a.Gate.Release()

	if err := a.Segments.UpdateStatus(dbctx.New(ctx), in.Segment.SegmentID, domain.SegmentStatusAnalyzing); err != nil {
		return AnalyzeSegmentResult{}, err
	}

	res, err := a.Analyzer.Analyze(ctx, services.AnalyzeInput{
		DocumentID:    in.DocumentID,
		IndexID:       in.IndexID,
		SegmentID:     in.Segment.SegmentID,
		SegmentIndex:  in.Segment.SegmentIndex,
		FileName:      in.FileName,
		MediaType:     in.MediaType,
		PageText:      a.pageText(ctx, in),
		ImageURI:      in.Segment.ImageURI,
		StartTimecode: in.Segment.StartTimecode,
		MaxIterations: a.Config.AnalyzeMaxIters,
	})
	if err != nil {
		return AnalyzeSegmentResult{}, err
	}
	return AnalyzeSegmentResult{Analysis: res.Analysis}, nil
}

// pageText loads the stored per-page text for PDF-backed segments. Missing
// pages are not an error; the analyzer falls back to segment metadata.
func (a *Activities) pageText(ctx context.Context, in AnalyzeSegmentInput) string {
	if in.MediaType != domain.MediaTypeDocument || a.Bucket == nil {
		return ""
	}
	var pages services.PDFExtraction
	key := fmt.Sprintf("pages/%s/pages.json", in.DocumentID)
	if err := a.Bucket.ReadJSON(ctx, key, &pages); err != nil {
		return ""
	}
	for _, p := range pages.Pages {
		if p.Number == in.Segment.SegmentIndex+1 {
			return p.Text
		}
	}
	return ""
}

// FinalizeSegment condenses the analysis, indexes the embedding, and marks
// the segment completed. Only ever called after AnalyzeSegment succeeded
// for the same segment.
func (a *Activities) FinalizeSegment(ctx context.Context, in FinalizeSegmentInput) error {
	stop := a.startHeartbeat(ctx)
	defer stop()

	res, err := a.Finalizer.Finalize(ctx, services.FinalizeInput{
		DocumentID:   in.DocumentID,
		IndexID:      in.IndexID,
		SegmentID:    in.Segment.SegmentID,
		SegmentIndex: in.Segment.SegmentIndex,
		Analysis:     in.Analysis,
	})
	if err != nil {
		return err
	}
	return a.Segments.SetAnalysis(dbctx.New(ctx), in.Segment.SegmentID, res.Analysis, res.Summary)
}

func (a *Activities) MarkSegmentFailed(ctx context.Context, in MarkSegmentFailedInput) error {
	if a.Log != nil {
		a.Log.Warn("segment failed",
			"document_id", in.DocumentID, "segment_id", in.SegmentID, "reason", in.Reason)
	}
	return a.Segments.UpdateStatus(dbctx.New(ctx), in.SegmentID, domain.SegmentStatusFailed)
}

// Summarize rolls the completed segments up into the document summary and
// stores it; the terminal status itself is recorded by the workflow.
func (a *Activities) Summarize(ctx context.Context, in SummarizeInput) error {
	stop := a.startHeartbeat(ctx)
	defer stop()

	dbc := dbctx.New(ctx)
	doc, err := a.Docs.GetByID(dbc, in.DocumentID)
	if err != nil {
		return err
	}
	segs, err := a.Segments.ListByDocumentID(dbc, in.DocumentID)
	if err != nil {
		return err
	}
	summary, err := a.Summarizer.Summarize(ctx, doc, segs)
	if err != nil {
		return err
	}
	return a.Docs.SetSummary(dbc, in.DocumentID, summary)
}

// startHeartbeat keeps long activities visible to the Temporal server so a
// dead worker is detected by the heartbeat timeout instead of the full
// start-to-close. No-op outside an activity context (tests call activities
// directly).
func (a *Activities) startHeartbeat(ctx context.Context) (stop func()) {
	if !activity.IsActivity(ctx) {
		return func() {}
	}
	interval := a.heartbeatEvery
	if interval <= 0 {
		interval = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
