package docrun

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
	"github.com/docsight/docsight-backend/internal/domain"
)

// NewWorkflow builds the per-document orchestration workflow. The returned
// function is registered under WorkflowName; all branching flows through the
// pure state machine in state.go, so the workflow body is only sequencing,
// waiting, and activity plumbing.
func NewWorkflow(cfg Config) func(ctx workflow.Context, in StartInput) error {
	cfg = cfg.normalized()
	return func(ctx workflow.Context, in StartInput) error {
		return run(ctx, cfg, in)
	}
}

type runner struct {
	cfg      Config
	in       StartInput
	state    State
	deadline time.Time
}

func run(ctx workflow.Context, cfg Config, in StartInput) error {
	r := &runner{
		cfg:      cfg,
		in:       in,
		state:    StateInit,
		deadline: workflow.Now(ctx).Add(cfg.RunTimeout),
	}
	log := workflow.GetLogger(ctx)

	if err := in.Validate(); err != nil {
		r.apply(ctx, EventSubmitFailed, err.Error())
		return err
	}
	r.record(ctx, domain.StatusBdaAnalyzing, "")

	handle, err := r.submit(ctx)
	if err != nil {
		r.apply(ctx, EventSubmitFailed, err.Error())
		return fmt.Errorf("submit extraction: %w", err)
	}
	r.apply(ctx, EventSubmitted, "")

	poll, err := r.pollUntilTerminal(ctx, handle)
	if err != nil {
		return err
	}

	target, disagree := DecideBranch(in.ProcessingType, in.FileType)
	if disagree {
		log.Warn("processing_type and file_type disagree, branching on documented precedence",
			"document_id", in.DocumentID,
			"processing_type", in.ProcessingType,
			"file_type", in.FileType)
	}
	r.apply(ctx, target.Event(), "")
	if r.state == StateMediaDone {
		// Audio stops at extraction; there is no per-segment pass.
		return nil
	}

	if r.state == StateExtractText {
		if err := r.extractText(ctx); err != nil {
			return err
		}
	}

	segs, err := r.listSegments(ctx, handle, poll)
	if err != nil {
		return err
	}

	if err := r.fanOut(ctx, handle, segs); err != nil {
		return err
	}

	if err := r.summarize(ctx); err != nil {
		return err
	}
	r.apply(ctx, EventSummarized, "")
	return nil
}

// apply feeds one event through the state machine and records the status the
// new state carries. Failure events pass the cause through as status detail.
func (r *runner) apply(ctx workflow.Context, e Event, detail string) {
	next, ok := Next(r.state, e)
	if !ok {
		workflow.GetLogger(ctx).Error("illegal state transition",
			"document_id", r.in.DocumentID, "state", string(r.state), "event", string(e))
		return
	}
	r.state = next
	r.record(ctx, StatusFor(next), detail)
}

// record persists one status transition. Status writes are bookkeeping; a
// failed write is logged and the run carries on, since the database guard
// rejects exactly the writes that must not land.
func (r *runner) record(ctx workflow.Context, status, detail string) {
	if status == "" {
		return
	}
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	err := workflow.ExecuteActivity(actx, ActivityRecordStatus, RecordStatusInput{
		DocumentID: r.in.DocumentID,
		Status:     status,
		Detail:     detail,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("status record failed",
			"document_id", r.in.DocumentID, "status", status, "error", err)
	}
}

func (r *runner) expired(ctx workflow.Context) bool {
	return workflow.Now(ctx).After(r.deadline)
}

// timeoutRun marks the whole run as having exceeded its outer budget. This
// is the "service never finished" class, reported distinctly from the
// extraction service rejecting the job.
func (r *runner) timeoutRun(ctx workflow.Context) error {
	next, ok := Next(r.state, EventDeadlineExceeded)
	if ok {
		r.state = next
	}
	r.record(ctx, domain.StatusTimeout, fmt.Sprintf("run exceeded %s", r.cfg.RunTimeout))
	return temporal.NewApplicationError("document run timed out", "docrun_timeout")
}

func (r *runner) submit(ctx workflow.Context) (extraction.JobHandle, error) {
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var handle extraction.JobHandle
	err := workflow.ExecuteActivity(actx, ActivitySubmitExtraction, r.in).Get(ctx, &handle)
	return handle, err
}

// pollUntilTerminal drives the fixed-interval poll loop. Classification
// priority lives in ClassifyPoll; the loop only budgets attempts and waits.
func (r *runner) pollUntilTerminal(ctx workflow.Context, handle extraction.JobHandle) (extraction.PollResult, error) {
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	var poll extraction.PollResult
	outcome := PollUnknown
	detail := ""

	for attempt := 1; attempt <= r.cfg.PollMaxAttempts; attempt++ {
		if r.expired(ctx) {
			return poll, r.timeoutRun(ctx)
		}
		if err := workflow.ExecuteActivity(actx, ActivityPollExtraction, handle).Get(ctx, &poll); err != nil {
			// A poll that cannot even reach the provider after retries is
			// indistinguishable from the provider rejecting the job.
			outcome = PollReject
			detail = err.Error()
			break
		}
		outcome = ClassifyPoll(poll.Status)
		detail = poll.Detail
		if outcome != PollWait {
			break
		}
		if attempt == r.cfg.PollMaxAttempts {
			break
		}
		if err := workflow.Sleep(ctx, r.cfg.PollInterval); err != nil {
			return poll, err
		}
	}

	switch outcome {
	case PollAdvance:
		r.apply(ctx, EventPollSuccess, "")
		return poll, nil
	case PollReject:
		r.apply(ctx, EventPollRejected, detail)
		return poll, temporal.NewApplicationError(
			fmt.Sprintf("extraction rejected: %s", detail), "docrun_bda_failed")
	default:
		// Wait budget exhausted, or a status outside the contract.
		r.apply(ctx, EventPollExhausted, detail)
		return poll, temporal.NewApplicationError(
			fmt.Sprintf("extraction did not finish within %d polls", r.cfg.PollMaxAttempts), "docrun_bda_timeout")
	}
}

func (r *runner) extractText(ctx workflow.Context) error {
	if r.expired(ctx) {
		return r.timeoutRun(ctx)
	}
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: r.cfg.SubtaskTimeout,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	err := workflow.ExecuteActivity(actx, ActivityExtractText, ExtractTextInput{
		DocumentID: r.in.DocumentID,
		IndexID:    r.in.IndexID,
		FileURI:    r.in.FileURI,
	}).Get(ctx, nil)
	if err != nil {
		r.apply(ctx, EventExtractFailed, err.Error())
		r.record(ctx, domain.StatusPdfFailed, err.Error())
		return fmt.Errorf("extract text: %w", err)
	}
	r.apply(ctx, EventExtracted, "")
	r.record(ctx, domain.StatusPdfExtracted, "")
	return nil
}

func (r *runner) listSegments(ctx workflow.Context, handle extraction.JobHandle, poll extraction.PollResult) ([]SegmentRef, error) {
	if r.expired(ctx) {
		return nil, r.timeoutRun(ctx)
	}
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var segs []SegmentRef
	err := workflow.ExecuteActivity(actx, ActivityListSegments, ListSegmentsInput{
		DocumentID: r.in.DocumentID,
		FileURI:    r.in.FileURI,
		MediaType:  handle.MediaType,
		Shots:      poll.Shots,
	}).Get(ctx, &segs)
	if err != nil {
		r.apply(ctx, EventListFailed, err.Error())
		r.record(ctx, domain.StatusReactFailed, err.Error())
		return nil, fmt.Errorf("list segments: %w", err)
	}
	r.apply(ctx, EventSegmentsListed, "")
	return segs, nil
}

// fanOut runs one analyze-then-finalize sub-task per segment. Admission is
// bounded by a token channel sized to the concurrency ceiling; each sub-task
// carries its own timeout so one stuck segment neither blocks siblings nor
// holds a token past its budget.
func (r *runner) fanOut(ctx workflow.Context, handle extraction.JobHandle, segs []SegmentRef) error {
	total := len(segs)
	if total == 0 {
		r.apply(ctx, EventAnalysisPassed, "")
		return nil
	}

	tokens := workflow.NewBufferedChannel(ctx, r.cfg.MaxParallelSegments)
	done := 0
	failed := 0
	finalizing := false

	for _, seg := range segs {
		seg := seg
		workflow.Go(ctx, func(gctx workflow.Context) {
			defer func() { done++ }()

			// Send blocks once the buffer holds ceiling tokens; Receive
			// frees a slot. The channel is the admission gate.
			tokens.Send(gctx, nil)
			defer tokens.Receive(gctx, nil)

			actx := workflow.WithActivityOptions(gctx, workflow.ActivityOptions{
				StartToCloseTimeout: r.cfg.SubtaskTimeout,
				HeartbeatTimeout:    time.Minute,
				RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
			})

			var analyzed AnalyzeSegmentResult
			err := workflow.ExecuteActivity(actx, ActivityAnalyzeSegment, AnalyzeSegmentInput{
				DocumentID: r.in.DocumentID,
				IndexID:    r.in.IndexID,
				FileName:   r.in.FileName,
				MediaType:  handle.MediaType,
				Segment:    seg,
			}).Get(gctx, &analyzed)
			if err != nil {
				failed++
				r.markSegmentFailed(gctx, seg, fmt.Sprintf("analyze: %v", err))
				return
			}

			if !finalizing {
				finalizing = true
				r.record(gctx, domain.StatusReactFinalizing, "")
			}

			err = workflow.ExecuteActivity(actx, ActivityFinalizeSegment, FinalizeSegmentInput{
				DocumentID: r.in.DocumentID,
				IndexID:    r.in.IndexID,
				Segment:    seg,
				Analysis:   analyzed.Analysis,
			}).Get(gctx, nil)
			if err != nil {
				failed++
				r.markSegmentFailed(gctx, seg, fmt.Sprintf("finalize: %v", err))
			}
		})
	}

	remaining := r.deadline.Sub(workflow.Now(ctx))
	completed, err := workflow.AwaitWithTimeout(ctx, remaining, func() bool { return done == total })
	if err != nil {
		return err
	}
	if !completed {
		return r.timeoutRun(ctx)
	}

	if !WithinTolerance(failed, total, r.cfg.ToleratedFailurePct) {
		detail := fmt.Sprintf("%d of %d segments failed, tolerance %d%%", failed, total, r.cfg.ToleratedFailurePct)
		r.apply(ctx, EventAnalysisFailed, detail)
		r.record(ctx, domain.StatusReactFailed, detail)
		return temporal.NewApplicationError(detail, "docrun_react_failed")
	}
	r.record(ctx, domain.StatusReactFinalized, "")
	r.apply(ctx, EventAnalysisPassed, "")
	return nil
}

func (r *runner) markSegmentFailed(ctx workflow.Context, seg SegmentRef, reason string) {
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	err := workflow.ExecuteActivity(actx, ActivityMarkSegmentFailed, MarkSegmentFailedInput{
		DocumentID: r.in.DocumentID,
		SegmentID:  seg.SegmentID,
		Reason:     reason,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("segment failure record failed",
			"document_id", r.in.DocumentID, "segment_id", seg.SegmentID, "error", err)
	}
}

func (r *runner) summarize(ctx workflow.Context) error {
	if r.expired(ctx) {
		return r.timeoutRun(ctx)
	}
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: r.cfg.SubtaskTimeout,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	err := workflow.ExecuteActivity(actx, ActivitySummarize, SummarizeInput{
		DocumentID: r.in.DocumentID,
		IndexID:    r.in.IndexID,
	}).Get(ctx, nil)
	if err != nil {
		r.apply(ctx, EventSummarizeFailed, err.Error())
		r.record(ctx, domain.StatusSummaryFailed, err.Error())
		return fmt.Errorf("summarize: %w", err)
	}
	return nil
}
