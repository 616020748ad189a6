package docrun

import (
	"strings"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
	"github.com/docsight/docsight-backend/internal/domain"
)

// State is the orchestrator position for one document run. The workflow only
// feeds events into Next; it never jumps states directly, so every legal path
// through the pipeline is enumerable here and testable without Temporal.
type State string

const (
	StateInit             State = "init"
	StatePolling          State = "polling"
	StateBranch           State = "branch"
	StateExtractText      State = "extract_text"
	StateListSegments     State = "list_segments"
	StateParallelAnalysis State = "parallel_analysis"
	StateSummarize        State = "summarize"

	// Terminal states. Done and MediaDone are success; the rest are the
	// distinct failure classes of §7-style diagnosis.
	StateDone           State = "done"
	StateMediaDone      State = "media_done"
	StateBdaFailed      State = "bda_failed"
	StateTimeout        State = "timeout"
	StateIndexingFailed State = "indexing_failed"
)

// Terminal reports whether the run can never leave the state.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateMediaDone, StateBdaFailed, StateTimeout, StateIndexingFailed:
		return true
	}
	return false
}

// Event is what happened at the current state.
type Event string

const (
	EventSubmitted    Event = "submitted"
	EventSubmitFailed Event = "submit_failed"

	EventPollSuccess   Event = "poll_success"
	EventPollRejected  Event = "poll_rejected"
	EventPollExhausted Event = "poll_exhausted"

	EventBranchSegments Event = "branch_segments"
	EventBranchExtract  Event = "branch_extract"
	EventBranchMedia    Event = "branch_media"

	EventExtracted     Event = "extracted"
	EventExtractFailed Event = "extract_failed"

	EventSegmentsListed Event = "segments_listed"
	EventListFailed     Event = "list_failed"

	EventAnalysisPassed Event = "analysis_passed"
	EventAnalysisFailed Event = "analysis_failed"

	EventSummarized      Event = "summarized"
	EventSummarizeFailed Event = "summarize_failed"

	EventDeadlineExceeded Event = "deadline_exceeded"
)

// transitions is the full legal edge set. Anything absent is a bug in the
// caller, surfaced by Next returning ok=false.
var transitions = map[State]map[Event]State{
	StateInit: {
		EventSubmitted:    StatePolling,
		EventSubmitFailed: StateBdaFailed,
	},
	StatePolling: {
		EventPollSuccess:   StateBranch,
		EventPollRejected:  StateBdaFailed,
		EventPollExhausted: StateTimeout,
	},
	StateBranch: {
		EventBranchSegments: StateListSegments,
		EventBranchExtract:  StateExtractText,
		EventBranchMedia:    StateMediaDone,
	},
	StateExtractText: {
		EventExtracted:     StateListSegments,
		EventExtractFailed: StateIndexingFailed,
	},
	StateListSegments: {
		EventSegmentsListed: StateParallelAnalysis,
		EventListFailed:     StateIndexingFailed,
	},
	StateParallelAnalysis: {
		EventAnalysisPassed: StateSummarize,
		EventAnalysisFailed: StateIndexingFailed,
	},
	StateSummarize: {
		EventSummarized:      StateDone,
		EventSummarizeFailed: StateIndexingFailed,
	},
}

// Next applies one event. The deadline event is legal from every non-terminal
// state; otherwise only the enumerated edges exist.
func Next(s State, e Event) (State, bool) {
	if s.Terminal() {
		return s, false
	}
	if e == EventDeadlineExceeded {
		return StateTimeout, true
	}
	next, ok := transitions[s][e]
	if !ok {
		return s, false
	}
	return next, true
}

// PollOutcome classifies one extraction poll response.
type PollOutcome int

const (
	PollAdvance PollOutcome = iota
	PollReject
	PollWait
	PollUnknown
)

// ClassifyPoll checks statuses in fixed priority: terminal success first,
// then terminal error, then in-progress, else unknown. The ordering matters
// for providers that report conflicting fields at once; a job stuck
// reporting both an error and in-progress must reject, not wait forever.
func ClassifyPoll(status string) PollOutcome {
	switch status {
	case extraction.StatusSuccess:
		return PollAdvance
	case extraction.StatusClientError, extraction.StatusServiceError:
		return PollReject
	case extraction.StatusCreated, extraction.StatusInProgress:
		return PollWait
	default:
		return PollUnknown
	}
}

// BranchTarget is the pure branch decision after extraction settles.
type BranchTarget int

const (
	BranchSegments BranchTarget = iota
	BranchExtractText
	BranchMediaDone
)

func (b BranchTarget) Event() Event {
	switch b {
	case BranchExtractText:
		return EventBranchExtract
	case BranchMediaDone:
		return EventBranchMedia
	default:
		return EventBranchSegments
	}
}

// DecideBranch picks the post-extraction path from processing_type and MIME
// type. Precedence is fixed: video, then audio, then PDF document, then the
// generic segment path. The two fields are caller-supplied independently and
// can disagree; disagreement is reported so upstream validation can flag it,
// never reconciled here.
func DecideBranch(processingType, fileType string) (BranchTarget, bool) {
	pt := strings.ToLower(strings.TrimSpace(processingType))
	ft := strings.ToLower(strings.TrimSpace(fileType))
	disagree := typesDisagree(pt, ft)

	switch {
	case pt == domain.ProcessingTypeVideo:
		return BranchSegments, disagree
	case pt == domain.ProcessingTypeAudio:
		return BranchMediaDone, disagree
	case ft == domain.MimeTypePDF:
		return BranchExtractText, disagree
	default:
		return BranchSegments, disagree
	}
}

func typesDisagree(pt, ft string) bool {
	switch {
	case pt == domain.ProcessingTypeVideo:
		return ft != "" && !strings.HasPrefix(ft, "video/")
	case pt == domain.ProcessingTypeAudio:
		return ft != "" && !strings.HasPrefix(ft, "audio/")
	default:
		return strings.HasPrefix(ft, "video/") || strings.HasPrefix(ft, "audio/")
	}
}

// StatusFor maps a state onto the document status recorded when the run
// enters it. States with no status of their own return "".
func StatusFor(s State) string {
	switch s {
	case StateInit, StatePolling:
		return domain.StatusBdaAnalyzing
	case StateBranch:
		return domain.StatusIndexingDone
	case StateExtractText:
		return domain.StatusPdfExtracting
	case StateParallelAnalysis:
		return domain.StatusReactAnalyzing
	case StateSummarize:
		return domain.StatusSummarizing
	case StateDone, StateMediaDone:
		return domain.StatusCompleted
	case StateBdaFailed:
		return domain.StatusBdaFailed
	case StateTimeout:
		return domain.StatusBdaTimeout
	default:
		return ""
	}
}

// WithinTolerance reports whether failed out of total stays at or under the
// tolerated percentage. An empty fan-out trivially passes.
func WithinTolerance(failed, total, pct int) bool {
	if total <= 0 {
		return true
	}
	if failed < 0 {
		failed = 0
	}
	return failed*100 <= total*pct
}
