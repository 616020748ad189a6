package docrun

import (
	"testing"

	"github.com/docsight/docsight-backend/internal/domain"
)

func TestNextWalksSuccessPath(t *testing.T) {
	steps := []struct {
		event Event
		want  State
	}{
		{EventSubmitted, StatePolling},
		{EventPollSuccess, StateBranch},
		{EventBranchExtract, StateExtractText},
		{EventExtracted, StateListSegments},
		{EventSegmentsListed, StateParallelAnalysis},
		{EventAnalysisPassed, StateSummarize},
		{EventSummarized, StateDone},
	}
	s := StateInit
	for _, step := range steps {
		next, ok := Next(s, step.event)
		if !ok {
			t.Fatalf("Next(%s, %s): not a legal edge", s, step.event)
		}
		if next != step.want {
			t.Fatalf("Next(%s, %s) = %s, want %s", s, step.event, next, step.want)
		}
		s = next
	}
	if !s.Terminal() {
		t.Fatalf("expected terminal state, got %s", s)
	}
}

func TestNextRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		state State
		event Event
	}{
		{StateInit, EventPollSuccess},
		{StatePolling, EventSummarized},
		{StateBranch, EventSubmitted},
		{StateSummarize, EventAnalysisPassed},
	}
	for _, tc := range cases {
		if next, ok := Next(tc.state, tc.event); ok {
			t.Fatalf("Next(%s, %s) = %s, want rejection", tc.state, tc.event, next)
		}
	}
}

func TestNextTerminalStatesAreSticky(t *testing.T) {
	for _, s := range []State{StateDone, StateMediaDone, StateBdaFailed, StateTimeout, StateIndexingFailed} {
		for _, e := range []Event{EventSubmitted, EventPollSuccess, EventDeadlineExceeded} {
			if _, ok := Next(s, e); ok {
				t.Fatalf("Next(%s, %s) succeeded, terminal states must be immutable", s, e)
			}
		}
	}
}

func TestNextDeadlineFromAnyLiveState(t *testing.T) {
	for _, s := range []State{StateInit, StatePolling, StateBranch, StateExtractText, StateListSegments, StateParallelAnalysis, StateSummarize} {
		next, ok := Next(s, EventDeadlineExceeded)
		if !ok || next != StateTimeout {
			t.Fatalf("Next(%s, deadline) = %s ok=%v, want timeout", s, next, ok)
		}
	}
}

func TestClassifyPollPriority(t *testing.T) {
	cases := []struct {
		status string
		want   PollOutcome
	}{
		{"success", PollAdvance},
		{"client_error", PollReject},
		{"service_error", PollReject},
		{"created", PollWait},
		{"in_progress", PollWait},
		{"", PollUnknown},
		{"paused", PollUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyPoll(tc.status); got != tc.want {
			t.Fatalf("ClassifyPoll(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestDecideBranchPrecedence(t *testing.T) {
	cases := []struct {
		processingType string
		fileType       string
		want           BranchTarget
		disagree       bool
	}{
		{domain.ProcessingTypeVideo, "video/mp4", BranchSegments, false},
		{domain.ProcessingTypeAudio, "audio/mpeg", BranchMediaDone, false},
		{domain.ProcessingTypeDocument, "application/pdf", BranchExtractText, false},
		{domain.ProcessingTypeDocument, "image/png", BranchSegments, false},
		{domain.ProcessingTypeDocument, "", BranchSegments, false},

		// processing_type wins over MIME regardless of agreement.
		{domain.ProcessingTypeVideo, "application/pdf", BranchSegments, true},
		{domain.ProcessingTypeAudio, "application/pdf", BranchMediaDone, true},
		{domain.ProcessingTypeDocument, "video/mp4", BranchSegments, true},
		{domain.ProcessingTypeDocument, "audio/wav", BranchSegments, true},
	}
	for _, tc := range cases {
		got, disagree := DecideBranch(tc.processingType, tc.fileType)
		if got != tc.want || disagree != tc.disagree {
			t.Fatalf("DecideBranch(%q, %q) = (%v, %v), want (%v, %v)",
				tc.processingType, tc.fileType, got, disagree, tc.want, tc.disagree)
		}
	}
}

func TestDecideBranchIsDeterministic(t *testing.T) {
	first, fd := DecideBranch("document", "application/pdf")
	for i := 0; i < 10; i++ {
		got, d := DecideBranch("document", "application/pdf")
		if got != first || d != fd {
			t.Fatalf("DecideBranch not stable across calls")
		}
	}
}

func TestWithinTolerance(t *testing.T) {
	cases := []struct {
		failed, total, pct int
		want               bool
	}{
		{0, 10, 5, true},
		{1, 20, 5, true},  // exactly 5%
		{2, 20, 5, false}, // 10%
		{1, 10, 5, false},
		{0, 0, 5, true},
		{3, 100, 5, true},
		{6, 100, 5, false},
	}
	for _, tc := range cases {
		if got := WithinTolerance(tc.failed, tc.total, tc.pct); got != tc.want {
			t.Fatalf("WithinTolerance(%d, %d, %d) = %v, want %v", tc.failed, tc.total, tc.pct, got, tc.want)
		}
	}
}

func TestStatusForCoversLifecycle(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StatePolling, domain.StatusBdaAnalyzing},
		{StateBranch, domain.StatusIndexingDone},
		{StateExtractText, domain.StatusPdfExtracting},
		{StateParallelAnalysis, domain.StatusReactAnalyzing},
		{StateSummarize, domain.StatusSummarizing},
		{StateDone, domain.StatusCompleted},
		{StateMediaDone, domain.StatusCompleted},
		{StateBdaFailed, domain.StatusBdaFailed},
		{StateTimeout, domain.StatusBdaTimeout},
		{StateListSegments, ""},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.state); got != tc.want {
			t.Fatalf("StatusFor(%s) = %q, want %q", tc.state, got, tc.want)
		}
	}
}
