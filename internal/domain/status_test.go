package domain

import "testing"

func TestFoldStatus(t *testing.T) {
	cases := map[string]string{
		StatusBdaCompleted:  StatusIndexingDone,
		StatusBdaSkipped:    StatusPdfExtracting,
		StatusBdaAnalyzing:  StatusBdaAnalyzing,
		StatusCompleted:     StatusCompleted,
		"  bda_completed  ": StatusIndexingDone,
	}
	for in, want := range cases {
		if got := FoldStatus(in); got != want {
			t.Fatalf("FoldStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStageRankMonotonic(t *testing.T) {
	ordered := []string{
		StatusPendingUpload,
		StatusUploading,
		StatusUploaded,
		StatusBdaAnalyzing,
		StatusIndexingDone,
		StatusPdfExtracting,
		StatusPdfExtracted,
		StatusReactAnalyzing,
		StatusReactFinalizing,
		StatusReactFinalized,
		StatusSummarizing,
		StatusCompleted,
	}
	prev := -1
	for _, s := range ordered {
		rank := StageRank(s)
		if rank <= prev {
			t.Fatalf("StageRank(%q) = %d, not after %d", s, rank, prev)
		}
		prev = rank
	}
	if StageRank("nonsense") != -1 {
		t.Fatalf("unknown status should rank -1")
	}
	// Synonyms rank at their folded position.
	if StageRank(StatusBdaCompleted) != StageRank(StatusIndexingDone) {
		t.Fatalf("bda_completed should rank as document_indexing_completed")
	}
	if StageRank(StatusBdaSkipped) != StageRank(StatusPdfExtracting) {
		t.Fatalf("bda_skipped should rank as pdf_text_extracting")
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for _, s := range []string{StatusCompleted, StatusBdaFailed, StatusBdaTimeout, StatusTimeout, StatusPdfFailed, StatusReactFailed, StatusSummaryFailed} {
		if !IsTerminalStatus(s) {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []string{StatusPendingUpload, StatusBdaAnalyzing, StatusSummarizing, StatusBdaSkipped} {
		if IsTerminalStatus(s) {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusUploaded, StatusBdaAnalyzing, true},
		{StatusBdaAnalyzing, StatusIndexingDone, true},
		{StatusBdaAnalyzing, StatusBdaAnalyzing, true},
		{StatusIndexingDone, StatusUploaded, false},
		{StatusBdaAnalyzing, StatusBdaFailed, true},
		{StatusSummarizing, StatusSummaryFailed, true},
		{StatusCompleted, StatusSummarizing, false},
		{StatusBdaFailed, StatusBdaAnalyzing, false},
		{StatusBdaFailed, StatusCompleted, false},
		// Synonyms fold to the same position, not a regression.
		{StatusBdaCompleted, StatusIndexingDone, true},
		{StatusBdaSkipped, StatusPdfExtracting, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	if got := ProgressPercent(StatusCompleted); got != 100 {
		t.Fatalf("completed progress = %d, want 100", got)
	}
	if got := ProgressPercent(StatusPendingUpload); got != 0 {
		t.Fatalf("pending_upload progress = %d, want 0", got)
	}
	prev := -1
	for _, s := range canonicalOrder {
		p := ProgressPercent(s)
		if p < prev {
			t.Fatalf("progress not monotonic at %q: %d < %d", s, p, prev)
		}
		prev = p
	}
	// A failure reports the progress of the stage it aborted.
	if ProgressPercent(StatusReactFailed) != ProgressPercent(StatusReactAnalyzing) {
		t.Fatalf("react_failed should display as react_analyzing progress")
	}
	// The run-level timeout carries no stage, so its display must never sit
	// below any stage it could have aborted at.
	for _, s := range []string{StatusBdaAnalyzing, StatusPdfExtracting, StatusReactAnalyzing, StatusReactFinalizing, StatusSummarizing} {
		if ProgressPercent(StatusTimeout) < ProgressPercent(s) {
			t.Fatalf("timeout progress %d regresses below %q (%d)", ProgressPercent(StatusTimeout), s, ProgressPercent(s))
		}
	}
}
