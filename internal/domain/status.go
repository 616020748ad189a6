package domain

import "strings"

// Document lifecycle statuses. The pipeline records one on every stage
// transition; external viewers poll the document row as the single source of
// truth.
const (
	StatusPendingUpload    = "pending_upload"
	StatusUploading        = "uploading"
	StatusUploaded         = "uploaded"
	StatusBdaAnalyzing     = "bda_analyzing"
	StatusIndexingDone     = "document_indexing_completed"
	StatusPdfExtracting    = "pdf_text_extracting"
	StatusPdfExtracted     = "pdf_text_extracted"
	StatusReactAnalyzing   = "react_analyzing"
	StatusReactFinalizing  = "react_finalizing"
	StatusReactFinalized   = "react_finalized"
	StatusSummarizing      = "summarizing"
	StatusCompleted        = "completed"

	// Synonyms written by older pipeline revisions; folded for display and
	// for the monotonicity guard.
	StatusBdaCompleted = "bda_completed"
	StatusBdaSkipped   = "bda_skipped"

	// Terminal failures, distinct per failure class so the cause is
	// diagnosable without log access.
	StatusBdaFailed     = "bda_failed"
	StatusBdaTimeout    = "bda_timeout"
	StatusTimeout       = "timeout"
	StatusPdfFailed     = "pdf_text_failed"
	StatusReactFailed   = "react_failed"
	StatusSummaryFailed = "summary_failed"
)

// canonicalOrder is the forward lifecycle used for display progress and the
// repo-level monotonicity guard. Control flow relies on the docrun state
// machine, not on this ordering.
var canonicalOrder = []string{
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

// failureStage maps each terminal failure onto the stage position it aborted
// at, used both for display progress and for the regression guard.
var failureStage = map[string]string{
	StatusBdaFailed:  StatusBdaAnalyzing,
	StatusBdaTimeout: StatusBdaAnalyzing,
	// The run-level timeout can fire at any stage and the status string does
	// not say which, so it ranks at the last pre-terminal stage. Ranking it
	// early would walk a displayed run backwards.
	StatusTimeout:       StatusSummarizing,
	StatusPdfFailed:     StatusPdfExtracting,
	StatusReactFailed:   StatusReactAnalyzing,
	StatusSummaryFailed: StatusSummarizing,
}

// FoldStatus collapses display synonyms onto their canonical position.
func FoldStatus(status string) string {
	switch strings.TrimSpace(status) {
	case StatusBdaCompleted:
		return StatusIndexingDone
	case StatusBdaSkipped:
		return StatusPdfExtracting
	default:
		return strings.TrimSpace(status)
	}
}

// StageRank returns the canonical position of a status, or -1 when unknown.
// Failure statuses rank at the stage they aborted.
func StageRank(status string) int {
	s := FoldStatus(status)
	if stage, ok := failureStage[s]; ok {
		s = stage
	}
	for i, v := range canonicalOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// IsTerminalStatus reports whether a status is immutable: completed or any
// failure class.
func IsTerminalStatus(status string) bool {
	s := FoldStatus(status)
	if s == StatusCompleted {
		return true
	}
	_, failed := failureStage[s]
	return failed
}

func IsFailureStatus(status string) bool {
	_, failed := failureStage[FoldStatus(status)]
	return failed
}

// CanTransition reports whether a document may move from one status to
// another: never out of a terminal status, never backwards in the canonical
// order. Failure statuses are reachable from any non-terminal position.
func CanTransition(from, to string) bool {
	if IsTerminalStatus(from) {
		return false
	}
	if IsFailureStatus(to) {
		return true
	}
	fromRank, toRank := StageRank(from), StageRank(to)
	if toRank < 0 {
		return false
	}
	return toRank >= fromRank
}

// ProgressPercent converts a status into the display percentage. Display
// only; the state machine never consults it.
func ProgressPercent(status string) int {
	rank := StageRank(status)
	if rank < 0 {
		return 0
	}
	if FoldStatus(status) == StatusCompleted {
		return 100
	}
	return rank * 100 / (len(canonicalOrder) - 1)
}
