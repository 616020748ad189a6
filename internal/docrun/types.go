package docrun

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
)

// Registered names. Workflows and activities are registered and invoked by
// string so workers and starters never need the Go symbols in sync.
const (
	WorkflowName = "document_run"

	ActivityRecordStatus      = "docrun_record_status"
	ActivitySubmitExtraction  = "docrun_submit_extraction"
	ActivityPollExtraction    = "docrun_poll_extraction"
	ActivityExtractText       = "docrun_extract_text"
	ActivityListSegments      = "docrun_list_segments"
	ActivityAnalyzeSegment    = "docrun_analyze_segment"
	ActivityFinalizeSegment   = "docrun_finalize_segment"
	ActivityMarkSegmentFailed = "docrun_mark_segment_failed"
	ActivitySummarize         = "docrun_summarize"
)

type RecordStatusInput struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
}

type ExtractTextInput struct {
	DocumentID uuid.UUID `json:"document_id"`
	IndexID    string    `json:"index_id"`
	FileURI    string    `json:"file_uri"`
}

type ExtractTextResult struct {
	PageCount int `json:"page_count"`
}

type ListSegmentsInput struct {
	DocumentID uuid.UUID         `json:"document_id"`
	FileURI    string            `json:"file_uri"`
	MediaType  string            `json:"media_type"`
	Shots      []extraction.Shot `json:"shots,omitempty"`
}

// SegmentRef is the slice of a segment row the workflow needs to drive one
// analyze/finalize sub-task.
type SegmentRef struct {
	SegmentID     uuid.UUID `json:"segment_id"`
	SegmentIndex  int       `json:"segment_index"`
	ImageURI      string    `json:"image_uri,omitempty"`
	FileURI       string    `json:"file_uri,omitempty"`
	StartTimecode string    `json:"start_timecode,omitempty"`
}

type AnalyzeSegmentInput struct {
	DocumentID uuid.UUID  `json:"document_id"`
	IndexID    string     `json:"index_id"`
	FileName   string     `json:"file_name"`
	MediaType  string     `json:"media_type"`
	Segment    SegmentRef `json:"segment"`
}

type AnalyzeSegmentResult struct {
	Analysis datatypes.JSON `json:"analysis"`
}

type FinalizeSegmentInput struct {
	DocumentID uuid.UUID      `json:"document_id"`
	IndexID    string         `json:"index_id"`
	Segment    SegmentRef     `json:"segment"`
	Analysis   datatypes.JSON `json:"analysis"`
}

type MarkSegmentFailedInput struct {
	DocumentID uuid.UUID `json:"document_id"`
	SegmentID  uuid.UUID `json:"segment_id"`
	Reason     string    `json:"reason,omitempty"`
}

type SummarizeInput struct {
	DocumentID uuid.UUID `json:"document_id"`
	IndexID    string    `json:"index_id"`
}
