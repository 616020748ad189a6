package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SegmentStatusPending   = "pending"
	SegmentStatusAnalyzing = "analyzing"
	SegmentStatusCompleted = "completed"
	SegmentStatusFailed    = "failed"
)

// Segment is the per-page/per-frame/per-shot unit of analysis. Indexes are
// zero-based, stable, and contiguous within a document.
type Segment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_segment_document_index" json:"document_id"`

	SegmentIndex int    `gorm:"column:segment_index;not null;uniqueIndex:ux_segment_document_index" json:"segment_index"`
	Status       string `gorm:"column:status;not null;default:'pending';index" json:"status"`

	ImageURI      string `gorm:"column:image_uri" json:"image_uri,omitempty"`
	FileURI       string `gorm:"column:file_uri" json:"file_uri,omitempty"`
	StartTimecode string `gorm:"column:start_timecode" json:"start_timecode,omitempty"`

	Analysis datatypes.JSON `gorm:"column:analysis;type:jsonb" json:"analysis,omitempty"`
	Summary  string         `gorm:"column:summary;type:text" json:"summary,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Segment) TableName() string { return "document_segment" }
