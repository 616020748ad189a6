package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessingType is supplied by the caller alongside the MIME type. The two
// are independent and may disagree; the pipeline branches on the documented
// precedence and never reconciles them silently.
const (
	ProcessingTypeDocument = "document"
	ProcessingTypeVideo    = "video"
	ProcessingTypeAudio    = "audio"
)

// MediaType is derived once extraction settles what the file actually is.
const (
	MediaTypeDocument = "document"
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeAudio    = "audio"
)

const MimeTypePDF = "application/pdf"

type Document struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IndexID string    `gorm:"column:index_id;not null;index" json:"index_id"`

	FileName       string `gorm:"column:file_name;not null" json:"file_name"`
	FileURI        string `gorm:"column:file_uri;not null" json:"file_uri"`
	FileType       string `gorm:"column:file_type;not null" json:"file_type"`
	ProcessingType string `gorm:"column:processing_type;not null" json:"processing_type"`
	MediaType      string `gorm:"column:media_type" json:"media_type,omitempty"`

	Status       string `gorm:"column:status;not null;default:'pending_upload';index" json:"status"`
	StatusDetail string `gorm:"column:status_detail" json:"status_detail,omitempty"`

	PageCount int    `gorm:"column:page_count;not null;default:0" json:"page_count"`
	Summary   string `gorm:"column:summary;type:text" json:"summary,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }
