package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentEvent is an append-only ledger of status transitions. This is the
// canonical timeline the frontend renders; it is never used for control flow.
type DocumentEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`

	FileName string `gorm:"column:file_name" json:"file_name"`
	Status   string `gorm:"column:status;not null;index" json:"status"`
	Detail   string `gorm:"column:detail;type:text" json:"detail,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DocumentEvent) TableName() string { return "document_event" }
