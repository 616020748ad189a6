package docrun

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
)

// StartInput is the full context a run needs. Every field is required;
// validation failure is an immediate terminal failure with no retry.
type StartInput struct {
	IndexID        string    `json:"index_id"`
	DocumentID     uuid.UUID `json:"document_id"`
	FileName       string    `json:"file_name"`
	FileType       string    `json:"file_type"`
	ProcessingType string    `json:"processing_type"`
	FileURI        string    `json:"file_uri"`
}

func (in StartInput) Validate() error {
	missing := []string{}
	if in.DocumentID == uuid.Nil {
		missing = append(missing, "document_id")
	}
	if strings.TrimSpace(in.IndexID) == "" {
		missing = append(missing, "index_id")
	}
	if strings.TrimSpace(in.FileName) == "" {
		missing = append(missing, "file_name")
	}
	if strings.TrimSpace(in.FileType) == "" {
		missing = append(missing, "file_type")
	}
	if strings.TrimSpace(in.ProcessingType) == "" {
		missing = append(missing, "processing_type")
	}
	if strings.TrimSpace(in.FileURI) == "" {
		missing = append(missing, "file_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", pkgerrors.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}
