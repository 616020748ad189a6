package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/domain"
	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
)

func TestFileMimeType(t *testing.T) {
	cases := []struct {
		header   string
		fileName string
		want     string
	}{
		{"application/pdf", "report.pdf", "application/pdf"},
		{"", "clip.mp4", "video/mp4"},
		{"application/octet-stream", "notes.pdf", "application/pdf"},
		{"", "mystery", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := fileMimeType(tc.header, tc.fileName); got != tc.want {
			t.Fatalf("fileMimeType(%q, %q) = %q, want %q", tc.header, tc.fileName, got, tc.want)
		}
	}
}

func TestStartInputFor(t *testing.T) {
	doc := &domain.Document{
		ID:             uuid.New(),
		IndexID:        "idx-1",
		FileName:       "report.pdf",
		FileURI:        "gs://docs/uploads/report.pdf",
		FileType:       "application/pdf",
		ProcessingType: domain.ProcessingTypeDocument,
	}
	in := startInputFor(doc)
	if in.DocumentID != doc.ID || in.IndexID != "idx-1" || in.FileURI != doc.FileURI {
		t.Fatalf("startInputFor dropped fields: %+v", in)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("start input from a stored document must validate: %v", err)
	}
}

func TestRespondServiceErrorMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("doc: %w", pkgerrors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("doc: %w", pkgerrors.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("doc: %w", pkgerrors.ErrAlreadyProcessing), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		respondServiceError(c, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("respondServiceError(%v) status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}
