package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/docrun"
	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/http/response"
	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/services"
)

type DocumentHandler struct {
	log     *logger.Logger
	docs    services.DocumentService
	starter *docrun.Starter
}

func NewDocumentHandler(log *logger.Logger, docs services.DocumentService, starter *docrun.Starter) *DocumentHandler {
	return &DocumentHandler{
		log:     log.With("handler", "DocumentHandler"),
		docs:    docs,
		starter: starter,
	}
}

type documentView struct {
	*domain.Document
	DisplayStatus string `json:"display_status"`
	Progress      int    `json:"progress"`
}

func viewOf(doc *domain.Document) documentView {
	return documentView{
		Document:      doc,
		DisplayStatus: domain.FoldStatus(doc.Status),
		Progress:      domain.ProgressPercent(doc.Status),
	}
}

// Upload accepts one or more files plus index_id and optional
// processing_type, creates a document row per file, and starts one run per
// document. Files that fail intake are reported per file without aborting
// the batch.
func (h *DocumentHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(64 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	indexID := strings.TrimSpace(c.PostForm("index_id"))
	if indexID == "" {
		response.RespondError(c, http.StatusBadRequest, "index_id_required", nil)
		return
	}
	processingType := strings.TrimSpace(c.PostForm("processing_type"))
	if processingType == "" {
		processingType = domain.ProcessingTypeDocument
	}
	switch processingType {
	case domain.ProcessingTypeDocument, domain.ProcessingTypeVideo, domain.ProcessingTypeAudio:
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_processing_type",
			fmt.Errorf("processing_type %q not recognized", processingType))
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["file"]
	}
	if len(fileHeaders) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", nil)
		return
	}

	type uploadResult struct {
		Document *documentView `json:"document,omitempty"`
		FileName string        `json:"file_name"`
		Error    string        `json:"error,omitempty"`
	}
	results := make([]uploadResult, 0, len(fileHeaders))

	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			results = append(results, uploadResult{FileName: fh.Filename, Error: err.Error()})
			continue
		}

		doc, err := h.docs.Create(c.Request.Context(), services.CreateDocumentInput{
			IndexID:        indexID,
			FileName:       fh.Filename,
			FileType:       fileMimeType(fh.Header.Get("Content-Type"), fh.Filename),
			ProcessingType: processingType,
			Content:        f,
		})
		_ = f.Close()
		if err != nil {
			h.log.Warn("document intake failed", "file_name", fh.Filename, "error", err)
			results = append(results, uploadResult{FileName: fh.Filename, Error: err.Error()})
			continue
		}

		if _, err := h.starter.Start(c.Request.Context(), startInputFor(doc)); err != nil {
			results = append(results, uploadResult{FileName: fh.Filename, Error: err.Error()})
			continue
		}
		v := viewOf(doc)
		results = append(results, uploadResult{Document: &v, FileName: fh.Filename})
	}

	response.RespondAccepted(c, gin.H{"results": results})
}

// Process re-drives the pipeline for an existing document. Safe to call on a
// document whose previous run failed; a live run is rejected as a conflict.
func (h *DocumentHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	runID, err := h.starter.Start(c.Request.Context(), startInputFor(doc))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"document_id": doc.ID, "run_id": runID})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, viewOf(doc))
}

func (h *DocumentHandler) ListByIndex(c *gin.Context) {
	indexID := strings.TrimSpace(c.Query("index_id"))
	if indexID == "" {
		response.RespondError(c, http.StatusBadRequest, "index_id_required", nil)
		return
	}
	docs, err := h.docs.ListByIndex(c.Request.Context(), indexID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, viewOf(d))
	}
	response.RespondOK(c, gin.H{"documents": views})
}

func (h *DocumentHandler) Segments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	segs, err := h.docs.Segments(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"segments": segs})
}

func (h *DocumentHandler) Events(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	events, err := h.docs.Events(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}

func startInputFor(doc *domain.Document) docrun.StartInput {
	return docrun.StartInput{
		IndexID:        doc.IndexID,
		DocumentID:     doc.ID,
		FileName:       doc.FileName,
		FileType:       doc.FileType,
		ProcessingType: doc.ProcessingType,
		FileURI:        doc.FileURI,
	}
}

func fileMimeType(headerType, fileName string) string {
	if t := strings.TrimSpace(headerType); t != "" && t != "application/octet-stream" {
		return t
	}
	if t := mime.TypeByExtension(filepath.Ext(fileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, pkgerrors.ErrAlreadyProcessing):
		response.RespondError(c, http.StatusConflict, "already_processing", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
