package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/data/repos/documents"
	"github.com/docsight/docsight-backend/internal/domain"
	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type CreateDocumentInput struct {
	IndexID        string
	FileName       string
	FileType       string
	ProcessingType string
	Content        io.Reader
}

// DocumentService owns the document lifecycle outside the workflow: intake,
// reads, and the status ledger every pipeline step reports into.
type DocumentService interface {
	Create(ctx context.Context, in CreateDocumentInput) (*domain.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ListByIndex(ctx context.Context, indexID string) ([]*domain.Document, error)
	Segments(ctx context.Context, documentID uuid.UUID) ([]*domain.Segment, error)
	Events(ctx context.Context, documentID uuid.UUID) ([]*domain.DocumentEvent, error)

	// RecordStatus folds synonyms, persists the transition, appends to the
	// event trail, and notifies subscribers. A write into a terminal status
	// returns ErrTerminalStatus; callers treat that as already-settled.
	RecordStatus(ctx context.Context, documentID uuid.UUID, status, detail string) error
}

type documentService struct {
	log      *logger.Logger
	docs     documents.DocumentRepo
	events   documents.DocumentEventRepo
	segments documents.SegmentRepo
	bucket   gcp.BucketService
	notifier DocumentNotifier
}

func NewDocumentService(
	log *logger.Logger,
	docs documents.DocumentRepo,
	segments documents.SegmentRepo,
	events documents.DocumentEventRepo,
	bucket gcp.BucketService,
	notifier DocumentNotifier,
) DocumentService {
	return &documentService{
		log:      log.With("service", "DocumentService"),
		docs:     docs,
		segments: segments,
		events:   events,
		bucket:   bucket,
		notifier: notifier,
	}
}

func (s *documentService) Create(ctx context.Context, in CreateDocumentInput) (*domain.Document, error) {
	in.IndexID = strings.TrimSpace(in.IndexID)
	in.FileName = strings.TrimSpace(in.FileName)
	if in.IndexID == "" || in.FileName == "" {
		return nil, fmt.Errorf("%w: index_id and file_name required", pkgerrors.ErrInvalidArgument)
	}
	if in.Content == nil {
		return nil, fmt.Errorf("%w: file content required", pkgerrors.ErrInvalidArgument)
	}
	if in.ProcessingType == "" {
		in.ProcessingType = domain.ProcessingTypeDocument
	}

	id := uuid.New()
	key := path.Join("uploads", id.String(), in.FileName)
	if err := s.bucket.UploadFile(ctx, key, in.Content); err != nil {
		return nil, fmt.Errorf("upload %s: %w", in.FileName, err)
	}

	doc := &domain.Document{
		ID:             id,
		IndexID:        in.IndexID,
		FileName:       in.FileName,
		FileURI:        s.bucket.ObjectURI(key),
		FileType:       in.FileType,
		ProcessingType: in.ProcessingType,
		Status:         domain.StatusUploaded,
	}

	dbc := dbctx.New(ctx)
	if _, err := s.docs.Create(dbc, []*domain.Document{doc}); err != nil {
		return nil, err
	}
	if err := s.events.Append(dbc, &domain.DocumentEvent{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Status:     domain.StatusUploaded,
	}); err != nil {
		s.log.Warn("event append failed", "document_id", doc.ID, "error", err)
	}

	s.log.Info("document created",
		"document_id", doc.ID,
		"index_id", doc.IndexID,
		"file_name", doc.FileName,
		"processing_type", doc.ProcessingType,
	)
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return s.docs.GetByID(dbctx.New(ctx), id)
}

func (s *documentService) ListByIndex(ctx context.Context, indexID string) ([]*domain.Document, error) {
	return s.docs.ListByIndexID(dbctx.New(ctx), indexID)
}

func (s *documentService) Segments(ctx context.Context, documentID uuid.UUID) ([]*domain.Segment, error) {
	return s.segments.ListByDocumentID(dbctx.New(ctx), documentID)
}

func (s *documentService) Events(ctx context.Context, documentID uuid.UUID) ([]*domain.DocumentEvent, error) {
	return s.events.ListByDocumentID(dbctx.New(ctx), documentID)
}

func (s *documentService) RecordStatus(ctx context.Context, documentID uuid.UUID, status, detail string) error {
	status = domain.FoldStatus(status)
	dbc := dbctx.New(ctx)

	if err := s.docs.UpdateStatus(dbc, documentID, status, detail); err != nil {
		return err
	}

	doc, err := s.docs.GetByID(dbc, documentID)
	if err != nil {
		return err
	}

	if err := s.events.Append(dbc, &domain.DocumentEvent{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Status:     status,
		Detail:     detail,
	}); err != nil {
		s.log.Warn("event append failed", "document_id", documentID, "error", err)
	}

	if s.notifier != nil {
		s.notifier.StatusChanged(ctx, doc)
		if status == domain.StatusCompleted && doc.Summary != "" {
			s.notifier.SummaryReady(ctx, doc)
		}
	}
	return nil
}
