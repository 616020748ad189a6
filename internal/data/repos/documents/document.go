package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsight/docsight-backend/internal/domain"
	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, docs []*domain.Document) ([]*domain.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Document, error)
	ListByIndexID(dbc dbctx.Context, indexID string) ([]*domain.Document, error)
	// UpdateStatus enforces the single-writer lifecycle: terminal statuses
	// are immutable and the canonical order is never walked backwards.
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status, detail string) error
	SetMediaType(dbc dbctx.Context, id uuid.UUID, mediaType string) error
	SetPageCount(dbc dbctx.Context, id uuid.UUID, pageCount int) error
	SetSummary(dbc dbctx.Context, id uuid.UUID, summary string) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *documentRepo) Create(dbc dbctx.Context, docs []*domain.Document) ([]*domain.Document, error) {
	if len(docs) == 0 {
		return []*domain.Document{}, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Document, error) {
	var results []*domain.Document
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *documentRepo) ListByIndexID(dbc dbctx.Context, indexID string) ([]*domain.Document, error) {
	var results []*domain.Document
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("index_id = ?", indexID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *documentRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status, detail string) error {
	doc, err := r.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if doc.Status == status {
		return nil
	}
	if domain.IsTerminalStatus(doc.Status) {
		return fmt.Errorf("document %s at %s: %w", id, doc.Status, pkgerrors.ErrTerminalStatus)
	}
	if !domain.CanTransition(doc.Status, status) {
		return fmt.Errorf("document %s: %s -> %s: %w", id, doc.Status, status, pkgerrors.ErrStatusRegression)
	}

	// Conditional write so a concurrent writer cannot interleave; the
	// WHERE on the previous status makes the transition compare-and-swap.
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ? AND status = ?", id, doc.Status).
		Updates(map[string]any{
			"status":        status,
			"status_detail": detail,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s: concurrent status write lost (%s -> %s): %w", id, doc.Status, status, pkgerrors.ErrStatusRegression)
	}
	return nil
}

func (r *documentRepo) SetMediaType(dbc dbctx.Context, id uuid.UUID, mediaType string) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"media_type": mediaType, "updated_at": time.Now().UTC()}).Error
}

func (r *documentRepo) SetPageCount(dbc dbctx.Context, id uuid.UUID, pageCount int) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"page_count": pageCount, "updated_at": time.Now().UTC()}).Error
}

func (r *documentRepo) SetSummary(dbc dbctx.Context, id uuid.UUID, summary string) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"summary": summary, "updated_at": time.Now().UTC()}).Error
}
