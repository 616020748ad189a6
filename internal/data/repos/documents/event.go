package documents

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type DocumentEventRepo interface {
	Append(dbc dbctx.Context, ev *domain.DocumentEvent) error
	ListByDocumentID(dbc dbctx.Context, documentID uuid.UUID) ([]*domain.DocumentEvent, error)
}

type documentEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentEventRepo(db *gorm.DB, baseLog *logger.Logger) DocumentEventRepo {
	return &documentEventRepo{db: db, log: baseLog.With("repo", "DocumentEventRepo")}
}

func (r *documentEventRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *documentEventRepo) Append(dbc dbctx.Context, ev *domain.DocumentEvent) error {
	if ev == nil {
		return nil
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	return r.conn(dbc).WithContext(dbc.Ctx).Create(ev).Error
}

func (r *documentEventRepo) ListByDocumentID(dbc dbctx.Context, documentID uuid.UUID) ([]*domain.DocumentEvent, error) {
	var results []*domain.DocumentEvent
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
