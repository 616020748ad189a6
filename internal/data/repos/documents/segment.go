package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type SegmentRepo interface {
	// CreateIfAbsent bulk-inserts segments, skipping rows whose
	// (document_id, segment_index) already exist. Re-driving a document is
	// therefore safe.
	CreateIfAbsent(dbc dbctx.Context, segments []*domain.Segment) error
	ListByDocumentID(dbc dbctx.Context, documentID uuid.UUID) ([]*domain.Segment, error)
	UpdateStatus(dbc dbctx.Context, segmentID uuid.UUID, status string) error
	SetAnalysis(dbc dbctx.Context, segmentID uuid.UUID, analysis datatypes.JSON, summary string) error
	CountByStatus(dbc dbctx.Context, documentID uuid.UUID) (map[string]int, error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{db: db, log: baseLog.With("repo", "SegmentRepo")}
}

func (r *segmentRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *segmentRepo) CreateIfAbsent(dbc dbctx.Context, segments []*domain.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "segment_index"}},
			DoNothing: true,
		}).
		Create(&segments).Error
}

func (r *segmentRepo) ListByDocumentID(dbc dbctx.Context, documentID uuid.UUID) ([]*domain.Segment, error) {
	var results []*domain.Segment
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Order("segment_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *segmentRepo) UpdateStatus(dbc dbctx.Context, segmentID uuid.UUID, status string) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Segment{}).
		Where("id = ?", segmentID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

// SetAnalysis stores the finalized analysis and marks the segment completed
// in one write.
func (r *segmentRepo) SetAnalysis(dbc dbctx.Context, segmentID uuid.UUID, analysis datatypes.JSON, summary string) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Segment{}).
		Where("id = ?", segmentID).
		Updates(map[string]any{
			"analysis":   analysis,
			"summary":    summary,
			"status":     domain.SegmentStatusCompleted,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *segmentRepo) CountByStatus(dbc dbctx.Context, documentID uuid.UUID) (map[string]int, error) {
	type row struct {
		Status string
		N      int
	}
	var rows []row
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Segment{}).
		Select("status, count(*) as n").
		Where("document_id = ?", documentID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
