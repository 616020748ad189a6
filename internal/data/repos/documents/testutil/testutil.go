package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

// DB opens an isolated in-memory sqlite database with the full schema.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&domain.Document{}, &domain.Segment{}, &domain.DocumentEvent{}); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Tx wraps the test in a transaction that is rolled back on cleanup so cases
// stay independent.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("development")
	if err != nil {
		tb.Fatalf("logger: %v", err)
	}
	return log
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *domain.Document {
	tb.Helper()
	doc := &domain.Document{
		ID:             uuid.New(),
		IndexID:        "idx-test",
		FileName:       "file.pdf",
		FileURI:        "gs://bucket/file.pdf",
		FileType:       domain.MimeTypePDF,
		ProcessingType: domain.ProcessingTypeDocument,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}

func SeedSegment(tb testing.TB, ctx context.Context, tx *gorm.DB, documentID uuid.UUID, index int) *domain.Segment {
	tb.Helper()
	seg := &domain.Segment{
		ID:           uuid.New(),
		DocumentID:   documentID,
		SegmentIndex: index,
		Status:       domain.SegmentStatusPending,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(seg).Error; err != nil {
		tb.Fatalf("seed segment: %v", err)
	}
	return seg
}
