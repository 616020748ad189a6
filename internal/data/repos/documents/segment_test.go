package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/docsight/docsight-backend/internal/data/repos/documents/testutil"
	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
)

func TestSegmentRepoCreateIfAbsentIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSegmentRepo(db, testutil.Logger(t))

	doc := testutil.SeedDocument(t, ctx, tx, domain.StatusIndexingDone)

	batch := func() []*domain.Segment {
		out := make([]*domain.Segment, 0, 3)
		for i := 0; i < 3; i++ {
			out = append(out, &domain.Segment{
				ID:           uuid.New(),
				DocumentID:   doc.ID,
				SegmentIndex: i,
				Status:       domain.SegmentStatusPending,
			})
		}
		return out
	}

	if err := repo.CreateIfAbsent(dbc, batch()); err != nil {
		t.Fatalf("CreateIfAbsent first: %v", err)
	}
	// A retried enumeration with fresh IDs must not duplicate rows.
	if err := repo.CreateIfAbsent(dbc, batch()); err != nil {
		t.Fatalf("CreateIfAbsent retry: %v", err)
	}

	rows, err := repo.ListByDocumentID(dbc, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocumentID: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	for i, seg := range rows {
		if seg.SegmentIndex != i {
			t.Fatalf("rows[%d].SegmentIndex = %d, want %d", i, seg.SegmentIndex, i)
		}
	}
}

func TestSegmentRepoStatusAndAnalysis(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSegmentRepo(db, testutil.Logger(t))

	doc := testutil.SeedDocument(t, ctx, tx, domain.StatusReactAnalyzing)
	a := testutil.SeedSegment(t, ctx, tx, doc.ID, 0)
	b := testutil.SeedSegment(t, ctx, tx, doc.ID, 1)
	c := testutil.SeedSegment(t, ctx, tx, doc.ID, 2)

	if err := repo.UpdateStatus(dbc, a.ID, domain.SegmentStatusAnalyzing); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := repo.SetAnalysis(dbc, b.ID, datatypes.JSON([]byte(`{"entities":["pump"]}`)), "pump overview"); err != nil {
		t.Fatalf("SetAnalysis: %v", err)
	}
	if err := repo.UpdateStatus(dbc, c.ID, domain.SegmentStatusFailed); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	rows, err := repo.ListByDocumentID(dbc, doc.ID)
	if err != nil {
		t.Fatalf("ListByDocumentID: %v", err)
	}
	if rows[1].Status != domain.SegmentStatusCompleted || rows[1].Summary != "pump overview" {
		t.Fatalf("SetAnalysis row = %q/%q", rows[1].Status, rows[1].Summary)
	}

	counts, err := repo.CountByStatus(dbc, doc.ID)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	want := map[string]int{
		domain.SegmentStatusAnalyzing: 1,
		domain.SegmentStatusCompleted: 1,
		domain.SegmentStatusFailed:    1,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
}
