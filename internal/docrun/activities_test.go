package docrun

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
	"gorm.io/datatypes"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/dbctx"
	"github.com/docsight/docsight-backend/internal/services"
)

type noopSegmentRepo struct{}

func (noopSegmentRepo) CreateIfAbsent(dbctx.Context, []*domain.Segment) error { return nil }
func (noopSegmentRepo) ListByDocumentID(dbctx.Context, uuid.UUID) ([]*domain.Segment, error) {
	return nil, nil
}
func (noopSegmentRepo) UpdateStatus(dbctx.Context, uuid.UUID, string) error { return nil }
func (noopSegmentRepo) SetAnalysis(dbctx.Context, uuid.UUID, datatypes.JSON, string) error {
	return nil
}
func (noopSegmentRepo) CountByStatus(dbctx.Context, uuid.UUID) (map[string]int, error) {
	return nil, nil
}

type staticAnalyzer struct{}

func (staticAnalyzer) Analyze(context.Context, services.AnalyzeInput) (services.AnalysisResult, error) {
	return services.AnalysisResult{Analysis: datatypes.JSON(`{}`)}, nil
}

// memSegmentRepo keeps rows in memory in insertion order.
type memSegmentRepo struct {
	rows []*domain.Segment
}

func (m *memSegmentRepo) CreateIfAbsent(_ dbctx.Context, segments []*domain.Segment) error {
	for _, s := range segments {
		exists := false
		for _, have := range m.rows {
			if have.DocumentID == s.DocumentID && have.SegmentIndex == s.SegmentIndex {
				exists = true
				break
			}
		}
		if !exists {
			m.rows = append(m.rows, s)
		}
	}
	return nil
}

func (m *memSegmentRepo) ListByDocumentID(_ dbctx.Context, documentID uuid.UUID) ([]*domain.Segment, error) {
	var out []*domain.Segment
	for _, s := range m.rows {
		if s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSegmentRepo) UpdateStatus(_ dbctx.Context, segmentID uuid.UUID, status string) error {
	for _, s := range m.rows {
		if s.ID == segmentID {
			s.Status = status
		}
	}
	return nil
}

func (m *memSegmentRepo) SetAnalysis(dbctx.Context, uuid.UUID, datatypes.JSON, string) error {
	return nil
}

func (m *memSegmentRepo) CountByStatus(dbctx.Context, uuid.UUID) (map[string]int, error) {
	return nil, nil
}

type staticFrames struct {
	uris map[int]string
}

func (s staticFrames) ShotFrames(context.Context, uuid.UUID, string, []extraction.Shot) (map[int]string, error) {
	return s.uris, nil
}

type singleDocRepo struct {
	doc *domain.Document
}

func (r singleDocRepo) Create(_ dbctx.Context, docs []*domain.Document) ([]*domain.Document, error) {
	return docs, nil
}
func (r singleDocRepo) GetByID(dbctx.Context, uuid.UUID) (*domain.Document, error) {
	return r.doc, nil
}
func (r singleDocRepo) GetByIDs(dbctx.Context, []uuid.UUID) ([]*domain.Document, error) {
	return []*domain.Document{r.doc}, nil
}
func (r singleDocRepo) ListByIndexID(dbctx.Context, string) ([]*domain.Document, error) {
	return []*domain.Document{r.doc}, nil
}
func (r singleDocRepo) UpdateStatus(dbctx.Context, uuid.UUID, string, string) error { return nil }
func (r singleDocRepo) SetMediaType(dbctx.Context, uuid.UUID, string) error         { return nil }
func (r singleDocRepo) SetPageCount(dbctx.Context, uuid.UUID, int) error            { return nil }
func (r singleDocRepo) SetSummary(dbctx.Context, uuid.UUID, string) error           { return nil }

// Video segments without a frame give the analyzer nothing to look at, so
// shot enumeration has to carry the rendered frame URL onto each row.
func TestListSegmentsCarriesShotFrames(t *testing.T) {
	docID := uuid.New()
	acts := &Activities{
		Segments: &memSegmentRepo{},
		Frames: staticFrames{uris: map[int]string{
			0: "https://cdn.test/frames/0.jpg",
			1: "https://cdn.test/frames/1.jpg",
		}},
	}

	refs, err := acts.ListSegments(context.Background(), ListSegmentsInput{
		DocumentID: docID,
		FileURI:    "gs://test-bucket/uploads/a.mp4",
		MediaType:  domain.MediaTypeVideo,
		Shots: []extraction.Shot{
			{Index: 0, StartSeconds: 0, StartTimecode: "0s"},
			{Index: 1, StartSeconds: 8.2, StartTimecode: "8.2s"},
		},
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for i, ref := range refs {
		require.Equalf(t, fmt.Sprintf("https://cdn.test/frames/%d.jpg", i), ref.ImageURI,
			"segment %d has no frame", i)
	}
}

func TestListSegmentsImageDocumentUsesSourceObject(t *testing.T) {
	docID := uuid.New()
	acts := &Activities{
		Docs:     singleDocRepo{doc: &domain.Document{ID: docID}},
		Segments: &memSegmentRepo{},
	}

	refs, err := acts.ListSegments(context.Background(), ListSegmentsInput{
		DocumentID: docID,
		FileURI:    "gs://test-bucket/uploads/chart.png",
		MediaType:  domain.MediaTypeImage,
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "gs://test-bucket/uploads/chart.png", refs[0].ImageURI)
}

// The admission gate is shared across documents, so an analyze activity can
// sit in the acquire queue for a long time. It has to heartbeat while it
// waits, or the server kills it on the heartbeat timeout before a slot ever
// opens. The test holds the only slot and releases it on the first observed
// heartbeat; with acquire ordered before the heartbeat the activity would
// stall with no beats and the run would hit its StartToClose.
func TestAnalyzeSegmentHeartbeatsWhileQueuedAtGate(t *testing.T) {
	gate := NewGate(1)
	require.NoError(t, gate.Acquire(context.Background()))

	acts := &Activities{
		Segments:       noopSegmentRepo{},
		Analyzer:       staticAnalyzer{},
		Gate:           gate,
		Config:         testConfig(),
		heartbeatEvery: 5 * time.Millisecond,
	}

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(acts.AnalyzeSegment, activity.RegisterOptions{Name: ActivityAnalyzeSegment})

	var once sync.Once
	var beatWhileQueued bool
	env.SetOnActivityHeartbeatListener(func(_ *activity.Info, _ converter.EncodedValues) {
		once.Do(func() {
			beatWhileQueued = true
			gate.Release()
		})
	})

	wf := func(ctx workflow.Context, in AnalyzeSegmentInput) error {
		actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 10 * time.Second,
			HeartbeatTimeout:    time.Minute,
		})
		return workflow.ExecuteActivity(actx, ActivityAnalyzeSegment, in).Get(actx, nil)
	}
	env.RegisterWorkflow(wf)

	env.ExecuteWorkflow(wf, AnalyzeSegmentInput{
		DocumentID: uuid.New(),
		IndexID:    "idx-1",
		MediaType:  domain.MediaTypeVideo,
		Segment:    SegmentRef{SegmentID: uuid.New(), SegmentIndex: 0},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	require.True(t, beatWhileQueued, "no heartbeat observed while waiting for a gate slot")
}
