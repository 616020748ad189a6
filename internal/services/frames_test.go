package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
)

// fakeMediaTools writes real files so the service's open/upload path runs.
type fakeMediaTools struct {
	dir       string
	failAt    map[float64]bool
	grabCalls int
}

func (f *fakeMediaTools) AssertReady(context.Context) error { return nil }

func (f *fakeMediaTools) WriteTempFile(_ context.Context, data []byte, suffix string) (string, func(), error) {
	path := filepath.Join(f.dir, "source"+suffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, err
	}
	return path, func() {}, nil
}

func (f *fakeMediaTools) ExtractFrameAt(_ context.Context, _ string, outDir string, atSeconds float64) (string, error) {
	f.grabCalls++
	if f.failAt[atSeconds] {
		return "", fmt.Errorf("no frame at %.3f", atSeconds)
	}
	path := filepath.Join(outDir, fmt.Sprintf("frame_%.3f.jpg", atSeconds))
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func TestShotFramesUploadsOnePerShot(t *testing.T) {
	bucket := newFakeBucket()
	docID := uuid.New()
	if err := bucket.UploadFile(context.Background(), "uploads/a.mp4", bytes.NewReader([]byte("video"))); err != nil {
		t.Fatalf("seed bucket: %v", err)
	}
	tools := &fakeMediaTools{dir: t.TempDir()}
	svc := NewFrameService(testLogger(t), bucket, tools)

	shots := []extraction.Shot{
		{Index: 0, StartSeconds: 0},
		{Index: 1, StartSeconds: 12.5},
	}
	uris, err := svc.ShotFrames(context.Background(), docID, "gs://test-bucket/uploads/a.mp4", shots)
	if err != nil {
		t.Fatalf("ShotFrames: %v", err)
	}
	if len(uris) != 2 {
		t.Fatalf("got %d frame uris, want 2", len(uris))
	}
	for _, shot := range shots {
		want := "https://cdn.test/" + fmt.Sprintf("frames/%s/%d.jpg", docID, shot.Index)
		if uris[shot.Index] != want {
			t.Fatalf("shot %d uri = %q, want %q", shot.Index, uris[shot.Index], want)
		}
		key := fmt.Sprintf("frames/%s/%d.jpg", docID, shot.Index)
		if _, err := bucket.DownloadFile(context.Background(), key); err != nil {
			t.Fatalf("frame %q not uploaded: %v", key, err)
		}
	}
}

func TestShotFramesSkipsFailedGrabs(t *testing.T) {
	bucket := newFakeBucket()
	docID := uuid.New()
	if err := bucket.UploadFile(context.Background(), "uploads/b.mp4", bytes.NewReader([]byte("video"))); err != nil {
		t.Fatalf("seed bucket: %v", err)
	}
	tools := &fakeMediaTools{dir: t.TempDir(), failAt: map[float64]bool{7.0: true}}
	svc := NewFrameService(testLogger(t), bucket, tools)

	uris, err := svc.ShotFrames(context.Background(), docID, "gs://test-bucket/uploads/b.mp4", []extraction.Shot{
		{Index: 0, StartSeconds: 0},
		{Index: 1, StartSeconds: 7.0},
		{Index: 2, StartSeconds: 14.0},
	})
	if err != nil {
		t.Fatalf("ShotFrames: %v", err)
	}
	if len(uris) != 2 {
		t.Fatalf("got %d frame uris, want 2", len(uris))
	}
	if _, ok := uris[1]; ok {
		t.Fatalf("shot 1 should have no frame uri")
	}
}

func TestShotFramesRejectsBadSourceURI(t *testing.T) {
	svc := NewFrameService(testLogger(t), newFakeBucket(), &fakeMediaTools{dir: t.TempDir()})
	_, err := svc.ShotFrames(context.Background(), uuid.New(), "https://not-a-bucket/x.mp4", []extraction.Shot{{Index: 0}})
	if err == nil {
		t.Fatalf("want error for non-gs source uri")
	}
}
