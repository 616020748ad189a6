package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/docsight/docsight-backend/internal/clients/extraction"
	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/clients/media"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

// FrameService renders one representative frame per shot so visual segments
// carry an image the analyzer can actually look at.
type FrameService interface {
	// ShotFrames returns shot index -> fetchable image URL. A shot whose
	// frame could not be rendered is simply absent from the map; the run
	// continues without it.
	ShotFrames(ctx context.Context, documentID uuid.UUID, fileURI string, shots []extraction.Shot) (map[int]string, error)
}

type frameService struct {
	log    *logger.Logger
	bucket gcp.BucketService
	tools  media.Tools
}

func NewFrameService(log *logger.Logger, bucket gcp.BucketService, tools media.Tools) FrameService {
	return &frameService{
		log:    log.With("service", "FrameService"),
		bucket: bucket,
		tools:  tools,
	}
}

func (s *frameService) ShotFrames(ctx context.Context, documentID uuid.UUID, fileURI string, shots []extraction.Shot) (map[int]string, error) {
	if len(shots) == 0 {
		return map[int]string{}, nil
	}
	_, key, err := gcp.ParseURI(fileURI)
	if err != nil {
		return nil, fmt.Errorf("frame source uri: %w", err)
	}

	rc, err := s.bucket.DownloadFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download frame source: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read frame source: %w", err)
	}

	localPath, cleanup, err := s.tools.WriteTempFile(ctx, data, filepath.Ext(key))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	outDir, err := os.MkdirTemp("", "docsight-frames-")
	if err != nil {
		return nil, fmt.Errorf("frame out dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	uris := make(map[int]string, len(shots))
	for _, shot := range shots {
		framePath, err := s.tools.ExtractFrameAt(ctx, localPath, outDir, shot.StartSeconds)
		if err != nil {
			s.log.Warn("frame grab failed, segment continues without image",
				"document_id", documentID, "shot_index", shot.Index, "error", err)
			continue
		}
		f, err := os.Open(framePath)
		if err != nil {
			s.log.Warn("frame open failed", "path", framePath, "error", err)
			continue
		}
		objKey := fmt.Sprintf("frames/%s/%d.jpg", documentID, shot.Index)
		err = s.bucket.UploadFile(ctx, objKey, f)
		f.Close()
		if err != nil {
			s.log.Warn("frame upload failed", "key", objKey, "error", err)
			continue
		}
		uris[shot.Index] = s.bucket.GetPublicURL(objKey)
	}
	return uris, nil
}
