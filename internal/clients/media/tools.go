package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docsight/docsight-backend/internal/platform/logger"
)

// Tools shells out to ffmpeg for frame grabs. Every output lands under a
// private work root so cleanup is a single directory remove.
type Tools interface {
	AssertReady(ctx context.Context) error
	WriteTempFile(ctx context.Context, data []byte, suffix string) (path string, cleanup func(), err error)
	// ExtractFrameAt grabs a single frame at the given offset and returns
	// the path of the written jpeg.
	ExtractFrameAt(ctx context.Context, videoPath string, outDir string, atSeconds float64) (string, error)
}

type tools struct {
	log            *logger.Logger
	ffmpegPath     string
	workRoot       string
	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	root := os.Getenv("MEDIA_WORK_ROOT")
	if root == "" {
		root = filepath.Join(os.TempDir(), "docsight-media")
	}
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		workRoot:       root,
		defaultTimeout: 2 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffmpegPath, err)
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create work root: %w", err)
	}
	return nil
}

func (m *tools) WriteTempFile(_ context.Context, data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir work root: %w", err)
	}
	h := sha256.Sum256(data)
	base := hex.EncodeToString(h[:])[:16]
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(m.workRoot, base+suffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

func (m *tools) ExtractFrameAt(ctx context.Context, videoPath string, outDir string, atSeconds float64) (string, error) {
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	if outDir == "" {
		outDir = m.workRoot
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir outDir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	outPath := filepath.Join(outDir, fmt.Sprintf("frame_%s.jpg",
		strings.ReplaceAll(strconv.FormatFloat(atSeconds, 'f', 3, 64), ".", "_")))
	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg frame grab failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("frame output missing at %s", outPath)
	}
	return outPath, nil
}
