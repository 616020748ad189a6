package docrun

import (
	"time"

	"github.com/docsight/docsight-backend/internal/platform/envutil"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

// Config holds the run-level knobs. Poll waits are a fixed interval, not
// backoff; the extraction service gains nothing from being polled gently and
// a fixed cadence keeps the attempt budget meaningful.
type Config struct {
	PollInterval        time.Duration
	PollMaxAttempts     int
	RunTimeout          time.Duration
	MaxParallelSegments int
	ToleratedFailurePct int
	AnalyzeMaxIters     int
	SubtaskTimeout      time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		PollInterval:        time.Duration(envutil.GetEnvAsInt("DOCRUN_POLL_INTERVAL_SECONDS", 30, log)) * time.Second,
		PollMaxAttempts:     envutil.GetEnvAsInt("DOCRUN_POLL_MAX_ATTEMPTS", 120, log),
		RunTimeout:          time.Duration(envutil.GetEnvAsInt("DOCRUN_RUN_TIMEOUT_MINUTES", 60, log)) * time.Minute,
		MaxParallelSegments: envutil.GetEnvAsInt("DOCRUN_MAX_PARALLEL_SEGMENTS", 30, log),
		ToleratedFailurePct: envutil.GetEnvAsInt("DOCRUN_TOLERATED_FAILURE_PCT", 5, log),
		AnalyzeMaxIters:     envutil.GetEnvAsInt("DOCRUN_ANALYZE_MAX_ITERATIONS", 5, log),
		SubtaskTimeout:      time.Duration(envutil.GetEnvAsInt("DOCRUN_SUBTASK_TIMEOUT_MINUTES", 15, log)) * time.Minute,
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.PollMaxAttempts < 1 {
		c.PollMaxAttempts = 1
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 60 * time.Minute
	}
	if c.MaxParallelSegments < 1 {
		c.MaxParallelSegments = 1
	}
	if c.ToleratedFailurePct < 0 {
		c.ToleratedFailurePct = 0
	}
	if c.ToleratedFailurePct > 100 {
		c.ToleratedFailurePct = 100
	}
	if c.AnalyzeMaxIters < 1 {
		c.AnalyzeMaxIters = 1
	}
	if c.SubtaskTimeout <= 0 {
		c.SubtaskTimeout = 15 * time.Minute
	}
	return c
}
