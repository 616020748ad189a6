package docrun

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(nil)
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 120 {
		t.Fatalf("PollMaxAttempts = %d, want 120", cfg.PollMaxAttempts)
	}
	if cfg.RunTimeout != 60*time.Minute {
		t.Fatalf("RunTimeout = %v, want 60m", cfg.RunTimeout)
	}
	if cfg.MaxParallelSegments != 30 {
		t.Fatalf("MaxParallelSegments = %d, want 30", cfg.MaxParallelSegments)
	}
	if cfg.ToleratedFailurePct != 5 {
		t.Fatalf("ToleratedFailurePct = %d, want 5", cfg.ToleratedFailurePct)
	}
	if cfg.AnalyzeMaxIters != 5 {
		t.Fatalf("AnalyzeMaxIters = %d, want 5", cfg.AnalyzeMaxIters)
	}
	if cfg.SubtaskTimeout != 15*time.Minute {
		t.Fatalf("SubtaskTimeout = %v, want 15m", cfg.SubtaskTimeout)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DOCRUN_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("DOCRUN_POLL_MAX_ATTEMPTS", "3")
	t.Setenv("DOCRUN_MAX_PARALLEL_SEGMENTS", "8")
	t.Setenv("DOCRUN_TOLERATED_FAILURE_PCT", "250")

	cfg := LoadConfig(nil)
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 3 {
		t.Fatalf("PollMaxAttempts = %d, want 3", cfg.PollMaxAttempts)
	}
	if cfg.MaxParallelSegments != 8 {
		t.Fatalf("MaxParallelSegments = %d, want 8", cfg.MaxParallelSegments)
	}
	if cfg.ToleratedFailurePct != 100 {
		t.Fatalf("ToleratedFailurePct = %d, want clamp to 100", cfg.ToleratedFailurePct)
	}
}

func TestNormalizedClampsNonsense(t *testing.T) {
	cfg := Config{PollMaxAttempts: -1, ToleratedFailurePct: -3}.normalized()
	if cfg.PollMaxAttempts != 1 {
		t.Fatalf("PollMaxAttempts = %d, want 1", cfg.PollMaxAttempts)
	}
	if cfg.ToleratedFailurePct != 0 {
		t.Fatalf("ToleratedFailurePct = %d, want 0", cfg.ToleratedFailurePct)
	}
	if cfg.PollInterval != 30*time.Second || cfg.SubtaskTimeout != 15*time.Minute {
		t.Fatalf("zero durations not defaulted: %+v", cfg)
	}
}
