package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/docsight/docsight-backend/internal/docrun"
	"github.com/docsight/docsight-backend/internal/platform/envutil"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/temporalx"
)

// Runner hosts the document-run worker: it registers the workflow and its
// activities on the configured task queue and keeps retrying startup until
// the Temporal server is reachable.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	acts *docrun.Activities
	cfg  docrun.Config
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, acts *docrun.Activities, cfg docrun.Config) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if acts == nil {
		return nil, fmt.Errorf("temporal worker missing activities")
	}
	return &Runner{log: log, tc: tc, acts: acts, cfg: cfg}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	tcfg := temporalx.LoadConfig()
	if r.log != nil {
		r.log.Info("Starting Temporal worker",
			"address", tcfg.Address, "namespace", tcfg.Namespace, "task_queue", tcfg.TaskQueue)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxWait := time.Duration(envutil.GetEnvAsInt("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60, r.log)) * time.Second
	backoff := time.Duration(envutil.GetEnvAsInt("TEMPORAL_WORKER_START_BACKOFF_MS", 250, r.log)) * time.Millisecond
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker(tcfg.TaskQueue)
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			if r.log != nil {
				r.log.Info("Temporal worker started", "task_queue", tcfg.TaskQueue, "attempts", attempt)
			}
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) {
			if !envTrue("TEMPORAL_AUTO_REGISTER_NAMESPACE") {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", tcfg.Namespace, startErr)
			}
			if err := temporalx.EnsureNamespace(ctx, tcfg, r.log); err != nil && r.log != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", tcfg.Namespace, "error", err)
			}
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			return startErr
		}
		if r.log != nil {
			r.log.Warn("Temporal worker failed to start; retrying",
				"task_queue", tcfg.TaskQueue, "attempt", attempt, "error", startErr)
		}
		sleep := backoff * time.Duration(attempt)
		if sleep > 5*time.Second {
			sleep = 5 * time.Second
		}
		time.Sleep(sleep)
	}
}

func (r *Runner) newWorker(taskQueue string) worker.Worker {
	// Segment analysis is admission-gated process-wide; the worker's own
	// activity concurrency leaves headroom above the gate for the short
	// bookkeeping activities so status writes never queue behind analysis.
	concurrency := envutil.GetEnvAsInt("WORKER_CONCURRENCY", r.cfg.MaxParallelSegments+10, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	w.RegisterWorkflowWithOptions(docrun.NewWorkflow(r.cfg), workflow.RegisterOptions{Name: docrun.WorkflowName})
	w.RegisterActivityWithOptions(r.acts.RecordStatus, activity.RegisterOptions{Name: docrun.ActivityRecordStatus})
	w.RegisterActivityWithOptions(r.acts.SubmitExtraction, activity.RegisterOptions{Name: docrun.ActivitySubmitExtraction})
	w.RegisterActivityWithOptions(r.acts.PollExtraction, activity.RegisterOptions{Name: docrun.ActivityPollExtraction})
	w.RegisterActivityWithOptions(r.acts.ExtractText, activity.RegisterOptions{Name: docrun.ActivityExtractText})
	w.RegisterActivityWithOptions(r.acts.ListSegments, activity.RegisterOptions{Name: docrun.ActivityListSegments})
	w.RegisterActivityWithOptions(r.acts.AnalyzeSegment, activity.RegisterOptions{Name: docrun.ActivityAnalyzeSegment})
	w.RegisterActivityWithOptions(r.acts.FinalizeSegment, activity.RegisterOptions{Name: docrun.ActivityFinalizeSegment})
	w.RegisterActivityWithOptions(r.acts.MarkSegmentFailed, activity.RegisterOptions{Name: docrun.ActivityMarkSegmentFailed})
	w.RegisterActivityWithOptions(r.acts.Summarize, activity.RegisterOptions{Name: docrun.ActivitySummarize})
	return w
}

func envTrue(key string) bool {
	v := envutil.GetEnv(key, "", nil)
	return v == "1" || v == "true" || v == "yes"
}
