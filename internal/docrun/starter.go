package docrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	pkgerrors "github.com/docsight/docsight-backend/internal/pkg/errors"
	"github.com/docsight/docsight-backend/internal/platform/logger"
	"github.com/docsight/docsight-backend/internal/temporalx"
)

// Starter is the trigger: one workflow execution per document. Duplicate
// starts are rejected twice over, by the local in-flight registry and by the
// deterministic WorkflowID on the cluster.
type Starter struct {
	log      *logger.Logger
	tc       temporalsdkclient.Client
	registry *Registry
	cfg      Config
}

func NewStarter(log *logger.Logger, tc temporalsdkclient.Client, registry *Registry, cfg Config) (*Starter, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if registry == nil {
		return nil, fmt.Errorf("docrun starter missing registry")
	}
	return &Starter{
		log:      log,
		tc:       tc,
		registry: registry,
		cfg:      cfg.normalized(),
	}, nil
}

// WorkflowID is deterministic per document so a second start while the first
// run is open fails with WorkflowExecutionAlreadyStarted.
func WorkflowID(in StartInput) string {
	return "docrun-" + in.DocumentID.String()
}

// Start validates the input and launches the run. The registry entry out-
// lives the call: it is released when the execution reaches a terminal
// state, observed by a watcher goroutine.
func (s *Starter) Start(ctx context.Context, in StartInput) (runID string, err error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	if err := s.registry.Acquire(in.DocumentID); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			s.registry.Release(in.DocumentID)
		}
	}()

	tcfg := temporalx.LoadConfig()
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        WorkflowID(in),
		TaskQueue: tcfg.TaskQueue,
		// The workflow enforces the run budget itself and records the
		// timeout status; the run timeout here is the server-side backstop.
		WorkflowRunTimeout: s.cfg.RunTimeout + 5*time.Minute,
	}

	wf, err := s.tc.ExecuteWorkflow(ctx, opts, WorkflowName, in)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return "", fmt.Errorf("document %s: %w", in.DocumentID, pkgerrors.ErrAlreadyProcessing)
		}
		return "", fmt.Errorf("start document run: %w", err)
	}

	go s.watch(wf, in)

	if s.log != nil {
		s.log.Info("document run started",
			"document_id", in.DocumentID,
			"workflow_id", wf.GetID(),
			"run_id", wf.GetRunID())
	}
	return wf.GetRunID(), nil
}

func (s *Starter) watch(wf temporalsdkclient.WorkflowRun, in StartInput) {
	defer s.registry.Release(in.DocumentID)
	err := wf.Get(context.Background(), nil)
	if s.log == nil {
		return
	}
	if err != nil {
		s.log.Warn("document run finished with failure",
			"document_id", in.DocumentID, "workflow_id", wf.GetID(), "error", err)
		return
	}
	s.log.Info("document run finished",
		"document_id", in.DocumentID, "workflow_id", wf.GetID())
}
