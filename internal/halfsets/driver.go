package halfsets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"tomopipe/internal/config"
	"tomopipe/internal/dataset"
	"tomopipe/internal/deps"
	"tomopipe/internal/logging"
	"tomopipe/internal/notifications"
	"tomopipe/internal/organizer"
	"tomopipe/internal/preflight"
	"tomopipe/internal/queue"
	"tomopipe/internal/services"
	"tomopipe/internal/services/imod"
	"tomopipe/internal/services/rsyncer"
)

// HandoffFunc launches the follow-on denoising run for a finished scan root.
type HandoffFunc func(root string) error

// Driver walks every dataset under a scan root through the half-tomogram
// stages and records outcomes in the ledger. Datasets are independent, so a
// failed or skipped dataset never stops the run.
type Driver struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	org      *organizer.Organizer
	handoff  HandoffFunc
	stages   []pipelineStage
}

type driverOptions struct {
	executor imod.Executor
	syncer   rsyncer.Syncer
	notifier notifications.Service
	handoff  HandoffFunc
}

// Option customizes driver construction, primarily for tests.
type Option func(*driverOptions)

// WithExecutor overrides the process launcher used for IMOD commands.
func WithExecutor(executor imod.Executor) Option {
	return func(o *driverOptions) {
		o.executor = executor
	}
}

// WithSyncer overrides the transfer client used for archive mirroring.
func WithSyncer(syncer rsyncer.Syncer) Option {
	return func(o *driverOptions) {
		o.syncer = syncer
	}
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *driverOptions) {
		o.notifier = notifier
	}
}

// WithHandoff overrides how pipeline-mode runs launch the denoising step.
func WithHandoff(handoff HandoffFunc) Option {
	return func(o *driverOptions) {
		o.handoff = handoff
	}
}

// NewDriver wires the stage handlers and their tool clients.
func NewDriver(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("halfsets: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("halfsets: store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	options := driverOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	var imodOpts []imod.Option
	if options.executor != nil {
		imodOpts = append(imodOpts, imod.WithExecutor(options.executor))
	}
	client, err := imod.New(
		deps.ResolveIMODTool(cfg.Tools.Subm),
		deps.ResolveIMODTool(cfg.Tools.Trimvol),
		time.Duration(cfg.Halfsets.StepTimeout)*time.Second,
		imodOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("halfsets: build imod client: %w", err)
	}

	org := organizer.New(cfg, logger)
	if options.syncer != nil {
		org = organizer.NewWithDependencies(cfg, logger, options.syncer)
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	handoff := options.handoff
	if handoff == nil {
		handoff = launchDenoise
	}

	return &Driver{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "halfsets"),
		notifier: notifier,
		org:      org,
		handoff:  handoff,
		stages: []pipelineStage{
			{name: "classify", processing: queue.StatusClassifying, handler: NewClassifier(logger)},
			{name: "align", processing: queue.StatusAligning, handler: NewAligner(cfg, logger, client)},
			{name: "reconstruct", processing: queue.StatusReconstructing, handler: NewReconstructor(cfg, logger, client)},
			{name: "rotate", processing: queue.StatusRotating, handler: NewRotator(cfg, logger, client)},
		},
	}, nil
}

// Run processes every dataset directory under root and returns the finished
// run record. Pipeline mode hands the root off to a detached denoising run
// once at least one dataset completed.
func (d *Driver) Run(ctx context.Context, mode, root string) (*queue.Run, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, d.logger)

	if err := d.runPreflightChecks(ctx, logger, root); err != nil {
		return nil, err
	}

	datasets, err := dataset.Discover(root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "halfsets", "discover datasets", "", err)
	}

	if _, err := d.store.CreateRun(ctx, runID, queue.RunKindHalfsets, mode, root); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	start := time.Now()
	logger.Info("halfsets run started",
		logging.String("mode", mode),
		logging.String("root", root),
		logging.Int("datasets", len(datasets)),
	)
	if err := d.notifier.NotifyRunStarted(ctx, queue.RunKindHalfsets, len(datasets)); err != nil {
		logger.Warn("run start notification failed", logging.Error(err))
	}

	runStatus := queue.RunCompleted
	completed := make([]dataset.Dataset, 0, len(datasets))
	for _, ds := range datasets {
		if ctx.Err() != nil {
			runStatus = queue.RunFailed
			logger.Warn("run interrupted", logging.Error(ctx.Err()))
			break
		}
		item, err := d.store.NewItem(ctx, runID, ds.Name, ds.Dir)
		if err != nil {
			return nil, fmt.Errorf("record dataset %s: %w", ds.Name, err)
		}
		if d.processDataset(ctx, item) {
			completed = append(completed, ds)
		}
	}

	for _, ds := range completed {
		if _, err := d.org.Collect(ctx, ds); err != nil {
			logger.Warn("half-set collection failed",
				logging.String(logging.FieldDataset, ds.Name),
				logging.Error(err),
			)
		}
	}

	if _, err := d.org.Sync(ctx, root); err != nil {
		logger.Warn("archive sync failed", logging.Error(err))
	}

	if mode == queue.ModePipeline && len(completed) > 0 {
		if err := d.handoff(root); err != nil {
			logger.Error("denoise handoff failed", logging.Error(err))
		} else {
			logger.Info("denoise run handed off", logging.String("root", root))
			if err := d.notifier.NotifyDenoiseHandoff(ctx, root); err != nil {
				logger.Warn("handoff notification failed", logging.Error(err))
			}
		}
	}

	finished, err := d.store.FinishRun(ctx, runID, runStatus)
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	logger.Info("halfsets run finished",
		logging.String("status", string(finished.Status)),
		logging.Int("completed", finished.Completed),
		logging.Int("failed", finished.Failed),
		logging.Int("skipped", finished.Skipped),
		logging.Duration("run_duration", time.Since(start)),
	)
	if err := d.notifier.NotifyRunCompleted(ctx, queue.RunKindHalfsets, finished.Completed, finished.Failed, finished.Skipped, time.Since(start)); err != nil {
		logger.Warn("run completion notification failed", logging.Error(err))
	}
	return finished, nil
}

// runPreflightChecks validates the environment and every stage's tool client
// before any ledger writes. Returns nil when all checks pass, or an error
// describing all failures.
func (d *Driver) runPreflightChecks(ctx context.Context, logger *slog.Logger, root string) error {
	var failures []string
	for _, r := range preflight.RunAll(ctx, d.cfg, root) {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and rerun"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	for _, st := range d.stages {
		health := st.handler.HealthCheck(ctx)
		if health.Ready {
			logger.Debug("stage health check passed", logging.String(logging.FieldStage, health.Name))
			continue
		}
		logger.Error("stage health check failed",
			logging.String(logging.FieldStage, health.Name),
			logging.String("detail", health.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "install the missing tool or adjust the tools section"),
		)
		failures = append(failures, fmt.Sprintf("stage %s: %s", health.Name, health.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "halfsets", "preflight", strings.Join(failures, "; "), nil)
	}
	return nil
}

// processDataset runs the stage sequence for one dataset. Returns true when
// every stage completed and the dataset reached the completed status.
func (d *Driver) processDataset(ctx context.Context, item *queue.Item) bool {
	ctx = services.WithDataset(ctx, item.Name)
	for _, st := range d.stages {
		if err := d.runStage(ctx, st, item); err != nil {
			d.recordStageFailure(ctx, st.name, item, err)
			return false
		}
	}
	item.SetCompleted("Half tomograms ready")
	if err := d.store.Update(ctx, item); err != nil {
		logging.WithContext(ctx, d.logger).Error("failed to persist dataset completion", logging.Error(err))
		return false
	}
	return true
}

func (d *Driver) runStage(ctx context.Context, st pipelineStage, item *queue.Item) error {
	ctx = services.WithStage(ctx, st.name)
	logger := logging.WithContext(ctx, d.logger)

	item.Status = st.processing
	item.ErrorMessage = ""
	if err := d.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	stageStart := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(st.processing)),
	)

	if err := st.handler.Prepare(ctx, item); err != nil {
		return err
	}
	if err := d.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	if err := st.handler.Execute(ctx, item); err != nil {
		return err
	}
	if err := d.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// recordStageFailure persists the terminal status for a dataset whose stage
// errored. Missing prerequisites turn into a skip; everything else is a
// failure that pages the operator.
func (d *Driver) recordStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	logger := logging.WithContext(ctx, d.logger)
	message := failureMessage(stageName, stageErr)

	if services.FailureStatus(stageErr) == queue.StatusSkipped {
		item.SetSkipped(message)
		logger.Warn("dataset skipped",
			logging.String(logging.FieldEventType, "dataset_skipped"),
			logging.String("reason", message),
		)
	} else {
		item.SetFailed(message)
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Alert("stage_failure"),
			logging.Error(stageErr),
		)
		if err := d.notifier.NotifyDatasetFailed(ctx, item.Name, message); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}

	if err := d.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
}

// failureMessage derives the operator-facing message for a failed stage.
func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	if message := services.Message(stageErr); message != "" {
		return message
	}
	return fmt.Sprintf("%s failed", stageName)
}

// launchDenoise starts a detached pipeline-mode denoising run over root. The
// child is released so it keeps running after this process exits.
func launchDenoise(root string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	proc := exec.Command(exe, "denoise", "1", root)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch denoise: %w", err)
	}
	return proc.Process.Release()
}
