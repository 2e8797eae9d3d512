package denoise

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tomopipe/internal/config"
	"tomopipe/internal/deps"
	"tomopipe/internal/logging"
	"tomopipe/internal/notifications"
	"tomopipe/internal/preflight"
	"tomopipe/internal/queue"
	"tomopipe/internal/services"
	"tomopipe/internal/services/ddw"
)

// Driver runs one denoising pass over a scan root: locate half-set pairs,
// fit the model on a training sample, pick the best checkpoint, and refine
// every tomogram. The whole pass succeeds or fails as a unit; the external
// trainer offers no per-tomogram outcome to report.
type Driver struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	client   ddw.Runner
	notifier notifications.Service
	rng      *rand.Rand
}

type driverOptions struct {
	client   ddw.Runner
	notifier notifications.Service
	rng      *rand.Rand
}

// Option customizes driver construction, primarily for tests.
type Option func(*driverOptions)

// WithClient overrides the denoiser CLI client.
func WithClient(client ddw.Runner) Option {
	return func(o *driverOptions) {
		o.client = client
	}
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *driverOptions) {
		o.notifier = notifier
	}
}

// WithRand overrides the sampling source so tests pick deterministically.
func WithRand(rng *rand.Rand) Option {
	return func(o *driverOptions) {
		o.rng = rng
	}
}

// NewDriver wires the denoiser client and notification service.
func NewDriver(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("denoise: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("denoise: store is required")
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

	client := options.client
	if client == nil {
		client = ddw.NewCLI(ddw.WithBinary(cfg.Tools.DDW))
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	rng := options.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Driver{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "denoise"),
		client:   client,
		notifier: notifier,
		rng:      rng,
	}, nil
}

// Run executes the denoising pass over root and returns the finished run
// record. Any step failing fails the whole run.
func (d *Driver) Run(ctx context.Context, mode, root string) (*queue.Run, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, d.logger)

	if result := preflight.CheckDirectoryAccess("Scan root", root); !result.Passed {
		return nil, services.Wrap(services.ErrConfiguration, "denoise", "preflight", result.Detail, nil)
	}
	trainerStatus := deps.CheckBinaries([]deps.Requirement{{
		Name:        "ddw",
		Command:     d.cfg.Tools.DDW,
		Description: "Trains and applies the denoising model",
	}})
	if !trainerStatus[0].Available {
		detail := fmt.Sprintf("%s; install it or set tools.ddw", trainerStatus[0].Detail)
		return nil, services.Wrap(services.ErrConfiguration, "denoise", "preflight", detail, nil)
	}

	pairs, err := LocatePairs(root, d.cfg.Denoise.EvensSuffix, d.cfg.Denoise.OddsSuffix, d.cfg.Denoise.Extension)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "denoise", "locate half sets", "", err)
	}

	if _, err := d.store.CreateRun(ctx, runID, queue.RunKindDenoise, mode, root); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	start := time.Now()
	logger.Info("denoise run started",
		logging.String("mode", mode),
		logging.String("root", root),
		logging.Int("pairs", len(pairs)),
	)
	if err := d.notifier.NotifyRunStarted(ctx, queue.RunKindDenoise, len(pairs)); err != nil {
		logger.Warn("run start notification failed", logging.Error(err))
	}

	items := make([]*queue.Item, 0, len(pairs))
	for _, pair := range pairs {
		item, err := d.store.NewItem(ctx, runID, pair.Name, filepath.Dir(pair.Evens))
		if err != nil {
			return nil, fmt.Errorf("record pair %s: %w", pair.Name, err)
		}
		items = append(items, item)
	}

	if runErr := d.execute(ctx, root, pairs, items); runErr != nil {
		message := services.Message(runErr)
		d.updateItems(ctx, items, func(item *queue.Item) { item.SetFailed(message) })
		logger.Error("denoise run failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.Alert("run_failure"),
			logging.Error(runErr),
		)
		if _, err := d.store.FinishRun(ctx, runID, queue.RunFailed); err != nil {
			logger.Error("failed to finish run", logging.Error(err))
		}
		if err := d.notifier.NotifyError(ctx, runErr, "denoise run"); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
		return nil, runErr
	}

	d.updateItems(ctx, items, func(item *queue.Item) { item.SetCompleted("Denoised tomogram ready") })
	finished, err := d.store.FinishRun(ctx, runID, queue.RunCompleted)
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	logger.Info("denoise run finished",
		logging.String("status", string(finished.Status)),
		logging.Int("completed", finished.Completed),
		logging.Duration("run_duration", time.Since(start)),
	)
	if err := d.notifier.NotifyRunCompleted(ctx, queue.RunKindDenoise, finished.Completed, finished.Failed, finished.Skipped, time.Since(start)); err != nil {
		logger.Warn("run completion notification failed", logging.Error(err))
	}
	return finished, nil
}

func (d *Driver) execute(ctx context.Context, root string, pairs []Pair, items []*queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)

	training := SamplePairs(d.rng, pairs, d.cfg.Denoise.TrainingPairs)
	names := make([]string, 0, len(training))
	for _, pair := range training {
		names = append(names, pair.Name)
	}
	logger.Info("selected training pairs",
		logging.Int("training", len(training)),
		logging.Int("total", len(pairs)),
		logging.String("names", strings.Join(names, ", ")),
	)

	fitConfig, err := WriteFitConfig(d.cfg, root, training)
	if err != nil {
		return services.Wrap(services.ErrTransient, "denoise", "write fit config", "", err)
	}
	logger.Info("wrote trainer configuration", logging.String("path", fitConfig))

	d.updateItems(ctx, items, func(item *queue.Item) {
		item.Status = queue.StatusTraining
		item.SetProgress("Training", "Fitting the denoising model")
	})
	if err := d.client.FitModel(ctx, fitConfig, trainerProgressLogger(logger, "fit", d.cfg.Denoise.Epochs)); err != nil {
		return services.Wrap(services.ErrExternalTool, "denoise", "fit model", "Model fitting failed", err)
	}
	logger.Info("model fitting complete")

	checkpoint, err := BestCheckpoint(ProjectDir(root), d.cfg.Denoise.ModelSelection)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "denoise", "select checkpoint", "", err)
	}
	logger.Info("selected model checkpoint",
		logging.String("checkpoint", filepath.Base(checkpoint)),
		logging.String("selection", d.cfg.Denoise.ModelSelection),
	)

	refineConfig, err := WriteRefineConfig(d.cfg, root, pairs, checkpoint)
	if err != nil {
		return services.Wrap(services.ErrTransient, "denoise", "write refine config", "", err)
	}

	d.updateItems(ctx, items, func(item *queue.Item) {
		item.Status = queue.StatusRefining
		item.SetProgress("Refining", "Denoising all tomograms")
	})
	if err := d.client.RefineTomogram(ctx, refineConfig, toolLineLogger(logger)); err != nil {
		return services.Wrap(services.ErrExternalTool, "denoise", "refine tomograms", "Tomogram refinement failed", err)
	}
	logger.Info("tomogram refinement complete", logging.Int("tomograms", len(pairs)))
	return nil
}

func (d *Driver) updateItems(ctx context.Context, items []*queue.Item, apply func(*queue.Item)) {
	logger := logging.WithContext(ctx, d.logger)
	for _, item := range items {
		apply(item)
		if err := d.store.Update(ctx, item); err != nil {
			logger.Error("failed to persist item transition",
				logging.String(logging.FieldDataset, item.Name),
				logging.Error(err),
			)
		}
	}
}

func toolLineLogger(logger *slog.Logger) func(string) {
	return func(line string) {
		logger.Debug("tool output", logging.String("line", line))
	}
}
