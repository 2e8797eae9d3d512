package halfsets

import (
	"context"
	"fmt"
	"os/exec"

	"log/slog"

	"tomopipe/internal/comfile"
	"tomopipe/internal/config"
	"tomopipe/internal/dataset"
	"tomopipe/internal/deps"
	"tomopipe/internal/logging"
	"tomopipe/internal/queue"
	"tomopipe/internal/services"
	"tomopipe/internal/services/imod"
	"tomopipe/internal/stage"
)

// Aligner regenerates the aligned stack for datasets whose transform exists
// but whose aligned volume is missing. Datasets that already carry an
// aligned stack pass through untouched.
type Aligner struct {
	cfg    *config.Config
	logger *slog.Logger
	client *imod.Client
}

// NewAligner constructs the alignment stage handler.
func NewAligner(cfg *config.Config, logger *slog.Logger, client *imod.Client) *Aligner {
	return &Aligner{cfg: cfg, logger: logging.NewComponentLogger(logger, "align"), client: client}
}

func (a *Aligner) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}

	if item.MetadataState != string(dataset.StateRealign) {
		item.SetProgress("Aligning", "Aligned stack already present")
		return nil
	}

	if err := comfile.WriteNewst(dir, item.Name, a.cfg.Halfsets.BinFactor); err != nil {
		return services.Wrap(
			services.ErrTransient, "align", "write newst.com",
			"Could not write newstack command file", err)
	}
	item.SetProgress("Aligning", "Wrote newst.com")
	logger.Info("wrote newstack command file", logging.Int("bin_factor", a.cfg.Halfsets.BinFactor))
	return nil
}

func (a *Aligner) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)

	if item.MetadataState != string(dataset.StateRealign) {
		logger.Debug("aligned stack already present; skipping newstack")
		return nil
	}

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}

	item.SetProgress("Aligning", "Running newstack")
	logger.Info("regenerating aligned stack")
	if err := a.client.Submit(ctx, dir, comfile.NewstFile, toolLineLogger(logger)); err != nil {
		return services.Wrap(
			services.ErrExternalTool, "align", "run newstack",
			"Aligned stack generation failed", err)
	}
	item.SetProgress("Aligning", "Aligned stack generated")
	logger.Info("generated aligned stack", logging.String("output", item.Name+"_ali.mrc"))
	return nil
}

func (a *Aligner) HealthCheck(context.Context) stage.Health {
	const name = "align"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if a.client == nil {
		return stage.Unhealthy(name, "imod client unavailable")
	}
	binary := deps.ResolveIMODTool(a.cfg.Tools.Subm)
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("subm binary %q not found", binary))
	}
	return stage.Healthy(name)
}
