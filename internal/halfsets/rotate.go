package halfsets

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

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

// Rotator swings each half reconstruction around the X axis into the final
// viewing orientation. Like reconstruction, both halves are attempted even
// when the first fails.
type Rotator struct {
	cfg    *config.Config
	logger *slog.Logger
	client *imod.Client
}

// NewRotator constructs the rotation stage handler.
func NewRotator(cfg *config.Config, logger *slog.Logger, client *imod.Client) *Rotator {
	return &Rotator{cfg: cfg, logger: logging.NewComponentLogger(logger, "rotate"), client: client}
}

func (r *Rotator) Prepare(ctx context.Context, item *queue.Item) error {
	item.SetProgress("Rotating", "Preparing rotation")
	return nil
}

func (r *Rotator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}
	ds := dataset.Dataset{Name: item.Name, Dir: dir}

	var failures []string
	for _, half := range []string{comfile.HalfEvens, comfile.HalfOdds} {
		input := filepath.Base(ds.HalfOutput(half))
		output := filepath.Base(ds.RotatedHalf(half))
		item.SetProgress("Rotating", fmt.Sprintf("Rotating %s half", half))
		logger.Info("rotating half tomogram",
			logging.String("half", half),
			logging.String("output", output),
		)
		if err := r.client.Trimvol(ctx, dir, input, output, toolLineLogger(logger)); err != nil {
			logger.Error("half rotation failed",
				logging.String("half", half),
				logging.Error(err),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", half, err))
			continue
		}
		logger.Info("half tomogram rotated", logging.String("half", half))
	}
	if len(failures) > 0 {
		return services.Wrap(
			services.ErrExternalTool, "rotate", "run trimvol",
			"Half rotation failed: "+strings.Join(failures, "; "), nil)
	}

	item.SetProgress("Rotating", "Both half tomograms rotated")
	return nil
}

func (r *Rotator) HealthCheck(context.Context) stage.Health {
	const name = "rotate"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if r.client == nil {
		return stage.Unhealthy(name, "imod client unavailable")
	}
	binary := deps.ResolveIMODTool(r.cfg.Tools.Trimvol)
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("trimvol binary %q not found", binary))
	}
	return stage.Healthy(name)
}
