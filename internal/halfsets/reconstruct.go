package halfsets

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"log/slog"

	"tomopipe/internal/comfile"
	"tomopipe/internal/config"
	"tomopipe/internal/dataset"
	"tomopipe/internal/deps"
	"tomopipe/internal/logging"
	"tomopipe/internal/mrc"
	"tomopipe/internal/queue"
	"tomopipe/internal/services"
	"tomopipe/internal/services/imod"
	"tomopipe/internal/stage"
)

// Reconstructor builds the evens and odds half tomograms from the aligned
// stack. Both halves are always attempted so a single bad half does not hide
// the state of the other.
type Reconstructor struct {
	cfg    *config.Config
	logger *slog.Logger
	client *imod.Client
}

// NewReconstructor constructs the reconstruction stage handler.
func NewReconstructor(cfg *config.Config, logger *slog.Logger, client *imod.Client) *Reconstructor {
	return &Reconstructor{cfg: cfg, logger: logging.NewComponentLogger(logger, "reconstruct"), client: client}
}

// Prepare derives the reconstruction geometry from the volume headers and
// writes the per-half tilt command files.
func (r *Reconstructor) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	item.SetProgress("Reconstructing", "Preparing tilt command files")

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}
	ds := dataset.Dataset{Name: item.Name, Dir: dir}

	stack, err := mrc.ReadHeader(ds.Stack())
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "reconstruct", "read stack header",
			"Could not read the tilt series header", err)
	}
	rec, err := mrc.ReadHeader(ds.Reconstruction())
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "reconstruct", "read reconstruction header",
			"Could not read the tomogram header", err)
	}

	params := comfile.TiltParams{
		Name:      item.Name,
		Bin:       r.cfg.Halfsets.BinFactor,
		GPU:       r.cfg.Halfsets.GPU,
		SIRTIters: r.cfg.Halfsets.FakeSIRTIterations,
		Thickness: comfile.RecThickness(int(stack.NX), int(rec.NX), int(rec.NZ)),
		FullX:     int(stack.NX),
		FullY:     int(stack.NY),
		Views:     int(stack.NZ),
	}
	fromTemplate, err := comfile.WriteTiltComs(dir, params)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "reconstruct", "write tilt coms",
			"Could not write tilt command files", err)
	}

	source := "synthesized"
	if fromTemplate {
		source = "tilt.com template"
	}
	item.SetProgress("Reconstructing", "Wrote tilt command files")
	logger.Info("wrote per-half tilt command files",
		logging.String("source", source),
		logging.Int("views", params.Views),
		logging.Int("thickness", params.Thickness),
	)
	return nil
}

func (r *Reconstructor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}

	var failures []string
	for _, half := range []string{comfile.HalfEvens, comfile.HalfOdds} {
		item.SetProgress("Reconstructing", fmt.Sprintf("Reconstructing %s half", half))
		logger.Info("reconstructing half tomogram", logging.String("half", half))
		if err := r.client.Submit(ctx, dir, comfile.TiltFileName(half), toolLineLogger(logger)); err != nil {
			logger.Error("half reconstruction failed",
				logging.String("half", half),
				logging.Error(err),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", half, err))
			continue
		}
		logger.Info("half tomogram reconstructed", logging.String("half", half))
	}
	if len(failures) > 0 {
		return services.Wrap(
			services.ErrExternalTool, "reconstruct", "run tilt",
			"Half reconstruction failed: "+strings.Join(failures, "; "), nil)
	}

	item.SetProgress("Reconstructing", "Both half tomograms reconstructed")
	return nil
}

func (r *Reconstructor) HealthCheck(context.Context) stage.Health {
	const name = "reconstruct"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if r.client == nil {
		return stage.Unhealthy(name, "imod client unavailable")
	}
	binary := deps.ResolveIMODTool(r.cfg.Tools.Subm)
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("subm binary %q not found", binary))
	}
	return stage.Healthy(name)
}
