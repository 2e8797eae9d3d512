package halfsets

import (
	"context"

	"log/slog"

	"tomopipe/internal/dataset"
	"tomopipe/internal/logging"
	"tomopipe/internal/mrc"
	"tomopipe/internal/queue"
	"tomopipe/internal/services"
	"tomopipe/internal/stage"
)

// Classifier decides which processing route a dataset's alignment metadata
// supports and records the result on the ledger item.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier constructs the classification stage handler.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logging.NewComponentLogger(logger, "classify")}
}

func (c *Classifier) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	item.SetProgress("Classifying", "Checking alignment metadata")

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}
	ds := dataset.Dataset{Name: item.Name, Dir: dir}

	// Pixel sizes are informational; a malformed header never blocks
	// classification.
	logVoxelSize(logger, "stack", ds.Stack())
	logVoxelSize(logger, "reconstruction", ds.Reconstruction())
	return nil
}

func (c *Classifier) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)

	dir, err := stage.DatasetDir(item)
	if err != nil {
		return err
	}
	ds := dataset.Dataset{Name: item.Name, Dir: dir}

	state := dataset.Classify(ds)
	item.MetadataState = string(state)
	switch state {
	case dataset.StateDirect:
		item.SetProgress("Classifying", "Aligned stack present; reconstruction can start directly")
	case dataset.StateRealign:
		item.SetProgress("Classifying", "Transform present; aligned stack will be regenerated")
	default:
		return services.Wrap(
			services.ErrNotFound, "classify", "check metadata",
			"Alignment metadata incomplete; transfer the .xf or _ali.mrc plus .tlt and .xtilt files and rerun", nil)
	}
	logger.Info("classified dataset metadata", logging.String("metadata_state", string(state)))
	return nil
}

func (c *Classifier) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("classify")
}

func logVoxelSize(logger *slog.Logger, label, path string) {
	header, err := mrc.ReadHeader(path)
	if err != nil {
		logger.Debug("could not read volume header",
			logging.String("volume", label),
			logging.Error(err),
		)
		return
	}
	size, err := header.VoxelSize()
	if err != nil {
		logger.Debug("could not derive voxel size",
			logging.String("volume", label),
			logging.Error(err),
		)
		return
	}
	logger.Info("volume pixel size",
		logging.String("volume", label),
		logging.Float64("angstroms", size),
		logging.Int("nx", int(header.NX)),
		logging.Int("ny", int(header.NY)),
		logging.Int("nz", int(header.NZ)),
	)
}
