package organizer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"tomopipe/internal/config"
	"tomopipe/internal/dataset"
	"tomopipe/internal/fileutil"
	"tomopipe/internal/logging"
	"tomopipe/internal/services/rsyncer"
)

// HalfsetsDir is the per-dataset directory rotated halves are gathered into.
const HalfsetsDir = "halfsets"

// Organizer gathers rotated half tomograms into per-dataset halfsets
// directories and mirrors them into the archive.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
	syncer rsyncer.Syncer
}

// New constructs the organizer using default dependencies.
func New(cfg *config.Config, logger *slog.Logger) *Organizer {
	return NewWithDependencies(cfg, logger, rsyncer.NewCLI(rsyncer.WithBinary(cfg.Tools.Rsync)))
}

// NewWithDependencies allows injecting the sync client (used in tests).
func NewWithDependencies(cfg *config.Config, logger *slog.Logger, syncer rsyncer.Syncer) *Organizer {
	return &Organizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "organizer"),
		syncer: syncer,
	}
}

// Collect moves the rotated half tomograms of one dataset into its halfsets
// directory. Unrotated intermediates carrying "full" in their name stay
// behind. It returns the number of files moved.
func (o *Organizer) Collect(ctx context.Context, ds dataset.Dataset) (int, error) {
	logger := logging.WithContext(ctx, o.logger)

	target := filepath.Join(ds.Dir, HalfsetsDir)
	moved := 0
	for _, pattern := range []string{"*_rec_evens.mrc", "*_rec_odds.mrc"} {
		matches, err := filepath.Glob(filepath.Join(ds.Dir, pattern))
		if err != nil {
			return moved, fmt.Errorf("scan %s: %w", ds.Dir, err)
		}
		for _, match := range matches {
			base := filepath.Base(match)
			if strings.Contains(base, "full") {
				continue
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return moved, fmt.Errorf("create halfsets dir: %w", err)
			}
			if err := fileutil.MoveFile(match, filepath.Join(target, base)); err != nil {
				return moved, fmt.Errorf("move %s: %w", base, err)
			}
			moved++
			logger.Info("gathered half tomogram",
				logging.String("dataset", ds.Name),
				logging.String("file", base),
			)
		}
	}
	return moved, nil
}

// Sync mirrors every halfsets directory under root into the archive, keyed
// by the name of the dataset directory that holds it. Datasets without an
// existing archive destination are skipped with a warning, and a failed
// transfer does not stop the remaining mirrors. It returns the number of
// directories mirrored.
func (o *Organizer) Sync(ctx context.Context, root string) (int, error) {
	logger := logging.WithContext(ctx, o.logger)

	archiveRoot := strings.TrimSpace(o.cfg.Archive.Root)
	if archiveRoot == "" {
		logger.Debug("archive root not configured; skipping sync")
		return 0, nil
	}

	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() && d.Name() == HalfsetsDir && path != root {
			sources = append(sources, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan for halfsets dirs: %w", err)
	}

	mirrored := 0
	for _, src := range sources {
		datasetDir := filepath.Base(filepath.Dir(src))
		dest := filepath.Join(archiveRoot, datasetDir)
		if _, err := os.Stat(dest); err != nil {
			logger.Warn("archive destination missing; skipping sync",
				logging.String("dataset", datasetDir),
				logging.String("destination", dest),
			)
			continue
		}
		logger.Info("mirroring halfsets into archive",
			logging.String("dataset", datasetDir),
			logging.String("destination", dest),
		)
		if err := o.syncer.Mirror(ctx, src, dest, func(line string) {
			logger.Debug("rsync", logging.String("line", line))
		}); err != nil {
			logger.Warn("archive sync failed",
				logging.String("dataset", datasetDir),
				logging.Error(err),
			)
			continue
		}
		mirrored++
	}
	return mirrored, nil
}
