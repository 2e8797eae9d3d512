package denoise

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Checkpoint selection modes. Loss modes pick the minimum metric; latest
// picks the highest epoch number.
const (
	SelectVal    = "val"
	SelectFit    = "fit"
	SelectLatest = "latest"
)

const checkpointSuffix = ".ckpt"

// BestCheckpoint scans the trainer's project directory for the checkpoint
// directory matching mode ("val_loss", "fitting_loss", or "epoch") and
// returns the best checkpoint within it. The trainer encodes the metric in
// the file name after the last "=", e.g. "epoch=93-val_loss=0.3041.ckpt".
// When several matching directories exist (one per training attempt), the
// lexically last one is used.
func BestCheckpoint(projectDir, mode string) (string, error) {
	var dirName string
	highest := false
	switch mode {
	case SelectVal:
		dirName = "val_loss"
	case SelectFit:
		dirName = "fitting_loss"
	case SelectLatest:
		dirName = "epoch"
		highest = true
	default:
		return "", fmt.Errorf("unknown checkpoint selection mode %q (want val, fit, or latest)", mode)
	}

	dirs, err := findCheckpointDirs(projectDir, dirName)
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no %s checkpoint directory under %s", dirName, projectDir)
	}
	dir := dirs[len(dirs)-1]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read checkpoint dir: %w", err)
	}

	best := ""
	bestMetric := 0.0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, checkpointSuffix) {
			continue
		}
		metric, err := checkpointMetric(name)
		if err != nil {
			return "", err
		}
		if best == "" || (highest && metric > bestMetric) || (!highest && metric < bestMetric) {
			best = name
			bestMetric = metric
		}
	}
	if best == "" {
		return "", fmt.Errorf("no checkpoints in %s", dir)
	}
	return filepath.Join(dir, best), nil
}

func findCheckpointDirs(projectDir, dirName string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(projectDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && entry.Name() == dirName {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", projectDir, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func checkpointMetric(name string) (float64, error) {
	base := strings.TrimSuffix(name, checkpointSuffix)
	idx := strings.LastIndex(base, "=")
	if idx < 0 || idx == len(base)-1 {
		return 0, fmt.Errorf("checkpoint %q carries no metric value", name)
	}
	metric, err := strconv.ParseFloat(base[idx+1:], 64)
	if err != nil {
		return 0, fmt.Errorf("checkpoint %q metric: %w", name, err)
	}
	return metric, nil
}
