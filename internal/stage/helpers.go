package stage

import (
	"os"
	"strings"

	"tomopipe/internal/queue"
	"tomopipe/internal/services"
)

// DatasetDir resolves and verifies the dataset directory recorded on an item.
// On failure it returns a services.ErrValidation suitable for stage Execute
// methods.
func DatasetDir(item *queue.Item) (string, error) {
	dir := strings.TrimSpace(item.Directory)
	if dir == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "resolve dataset dir",
			"Dataset directory missing from ledger record", nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "resolve dataset dir",
			"Dataset directory is not accessible", err)
	}
	if !info.IsDir() {
		return "", services.Wrap(
			services.ErrValidation, "stage", "resolve dataset dir",
			"Dataset path is not a directory", nil)
	}
	return dir, nil
}
