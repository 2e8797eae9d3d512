package preflight

import (
	"context"
	"strings"

	"tomopipe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured. A
// non-empty scanRoot overrides the configured scan directory so runs over
// an explicit directory validate the directory they will actually walk.
func RunAll(ctx context.Context, cfg *config.Config, scanRoot string) []Result {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(scanRoot) == "" {
		scanRoot = cfg.Paths.ScanDir
	}

	var results []Result

	// Scan root (always checked)
	results = append(results, CheckDirectoryAccess("Scan root", scanRoot))

	// Archive mount (when configured)
	if cfg.Archive.Root != "" {
		results = append(results, CheckDirectoryAccess("Archive root", cfg.Archive.Root))
	}

	// ntfy endpoint
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}
