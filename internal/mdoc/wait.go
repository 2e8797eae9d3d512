package mdoc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const suffix = ".mdoc"

// WaitForFirst blocks until an mdoc file exists anywhere under root and
// returns its path. Arrival is detected through filesystem notifications on
// root and its immediate subdirectories, with a periodic rescan as the
// fallback for deeper trees and missed events. Cancel or deadline the
// context to bound the wait.
func WaitForFirst(ctx context.Context, root string, rescan time.Duration) (string, error) {
	if rescan <= 0 {
		rescan = time.Minute
	}
	if path, ok := findFirst(root); ok {
		return path, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch failures are tolerated; the rescan ticker still finds the file.
	_ = watcher.Add(root)
	if entries, err := os.ReadDir(root); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = watcher.Add(filepath.Join(root, entry.Name()))
			}
		}
	}

	// Re-check after the watches are in place so a file racing the setup
	// is not missed.
	if path, ok := findFirst(root); ok {
		return path, nil
	}

	ticker := time.NewTicker(rescan)
	defer ticker.Stop()

	events := watcher.Events
	errors := watcher.Errors
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if path, ok := findFirst(root); ok {
				return path, nil
			}
		case _, ok := <-errors:
			if !ok {
				errors = nil
			}
		case <-ticker.C:
			if path, ok := findFirst(root); ok {
				return path, nil
			}
		}
	}
}

// findFirst returns the lexically first mdoc under root.
func findFirst(root string) (string, bool) {
	var found []string
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			found = append(found, path)
		}
		return nil
	})
	if len(found) == 0 {
		return "", false
	}
	sort.Strings(found)
	return found[0], true
}
