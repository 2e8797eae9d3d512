package testsupport

import (
	"context"
	"testing"

	"tomopipe/internal/config"
	"tomopipe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun records a run for tests using the provided store.
func NewRun(t testing.TB, store *queue.Store, id, kind, mode, root string) *queue.Run {
	t.Helper()

	run, err := store.CreateRun(context.Background(), id, kind, mode, root)
	if err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	return run
}

// NewItem records a dataset under a run for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, runID, name, directory string) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), runID, name, directory)
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
