package organizer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tomopipe/internal/dataset"
	"tomopipe/internal/logging"
	"tomopipe/internal/organizer"
	"tomopipe/internal/testsupport"
)

type mirrorCall struct {
	src  string
	dest string
}

type fakeSyncer struct {
	calls    []mirrorCall
	failSrcs map[string]error
}

func (f *fakeSyncer) Mirror(_ context.Context, src, dest string, onOutput func(string)) error {
	f.calls = append(f.calls, mirrorCall{src: src, dest: dest})
	if onOutput != nil {
		onOutput("sending incremental file list")
	}
	if err, ok := f.failSrcs[src]; ok {
		return err
	}
	return nil
}

func writeDataset(t *testing.T, root, name string, files ...string) dataset.Dataset {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, file := range files {
		testsupport.WriteFile(t, filepath.Join(dir, file), 64)
	}
	return dataset.Dataset{Name: name, Dir: dir}
}

func TestCollectMovesRotatedHalves(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	org := organizer.NewWithDependencies(cfg, logging.NewNop(), &fakeSyncer{})

	root := t.TempDir()
	ds := writeDataset(t, root, "TS_01",
		"TS_01_rec_evens.mrc",
		"TS_01_rec_odds.mrc",
		"TS_01_full_rec_evens.mrc",
		"TS_01_rec.mrc",
	)

	moved, err := org.Collect(context.Background(), ds)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if moved != 2 {
		t.Fatalf("moved %d files, want 2", moved)
	}

	for _, name := range []string{"TS_01_rec_evens.mrc", "TS_01_rec_odds.mrc"} {
		if _, err := os.Stat(filepath.Join(ds.Dir, organizer.HalfsetsDir, name)); err != nil {
			t.Errorf("%s not gathered: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(ds.Dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s still in dataset dir", name)
		}
	}
	// The unrotated intermediate and the full tomogram stay put.
	for _, name := range []string{"TS_01_full_rec_evens.mrc", "TS_01_rec.mrc"} {
		if _, err := os.Stat(filepath.Join(ds.Dir, name)); err != nil {
			t.Errorf("%s should stay in dataset dir: %v", name, err)
		}
	}
}

func TestCollectWithoutHalvesMovesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	org := organizer.NewWithDependencies(cfg, logging.NewNop(), &fakeSyncer{})

	root := t.TempDir()
	ds := writeDataset(t, root, "TS_02", "TS_02_rec.mrc")

	moved, err := org.Collect(context.Background(), ds)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if moved != 0 {
		t.Fatalf("moved %d files, want 0", moved)
	}
	if _, err := os.Stat(filepath.Join(ds.Dir, organizer.HalfsetsDir)); !os.IsNotExist(err) {
		t.Fatal("halfsets dir should not be created when nothing moves")
	}
}

func TestSyncMirrorsIntoExistingDestinations(t *testing.T) {
	archive := t.TempDir()
	cfg := testsupport.NewConfig(t, testsupport.WithArchiveRoot(archive))
	syncer := &fakeSyncer{}
	org := organizer.NewWithDependencies(cfg, logging.NewNop(), syncer)

	root := t.TempDir()
	ds1 := writeDataset(t, root, "TS_01", "TS_01_rec_evens.mrc", "TS_01_rec_odds.mrc")
	ds2 := writeDataset(t, root, "TS_02", "TS_02_rec_evens.mrc", "TS_02_rec_odds.mrc")
	for _, ds := range []dataset.Dataset{ds1, ds2} {
		if _, err := org.Collect(context.Background(), ds); err != nil {
			t.Fatal(err)
		}
	}
	// Only TS_01 already exists in the archive.
	if err := os.MkdirAll(filepath.Join(archive, "TS_01"), 0o755); err != nil {
		t.Fatal(err)
	}

	mirrored, err := org.Sync(context.Background(), root)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if mirrored != 1 {
		t.Fatalf("mirrored %d dirs, want 1", mirrored)
	}
	if len(syncer.calls) != 1 {
		t.Fatalf("expected 1 mirror call, got %d", len(syncer.calls))
	}
	call := syncer.calls[0]
	if call.src != filepath.Join(ds1.Dir, organizer.HalfsetsDir) {
		t.Errorf("unexpected src %q", call.src)
	}
	if call.dest != filepath.Join(archive, "TS_01") {
		t.Errorf("unexpected dest %q", call.dest)
	}
}

func TestSyncSkipsWithoutArchiveRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Archive.Root = ""
	syncer := &fakeSyncer{}
	org := organizer.NewWithDependencies(cfg, logging.NewNop(), syncer)

	root := t.TempDir()
	ds := writeDataset(t, root, "TS_01", "TS_01_rec_evens.mrc")
	if _, err := org.Collect(context.Background(), ds); err != nil {
		t.Fatal(err)
	}

	mirrored, err := org.Sync(context.Background(), root)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if mirrored != 0 || len(syncer.calls) != 0 {
		t.Fatalf("expected no mirrors without archive root, got %d calls", len(syncer.calls))
	}
}

func TestSyncContinuesAfterTransferFailure(t *testing.T) {
	archive := t.TempDir()
	cfg := testsupport.NewConfig(t, testsupport.WithArchiveRoot(archive))

	root := t.TempDir()
	ds1 := writeDataset(t, root, "TS_01", "TS_01_rec_evens.mrc")
	ds2 := writeDataset(t, root, "TS_02", "TS_02_rec_evens.mrc")

	syncer := &fakeSyncer{failSrcs: map[string]error{
		filepath.Join(ds1.Dir, organizer.HalfsetsDir): errors.New("connection reset"),
	}}
	org := organizer.NewWithDependencies(cfg, logging.NewNop(), syncer)

	for _, ds := range []dataset.Dataset{ds1, ds2} {
		if _, err := org.Collect(context.Background(), ds); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"TS_01", "TS_02"} {
		if err := os.MkdirAll(filepath.Join(archive, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	mirrored, err := org.Sync(context.Background(), root)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if mirrored != 1 {
		t.Fatalf("mirrored %d dirs, want 1", mirrored)
	}
	if len(syncer.calls) != 2 {
		t.Fatalf("expected both datasets attempted, got %d calls", len(syncer.calls))
	}
}
