package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"tomopipe/internal/queue"
	"tomopipe/internal/services"
	"tomopipe/internal/testsupport"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		arg  string
		want string
		ok   bool
	}{
		{arg: "0", want: queue.ModeStandalone, ok: true},
		{arg: "1", want: queue.ModePipeline, ok: true},
		{arg: " 1 ", want: queue.ModePipeline, ok: true},
		{arg: "2", ok: false},
		{arg: "pipeline", ok: false},
		{arg: "", ok: false},
	}
	for _, tc := range cases {
		mode, err := parseMode(tc.arg)
		if tc.ok {
			if err != nil {
				t.Fatalf("parseMode(%q): %v", tc.arg, err)
			}
			if mode != tc.want {
				t.Fatalf("parseMode(%q) = %q, want %q", tc.arg, mode, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("parseMode(%q): expected error", tc.arg)
		}
		requireContains(t, err.Error(), "MODE must be 0")
	}
}

func TestResolveBatchRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	root, err := resolveBatchRoot(cfg, []string{"0"})
	if err != nil {
		t.Fatalf("resolveBatchRoot: %v", err)
	}
	if root != cfg.Paths.ScanDir {
		t.Fatalf("expected configured scan dir %q, got %q", cfg.Paths.ScanDir, root)
	}

	explicit := t.TempDir()
	root, err = resolveBatchRoot(cfg, []string{"0", explicit})
	if err != nil {
		t.Fatalf("resolveBatchRoot with dir: %v", err)
	}
	if root != explicit {
		t.Fatalf("expected explicit dir %q, got %q", explicit, root)
	}

	cfg.Paths.ScanDir = ""
	if _, err := resolveBatchRoot(cfg, []string{"0"}); err == nil {
		t.Fatal("expected error when no directory is available")
	}
}

func TestHalfsetsRunsOverEmptyRoot(t *testing.T) {
	env := setupCLITestEnv(t)
	root := t.TempDir()

	out, _, err := runCLI(t, []string{"halfsets", "0", root}, env.configPath)
	if err != nil {
		t.Fatalf("halfsets: %v", err)
	}
	requireContains(t, out, "Halfsets run completed")
	requireContains(t, out, "Run log:")

	run, err := env.store.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run == nil {
		t.Fatal("expected a recorded run")
	}
	if run.Kind != queue.RunKindHalfsets {
		t.Fatalf("unexpected run kind %q", run.Kind)
	}
	if run.Status != queue.RunCompleted {
		t.Fatalf("unexpected run status %q", run.Status)
	}

	logs, err := filepath.Glob(filepath.Join(root, "*_halfsets.log"))
	if err != nil {
		t.Fatalf("glob run logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one run log in %s, got %v", root, logs)
	}
}

func TestHalfsetsRejectsBadMode(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"halfsets", "5", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected error for bad mode")
	}
	requireContains(t, err.Error(), "MODE must be 0")
}

func TestBatchLockExcludesConcurrentRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	lock := flock.New(env.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	if !locked {
		t.Fatal("expected to hold the batch lock")
	}
	defer func() { _ = lock.Unlock() }()

	_, _, err = runCLI(t, []string{"halfsets", "0", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected lock contention error")
	}
	requireContains(t, err.Error(), "already in progress")
}

func TestDenoiseWithoutPairsFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"denoise", "0", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected error when no half-set pairs exist")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
