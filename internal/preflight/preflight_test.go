package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tomopipe/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckNtfy_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/tomopipe-alerts")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckNtfy_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/tomopipe-alerts")
	if result.Passed {
		t.Fatal("expected failure for unhealthy server")
	}
}

func TestCheckNtfy_InvalidURL(t *testing.T) {
	result := CheckNtfy(context.Background(), "not-a-url")
	if result.Passed {
		t.Fatal("expected failure for invalid topic url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, "")
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ScanDir = t.TempDir()
	cfg.Archive.Root = ""
	cfg.Notifications.NtfyTopic = ""

	results := RunAll(context.Background(), &cfg, "")
	// Only the scan directory check applies.
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Passed {
		t.Errorf("check %q failed: %s", results[0].Name, results[0].Detail)
	}
}

func TestRunAll_ScanRootOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ScanDir = filepath.Join(t.TempDir(), "missing")
	cfg.Archive.Root = ""
	cfg.Notifications.NtfyTopic = ""

	results := RunAll(context.Background(), &cfg, t.TempDir())
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Passed {
		t.Errorf("override root should pass even with a missing configured scan dir: %s", results[0].Detail)
	}
}

func TestRunAll_IncludesArchiveWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ScanDir = t.TempDir()
	cfg.Archive.Root = t.TempDir()
	cfg.Notifications.NtfyTopic = ""

	results := RunAll(context.Background(), &cfg, "")
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestCheckSystemDeps_ReportsAllTools(t *testing.T) {
	cfg := config.Default()
	results := CheckSystemDeps(context.Background(), &cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 tool checks, got %d", len(results))
	}
	byName := map[string]bool{}
	for _, r := range results {
		byName[r.Name] = true
	}
	for _, name := range []string{"subm", "trimvol", "serieswatcher", "ddw", "rsync"} {
		if !byName[name] {
			t.Errorf("missing check for %s", name)
		}
	}
}

func TestCheckSystemDeps_RsyncOptionalWithoutArchive(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Root = ""
	for _, r := range CheckSystemDeps(context.Background(), &cfg) {
		if r.Name == "rsync" && !r.Optional {
			t.Fatal("rsync should be optional when no archive root is configured")
		}
	}
}
