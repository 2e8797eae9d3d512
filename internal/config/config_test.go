package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tomopipe/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "tomopipe")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.ScanDir != "" {
		t.Fatalf("expected empty scan dir by default, got %q", cfg.Paths.ScanDir)
	}
	if cfg.Reconstruction.MdocPollInterval != 60 {
		t.Fatalf("unexpected mdoc poll interval: %d", cfg.Reconstruction.MdocPollInterval)
	}
	if cfg.Reconstruction.MdocWaitTimeout != 0 {
		t.Fatalf("expected unbounded mdoc wait by default, got %d", cfg.Reconstruction.MdocWaitTimeout)
	}
	if cfg.Halfsets.BinFactor != 6 {
		t.Fatalf("unexpected bin factor: %d", cfg.Halfsets.BinFactor)
	}
	if cfg.Halfsets.GPU != 0 {
		t.Fatalf("unexpected gpu: %d", cfg.Halfsets.GPU)
	}
	if cfg.Denoise.TrainingPairs != 5 {
		t.Fatalf("unexpected training pairs: %d", cfg.Denoise.TrainingPairs)
	}
	if cfg.Denoise.ModelSelection != "val" {
		t.Fatalf("unexpected model selection: %q", cfg.Denoise.ModelSelection)
	}
	if cfg.Tools.Subm != "subm" || cfg.Tools.Rsync != "rsync" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
	if cfg.Archive.Root != "" {
		t.Fatalf("expected empty archive root, got %q", cfg.Archive.Root)
	}
	if cfg.LedgerPath() != filepath.Join(wantState, "tomopipe.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tomopipe.toml")

	type payload struct {
		Halfsets struct {
			BinFactor int `toml:"bin_factor"`
			GPU       int `toml:"gpu"`
		} `toml:"halfsets"`
		Tools struct {
			Subm string `toml:"subm"`
		} `toml:"tools"`
		Archive struct {
			Root string `toml:"root"`
		} `toml:"archive"`
	}
	custom := payload{}
	custom.Halfsets.BinFactor = 4
	custom.Halfsets.GPU = 1
	custom.Tools.Subm = "/opt/imod/bin/subm"
	custom.Archive.Root = filepath.Join(tempDir, "archive")
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Halfsets.BinFactor != 4 {
		t.Fatalf("expected bin factor 4, got %d", cfg.Halfsets.BinFactor)
	}
	if cfg.Halfsets.GPU != 1 {
		t.Fatalf("expected gpu 1, got %d", cfg.Halfsets.GPU)
	}
	if cfg.Tools.Subm != "/opt/imod/bin/subm" {
		t.Fatalf("expected subm override, got %q", cfg.Tools.Subm)
	}
	if cfg.Archive.Root != custom.Archive.Root {
		t.Fatalf("expected archive root %q, got %q", custom.Archive.Root, cfg.Archive.Root)
	}
	if cfg.Denoise.TrainingPairs != 5 {
		t.Fatalf("expected default training pairs, got %d", cfg.Denoise.TrainingPairs)
	}
}

func TestEnvVarProvidesNtfyTopic(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TOMOPIPE_NTFY_TOPIC", "https://ntfy.sh/env-topic")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/env-topic" {
		t.Fatalf("expected topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[halfsets]") {
		t.Fatalf("sample config missing halfsets section: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Halfsets.BinFactor = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive bin factor")
	}

	cfg = config.Default()
	cfg.Reconstruction.MdocPollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}

	cfg = config.Default()
	cfg.Denoise.ModelSelection = "best"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown model selection")
	}

	cfg = config.Default()
	cfg.Denoise.OddsSuffix = cfg.Denoise.EvensSuffix
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when suffixes collide")
	}

	cfg = config.Default()
	cfg.Tools.Trimvol = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for blank tool binary")
	}
}
