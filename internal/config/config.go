package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScanDir  string `toml:"scan_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Reconstruction contains settings for the reconstruction launcher.
type Reconstruction struct {
	MdocPollInterval int `toml:"mdoc_poll_interval"`
	MdocWaitTimeout  int `toml:"mdoc_wait_timeout"`
}

// Halfsets contains settings for the half-tomogram generator.
type Halfsets struct {
	BinFactor          int `toml:"bin_factor"`
	GPU                int `toml:"gpu"`
	FakeSIRTIterations int `toml:"fake_sirt_iterations"`
	StepTimeout        int `toml:"step_timeout"`
}

// Denoise contains settings for the denoising driver.
type Denoise struct {
	TrainingPairs  int     `toml:"training_pairs"`
	EvensSuffix    string  `toml:"evens_suffix"`
	OddsSuffix     string  `toml:"odds_suffix"`
	Extension      string  `toml:"extension"`
	ModelSelection string  `toml:"model_selection"`
	GPU            int     `toml:"gpu"`
	NumWorkers     int     `toml:"num_workers"`
	Epochs         int     `toml:"epochs"`
	BatchSize      int     `toml:"batch_size"`
	LearningRate   float64 `toml:"learning_rate"`
	SubtomoSize    int     `toml:"subtomo_size"`
}

// Tools names the external binaries the pipeline drives.
type Tools struct {
	Subm          string `toml:"subm"`
	Trimvol       string `toml:"trimvol"`
	SeriesWatcher string `toml:"serieswatcher"`
	DDW           string `toml:"ddw"`
	Rsync         string `toml:"rsync"`
}

// Archive contains the mirror destination for half-set outputs.
type Archive struct {
	Root string `toml:"root"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunEvents      bool   `toml:"run_events"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for tomopipe.
//
// Configuration sections by subsystem:
//   - Paths: scan root, ledger/lock state directory, log directory
//   - Reconstruction: mdoc arrival polling and timeout
//   - Halfsets: binning, GPU selection, synthesized job-file parameters
//   - Denoise: training sample size, half-set naming, trainer parameters
//   - Tools: external binary names (submission wrapper, trimvol, watcher,
//     denoiser, rsync)
//   - Archive: mirror destination keyed by dataset name
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths          Paths          `toml:"paths"`
	Reconstruction Reconstruction `toml:"reconstruction"`
	Halfsets       Halfsets       `toml:"halfsets"`
	Denoise        Denoise        `toml:"denoise"`
	Tools          Tools          `toml:"tools"`
	Archive        Archive        `toml:"archive"`
	Notifications  Notifications  `toml:"notifications"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tomopipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/tomopipe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tomopipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
// ScanDir is created on a best-effort basis so commands can run while the
// acquisition storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ScanDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.ScanDir, 0o755)
	}
	return nil
}

// LedgerPath returns the SQLite ledger location inside the state directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "tomopipe.db")
}

// LockPath returns the advisory lock location guarding batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tomopipe.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
