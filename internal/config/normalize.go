package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeDenoise()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScanDir) != "" {
		if c.Paths.ScanDir, err = expandPath(c.Paths.ScanDir); err != nil {
			return fmt.Errorf("paths.scan_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() error {
	c.Archive.Root = strings.TrimSpace(c.Archive.Root)
	if c.Archive.Root == "" {
		return nil
	}
	expanded, err := expandPath(c.Archive.Root)
	if err != nil {
		return fmt.Errorf("archive.root: %w", err)
	}
	c.Archive.Root = expanded
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.Subm) == "" {
		c.Tools.Subm = defaultSubmBinary
	}
	if strings.TrimSpace(c.Tools.Trimvol) == "" {
		c.Tools.Trimvol = defaultTrimvolBinary
	}
	if strings.TrimSpace(c.Tools.SeriesWatcher) == "" {
		c.Tools.SeriesWatcher = defaultSeriesWatcherBinary
	}
	if strings.TrimSpace(c.Tools.DDW) == "" {
		c.Tools.DDW = defaultDDWBinary
	}
	if strings.TrimSpace(c.Tools.Rsync) == "" {
		c.Tools.Rsync = defaultRsyncBinary
	}
}

func (c *Config) normalizeDenoise() {
	c.Denoise.EvensSuffix = strings.TrimSpace(c.Denoise.EvensSuffix)
	if c.Denoise.EvensSuffix == "" {
		c.Denoise.EvensSuffix = defaultEvensSuffix
	}
	c.Denoise.OddsSuffix = strings.TrimSpace(c.Denoise.OddsSuffix)
	if c.Denoise.OddsSuffix == "" {
		c.Denoise.OddsSuffix = defaultOddsSuffix
	}
	c.Denoise.Extension = strings.TrimPrefix(strings.TrimSpace(c.Denoise.Extension), ".")
	if c.Denoise.Extension == "" {
		c.Denoise.Extension = defaultVolumeExtension
	}
	c.Denoise.ModelSelection = strings.ToLower(strings.TrimSpace(c.Denoise.ModelSelection))
	if c.Denoise.ModelSelection == "" {
		c.Denoise.ModelSelection = defaultModelSelection
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TOMOPIPE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
