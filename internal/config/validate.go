package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReconstruction(); err != nil {
		return err
	}
	if err := c.validateHalfsets(); err != nil {
		return err
	}
	if err := c.validateDenoise(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateReconstruction() error {
	if c.Reconstruction.MdocPollInterval <= 0 {
		return errors.New("reconstruction.mdoc_poll_interval must be positive (seconds)")
	}
	if c.Reconstruction.MdocWaitTimeout < 0 {
		return errors.New("reconstruction.mdoc_wait_timeout must be >= 0 (seconds, 0 waits forever)")
	}
	return nil
}

func (c *Config) validateHalfsets() error {
	if c.Halfsets.BinFactor <= 0 {
		return errors.New("halfsets.bin_factor must be positive")
	}
	if c.Halfsets.GPU < 0 {
		return errors.New("halfsets.gpu must be >= 0")
	}
	if c.Halfsets.FakeSIRTIterations <= 0 {
		return errors.New("halfsets.fake_sirt_iterations must be positive")
	}
	if c.Halfsets.StepTimeout < 0 {
		return errors.New("halfsets.step_timeout must be >= 0 (seconds, 0 disables)")
	}
	return nil
}

func (c *Config) validateDenoise() error {
	if err := ensurePositiveMap(map[string]int{
		"denoise.training_pairs": c.Denoise.TrainingPairs,
		"denoise.num_workers":    c.Denoise.NumWorkers,
		"denoise.epochs":         c.Denoise.Epochs,
		"denoise.batch_size":     c.Denoise.BatchSize,
		"denoise.subtomo_size":   c.Denoise.SubtomoSize,
	}); err != nil {
		return err
	}
	if c.Denoise.GPU < 0 {
		return errors.New("denoise.gpu must be >= 0")
	}
	if c.Denoise.LearningRate <= 0 {
		return errors.New("denoise.learning_rate must be positive")
	}
	switch c.Denoise.ModelSelection {
	case "val", "fit", "latest":
	default:
		return fmt.Errorf("denoise.model_selection must be one of val, fit, latest (got %q)", c.Denoise.ModelSelection)
	}
	if c.Denoise.EvensSuffix == c.Denoise.OddsSuffix {
		return errors.New("denoise.evens_suffix and denoise.odds_suffix must differ")
	}
	return nil
}

func (c *Config) validateTools() error {
	for key, value := range map[string]string{
		"tools.subm":          c.Tools.Subm,
		"tools.trimvol":       c.Tools.Trimvol,
		"tools.serieswatcher": c.Tools.SeriesWatcher,
		"tools.ddw":           c.Tools.DDW,
		"tools.rsync":         c.Tools.Rsync,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
