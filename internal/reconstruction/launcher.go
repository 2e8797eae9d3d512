package reconstruction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"tomopipe/internal/config"
	"tomopipe/internal/deps"
	"tomopipe/internal/logging"
	"tomopipe/internal/mdoc"
	"tomopipe/internal/preflight"
	"tomopipe/internal/services"
)

// LaunchFunc starts a detached external process with dir as its working
// directory. The process is not awaited.
type LaunchFunc func(binary string, args []string, dir string) error

// Launcher kicks off batch reconstruction for an acquisition directory: it
// waits for the first mdoc to appear, derives parameters from it, renders the
// master command and directive files, and hands the directory to the external
// series watcher.
type Launcher struct {
	cfg     *config.Config
	logger  *slog.Logger
	workDir string
	launch  LaunchFunc
}

type launcherOptions struct {
	workDir string
	launch  LaunchFunc
}

// Option customizes launcher construction.
type Option func(*launcherOptions)

// WithWorkDir anchors relative output directories and the rendered coms
// directory. Defaults to the process working directory.
func WithWorkDir(dir string) Option {
	return func(o *launcherOptions) {
		o.workDir = dir
	}
}

// WithLaunch overrides how the series watcher is started.
func WithLaunch(launch LaunchFunc) Option {
	return func(o *launcherOptions) {
		o.launch = launch
	}
}

// NewLauncher builds a Launcher from configuration.
func NewLauncher(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Launcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("reconstruction: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	options := launcherOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		options.workDir = cwd
	}
	if options.launch == nil {
		options.launch = launchDetached
	}

	return &Launcher{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "reconstruct"),
		workDir: options.workDir,
		launch:  options.launch,
	}, nil
}

// Run waits for acquisition metadata under the parameter output directory,
// renders the master job files, and launches the series watcher detached.
// It returns once the watcher is running; reconstruction itself continues in
// the background.
func (l *Launcher) Run(ctx context.Context, p *Params) error {
	params := *p
	p = &params
	logger := logging.WithContext(ctx, l.logger)

	outDir := p.OutputDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(l.workDir, outDir)
	}
	if result := preflight.CheckDirectoryAccess("Output directory", outDir); !result.Passed {
		return services.Wrap(services.ErrConfiguration, "reconstruct", "preflight", result.Detail, nil)
	}
	watcherStatus := deps.CheckBinaries([]deps.Requirement{{
		Name:        "serieswatcher",
		Command:     l.cfg.Tools.SeriesWatcher,
		Description: "Follows batchruntomo progress after launch",
	}})
	if !watcherStatus[0].Available {
		detail := fmt.Sprintf("%s; install it or set tools.serieswatcher", watcherStatus[0].Detail)
		return services.Wrap(services.ErrConfiguration, "reconstruct", "preflight", detail, nil)
	}

	info, err := l.awaitMetadata(ctx, logger, outDir)
	if err != nil {
		return err
	}

	if p.PixelSize == EmptyValue {
		if info.PixelSpacing == "" {
			return services.Wrap(services.ErrValidation, "reconstruct", "derive pixel size",
				"Acquisition metadata records no pixel spacing", nil)
		}
		p.PixelSize = info.PixelSpacing
		logger.Info("pixel size taken from acquisition metadata",
			logging.String("pixel_size_nm", p.PixelSize),
		)
	}

	comPath, adocPath, err := WriteMasterFiles(filepath.Join(l.workDir, "coms"), outDir, p)
	if err != nil {
		return services.Wrap(services.ErrTransient, "reconstruct", "render job files", "", err)
	}
	logger.Info("master job files rendered",
		logging.String("com", comPath),
		logging.String("adoc", adocPath),
	)

	if err := l.launch(l.cfg.Tools.SeriesWatcher, []string{"-com", comPath, "-adoc", adocPath}, outDir); err != nil {
		return services.Wrap(services.ErrExternalTool, "reconstruct", "launch series watcher",
			"The series watcher did not start", err)
	}
	logger.Info("series watcher launched",
		logging.String("binary", l.cfg.Tools.SeriesWatcher),
		logging.String("directory", outDir),
	)
	return nil
}

// awaitMetadata blocks until the first mdoc appears under outDir, honoring
// the configured deadline, then parses it and logs the acquisition summary.
func (l *Launcher) awaitMetadata(ctx context.Context, logger *slog.Logger, outDir string) (*mdoc.Info, error) {
	waitCtx := ctx
	if timeout := l.cfg.Reconstruction.MdocWaitTimeout; timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	logger.Info("waiting for acquisition metadata", logging.String("directory", outDir))
	poll := time.Duration(l.cfg.Reconstruction.MdocPollInterval) * time.Second
	mdocPath, err := mdoc.WaitForFirst(waitCtx, outDir, poll)
	if err != nil {
		return nil, services.Wrap(services.ErrTimeout, "reconstruct", "wait for mdoc",
			"No acquisition metadata appeared", err)
	}

	info, err := mdoc.ParseFile(mdocPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "reconstruct", "parse mdoc", "", err)
	}
	logger.Info("acquisition metadata parsed",
		logging.String("mdoc", mdocPath),
		logging.Int("tilt_images", len(info.TiltAngles)),
		logging.Int("tilt_min", info.TiltMin),
		logging.Int("tilt_max", info.TiltMax),
		logging.Int("tilt_step", info.TiltStep),
		logging.Float64("defocus_avg", info.DefocusAvg),
		logging.String("pixel_size_nm", info.PixelSpacing),
	)
	return info, nil
}

func launchDetached(binary string, args []string, dir string) error {
	proc := exec.Command(binary, args...)
	proc.Dir = dir
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", binary, err)
	}
	return proc.Process.Release()
}
