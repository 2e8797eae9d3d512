package config

const (
	defaultStateDir             = "~/.local/share/tomopipe"
	defaultLogDir               = "~/.local/share/tomopipe/logs"
	defaultLogRetentionDays     = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultMdocPollInterval     = 60
	defaultHalfsetsBinFactor    = 6
	defaultFakeSIRTIterations   = 10
	defaultTrainingPairs        = 5
	defaultEvensSuffix          = "evens"
	defaultOddsSuffix           = "odds"
	defaultVolumeExtension      = "mrc"
	defaultModelSelection       = "val"
	defaultDenoiseNumWorkers    = 4
	defaultDenoiseEpochs        = 1000
	defaultDenoiseBatchSize     = 5
	defaultDenoiseLearningRate  = 0.0004
	defaultDenoiseSubtomoSize   = 96
	defaultSubmBinary           = "subm"
	defaultTrimvolBinary        = "trimvol"
	defaultSeriesWatcherBinary  = "serieswatcher"
	defaultDDWBinary            = "ddw"
	defaultRsyncBinary          = "rsync"
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Reconstruction: Reconstruction{
			MdocPollInterval: defaultMdocPollInterval,
		},
		Halfsets: Halfsets{
			BinFactor:          defaultHalfsetsBinFactor,
			FakeSIRTIterations: defaultFakeSIRTIterations,
		},
		Denoise: Denoise{
			TrainingPairs:  defaultTrainingPairs,
			EvensSuffix:    defaultEvensSuffix,
			OddsSuffix:     defaultOddsSuffix,
			Extension:      defaultVolumeExtension,
			ModelSelection: defaultModelSelection,
			NumWorkers:     defaultDenoiseNumWorkers,
			Epochs:         defaultDenoiseEpochs,
			BatchSize:      defaultDenoiseBatchSize,
			LearningRate:   defaultDenoiseLearningRate,
			SubtomoSize:    defaultDenoiseSubtomoSize,
		},
		Tools: Tools{
			Subm:          defaultSubmBinary,
			Trimvol:       defaultTrimvolBinary,
			SeriesWatcher: defaultSeriesWatcherBinary,
			DDW:           defaultDDWBinary,
			Rsync:         defaultRsyncBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunEvents:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
