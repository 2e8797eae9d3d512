package denoise

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"

	"tomopipe/internal/logging"
)

var epochPattern = regexp.MustCompile(`\bEpoch (\d+)`)

// parseEpoch extracts the epoch counter from a trainer output line. Lightning
// prints a progress bar per epoch, so the counter is the only stable marker.
func parseEpoch(line string) (int, bool) {
	match := epochPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	epoch, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return epoch, true
}

// trainerProgressLogger returns an output callback that records every trainer
// line at debug level and samples epoch milestones at info level. Progress is
// measured against the configured epoch budget in 5% buckets.
func trainerProgressLogger(logger *slog.Logger, phase string, totalEpochs int) func(string) {
	sampler := logging.NewProgressSampler(5)
	return func(line string) {
		logger.Debug("tool output", logging.String("line", line))
		if totalEpochs <= 0 {
			return
		}
		epoch, ok := parseEpoch(line)
		if !ok {
			return
		}
		percent := float64(epoch) / float64(totalEpochs) * 100
		if !sampler.ShouldLog(percent, phase, line) {
			return
		}
		logger.Info("trainer progress",
			logging.String("phase", phase),
			logging.Int("epoch", epoch),
			logging.Float64("progress_percent", math.Round(percent*10)/10),
		)
	}
}
