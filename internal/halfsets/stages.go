package halfsets

import (
	"log/slog"

	"tomopipe/internal/logging"
	"tomopipe/internal/queue"
	"tomopipe/internal/stage"
)

// pipelineStage pairs a stage handler with the ledger status it runs under.
type pipelineStage struct {
	name       string
	processing queue.Status
	handler    stage.Handler
}

// toolLineLogger forwards external tool output into the structured log at
// debug level, one line per record.
func toolLineLogger(logger *slog.Logger) func(string) {
	return func(line string) {
		logger.Debug("tool output", logging.String("line", line))
	}
}
