package stage

import (
	"context"

	"tomopipe/internal/queue"
)

// Handler describes the contract the pipeline driver needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
