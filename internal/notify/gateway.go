package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Gateway publishes transition events to the outside world.
type Gateway interface {
	Publish(ctx context.Context, event Event) error
}

// AsynqGateway enqueues events onto the notification queue for the worker
// binary to deliver.
type AsynqGateway struct {
	client *asynq.Client
	queue  string
}

// NewAsynqGateway constructs an AsynqGateway.
func NewAsynqGateway(client *asynq.Client, queue string) *AsynqGateway {
	return &AsynqGateway{client: client, queue: queue}
}

// Publish enqueues the event.
func (g *AsynqGateway) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeTransition, payload)
	_, err = g.client.EnqueueContext(ctx, task, asynq.Queue(g.queue))
	return err
}

// LogGateway writes events to the logger only. Used when no queue is
// configured and as the test double.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway constructs a LogGateway.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Publish logs the event.
func (g *LogGateway) Publish(ctx context.Context, event Event) error {
	g.logger.Info("workflow transition",
		slog.String("type", string(event.Type)),
		slog.String("reference_type", string(event.ReferenceType)),
		slog.Int64("reference_id", event.ReferenceID),
		slog.String("reference_no", event.ReferenceNo),
		slog.Int64("branch_id", event.BranchID))
	return nil
}
