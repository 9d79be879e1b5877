package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/notify"
)

// NotificationHandler delivers workflow transition events. Delivery is a
// structured log line per recipient channel; the queue gives retries and
// isolation from the transaction that produced the event.
type NotificationHandler struct {
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	printer *message.Printer
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationHandler {
	return &NotificationHandler{
		logger:  logger,
		metrics: metrics,
		printer: message.NewPrinter(language.English),
	}
}

// HandleTransition processes notify.TaskTypeTransition tasks.
func (h *NotificationHandler) HandleTransition(ctx context.Context, t *asynq.Task) error {
	var event notify.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}
	amount := h.printer.Sprintf("%v", number.Decimal(event.Amount.InexactFloat64()))
	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("type", string(event.Type)),
		slog.String("reference_type", string(event.ReferenceType)),
		slog.Int64("reference_id", event.ReferenceID),
		slog.String("reference_no", event.ReferenceNo),
		slog.Int64("branch_id", event.BranchID),
		slog.String("amount", amount),
		slog.Int64("submitter_id", event.SubmitterID),
	}
	switch event.Type {
	case notify.EventApprove:
		attrs = append(attrs, slog.String("approver", event.ApproverName))
	case notify.EventReject:
		attrs = append(attrs,
			slog.String("approver", event.ApproverName),
			slog.String("reason", event.RejectReason))
	}
	h.logger.Info("transition notification", attrs...)
	h.metrics.AddNotification(string(event.Type))
	return nil
}
