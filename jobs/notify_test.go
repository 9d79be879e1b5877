package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/notify"
)

func TestHandleTransition(t *testing.T) {
	handler := NewNotificationHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	event := notify.Event{
		ID:            uuid.New(),
		Type:          notify.EventApprove,
		ReferenceType: finance.KindARInvoice,
		ReferenceID:   42,
		ReferenceNo:   "ARI-42",
		BranchID:      1,
		Amount:        decimal.NewFromInt(1_100_000),
		SubmitterID:   1,
		ApproverName:  "Finn",
		OccurredAt:    time.Now(),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	task := asynq.NewTask(notify.TaskTypeTransition, payload)
	require.NoError(t, handler.HandleTransition(context.Background(), task))
}

func TestHandleTransitionBadPayload(t *testing.T) {
	handler := NewNotificationHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task := asynq.NewTask(notify.TaskTypeTransition, []byte("not json"))
	err := handler.HandleTransition(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
