package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// GLIntegrityJob sweeps the ledger for entries whose lines do not balance.
// The posting engine guarantees balance on the write path; the sweep exists
// to catch drift from manual interventions and migrations.
type GLIntegrityJob struct {
	ledger  *ledger.Repository
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob constructs a GLIntegrityJob.
func NewGLIntegrityJob(repo *ledger.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{ledger: repo, logger: logger, metrics: metrics}
}

// HandleTask processes TaskTypeGLIntegrity tasks.
func (j *GLIntegrityJob) HandleTask(ctx context.Context, _ *asynq.Task) error {
	return j.Run(ctx)
}

// Run executes one sweep.
func (j *GLIntegrityJob) Run(ctx context.Context) error {
	tracker := j.metrics.Track("gl_integrity")
	ids, err := j.ledger.UnbalancedEntryIDs(ctx)
	if err != nil {
		return tracker.End(err)
	}
	j.metrics.SetUnbalanced(len(ids))
	if len(ids) > 0 {
		j.logger.Error("unbalanced ledger entries detected",
			slog.Int("count", len(ids)),
			slog.Any("entry_ids", ids))
		return tracker.End(fmt.Errorf("jobs: %d unbalanced ledger entries", len(ids)))
	}
	j.logger.Info("ledger integrity sweep clean", slog.String("job", "gl_integrity"))
	return tracker.End(nil)
}
