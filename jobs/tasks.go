// Package jobs hosts the background worker: notification delivery for
// workflow transitions and the periodic ledger integrity sweep.
package jobs

import "github.com/hibiken/asynq"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotify carries workflow transition notifications.
	QueueNotify = "notify"
	// TaskTypeGLIntegrity is the periodic ledger integrity sweep.
	TaskTypeGLIntegrity = "gl:integrity"
)

// NewGLIntegrityTask constructs the integrity sweep task. It carries no
// payload; the sweep always covers the whole ledger.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeGLIntegrity, nil)
}
