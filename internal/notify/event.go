// Package notify is the outbound notification gateway. Workflow transition
// events are published after the owning transaction commits; delivery is
// fire-and-forget and never fails the transition.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// EventType enumerates workflow transition notifications.
type EventType string

const (
	EventSubmit  EventType = "SUBMIT"
	EventApprove EventType = "APPROVE"
	EventReject  EventType = "REJECT"
)

// TaskTypeTransition is the asynq task type carrying transition events.
const TaskTypeTransition = "notify:transition"

// Event describes one workflow transition for downstream fan-out.
type Event struct {
	ID            uuid.UUID        `json:"id"`
	Type          EventType        `json:"type"`
	ReferenceType finance.DocKind  `json:"reference_type"`
	ReferenceID   int64            `json:"reference_id"`
	ReferenceNo   string           `json:"reference_no"`
	BranchID      int64            `json:"branch_id"`
	Amount        decimal.Decimal  `json:"amount"`
	SubmitterID   int64            `json:"submitter_id"`
	ApproverName  string           `json:"approver_name,omitempty"`
	RejectReason  string           `json:"reject_reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
