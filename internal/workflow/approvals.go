package workflow

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// Action enumerates the recorded workflow actions.
type Action string

const (
	ActionSubmit  Action = "SUBMIT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionCancel  Action = "CANCEL"
)

// ApprovalLog is one row of the append-only approval trail.
type ApprovalLog struct {
	ID      int64           `json:"id"`
	Kind    finance.DocKind `json:"reference_type"`
	RefID   int64           `json:"reference_id"`
	ActorID int64           `json:"actor_id"`
	Action  Action          `json:"action"`
	Note    string          `json:"note,omitempty"`
	At      time.Time       `json:"at"`
}
