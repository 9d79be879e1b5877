package workflow

import (
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
)

// The Decide functions are the pure authorization/validation half of the
// state machine. They touch no storage, so every transition rule can be
// exercised without a database. All validation happens here, before any
// write.

// DecideSubmit validates draft → waiting_approval. Rejected documents are
// resubmittable through the same transition.
func DecideSubmit(doc documents.Document, actor identity.Actor) error {
	if doc.Status == finance.StatusCancelled ||
		(doc.ApprovalStatus != finance.ApprovalDraft && doc.ApprovalStatus != finance.ApprovalRejected) {
		return &finance.InvalidStateError{Kind: doc.Kind, ID: doc.ID, Approval: doc.ApprovalStatus, Status: doc.Status, Operation: "submit"}
	}
	if doc.BranchID != actor.BranchID {
		return &finance.CrossBranchError{Kind: doc.Kind, ID: doc.ID, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	if doc.CreatedBy != actor.ID {
		return &finance.ForbiddenError{Kind: doc.Kind, ID: doc.ID, ActorID: actor.ID, Reason: "only the creator may submit"}
	}
	return nil
}

// DecideApprove validates waiting_approval → approved.
func DecideApprove(doc documents.Document, actor identity.Actor, cfg KindConfig) error {
	if doc.ApprovalStatus != finance.ApprovalWaiting {
		return &finance.InvalidStateError{Kind: doc.Kind, ID: doc.ID, Approval: doc.ApprovalStatus, Status: doc.Status, Operation: "approve"}
	}
	if doc.BranchID != actor.BranchID {
		return &finance.CrossBranchError{Kind: doc.Kind, ID: doc.ID, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	if !cfg.CanApprove(actor.Role) {
		return &finance.ForbiddenError{Kind: doc.Kind, ID: doc.ID, ActorID: actor.ID, Reason: "role " + actor.Role + " may not approve " + string(doc.Kind)}
	}
	return nil
}

// DecideReject validates waiting_approval → rejected. A non-empty reason
// is mandatory.
func DecideReject(doc documents.Document, actor identity.Actor, cfg KindConfig, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return &finance.ValidationError{Msg: "reject reason required"}
	}
	if doc.ApprovalStatus != finance.ApprovalWaiting {
		return &finance.InvalidStateError{Kind: doc.Kind, ID: doc.ID, Approval: doc.ApprovalStatus, Status: doc.Status, Operation: "reject"}
	}
	if doc.BranchID != actor.BranchID {
		return &finance.CrossBranchError{Kind: doc.Kind, ID: doc.ID, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	if !cfg.CanApprove(actor.Role) {
		return &finance.ForbiddenError{Kind: doc.Kind, ID: doc.ID, ActorID: actor.ID, Reason: "role " + actor.Role + " may not reject " + string(doc.Kind)}
	}
	return nil
}

// DecideCancel validates the terminal cancellation of a draft or rejected
// document by its creator. Approved and waiting documents can never be
// cancelled here; waiting ones go through reject, posted ones require a
// reversal flow outside this engine.
func DecideCancel(doc documents.Document, actor identity.Actor, cfg KindConfig, reason string) error {
	if doc.Status == finance.StatusCancelled ||
		(doc.ApprovalStatus != finance.ApprovalDraft && doc.ApprovalStatus != finance.ApprovalRejected) {
		return &finance.InvalidStateError{Kind: doc.Kind, ID: doc.ID, Approval: doc.ApprovalStatus, Status: doc.Status, Operation: "cancel"}
	}
	if doc.BranchID != actor.BranchID {
		return &finance.CrossBranchError{Kind: doc.Kind, ID: doc.ID, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	if doc.CreatedBy != actor.ID {
		return &finance.ForbiddenError{Kind: doc.Kind, ID: doc.ID, ActorID: actor.ID, Reason: "only the creator may cancel"}
	}
	if cfg.CancelNeedsReason && strings.TrimSpace(reason) == "" {
		return &finance.ValidationError{Msg: "cancel reason required for " + string(doc.Kind)}
	}
	return nil
}
