package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/notify"
)

// TxRepository is the storage surface a single workflow transition runs
// against. All calls share one transaction.
type TxRepository interface {
	GetDocumentForUpdate(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error)
	ApplyApproval(ctx context.Context, kind finance.DocKind, id int64, patch documents.ApprovalPatch) error
	InsertApprovalLog(ctx context.Context, log ApprovalLog) error
	Ledger() ledger.TxRepository
}

// RepositoryPort opens transitions and serves reads.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
	GetDocument(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error)
	ListApprovalLogs(ctx context.Context, kind finance.DocKind, id int64) ([]ApprovalLog, error)
}

// Poster is the ledger posting engine as the workflow sees it.
type Poster interface {
	Post(ctx context.Context, tx ledger.TxRepository, doc documents.Document) (ledger.Entry, error)
}

// Engine drives workflow transitions: it locks the document row, runs the
// pure decision, applies the patch, posts to the ledger on approval, writes
// the approval trail, and publishes an event once the transaction commits.
type Engine struct {
	repo     RepositoryPort
	poster   Poster
	notifier notify.Gateway
	logger   *slog.Logger
	configs  map[finance.DocKind]KindConfig
	now      func() time.Time
}

// NewEngine constructs the workflow engine.
func NewEngine(repo RepositoryPort, poster Poster, notifier notify.Gateway, logger *slog.Logger) *Engine {
	return &Engine{
		repo:     repo,
		poster:   poster,
		notifier: notifier,
		logger:   logger,
		configs:  DefaultConfigs(),
		now:      time.Now,
	}
}

// WithConfigs overrides the per-kind configuration.
func (e *Engine) WithConfigs(configs map[finance.DocKind]KindConfig) *Engine {
	e.configs = configs
	return e
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

func (e *Engine) configFor(kind finance.DocKind) (KindConfig, error) {
	cfg, ok := e.configs[kind]
	if !ok {
		return KindConfig{}, &finance.ValidationError{Msg: "unsupported document kind " + string(kind)}
	}
	return cfg, nil
}

// Submit moves a draft (or rejected) document into waiting_approval. A
// resubmission clears the previous reject reason.
func (e *Engine) Submit(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) (documents.Document, error) {
	if _, err := e.configFor(kind); err != nil {
		return documents.Document{}, err
	}
	var doc documents.Document
	err := e.repo.WithTx(ctx, func(tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := DecideSubmit(doc, actor); err != nil {
			return err
		}
		now := e.now()
		patch := documents.ApprovalPatch{
			ApprovalStatus: finance.ApprovalWaiting,
			Status:         finance.StatusDraft,
			SubmittedAt:    &now,
		}
		if err := tx.ApplyApproval(ctx, kind, id, patch); err != nil {
			return err
		}
		applyPatch(&doc, patch)
		return tx.InsertApprovalLog(ctx, ApprovalLog{
			Kind: kind, RefID: id, ActorID: actor.ID, Action: ActionSubmit, At: now,
		})
	})
	if err != nil {
		return documents.Document{}, err
	}
	e.publish(ctx, notify.EventSubmit, doc, actor, "")
	return doc, nil
}

// Approve moves a waiting document to approved and, for postable kinds,
// writes its ledger entry inside the same transaction.
func (e *Engine) Approve(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) (documents.Document, error) {
	cfg, err := e.configFor(kind)
	if err != nil {
		return documents.Document{}, err
	}
	var doc documents.Document
	err = e.repo.WithTx(ctx, func(tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := DecideApprove(doc, actor, cfg); err != nil {
			return err
		}
		now := e.now()
		approver := actor.ID
		patch := documents.ApprovalPatch{
			ApprovalStatus: finance.ApprovalApproved,
			Status:         finance.StatusPosted,
			ApprovedBy:     &approver,
			ApprovedAt:     &now,
		}
		if !cfg.Postable {
			patch.Status = finance.StatusCompleted
		}
		if err := tx.ApplyApproval(ctx, kind, id, patch); err != nil {
			return err
		}
		applyPatch(&doc, patch)
		if cfg.Postable {
			if _, err := e.poster.Post(ctx, tx.Ledger(), doc); err != nil {
				return err
			}
		}
		return tx.InsertApprovalLog(ctx, ApprovalLog{
			Kind: kind, RefID: id, ActorID: actor.ID, Action: ActionApprove, At: now,
		})
	})
	if err != nil {
		return documents.Document{}, err
	}
	e.publish(ctx, notify.EventApprove, doc, actor, "")
	return doc, nil
}

// Reject sends a waiting document back to draft with a mandatory reason.
func (e *Engine) Reject(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor, reason string) (documents.Document, error) {
	cfg, err := e.configFor(kind)
	if err != nil {
		return documents.Document{}, err
	}
	var doc documents.Document
	err = e.repo.WithTx(ctx, func(tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := DecideReject(doc, actor, cfg, reason); err != nil {
			return err
		}
		now := e.now()
		patch := documents.ApprovalPatch{
			ApprovalStatus: finance.ApprovalRejected,
			Status:         finance.StatusDraft,
			RejectReason:   &reason,
		}
		if err := tx.ApplyApproval(ctx, kind, id, patch); err != nil {
			return err
		}
		applyPatch(&doc, patch)
		return tx.InsertApprovalLog(ctx, ApprovalLog{
			Kind: kind, RefID: id, ActorID: actor.ID, Action: ActionReject, Note: reason, At: now,
		})
	})
	if err != nil {
		return documents.Document{}, err
	}
	e.publish(ctx, notify.EventReject, doc, actor, reason)
	return doc, nil
}

// Cancel terminally cancels a draft or rejected document. No event is
// published; cancellation is local housekeeping, not a workflow handoff.
func (e *Engine) Cancel(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor, reason string) (documents.Document, error) {
	cfg, err := e.configFor(kind)
	if err != nil {
		return documents.Document{}, err
	}
	var doc documents.Document
	err = e.repo.WithTx(ctx, func(tx TxRepository) error {
		var err error
		doc, err = tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := DecideCancel(doc, actor, cfg, reason); err != nil {
			return err
		}
		now := e.now()
		patch := documents.ApprovalPatch{
			ApprovalStatus: doc.ApprovalStatus,
			Status:         finance.StatusCancelled,
			RejectReason:   doc.RejectReason,
		}
		if reason != "" {
			patch.CancelReason = &reason
		}
		if err := tx.ApplyApproval(ctx, kind, id, patch); err != nil {
			return err
		}
		applyPatch(&doc, patch)
		return tx.InsertApprovalLog(ctx, ApprovalLog{
			Kind: kind, RefID: id, ActorID: actor.ID, Action: ActionCancel, Note: reason, At: now,
		})
	})
	if err != nil {
		return documents.Document{}, err
	}
	return doc, nil
}

// Get returns a document visible to the actor's branch.
func (e *Engine) Get(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) (documents.Document, error) {
	doc, err := e.repo.GetDocument(ctx, kind, id)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.BranchID != actor.BranchID {
		return documents.Document{}, &finance.CrossBranchError{Kind: kind, ID: id, DocBranch: doc.BranchID, ActorBranch: actor.BranchID}
	}
	return doc, nil
}

// Approvals returns the approval trail for a document in the actor's branch.
func (e *Engine) Approvals(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) ([]ApprovalLog, error) {
	if _, err := e.Get(ctx, kind, id, actor); err != nil {
		return nil, err
	}
	return e.repo.ListApprovalLogs(ctx, kind, id)
}

// applyPatch mirrors ApplyApproval's row update onto the in-memory copy so
// callers and events see the post-transition document.
func applyPatch(doc *documents.Document, patch documents.ApprovalPatch) {
	doc.ApprovalStatus = patch.ApprovalStatus
	doc.Status = patch.Status
	doc.ApprovedBy = patch.ApprovedBy
	if patch.SubmittedAt != nil {
		doc.SubmittedAt = patch.SubmittedAt
	}
	doc.ApprovedAt = patch.ApprovedAt
	doc.RejectReason = patch.RejectReason
	doc.CancelReason = patch.CancelReason
}

// publish sends the transition event after commit. Delivery failures are
// logged, never surfaced: the transition already happened.
func (e *Engine) publish(ctx context.Context, typ notify.EventType, doc documents.Document, actor identity.Actor, reason string) {
	event := notify.Event{
		ID:            uuid.New(),
		Type:          typ,
		ReferenceType: doc.Kind,
		ReferenceID:   doc.ID,
		ReferenceNo:   doc.Number,
		BranchID:      doc.BranchID,
		Amount:        doc.Total,
		SubmitterID:   doc.CreatedBy,
		OccurredAt:    e.now(),
	}
	switch typ {
	case notify.EventApprove:
		event.ApproverName = actor.Name
	case notify.EventReject:
		event.ApproverName = actor.Name
		event.RejectReason = reason
	}
	if err := e.notifier.Publish(ctx, event); err != nil {
		e.logger.Error("publish transition event",
			slog.String("reference_type", string(doc.Kind)),
			slog.Int64("reference_id", doc.ID),
			slog.Any("error", err))
	}
}
