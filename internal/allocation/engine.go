package allocation

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
)

// TxRepository is the storage surface one allocate call runs against. All
// calls share one transaction; the source document row is locked first.
type TxRepository interface {
	GetSourceForUpdate(ctx context.Context, side Side, id int64) (documents.Document, error)
	GetInvoiceForUpdate(ctx context.Context, side Side, id int64) (documents.Document, error)
	SumBySource(ctx context.Context, side Side, sourceID int64) (decimal.Decimal, error)
	SumByInvoice(ctx context.Context, side Side, invoiceID int64) (decimal.Decimal, error)
	InsertAllocation(ctx context.Context, side Side, alloc Allocation) (Allocation, error)
	UpdateDocumentStatus(ctx context.Context, kind finance.DocKind, id int64, status finance.DocStatus) error
}

// RepositoryPort opens allocation transactions and serves the read-only
// helpers.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
	GetDocument(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error)
	SumBySource(ctx context.Context, side Side, sourceID int64) (decimal.Decimal, error)
	ListUnpaidInvoices(ctx context.Context, side Side, branchID, counterpartyID int64) ([]UnpaidInvoice, error)
}

// Engine applies receipt/payment funds against unpaid invoices.
// Balances are recomputed from the allocation rows on every call, never
// cached on the documents.
type Engine struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewEngine constructs the allocation engine.
func NewEngine(repo RepositoryPort, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

// Available returns the source's unallocated remainder.
func (e *Engine) Available(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) (decimal.Decimal, error) {
	side, err := SideFor(kind)
	if err != nil {
		return decimal.Zero, err
	}
	src, err := e.repo.GetDocument(ctx, kind, id)
	if err != nil {
		return decimal.Zero, err
	}
	if src.BranchID != actor.BranchID {
		return decimal.Zero, &finance.CrossBranchError{Kind: kind, ID: id, DocBranch: src.BranchID, ActorBranch: actor.BranchID}
	}
	allocated, err := e.repo.SumBySource(ctx, side, id)
	if err != nil {
		return decimal.Zero, err
	}
	return src.Total.Sub(allocated), nil
}

// UnpaidInvoices lists the source counterparty's settlement candidates,
// oldest first. The caller chooses which to settle; no FIFO is enforced.
func (e *Engine) UnpaidInvoices(ctx context.Context, kind finance.DocKind, id int64, actor identity.Actor) ([]UnpaidInvoice, error) {
	side, err := SideFor(kind)
	if err != nil {
		return nil, err
	}
	src, err := e.repo.GetDocument(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if src.BranchID != actor.BranchID {
		return nil, &finance.CrossBranchError{Kind: kind, ID: id, DocBranch: src.BranchID, ActorBranch: actor.BranchID}
	}
	return e.repo.ListUnpaidInvoices(ctx, side, src.BranchID, src.CounterpartyID)
}

// Allocate applies the requests against the source's available amount,
// all-or-nothing. Invoices fully settled flip to paid; a fully spent
// source flips to completed.
func (e *Engine) Allocate(ctx context.Context, kind finance.DocKind, id int64, requests []Request, actor identity.Actor) (Result, error) {
	side, err := SideFor(kind)
	if err != nil {
		return Result{}, err
	}
	if err := validateRequests(requests); err != nil {
		return Result{}, err
	}

	var result Result
	err = e.repo.WithTx(ctx, func(tx TxRepository) error {
		src, err := tx.GetSourceForUpdate(ctx, side, id)
		if err != nil {
			return err
		}
		if src.BranchID != actor.BranchID {
			return &finance.CrossBranchError{Kind: kind, ID: id, DocBranch: src.BranchID, ActorBranch: actor.BranchID}
		}
		if src.ApprovalStatus != finance.ApprovalApproved || src.Status != finance.StatusPosted {
			return &finance.InvalidStateError{Kind: kind, ID: id, Approval: src.ApprovalStatus, Status: src.Status, Operation: "allocate"}
		}

		allocated, err := tx.SumBySource(ctx, side, id)
		if err != nil {
			return err
		}
		available := src.Total.Sub(allocated)
		requested := decimal.Zero
		for _, req := range requests {
			requested = requested.Add(req.Amount)
		}
		if requested.GreaterThan(available) {
			return &finance.OverAllocationError{Requested: requested, Available: available}
		}

		// Validate every request before writing the first row.
		invoices := make([]documents.Document, len(requests))
		unpaid := make([]decimal.Decimal, len(requests))
		for i, req := range requests {
			inv, err := tx.GetInvoiceForUpdate(ctx, side, req.InvoiceID)
			if err != nil {
				return err
			}
			if inv.BranchID != src.BranchID || inv.CounterpartyID != src.CounterpartyID {
				return &finance.ValidationError{Msg: "invoice does not belong to the source counterparty"}
			}
			if inv.ApprovalStatus != finance.ApprovalApproved || inv.Status != finance.StatusPosted {
				return &finance.InvalidStateError{Kind: side.InvoiceKind, ID: inv.ID, Approval: inv.ApprovalStatus, Status: inv.Status, Operation: "allocate"}
			}
			applied, err := tx.SumByInvoice(ctx, side, inv.ID)
			if err != nil {
				return err
			}
			outstanding := inv.Total.Sub(applied)
			if req.Amount.GreaterThan(outstanding) {
				return &finance.OverAllocationError{InvoiceID: inv.ID, Requested: req.Amount, Available: outstanding}
			}
			invoices[i] = inv
			unpaid[i] = outstanding
		}

		result = Result{SourceID: id}
		for i, req := range requests {
			alloc, err := tx.InsertAllocation(ctx, side, Allocation{SourceID: id, InvoiceID: req.InvoiceID, Amount: req.Amount})
			if err != nil {
				return err
			}
			result.Allocations = append(result.Allocations, alloc)
			if unpaid[i].Equal(req.Amount) {
				if err := tx.UpdateDocumentStatus(ctx, side.InvoiceKind, req.InvoiceID, finance.StatusPaid); err != nil {
					return err
				}
				result.PaidInvoiceIDs = append(result.PaidInvoiceIDs, req.InvoiceID)
			}
		}
		result.Available = available.Sub(requested)
		if result.Available.IsZero() {
			if err := tx.UpdateDocumentStatus(ctx, kind, id, finance.StatusCompleted); err != nil {
				return err
			}
			result.SourceCompleted = true
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	e.logger.Info("allocation applied",
		slog.String("source_kind", string(kind)),
		slog.Int64("source_id", id),
		slog.Int("requests", len(requests)),
		slog.String("remaining", result.Available.String()))
	return result, nil
}

func validateRequests(requests []Request) error {
	if len(requests) == 0 {
		return &finance.ValidationError{Msg: "at least one allocation request required"}
	}
	seen := make(map[int64]bool, len(requests))
	for _, req := range requests {
		if req.Amount.Sign() <= 0 {
			return &finance.ValidationError{Msg: "allocation amount must be positive"}
		}
		if seen[req.InvoiceID] {
			return &finance.ValidationError{Msg: "duplicate invoice in allocation requests"}
		}
		seen[req.InvoiceID] = true
	}
	return nil
}
