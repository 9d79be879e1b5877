package finance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a missing document or related entity.
var ErrNotFound = errors.New("finance: not found")

// NotFoundError reports a missing entity with its identity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("finance: %s %d not found", e.Entity, e.ID)
}

// Unwrap lets callers match against ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError indicates the document is in the wrong lifecycle stage
// for the requested transition.
type InvalidStateError struct {
	Kind      DocKind
	ID        int64
	Approval  ApprovalStatus
	Status    DocStatus
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("finance: %s %d cannot %s from approval=%s status=%s",
		e.Kind, e.ID, e.Operation, e.Approval, e.Status)
}

// ForbiddenError indicates a role or ownership mismatch.
type ForbiddenError struct {
	Kind    DocKind
	ID      int64
	ActorID int64
	Reason  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("finance: actor %d forbidden on %s %d: %s", e.ActorID, e.Kind, e.ID, e.Reason)
}

// CrossBranchError indicates the actor and the document belong to
// different branches.
type CrossBranchError struct {
	Kind        DocKind
	ID          int64
	DocBranch   int64
	ActorBranch int64
}

func (e *CrossBranchError) Error() string {
	return fmt.Sprintf("finance: %s %d belongs to branch %d, actor belongs to branch %d",
		e.Kind, e.ID, e.DocBranch, e.ActorBranch)
}

// MissingAccountError indicates a ledger account mapping gap.
type MissingAccountError struct {
	Kind   DocKind
	Method SettlementMethod
	Slot   string
}

func (e *MissingAccountError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("finance: no %s account mapped for %s/%s", e.Slot, e.Kind, e.Method)
	}
	return fmt.Sprintf("finance: no %s account mapped for %s", e.Slot, e.Kind)
}

// ZeroAmountError indicates a document with a non-positive amount reached
// the posting engine.
type ZeroAmountError struct {
	Kind DocKind
	ID   int64
}

func (e *ZeroAmountError) Error() string {
	return fmt.Sprintf("finance: %s %d has non-positive amount", e.Kind, e.ID)
}

// OverAllocationError indicates an allocation exceeding the available or
// unpaid amount. InvoiceID is zero when the payment side is overspent.
type OverAllocationError struct {
	InvoiceID int64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	if e.InvoiceID != 0 {
		return fmt.Sprintf("finance: allocation %s exceeds unpaid amount %s of invoice %d",
			e.Requested, e.Available, e.InvoiceID)
	}
	return fmt.Sprintf("finance: allocation %s exceeds available amount %s", e.Requested, e.Available)
}

// ValidationError reports invalid caller input before any write occurs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "finance: " + e.Msg }
