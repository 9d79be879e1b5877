// Package documents owns the financial document headers shared by all six
// kinds, and the draft CRUD rules around them.
package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// Document is the header every financial document kind carries. Receipts
// and payments hold a single amount; for those Subtotal == Total and
// TaxAmount is zero.
type Document struct {
	ID             int64
	Number         string
	Kind           finance.DocKind
	BranchID       int64
	CounterpartyID int64
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Method         finance.SettlementMethod
	ApprovalStatus finance.ApprovalStatus
	Status         finance.DocStatus
	CreatedBy      int64
	ApprovedBy     *int64
	SubmittedAt    *time.Time
	ApprovedAt     *time.Time
	RejectReason   *string
	CancelReason   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateInput groups the fields accepted when creating a draft.
type CreateInput struct {
	Kind           finance.DocKind
	Number         string
	BranchID       int64
	CounterpartyID int64
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Method         finance.SettlementMethod
	CreatedBy      int64
}

// UpdateInput carries the mutable fields of a draft. Nil pointers leave the
// stored value unchanged.
type UpdateInput struct {
	CounterpartyID *int64
	Subtotal       *decimal.Decimal
	TaxAmount      *decimal.Decimal
	Total          *decimal.Decimal
	Method         *finance.SettlementMethod
}

// ApprovalPatch records a workflow transition on the document row.
type ApprovalPatch struct {
	ApprovalStatus finance.ApprovalStatus
	Status         finance.DocStatus
	ApprovedBy     *int64
	SubmittedAt    *time.Time
	ApprovedAt     *time.Time
	RejectReason   *string
	CancelReason   *string
}

// ListFilter narrows List queries.
type ListFilter struct {
	BranchID       int64
	CounterpartyID int64
	Status         finance.DocStatus
	ApprovalStatus finance.ApprovalStatus
	Limit          int
	Offset         int
}
