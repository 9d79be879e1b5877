// Package finance holds the vocabulary shared by the document, workflow,
// ledger, and allocation modules: document kinds, lifecycle statuses, and
// the canonical table of allowed status combinations.
package finance

// DocKind enumerates the financial document kinds covered by the workflow.
type DocKind string

const (
	KindSalesOrder    DocKind = "SALES_ORDER"
	KindPurchaseOrder DocKind = "PURCHASE_ORDER"
	KindARInvoice     DocKind = "AR_INVOICE"
	KindAPInvoice     DocKind = "AP_INVOICE"
	KindARReceipt     DocKind = "AR_RECEIPT"
	KindAPPayment     DocKind = "AP_PAYMENT"
)

// Kinds lists every document kind in a stable order.
var Kinds = []DocKind{
	KindSalesOrder,
	KindPurchaseOrder,
	KindARInvoice,
	KindAPInvoice,
	KindARReceipt,
	KindAPPayment,
}

// Valid reports whether k names a known document kind.
func (k DocKind) Valid() bool {
	switch k {
	case KindSalesOrder, KindPurchaseOrder, KindARInvoice, KindAPInvoice, KindARReceipt, KindAPPayment:
		return true
	}
	return false
}

// Settleable reports whether the kind carries a settlement method
// (receipts and payments move cash, the rest do not).
func (k DocKind) Settleable() bool {
	return k == KindARReceipt || k == KindAPPayment
}

// ApprovalStatus enumerates the approval workflow states.
type ApprovalStatus string

const (
	ApprovalDraft    ApprovalStatus = "DRAFT"
	ApprovalWaiting  ApprovalStatus = "WAITING_APPROVAL"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// DocStatus enumerates document lifecycle statuses.
type DocStatus string

const (
	StatusDraft     DocStatus = "DRAFT"
	StatusPosted    DocStatus = "POSTED"
	StatusPaid      DocStatus = "PAID"
	StatusCompleted DocStatus = "COMPLETED"
	StatusCancelled DocStatus = "CANCELLED"
)

// SettlementMethod enumerates how a receipt or payment moves funds.
type SettlementMethod string

const (
	SettleCash SettlementMethod = "CASH"
	SettleBank SettlementMethod = "BANK_TRANSFER"
)

// Valid reports whether m is a known settlement method.
func (m SettlementMethod) Valid() bool {
	return m == SettleCash || m == SettleBank
}

// statePairs is the canonical table of allowed (approval_status, status)
// combinations. A document must always sit on one of these pairs; every
// transition in the workflow engine moves between rows of this table.
var statePairs = map[ApprovalStatus]map[DocStatus]bool{
	ApprovalDraft:    {StatusDraft: true, StatusCancelled: true},
	ApprovalWaiting:  {StatusDraft: true},
	ApprovalRejected: {StatusDraft: true, StatusCancelled: true},
	ApprovalApproved: {StatusPosted: true, StatusPaid: true, StatusCompleted: true},
}

// ValidStatePair reports whether the combination of approval status and
// document status is allowed by the canonical state table.
func ValidStatePair(a ApprovalStatus, s DocStatus) bool {
	return statePairs[a][s]
}
