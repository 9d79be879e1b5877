// Package allocation matches posted receipts and payments against unpaid
// invoices of the same counterparty. The AR and AP sides share one engine
// parameterised by Side.
package allocation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// Side pairs a settlement kind with the invoice kind it settles and the
// join table recording the applications.
type Side struct {
	SourceKind  finance.DocKind
	InvoiceKind finance.DocKind
	Table       string
}

var sides = map[finance.DocKind]Side{
	finance.KindARReceipt: {
		SourceKind:  finance.KindARReceipt,
		InvoiceKind: finance.KindARInvoice,
		Table:       "ar_receipt_allocations",
	},
	finance.KindAPPayment: {
		SourceKind:  finance.KindAPPayment,
		InvoiceKind: finance.KindAPInvoice,
		Table:       "ap_payment_allocations",
	},
}

// SideFor resolves the allocation side for a settlement kind.
func SideFor(kind finance.DocKind) (Side, error) {
	side, ok := sides[kind]
	if !ok {
		return Side{}, &finance.ValidationError{Msg: string(kind) + " cannot be allocated"}
	}
	return side, nil
}

// Request asks to apply part of the source's funds to one invoice.
type Request struct {
	InvoiceID int64           `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

// Allocation is one recorded application of funds.
type Allocation struct {
	ID        int64           `json:"id"`
	SourceID  int64           `json:"source_id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnpaidInvoice is a settlement candidate with its outstanding balance.
type UnpaidInvoice struct {
	ID     int64             `json:"id"`
	Number string            `json:"number"`
	Total  decimal.Decimal   `json:"total"`
	Unpaid decimal.Decimal   `json:"unpaid"`
	Status finance.DocStatus `json:"status"`
}

// Result reports the outcome of one allocate call.
type Result struct {
	SourceID        int64           `json:"source_id"`
	Allocations     []Allocation    `json:"allocations"`
	Available       decimal.Decimal `json:"available"`
	SourceCompleted bool            `json:"source_completed"`
	PaidInvoiceIDs  []int64         `json:"paid_invoice_ids,omitempty"`
}
