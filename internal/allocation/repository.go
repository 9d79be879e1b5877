package allocation

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// invoiceTables mirrors the documents layout for the balance queries that
// join invoices against their allocation rows.
var invoiceTables = map[finance.DocKind]string{
	finance.KindARInvoice: "ar_invoices",
	finance.KindAPInvoice: "ap_invoices",
}

// Repository is the pgx-backed RepositoryPort.
type Repository struct {
	pool      *pgxpool.Pool
	documents *documents.Repository
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, documents: documents.NewRepository(pool)}
}

// WithTx runs fn inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{q: tx, documents: r.documents.WithQuerier(tx)})
	})
}

// GetDocument loads a document header outside any transaction.
func (r *Repository) GetDocument(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error) {
	return r.documents.Get(ctx, kind, id)
}

// SumBySource totals the allocations recorded against a source document.
func (r *Repository) SumBySource(ctx context.Context, side Side, sourceID int64) (decimal.Decimal, error) {
	return sumBySource(ctx, r.pool, side, sourceID)
}

// ListUnpaidInvoices returns the counterparty's posted invoices with an
// outstanding balance, oldest first.
func (r *Repository) ListUnpaidInvoices(ctx context.Context, side Side, branchID, counterpartyID int64) ([]UnpaidInvoice, error) {
	table := invoiceTables[side.InvoiceKind]
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.number, i.total, i.total - COALESCE(a.applied, 0), i.status
FROM `+table+` i
LEFT JOIN (SELECT invoice_id, SUM(amount) AS applied FROM `+side.Table+` GROUP BY invoice_id) a ON a.invoice_id = i.id
WHERE i.branch_id=$1 AND i.counterparty_id=$2
  AND i.approval_status=$3 AND i.status=$4
  AND i.total - COALESCE(a.applied, 0) > 0
ORDER BY i.id`, branchID, counterpartyID, finance.ApprovalApproved, finance.StatusPosted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []UnpaidInvoice
	for rows.Next() {
		var inv UnpaidInvoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.Total, &inv.Unpaid, &inv.Status); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

type txRepository struct {
	q         db.Querier
	documents *documents.Repository
}

func (t *txRepository) GetSourceForUpdate(ctx context.Context, side Side, id int64) (documents.Document, error) {
	return t.documents.GetForUpdate(ctx, side.SourceKind, id)
}

func (t *txRepository) GetInvoiceForUpdate(ctx context.Context, side Side, id int64) (documents.Document, error) {
	return t.documents.GetForUpdate(ctx, side.InvoiceKind, id)
}

func (t *txRepository) SumBySource(ctx context.Context, side Side, sourceID int64) (decimal.Decimal, error) {
	return sumBySource(ctx, t.q, side, sourceID)
}

func (t *txRepository) SumByInvoice(ctx context.Context, side Side, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM `+side.Table+` WHERE invoice_id=$1`, invoiceID).Scan(&sum)
	return sum, err
}

func (t *txRepository) InsertAllocation(ctx context.Context, side Side, alloc Allocation) (Allocation, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO `+side.Table+` (source_id, invoice_id, amount)
VALUES ($1,$2,$3) RETURNING id, created_at`,
		alloc.SourceID, alloc.InvoiceID, alloc.Amount).Scan(&alloc.ID, &alloc.CreatedAt)
	return alloc, err
}

func (t *txRepository) UpdateDocumentStatus(ctx context.Context, kind finance.DocKind, id int64, status finance.DocStatus) error {
	return t.documents.UpdateStatus(ctx, kind, id, status)
}

func sumBySource(ctx context.Context, q db.Querier, side Side, sourceID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM `+side.Table+` WHERE source_id=$1`, sourceID).Scan(&sum)
	return sum, err
}
