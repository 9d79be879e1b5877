package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// kindTables maps each document kind to its table. Every table shares the
// same header columns, so one repository serves all six kinds.
var kindTables = map[finance.DocKind]string{
	finance.KindSalesOrder:    "sales_orders",
	finance.KindPurchaseOrder: "purchase_orders",
	finance.KindARInvoice:     "ar_invoices",
	finance.KindAPInvoice:     "ap_invoices",
	finance.KindARReceipt:     "ar_receipts",
	finance.KindAPPayment:     "ap_payments",
}

const headerColumns = `id, number, branch_id, counterparty_id, subtotal, tax_amount, total, method,
approval_status, status, created_by, approved_by, submitted_at, approved_at,
reject_reason, cancel_reason, created_at, updated_at`

// Repository persists financial document headers. It runs against the pool
// or a transaction depending on the Querier it wraps.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// WithQuerier returns a Repository bound to a different querier, typically
// a transaction.
func (r *Repository) WithQuerier(q db.Querier) *Repository {
	return &Repository{q: q}
}

func tableFor(kind finance.DocKind) (string, error) {
	table, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("documents: unknown kind %q", kind)
	}
	return table, nil
}

func scanDocument(row pgx.Row, kind finance.DocKind) (Document, error) {
	var d Document
	var method *string
	err := row.Scan(&d.ID, &d.Number, &d.BranchID, &d.CounterpartyID,
		&d.Subtotal, &d.TaxAmount, &d.Total, &method,
		&d.ApprovalStatus, &d.Status, &d.CreatedBy, &d.ApprovedBy,
		&d.SubmittedAt, &d.ApprovedAt, &d.RejectReason, &d.CancelReason,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, &finance.NotFoundError{Entity: string(kind)}
		}
		return Document{}, err
	}
	d.Kind = kind
	if method != nil {
		d.Method = finance.SettlementMethod(*method)
	}
	return d, nil
}

// Get loads a document header.
func (r *Repository) Get(ctx context.Context, kind finance.DocKind, id int64) (Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Document{}, err
	}
	row := r.q.QueryRow(ctx, `SELECT `+headerColumns+` FROM `+table+` WHERE id=$1`, id)
	doc, err := scanDocument(row, kind)
	if err != nil {
		var notFound *finance.NotFoundError
		if errors.As(err, &notFound) {
			notFound.ID = id
		}
		return Document{}, err
	}
	return doc, nil
}

// GetForUpdate loads a document header under a row lock, serialising
// concurrent transitions and allocations against the same row.
func (r *Repository) GetForUpdate(ctx context.Context, kind finance.DocKind, id int64) (Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Document{}, err
	}
	row := r.q.QueryRow(ctx, `SELECT `+headerColumns+` FROM `+table+` WHERE id=$1 FOR UPDATE`, id)
	doc, err := scanDocument(row, kind)
	if err != nil {
		var notFound *finance.NotFoundError
		if errors.As(err, &notFound) {
			notFound.ID = id
		}
		return Document{}, err
	}
	return doc, nil
}

// Create inserts a new draft header.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Document, error) {
	table, err := tableFor(input.Kind)
	if err != nil {
		return Document{}, err
	}
	var method *string
	if input.Method != "" {
		m := string(input.Method)
		method = &m
	}
	row := r.q.QueryRow(ctx, `INSERT INTO `+table+`
(number, branch_id, counterparty_id, subtotal, tax_amount, total, method, approval_status, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING `+headerColumns,
		input.Number, input.BranchID, input.CounterpartyID,
		input.Subtotal, input.TaxAmount, input.Total, method,
		finance.ApprovalDraft, finance.StatusDraft, input.CreatedBy)
	return scanDocument(row, input.Kind)
}

// UpdateDraft patches the mutable fields of a draft row.
func (r *Repository) UpdateDraft(ctx context.Context, kind finance.DocKind, id int64, input UpdateInput) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	sets := []string{"updated_at=NOW()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if input.CounterpartyID != nil {
		add("counterparty_id", *input.CounterpartyID)
	}
	if input.Subtotal != nil {
		add("subtotal", *input.Subtotal)
	}
	if input.TaxAmount != nil {
		add("tax_amount", *input.TaxAmount)
	}
	if input.Total != nil {
		add("total", *input.Total)
	}
	if input.Method != nil {
		add("method", string(*input.Method))
	}
	cmd, err := r.q.Exec(ctx, `UPDATE `+table+` SET `+strings.Join(sets, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &finance.NotFoundError{Entity: string(kind), ID: id}
	}
	return nil
}

// Delete removes a document row. Callers enforce the draft-only rule.
func (r *Repository) Delete(ctx context.Context, kind finance.DocKind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &finance.NotFoundError{Entity: string(kind), ID: id}
	}
	return nil
}

// ApplyApproval writes a workflow transition onto the row.
func (r *Repository) ApplyApproval(ctx context.Context, kind finance.DocKind, id int64, patch ApprovalPatch) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	cmd, err := r.q.Exec(ctx, `UPDATE `+table+` SET
approval_status=$2, status=$3, approved_by=$4, submitted_at=COALESCE($5, submitted_at),
approved_at=$6, reject_reason=$7, cancel_reason=$8, updated_at=NOW()
WHERE id=$1`,
		id, patch.ApprovalStatus, patch.Status, patch.ApprovedBy,
		patch.SubmittedAt, patch.ApprovedAt, patch.RejectReason, patch.CancelReason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &finance.NotFoundError{Entity: string(kind), ID: id}
	}
	return nil
}

// UpdateStatus flips only the document status, leaving approval fields as
// they are. Used by the allocation engine for PAID/COMPLETED flips.
func (r *Repository) UpdateStatus(ctx context.Context, kind finance.DocKind, id int64, status finance.DocStatus) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	cmd, err := r.q.Exec(ctx, `UPDATE `+table+` SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &finance.NotFoundError{Entity: string(kind), ID: id}
	}
	return nil
}

// List returns document headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, kind finance.DocKind, filter ListFilter) ([]Document, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.BranchID != 0 {
		add("branch_id=$%d", filter.BranchID)
	}
	if filter.CounterpartyID != 0 {
		add("counterparty_id=$%d", filter.CounterpartyID)
	}
	if filter.Status != "" {
		add("status=$%d", filter.Status)
	}
	if filter.ApprovalStatus != "" {
		add("approval_status=$%d", filter.ApprovalStatus)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		headerColumns, table, strings.Join(where, " AND "), len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows, kind)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
