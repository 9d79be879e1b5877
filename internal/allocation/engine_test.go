package allocation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
)

type memoryAllocationRepo struct {
	docs   map[finance.DocKind]map[int64]documents.Document
	allocs map[string][]Allocation
	nextID int64
}

func newMemoryAllocationRepo() *memoryAllocationRepo {
	return &memoryAllocationRepo{
		docs:   make(map[finance.DocKind]map[int64]documents.Document),
		allocs: make(map[string][]Allocation),
	}
}

func (r *memoryAllocationRepo) put(doc documents.Document) {
	if r.docs[doc.Kind] == nil {
		r.docs[doc.Kind] = make(map[int64]documents.Document)
	}
	r.docs[doc.Kind][doc.ID] = doc
}

func (r *memoryAllocationRepo) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	snapshot := make(map[finance.DocKind]map[int64]documents.Document, len(r.docs))
	for kind, byID := range r.docs {
		snapshot[kind] = make(map[int64]documents.Document, len(byID))
		for id, doc := range byID {
			snapshot[kind][id] = doc
		}
	}
	allocSnapshot := make(map[string][]Allocation, len(r.allocs))
	for table, rows := range r.allocs {
		allocSnapshot[table] = append([]Allocation(nil), rows...)
	}
	if err := fn(&memoryAllocationTx{repo: r}); err != nil {
		r.docs = snapshot
		r.allocs = allocSnapshot
		return err
	}
	return nil
}

func (r *memoryAllocationRepo) GetDocument(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error) {
	doc, ok := r.docs[kind][id]
	if !ok {
		return documents.Document{}, &finance.NotFoundError{Entity: string(kind), ID: id}
	}
	return doc, nil
}

func (r *memoryAllocationRepo) SumBySource(ctx context.Context, side Side, sourceID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, a := range r.allocs[side.Table] {
		if a.SourceID == sourceID {
			sum = sum.Add(a.Amount)
		}
	}
	return sum, nil
}

func (r *memoryAllocationRepo) sumByInvoice(side Side, invoiceID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range r.allocs[side.Table] {
		if a.InvoiceID == invoiceID {
			sum = sum.Add(a.Amount)
		}
	}
	return sum
}

func (r *memoryAllocationRepo) ListUnpaidInvoices(ctx context.Context, side Side, branchID, counterpartyID int64) ([]UnpaidInvoice, error) {
	var out []UnpaidInvoice
	for _, doc := range r.docs[side.InvoiceKind] {
		if doc.BranchID != branchID || doc.CounterpartyID != counterpartyID {
			continue
		}
		if doc.ApprovalStatus != finance.ApprovalApproved || doc.Status != finance.StatusPosted {
			continue
		}
		unpaid := doc.Total.Sub(r.sumByInvoice(side, doc.ID))
		if unpaid.Sign() <= 0 {
			continue
		}
		out = append(out, UnpaidInvoice{ID: doc.ID, Number: doc.Number, Total: doc.Total, Unpaid: unpaid, Status: doc.Status})
	}
	return out, nil
}

type memoryAllocationTx struct {
	repo *memoryAllocationRepo
}

func (t *memoryAllocationTx) GetSourceForUpdate(ctx context.Context, side Side, id int64) (documents.Document, error) {
	return t.repo.GetDocument(ctx, side.SourceKind, id)
}

func (t *memoryAllocationTx) GetInvoiceForUpdate(ctx context.Context, side Side, id int64) (documents.Document, error) {
	return t.repo.GetDocument(ctx, side.InvoiceKind, id)
}

func (t *memoryAllocationTx) SumBySource(ctx context.Context, side Side, sourceID int64) (decimal.Decimal, error) {
	return t.repo.SumBySource(ctx, side, sourceID)
}

func (t *memoryAllocationTx) SumByInvoice(ctx context.Context, side Side, invoiceID int64) (decimal.Decimal, error) {
	return t.repo.sumByInvoice(side, invoiceID), nil
}

func (t *memoryAllocationTx) InsertAllocation(ctx context.Context, side Side, alloc Allocation) (Allocation, error) {
	t.repo.nextID++
	alloc.ID = t.repo.nextID
	t.repo.allocs[side.Table] = append(t.repo.allocs[side.Table], alloc)
	return alloc, nil
}

func (t *memoryAllocationTx) UpdateDocumentStatus(ctx context.Context, kind finance.DocKind, id int64, status finance.DocStatus) error {
	doc, ok := t.repo.docs[kind][id]
	if !ok {
		return &finance.NotFoundError{Entity: string(kind), ID: id}
	}
	doc.Status = status
	t.repo.docs[kind][id] = doc
	return nil
}

var clerk = identity.Actor{ID: 1, Name: "Ana", Role: "CLERK", BranchID: 1}

func postedDoc(kind finance.DocKind, id int64, total int64) documents.Document {
	doc := documents.Document{
		ID:             id,
		Kind:           kind,
		BranchID:       1,
		CounterpartyID: 7,
		Subtotal:       decimal.NewFromInt(total),
		Total:          decimal.NewFromInt(total),
		ApprovalStatus: finance.ApprovalApproved,
		Status:         finance.StatusPosted,
		CreatedBy:      1,
	}
	if kind.Settleable() {
		doc.Method = finance.SettleBank
	}
	return doc
}

func newTestAllocEngine(repo *memoryAllocationRepo) *Engine {
	return NewEngine(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAllocatePartialThenFull(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAllocationRepo()
	engine := newTestAllocEngine(repo)

	repo.put(postedDoc(finance.KindARInvoice, 1, 1_100_000))
	repo.put(postedDoc(finance.KindARReceipt, 10, 600_000))
	repo.put(postedDoc(finance.KindARReceipt, 11, 500_000))

	// Partial settlement leaves the invoice posted.
	result, err := engine.Allocate(ctx, finance.KindARReceipt, 10,
		[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(600_000)}}, clerk)
	require.NoError(t, err)
	require.True(t, result.Available.IsZero())
	require.True(t, result.SourceCompleted)
	require.Empty(t, result.PaidInvoiceIDs)

	invoice, err := repo.GetDocument(ctx, finance.KindARInvoice, 1)
	require.NoError(t, err)
	require.Equal(t, finance.StatusPosted, invoice.Status)

	unpaid, err := engine.UnpaidInvoices(ctx, finance.KindARReceipt, 11, clerk)
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	require.True(t, unpaid[0].Unpaid.Equal(decimal.NewFromInt(500_000)))

	// The second receipt settles the remainder and flips the invoice.
	result, err = engine.Allocate(ctx, finance.KindARReceipt, 11,
		[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(500_000)}}, clerk)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, result.PaidInvoiceIDs)

	invoice, err = repo.GetDocument(ctx, finance.KindARInvoice, 1)
	require.NoError(t, err)
	require.Equal(t, finance.StatusPaid, invoice.Status)

	unpaid, err = engine.UnpaidInvoices(ctx, finance.KindARReceipt, 11, clerk)
	require.NoError(t, err)
	require.Empty(t, unpaid)
}

func TestAllocateOverspendIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAllocationRepo()
	engine := newTestAllocEngine(repo)

	repo.put(postedDoc(finance.KindAPInvoice, 1, 700_000))
	repo.put(postedDoc(finance.KindAPInvoice, 2, 500_000))
	repo.put(postedDoc(finance.KindAPPayment, 20, 1_000_000))

	_, err := engine.Allocate(ctx, finance.KindAPPayment, 20, []Request{
		{InvoiceID: 1, Amount: decimal.NewFromInt(700_000)},
		{InvoiceID: 2, Amount: decimal.NewFromInt(500_000)},
	}, clerk)
	var over *finance.OverAllocationError
	require.ErrorAs(t, err, &over)
	require.True(t, over.Requested.Equal(decimal.NewFromInt(1_200_000)))
	require.True(t, over.Available.Equal(decimal.NewFromInt(1_000_000)))

	// No allocation rows were written.
	require.Empty(t, repo.allocs)
	available, err := engine.Available(ctx, finance.KindAPPayment, 20, clerk)
	require.NoError(t, err)
	require.True(t, available.Equal(decimal.NewFromInt(1_000_000)))
}

func TestAllocateInvoiceOverspendNamesInvoice(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAllocationRepo()
	engine := newTestAllocEngine(repo)

	repo.put(postedDoc(finance.KindARInvoice, 1, 400_000))
	repo.put(postedDoc(finance.KindARReceipt, 10, 1_000_000))

	_, err := engine.Allocate(ctx, finance.KindARReceipt, 10,
		[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(500_000)}}, clerk)
	var over *finance.OverAllocationError
	require.ErrorAs(t, err, &over)
	require.Equal(t, int64(1), over.InvoiceID)
	require.Empty(t, repo.allocs)
}

func TestAllocatePreconditions(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAllocationRepo()
	engine := newTestAllocEngine(repo)

	repo.put(postedDoc(finance.KindARInvoice, 1, 500_000))

	t.Run("source must be posted and approved", func(t *testing.T) {
		receipt := postedDoc(finance.KindARReceipt, 10, 500_000)
		receipt.ApprovalStatus = finance.ApprovalWaiting
		receipt.Status = finance.StatusDraft
		repo.put(receipt)
		_, err := engine.Allocate(ctx, finance.KindARReceipt, 10,
			[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(100_000)}}, clerk)
		var invalid *finance.InvalidStateError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("invoices cannot be the allocation source", func(t *testing.T) {
		_, err := engine.Allocate(ctx, finance.KindARInvoice, 1,
			[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(100_000)}}, clerk)
		var validation *finance.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("amounts must be positive", func(t *testing.T) {
		repo.put(postedDoc(finance.KindARReceipt, 11, 500_000))
		_, err := engine.Allocate(ctx, finance.KindARReceipt, 11,
			[]Request{{InvoiceID: 1, Amount: decimal.Zero}}, clerk)
		var validation *finance.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("duplicate invoices are rejected", func(t *testing.T) {
		repo.put(postedDoc(finance.KindARReceipt, 12, 500_000))
		_, err := engine.Allocate(ctx, finance.KindARReceipt, 12, []Request{
			{InvoiceID: 1, Amount: decimal.NewFromInt(100_000)},
			{InvoiceID: 1, Amount: decimal.NewFromInt(100_000)},
		}, clerk)
		var validation *finance.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("cross-branch source is denied", func(t *testing.T) {
		repo.put(postedDoc(finance.KindARReceipt, 13, 500_000))
		foreign := identity.Actor{ID: 5, Role: "CLERK", BranchID: 2}
		_, err := engine.Allocate(ctx, finance.KindARReceipt, 13,
			[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(100_000)}}, foreign)
		var crossBranch *finance.CrossBranchError
		require.ErrorAs(t, err, &crossBranch)
	})

	t.Run("counterparty must match", func(t *testing.T) {
		receipt := postedDoc(finance.KindARReceipt, 14, 500_000)
		receipt.CounterpartyID = 99
		repo.put(receipt)
		_, err := engine.Allocate(ctx, finance.KindARReceipt, 14,
			[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(100_000)}}, clerk)
		var validation *finance.ValidationError
		require.ErrorAs(t, err, &validation)
	})
}

func TestAllocateFullSpendCompletesSourceAndPaysInvoices(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAllocationRepo()
	engine := newTestAllocEngine(repo)

	repo.put(postedDoc(finance.KindAPInvoice, 1, 700_000))
	repo.put(postedDoc(finance.KindAPInvoice, 2, 300_000))
	repo.put(postedDoc(finance.KindAPPayment, 20, 1_000_000))

	result, err := engine.Allocate(ctx, finance.KindAPPayment, 20, []Request{
		{InvoiceID: 1, Amount: decimal.NewFromInt(700_000)},
		{InvoiceID: 2, Amount: decimal.NewFromInt(300_000)},
	}, clerk)
	require.NoError(t, err)
	require.True(t, result.SourceCompleted)
	require.Equal(t, []int64{1, 2}, result.PaidInvoiceIDs)

	payment, err := repo.GetDocument(ctx, finance.KindAPPayment, 20)
	require.NoError(t, err)
	require.Equal(t, finance.StatusCompleted, payment.Status)
	for _, id := range []int64{1, 2} {
		invoice, err := repo.GetDocument(ctx, finance.KindAPInvoice, id)
		require.NoError(t, err)
		require.Equal(t, finance.StatusPaid, invoice.Status)
	}

	// The completed payment can no longer allocate.
	_, err = engine.Allocate(ctx, finance.KindAPPayment, 20,
		[]Request{{InvoiceID: 1, Amount: decimal.NewFromInt(1)}}, clerk)
	var invalid *finance.InvalidStateError
	require.ErrorAs(t, err, &invalid)
}
