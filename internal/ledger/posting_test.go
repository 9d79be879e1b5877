package ledger

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
)

type memoryLedgerTx struct {
	entries  map[string]*Entry
	lines    map[int64][]EntryLine
	accounts map[string]int64
	journals map[string]Journal
	nextID   int64
}

func newMemoryLedgerTx() *memoryLedgerTx {
	tx := &memoryLedgerTx{
		entries:  make(map[string]*Entry),
		lines:    make(map[int64][]EntryLine),
		accounts: make(map[string]int64),
		journals: make(map[string]Journal),
	}
	for i, code := range []string{JournalSales, JournalPurchases, JournalCash, JournalBank} {
		tx.journals[code] = Journal{ID: int64(i + 1), Code: code}
	}
	return tx
}

func (t *memoryLedgerTx) mapAccount(kind finance.DocKind, method finance.SettlementMethod, slot string, accountID int64) {
	t.accounts[string(kind)+"|"+string(method)+"|"+slot] = accountID
}

func refKey(refType finance.DocKind, refID int64) string {
	return string(refType) + "#" + strconv.FormatInt(refID, 10)
}

func (t *memoryLedgerTx) FindEntryByReference(ctx context.Context, refType finance.DocKind, refID int64) (*Entry, error) {
	entry, ok := t.entries[refKey(refType, refID)]
	if !ok {
		return nil, nil
	}
	copied := *entry
	copied.Lines = t.lines[entry.ID]
	return &copied, nil
}

func (t *memoryLedgerTx) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	t.nextID++
	entry.ID = t.nextID
	stored := entry
	t.entries[refKey(entry.ReferenceType, entry.ReferenceID)] = &stored
	return entry, nil
}

func (t *memoryLedgerTx) InsertEntryLines(ctx context.Context, entryID int64, lines []EntryLine) error {
	t.lines[entryID] = append([]EntryLine(nil), lines...)
	return nil
}

func (t *memoryLedgerTx) ResolveAccount(ctx context.Context, kind finance.DocKind, method finance.SettlementMethod, slot string) (int64, error) {
	id, ok := t.accounts[string(kind)+"|"+string(method)+"|"+slot]
	if !ok {
		return 0, ErrMappingNotFound
	}
	return id, nil
}

func (t *memoryLedgerTx) GetJournalByCode(ctx context.Context, code string) (Journal, error) {
	j, ok := t.journals[code]
	if !ok {
		return Journal{}, ErrJournalNotFound
	}
	return j, nil
}

func arInvoice() documents.Document {
	return documents.Document{
		ID:             42,
		Number:         "ARI-42",
		Kind:           finance.KindARInvoice,
		BranchID:       1,
		CounterpartyID: 7,
		Subtotal:       decimal.NewFromInt(1_000_000),
		TaxAmount:      decimal.NewFromInt(100_000),
		Total:          decimal.NewFromInt(1_100_000),
	}
}

func sumDebits(lines []EntryLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Debit)
	}
	return sum
}

func sumCredits(lines []EntryLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Credit)
	}
	return sum
}

func TestPostARInvoice(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryLedgerTx()
	tx.mapAccount(finance.KindARInvoice, "", SlotReceivable, 1200)
	tx.mapAccount(finance.KindARInvoice, "", SlotRevenue, 4100)
	tx.mapAccount(finance.KindARInvoice, "", SlotTax, 2200)

	poster := NewPoster()
	poster.WithNow(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) })

	entry, err := poster.Post(ctx, tx, arInvoice())
	require.NoError(t, err)
	require.Equal(t, finance.KindARInvoice, entry.ReferenceType)
	require.Equal(t, int64(42), entry.ReferenceID)
	require.Equal(t, EntryStatusPosted, entry.Status)
	require.Len(t, entry.Lines, 3)

	require.True(t, sumDebits(entry.Lines).Equal(sumCredits(entry.Lines)))
	require.True(t, entry.Lines[0].Debit.Equal(decimal.NewFromInt(1_100_000)))
	require.Equal(t, int64(7), *entry.Lines[0].CounterpartyID)
	require.True(t, entry.Lines[1].Credit.Equal(decimal.NewFromInt(1_000_000)))
	require.True(t, entry.Lines[2].Credit.Equal(decimal.NewFromInt(100_000)))
}

func TestPostIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryLedgerTx()
	tx.mapAccount(finance.KindARInvoice, "", SlotReceivable, 1200)
	tx.mapAccount(finance.KindARInvoice, "", SlotRevenue, 4100)
	tx.mapAccount(finance.KindARInvoice, "", SlotTax, 2200)

	poster := NewPoster()
	first, err := poster.Post(ctx, tx, arInvoice())
	require.NoError(t, err)
	second, err := poster.Post(ctx, tx, arInvoice())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, tx.entries, 1)
}

func TestPostReceiptUsesSettlementMethodJournal(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryLedgerTx()
	tx.mapAccount(finance.KindARReceipt, finance.SettleBank, SlotSettlement, 1110)
	tx.mapAccount(finance.KindARReceipt, finance.SettleBank, SlotReceivable, 1200)

	receipt := documents.Document{
		ID:             9,
		Number:         "ARR-9",
		Kind:           finance.KindARReceipt,
		CounterpartyID: 7,
		Subtotal:       decimal.NewFromInt(600_000),
		Total:          decimal.NewFromInt(600_000),
		Method:         finance.SettleBank,
	}

	entry, err := NewPoster().Post(ctx, tx, receipt)
	require.NoError(t, err)
	require.Equal(t, tx.journals[JournalBank].ID, entry.JournalID)
	require.Len(t, entry.Lines, 2)
	require.True(t, entry.Lines[0].Debit.Equal(receipt.Total))
	require.True(t, entry.Lines[1].Credit.Equal(receipt.Total))
	require.Equal(t, int64(7), *entry.Lines[1].CounterpartyID)
}

func TestPostAPInvoiceMirrorsSalesSide(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryLedgerTx()
	tx.mapAccount(finance.KindAPInvoice, "", SlotPayable, 2100)
	tx.mapAccount(finance.KindAPInvoice, "", SlotExpense, 5100)
	tx.mapAccount(finance.KindAPInvoice, "", SlotTax, 1300)

	doc := arInvoice()
	doc.Kind = finance.KindAPInvoice
	entry, err := NewPoster().Post(ctx, tx, doc)
	require.NoError(t, err)
	require.Equal(t, tx.journals[JournalPurchases].ID, entry.JournalID)
	require.True(t, sumDebits(entry.Lines).Equal(sumCredits(entry.Lines)))
	// The payable credit carries the counterparty.
	last := entry.Lines[len(entry.Lines)-1]
	require.True(t, last.Credit.Equal(doc.Total))
	require.Equal(t, int64(7), *last.CounterpartyID)
}

func TestPostMissingMapping(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryLedgerTx()
	tx.mapAccount(finance.KindARInvoice, "", SlotReceivable, 1200)
	// revenue mapping deliberately absent

	_, err := NewPoster().Post(ctx, tx, arInvoice())
	var missing *finance.MissingAccountError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, SlotRevenue, missing.Slot)
	require.Empty(t, tx.entries)
}

func TestPostZeroAmount(t *testing.T) {
	ctx := context.Background()
	tx := newMemoryLedgerTx()
	doc := arInvoice()
	doc.Subtotal = decimal.Zero
	doc.TaxAmount = decimal.Zero
	doc.Total = decimal.Zero

	_, err := NewPoster().Post(ctx, tx, doc)
	var zero *finance.ZeroAmountError
	require.ErrorAs(t, err, &zero)
}

func TestEntryBalanced(t *testing.T) {
	entry := Entry{Lines: []EntryLine{
		{Debit: decimal.NewFromInt(100)},
		{Credit: decimal.NewFromInt(60)},
		{Credit: decimal.NewFromInt(40)},
	}}
	require.True(t, entry.Balanced())

	entry.Lines[2].Credit = decimal.NewFromInt(41)
	require.False(t, entry.Balanced())
}
