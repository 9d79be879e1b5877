package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// TxRepository is the transactional ledger access the posting engine needs.
// The caller owns the surrounding transaction; the engine never commits.
type TxRepository interface {
	FindEntryByReference(ctx context.Context, refType finance.DocKind, refID int64) (*Entry, error)
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
	InsertEntryLines(ctx context.Context, entryID int64, lines []EntryLine) error
	ResolveAccount(ctx context.Context, kind finance.DocKind, method finance.SettlementMethod, slot string) (int64, error)
	GetJournalByCode(ctx context.Context, code string) (Journal, error)
}

// Poster converts approved documents into balanced ledger entries.
type Poster struct {
	now func() time.Time
}

// NewPoster constructs the posting engine.
func NewPoster() *Poster {
	return &Poster{now: time.Now}
}

// WithNow overrides the clock for testing.
func (p *Poster) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Post writes the ledger entry for an approved document. Posting is
// idempotent per (reference_type, reference_id): an existing entry is
// returned unchanged instead of duplicated.
func (p *Poster) Post(ctx context.Context, tx TxRepository, doc documents.Document) (Entry, error) {
	if doc.Total.Sign() <= 0 {
		return Entry{}, &finance.ZeroAmountError{Kind: doc.Kind, ID: doc.ID}
	}

	existing, err := tx.FindEntryByReference(ctx, doc.Kind, doc.ID)
	if err != nil {
		return Entry{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	journal, err := tx.GetJournalByCode(ctx, journalFor(doc))
	if err != nil {
		return Entry{}, err
	}
	lines, err := p.buildLines(ctx, tx, doc)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		JournalID:     journal.ID,
		EntryDate:     p.now(),
		ReferenceType: doc.Kind,
		ReferenceID:   doc.ID,
		Memo:          fmt.Sprintf("%s %s", doc.Kind, doc.Number),
		Status:        EntryStatusPosted,
		Lines:         lines,
	}
	if !entry.Balanced() {
		return Entry{}, ErrUnbalanced
	}

	inserted, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	if err := tx.InsertEntryLines(ctx, inserted.ID, lines); err != nil {
		return Entry{}, err
	}
	inserted.Lines = lines
	return inserted, nil
}

func journalFor(doc documents.Document) string {
	switch doc.Kind {
	case finance.KindSalesOrder, finance.KindARInvoice:
		return JournalSales
	case finance.KindPurchaseOrder, finance.KindAPInvoice:
		return JournalPurchases
	case finance.KindARReceipt, finance.KindAPPayment:
		if doc.Method == finance.SettleBank {
			return JournalBank
		}
		return JournalCash
	}
	return JournalSales
}

func (p *Poster) buildLines(ctx context.Context, tx TxRepository, doc documents.Document) ([]EntryLine, error) {
	counterparty := doc.CounterpartyID
	resolve := func(slot string) (int64, error) {
		method := finance.SettlementMethod("")
		if doc.Kind.Settleable() {
			method = doc.Method
		}
		id, err := tx.ResolveAccount(ctx, doc.Kind, method, slot)
		if err != nil {
			if err == ErrMappingNotFound {
				return 0, &finance.MissingAccountError{Kind: doc.Kind, Method: method, Slot: slot}
			}
			return 0, err
		}
		return id, nil
	}
	debit := func(accountID int64, amount decimal.Decimal, withParty bool) EntryLine {
		line := EntryLine{AccountID: accountID, Debit: amount}
		if withParty {
			line.CounterpartyID = &counterparty
		}
		return line
	}
	credit := func(accountID int64, amount decimal.Decimal, withParty bool) EntryLine {
		line := EntryLine{AccountID: accountID, Credit: amount}
		if withParty {
			line.CounterpartyID = &counterparty
		}
		return line
	}

	switch doc.Kind {
	case finance.KindARInvoice:
		receivable, err := resolve(SlotReceivable)
		if err != nil {
			return nil, err
		}
		revenue, err := resolve(SlotRevenue)
		if err != nil {
			return nil, err
		}
		lines := []EntryLine{
			debit(receivable, doc.Total, true),
			credit(revenue, doc.Subtotal, false),
		}
		if doc.TaxAmount.Sign() > 0 {
			tax, err := resolve(SlotTax)
			if err != nil {
				return nil, err
			}
			lines = append(lines, credit(tax, doc.TaxAmount, false))
		}
		return lines, nil

	case finance.KindAPInvoice:
		payable, err := resolve(SlotPayable)
		if err != nil {
			return nil, err
		}
		expense, err := resolve(SlotExpense)
		if err != nil {
			return nil, err
		}
		lines := []EntryLine{
			debit(expense, doc.Subtotal, false),
		}
		if doc.TaxAmount.Sign() > 0 {
			tax, err := resolve(SlotTax)
			if err != nil {
				return nil, err
			}
			lines = append(lines, debit(tax, doc.TaxAmount, false))
		}
		return append(lines, credit(payable, doc.Total, true)), nil

	case finance.KindARReceipt:
		settlement, err := resolve(SlotSettlement)
		if err != nil {
			return nil, err
		}
		receivable, err := resolve(SlotReceivable)
		if err != nil {
			return nil, err
		}
		return []EntryLine{
			debit(settlement, doc.Total, false),
			credit(receivable, doc.Total, true),
		}, nil

	case finance.KindAPPayment:
		payable, err := resolve(SlotPayable)
		if err != nil {
			return nil, err
		}
		settlement, err := resolve(SlotSettlement)
		if err != nil {
			return nil, err
		}
		return []EntryLine{
			debit(payable, doc.Total, true),
			credit(settlement, doc.Total, false),
		}, nil

	case finance.KindSalesOrder:
		control, err := resolve(SlotControl)
		if err != nil {
			return nil, err
		}
		commitment, err := resolve(SlotCommitment)
		if err != nil {
			return nil, err
		}
		return []EntryLine{
			debit(control, doc.Total, true),
			credit(commitment, doc.Total, false),
		}, nil

	case finance.KindPurchaseOrder:
		control, err := resolve(SlotControl)
		if err != nil {
			return nil, err
		}
		commitment, err := resolve(SlotCommitment)
		if err != nil {
			return nil, err
		}
		return []EntryLine{
			debit(commitment, doc.Total, false),
			credit(control, doc.Total, true),
		}, nil
	}
	return nil, fmt.Errorf("ledger: no posting rule for kind %q", doc.Kind)
}
