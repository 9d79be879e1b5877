// Package ledger owns the general ledger: accounts, journals, entries and
// their lines, plus the posting engine that turns approved documents into
// balanced entries.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account models a chart of accounts node. Accounts are read-only
// reference data for the posting engine.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Journal is a named posting bucket.
type Journal struct {
	ID   int64
	Code string
	Name string
}

// Journal codes used by the posting engine.
const (
	JournalSales     = "SALES"
	JournalPurchases = "PURCHASES"
	JournalCash      = "CASH"
	JournalBank      = "BANK"
)

// EntryStatus enumerates ledger entry states.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
)

// Entry is one posting event. Entries are append-only: once written they
// are never mutated.
type Entry struct {
	ID            int64
	JournalID     int64
	EntryDate     time.Time
	ReferenceType finance.DocKind
	ReferenceID   int64
	Memo          string
	Status        EntryStatus
	CreatedAt     time.Time
	Lines         []EntryLine
}

// EntryLine stores a debit or credit amount for an account.
type EntryLine struct {
	ID             int64
	EntryID        int64
	AccountID      int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	CounterpartyID *int64
}

// Mapping slots resolved through the account-mapping table. Receivable and
// payable control accounts, the revenue/expense counterpart, the tax
// accounts, the cash-or-bank settlement account, and the order commitment
// pair used when confirming sales and purchase orders.
const (
	SlotReceivable = "receivable"
	SlotPayable    = "payable"
	SlotRevenue    = "revenue"
	SlotExpense    = "expense"
	SlotTax        = "tax"
	SlotSettlement = "settlement"
	SlotControl    = "control"
	SlotCommitment = "commitment"
)

// AccountMapping resolves (kind, settlement method, slot) to an account.
type AccountMapping struct {
	Kind      finance.DocKind
	Method    finance.SettlementMethod
	Slot      string
	AccountID int64
}

var (
	// ErrMappingNotFound indicates a configuration gap in account mappings.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
	// ErrJournalNotFound indicates a missing journal bucket.
	ErrJournalNotFound = errors.New("ledger: journal not found")
	// ErrUnbalanced indicates derived lines that do not balance. This is an
	// internal invariant failure, never a caller error.
	ErrUnbalanced = errors.New("ledger: entry lines do not balance")
)

// Balanced reports whether the entry's lines satisfy Σdebit == Σcredit.
func (e Entry) Balanced() bool {
	var debit, credit decimal.Decimal
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit.Equal(credit)
}
