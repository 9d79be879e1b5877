package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists ledger entities. Bind it to a transaction with
// WithQuerier when posting inside a workflow transition.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// WithQuerier returns a Repository bound to a different querier.
func (r *Repository) WithQuerier(q db.Querier) *Repository {
	return &Repository{q: q}
}

// FindEntryByReference returns the entry posted for the given document, or
// nil when none exists.
func (r *Repository) FindEntryByReference(ctx context.Context, refType finance.DocKind, refID int64) (*Entry, error) {
	var e Entry
	err := r.q.QueryRow(ctx, `SELECT id, journal_id, entry_date, reference_type, reference_id, memo, status, created_at
FROM gl_entries WHERE reference_type=$1 AND reference_id=$2`, refType, refID).
		Scan(&e.ID, &e.JournalID, &e.EntryDate, &e.ReferenceType, &e.ReferenceID, &e.Memo, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	lines, err := r.listLines(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.Lines = lines
	return &e, nil
}

// InsertEntry writes the entry header. The unique constraint on
// (reference_type, reference_id) backs the posting idempotency check; a
// concurrent duplicate surfaces as the already-posted entry.
func (r *Repository) InsertEntry(ctx context.Context, entry Entry) (Entry, error) {
	row := r.q.QueryRow(ctx, `INSERT INTO gl_entries (journal_id, entry_date, reference_type, reference_id, memo, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		entry.JournalID, entry.EntryDate, entry.ReferenceType, entry.ReferenceID, entry.Memo, entry.Status)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_gl_entries_reference" {
			existing, ferr := r.FindEntryByReference(ctx, entry.ReferenceType, entry.ReferenceID)
			if ferr == nil && existing != nil {
				return *existing, nil
			}
		}
		return Entry{}, err
	}
	return entry, nil
}

// InsertEntryLines writes the lines of an entry.
func (r *Repository) InsertEntryLines(ctx context.Context, entryID int64, lines []EntryLine) error {
	for _, line := range lines {
		if _, err := r.q.Exec(ctx, `INSERT INTO gl_entry_lines (entry_id, account_id, debit, credit, counterparty_id)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, line.Debit, line.Credit, line.CounterpartyID); err != nil {
			return err
		}
	}
	return nil
}

// ResolveAccount looks up the mapped account for (kind, method, slot).
func (r *Repository) ResolveAccount(ctx context.Context, kind finance.DocKind, method finance.SettlementMethod, slot string) (int64, error) {
	var accountID int64
	err := r.q.QueryRow(ctx, `SELECT m.account_id FROM gl_account_mappings m
JOIN gl_accounts a ON a.id = m.account_id AND a.is_active
WHERE m.kind=$1 AND m.method=$2 AND m.slot=$3`, kind, string(method), slot).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrMappingNotFound
		}
		return 0, err
	}
	return accountID, nil
}

// ListMappings returns the full posting configuration, ordered for review.
func (r *Repository) ListMappings(ctx context.Context) ([]AccountMapping, error) {
	rows, err := r.q.Query(ctx, `SELECT kind, method, slot, account_id FROM gl_account_mappings
ORDER BY kind, method, slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []AccountMapping
	for rows.Next() {
		var m AccountMapping
		var method string
		if err := rows.Scan(&m.Kind, &method, &m.Slot, &m.AccountID); err != nil {
			return nil, err
		}
		m.Method = finance.SettlementMethod(method)
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// GetJournalByCode returns a journal bucket by code.
func (r *Repository) GetJournalByCode(ctx context.Context, code string) (Journal, error) {
	var j Journal
	err := r.q.QueryRow(ctx, `SELECT id, code, name FROM gl_journals WHERE code=$1`, code).
		Scan(&j.ID, &j.Code, &j.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, ErrJournalNotFound
		}
		return Journal{}, err
	}
	return j, nil
}

// ListAccounts retrieves the chart of accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.q.Query(ctx, `SELECT id, code, name, type, is_active, created_at, updated_at
FROM gl_accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UnbalancedEntryIDs returns ids of entries whose lines fail the
// Σdebit == Σcredit invariant. Used by the integrity job; an empty result
// is the only healthy answer.
func (r *Repository) UnbalancedEntryIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT entry_id FROM gl_entry_lines
GROUP BY entry_id HAVING SUM(debit) <> SUM(credit)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) listLines(ctx context.Context, entryID int64) ([]EntryLine, error) {
	rows, err := r.q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, counterparty_id
FROM gl_entry_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []EntryLine
	for rows.Next() {
		var line EntryLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.CounterpartyID); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
