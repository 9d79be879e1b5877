package workflow

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository is the pgx-backed RepositoryPort. Transitions run inside a
// RepeatableRead transaction; the tx-bound repositories for documents and
// the ledger are handed to the engine through txRepository.
type Repository struct {
	pool      *pgxpool.Pool
	documents *documents.Repository
	ledger    *ledger.Repository
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:      pool,
		documents: documents.NewRepository(pool),
		ledger:    ledger.NewRepository(pool),
	}
}

// WithTx runs fn inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{
			tx:        tx,
			documents: r.documents.WithQuerier(tx),
			ledger:    r.ledger.WithQuerier(tx),
		})
	})
}

// GetDocument loads a document header outside any transaction.
func (r *Repository) GetDocument(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error) {
	return r.documents.Get(ctx, kind, id)
}

// ListApprovalLogs returns the approval trail for a document, oldest first.
func (r *Repository) ListApprovalLogs(ctx context.Context, kind finance.DocKind, id int64) ([]ApprovalLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, reference_type, reference_id, actor_id, action, COALESCE(note, ''), created_at
FROM approvals WHERE reference_type=$1 AND reference_id=$2 ORDER BY id`, kind, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ApprovalLog
	for rows.Next() {
		var l ApprovalLog
		if err := rows.Scan(&l.ID, &l.Kind, &l.RefID, &l.ActorID, &l.Action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type txRepository struct {
	tx        pgx.Tx
	documents *documents.Repository
	ledger    *ledger.Repository
}

func (t *txRepository) GetDocumentForUpdate(ctx context.Context, kind finance.DocKind, id int64) (documents.Document, error) {
	return t.documents.GetForUpdate(ctx, kind, id)
}

func (t *txRepository) ApplyApproval(ctx context.Context, kind finance.DocKind, id int64, patch documents.ApprovalPatch) error {
	return t.documents.ApplyApproval(ctx, kind, id, patch)
}

func (t *txRepository) InsertApprovalLog(ctx context.Context, log ApprovalLog) error {
	at := log.At
	if at.IsZero() {
		at = time.Now()
	}
	var note *string
	if log.Note != "" {
		note = &log.Note
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO approvals (reference_type, reference_id, actor_id, action, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`, log.Kind, log.RefID, log.ActorID, log.Action, note, at)
	return err
}

func (t *txRepository) Ledger() ledger.TxRepository {
	return t.ledger
}
