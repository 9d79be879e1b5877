package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler serves the read-only ledger endpoints: the chart of accounts and
// the entry posted for a given document.
type Handler struct {
	repo       *Repository
	chartGroup singleflight.Group
}

// NewHandler constructs the ledger handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Mount registers the routes on the authenticated API router.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/accounts", h.accounts)
		r.Get("/mappings", h.mappings)
		r.Get("/entries", h.entryByReference)
	})
}

type accountView struct {
	ID       int64       `json:"id"`
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	IsActive bool        `json:"is_active"`
}

type mappingView struct {
	Kind      string `json:"kind"`
	Method    string `json:"method,omitempty"`
	Slot      string `json:"slot"`
	AccountID int64  `json:"account_id"`
}

func mappingViews(mappings []AccountMapping) []mappingView {
	views := make([]mappingView, 0, len(mappings))
	for _, m := range mappings {
		views = append(views, mappingView{
			Kind:      m.Kind.Slug(),
			Method:    string(m.Method),
			Slot:      m.Slot,
			AccountID: m.AccountID,
		})
	}
	return views
}

type entryLineView struct {
	ID             int64           `json:"id"`
	AccountID      int64           `json:"account_id"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	CounterpartyID *int64          `json:"counterparty_id,omitempty"`
}

type entryView struct {
	ID            int64           `json:"id"`
	JournalID     int64           `json:"journal_id"`
	EntryDate     time.Time       `json:"entry_date"`
	ReferenceType finance.DocKind `json:"reference_type"`
	ReferenceID   int64           `json:"reference_id"`
	Memo          string          `json:"memo"`
	Status        EntryStatus     `json:"status"`
	Lines         []entryLineView `json:"lines"`
}

// accounts serves the chart of accounts. Concurrent identical reads are
// collapsed into one query; the chart changes rarely but is fetched by
// every posting review screen.
func (h *Handler) accounts(w http.ResponseWriter, r *http.Request) {
	result, err, _ := h.chartGroup.Do("chart", func() (any, error) {
		accounts, err := h.repo.ListAccounts(r.Context())
		if err != nil {
			return nil, err
		}
		views := make([]accountView, 0, len(accounts))
		for _, a := range accounts {
			views = append(views, accountView{ID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, IsActive: a.IsActive})
		}
		return views, nil
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// mappings serves the posting configuration, read-only reference data.
func (h *Handler) mappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.repo.ListMappings(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mappingViews(mappings))
}

func (h *Handler) entryByReference(w http.ResponseWriter, r *http.Request) {
	kind, ok := finance.KindFromSlug(r.URL.Query().Get("reference_type"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "reference_type must name a document kind")
		return
	}
	refID, err := strconv.ParseInt(r.URL.Query().Get("reference_id"), 10, 64)
	if err != nil || refID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "reference_id must be a positive integer")
		return
	}
	entry, err := h.repo.FindEntryByReference(r.Context(), kind, refID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if entry == nil {
		httpx.RespondError(w, &finance.NotFoundError{Entity: "ledger entry", ID: refID})
		return
	}
	view := entryView{
		ID:            entry.ID,
		JournalID:     entry.JournalID,
		EntryDate:     entry.EntryDate,
		ReferenceType: entry.ReferenceType,
		ReferenceID:   entry.ReferenceID,
		Memo:          entry.Memo,
		Status:        entry.Status,
	}
	for _, line := range entry.Lines {
		view.Lines = append(view.Lines, entryLineView{
			ID:             line.ID,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			CounterpartyID: line.CounterpartyID,
		})
	}
	httpx.JSON(w, http.StatusOK, view)
}
