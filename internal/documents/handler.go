package documents

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// View is the JSON shape of a document header.
type View struct {
	ID             int64                    `json:"id"`
	Number         string                   `json:"number"`
	Kind           finance.DocKind          `json:"kind"`
	BranchID       int64                    `json:"branch_id"`
	CounterpartyID int64                    `json:"counterparty_id"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	TaxAmount      decimal.Decimal          `json:"tax_amount"`
	Total          decimal.Decimal          `json:"total"`
	Method         finance.SettlementMethod `json:"method,omitempty"`
	ApprovalStatus finance.ApprovalStatus   `json:"approval_status"`
	Status         finance.DocStatus        `json:"status"`
	CreatedBy      int64                    `json:"created_by"`
	ApprovedBy     *int64                   `json:"approved_by,omitempty"`
	SubmittedAt    *time.Time               `json:"submitted_at,omitempty"`
	ApprovedAt     *time.Time               `json:"approved_at,omitempty"`
	RejectReason   *string                  `json:"reject_reason,omitempty"`
	CancelReason   *string                  `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewView converts a document to its JSON shape.
func NewView(d Document) View {
	return View{
		ID:             d.ID,
		Number:         d.Number,
		Kind:           d.Kind,
		BranchID:       d.BranchID,
		CounterpartyID: d.CounterpartyID,
		Subtotal:       d.Subtotal,
		TaxAmount:      d.TaxAmount,
		Total:          d.Total,
		Method:         d.Method,
		ApprovalStatus: d.ApprovalStatus,
		Status:         d.Status,
		CreatedBy:      d.CreatedBy,
		ApprovedBy:     d.ApprovedBy,
		SubmittedAt:    d.SubmittedAt,
		ApprovedAt:     d.ApprovedAt,
		RejectReason:   d.RejectReason,
		CancelReason:   d.CancelReason,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// Handler serves the draft CRUD endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler constructs the document handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Mount registers the routes on a router already scoped to
// /documents/{kind}.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createRequest struct {
	Number         string          `json:"number"`
	CounterpartyID int64           `json:"counterparty_id" validate:"required"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total" validate:"required"`
	Method         string          `json:"method,omitempty" validate:"omitempty,oneof=CASH BANK_TRANSFER"`
}

type updateRequest struct {
	CounterpartyID *int64           `json:"counterparty_id,omitempty"`
	Subtotal       *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`
	Method         *string          `json:"method,omitempty" validate:"omitempty,oneof=CASH BANK_TRANSFER"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	kind, actor, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.svc.Create(r.Context(), CreateInput{
		Kind:           kind,
		Number:         req.Number,
		CounterpartyID: req.CounterpartyID,
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		Total:          req.Total,
		Method:         finance.SettlementMethod(req.Method),
	}, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewView(doc))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	kind, actor, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.Get(r.Context(), kind, id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(doc))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	kind, actor, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := UpdateInput{
		CounterpartyID: req.CounterpartyID,
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		Total:          req.Total,
	}
	if req.Method != nil {
		m := finance.SettlementMethod(*req.Method)
		input.Method = &m
	}
	doc, err := h.svc.Update(r.Context(), kind, id, input, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewView(doc))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	kind, actor, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), kind, id, actor); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind, actor, ok := requestScope(w, r)
	if !ok {
		return
	}
	filter := ListFilter{
		Status:         finance.DocStatus(r.URL.Query().Get("status")),
		ApprovalStatus: finance.ApprovalStatus(r.URL.Query().Get("approval_status")),
	}
	if v := r.URL.Query().Get("counterparty_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "counterparty_id must be an integer")
			return
		}
		filter.CounterpartyID = id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "limit must be an integer")
			return
		}
		filter.Limit = limit
	}
	docs, err := h.svc.List(r.Context(), kind, filter, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]View, 0, len(docs))
	for _, d := range docs {
		views = append(views, NewView(d))
	}
	httpx.JSON(w, http.StatusOK, views)
}

// requestScope resolves the document kind from the URL and the actor from
// the request context.
func requestScope(w http.ResponseWriter, r *http.Request) (finance.DocKind, identity.Actor, bool) {
	kind, ok := finance.KindFromSlug(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown document kind")
		return "", identity.Actor{}, false
	}
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return "", identity.Actor{}, false
	}
	return kind, actor, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
