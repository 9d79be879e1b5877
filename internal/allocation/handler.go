package allocation

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler serves the allocation endpoints for receipts and payments.
type Handler struct {
	engine   *Engine
	validate *validator.Validate
}

// NewHandler constructs the allocation handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine, validate: validator.New()}
}

// Mount registers the routes on a router already scoped to
// /documents/{kind}. Non-settleable kinds get a 400 from SideFor.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/{id}/available", h.available)
	r.Get("/{id}/unpaid-invoices", h.unpaidInvoices)
	r.Post("/{id}/allocate", h.allocate)
}

type allocateRequest struct {
	Requests []Request `json:"requests" validate:"required,min=1,dive"`
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := allocationScope(w, r)
	if !ok {
		return
	}
	available, err := h.engine.Available(r.Context(), kind, id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"source_id": id, "available": available})
}

func (h *Handler) unpaidInvoices(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := allocationScope(w, r)
	if !ok {
		return
	}
	invoices, err := h.engine.UnpaidInvoices(r.Context(), kind, id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []UnpaidInvoice{}
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := allocationScope(w, r)
	if !ok {
		return
	}
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.engine.Allocate(r.Context(), kind, id, req.Requests, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func allocationScope(w http.ResponseWriter, r *http.Request) (finance.DocKind, int64, identity.Actor, bool) {
	kind, ok := finance.KindFromSlug(chi.URLParam(r, "kind"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown document kind")
		return "", 0, identity.Actor{}, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "id must be a positive integer")
		return "", 0, identity.Actor{}, false
	}
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return "", 0, identity.Actor{}, false
	}
	return kind, id, actor, true
}
