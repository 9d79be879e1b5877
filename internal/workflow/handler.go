package workflow

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/finance"
	"github.com/meridian-erp/meridian-erp/internal/identity"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler serves the workflow transition endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs the workflow handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Mount registers the routes on a router already scoped to
// /documents/{kind}.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/cancel", h.cancel)
	r.Get("/{id}/approvals", h.approvals)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := transitionScope(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.Submit(r.Context(), kind, id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, documents.NewView(doc))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := transitionScope(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.Approve(r.Context(), kind, id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, documents.NewView(doc))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := transitionScope(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	doc, err := h.engine.Reject(r.Context(), kind, id, actor, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, documents.NewView(doc))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := transitionScope(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
	}
	doc, err := h.engine.Cancel(r.Context(), kind, id, actor, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, documents.NewView(doc))
}

func (h *Handler) approvals(w http.ResponseWriter, r *http.Request) {
	kind, id, actor, ok := transitionScope(w, r)
	if !ok {
		return
	}
	logs, err := h.engine.Approvals(r.Context(), kind, id, actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if logs == nil {
		logs = []ApprovalLog{}
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func transitionScope(w http.ResponseWriter, r *http.Request) (finance.DocKind, int64, identity.Actor, bool) {
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
