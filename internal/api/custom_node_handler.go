package api

import (
	"fmt"
	"net/http"

	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/versioning"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// CreateCustomNode создаёт пользовательскую ноду в статусе draft.
// POST /api/v1/custom-nodes
func (h *Handler) CreateCustomNode(w http.ResponseWriter, r *http.Request) {
	if h.customNodes == nil {
		Unavailable(w, "custom nodes storage is not configured")
		return
	}

	var req CreateCustomNodeRequest
	if err := xjson.Decode(r.Body, &req); err != nil {
		BadRequest(w, "invalid JSON")
		return
	}
	if errs := node.CheckStruct(req); len(errs) > 0 {
		ValidationFailed(w, errs)
		return
	}
	for _, v := range req.versions() {
		if !versioning.IsSemver(v) {
			BadRequest(w, "invalid version: "+v)
			return
		}
	}

	n := req.ToDomain()
	if err := h.customNodes.Create(r.Context(), n); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("custom node created", "id", n.ID, "slug", n.Key())
	Created(w, CustomNodeFromDomain(n, h.versions))
}

// GetCustomNode возвращает пользовательскую ноду по slug.
// GET /api/v1/custom-nodes/{slug}
func (h *Handler) GetCustomNode(w http.ResponseWriter, r *http.Request) {
	if h.customNodes == nil {
		Unavailable(w, "custom nodes storage is not configured")
		return
	}

	n, err := h.customNodes.GetBySlug(r.Context(), r.PathValue("slug"))
	if HandleRepoError(w, h.logger, err, "custom node not found") {
		return
	}

	vctx, err := h.versionContext(r.URL.Query().Get("sdkVersion"), r.URL.Query().Get("appVersion"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	Success(w, CustomNodeFromDomain(n, vctx))
}

// UpdateCustomNodeStatus переводит ноду по жизненному циклу модерации.
// Недопустимый переход — 422.
// PUT /api/v1/custom-nodes/{slug}/status
func (h *Handler) UpdateCustomNodeStatus(w http.ResponseWriter, r *http.Request) {
	if h.customNodes == nil {
		Unavailable(w, "custom nodes storage is not configured")
		return
	}

	var req UpdateCustomNodeStatusRequest
	if err := xjson.Decode(r.Body, &req); err != nil {
		BadRequest(w, "invalid JSON")
		return
	}
	if errs := node.CheckStruct(req); len(errs) > 0 {
		ValidationFailed(w, errs)
		return
	}
	if !req.Status.IsValid() {
		BadRequest(w, "unknown status: "+string(req.Status))
		return
	}

	n, err := h.customNodes.GetBySlug(r.Context(), r.PathValue("slug"))
	if HandleRepoError(w, h.logger, err, "custom node not found") {
		return
	}

	if !n.Status.CanTransitionTo(req.Status) {
		InvalidState(w, fmt.Sprintf("cannot move custom node from %s to %s", n.Status, req.Status))
		return
	}

	err = h.customNodes.UpdateStatus(r.Context(), n.ID, req.Status)
	if HandleRepoError(w, h.logger, err, "custom node not found") {
		return
	}

	h.logger.Info("custom node status changed", "slug", n.Key(), "from", n.Status, "to", req.Status)

	// Перечитываем запись: published_at выставляет хранилище.
	n, err = h.customNodes.GetBySlug(r.Context(), r.PathValue("slug"))
	if HandleRepoError(w, h.logger, err, "custom node not found") {
		return
	}
	Success(w, CustomNodeFromDomain(n, h.versions))
}
