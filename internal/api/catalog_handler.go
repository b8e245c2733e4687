package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shaiso/nodeflow/internal/catalog"
	"github.com/shaiso/nodeflow/internal/domain"
	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/versioning"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// GetCatalog возвращает собранный каталог нод.
// GET /api/v1/catalog?includeBuiltin=&includeExtensions=&includeCustom=&sdkVersion=&appVersion=
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	includeBuiltin, err := queryBool(q.Get("includeBuiltin"), true)
	if err != nil {
		BadRequest(w, "invalid includeBuiltin")
		return
	}
	includeExtensions, err := queryBool(q.Get("includeExtensions"), true)
	if err != nil {
		BadRequest(w, "invalid includeExtensions")
		return
	}
	includeCustom, err := queryBool(q.Get("includeCustom"), true)
	if err != nil {
		BadRequest(w, "invalid includeCustom")
		return
	}

	vctx, err := h.versionContext(q.Get("sdkVersion"), q.Get("appVersion"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var custom []domain.CustomNode
	if includeCustom && h.customNodes != nil {
		custom, err = h.customNodes.ListPublished(r.Context())
		if err != nil {
			// Каталог остаётся доступным без пользовательских нод.
			h.logger.Warn("custom nodes unavailable", "error", err)
			custom = nil
		}
	}

	listing := h.catalog.Build(catalog.BuildOptions{
		ListOptions: catalog.ListOptions{
			ExcludeBuiltin:    !includeBuiltin,
			ExcludeExtensions: !includeExtensions,
		},
		CustomNodes:   custom,
		Compatibility: vctx,
	})

	Success(w, listing)
}

// ListExtensions возвращает зарегистрированные расширения.
// GET /api/v1/catalog/extensions
func (h *Handler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.List(catalog.ListOptions{ExcludeBuiltin: true})
	List(w, entries, len(entries))
}

// RegisterExtension регистрирует ноду расширения.
// POST /api/v1/catalog/extensions
func (h *Handler) RegisterExtension(w http.ResponseWriter, r *http.Request) {
	var req RegisterExtensionRequest
	if err := xjson.Decode(r.Body, &req); err != nil {
		BadRequest(w, "invalid JSON")
		return
	}

	if errs := node.CheckStruct(req); len(errs) > 0 {
		ValidationFailed(w, errs)
		return
	}
	if req.Version != "" && !versioning.IsSemver(req.Version) {
		BadRequest(w, "version must be semver")
		return
	}
	if catalog.IsBuiltin(req.ID) {
		Conflict(w, "id is reserved by a builtin node")
		return
	}

	manifest := &catalog.Manifest{Nodes: []catalog.ManifestNode{req.ToManifestNode()}}
	entry := manifest.Entries(h.versions)[0]
	if !h.catalog.Register(entry) {
		Conflict(w, "extension rejected")
		return
	}

	h.logger.Info("extension registered", "id", entry.ID)

	// Возвращаем запись в том виде, в каком её отдаст каталог.
	for _, e := range h.catalog.List(catalog.ListOptions{ExcludeBuiltin: true}) {
		if e.ID == entry.ID {
			Created(w, e)
			return
		}
	}
	Created(w, entry)
}

// UnregisterExtension удаляет ноду расширения.
// DELETE /api/v1/catalog/extensions/{id}
func (h *Handler) UnregisterExtension(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if catalog.IsBuiltin(id) {
		Conflict(w, "builtin nodes cannot be removed")
		return
	}

	h.catalog.Unregister(id)
	h.logger.Info("extension unregistered", "id", id)
	NoContent(w)
}

// versionContext объединяет версии из запроса с версиями сервера.
func (h *Handler) versionContext(sdkVersion, appVersion string) (versioning.Context, error) {
	vctx := h.versions
	if sdkVersion != "" {
		if !versioning.IsSemver(sdkVersion) {
			return vctx, errors.New("invalid sdkVersion")
		}
		vctx.SDKVersion = sdkVersion
	}
	if appVersion != "" {
		if !versioning.IsSemver(appVersion) {
			return vctx, errors.New("invalid appVersion")
		}
		vctx.AppVersion = appVersion
	}
	return vctx, nil
}

func queryBool(raw string, def bool) (bool, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}
