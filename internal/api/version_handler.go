package api

import (
	"net/http"

	"github.com/shaiso/nodeflow/internal/versioning"
	"github.com/shaiso/nodeflow/internal/xjson"
)

// CompareVersions сравнивает две версии ноды.
// GET /api/v1/versions/compare?from=1.2.0&to=1.3.0
func (h *Handler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	if !versioning.IsSemver(from) || !versioning.IsSemver(to) {
		BadRequest(w, "from and to must be semver versions")
		return
	}

	Success(w, CompareVersionsResponse{
		From:        from,
		To:          to,
		Comparison:  versioning.CompareSemver(from, to),
		UpgradeType: versioning.GetNodeUpgradeType(from, to),
		AutoUpgrade: versioning.ShouldAutoUpgrade(from, to),
	})
}

// CheckCompatibility проверяет ограничения ноды на версии окружения.
// POST /api/v1/versions/compatibility
func (h *Handler) CheckCompatibility(w http.ResponseWriter, r *http.Request) {
	var req CompatibilityRequest
	if err := xjson.Decode(r.Body, &req); err != nil {
		BadRequest(w, "invalid JSON")
		return
	}

	for _, v := range []string{req.MinSDKVersion, req.MaxSDKVersion, req.MinAppVersion, req.MaxAppVersion} {
		if v != "" && !versioning.IsSemver(v) {
			BadRequest(w, "bounds must be semver versions")
			return
		}
	}

	vctx := h.versions
	if req.Context != nil {
		vctx = *req.Context
	}
	if vctx.SDKVersion == "" {
		vctx.SDKVersion = versioning.DefaultNodeSDKVersion
	}

	Success(w, versioning.CheckNodeCompatibility(req.Bounds, vctx))
}
