package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		Metrics(h.metrics),
		RateLimit(h.rateLimit, h.logger),
	)

	mux.HandleFunc("GET /healthz", h.Health)

	// Catalog
	mux.Handle("GET /api/v1/catalog", chain(http.HandlerFunc(h.GetCatalog)))
	mux.Handle("GET /api/v1/catalog/extensions", chain(http.HandlerFunc(h.ListExtensions)))
	mux.Handle("POST /api/v1/catalog/extensions", chain(http.HandlerFunc(h.RegisterExtension)))
	mux.Handle("DELETE /api/v1/catalog/extensions/{id}", chain(http.HandlerFunc(h.UnregisterExtension)))

	// Custom nodes
	mux.Handle("POST /api/v1/custom-nodes", chain(http.HandlerFunc(h.CreateCustomNode)))
	mux.Handle("GET /api/v1/custom-nodes/{slug}", chain(http.HandlerFunc(h.GetCustomNode)))
	mux.Handle("PUT /api/v1/custom-nodes/{slug}/status", chain(http.HandlerFunc(h.UpdateCustomNodeStatus)))

	// Executors
	mux.Handle("GET /api/v1/executors", chain(http.HandlerFunc(h.ListExecutors)))
	mux.Handle("POST /api/v1/nodes/{type}/execute", chain(http.HandlerFunc(h.ExecuteNode)))
	mux.Handle("POST /api/v1/nodes/{type}/validate", chain(http.HandlerFunc(h.ValidateNode)))

	// Versions
	mux.Handle("GET /api/v1/versions/compare", chain(http.HandlerFunc(h.CompareVersions)))
	mux.Handle("POST /api/v1/versions/compatibility", chain(http.HandlerFunc(h.CheckCompatibility)))
}

// Health — проверка живости.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	Success(w, map[string]string{"status": "ok"})
}
