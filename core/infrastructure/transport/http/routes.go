package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chenhy0213/test-tool-with-db/core/engine"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/transport/http/dto"
)

// EngineProvider resolves the engine serving the current configuration.
// Reloads swap the engine out from under the server, so handlers look it
// up per request instead of capturing it at registration time.
type EngineProvider func() *engine.Engine

// ReloadFunc rebuilds the runtime from configuration and returns the
// number of templates the new engine serves.
type ReloadFunc func(ctx context.Context) (int, error)

// RegisterRoutes registers all HTTP routes
func RegisterRoutes(r *chi.Mux, engines EngineProvider, queryTimeout time.Duration, reload ReloadFunc) {
	log := logging.New("Routes")
	log.Infof("Registering HTTP routes")

	var utilityRoutes []string

	// Heartbeat endpoint for health checks
	r.Get("/heartbeat", handleHeartbeat(engines))
	utilityRoutes = append(utilityRoutes, "GET /heartbeat")

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	utilityRoutes = append(utilityRoutes, "GET /metrics")

	// Template catalog endpoints
	r.Get("/templates", handleListTemplates(engines))
	utilityRoutes = append(utilityRoutes, "GET /templates")
	r.Get("/templates/{name}", handleTemplateDetail(engines))
	utilityRoutes = append(utilityRoutes, "GET /templates/{name}")

	// Execution endpoint; the template name is a URL parameter so the
	// route survives configuration reloads.
	r.Post("/query/{name}", handleQuery(engines, queryTimeout))
	utilityRoutes = append(utilityRoutes, "POST /query/{name}")

	if reload != nil {
		r.Post("/reload", handleReload(reload))
		utilityRoutes = append(utilityRoutes, "POST /reload")
	}

	log.Infof("Routes registered: %d", len(utilityRoutes))
	log.Debugf("Routes:")
	for _, route := range utilityRoutes {
		log.Debugf("  %s", route)
	}
	if lib := engines().Library(); lib != nil {
		log.Debugf("Templates served: %d", lib.Len())
		for _, tpl := range lib.All() {
			log.Debugf("  POST /query/%s", tpl.Name)
		}
	}
}

// handleHeartbeat reports liveness and the session state. A dead database
// does not fail the probe; the query endpoints report that per request.
func handleHeartbeat(engines EngineProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		database := "connected"
		if err := engines().Session().Ping(r.Context()); err != nil {
			database = "disconnected"
		}
		writeJSON(w, http.StatusOK, dto.HealthResponse{
			Success:  true,
			Database: database,
		})
	}
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeErrorResponse returns an error in the documented envelope shape.
func writeErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	writeJSON(w, statusCode, dto.ErrorResponse{
		Success: false,
		Error:   errorMsg,
		Results: []any{},
	})
}
