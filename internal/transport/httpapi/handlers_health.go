package httpapi

import (
	"context"
	"net/http"
	"time"
)

// healthResponse is the body of GET /health, per spec.md §6.
type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

const healthCheckTimeout = 2 * time.Second

// Health handles GET /health: a liveness probe over the three components
// spec.md §6 names -- the symbol index, the keyed store behind the Ranking
// Store, and the prediction engine (reported healthy once the store it
// depends on is reachable, since it has no connection of its own).
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := map[string]string{
		"index": "ok",
	}

	storeStatus := "ok"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unavailable"
	}
	components["store"] = storeStatus
	components["predictor"] = storeStatus

	status := "ok"
	for _, v := range components {
		if v != "ok" {
			status = "degraded"
			break
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: status, Components: components})
}
