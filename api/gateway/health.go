package gateway

import (
	"net/http"

	"github.com/pareto-space/pareto-bridge/relay/pool"
)

const healthEndpoint = "/status/health"

const (
	healthOK          = "ok"
	healthUnavailable = "unavailable"
)

type healthResponse struct {
	Status string `json:"status"`
	Relays int    `json:"relays"`
	Ready  int    `json:"ready"`
}

// handleHealthRequest reports the bridge unavailable while relays are configured but none of
// them is ready, since no request can be served then.
func (h *Handler) handleHealthRequest(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: healthOK}
	for _, st := range h.pool.Status() {
		resp.Relays++
		if st.Status == pool.StatusReady.String() {
			resp.Ready++
		}
	}
	if resp.Relays > 0 && resp.Ready == 0 {
		resp.Status = healthUnavailable
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, healthEndpoint, resp)
}
