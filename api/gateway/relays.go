package gateway

import (
	"net/http"

	"github.com/pareto-space/pareto-bridge/relay/dispatch"
	"github.com/pareto-space/pareto-bridge/relay/pool"
)

const relaysEndpoint = "/relays"

type relaysResponse struct {
	Relays   []pool.RelayStatus `json:"relays"`
	Dispatch dispatch.Stats     `json:"dispatch"`
}

func (h *Handler) handleRelaysRequest(w http.ResponseWriter, _ *http.Request) {
	resp := relaysResponse{Relays: h.pool.Status()}
	if h.dispatcher != nil {
		resp.Dispatch = h.dispatcher.Stats()
	}
	writeJSON(w, relaysEndpoint, resp)
}
