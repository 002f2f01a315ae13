package gateway

import (
	"fmt"
	"net/http"
)

func (h *Handler) RegisterEndpoints(srv *Server) {
	srv.RegisterHandlerFunc(healthEndpoint, h.handleHealthRequest, http.MethodGet)
	srv.RegisterHandlerFunc(metricsEndpoint, metricsHandler.ServeHTTP, http.MethodGet)

	// relay endpoints
	srv.RegisterHandlerFunc(relaysEndpoint, h.handleRelaysRequest, http.MethodGet)

	// event cache endpoints
	srv.RegisterHandlerFunc(fmt.Sprintf("%s/{%s}", eventsEndpoint, idKey), h.handleEventRequest, http.MethodGet)
	srv.RegisterHandlerFunc(eventsEndpoint, h.handleQueryEvents, http.MethodPost)

	if h.open != nil {
		srv.RegisterHandlerFunc(bridgeEndpoint, h.handleBridge, http.MethodGet)
	}
}
