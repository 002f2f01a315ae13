package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pareto-space/pareto-bridge/eventstore"
	"github.com/pareto-space/pareto-bridge/nostr"
)

const (
	eventsEndpoint = "/events"

	// maxQuerySize bounds the body of a query request.
	maxQuerySize = 1 << 16
)

var idKey = "id"

func (h *Handler) handleEventRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[idKey]
	ev, err := h.events.Get(r.Context(), id)
	switch {
	case errors.Is(err, eventstore.ErrNotFound):
		writeError(w, http.StatusNotFound, eventsEndpoint, fmt.Errorf("event %s not found", id))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, eventsEndpoint, err)
		return
	}
	writeJSON(w, eventsEndpoint, ev)
}

// handleQueryEvents matches the cached events against the filters in the request body. The body
// holds a single filter or a list of filters.
func (h *Handler) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuerySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, eventsEndpoint, err)
		return
	}
	filters, err := decodeFilters(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, eventsEndpoint, err)
		return
	}

	events, err := h.events.Query(r.Context(), filters)
	if err != nil {
		writeError(w, http.StatusInternalServerError, eventsEndpoint, err)
		return
	}
	if events == nil {
		events = []*nostr.Event{}
	}
	writeJSON(w, eventsEndpoint, events)
}

func decodeFilters(body []byte) (nostr.Filters, error) {
	var filters nostr.Filters
	if err := json.Unmarshal(body, &filters); err == nil {
		return filters, nil
	}
	var filter nostr.Filter
	if err := json.Unmarshal(body, &filter); err != nil {
		return nil, fmt.Errorf("decoding filters: %w", err)
	}
	return nostr.Filters{filter}, nil
}
