package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pareto-space/pareto-bridge/nostr"
)

// browserCommands need a signer or a browser extension and are not served by the bridge.
var browserCommands = map[string]struct{}{
	"loginSignUp":        {},
	"loginWithExtension": {},
	"requestUser":        {},
	"requestBlossomAuth": {},
	"requestNip96Auth":   {},
}

type requestEventsValue struct {
	RequestID   int             `json:"requestId"`
	Filter      json.RawMessage `json:"filter"`
	Filters     json.RawMessage `json:"filters"`
	CloseOnEOSE bool            `json:"closeOnEose"`
	Description string          `json:"description"`
	Relays      []string        `json:"relays"`
}

// filters decodes either a single filter or a list of filters, whichever the command carries.
func (v requestEventsValue) filters() (nostr.Filters, error) {
	raw := v.Filters
	if len(raw) == 0 {
		raw = v.Filter
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("bridge: request %d carries no filter", v.RequestID)
	}

	if raw[0] == '[' {
		var filters nostr.Filters
		if err := json.Unmarshal(raw, &filters); err != nil {
			return nil, fmt.Errorf("bridge: decoding filters: %w", err)
		}
		return filters, nil
	}

	var filter nostr.Filter
	if err := json.Unmarshal(raw, &filter); err != nil {
		return nil, fmt.Errorf("bridge: decoding filter: %w", err)
	}
	return nostr.Filters{filter}, nil
}

type sendEventValue struct {
	SendID int          `json:"sendId"`
	Event  *nostr.Event `json:"event"`
	Relays []string     `json:"relays"`
}

type publishedValue struct {
	SendID  int               `json:"sendId"`
	Event   *nostr.Event      `json:"event"`
	Results []publishedResult `json:"results"`
}

type publishedResult struct {
	Relay    string `json:"relay"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
