package bridge

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pareto-space/pareto-bridge/nostr"
)

const (
	sentEventRequestID   = -1
	sentEventDescription = "sent event"

	storeTimeout = 5 * time.Second
)

type eventsValue struct {
	Kind      int            `json:"kind"`
	Events    []*nostr.Event `json:"events"`
	RequestID int            `json:"requestId"`
}

type highlightValue struct {
	PubKey    string `json:"pubkey"`
	Highlight string `json:"highlight"`
}

// ZapReceipt is the summary of a zap receipt event sent to the shell.
type ZapReceipt struct {
	ID           string `json:"id"`
	PubKeySender string `json:"pubkeySender,omitempty"`
	Address      string `json:"address,omitempty"`
	Bolt11       string `json:"bolt11,omitempty"`
	Event        string `json:"event,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Preimage     string `json:"preimage,omitempty"`
	Amount       string `json:"amount,omitempty"`
}

// ProcessEvents caches a batch of events and delivers it to the shell: zap receipts and highlights
// as one message each, all other events as one message per kind in ascending kind order.
func (s *Session) ProcessEvents(requestID int, description string, events []*nostr.Event) {
	if len(events) == 0 {
		log.Debugw("no events", "request", requestID, "description", description)
		return
	}

	if s.svc.events != nil {
		ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
		if err := s.svc.events.Put(ctx, events...); err != nil {
			log.Errorw("caching events", "request", requestID, "err", err)
		}
		cancel()
	}

	var (
		byKind     = make(map[int][]*nostr.Event)
		highlights []highlightValue
		zaps       []ZapReceipt
	)
	for _, ev := range events {
		switch ev.Kind {
		case nostr.KindZapReceipt:
			zaps = append(zaps, NewZapReceipt(ev))
		case nostr.KindHighlight:
			highlights = append(highlights, highlightValue{PubKey: ev.PubKey, Highlight: ev.Content})
		default:
			byKind[ev.Kind] = append(byKind[ev.Kind], ev)
		}
	}

	kinds := make([]int, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Ints(kinds)

	for _, kind := range kinds {
		log.Debugw("events", "request", requestID, "description", description, "kind", kind, "amount", len(byKind[kind]))
		s.send(Message{Type: MessageEvents, Value: eventsValue{Kind: kind, Events: byKind[kind], RequestID: requestID}})
	}
	if len(highlights) > 0 {
		s.send(Message{Type: MessageHighlights, Value: highlights})
	}
	if len(zaps) > 0 {
		s.send(Message{Type: MessageZapReceipts, Value: zaps})
	}
}

// NewZapReceipt summarizes a zap receipt event. Later tags override earlier ones of the same name.
func NewZapReceipt(ev *nostr.Event) ZapReceipt {
	zap := ZapReceipt{ID: ev.ID}
	for _, tag := range ev.Tags {
		switch tag.Key() {
		case "P":
			zap.PubKeySender = tag.Value()
		case "a":
			zap.Address = tag.Value()
		case "bolt11":
			zap.Bolt11 = tag.Value()
		case "e":
			zap.Event = tag.Value()
		case "p":
			zap.Recipient = tag.Value()
		case "preimage":
			zap.Preimage = tag.Value()
		case "description":
			// the description is the zap request, its amount tag holds the amount in millisats
			var request nostr.Event
			if err := json.Unmarshal([]byte(tag.Value()), &request); err != nil {
				log.Debugw("decoding zap request", "zap", ev.ID, "err", err)
				continue
			}
			if amount, ok := nostr.FirstTag(request.Tags, "amount"); ok {
				zap.Amount = amount.Value()
			}
		}
	}
	return zap
}
