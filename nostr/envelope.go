package nostr

import (
	"errors"

	gonostr "github.com/nbd-wtf/go-nostr"
)

// ErrUnknownMessage is returned by ParseMessage for frames it cannot decode.
var ErrUnknownMessage = errors.New("nostr: unknown relay message")

type (
	// Envelope is any message exchanged between a client and a relay.
	Envelope = gonostr.Envelope

	EventEnvelope  = gonostr.EventEnvelope
	ReqEnvelope    = gonostr.ReqEnvelope
	CloseEnvelope  = gonostr.CloseEnvelope
	ClosedEnvelope = gonostr.ClosedEnvelope
	EOSEEnvelope   = gonostr.EOSEEnvelope
	OKEnvelope     = gonostr.OKEnvelope
	NoticeEnvelope = gonostr.NoticeEnvelope
	AuthEnvelope   = gonostr.AuthEnvelope
)

// ParseMessage decodes a raw frame into one of the envelope types, always as a pointer.
func ParseMessage(data []byte) (Envelope, error) {
	env := gonostr.ParseMessage(data)
	if env == nil {
		return nil, ErrUnknownMessage
	}
	return env, nil
}

// ReqFrame encodes a REQ message for the given subscription.
func ReqFrame(subID string, filters Filters) ([]byte, error) {
	return (&ReqEnvelope{SubscriptionID: subID, Filters: filters}).MarshalJSON()
}

// CloseFrame encodes a CLOSE message for the given subscription.
func CloseFrame(subID string) ([]byte, error) {
	env := CloseEnvelope(subID)
	return env.MarshalJSON()
}

// EventFrame encodes an EVENT message publishing the given event.
func EventFrame(ev *Event) ([]byte, error) {
	return (&EventEnvelope{Event: *ev}).MarshalJSON()
}

// SubscriptionEventFrame encodes an EVENT message delivering ev to a subscription.
func SubscriptionEventFrame(subID string, ev *Event) ([]byte, error) {
	return (&EventEnvelope{SubscriptionID: &subID, Event: *ev}).MarshalJSON()
}
