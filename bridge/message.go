package bridge

import (
	"encoding/json"
	"errors"
)

// Message types sent to the application shell.
const (
	MessageConnecting        = "connecting"
	MessageConnected         = "connected"
	MessageRelayConnected    = "relay:connected"
	MessageRelayReady        = "relay:ready"
	MessageRelayDisconnected = "relay:disconnected"
	MessageRelayNotice       = "relay:notice"
	MessageEvents            = "events"
	MessageHighlights        = "highlights"
	MessageZapReceipts       = "zap_receipts"
	MessagePublished         = "published"
	MessageError             = "error"
)

// Commands accepted from the application shell.
const (
	CommandConnect       = "connect"
	CommandRequestEvents = "requestEvents"
	CommandSearchEvents  = "searchEvents"
	CommandSendEvent     = "sendEvent"
)

// ErrPortClosed is returned by ports that can no longer deliver messages.
var ErrPortClosed = errors.New("bridge: port closed")

// Message is a message to the application shell.
type Message struct {
	Type  string `json:"messageType"`
	Value any    `json:"value"`
}

// Command is a command from the application shell.
type Command struct {
	Command string          `json:"command"`
	Value   json.RawMessage `json:"value"`
}

// Port delivers messages to the application shell. Send may be called concurrently.
type Port interface {
	Send(Message) error
}

// PortFunc is a function Port.
type PortFunc func(Message) error

func (f PortFunc) Send(msg Message) error {
	return f(msg)
}

type relayValue struct {
	URL string `json:"url"`
}

type noticeValue struct {
	Relay  string `json:"relay"`
	Notice string `json:"notice"`
}

type errorValue struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}
