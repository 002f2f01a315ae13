// Package relaytest provides an in-process nostr relay for tests.
package relaytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/pareto-space/pareto-bridge/nostr"
)

// Relay is a minimal relay: it answers REQ with its stored events followed by EOSE, forwards
// live events to open subscriptions and acknowledges published events.
type Relay struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	lk        sync.Mutex
	events    []*nostr.Event
	published []*nostr.Event
	reqs      int
	conns     map[*conn]struct{}
	skipEOSE  bool
	rejectMsg string
}

type conn struct {
	ws      *websocket.Conn
	writeLk sync.Mutex
	subsLk  sync.Mutex
	subs    map[string]nostr.Filters
}

// New starts a relay serving the given stored events. It is closed on test cleanup.
func New(t testing.TB, events ...*nostr.Event) *Relay {
	r := &Relay{
		events: events,
		conns:  make(map[*conn]struct{}),
	}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)
	return r
}

// URL returns the websocket url of the relay in normalized form.
func (r *Relay) URL() string {
	return "ws://" + strings.TrimPrefix(r.srv.URL, "http://") + "/"
}

// SkipEOSE makes the relay never answer with EOSE.
func (r *Relay) SkipEOSE() {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.skipEOSE = true
}

// Reject makes the relay reject published events with the given reason.
func (r *Relay) Reject(reason string) {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.rejectMsg = reason
}

// Close drops all connections and stops the server.
func (r *Relay) Close() {
	r.DropConnections()
	r.srv.Close()
}

// DropConnections closes every open client connection.
func (r *Relay) DropConnections() {
	r.lk.Lock()
	conns := r.conns
	r.conns = make(map[*conn]struct{})
	r.lk.Unlock()

	for c := range conns {
		c.ws.Close()
	}
}

// Broadcast stores the event and sends it to every open subscription it matches.
func (r *Relay) Broadcast(ev *nostr.Event) {
	r.lk.Lock()
	r.events = append(r.events, ev)
	conns := make([]*conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.lk.Unlock()

	for _, c := range conns {
		c.subsLk.Lock()
		for id, filters := range c.subs {
			if filters.Match(ev) {
				c.sendEvent(id, ev)
			}
		}
		c.subsLk.Unlock()
	}
}

// Notice sends a NOTICE to every connected client.
func (r *Relay) Notice(text string) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for c := range r.conns {
		c.notice(text)
	}
}

// Published returns the events clients published to the relay.
func (r *Relay) Published() []*nostr.Event {
	r.lk.Lock()
	defer r.lk.Unlock()
	return append([]*nostr.Event(nil), r.published...)
}

// Requests returns the amount of REQ messages received.
func (r *Relay) Requests() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return r.reqs
}

// Connections returns the amount of open client connections.
func (r *Relay) Connections() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return len(r.conns)
}

func (r *Relay) serve(w http.ResponseWriter, req *http.Request) {
	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws, subs: make(map[string]nostr.Filters)}

	r.lk.Lock()
	r.conns[c] = struct{}{}
	r.lk.Unlock()
	defer func() {
		r.lk.Lock()
		delete(r.conns, c)
		r.lk.Unlock()
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := nostr.ParseMessage(data)
		if err != nil {
			c.notice("invalid frame")
			continue
		}

		switch env := env.(type) {
		case *nostr.ReqEnvelope:
			r.handleReq(c, env)
		case *nostr.CloseEnvelope:
			c.subsLk.Lock()
			delete(c.subs, string(*env))
			c.subsLk.Unlock()
		case *nostr.EventEnvelope:
			r.handleEvent(c, &env.Event)
		default:
			c.notice("unknown message " + env.Label())
		}
	}
}

func (r *Relay) handleReq(c *conn, req *nostr.ReqEnvelope) {
	r.lk.Lock()
	r.reqs++
	stored := append([]*nostr.Event(nil), r.events...)
	skipEOSE := r.skipEOSE
	r.lk.Unlock()

	c.subsLk.Lock()
	c.subs[req.SubscriptionID] = req.Filters
	c.subsLk.Unlock()

	for _, ev := range stored {
		if req.Filters.Match(ev) {
			c.sendEvent(req.SubscriptionID, ev)
		}
	}
	if !skipEOSE {
		eose := nostr.EOSEEnvelope(req.SubscriptionID)
		c.send(&eose)
	}
}

func (r *Relay) handleEvent(c *conn, ev *nostr.Event) {
	cp := *ev

	r.lk.Lock()
	reason := r.rejectMsg
	if reason == "" {
		r.published = append(r.published, &cp)
	}
	r.lk.Unlock()

	c.send(&nostr.OKEnvelope{EventID: cp.ID, OK: reason == "", Reason: reason})
}

func (c *conn) sendEvent(subID string, ev *nostr.Event) {
	frame, err := nostr.SubscriptionEventFrame(subID, ev)
	if err != nil {
		return
	}
	c.write(frame)
}

func (c *conn) notice(text string) {
	notice := nostr.NoticeEnvelope(text)
	c.send(&notice)
}

func (c *conn) send(env nostr.Envelope) {
	frame, err := env.MarshalJSON()
	if err != nil {
		return
	}
	c.write(frame)
}

func (c *conn) write(frame []byte) {
	c.writeLk.Lock()
	defer c.writeLk.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, frame)
}
