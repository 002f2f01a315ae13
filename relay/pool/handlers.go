package pool

import "sync"

// RelayHandler is notified about a lifecycle transition of the relay with the given url.
type RelayHandler func(url string)

// NoticeHandler is notified about NOTICE messages sent by a relay.
type NoticeHandler func(url, notice string)

// registry keeps handlers in registration order.
type registry[H any] struct {
	lk      sync.Mutex
	next    uint64
	entries []registered[H]
}

type registered[H any] struct {
	id uint64
	h  H
}

func (r *registry[H]) add(h H) (cancel func()) {
	r.lk.Lock()
	defer r.lk.Unlock()

	id := r.next
	r.next++
	r.entries = append(r.entries, registered[H]{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *registry[H]) remove(id uint64) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *registry[H]) snapshot() []H {
	r.lk.Lock()
	defer r.lk.Unlock()
	out := make([]H, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.h
	}
	return out
}

type handlers struct {
	connecting registry[RelayHandler]
	connect    registry[RelayHandler]
	ready      registry[RelayHandler]
	disconnect registry[RelayHandler]
	notice     registry[NoticeHandler]
}

// OnRelayConnecting registers h to be called whenever the pool starts dialing a relay.
func (p *Pool) OnRelayConnecting(h RelayHandler) (cancel func()) {
	return p.handlers.connecting.add(h)
}

// OnRelayConnect registers h to be called once a relay socket is open.
func (p *Pool) OnRelayConnect(h RelayHandler) (cancel func()) {
	return p.handlers.connect.add(h)
}

// OnRelayReady registers h to be called once a relay can serve requests.
func (p *Pool) OnRelayReady(h RelayHandler) (cancel func()) {
	return p.handlers.ready.add(h)
}

// OnRelayDisconnect registers h to be called when a ready relay drops.
func (p *Pool) OnRelayDisconnect(h RelayHandler) (cancel func()) {
	return p.handlers.disconnect.add(h)
}

// OnNotice registers h to be called for every NOTICE received from any relay.
func (p *Pool) OnNotice(h NoticeHandler) (cancel func()) {
	return p.handlers.notice.add(h)
}

func notify(hs []RelayHandler, url string) {
	for _, h := range hs {
		h(url)
	}
}
