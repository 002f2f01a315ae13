// Package pool maintains connections to a set of nostr relays and serves fetch and publish
// requests scoped to subsets of them.
//
// Every relay of the pool runs its own connect loop: it is dialed, marked ready once the socket
// is open, and redialed with an exponential backoff whenever it drops. Lifecycle transitions are
// published to handlers registered with OnRelayConnecting, OnRelayConnect, OnRelayReady and
// OnRelayDisconnect.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	logging "github.com/ipfs/go-log/v2"

	"github.com/pareto-space/pareto-bridge/relay"
)

var log = logging.Logger("relay/pool")

var (
	// ErrNoRelays is returned when none of the relays of a RelaySet could serve a request.
	ErrNoRelays = errors.New("relay/pool: no relay available")
	// ErrNotReady is reported for relays of a RelaySet that are not ready.
	ErrNotReady = errors.New("relay/pool: relay is not ready")
)

// Status is the connection state of a relay in the pool.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// RelayStatus describes a relay of the pool.
type RelayStatus struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

type entry struct {
	url     string
	status  Status
	conn    *relay.Conn
	running bool
}

// Pool is a set of relay connections.
type Pool struct {
	params   Parameters
	dialOpts []relay.Option

	lk      sync.Mutex
	relays  map[string]*entry
	order   []string
	changed chan struct{}

	handlers handlers
	metrics  *metrics

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	wg      sync.WaitGroup
}

// New creates a Pool over the given relay urls. Relays are dialed once the pool is started.
func New(params Parameters, urls []string, opts ...relay.Option) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		params:   params,
		dialOpts: opts,
		relays:   make(map[string]*entry),
		changed:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	p.dialOpts = append(p.dialOpts, relay.WithNoticeHandler(func(url, notice string) {
		for _, h := range p.handlers.notice.snapshot() {
			h(url, notice)
		}
	}))
	p.AddRelays(urls...)
	return p
}

// Start dials all relays of the pool.
func (p *Pool) Start(context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}

	p.lk.Lock()
	defer p.lk.Unlock()
	for _, url := range p.order {
		p.runLocked(p.relays[url])
	}
	return nil
}

// Stop closes all relay connections and waits for the connect loops to exit.
func (p *Pool) Stop(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.metrics.close()
}

// AddRelays adds relays to the pool. Relays already in the pool are ignored.
// If the pool is started, new relays are dialed right away.
func (p *Pool) AddRelays(urls ...string) (added []string) {
	p.lk.Lock()
	defer p.lk.Unlock()

	for _, url := range relay.NormalizeURLs(urls) {
		if _, ok := p.relays[url]; ok {
			continue
		}
		e := &entry{url: url}
		p.relays[url] = e
		p.order = append(p.order, url)
		added = append(added, url)

		if p.started.Load() {
			p.runLocked(e)
		}
	}
	if len(added) > 0 {
		p.signalLocked()
	}
	return added
}

// Relays returns the urls of all relays known to the pool, in the order they were added.
func (p *Pool) Relays() []string {
	p.lk.Lock()
	defer p.lk.Unlock()
	return append([]string(nil), p.order...)
}

// Status reports the state of every relay of the pool.
func (p *Pool) Status() []RelayStatus {
	p.lk.Lock()
	defer p.lk.Unlock()

	out := make([]RelayStatus, 0, len(p.order))
	for _, url := range p.order {
		out = append(out, RelayStatus{URL: url, Status: p.relays[url].status.String()})
	}
	return out
}

// IsReady reports whether the relay with the given url is ready.
func (p *Pool) IsReady(url string) bool {
	p.lk.Lock()
	defer p.lk.Unlock()
	e, ok := p.relays[relay.NormalizeURL(url)]
	return ok && e.status == StatusReady
}

// WaitReady blocks until every relay of the pool is ready, the timeout elapses or ctx is done,
// and returns the amount of ready relays. A zero timeout falls back to Parameters.ConnectTimeout.
func (p *Pool) WaitReady(ctx context.Context, timeout time.Duration) int {
	ctx, cancel := p.connectContext(ctx, timeout)
	defer cancel()
	return p.wait(ctx, nil, 0)
}

// WaitAnyReady blocks until at least one relay of the pool is ready, the timeout elapses or ctx
// is done, and returns the amount of ready relays. A zero timeout falls back to
// Parameters.ConnectTimeout.
func (p *Pool) WaitAnyReady(ctx context.Context, timeout time.Duration) int {
	ctx, cancel := p.connectContext(ctx, timeout)
	defer cancel()
	return p.wait(ctx, nil, 1)
}

func (p *Pool) connectContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = p.params.ConnectTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// WaitRelaySet blocks until every relay of the set is ready or ctx is done, and returns the
// amount of ready relays of the set.
func (p *Pool) WaitRelaySet(ctx context.Context, set *RelaySet) int {
	if set.Len() == 0 {
		return 0
	}
	return p.wait(ctx, set.URLs(), 0)
}

// wait waits until need of the given relays are ready, or all of them if need is zero. A nil urls
// waits for the relays of the pool.
func (p *Pool) wait(ctx context.Context, urls []string, need int) int {
	for {
		p.lk.Lock()
		targets := urls
		if targets == nil {
			targets = p.order
		}
		ready := 0
		for _, url := range targets {
			if e, ok := p.relays[url]; ok && e.status == StatusReady {
				ready++
			}
		}
		total, changed := len(targets), p.changed
		p.lk.Unlock()

		if need > 0 && ready >= need {
			return ready
		}
		if total > 0 && ready == total {
			return ready
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ready
		}
	}
}

func (p *Pool) runLocked(e *entry) {
	if e.running {
		return
	}
	e.running = true
	p.wg.Add(1)
	go p.connectLoop(e.url)
}

func (p *Pool) connectLoop(url string) {
	defer p.wg.Done()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.params.ReconnectMin
	bo.MaxInterval = p.params.ReconnectMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		p.setStatus(url, StatusConnecting, nil)

		dialCtx, cancel := context.WithTimeout(p.ctx, p.params.DialTimeout)
		conn, err := relay.Dial(dialCtx, url, p.dialOpts...)
		cancel()
		if err != nil {
			p.setStatus(url, StatusDisconnected, nil)
			if p.ctx.Err() != nil {
				return
			}
			log.Debugw("dialing relay", "relay", url, "err", err)
			if !p.sleep(bo.NextBackOff()) {
				return
			}
			continue
		}

		bo.Reset()
		p.setStatus(url, StatusConnected, conn)
		p.setStatus(url, StatusReady, conn)

		select {
		case <-conn.Done():
			log.Infow("relay dropped", "relay", url, "err", conn.Err())
			p.setStatus(url, StatusDisconnected, nil)
			if !p.sleep(bo.NextBackOff()) {
				return
			}
		case <-p.ctx.Done():
			conn.Close()
			p.setStatus(url, StatusDisconnected, nil)
			return
		}
	}
}

func (p *Pool) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Pool) setStatus(url string, status Status, conn *relay.Conn) {
	p.lk.Lock()
	e, ok := p.relays[url]
	if !ok {
		p.lk.Unlock()
		return
	}
	prev := e.status
	e.status, e.conn = status, conn
	p.signalLocked()
	p.lk.Unlock()

	p.metrics.observeStatus(status)

	switch status {
	case StatusConnecting:
		log.Debugw("connecting relay", "relay", url)
		notify(p.handlers.connecting.snapshot(), url)
	case StatusConnected:
		log.Debugw("relay connected", "relay", url)
		notify(p.handlers.connect.snapshot(), url)
	case StatusReady:
		log.Infow("relay ready", "relay", url)
		notify(p.handlers.ready.snapshot(), url)
	case StatusDisconnected:
		// failed dials never reached ready, nothing to announce
		if prev == StatusConnected || prev == StatusReady {
			notify(p.handlers.disconnect.snapshot(), url)
		}
	}
}

func (p *Pool) signalLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// readyConns returns the open connections of the ready relays of the set, in set order.
func (p *Pool) readyConns(set *RelaySet) []*relay.Conn {
	p.lk.Lock()
	defer p.lk.Unlock()

	conns := make([]*relay.Conn, 0, set.Len())
	for _, url := range set.URLs() {
		if e, ok := p.relays[url]; ok && e.status == StatusReady && e.conn != nil {
			conns = append(conns, e.conn)
		}
	}
	return conns
}
