// Package relay implements a client connection to a single nostr relay.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logging "github.com/ipfs/go-log/v2"

	"github.com/pareto-space/pareto-bridge/nostr"
)

var log = logging.Logger("relay")

// ErrClosed is returned for operations on a connection that has been shut down.
var ErrClosed = errors.New("relay: connection closed")

const (
	defaultWriteTimeout = 10 * time.Second
	subscriptionBuffer  = 256
)

// Option configures a Conn.
type Option func(*Conn)

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Conn) {
		c.dialer = d
	}
}

// WithWriteTimeout bounds every frame write to the relay.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Conn) {
		c.writeTimeout = timeout
	}
}

// WithNoticeHandler registers a callback for NOTICE messages.
func WithNoticeHandler(h func(url, notice string)) Option {
	return func(c *Conn) {
		c.onNotice = h
	}
}

// Conn is a websocket connection to a relay. It multiplexes subscriptions and publishes over
// one socket and is safe for concurrent use.
type Conn struct {
	url          string
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	onNotice     func(url, notice string)

	ws      *websocket.Conn
	writeLk sync.Mutex

	lk   sync.Mutex
	subs map[string]*Subscription
	oks  map[string]chan nostr.OKEnvelope
	err  error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the relay at url and starts reading from it.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	c := &Conn{
		url:          NormalizeURL(url),
		dialer:       websocket.DefaultDialer,
		writeTimeout: defaultWriteTimeout,
		subs:         make(map[string]*Subscription),
		oks:          make(map[string]chan nostr.OKEnvelope),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: dialing %s: %w", c.url, err)
	}
	c.ws = ws

	go c.readLoop()
	return c, nil
}

// URL returns the normalized relay url.
func (c *Conn) URL() string {
	return c.url
}

// Done is closed once the connection is terminated.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection terminated. It is nil while the connection is alive.
func (c *Conn) Err() error {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.err
}

// Close terminates the connection.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

// Subscribe sends a REQ with the given filters under a fresh subscription id.
func (c *Conn) Subscribe(ctx context.Context, filters nostr.Filters) (*Subscription, error) {
	sub := &Subscription{
		ID:      uuid.NewString(),
		Filters: filters,
		conn:    c,
		events:  make(chan *nostr.Event, subscriptionBuffer),
		eose:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	frame, err := nostr.ReqFrame(sub.ID, filters)
	if err != nil {
		return nil, err
	}

	c.lk.Lock()
	if c.err != nil {
		c.lk.Unlock()
		return nil, c.err
	}
	c.subs[sub.ID] = sub
	c.lk.Unlock()

	if err := c.write(ctx, frame); err != nil {
		c.removeSub(sub.ID)
		return nil, err
	}
	return sub, nil
}

// Publish sends the event and waits for the relay to acknowledge it.
func (c *Conn) Publish(ctx context.Context, ev *nostr.Event) (nostr.OKEnvelope, error) {
	frame, err := nostr.EventFrame(ev)
	if err != nil {
		return nostr.OKEnvelope{}, err
	}

	okCh := make(chan nostr.OKEnvelope, 1)
	c.lk.Lock()
	if c.err != nil {
		c.lk.Unlock()
		return nostr.OKEnvelope{}, c.err
	}
	c.oks[ev.ID] = okCh
	c.lk.Unlock()
	defer func() {
		c.lk.Lock()
		delete(c.oks, ev.ID)
		c.lk.Unlock()
	}()

	if err := c.write(ctx, frame); err != nil {
		return nostr.OKEnvelope{}, err
	}

	select {
	case ok := <-okCh:
		return ok, nil
	case <-c.done:
		return nostr.OKEnvelope{}, c.Err()
	case <-ctx.Done():
		return nostr.OKEnvelope{}, ctx.Err()
	}
}

func (c *Conn) write(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return c.Err()
	default:
	}

	c.writeLk.Lock()
	defer c.writeLk.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("relay: setting write deadline for %s: %w", c.url, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.shutdown(fmt.Errorf("relay: writing to %s: %w", c.url, err))
		return c.Err()
	}
	return nil
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("relay: reading from %s: %w", c.url, err))
			return
		}

		env, err := nostr.ParseMessage(data)
		if err != nil {
			log.Debugw("dropping relay frame", "relay", c.url, "err", err)
			continue
		}
		c.handle(env)
	}
}

func (c *Conn) handle(env nostr.Envelope) {
	switch env := env.(type) {
	case *nostr.EventEnvelope:
		if env.SubscriptionID == nil {
			return
		}
		sub, ok := c.sub(*env.SubscriptionID)
		if !ok {
			return
		}
		ev := env.Event
		select {
		case sub.events <- &ev:
		case <-sub.done:
		}
	case *nostr.EOSEEnvelope:
		if sub, ok := c.sub(string(*env)); ok {
			sub.eoseOnce.Do(func() { close(sub.eose) })
		}
	case *nostr.ClosedEnvelope:
		if sub, ok := c.sub(env.SubscriptionID); ok {
			log.Debugw("subscription closed by relay", "relay", c.url, "sub", sub.ID, "reason", env.Reason)
			c.removeSub(sub.ID)
			sub.end(env.Reason)
		}
	case *nostr.OKEnvelope:
		c.lk.Lock()
		okCh, ok := c.oks[env.EventID]
		c.lk.Unlock()
		if ok {
			select {
			case okCh <- *env:
			default:
			}
		}
	case *nostr.NoticeEnvelope:
		log.Debugw("relay notice", "relay", c.url, "notice", string(*env))
		if c.onNotice != nil {
			c.onNotice(c.url, string(*env))
		}
	case *nostr.AuthEnvelope:
		// answering NIP-42 challenges requires a signer, which lives in the application shell
		log.Debugw("ignoring auth challenge", "relay", c.url)
	default:
		log.Debugw("ignoring relay message", "relay", c.url, "label", env.Label())
	}
}

func (c *Conn) sub(id string) (*Subscription, bool) {
	c.lk.Lock()
	defer c.lk.Unlock()
	sub, ok := c.subs[id]
	return sub, ok
}

func (c *Conn) removeSub(id string) {
	c.lk.Lock()
	defer c.lk.Unlock()
	delete(c.subs, id)
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.lk.Lock()
		c.err = err
		subs := c.subs
		c.subs = make(map[string]*Subscription)
		c.lk.Unlock()

		close(c.done)
		if cerr := c.ws.Close(); cerr != nil {
			log.Debugw("closing websocket", "relay", c.url, "err", cerr)
		}
		for _, sub := range subs {
			sub.end("connection closed")
		}
	})
}

// Subscription is an open REQ on a relay.
type Subscription struct {
	ID      string
	Filters nostr.Filters

	conn     *Conn
	events   chan *nostr.Event
	eose     chan struct{}
	eoseOnce sync.Once

	done      chan struct{}
	closeOnce sync.Once
	reason    string
}

// Events delivers matching events. The channel is never closed, select on Done as well.
func (s *Subscription) Events() <-chan *nostr.Event {
	return s.events
}

// EndOfStoredEvents is closed once the relay sent EOSE for the subscription.
func (s *Subscription) EndOfStoredEvents() <-chan struct{} {
	return s.eose
}

// Done is closed when the subscription ended, locally or on the relay side.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Reason tells why the subscription ended. Only meaningful after Done is closed.
func (s *Subscription) Reason() string {
	return s.reason
}

// Close ends the subscription and sends CLOSE to the relay if the connection is alive.
func (s *Subscription) Close() {
	select {
	case <-s.done:
		return
	default:
	}

	s.conn.removeSub(s.ID)
	s.end("closed by client")

	frame, err := nostr.CloseFrame(s.ID)
	if err != nil {
		return
	}
	if err := s.conn.write(context.Background(), frame); err != nil {
		log.Debugw("sending CLOSE", "relay", s.conn.url, "sub", s.ID, "err", err)
	}
}

func (s *Subscription) end(reason string) {
	s.closeOnce.Do(func() {
		s.reason = reason
		close(s.done)
	})
}
